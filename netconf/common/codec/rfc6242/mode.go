// Copyright 2018 Andrew Fort
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package rfc6242

// Mode identifies a message framing.
type Mode int

const (
	// EndOfMessage frames messages with the base:1.0 ]]>]]> delimiter.
	EndOfMessage Mode = iota
	// Chunked frames messages as length-prefixed base:1.1 chunks.
	Chunked
)

func (m Mode) String() string {
	if m == Chunked {
		return "chunked"
	}
	return "end-of-message"
}

// SetMode selects the framing of the next message read. It must only be called between
// calls to ReadMessage.
func (d *Decoder) SetMode(m Mode) {
	if m == Chunked {
		d.setFramer(decoderChunked)
		return
	}
	d.setFramer(decoderEndOfMessage)
}

// SetMode selects the framing of subsequent writes.
func (e *Encoder) SetMode(m Mode) {
	e.ChunkedFraming = m == Chunked
}

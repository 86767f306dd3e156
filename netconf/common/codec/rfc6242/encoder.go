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

import (
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// ErrDelimiterInPayload is returned when an end-of-message framed payload contains
// the end-of-message delimiter, which would truncate the message at the peer.
var ErrDelimiterInPayload = errors.New("netconf: payload contains end-of-message delimiter")

// ErrEmptyChunkedMessage is returned when an empty payload is written in chunked mode,
// which requires at least one chunk.
var ErrEmptyChunkedMessage = errors.New("netconf: chunked message must not be empty")

// NewEncoder returns a new RFC6242 transport encoding writer with underlying
// writer output, configured with any options provided.
func NewEncoder(output io.Writer, opts ...EncoderOption) *Encoder {
	e := &Encoder{Output: output, MaxChunkSize: rfc6242maximumAllowedChunkSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithMaximumChunkSize sets the largest chunk the encoder will emit; zero means no ceiling.
func WithMaximumChunkSize(size uint32) EncoderOption {
	return func(e *Encoder) {
		e.MaxChunkSize = size
	}
}

// Encoder frames whole messages. By default it uses end-of-message framing;
// if chunked mode is enabled (see SetMode) messages are split into
// length-prefixed chunks followed by the end-of-chunks marker.
//
// Each message is written to the underlying writer with a single Write call.
// Encoder is not safe for concurrent use.
type Encoder struct {
	// Output is the underlying Writer to receive encoded output
	Output io.Writer
	// ChunkedFraming sets whether the next call to WriteMessage should use
	// chunked-message framing (true) or end-of-message framing (false)
	ChunkedFraming bool
	// MaxChunkSize is the maximum size of chunks the encoder will Encode. If
	// zero, the Encoder places no artificial ceiling on the chunk size.
	MaxChunkSize uint32

	buf bytes.Buffer
}

// WriteMessage frames b according to the current mode and writes it to the output.
// Write failures wrap ErrTransportClosed.
func (e *Encoder) WriteMessage(b []byte) error {
	e.buf.Reset()
	if e.ChunkedFraming {
		if len(b) == 0 {
			return ErrEmptyChunkedMessage
		}
		e.frameChunked(b)
	} else {
		if bytes.Contains(b, tokenEOM) {
			return ErrDelimiterInPayload
		}
		e.buf.Write(b)
		e.buf.Write(tokenEOM)
	}

	if _, err := e.Output.Write(e.buf.Bytes()); err != nil {
		return errors.Wrap(ErrTransportClosed, err.Error())
	}
	return nil
}

// Close attempts to close the underlying writer.
func (e *Encoder) Close() error {
	// always be closing
	if closer, ok := e.Output.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (e *Encoder) frameChunked(b []byte) {
	limit := len(b)
	if e.MaxChunkSize > 0 && uint64(e.MaxChunkSize) < uint64(limit) {
		limit = int(e.MaxChunkSize)
	}

	// chunk encoding:
	// \n#<x>\n<x bytes data...>
	for n := 0; n < len(b); {
		chunksize := len(b) - n
		if chunksize > limit {
			chunksize = limit
		}
		e.buf.WriteString("\n#")
		e.buf.WriteString(strconv.Itoa(chunksize))
		e.buf.WriteByte('\n')
		e.buf.Write(b[n : n+chunksize])
		n += chunksize
	}
	e.buf.Write(tokenEOC)
}

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
	"strconv"

	"github.com/pkg/errors"
)

var (
	// tokenEOM is the NETCONF 1.0 end-of-message delimiter.
	tokenEOM = []byte("]]>]]>")
	// tokenEOC is the chunked framing end-of-chunks marker.
	tokenEOC = []byte("\n##\n")
)

// decoderEndOfMessage is the NETCONF 1.0 end-of-message delimited decoding function.
// Data preceding a possible partial delimiter is accumulated as it arrives, so the
// scanner buffer never has to hold a whole message.
func decoderEndOfMessage(d *Decoder, b []byte, atEOF bool) (advance int, token []byte, err error) {
	if idx := bytes.Index(b, tokenEOM); idx > -1 {
		if err = d.appendData(b[:idx]); err != nil {
			return 0, nil, err
		}
		return idx + len(tokenEOM), d.completeMessage(), nil
	}

	if atEOF {
		if len(b) > 0 || d.inMessage {
			return 0, nil, errors.Wrap(ErrTransportClosed, "stream ended before end-of-message delimiter")
		}
		return 0, nil, nil
	}

	// Retain enough trailing bytes to detect a delimiter split across reads.
	safe := len(b) - (len(tokenEOM) - 1)
	if safe <= 0 {
		return 0, nil, nil
	}
	if err = d.appendData(b[:safe]); err != nil {
		return 0, nil, err
	}
	return safe, nil, nil
}

// decoderChunked is the NETCONF 1.1 chunked framing decoding function.
//
//	chunked-message = 1*chunk end-of-chunks
//	chunk           = LF HASH chunk-size LF chunk-data
//	end-of-chunks   = LF HASH HASH LF
//
// Zero sized chunks are tolerated, but at least one chunk must precede end-of-chunks.
func decoderChunked(d *Decoder, b []byte, atEOF bool) (advance int, token []byte, err error) {
	for {
		if d.chunkDataLeft > 0 {
			if advance == len(b) {
				break
			}
			n := len(b) - advance
			if uint64(n) > d.chunkDataLeft {
				n = int(d.chunkDataLeft)
			}
			if err = d.appendData(b[advance : advance+n]); err != nil {
				return 0, nil, err
			}
			advance += n
			d.chunkDataLeft -= uint64(n)
			continue
		}

		hdr := b[advance:]
		n, size, last, herr := parseChunkHeader(hdr)
		if herr != nil {
			return 0, nil, herr
		}
		if n == 0 {
			// Incomplete header, wait for more data.
			break
		}
		if last && !d.inMessage {
			return 0, nil, errors.Wrap(ErrFraming, "end-of-chunks marker without a preceding chunk")
		}
		advance += n
		if last {
			return advance, d.completeMessage(), nil
		}
		d.inMessage = true
		d.chunkDataLeft = size
	}

	if atEOF && (d.inMessage || advance < len(b)) {
		return 0, nil, errors.Wrap(ErrTransportClosed, "stream ended before end-of-chunks marker")
	}
	return advance, nil, nil
}

// parseChunkHeader parses a chunk header or end-of-chunks marker at the start of b.
// n is zero if b does not yet hold a complete header and nothing is wrong so far.
func parseChunkHeader(b []byte) (n int, size uint64, last bool, err error) {
	if len(b) == 0 {
		return
	}
	if b[0] != '\n' {
		return 0, 0, false, errors.Wrapf(ErrFraming, "invalid chunk header %q", truncate(b))
	}
	if len(b) < 2 {
		return
	}
	if b[1] != '#' {
		return 0, 0, false, errors.Wrapf(ErrFraming, "invalid chunk header %q", truncate(b))
	}
	if len(b) < 3 {
		return
	}
	if b[2] == '#' {
		if len(b) < 4 {
			return
		}
		if b[3] != '\n' {
			return 0, 0, false, errors.Wrapf(ErrFraming, "invalid chunk header %q", truncate(b))
		}
		return len(tokenEOC), 0, true, nil
	}

	digits := b[2:]
	end := bytes.IndexByte(digits, '\n')
	if end == -1 {
		if len(digits) > rfc6242maximumAllowedChunkSizeLength {
			return 0, 0, false, errors.Wrap(ErrFraming, "no valid chunk-size detected")
		}
		for _, c := range digits {
			if c < '0' || c > '9' {
				return 0, 0, false, errors.Wrapf(ErrFraming, "invalid chunk header %q", truncate(b))
			}
		}
		return
	}
	if end == 0 || end > rfc6242maximumAllowedChunkSizeLength {
		return 0, 0, false, errors.Wrap(ErrFraming, "no valid chunk-size detected")
	}
	size, perr := strconv.ParseUint(string(digits[:end]), 10, 64)
	if perr != nil {
		return 0, 0, false, errors.Wrapf(ErrFraming, "invalid chunk header %q", truncate(b))
	}
	if size > rfc6242maximumAllowedChunkSize {
		return 0, 0, false, errors.Wrapf(ErrFraming, "chunk size larger than maximum (%d)", size)
	}
	return 2 + end + 1, size, false, nil
}

func truncate(b []byte) []byte {
	if len(b) > 16 {
		return b[:16]
	}
	return b
}

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
	"bufio"
	"bytes"
	"io"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrFraming is reported when the byte stream violates the negotiated framing,
	// e.g. a malformed chunk header or an oversized message. Once reported, byte
	// alignment with the peer can no longer be trusted.
	ErrFraming = errors.New("netconf: framing error")

	// ErrTransportClosed is reported when the underlying stream ends, or fails,
	// before a complete message is available.
	ErrTransportClosed = errors.New("netconf: transport closed")
)

// FramerFn is the input tokenization function used by a Decoder.
// It must consume as much of data as it can; a nil token with a positive
// advance means the message is still being assembled.
type FramerFn func(d *Decoder, data []byte, atEOF bool) (advance int, token []byte, err error)

// Decoder is an RFC6242 transport framing decoder.
//
// Decoder reassembles complete NETCONF messages from an io.Reader that may
// deliver any number of bytes per read. Each call to ReadMessage delivers the
// payload of exactly one framed message.
//
// Decoder is not safe for concurrent use, with the exception of PartialSince.
type Decoder struct {
	// Input is the input source for the Decoder. The input stream
	// must consist of RFC6242 encoded data according to the current
	// Framer.
	Input io.Reader

	framer FramerFn

	s *bufio.Scanner

	// The message currently being assembled.
	msg bytes.Buffer

	chunkDataLeft  uint64 // state
	inMessage      bool   // state
	bufSize        int    // config
	maxMessageSize int    // config

	// Unix nano time at which bytes of the next message were first seen, zero if none.
	partial int64
}

// NewDecoder creates a new RFC6242 transport framing decoder reading from
// input, configured with any options provided.
func NewDecoder(input io.Reader, options ...DecoderOption) *Decoder {
	d := &Decoder{
		Input:          input,
		framer:         decoderEndOfMessage,
		bufSize:        defaultReaderBufferSize,
		maxMessageSize: defaultMaximumMessageSize,
	}
	for _, option := range options {
		option(d)
	}
	if d.bufSize <= 0 {
		d.bufSize = defaultReaderBufferSize
	}
	d.s = bufio.NewScanner(input)
	d.s.Buffer(make([]byte, d.bufSize), d.bufSize)
	d.s.Split(d.split)
	return d
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithFramer sets the initial framer of the decoder.
func WithFramer(f FramerFn) DecoderOption {
	return func(d *Decoder) {
		d.framer = f
	}
}

// WithScannerBufferSize sets the size of the read buffer; values <= 0 select the default.
func WithScannerBufferSize(size int) DecoderOption {
	return func(d *Decoder) {
		d.bufSize = size
	}
}

// WithMaximumMessageSize bounds the size of a reassembled message; values <= 0 remove the bound.
func WithMaximumMessageSize(size int) DecoderOption {
	return func(d *Decoder) {
		d.maxMessageSize = size
	}
}

// ReadMessage blocks until one complete framed message has been read and
// returns its payload, without framing. The returned slice is owned by the caller.
//
// Errors wrap either ErrFraming or ErrTransportClosed.
func (d *Decoder) ReadMessage() ([]byte, error) {
	if d.s.Scan() {
		token := d.s.Bytes()
		msg := make([]byte, len(token))
		copy(msg, token)
		return msg, nil
	}

	err := d.s.Err()
	switch {
	case err == nil:
		return nil, errors.Wrap(ErrTransportClosed, "end of stream")
	case errors.Is(err, ErrFraming), errors.Is(err, ErrTransportClosed):
		return nil, err
	case errors.Is(err, bufio.ErrTooLong):
		return nil, errors.Wrap(ErrFraming, err.Error())
	default:
		return nil, errors.Wrap(ErrTransportClosed, err.Error())
	}
}

// PartialSince reports when bytes belonging to a message that has not yet
// been completed were first seen. It returns the zero Time if no message is in
// progress. It is safe to call concurrently with ReadMessage.
func (d *Decoder) PartialSince() time.Time {
	ns := atomic.LoadInt64(&d.partial)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (d *Decoder) split(b []byte, eof bool) (a int, t []byte, err error) {
	if len(b) > 0 && atomic.LoadInt64(&d.partial) == 0 {
		atomic.StoreInt64(&d.partial, time.Now().UnixNano())
	}
	a, t, err = d.framer(d, b, eof)
	if t != nil || err != nil {
		atomic.StoreInt64(&d.partial, 0)
	}
	return
}

func (d *Decoder) setFramer(f FramerFn) {
	d.framer = f
}

// appendData adds data to the message being assembled, enforcing the maximum message size.
func (d *Decoder) appendData(b []byte) error {
	d.inMessage = true
	if d.maxMessageSize > 0 && d.msg.Len()+len(b) > d.maxMessageSize {
		return errors.Wrapf(ErrFraming, "message size exceeds maximum of %d bytes", d.maxMessageSize)
	}
	d.msg.Write(b)
	return nil
}

// completeMessage delivers the assembled message and resets the decoder state for the next one.
func (d *Decoder) completeMessage() []byte {
	token := make([]byte, d.msg.Len())
	copy(token, d.msg.Bytes())
	d.msg.Reset()
	d.inMessage = false
	d.chunkDataLeft = 0
	return token
}

const (
	// RFC6242 section 4.2 defines the "maximum allowed chunk-size".
	rfc6242maximumAllowedChunkSize = 4294967295
	// the length of `rfc6242maximumAllowedChunkSize` in bytes on the wire.
	rfc6242maximumAllowedChunkSizeLength = 10
	// defaultReaderBufferSize is the default read buffer capacity size.
	defaultReaderBufferSize = 65536
	// defaultMaximumMessageSize bounds reassembled messages unless configured otherwise.
	defaultMaximumMessageSize = 64 * 1024 * 1024
)

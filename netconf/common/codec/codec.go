package codec

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/damianoneill/ncclient/netconf/common/codec/rfc6242"
	"github.com/pkg/errors"
)

// Decoder reads whole netconf messages from a transport using RFC6242 framing
// and decodes them as XML.
type Decoder struct {
	ncDecoder *rfc6242.Decoder
}

// Encoder encodes netconf messages as XML and writes them to a transport
// using RFC6242 framing.
type Encoder struct {
	ncEncoder *rfc6242.Encoder
}

// NewDecoder delivers a new decoder.
func NewDecoder(t io.Reader, opts ...rfc6242.DecoderOption) *Decoder {
	return &Decoder{ncDecoder: rfc6242.NewDecoder(t, opts...)}
}

// NewEncoder delivers a new encoder.
func NewEncoder(t io.Writer, opts ...rfc6242.EncoderOption) *Encoder {
	return &Encoder{ncEncoder: rfc6242.NewEncoder(t, opts...)}
}

// ReadMessage returns the next complete message from the transport.
// Errors wrap rfc6242.ErrFraming or rfc6242.ErrTransportClosed.
func (d *Decoder) ReadMessage() ([]byte, error) {
	return d.ncDecoder.ReadMessage()
}

// Decode reads the next message and unmarshals it into v.
// A message that is not well-formed fails with ErrMalformedDocument.
func (d *Decoder) Decode(v interface{}) error {
	b, err := d.ncDecoder.ReadMessage()
	if err != nil {
		return err
	}
	return Unmarshal(b, v)
}

// PartialSince reports when the first bytes of a still incomplete message arrived, or the zero Time.
func (d *Decoder) PartialSince() time.Time {
	return d.ncDecoder.PartialSince()
}

// EnableChunkedFraming switches the decoder to chunked framing for subsequent reads.
func (d *Decoder) EnableChunkedFraming() {
	d.ncDecoder.SetMode(rfc6242.Chunked)
}

// Encode marshals msg, prefixed with the XML declaration, and writes it as one framed message.
func (e *Encoder) Encode(msg interface{}) error {
	b, err := Marshal(msg)
	if err != nil {
		return err
	}
	return e.WriteMessage(append([]byte(xml.Header), b...))
}

// WriteMessage writes b as one framed message.
func (e *Encoder) WriteMessage(b []byte) error {
	err := e.ncEncoder.WriteMessage(b)
	if errors.Is(err, rfc6242.ErrDelimiterInPayload) || errors.Is(err, rfc6242.ErrEmptyChunkedMessage) {
		return errors.Wrap(ErrEncoding, err.Error())
	}
	return err
}

// EnableChunkedFraming switches the encoder to chunked framing for subsequent writes.
func (e *Encoder) EnableChunkedFraming() {
	e.ncEncoder.SetMode(rfc6242.Chunked)
}

// EnableChunkedFraming enables chunked framing on the specified decoder and encoder.
func EnableChunkedFraming(d *Decoder, e *Encoder) {
	if d != nil {
		d.EnableChunkedFraming()
	}
	if e != nil {
		e.EnableChunkedFraming()
	}
}

// Marshal encodes v as XML, reporting failures as ErrEncoding.
func Marshal(v interface{}) ([]byte, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(ErrEncoding, err.Error())
	}
	return b, nil
}

// Unmarshal decodes b into v, reporting failures as ErrMalformedDocument.
func Unmarshal(b []byte, v interface{}) error {
	if err := xml.Unmarshal(b, v); err != nil {
		return errors.Wrap(ErrMalformedDocument, err.Error())
	}
	return nil
}

package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"testing"

	"github.com/damianoneill/ncclient/netconf/common/codec/rfc6242"
	assert "github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("Failed")
}

type testStr struct {
	XMLName xml.Name `xml:"test"`
	Field   string   `xml:"field"`
}

func TestEncoderFailures(t *testing.T) {

	// Failure on write of message
	enc := NewEncoder(failingWriter{})
	err := enc.Encode(&testStr{})
	assert.Error(t, err, "Expect failure")
	assert.True(t, errors.Is(err, rfc6242.ErrTransportClosed))

	// Failure to marshal
	enc = NewEncoder(&bytes.Buffer{})
	err = enc.Encode(make(chan int))
	assert.True(t, errors.Is(err, ErrEncoding))

	// Delimiter inside an end-of-message framed payload
	err = enc.WriteMessage([]byte("<a>]]>]]></a>"))
	assert.True(t, errors.Is(err, ErrEncoding))
}

func TestEncodeDecode(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := NewEncoder(buf)
	assert.NoError(t, enc.Encode(&testStr{Field: "value"}))
	assert.Equal(t, xml.Header+`<test><field>value</field></test>]]>]]>`, buf.String())

	dec := NewDecoder(buf)
	var result testStr
	assert.NoError(t, dec.Decode(&result))
	assert.Equal(t, "value", result.Field)
}

func TestDecodeMalformed(t *testing.T) {
	dec := NewDecoder(bytes.NewBufferString(`<test><field>value</test>]]>]]>`))
	var result testStr
	err := dec.Decode(&result)
	assert.True(t, errors.Is(err, ErrMalformedDocument))

	_, err = dec.ReadMessage()
	assert.True(t, errors.Is(err, rfc6242.ErrTransportClosed))
}

func TestEnableChunkedFraming(t *testing.T) {

	buf := &bytes.Buffer{}
	enc := NewEncoder(buf)
	dec := NewDecoder(buf)

	assert.False(t, enc.ncEncoder.ChunkedFraming)

	EnableChunkedFraming(dec, enc)

	assert.True(t, enc.ncEncoder.ChunkedFraming)

	assert.NoError(t, enc.WriteMessage([]byte("<ok/>")))
	assert.Equal(t, "\n#5\n<ok/>\n##\n", buf.String())

	msg, err := dec.ReadMessage()
	assert.NoError(t, err)
	assert.Equal(t, "<ok/>", string(msg))

	// Chunked framing has no representation for an empty message.
	assert.True(t, errors.Is(enc.WriteMessage(nil), ErrEncoding))

	EnableChunkedFraming(nil, nil)
}

package rfc6242

import (
	"bytes"
	"errors"
	"testing"
)

func TestEOMEncoding(t *testing.T) {

	tests := []struct {
		name   string
		input  string
		expect string
		err    error
	}{
		{"SimpleMessage", "ABC", "ABC" + EOM, nil},
		{"EmptyMessage", "", EOM, nil},
		{"PartialDelimiter", "AB]]>]]C", "AB]]>]]C" + EOM, nil},
		{"DelimiterInPayload", "AB]]>]]>C", "", ErrDelimiterInPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			buf := bytes.NewBuffer([]byte{})
			e := NewEncoder(buf)

			err := e.WriteMessage([]byte(tt.input))
			if !errors.Is(err, tt.err) {
				t.Errorf("Encoder %s: error mismatch wanted %v got %v", tt.name, tt.err, err)
			}

			result := buf.String()
			if tt.expect != result {
				t.Errorf("Encoder %s: buffer mismatch wanted >%s< got >%s<", tt.name, tt.expect, result)
			}

			_ = e.Close()
		})
	}
}

func TestChunkedEncoding(t *testing.T) {
	tests := []struct {
		name    string
		chunksz uint32
		input   string
		expect  string
	}{
		{"SimpleMessage", 0, "ABC", "\n#3\n" + "ABC" + "\n##\n"},
		{"ChunkedMessage", 5, "ABCDEFGH", "\n#5\n" + "ABCDE" + "\n#3\n" + "FGH" + "\n##\n"},
		{"ExactMultiple", 2, "ABCD", "\n#2\n" + "AB" + "\n#2\n" + "CD" + "\n##\n"},
		{"DelimiterAllowed", 0, "]]>]]>", "\n#6\n" + "]]>]]>" + "\n##\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			buf := bytes.NewBuffer([]byte{})
			e := NewEncoder(buf, WithMaximumChunkSize(tt.chunksz))
			e.SetMode(Chunked)

			if err := e.WriteMessage([]byte(tt.input)); err != nil {
				t.Fatalf("Encoder %s: unexpected error %v", tt.name, err)
			}

			result := buf.String()
			if tt.expect != result {
				t.Errorf("Encoder %s: buffer mismatch wanted >%s< got >%s<", tt.name, tt.expect, result)
			}
		})
	}
}

func TestChunkedEncodingRejectsEmptyMessage(t *testing.T) {
	buf := bytes.NewBuffer([]byte{})
	e := NewEncoder(buf)
	e.SetMode(Chunked)

	if err := e.WriteMessage(nil); !errors.Is(err, ErrEmptyChunkedMessage) {
		t.Fatalf("expected empty chunked message error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected nothing written, got >%s<", buf.String())
	}
}

func TestEndOfMessageModeRestored(t *testing.T) {
	buf := bytes.NewBuffer([]byte{})
	e := NewEncoder(buf)
	e.SetMode(Chunked)
	e.SetMode(EndOfMessage)

	_ = e.WriteMessage([]byte("ABC"))
	if buf.String() != "ABC"+EOM {
		t.Errorf("expected end-of-message framing, got >%s<", buf.String())
	}
}

func TestEncoderWriteFailure(t *testing.T) {
	e := NewEncoder(&failingWriter{})
	err := e.WriteMessage([]byte("ABC"))
	if !errors.Is(err, ErrTransportClosed) {
		t.Errorf("expected transport closed, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte(`<rpc message-id="101" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><get-config/></rpc>`)

	for _, chunksz := range []uint32{0, 1, 7, 64} {
		buf := bytes.NewBuffer([]byte{})
		e := NewEncoder(buf, WithMaximumChunkSize(chunksz))
		e.SetMode(Chunked)
		_ = e.WriteMessage(payload)
		_ = e.WriteMessage(payload)

		d := NewDecoder(buf, WithFramer(decoderChunked))
		for i := 0; i < 2; i++ {
			msg, err := d.ReadMessage()
			if err != nil {
				t.Fatalf("chunk size %d: unexpected error %v", chunksz, err)
			}
			if !bytes.Equal(payload, msg) {
				t.Errorf("chunk size %d: wanted >%s< got >%s<", chunksz, payload, msg)
			}
		}
	}
}

type failingWriter struct{}

func (f *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestModeString(t *testing.T) {
	if EndOfMessage.String() != "end-of-message" || Chunked.String() != "chunked" {
		t.Fatalf("unexpected mode names %s, %s", EndOfMessage, Chunked)
	}
}

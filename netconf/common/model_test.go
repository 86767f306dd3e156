package common

import (
	"encoding/xml"
	"errors"
	"testing"

	"github.com/damianoneill/ncclient/netconf/common/codec"
	assert "github.com/stretchr/testify/require"
)

func TestRPCErrorString(t *testing.T) {

	err := &RPCError{
		Severity: "Severity",
		Tag:      "Tag",
		Message:  "Message",
	}

	assert.Equal(t, "netconf rpc [Severity] Tag 'Message'", err.Error())
}

func TestRPCErrorsString(t *testing.T) {
	err := &RPCErrors{Errors: []RPCError{
		{Severity: "error", Tag: "access-denied", Message: "denied"},
		{Severity: "error", Tag: "lock-denied", Message: "locked"},
	}}
	assert.Equal(t, "netconf rpc [error] access-denied 'denied'; netconf rpc [error] lock-denied 'locked'", err.Error())
	assert.Equal(t, []string{"access-denied", "lock-denied"}, err.Tags())
}

func TestPeerSupportsChunkedFraming(t *testing.T) {
	assert.False(t, PeerSupportsChunkedFraming([]string{NetconfNS, NetconfNotifyNS, CapBase10}))
	assert.True(t, PeerSupportsChunkedFraming([]string{NetconfNS, NetconfNotifyNS, CapBase11}))
}

func TestNegotiateFraming(t *testing.T) {
	tests := []struct {
		name    string
		local   []string
		peer    []string
		chunked bool
		fail    bool
	}{
		{"BothChunked", []string{"urn:a", CapBase11}, []string{CapBase11, "urn:c"}, true, false},
		{"PeerOnlyBase10", DefaultCapabilities, []string{CapBase10}, false, false},
		{"LocalOnlyBase10", NoChunkedCodecCapabilities, []string{CapBase10, CapBase11}, false, false},
		{"NoCommonBase", NoChunkedCodecCapabilities, []string{CapBase11}, false, true},
		{"PeerNoBase", DefaultCapabilities, []string{"urn:x"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunked, err := NegotiateFraming(tt.local, tt.peer)
			assert.Equal(t, tt.chunked, chunked)
			if tt.fail {
				assert.True(t, errors.Is(err, ErrHandshakeFailed))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHelloMarshal(t *testing.T) {
	b, err := xml.Marshal(&HelloMessage{Capabilities: DefaultCapabilities})
	assert.NoError(t, err)
	assert.Equal(t, `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><capabilities>`+
		`<capability>urn:ietf:params:netconf:base:1.0</capability>`+
		`<capability>urn:ietf:params:netconf:base:1.1</capability>`+
		`</capabilities></hello>`, string(b))
}

func TestParseHello(t *testing.T) {
	doc := parse(t, `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <capabilities>
    <capability>urn:ietf:params:netconf:base:1.1</capability>
    <capability>
      urn:ietf:params:netconf:capability:candidate:1.0
    </capability>
  </capabilities>
  <session-id>4</session-id>
</hello>`)

	hello, err := ParseHello(doc)
	assert.NoError(t, err)
	assert.Equal(t, []string{CapBase11, "urn:ietf:params:netconf:capability:candidate:1.0"}, hello.Capabilities)
	assert.Equal(t, uint64(4), hello.SessionID)
}

func TestParseHelloFailures(t *testing.T) {
	inputs := []string{
		`<hello/>`,
		`<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"/>`,
		`<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><capabilities/></hello>`,
		`<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><capabilities><capability>urn:a</capability></capabilities><session-id>x</session-id></hello>`,
		`<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"/>`,
	}
	for _, input := range inputs {
		_, err := ParseHello(parse(t, input))
		assert.True(t, errors.Is(err, ErrHandshakeFailed), input)
	}

	_, err := ParseHello(nil)
	assert.True(t, errors.Is(err, ErrHandshakeFailed))
}

func TestParseHelloWithoutSessionID(t *testing.T) {
	hello, err := ParseHello(parse(t, `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><capabilities><capability>urn:ietf:params:netconf:base:1.0</capability></capabilities></hello>`))
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), hello.SessionID)
}

func TestParseReplyData(t *testing.T) {
	raw := `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="7"><data><top xmlns="urn:top"><v>1</v></top></data></rpc-reply>`
	reply, err := ParseReply(parse(t, raw), []byte(raw))
	assert.NoError(t, err)

	assert.Equal(t, "7", reply.MessageID)
	assert.False(t, reply.Ok)
	assert.Empty(t, reply.Errors)
	assert.Equal(t, raw, reply.RawReply)
	assert.Equal(t, `<data xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><top xmlns="urn:top"><v>1</v></top></data>`, reply.Data)
	assert.NotNil(t, reply.Payload)
	assert.Equal(t, "data", reply.Payload.Root.Name.Local)
	assert.NoError(t, MapError(reply))
}

func TestParseReplyOk(t *testing.T) {
	reply, err := ParseReply(parse(t, `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="8"><ok/></rpc-reply>`), nil)
	assert.NoError(t, err)
	assert.True(t, reply.Ok)
	assert.Nil(t, reply.Payload)
	assert.Empty(t, reply.Data)
}

func TestParseReplyErrors(t *testing.T) {
	raw := `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="9">
  <rpc-error>
    <error-type>protocol</error-type>
    <error-tag>access-denied</error-tag>
    <error-severity>error</error-severity>
    <error-path>/interfaces</error-path>
    <error-message xml:lang="en">access denied</error-message>
    <error-info><bad-element>interfaces</bad-element></error-info>
  </rpc-error>
</rpc-reply>`
	reply, err := ParseReply(parse(t, raw), []byte(raw))
	assert.NoError(t, err)
	assert.Len(t, reply.Errors, 1)
	assert.Equal(t, RPCError{
		Type:     "protocol",
		Tag:      "access-denied",
		Severity: "error",
		Path:     "/interfaces",
		Message:  "access denied",
		Info:     `<bad-element xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">interfaces</bad-element>`,
	}, reply.Errors[0])
	assert.Nil(t, reply.Payload)

	err = MapError(reply)
	var rpcErrs *RPCErrors
	assert.True(t, errors.As(err, &rpcErrs))
	assert.Equal(t, "9", rpcErrs.MessageID)
	assert.Equal(t, []string{"access-denied"}, rpcErrs.Tags())
}

func TestMapErrorWarningsOnly(t *testing.T) {
	reply := &RPCReply{Errors: []RPCError{{Severity: SeverityWarning, Tag: "partial-operation"}}}
	assert.NoError(t, MapError(reply))

	reply.Errors = append(reply.Errors, RPCError{Severity: SeverityError, Tag: "operation-failed"})
	var rpcErrs *RPCErrors
	assert.True(t, errors.As(MapError(reply), &rpcErrs))
	assert.Len(t, rpcErrs.Errors, 2)

	assert.True(t, errors.Is(MapError(nil), ErrTransportClosed))
}

func TestParseReplyWrongRoot(t *testing.T) {
	_, err := ParseReply(parse(t, `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"/>`), nil)
	assert.True(t, errors.Is(err, ErrMalformedDocument))
}

func TestRequestMarshal(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		expect string
	}{
		{"GetConfig", CreateGetConfigRequest(RunningCfg, nil),
			`<get-config><source><running/></source></get-config>`},
		{"GetConfigFiltered", CreateGetConfigRequest(RunningCfg, `<interfaces xmlns="urn:if"/>`),
			`<get-config><source><running/></source><filter type="subtree"><interfaces xmlns="urn:if"/></filter></get-config>`},
		{"Get", CreateGetRequest(`<system/>`),
			`<get><filter type="subtree"><system/></filter></get>`},
		{"CloseSession", CreateCloseSessionRequest(), `<close-session></close-session>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := xml.Marshal(tt.req)
			assert.NoError(t, err)
			assert.Equal(t, tt.expect, string(b))
		})
	}
}

func TestRPCMessageMarshal(t *testing.T) {
	msg := &RPCMessage{MessageID: "1", Union: GetUnion(CreateCloseSessionRequest())}
	b, err := xml.Marshal(msg)
	assert.NoError(t, err)
	assert.Equal(t, `<rpc xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="1"><close-session></close-session></rpc>`, string(b))

	msg = &RPCMessage{MessageID: "2", Union: GetUnion(`<get/>`)}
	b, err = xml.Marshal(msg)
	assert.NoError(t, err)
	assert.Equal(t, `<rpc xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="2"><get/></rpc>`, string(b))
}

func TestIsSessionFatal(t *testing.T) {
	assert.True(t, IsSessionFatal(ErrTransportClosed))
	assert.True(t, IsSessionFatal(ErrFraming))
	assert.True(t, IsSessionFatal(ErrHandshakeFailed))
	assert.False(t, IsSessionFatal(ErrTimeout))
	assert.False(t, IsSessionFatal(ErrMalformedDocument))
	assert.False(t, IsSessionFatal(&RPCErrors{}))
}

func parse(t *testing.T, s string) *codec.Document {
	doc, err := codec.Parse([]byte(s))
	assert.NoError(t, err)
	return doc
}

func TestReplyMessageID(t *testing.T) {
	tests := []struct {
		raw    string
		expect string
	}{
		{`<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="12"><data><a></b></data></rpc-reply>`, "12"},
		{`<?xml version="1.0"?><nc:rpc-reply xmlns:nc="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="3"><broken`, "3"},
		{`<rpc-reply><ok/></rpc-reply>`, ""},
		{`<hello message-id="1"/>`, ""},
		{`not xml at all`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, ReplyMessageID([]byte(tt.raw)), tt.raw)
	}
}

package testserver

import (
	"encoding/xml"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/common/codec"
	assert "github.com/stretchr/testify/require"
)

// SessionHandler represents the server side of an active netconf session.
type SessionHandler struct {
	// server references the Netconf server that launched the session.
	server *TestNCServer

	// t is the testing context used for handling unexpected errors.
	t assert.TestingT

	// ch is the underlying transport connection.
	ch     io.ReadWriteCloser
	chLock sync.Mutex

	// The codecs used to handle client i/o
	enc *codec.Encoder
	dec *codec.Decoder

	// Serialises access to encoder (avoiding contention between sending notifications and request responses).
	encLock sync.Mutex

	// The capabilities advertised to the client.
	capabilities []string
	// A verbatim hello message to send in place of the generated one.
	rawHello string
	// The session id to be reported to the client.
	sid uint64

	// helloSent is closed once the server hello has been written.
	helloSent chan struct{}

	// clientHello is the HelloMessage sent by the connecting client.
	clientHello *common.HelloMessage

	// startwg will be signalled when the session is started (specifically after client
	// capabilities have been received).
	startwg   *sync.WaitGroup
	startOnce sync.Once

	reqLock  sync.Mutex
	reqCount int
	lastReq  *RPCRequestMessage
	held     []*RPCRequestMessage
}

// RPCRequestMessage and RPCRequest represent an RPC request from a client, where the element type of the
// request body is unknown.
type RPCRequestMessage struct {
	XMLName   xml.Name
	MessageID string     `xml:"message-id,attr"`
	Request   RPCRequest `xml:",any"`
	// Raw holds the request message as received.
	Raw []byte `xml:"-"`
}

// RPCRequest describes an RPC request.
type RPCRequest struct {
	XMLName xml.Name
	Body    string `xml:",innerxml"`
}

// RPCReplyMessage and ReplyData represent an rpc-reply message that will be sent to a client session, where the
// element type of the reply body (i.e. the content of the data element) is unknown.
type RPCReplyMessage struct {
	XMLName   xml.Name          `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc-reply"`
	MessageID string            `xml:"message-id,attr,omitempty"`
	Errors    []common.RPCError `xml:"rpc-error,omitempty"`
	Data      *ReplyData        `xml:"data"`
	Ok        *struct{}         `xml:"ok"`
}

// ReplyData holds the content of a reply data element.
type ReplyData struct {
	XMLName xml.Name `xml:"data"`
	Data    string   `xml:",innerxml"`
}

// NotifyMessage defines the contents of a notification message that will be sent to a client session, where the
// element type of the notification event is unknown.
type NotifyMessage struct {
	XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:netconf:notification:1.0 notification"`
	EventTime string   `xml:"eventTime"`
	Data      string   `xml:",innerxml"`
}

// RequestHandler is a function type that will be invoked by the session handler to handle an RPC
// request.
type RequestHandler func(h *SessionHandler, req *RPCRequestMessage)

// EchoRequestHandler responds to a request with a reply containing a data element holding
// the body of the request.
var EchoRequestHandler = func(h *SessionHandler, req *RPCRequestMessage) {
	reply := &RPCReplyMessage{Data: &ReplyData{Data: req.Request.Body}, MessageID: req.MessageID}
	h.Reply(reply)
}

// OkRequestHandler responds to a request with an ok reply.
var OkRequestHandler = func(h *SessionHandler, req *RPCRequestMessage) {
	h.Reply(&RPCReplyMessage{Ok: &struct{}{}, MessageID: req.MessageID})
}

// FailingRequestHandler replies to a request with an error.
var FailingRequestHandler = func(h *SessionHandler, req *RPCRequestMessage) {
	reply := &RPCReplyMessage{
		MessageID: req.MessageID,
		Errors: []common.RPCError{
			{Type: "application", Tag: "operation-failed", Severity: common.SeverityError, Message: "oops"}},
	}
	h.Reply(reply)
}

// AccessDeniedRequestHandler replies to a request with a single access-denied error.
var AccessDeniedRequestHandler = func(h *SessionHandler, req *RPCRequestMessage) {
	reply := &RPCReplyMessage{
		MessageID: req.MessageID,
		Errors: []common.RPCError{
			{Type: "protocol", Tag: "access-denied", Severity: common.SeverityError, Message: "access denied"}},
	}
	h.Reply(reply)
}

// WarningRequestHandler echoes the request body, accompanied by a warning.
var WarningRequestHandler = func(h *SessionHandler, req *RPCRequestMessage) {
	reply := &RPCReplyMessage{
		MessageID: req.MessageID,
		Errors: []common.RPCError{
			{Type: "application", Tag: "partial-operation", Severity: common.SeverityWarning, Message: "incomplete"}},
		Data: &ReplyData{Data: req.Request.Body},
	}
	h.Reply(reply)
}

// MalformedReplyHandler replies with a message that is not well-formed, but whose root
// tag carries the request message-id.
var MalformedReplyHandler = func(h *SessionHandler, req *RPCRequestMessage) {
	h.SendMessage(fmt.Sprintf(`<rpc-reply xmlns="%s" message-id="%s"><data><a></b></data></rpc-reply>`,
		common.NetconfNS, req.MessageID))
}

// CloseRequestHandler closes the transport channel on request receipt.
var CloseRequestHandler = func(h *SessionHandler, req *RPCRequestMessage) {
	h.Close()
}

// IgnoreRequestHandler does nothing on receipt of a request.
var IgnoreRequestHandler = func(h *SessionHandler, req *RPCRequestMessage) {}

// HoldRequestHandler keeps the request unanswered until ReplyHeld is called.
var HoldRequestHandler = func(h *SessionHandler, req *RPCRequestMessage) {
	h.reqLock.Lock()
	defer h.reqLock.Unlock()
	h.held = append(h.held, req)
}

// RawRequestHandler delivers a handler that writes raw to the transport without framing.
func RawRequestHandler(raw string) RequestHandler {
	return func(h *SessionHandler, req *RPCRequestMessage) {
		h.WriteRaw([]byte(raw))
	}
}

func newSessionHandler(server *TestNCServer, sid uint64) *SessionHandler {
	wg := &sync.WaitGroup{}
	wg.Add(1)
	return &SessionHandler{
		server:       server,
		t:            server.tctx,
		sid:          sid,
		helloSent:    make(chan struct{}),
		startwg:      wg,
		capabilities: common.DefaultCapabilities,
	}
}

// Handle establishes a Netconf server session on a newly-connected channel.
func (h *SessionHandler) Handle(ch io.ReadWriteCloser) {
	h.chLock.Lock()
	h.ch = ch
	h.dec = codec.NewDecoder(ch)
	h.enc = codec.NewEncoder(ch)
	h.chLock.Unlock()

	done := make(chan struct{})

	// Read before writing the hello, since an unbuffered transport blocks writes until
	// the peer reads.
	go h.handleIncomingMessages(done)

	var err error
	if h.rawHello != "" {
		err = h.writeMessage([]byte(h.rawHello))
	} else {
		err = h.encode(&common.HelloMessage{Capabilities: h.capabilities, SessionID: h.sid})
	}
	close(h.helloSent)
	if err != nil {
		h.Close()
	}

	<-done
	h.signalStart()
}

// ID delivers the session id reported to the client.
func (h *SessionHandler) ID() uint64 {
	return h.sid
}

// WaitStart blocks until the client hello has been received, or the session has ended.
func (h *SessionHandler) WaitStart() {
	h.startwg.Wait()
}

// ClientHello delivers the hello sent by the client, once received.
func (h *SessionHandler) ClientHello() *common.HelloMessage {
	h.reqLock.Lock()
	defer h.reqLock.Unlock()
	return h.clientHello
}

// ReqCount delivers the number of requests received by the session.
func (h *SessionHandler) ReqCount() int {
	h.reqLock.Lock()
	defer h.reqLock.Unlock()
	return h.reqCount
}

// LastReq delivers the most recent request received by the session.
func (h *SessionHandler) LastReq() *RPCRequestMessage {
	h.reqLock.Lock()
	defer h.reqLock.Unlock()
	return h.lastReq
}

// ReplyHeld applies rh to every request kept by HoldRequestHandler, most recent first.
func (h *SessionHandler) ReplyHeld(rh RequestHandler) {
	h.reqLock.Lock()
	held := h.held
	h.held = nil
	h.reqLock.Unlock()

	for i := len(held) - 1; i >= 0; i-- {
		rh(h, held[i])
	}
}

// Reply sends an rpc-reply to the client.
func (h *SessionHandler) Reply(reply *RPCReplyMessage) {
	err := h.encode(reply)
	if err != nil {
		h.t.Errorf("Failed to encode response: %v", err)
	}
}

// SendNotification sends a notification message with the supplied body to the client.
func (h *SessionHandler) SendNotification(body string) *SessionHandler {
	nm := &NotifyMessage{EventTime: time.Now().Format(time.RFC3339), Data: body}
	if err := h.encode(nm); err != nil {
		h.t.Errorf("Failed to send server notification: %v", err)
	}
	return h
}

// SendMessage sends msg to the client verbatim, in a single framed message.
func (h *SessionHandler) SendMessage(msg string) {
	if err := h.writeMessage([]byte(msg)); err != nil {
		h.t.Errorf("Failed to send message: %v", err)
	}
}

// WriteRaw writes b to the transport without framing.
func (h *SessionHandler) WriteRaw(b []byte) {
	h.encLock.Lock()
	defer h.encLock.Unlock()
	_, _ = h.ch.Write(b)
}

// Close initiates session tear-down by closing the underlying transport channel.
func (h *SessionHandler) Close() {
	h.chLock.Lock()
	defer h.chLock.Unlock()
	if h.ch != nil {
		_ = h.ch.Close()
	}
}

func (h *SessionHandler) signalStart() {
	h.startOnce.Do(h.startwg.Done)
}

func (h *SessionHandler) handleIncomingMessages(done chan<- struct{}) {
	defer close(done)

	for {
		b, err := h.dec.ReadMessage()
		if err != nil {
			return
		}
		doc, err := codec.Parse(b)
		if err != nil {
			h.t.Errorf("Client sent malformed message: %v", err)
			continue
		}
		switch doc.Root.Name.Local {
		case common.NameHello.Local:
			h.handleHello(b)
		case common.NameRPC.Local:
			h.handleRPC(b)
		}
	}
}

func (h *SessionHandler) handleHello(b []byte) {
	hello := &common.HelloMessage{}
	if err := codec.Unmarshal(b, hello); err != nil {
		h.t.Errorf("Failed to decode client hello: %v", err)
		return
	}

	// The server hello must go out with end-of-message framing.
	<-h.helloSent
	if common.PeerSupportsChunkedFraming(hello.Capabilities) && common.PeerSupportsChunkedFraming(h.capabilities) {
		h.dec.EnableChunkedFraming()
		h.encLock.Lock()
		h.enc.EnableChunkedFraming()
		h.encLock.Unlock()
	}

	h.reqLock.Lock()
	h.clientHello = hello
	h.reqLock.Unlock()
	h.signalStart()
}

func (h *SessionHandler) handleRPC(b []byte) {
	request := &RPCRequestMessage{Raw: b}
	if err := codec.Unmarshal(b, request); err != nil {
		h.t.Errorf("Failed to decode request: %v", err)
		return
	}

	h.reqLock.Lock()
	h.reqCount++
	h.lastReq = request
	h.reqLock.Unlock()

	reqh, queued := h.server.nextReqHandler()
	if !queued {
		// Unless told otherwise, close-session is answered with ok and anything else is echoed.
		reqh = EchoRequestHandler
		if request.Request.XMLName.Local == "close-session" {
			reqh = OkRequestHandler
		}
	}
	reqh(h, request)
}

func (h *SessionHandler) encode(m interface{}) error {
	b, err := codec.Marshal(m)
	if err != nil {
		return err
	}
	return h.writeMessage(append([]byte(xml.Header), b...))
}

func (h *SessionHandler) writeMessage(b []byte) error {
	h.encLock.Lock()
	defer h.encLock.Unlock()
	return h.enc.WriteMessage(b)
}

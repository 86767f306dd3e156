// Package testserver provides an in-process Netconf server for testing clients, reachable
// over SSH or over an in-memory connection.
package testserver

import (
	"fmt"
	"io"
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/damianoneill/ncclient/netconf/common"
	assert "github.com/stretchr/testify/require"
)

// Defines credentials used for test sessions.
const (
	TestUserName = "testUser"
	TestPassword = "testPassword"
)

// TestNCServer represents a Netconf Server that can be used for 'on-board' testing.
// It encapsulates a transport connection to an SSH server, and a netconf session handler that will
// be invoked to handle netconf messages.
type TestNCServer struct {
	*SSHServer

	mu              sync.Mutex
	sessionHandlers map[uint64]*SessionHandler
	reqHandlers     []RequestHandler
	caps            []string
	hello           string
	nextSid         uint64

	tctx assert.TestingT
}

// NewTestNetconfServer creates a new TestNCServer that will accept Netconf localhost connections on an ephemeral port (available
// via Port(), with credentials defined by TestUserName and TestPassword.
// tctx will be used for handling failures; if the supplied value is nil, a default test context will be used.
// The behaviour of the Netconf session handler can be configured using the WithCapabilities and
// WithRequestHandler methods.
func NewTestNetconfServer(tctx assert.TestingT) *TestNCServer {
	ncs := NewInMemoryNetconfServer(tctx)
	ncs.SSHServer = NewSSHServerHandler(ncs.tctx, TestUserName, TestPassword, ncs.newFactory())
	return ncs
}

// NewInMemoryNetconfServer creates a new TestNCServer that only accepts connections made with Connect.
func NewInMemoryNetconfServer(tctx assert.TestingT) *TestNCServer {
	ncs := &TestNCServer{
		sessionHandlers: make(map[uint64]*SessionHandler),
		caps:            common.DefaultCapabilities,
	}

	if tctx == nil {
		// Default test context to built-in implementation.
		tctx = ncs
	}
	ncs.tctx = tctx
	return ncs
}

func (ncs *TestNCServer) newFactory() HandlerFactory {
	return func() Handler {
		return ncs.newSessionHandler()
	}
}

func (ncs *TestNCServer) newSessionHandler() *SessionHandler {
	sid := atomic.AddUint64(&ncs.nextSid, 1)

	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	sess := newSessionHandler(ncs, sid)
	sess.capabilities = ncs.caps
	sess.rawHello = ncs.hello
	ncs.sessionHandlers[sid] = sess
	return sess
}

// Connect delivers the client end of a new in-memory connection to the server.
func (ncs *TestNCServer) Connect() io.ReadWriteCloser {
	client, server := net.Pipe()
	h := ncs.newSessionHandler()
	go func() {
		defer server.Close()
		h.Handle(server)
	}()
	return client
}

// LastHandler delivers the handler of the most recently started session.
func (ncs *TestNCServer) LastHandler() *SessionHandler {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	return ncs.sessionHandlers[atomic.LoadUint64(&ncs.nextSid)]
}

// WithRequestHandler adds a request handler to the queue used by the server's sessions.
// Each request is handled by the next queued handler; if the queue is empty, close-session
// is answered by OkRequestHandler and other requests by EchoRequestHandler.
func (ncs *TestNCServer) WithRequestHandler(rh RequestHandler) *TestNCServer {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	ncs.reqHandlers = append(ncs.reqHandlers, rh)
	return ncs
}

// WithCapabilities define the capabilities that the server will advertise when a netconf client connects.
func (ncs *TestNCServer) WithCapabilities(caps []string) *TestNCServer {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	ncs.caps = caps
	return ncs
}

// WithHello replaces the server hello with raw, which is sent verbatim in a single framed message.
func (ncs *TestNCServer) WithHello(raw string) *TestNCServer {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	ncs.hello = raw
	return ncs
}

// Close closes any active transport to the test server and prevents subsequent connections.
func (ncs *TestNCServer) Close() {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	for k, v := range ncs.sessionHandlers {
		if v != nil {
			v.Close()
			ncs.sessionHandlers[k] = nil
		}
	}
	if ncs.SSHServer != nil {
		ncs.SSHServer.Close()
	}
}

// Errorf provides testing.T compatibility if a test context is not provided when the test server is
// created.
func (ncs *TestNCServer) Errorf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// FailNow provides testing.T compatibility if a test context is not provided when the test server is
// created.
func (ncs *TestNCServer) FailNow() {
	runtime.Goexit()
}

// SessionHandler delivers the netconf session handler associated with the specified session id.
func (ncs *TestNCServer) SessionHandler(id uint64) *SessionHandler {
	ncs.mu.Lock()
	sh, ok := ncs.sessionHandlers[id]
	ncs.mu.Unlock()
	if !ok {
		ncs.tctx.Errorf("Failed to get handler for session %d", id)
		ncs.tctx.FailNow()
	}
	return sh
}

func (ncs *TestNCServer) nextReqHandler() (reqh RequestHandler, ok bool) {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	if len(ncs.reqHandlers) == 0 {
		return nil, false
	}
	ncs.reqHandlers, reqh = ncs.reqHandlers[1:], ncs.reqHandlers[0]
	return reqh, true
}

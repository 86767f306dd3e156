package client

import (
	"context"
	"encoding/xml"
	"fmt"
	"sync"
	"time"

	"github.com/damianoneill/ncclient/netconf/client/correlator"
	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/common/codec"
	"github.com/damianoneill/ncclient/netconf/common/codec/rfc6242"
	"github.com/damianoneill/ncclient/netconf/filter"
	"github.com/google/uuid"
	"github.com/imdario/mergo"
	"github.com/pkg/errors"
)

// The Message layer defines a set of base protocol operations
// invoked as RPC methods with XML-encoded parameters.

//go:generate mockery --name=Session --output=../mocks

// Session represents a Netconf Session
type Session interface {
	// Execute executes an RPC request on the server and returns the reply.
	// A reply carrying an rpc-error of severity error fails with *common.RPCErrors.
	Execute(req common.Request) (*common.RPCReply, error)

	// ExecuteContext is Execute, additionally bounded by ctx.
	ExecuteContext(ctx context.Context, req common.Request) (*common.RPCReply, error)

	// ExecuteAsync submits an RPC request for execution on the server and returns the pending
	// call, without waiting for the reply.
	ExecuteAsync(req common.Request) (*correlator.Call, error)

	// Await waits for the reply to a call returned by ExecuteAsync, for up to the configured
	// request timeout.
	Await(ctx context.Context, call *correlator.Call) (*common.RPCReply, error)

	// GetConfig retrieves the whole of the named datastore and delivers its data element.
	GetConfig(datastore string) (*codec.Document, error)

	// GetConfigFiltered retrieves the part of the named datastore selected by the named filter.
	// An unknown filter name fails with common.ErrUnknownFilterName before anything is sent.
	GetConfigFiltered(datastore, filterName string) (*codec.Document, error)

	// Close closes the session and releases any associated resources. Calling Close on a
	// session that is already closed or failed does nothing.
	Close() error

	// ID delivers the server-allocated id of the session.
	ID() uint64

	// Instance delivers the locally generated id of the session, used in trace events.
	Instance() string

	// ServerCapabilities delivers the server-supplied capabilities.
	ServerCapabilities() []string

	// ClientCapabilities delivers the capabilities advertised by the client.
	ClientCapabilities() []string

	// ChunkedFraming reports whether the session uses chunked framing.
	ChunkedFraming() bool

	// State delivers the current state of the session.
	State() State

	// Err delivers the cause of a session failure, or nil.
	Err() error

	// Done is closed when the session reaches the Closed or Failed state.
	Done() <-chan struct{}
}

// State identifies the stage of a session's lifecycle.
type State int

// Session states.
const (
	Disconnected State = iota
	HelloSent
	Established
	Closing
	Closed
	Failed
)

var stateNames = [...]string{"Disconnected", "HelloSent", "Established", "Closing", "Closed", "Failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Closed || s == Failed
}

type sesImpl struct {
	cfg     *Config
	t       Transport
	dec     *codec.Decoder
	enc     *codec.Encoder
	trace   *ClientTrace
	corr    *correlator.Correlator
	filters *filter.Registry

	instance  string
	target    string
	localCaps []string

	hellochan chan *common.HelloMessage
	hello     *common.HelloMessage
	chunked   bool

	// Serialises writes to the transport.
	reqLock sync.Mutex

	stateLock sync.Mutex
	state     State
	failure   error
	done      chan struct{}

	closeOnce     sync.Once
	closeErr      error
	transportOnce sync.Once
	readerDone    chan struct{}
}

// NewSession creates a new Netconf session, using the supplied Transport.
// The session is Established when NewSession returns without error.
func NewSession(ctx context.Context, t Transport, cfg *Config) (Session, error) {
	resolvedConfig := &Config{}
	if cfg != nil {
		*resolvedConfig = *cfg
	}
	_ = mergo.Merge(resolvedConfig, DefaultConfig)

	si := &sesImpl{
		cfg:        resolvedConfig,
		t:          t,
		dec:        codec.NewDecoder(t, rfc6242.WithMaximumMessageSize(resolvedConfig.MaxMessageSize)),
		enc:        codec.NewEncoder(t),
		trace:      ContextClientTrace(ctx),
		corr:       correlator.New(),
		filters:    resolvedConfig.Filters,
		instance:   uuid.New().String(),
		localCaps:  resolvedConfig.localCapabilities(),
		hellochan:  make(chan *common.HelloMessage, 1),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	if si.filters == nil {
		si.filters = filter.NewDefaultRegistry()
	}
	if tt, ok := t.(Targeted); ok {
		si.target = tt.Target()
	}

	// Send hello; framing is end-of-message until both hellos have been seen.
	if err := si.write(&common.HelloMessage{Capabilities: si.localCaps}); err != nil {
		si.trace.Error("Failed to send hello", si.target, err)
		si.fail(err)
		return nil, errors.Wrapf(common.ErrHandshakeFailed, "%v", err)
	}
	si.transition(HelloSent, Disconnected)

	// Launch goroutines to handle incoming messages from the server.
	go si.handleIncomingMessages()
	go si.watchFraming()

	if err := si.waitForServerHello(ctx); err != nil {
		si.trace.Error("Failed to receive hello", si.target, err)
		si.fail(err)
		return nil, err
	}
	return si, nil
}

func (si *sesImpl) Execute(req common.Request) (*common.RPCReply, error) {
	return si.ExecuteContext(context.Background(), req)
}

func (si *sesImpl) ExecuteContext(ctx context.Context, req common.Request) (reply *common.RPCReply, err error) {
	si.trace.ExecuteStart(req, false)
	defer func(begin time.Time) {
		si.trace.ExecuteDone(req, false, reply, err, time.Since(begin))
	}(time.Now())

	call, err := si.execute(req)
	if err != nil {
		return nil, err
	}
	return si.await(ctx, call)
}

func (si *sesImpl) ExecuteAsync(req common.Request) (call *correlator.Call, err error) {
	si.trace.ExecuteStart(req, true)
	defer func(begin time.Time) {
		si.trace.ExecuteDone(req, true, nil, err, time.Since(begin))
	}(time.Now())

	return si.execute(req)
}

func (si *sesImpl) Await(ctx context.Context, call *correlator.Call) (*common.RPCReply, error) {
	return si.await(ctx, call)
}

func (si *sesImpl) await(ctx context.Context, call *correlator.Call) (*common.RPCReply, error) {
	reply, err := si.corr.Await(ctx, call, si.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	if err = common.MapError(reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (si *sesImpl) GetConfig(datastore string) (*codec.Document, error) {
	reply, err := si.Execute(common.CreateGetConfigRequest(datastore, nil))
	if err != nil {
		return nil, err
	}
	return payload(reply)
}

func (si *sesImpl) GetConfigFiltered(datastore, filterName string) (*codec.Document, error) {
	// The registry is consulted on every call, so a filter registered since the last call applies.
	spec, err := si.filters.Build(filterName)
	if err != nil {
		return nil, err
	}
	reply, err := si.Execute(common.CreateGetConfigRequest(datastore, spec.XML()))
	if err != nil {
		return nil, err
	}
	return payload(reply)
}

func payload(reply *common.RPCReply) (*codec.Document, error) {
	if reply.Payload == nil {
		return nil, errors.Wrapf(common.ErrMalformedDocument, "message-id %s: reply carries no data", reply.MessageID)
	}
	return reply.Payload, nil
}

func (si *sesImpl) Close() error {
	si.closeOnce.Do(func() {
		si.closeErr = si.close()
	})
	return si.closeErr
}

func (si *sesImpl) close() error {
	if !si.transition(Closing, Established) {
		// Closed or failed already; a failed session has released its transport.
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), si.cfg.CloseTimeout)
	defer cancel()

	if call, err := si.submit(common.CreateCloseSessionRequest()); err != nil {
		si.trace.Error("Failed to send close-session", si.target, err)
	} else if reply, err := si.corr.Await(ctx, call, 0); err != nil {
		si.trace.Error("No close-session reply", si.target, err)
	} else if err = common.MapError(reply); err != nil {
		si.trace.Error("close-session rejected", si.target, err)
	}

	// Let in-flight requests settle before the transport goes.
	if err := si.corr.WaitIdle(ctx); err != nil {
		si.trace.Error("Requests outstanding at close", si.target, errors.Wrapf(common.ErrTimeout, "%d pending", si.corr.Pending()))
	}
	si.corr.FailAll(errors.Wrap(common.ErrTransportClosed, "session closed"))

	err := si.closeTransport()
	if err != nil {
		si.trace.Error("Session close failed", si.target, err)
	}
	si.transition(Closed, Closing)
	return err
}

func (si *sesImpl) ID() uint64 {
	if h := si.serverHello(); h != nil {
		return h.SessionID
	}
	return 0
}

func (si *sesImpl) Instance() string {
	return si.instance
}

func (si *sesImpl) ServerCapabilities() []string {
	if h := si.serverHello(); h != nil {
		return append([]string{}, h.Capabilities...)
	}
	return nil
}

func (si *sesImpl) ClientCapabilities() []string {
	return append([]string{}, si.localCaps...)
}

func (si *sesImpl) ChunkedFraming() bool {
	si.stateLock.Lock()
	defer si.stateLock.Unlock()
	return si.chunked
}

func (si *sesImpl) State() State {
	si.stateLock.Lock()
	defer si.stateLock.Unlock()
	return si.state
}

func (si *sesImpl) Err() error {
	si.stateLock.Lock()
	defer si.stateLock.Unlock()
	return si.failure
}

func (si *sesImpl) Done() <-chan struct{} {
	return si.done
}

func (si *sesImpl) serverHello() *common.HelloMessage {
	si.stateLock.Lock()
	defer si.stateLock.Unlock()
	return si.hello
}

// execute submits req, provided the session is established.
func (si *sesImpl) execute(req common.Request) (*correlator.Call, error) {
	if state := si.State(); state != Established {
		if err := si.Err(); err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(common.ErrTransportClosed, "session is %s", state)
	}
	return si.submit(req)
}

// submit registers req with the correlator and writes it to the transport.
func (si *sesImpl) submit(req common.Request) (*correlator.Call, error) {
	id := si.corr.NextMessageID()
	b, err := codec.Marshal(&common.RPCMessage{MessageID: id, Union: common.GetUnion(req)})
	if err != nil {
		return nil, err
	}

	// Register before writing, so an immediate reply always finds its request.
	call, err := si.corr.Register(id, req)
	if err != nil {
		return nil, err
	}

	if err = si.writeMessage(append([]byte(xml.Header), b...)); err != nil {
		si.corr.Cancel(call, err)
		if common.IsSessionFatal(err) {
			si.fail(err)
		}
		return nil, err
	}
	return call, nil
}

func (si *sesImpl) write(msg interface{}) error {
	b, err := codec.Marshal(msg)
	if err != nil {
		return err
	}
	return si.writeMessage(append([]byte(xml.Header), b...))
}

func (si *sesImpl) writeMessage(b []byte) error {
	si.reqLock.Lock()
	defer si.reqLock.Unlock()
	return si.enc.WriteMessage(b)
}

func (si *sesImpl) waitForServerHello(ctx context.Context) error {
	timer := time.NewTimer(si.cfg.setupTimeout())
	defer timer.Stop()

	select {
	case <-si.hellochan:
		return nil
	case <-si.done:
		return errors.Wrapf(common.ErrHandshakeFailed, "%v", si.Err())
	case <-timer.C:
		return errors.Wrapf(common.ErrHandshakeFailed, "no hello from server within %v", si.cfg.setupTimeout())
	case <-ctx.Done():
		return errors.Wrapf(common.ErrHandshakeFailed, "%v", ctx.Err())
	}
}

func (si *sesImpl) handleIncomingMessages() {
	defer close(si.readerDone)

	for {
		b, err := si.dec.ReadMessage()
		if err != nil {
			si.fail(err)
			return
		}
		if err = si.handleMessage(b); err != nil {
			si.fail(err)
			return
		}
	}
}

// handleMessage dispatches one received message. An error is fatal to the session.
func (si *sesImpl) handleMessage(b []byte) error {
	awaitingHello := si.State() == HelloSent

	doc, err := codec.Parse(b)
	if err != nil {
		if awaitingHello {
			return errors.Wrapf(common.ErrHandshakeFailed, "%v", err)
		}
		// The request fails, but the framing is intact so the session survives.
		if id := common.ReplyMessageID(b); id != "" {
			si.deliver(id, nil, err)
		} else {
			si.trace.Error("Discarded malformed message", si.target, err)
		}
		return nil
	}

	switch {
	case awaitingHello:
		return si.handleHello(doc)
	case doc.Root.Name == common.NameRPCReply:
		si.handleRPCReply(doc, b)
	case doc.Root.Name == common.NameNotification:
		si.trace.UnmatchedReply(si.instance, si.target, "")
	default:
		si.trace.Error("Discarded unexpected message", si.target,
			errors.Errorf("unexpected <%s> in namespace %q", doc.Root.Name.Local, doc.Root.Name.Space))
	}
	return nil
}

func (si *sesImpl) handleHello(doc *codec.Document) error {
	hello, err := common.ParseHello(doc)
	if err != nil {
		return err
	}
	chunked, err := common.NegotiateFraming(si.localCaps, hello.Capabilities)
	if err != nil {
		return err
	}

	if chunked {
		// The next message read uses chunked framing; writes switch under the write lock.
		si.dec.EnableChunkedFraming()
		si.reqLock.Lock()
		si.enc.EnableChunkedFraming()
		si.reqLock.Unlock()
	}

	si.stateLock.Lock()
	si.hello, si.chunked = hello, chunked
	si.stateLock.Unlock()

	if !si.transition(Established, HelloSent) {
		return errors.Wrap(common.ErrHandshakeFailed, "hello arrived after session setup was abandoned")
	}
	si.trace.HelloDone(hello)
	si.hellochan <- hello
	return nil
}

func (si *sesImpl) handleRPCReply(doc *codec.Document, raw []byte) {
	id, _ := doc.Root.AttrValue("", "message-id")
	if id == "" {
		si.trace.UnmatchedReply(si.instance, si.target, "")
		return
	}
	reply, err := common.ParseReply(doc, raw)
	si.deliver(id, reply, err)
}

func (si *sesImpl) deliver(id string, reply *common.RPCReply, err error) {
	if derr := si.corr.Deliver(id, reply, err); derr != nil {
		if errors.Is(derr, correlator.ErrUnmatchedReply) {
			si.trace.UnmatchedReply(si.instance, si.target, id)
		} else {
			si.trace.Error("Reply delivery failed", si.target, derr)
		}
	}
}

// watchFraming fails the session if a message remains incomplete for longer than FrameTimeout.
func (si *sesImpl) watchFraming() {
	interval := si.cfg.FrameTimeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-si.readerDone:
			return
		case now := <-ticker.C:
			since := si.dec.PartialSince()
			if !since.IsZero() && now.Sub(since) > si.cfg.FrameTimeout {
				si.fail(errors.Wrapf(common.ErrFraming, "message incomplete after %v", si.cfg.FrameTimeout))
				return
			}
		}
	}
}

// fail handles an error that is fatal to the session: every pending request is resolved
// with the cause and the transport is closed before Done is signalled. A session that is
// closing is left to finish closing.
func (si *sesImpl) fail(err error) {
	cause := err
	if !common.IsSessionFatal(cause) {
		cause = errors.Wrap(common.ErrTransportClosed, err.Error())
	}

	si.stateLock.Lock()
	from := si.state
	if from.Terminal() {
		si.stateLock.Unlock()
		return
	}
	if from != Closing {
		si.state = Failed
		si.failure = cause
	}
	si.stateLock.Unlock()

	if from == Closing {
		si.corr.FailAll(cause)
		return
	}

	si.trace.StateChange(si.instance, si.target, from, Failed)
	si.trace.Error("Session failed", si.target, cause)
	si.corr.FailAll(cause)
	_ = si.closeTransport()
	close(si.done)
}

// transition moves the session to state to, provided it is currently in state from.
func (si *sesImpl) transition(to, from State) bool {
	si.stateLock.Lock()
	if si.state != from {
		si.stateLock.Unlock()
		return false
	}
	si.state = to
	if to.Terminal() {
		close(si.done)
	}
	si.stateLock.Unlock()

	si.trace.StateChange(si.instance, si.target, from, to)
	return true
}

func (si *sesImpl) closeTransport() (err error) {
	si.transportOnce.Do(func() {
		err = si.t.Close()
	})
	return
}

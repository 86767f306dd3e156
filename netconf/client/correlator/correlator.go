// Package correlator matches rpc replies to the requests that caused them.
//
// A request is registered under its message id before it is written to the transport,
// so a reply can never arrive ahead of its bookkeeping. Each registered Call is resolved
// exactly once: by its reply, by a timeout, or by a session failure.
package correlator

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/pkg/errors"
)

var (
	// ErrDuplicateID is returned when a message id is already pending.
	ErrDuplicateID = errors.New("netconf: duplicate message id")
	// ErrAlreadyResolved is returned on an attempt to resolve a call a second time.
	ErrAlreadyResolved = errors.New("netconf: request already resolved")
	// ErrUnmatchedReply is returned when a reply does not match any pending request.
	ErrUnmatchedReply = errors.New("netconf: unmatched reply")
)

// Call is the handle of a pending request.
type Call struct {
	// ID is the message id of the request.
	ID string
	// Request is the body of the request.
	Request common.Request
	// Started is the time the request was registered.
	Started time.Time

	done     chan struct{}
	resolved int32
	reply    *common.RPCReply
	err      error
}

// Done is closed once the call has been resolved.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result delivers the outcome of a resolved call. It must only be called after Done is closed.
func (c *Call) Result() (*common.RPCReply, error) {
	return c.reply, c.err
}

func (c *Call) resolve(reply *common.RPCReply, err error) error {
	if !atomic.CompareAndSwapInt32(&c.resolved, 0, 1) {
		return errors.Wrapf(ErrAlreadyResolved, "message-id %s", c.ID)
	}
	c.reply, c.err = reply, err
	close(c.done)
	return nil
}

// Correlator tracks the outstanding requests of one session.
type Correlator struct {
	lastID uint64

	mu      sync.Mutex
	pending map[string]*Call
	failure error
	idle    chan struct{}
}

// New delivers an empty correlator.
func New() *Correlator {
	idle := make(chan struct{})
	close(idle)
	return &Correlator{pending: make(map[string]*Call), idle: idle}
}

// NextMessageID delivers a message id that has never been returned before by this correlator.
func (c *Correlator) NextMessageID() string {
	return strconv.FormatUint(atomic.AddUint64(&c.lastID, 1), 10)
}

// Register records a pending request under id.
// It fails with ErrDuplicateID if id is pending, or with the failure passed to FailAll once
// the correlator has failed.
func (c *Correlator) Register(id string, req common.Request) (*Call, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failure != nil {
		return nil, c.failure
	}
	if _, exists := c.pending[id]; exists {
		return nil, errors.Wrapf(ErrDuplicateID, "message-id %s", id)
	}

	call := &Call{ID: id, Request: req, Started: time.Now(), done: make(chan struct{})}
	if len(c.pending) == 0 {
		c.idle = make(chan struct{})
	}
	c.pending[id] = call
	return call, nil
}

// Deliver resolves the request pending under id with reply, or with err if the reply could
// not be decoded. It returns ErrUnmatchedReply if no request is pending under id, in which
// case the reply is discarded.
func (c *Correlator) Deliver(id string, reply *common.RPCReply, err error) error {
	call := c.remove(id, nil)
	if call == nil {
		return errors.Wrapf(ErrUnmatchedReply, "message-id %q", id)
	}
	return call.resolve(reply, err)
}

// Cancel removes call from the pending set, if present, and resolves it with err.
func (c *Correlator) Cancel(call *Call, err error) {
	c.remove(call.ID, call)
	_ = call.resolve(nil, err)
}

// Await blocks until call is resolved, timeout elapses, or ctx is done. Expiry and
// cancellation both fail with ErrTimeout and remove the call, so a late reply is reported
// as unmatched. A timeout of zero or less waits
// on ctx alone.
func (c *Correlator) Await(ctx context.Context, call *Call, timeout time.Duration) (*common.RPCReply, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var err error
	select {
	case <-call.done:
		return call.Result()
	case <-expired:
		err = errors.Wrapf(common.ErrTimeout, "message-id %s: no reply within %v", call.ID, timeout)
	case <-ctx.Done():
		// A cancelled wait is reported like an expired one; the request is abandoned either way.
		err = errors.Wrapf(common.ErrTimeout, "message-id %s: %v", call.ID, ctx.Err())
	}

	c.remove(call.ID, call)
	if call.resolve(nil, err) != nil {
		// Resolved concurrently; the earlier outcome stands once it is published.
		<-call.done
		return call.Result()
	}
	return nil, err
}

// FailAll resolves every pending request with err and refuses further registrations.
// It returns the number of requests failed.
func (c *Correlator) FailAll(err error) int {
	c.mu.Lock()
	if c.failure == nil {
		c.failure = err
	}
	calls := make([]*Call, 0, len(c.pending))
	for id, call := range c.pending {
		calls = append(calls, call)
		delete(c.pending, id)
	}
	if len(calls) > 0 {
		close(c.idle)
	}
	c.mu.Unlock()

	for _, call := range calls {
		_ = call.resolve(nil, err)
	}
	return len(calls)
}

// Pending delivers the number of unresolved requests.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// WaitIdle blocks until no requests are pending or ctx is done.
func (c *Correlator) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// remove deletes the entry for id, provided it is call (or call is nil), and returns it.
func (c *Correlator) remove(id string, call *Call) *Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	found, ok := c.pending[id]
	if !ok || (call != nil && found != call) {
		return nil
	}
	delete(c.pending, id)
	if len(c.pending) == 0 {
		close(c.idle)
	}
	return found
}

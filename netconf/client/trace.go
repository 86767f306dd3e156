package client

import (
	"context"
	"time"

	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/imdario/mergo"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// unique type to prevent assignment.
type clientEventContextKey struct{}

// ContextClientTrace returns the Trace associated with the
// provided context. If none, it returns NoOpLoggingHooks.
// Undefined hooks of a supplied trace are set to their no-op equivalents.
func ContextClientTrace(ctx context.Context) *ClientTrace {
	trace, _ := ctx.Value(clientEventContextKey{}).(*ClientTrace)
	if trace == nil {
		trace = NoOpLoggingHooks
	} else {
		_ = mergo.Merge(trace, NoOpLoggingHooks)
	}
	return trace
}

// WithClientTrace returns a new context based on the provided parent
// ctx. Netconf client requests made with the returned context will use
// the provided trace hooks
func WithClientTrace(ctx context.Context, trace *ClientTrace) context.Context {
	ctx = context.WithValue(ctx, clientEventContextKey{}, trace)
	return ctx
}

// ClientTrace defines a structure for handling trace events
//
//nolint:golint
type ClientTrace struct {
	// ConnectStart is called when starting to create a netconf connection to a remote server.
	ConnectStart func(target string)

	// ConnectDone is called when the transport connection attempt completes, with err indicating
	// whether it was successful.
	ConnectDone func(target string, err error, d time.Duration)

	// DialStart is called when starting to dial a remote server.
	DialStart func(clientConfig *ssh.ClientConfig, target string)

	// DialDone is called when dial completes.
	DialDone func(clientConfig *ssh.ClientConfig, target string, err error, d time.Duration)

	// HelloDone is called when the hello message has been received from the server.
	HelloDone func(msg *common.HelloMessage)

	// StateChange is called when the session identified by instance moves between states.
	StateChange func(instance, target string, from, to State)

	// ConnectionClosed is called after a transport connection has been closed, with
	// err indicating any error condition.
	ConnectionClosed func(target string, err error)

	// ReadStart is called before a read from the underlying transport.
	ReadStart func(buf []byte)

	// ReadDone is called after a read from the underlying transport.
	ReadDone func(buf []byte, c int, err error, d time.Duration)

	// WriteStart is called before a write to the underlying transport.
	WriteStart func(buf []byte)

	// WriteDone is called after a write to the underlying transport.
	WriteDone func(buf []byte, c int, err error, d time.Duration)

	// Error is called after an error condition has been detected.
	Error func(context, target string, err error)

	// UnmatchedReply is called when a message arrives that matches no pending request.
	// messageID is empty for notifications and replies without an id.
	UnmatchedReply func(instance, target, messageID string)

	// ExecuteStart is called before the execution of an rpc request.
	ExecuteStart func(req common.Request, async bool)

	// ExecuteDone is called after the execution of an rpc request.
	ExecuteDone func(req common.Request, async bool, res *common.RPCReply, err error, d time.Duration)
}

// DefaultLoggingHooks provides a default logging hook to report errors and protocol anomalies.
var DefaultLoggingHooks = &ClientTrace{
	Error: func(context, target string, err error) {
		log.Error().Str("context", context).Str("target", target).Err(err).Msg("NETCONF-Error")
	},
	UnmatchedReply: func(instance, target, messageID string) {
		log.Warn().Str("session", instance).Str("target", target).Str("message-id", messageID).Msg("NETCONF-UnmatchedReply")
	},
}

// MetricLoggingHooks provides a set of hooks that will log network metrics.
var MetricLoggingHooks = &ClientTrace{
	ConnectDone: func(target string, err error, d time.Duration) {
		log.Info().Str("target", target).AnErr("err", err).Dur("took", d).Msg("NETCONF-ConnectDone")
	},
	DialDone: func(clientConfig *ssh.ClientConfig, target string, err error, d time.Duration) {
		log.Info().Str("target", target).Str("user", clientConfig.User).AnErr("err", err).Dur("took", d).Msg("NETCONF-DialDone")
	},
	ReadDone: func(p []byte, c int, err error, d time.Duration) {
		log.Info().Int("len", c).AnErr("err", err).Dur("took", d).Msg("NETCONF-ReadDone")
	},
	WriteDone: func(p []byte, c int, err error, d time.Duration) {
		log.Info().Int("len", c).AnErr("err", err).Dur("took", d).Msg("NETCONF-WriteDone")
	},

	Error:          DefaultLoggingHooks.Error,
	UnmatchedReply: DefaultLoggingHooks.UnmatchedReply,

	ExecuteDone: func(req common.Request, async bool, res *common.RPCReply, err error, d time.Duration) {
		log.Info().Bool("async", async).AnErr("err", err).Dur("took", d).Msg("NETCONF-ExecuteDone")
	},
}

// DiagnosticLoggingHooks provides a set of default diagnostic hooks
var DiagnosticLoggingHooks = &ClientTrace{
	ConnectStart: func(target string) {
		log.Debug().Str("target", target).Msg("NETCONF-ConnectStart")
	},
	ConnectDone: MetricLoggingHooks.ConnectDone,
	DialStart: func(clientConfig *ssh.ClientConfig, target string) {
		log.Debug().Str("target", target).Str("user", clientConfig.User).Msg("NETCONF-DialStart")
	},
	DialDone: MetricLoggingHooks.DialDone,
	HelloDone: func(msg *common.HelloMessage) {
		log.Debug().Uint64("session-id", msg.SessionID).Strs("capabilities", msg.Capabilities).Msg("NETCONF-HelloDone")
	},
	StateChange: func(instance, target string, from, to State) {
		log.Debug().Str("session", instance).Str("target", target).Stringer("from", from).Stringer("to", to).Msg("NETCONF-StateChange")
	},
	ConnectionClosed: func(target string, err error) {
		log.Debug().Str("target", target).AnErr("err", err).Msg("NETCONF-ConnectionClosed")
	},
	ReadStart: func(p []byte) {
		log.Debug().Int("capacity", len(p)).Msg("NETCONF-ReadStart")
	},
	ReadDone: MetricLoggingHooks.ReadDone,
	WriteStart: func(p []byte) {
		log.Debug().Int("len", len(p)).Msg("NETCONF-WriteStart")
	},
	WriteDone: MetricLoggingHooks.WriteDone,

	Error:          DefaultLoggingHooks.Error,
	UnmatchedReply: DefaultLoggingHooks.UnmatchedReply,

	ExecuteStart: func(req common.Request, async bool) {
		log.Debug().Bool("async", async).Interface("req", req).Msg("NETCONF-ExecuteStart")
	},
	ExecuteDone: func(req common.Request, async bool, res *common.RPCReply, err error, d time.Duration) {
		log.Debug().Bool("async", async).Interface("req", req).AnErr("err", err).Dur("took", d).Msg("NETCONF-ExecuteDone")
	},
}

// NoOpLoggingHooks provides set of hooks that do nothing.
var NoOpLoggingHooks = &ClientTrace{
	ConnectStart:     func(target string) {},
	ConnectDone:      func(target string, err error, d time.Duration) {},
	DialStart:        func(clientConfig *ssh.ClientConfig, target string) {},
	DialDone:         func(clientConfig *ssh.ClientConfig, target string, err error, d time.Duration) {},
	HelloDone:        func(msg *common.HelloMessage) {},
	StateChange:      func(instance, target string, from, to State) {},
	ConnectionClosed: func(target string, err error) {},
	ReadStart:        func(p []byte) {},
	ReadDone:         func(p []byte, c int, err error, d time.Duration) {},

	WriteStart: func(p []byte) {},
	WriteDone:  func(p []byte, c int, err error, d time.Duration) {},

	Error:          func(context, target string, err error) {},
	UnmatchedReply: func(instance, target, messageID string) {},
	ExecuteStart:   func(req common.Request, async bool) {},
	ExecuteDone:    func(req common.Request, async bool, res *common.RPCReply, err error, d time.Duration) {},
}

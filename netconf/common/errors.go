package common

import (
	"github.com/damianoneill/ncclient/netconf/common/codec"
	"github.com/damianoneill/ncclient/netconf/common/codec/rfc6242"
	"github.com/damianoneill/ncclient/netconf/filter"
	"github.com/pkg/errors"
)

// Error kinds reported by the client. Use errors.Is to classify an error, and errors.As
// with *RPCErrors to access errors reported by the peer.
var (
	// ErrTransportClosed: the stream ended or failed. Fatal to the session.
	ErrTransportClosed = rfc6242.ErrTransportClosed
	// ErrFraming: the peer violated the negotiated framing. Fatal to the session.
	ErrFraming = rfc6242.ErrFraming
	// ErrMalformedDocument: a message could not be parsed. Only the affected request fails.
	ErrMalformedDocument = codec.ErrMalformedDocument
	// ErrEncoding: a request could not be serialized. Nothing is sent.
	ErrEncoding = codec.ErrEncoding
	// ErrHandshakeFailed: the hello exchange failed. The session never becomes established.
	ErrHandshakeFailed = errors.New("netconf: handshake failed")
	// ErrTimeout: no reply arrived in time. Only the affected request fails.
	ErrTimeout = errors.New("netconf: request timed out")
	// ErrUnknownFilterName: the named filter is not registered. Nothing is sent.
	ErrUnknownFilterName = filter.ErrUnknownFilterName
	// ErrInvalidFilterDefinition: a filter fragment is not well-formed.
	ErrInvalidFilterDefinition = filter.ErrInvalidFilterDefinition
)

// IsSessionFatal reports whether err leaves the session unusable.
func IsSessionFatal(err error) bool {
	return errors.Is(err, ErrTransportClosed) || errors.Is(err, ErrFraming) || errors.Is(err, ErrHandshakeFailed)
}

func handshakeError(msg string) error {
	return errors.Wrap(ErrHandshakeFailed, msg)
}

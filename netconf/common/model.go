package common

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/damianoneill/ncclient/netconf/common/codec"
)

// Defines structs representing netconf messages.

// Request represents the body of a Netconf RPC request: either an xml string, or a
// struct with xml tags.
type Request interface{}

// HelloMessage defines the message sent/received during session negotiation.
type HelloMessage struct {
	XMLName      xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    uint64   `xml:"session-id,omitempty"`
}

// RPCMessage defines an rpc request message
type RPCMessage struct {
	XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc"`
	MessageID string   `xml:"message-id,attr"`
	*Union
}

// RPCReply defines an rpc reply message.
type RPCReply struct {
	MessageID string
	// Errors holds every rpc-error reported by the peer, including warnings.
	Errors []RPCError
	// Ok is set if the reply carried an ok element.
	Ok bool
	// Data holds the canonical xml of the reply content, e.g. the data element.
	Data string
	// Payload holds the data element of the reply as a document, if present.
	Payload *codec.Document
	// RawReply holds the reply message as received.
	RawReply string
}

// RPCError defines an error reply to a RPC request
type RPCError struct {
	Type     string `xml:"error-type"`
	Tag      string `xml:"error-tag"`
	Severity string `xml:"error-severity"`
	AppTag   string `xml:"error-app-tag,omitempty"`
	Path     string `xml:"error-path,omitempty"`
	Message  string `xml:"error-message,omitempty"`
	Info     string `xml:"error-info,omitempty"`
}

// Error generates a string representation of the RPC error
func (re *RPCError) Error() string {
	return fmt.Sprintf("netconf rpc [%s] %s '%s'", re.Severity, re.Tag, re.Message)
}

// RPCErrors is the error returned when a peer rejects a request. It carries every rpc-error
// of the reply, verbatim.
type RPCErrors struct {
	MessageID string
	Errors    []RPCError
}

func (re *RPCErrors) Error() string {
	msgs := make([]string, 0, len(re.Errors))
	for i := range re.Errors {
		msgs = append(msgs, re.Errors[i].Error())
	}
	return strings.Join(msgs, "; ")
}

// Tags delivers the error-tag of each error, in reply order.
func (re *RPCErrors) Tags() []string {
	tags := make([]string, 0, len(re.Errors))
	for _, e := range re.Errors {
		tags = append(tags, e.Tag)
	}
	return tags
}

// Union holds a request body that is either literal xml or a value to be marshalled.
type Union struct {
	ValueStr interface{}
	ValueXML string `xml:",innerxml"`
}

// GetUnion wraps a request body in a Union.
func GetUnion(s interface{}) *Union {
	switch request := s.(type) {
	case string:
		return &Union{ValueXML: request}
	default:
		return &Union{ValueStr: request}
	}
}

// DefaultCapabilities sets the default capabilities of the client library
var DefaultCapabilities = []string{
	CapBase10,
	CapBase11,
}

// NoChunkedCodecCapabilities omits the chunked codec capability.
var NoChunkedCodecCapabilities = []string{
	CapBase10,
}

// Define xml names for different netconf messages.
var (
	NameHello        = xml.Name{Space: NetconfNS, Local: "hello"}
	NameRPC          = xml.Name{Space: NetconfNS, Local: "rpc"}
	NameRPCReply     = xml.Name{Space: NetconfNS, Local: "rpc-reply"}
	NameNotification = xml.Name{Space: NetconfNotifyNS, Local: "notification"}
)

// Define netconf URNs.
const (
	NetconfNS       = "urn:ietf:params:xml:ns:netconf:base:1.0"
	NetconfNotifyNS = "urn:ietf:params:xml:ns:netconf:notification:1.0"
	CapBase10       = "urn:ietf:params:netconf:base:1.0"
	CapBase11       = "urn:ietf:params:netconf:base:1.1"
	CapXpath        = "urn:ietf:params:netconf:capability:xpath:1.0"
)

// Configuration datastores.
const (
	RunningCfg   = "running"
	CandidateCfg = "candidate"
	StartupCfg   = "startup"
)

// Error severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// PeerSupportsChunkedFraming returns true if capability list indicates support for chunked framing.
func PeerSupportsChunkedFraming(caps []string) bool {
	return hasCapability(caps, CapBase11)
}

// NegotiateFraming reports whether chunked framing applies to a session between peers advertising
// local and peer capabilities. It fails with ErrHandshakeFailed if the peers share no base protocol version.
func NegotiateFraming(local, peer []string) (chunked bool, err error) {
	chunked = PeerSupportsChunkedFraming(local) && PeerSupportsChunkedFraming(peer)
	if !chunked && !(hasCapability(local, CapBase10) && hasCapability(peer, CapBase10)) {
		return false, handshakeError("no common base protocol capability")
	}
	return chunked, nil
}

func hasCapability(caps []string, capability string) bool {
	for _, c := range caps {
		if c == capability {
			return true
		}
	}
	return false
}

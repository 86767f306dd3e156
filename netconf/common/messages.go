package common

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/damianoneill/ncclient/netconf/common/codec"
	"github.com/pkg/errors"
)

// ParseHello extracts a hello message from a parsed document.
// Anything other than a hello carrying at least one capability fails with ErrHandshakeFailed.
func ParseHello(doc *codec.Document) (*HelloMessage, error) {
	if doc == nil || doc.Root == nil || doc.Root.Name != NameHello {
		return nil, handshakeError("expected hello message")
	}

	hello := &HelloMessage{XMLName: NameHello}
	if caps := doc.Root.Child(NetconfNS, "capabilities"); caps != nil {
		for _, c := range caps.Elements() {
			if c.Name.Local != "capability" {
				continue
			}
			if uri := strings.TrimSpace(c.Text()); uri != "" {
				hello.Capabilities = append(hello.Capabilities, uri)
			}
		}
	}
	if len(hello.Capabilities) == 0 {
		return nil, handshakeError("hello carries no capabilities")
	}

	// The session id is only recorded for diagnostics; it may be absent.
	if sid := doc.Root.Child(NetconfNS, "session-id"); sid != nil {
		id, err := strconv.ParseUint(strings.TrimSpace(sid.Text()), 10, 64)
		if err != nil {
			return nil, handshakeError("invalid session-id " + strconv.Quote(sid.Text()))
		}
		hello.SessionID = id
	}
	return hello, nil
}

// ParseReply extracts an rpc-reply from a parsed document; raw is the message as received.
func ParseReply(doc *codec.Document, raw []byte) (*RPCReply, error) {
	if doc == nil || doc.Root == nil || doc.Root.Name != NameRPCReply {
		return nil, errors.Wrap(ErrMalformedDocument, "expected rpc-reply message")
	}

	reply := &RPCReply{RawReply: string(raw)}
	reply.MessageID, _ = doc.Root.AttrValue("", "message-id")

	var data strings.Builder
	for _, el := range doc.Root.Elements() {
		switch {
		case el.Name.Space == NetconfNS && el.Name.Local == "ok":
			reply.Ok = true
		case el.Name.Space == NetconfNS && el.Name.Local == "rpc-error":
			rerr, err := parseRPCError(el)
			if err != nil {
				return nil, err
			}
			reply.Errors = append(reply.Errors, rerr)
		default:
			b, err := codec.SerializeElement(el)
			if err != nil {
				return nil, errors.Wrap(ErrMalformedDocument, err.Error())
			}
			data.Write(b)
			if el.Name.Local == "data" && reply.Payload == nil {
				reply.Payload = &codec.Document{Root: el.Clone()}
			}
		}
	}
	reply.Data = data.String()
	return reply, nil
}

// ReplyMessageID recovers the message-id of an rpc-reply from its root start tag, which may
// still be readable when the rest of the message is not. It returns "" if there is none.
func ReplyMessageID(raw []byte) string {
	d := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := d.RawToken()
		if err != nil {
			return ""
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != NameRPCReply.Local {
			return ""
		}
		for _, a := range start.Attr {
			if a.Name.Space == "" && a.Name.Local == "message-id" {
				return a.Value
			}
		}
		return ""
	}
}

func parseRPCError(el *codec.Element) (RPCError, error) {
	text := func(local string) string {
		if c := el.Child(NetconfNS, local); c != nil {
			return strings.TrimSpace(c.Text())
		}
		return ""
	}
	rerr := RPCError{
		Type:     text("error-type"),
		Tag:      text("error-tag"),
		Severity: text("error-severity"),
		AppTag:   text("error-app-tag"),
		Path:     text("error-path"),
		Message:  text("error-message"),
	}
	if info := el.Child(NetconfNS, "error-info"); info != nil {
		var sb strings.Builder
		for _, c := range info.Elements() {
			b, err := codec.SerializeElement(c)
			if err != nil {
				return rerr, errors.Wrap(ErrMalformedDocument, err.Error())
			}
			sb.Write(b)
		}
		rerr.Info = sb.String()
	}
	return rerr, nil
}

// MapError maps an RPC reply to an error if it contains any rpc-error of severity error.
// Warnings alone do not fail a request.
func MapError(r *RPCReply) error {
	if r == nil {
		return errors.Wrap(ErrTransportClosed, "no reply")
	}
	for i := range r.Errors {
		if r.Errors[i].Severity != SeverityWarning {
			return &RPCErrors{MessageID: r.MessageID, Errors: r.Errors}
		}
	}
	return nil
}

// Request structs.

// Filter defines a get or get-config filter.
type Filter struct {
	XMLName xml.Name `xml:"filter"`
	Type    string   `xml:"type,attr"`
	Select  string   `xml:"select,attr,omitempty"`
	*Union
}

// ConfigType identifies a datastore.
type ConfigType struct {
	Type string `xml:",innerxml"`
	URL  string `xml:"url,omitempty"`
}

// GetConfigReq defines a get-config operation.
type GetConfigReq struct {
	XMLName xml.Name    `xml:"get-config"`
	Source  *ConfigType `xml:"source"`
	Filter  *Filter
}

// GetReq defines a get operation.
type GetReq struct {
	XMLName xml.Name `xml:"get"`
	Filter  *Filter
}

// CloseSessionReq defines a close-session operation.
type CloseSessionReq struct {
	XMLName xml.Name `xml:"close-session"`
}

// Datastore delivers the datastore element for the named datastore.
func Datastore(name string) *ConfigType {
	// xml Marshaller will not create self-closing tags (and some devices require it)...
	return &ConfigType{Type: "<" + name + "/>"}
}

// CreateGetConfigRequest builds a get-config request on source, with an optional subtree filter
// body holding either literal xml or a struct with xml tags.
func CreateGetConfigRequest(source string, subtree interface{}) *GetConfigReq {
	req := &GetConfigReq{Source: Datastore(source)}
	if subtree != nil {
		req.Filter = &Filter{Type: "subtree", Union: GetUnion(subtree)}
	}
	return req
}

// CreateGetRequest builds a get request with an optional subtree filter.
func CreateGetRequest(subtree interface{}) *GetReq {
	req := &GetReq{}
	if subtree != nil {
		req.Filter = &Filter{Type: "subtree", Union: GetUnion(subtree)}
	}
	return req
}

// CreateCloseSessionRequest builds a close-session request.
func CreateCloseSessionRequest() *CloseSessionReq {
	return &CloseSessionReq{}
}

package codec

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedDocument is reported when bytes cannot be parsed into a complete, well-formed document.
	ErrMalformedDocument = errors.New("netconf: malformed document")

	// ErrEncoding is reported when a document or message cannot be serialized.
	ErrEncoding = errors.New("netconf: encoding error")
)

// XMLNamespace is the namespace permanently bound to the xml prefix.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

// Node is one of *Element, CharData, Comment or ProcInst.
type Node interface {
	isNode()
}

// Namespace is a namespace declaration as it appeared on an element.
type Namespace struct {
	Prefix string // empty for the default namespace
	URI    string
}

// Attr is an element attribute. Name.Space holds the resolved namespace URI.
type Attr struct {
	Name   xml.Name
	Prefix string
	Value  string
}

// Element is an XML element. Name.Space holds the resolved namespace URI; Prefix
// records the prefix the element was written with, if any.
type Element struct {
	Name       xml.Name
	Prefix     string
	Namespaces []Namespace
	Attr       []Attr
	Children   []Node
}

// CharData is character data with entities already expanded.
type CharData string

// Comment is the content of an XML comment.
type Comment string

// ProcInst is a processing instruction found inside the root element.
type ProcInst struct {
	Target string
	Inst   string
}

func (*Element) isNode() {}
func (CharData) isNode()  {}
func (Comment) isNode()   {}
func (ProcInst) isNode()  {}

// Document is a parsed XML document with exactly one root element.
type Document struct {
	Root *Element
}

// NewElement returns an element in namespace space with no attributes or children.
func NewElement(space, local string) *Element {
	return &Element{Name: xml.Name{Space: space, Local: local}}
}

// Append adds nodes to the end of the element's children.
func (e *Element) Append(nodes ...Node) *Element {
	e.Children = append(e.Children, nodes...)
	return e
}

// Elements returns the element children of e, in document order.
func (e *Element) Elements() []*Element {
	var result []*Element
	for _, n := range e.Children {
		if el, ok := n.(*Element); ok {
			result = append(result, el)
		}
	}
	return result
}

// Child returns the first child element with the given local name. An empty space matches any namespace.
func (e *Element) Child(space, local string) *Element {
	for _, el := range e.Elements() {
		if el.Name.Local == local && (space == "" || el.Name.Space == space) {
			return el
		}
	}
	return nil
}

// Text returns the concatenation of the element's direct character data.
func (e *Element) Text() string {
	var sb strings.Builder
	for _, n := range e.Children {
		if cd, ok := n.(CharData); ok {
			sb.WriteString(string(cd))
		}
	}
	return sb.String()
}

// AttrValue returns the value of the attribute with the given local name. An empty space matches
// only attributes without a namespace.
func (e *Element) AttrValue(space, local string) (string, bool) {
	for _, a := range e.Attr {
		if a.Name.Local == local && a.Name.Space == space {
			return a.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := &Element{Name: e.Name, Prefix: e.Prefix}
	c.Namespaces = append(c.Namespaces, e.Namespaces...)
	c.Attr = append(c.Attr, e.Attr...)
	for _, n := range e.Children {
		if el, ok := n.(*Element); ok {
			c.Children = append(c.Children, el.Clone())
			continue
		}
		c.Children = append(c.Children, n)
	}
	return c
}

// Equal reports whether two elements are semantically equivalent: same namespaces and local
// names, same attribute set, and same content. Prefixes, attribute order and whitespace-only
// text between child elements are ignored.
func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Name != o.Name || len(e.Attr) != len(o.Attr) {
		return false
	}
	for _, a := range e.Attr {
		if v, ok := o.AttrValue(a.Name.Space, a.Name.Local); !ok || v != a.Value {
			return false
		}
	}
	ec, oc := e.content(), o.content()
	if len(ec) != len(oc) {
		return false
	}
	for i := range ec {
		switch n := ec[i].(type) {
		case *Element:
			m, ok := oc[i].(*Element)
			if !ok || !n.Equal(m) {
				return false
			}
		default:
			if ec[i] != oc[i] {
				return false
			}
		}
	}
	return true
}

// content returns the children with adjacent character data merged, and whitespace-only character
// data dropped when the element has element children.
func (e *Element) content() []Node {
	structured := false
	for _, n := range e.Children {
		if _, ok := n.(CharData); !ok {
			structured = true
			break
		}
	}
	var result []Node
	var text strings.Builder
	flush := func() {
		s := text.String()
		text.Reset()
		if s == "" || (structured && isWhitespace(s)) {
			return
		}
		result = append(result, CharData(s))
	}
	for _, n := range e.Children {
		if cd, ok := n.(CharData); ok {
			text.WriteString(string(cd))
			continue
		}
		flush()
		result = append(result, n)
	}
	flush()
	return result
}

// Parse parses b into a Document. The input must hold exactly one root element; truncated
// input, mismatched tags, undeclared prefixes, document type declarations and content
// after the root element are rejected with ErrMalformedDocument.
func Parse(b []byte) (*Document, error) {
	d := xml.NewDecoder(bytes.NewReader(b))
	d.Strict = true

	var (
		root  *Element
		stack []*Element
		raw   []xml.Name
		scope = rootScope()
	)

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(ErrMalformedDocument, err.Error())
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && root != nil {
				return nil, errors.Wrapf(ErrMalformedDocument, "content after root element: <%s>", t.Name.Local)
			}
			el, inner, err := resolveStart(t, scope)
			if err != nil {
				return nil, err
			}
			scope = inner
			if len(stack) == 0 {
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
			raw = append(raw, t.Name)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.Wrapf(ErrMalformedDocument, "unexpected end element </%s>", t.Name.Local)
			}
			if open := raw[len(raw)-1]; open != t.Name {
				return nil, errors.Wrapf(ErrMalformedDocument, "element <%s> closed by </%s>", qualified(open), qualified(t.Name))
			}
			for i := 0; i < len(stack[len(stack)-1].Namespaces); i++ {
				scope = scope.parent
			}
			stack = stack[:len(stack)-1]
			raw = raw[:len(raw)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if !isWhitespace(string(t)) {
					return nil, errors.Wrap(ErrMalformedDocument, "character data outside root element")
				}
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, CharData(t))

		case xml.Comment:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, Comment(t))
			}

		case xml.ProcInst:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, ProcInst{Target: t.Target, Inst: string(t.Inst)})
			}

		case xml.Directive:
			return nil, errors.Wrap(ErrMalformedDocument, "document type declarations are not permitted")
		}
	}

	if len(stack) > 0 {
		return nil, errors.Wrapf(ErrMalformedDocument, "unexpected end of input inside <%s>", qualified(raw[len(raw)-1]))
	}
	if root == nil {
		return nil, errors.Wrap(ErrMalformedDocument, "no root element")
	}
	return &Document{Root: root}, nil
}

func resolveStart(t xml.StartElement, scope *nsScope) (*Element, *nsScope, error) {
	el := &Element{Prefix: t.Name.Space}

	for _, a := range t.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			if declaresPrefix(el, "") {
				return nil, nil, errors.Wrap(ErrMalformedDocument, "default namespace declared twice")
			}
			el.Namespaces = append(el.Namespaces, Namespace{URI: a.Value})
		case a.Name.Space == "xmlns":
			if declaresPrefix(el, a.Name.Local) {
				return nil, nil, errors.Wrapf(ErrMalformedDocument, "prefix %q declared twice", a.Name.Local)
			}
			if a.Value == "" {
				return nil, nil, errors.Wrapf(ErrMalformedDocument, "prefix %q bound to empty namespace", a.Name.Local)
			}
			if a.Name.Local == "xmlns" || (a.Name.Local == "xml" && a.Value != XMLNamespace) {
				return nil, nil, errors.Wrapf(ErrMalformedDocument, "reserved prefix %q redeclared", a.Name.Local)
			}
			el.Namespaces = append(el.Namespaces, Namespace{Prefix: a.Name.Local, URI: a.Value})
		}
	}
	for _, ns := range el.Namespaces {
		scope = scope.push(ns.Prefix, ns.URI)
	}

	uri, ok := scope.lookup(el.Prefix)
	if !ok {
		return nil, nil, errors.Wrapf(ErrMalformedDocument, "undeclared namespace prefix %q", el.Prefix)
	}
	el.Name = xml.Name{Space: uri, Local: t.Name.Local}

	for _, a := range t.Attr {
		if (a.Name.Space == "" && a.Name.Local == "xmlns") || a.Name.Space == "xmlns" {
			continue
		}
		attr := Attr{Name: xml.Name{Local: a.Name.Local}, Prefix: a.Name.Space, Value: a.Value}
		if a.Name.Space != "" {
			space, ok := scope.lookup(a.Name.Space)
			if !ok {
				return nil, nil, errors.Wrapf(ErrMalformedDocument, "undeclared namespace prefix %q", a.Name.Space)
			}
			attr.Name.Space = space
		}
		if _, dup := el.AttrValue(attr.Name.Space, attr.Name.Local); dup {
			return nil, nil, errors.Wrapf(ErrMalformedDocument, "duplicate attribute %q", a.Name.Local)
		}
		el.Attr = append(el.Attr, attr)
	}
	return el, scope, nil
}

func declaresPrefix(el *Element, prefix string) bool {
	for _, ns := range el.Namespaces {
		if ns.Prefix == prefix {
			return true
		}
	}
	return false
}

// nsScope is an immutable chain of in-scope namespace bindings.
type nsScope struct {
	parent *nsScope
	prefix string
	uri    string
}

func rootScope() *nsScope {
	return (&nsScope{prefix: "", uri: ""}).push("xml", XMLNamespace)
}

func (s *nsScope) push(prefix, uri string) *nsScope {
	return &nsScope{parent: s, prefix: prefix, uri: uri}
}

func (s *nsScope) lookup(prefix string) (string, bool) {
	for ; s != nil; s = s.parent {
		if s.prefix == prefix {
			return s.uri, true
		}
	}
	return "", false
}

// prefixFor returns a non-empty prefix currently bound to uri.
func (s *nsScope) prefixFor(uri string) (string, bool) {
	for n := s; n != nil; n = n.parent {
		if n.prefix == "" || n.uri != uri {
			continue
		}
		if bound, _ := s.lookup(n.prefix); bound == uri {
			return n.prefix, true
		}
	}
	return "", false
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func isWhitespace(s string) bool {
	return strings.TrimLeft(s, " \t\r\n") == ""
}

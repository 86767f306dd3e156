package codec

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Serialize renders doc as canonical XML suitable for the wire: no XML declaration, no
// indentation, whitespace-only text between child elements removed, redundant namespace
// declarations dropped and missing ones added.
func Serialize(doc *Document) ([]byte, error) {
	if doc == nil || doc.Root == nil {
		return nil, errors.Wrap(ErrEncoding, "document has no root element")
	}
	w := &writer{}
	if err := w.element(doc.Root, rootScope(), 0); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// SerializeElement renders a single element, with any namespace declarations it needs, as canonical XML.
func SerializeElement(el *Element) ([]byte, error) {
	return Serialize(&Document{Root: el})
}

// PrettyPrint renders doc for display, placing each child element on its own line indented
// by one copy of indent per level. Elements holding only text, and elements with mixed
// content, are kept on one line so that no text content is altered.
func PrettyPrint(doc *Document, indent string) (string, error) {
	if doc == nil || doc.Root == nil {
		return "", errors.Wrap(ErrEncoding, "document has no root element")
	}
	if !isWhitespace(indent) {
		return "", errors.Wrapf(ErrEncoding, "indent %q must be whitespace", indent)
	}
	w := &writer{pretty: true, indent: indent}
	if err := w.element(doc.Root, rootScope(), 0); err != nil {
		return "", err
	}
	return w.buf.String(), nil
}

type writer struct {
	buf    bytes.Buffer
	pretty bool
	indent string
}

func (w *writer) element(el *Element, scope *nsScope, depth int) error {
	if !isNCName(el.Name.Local) {
		return errors.Wrapf(ErrEncoding, "invalid element name %q", el.Name.Local)
	}

	var decls []Namespace
	declare := func(prefix, uri string) {
		scope = scope.push(prefix, uri)
		decls = append(decls, Namespace{Prefix: prefix, URI: uri})
	}

	for _, ns := range el.Namespaces {
		if ns.Prefix == "xml" || ns.Prefix == "xmlns" {
			continue
		}
		if ns.Prefix != "" && (!isNCName(ns.Prefix) || ns.URI == "") {
			return errors.Wrapf(ErrEncoding, "invalid namespace declaration %q=%q", ns.Prefix, ns.URI)
		}
		if declared(decls, ns.Prefix) {
			return errors.Wrapf(ErrEncoding, "namespace prefix %q declared twice", ns.Prefix)
		}
		if bound, ok := scope.lookup(ns.Prefix); ok && bound == ns.URI {
			continue
		}
		declare(ns.Prefix, ns.URI)
	}

	prefix := el.Prefix
	if el.Name.Space == "" {
		prefix = ""
	}
	if prefix != "" && !isNCName(prefix) {
		return errors.Wrapf(ErrEncoding, "invalid prefix %q", prefix)
	}
	generated := 0
	freshPrefix := func() string {
		for {
			p := fmt.Sprintf("ns%d", generated)
			generated++
			if _, taken := scope.lookup(p); !taken {
				return p
			}
		}
	}

	if bound, ok := scope.lookup(prefix); !ok || bound != el.Name.Space {
		if prefix == "xml" {
			return errors.Wrap(ErrEncoding, "xml prefix cannot be rebound")
		}
		if declared(decls, prefix) {
			// The prefix is bound to another namespace by a declaration on this element.
			if el.Name.Space == "" {
				return errors.Wrapf(ErrEncoding, "unqualified element %q declares a default namespace", el.Name.Local)
			}
			if existing, found := scope.prefixFor(el.Name.Space); found {
				prefix = existing
			} else {
				prefix = freshPrefix()
				declare(prefix, el.Name.Space)
			}
		} else {
			declare(prefix, el.Name.Space)
		}
	}

	type attrOut struct {
		name  string
		value string
	}
	attrs := make([]attrOut, 0, len(el.Attr))
	for _, a := range el.Attr {
		if !isNCName(a.Name.Local) {
			return errors.Wrapf(ErrEncoding, "invalid attribute name %q", a.Name.Local)
		}
		if err := checkChars(a.Value); err != nil {
			return err
		}
		name := a.Name.Local
		switch a.Name.Space {
		case "":
		case XMLNamespace:
			name = "xml:" + name
		default:
			p := a.Prefix
			if bound, ok := scope.lookup(p); p == "" || !ok || bound != a.Name.Space {
				if existing, found := scope.prefixFor(a.Name.Space); found {
					p = existing
				} else {
					if _, taken := scope.lookup(p); p == "" || taken || !isNCName(p) || p == "xmlns" {
						p = freshPrefix()
					}
					declare(p, a.Name.Space)
				}
			}
			name = p + ":" + name
		}
		attrs = append(attrs, attrOut{name: name, value: a.Value})
	}

	tag := el.Name.Local
	if prefix != "" {
		tag = prefix + ":" + tag
	}

	w.buf.WriteByte('<')
	w.buf.WriteString(tag)
	for _, ns := range decls {
		if ns.Prefix == "" {
			w.buf.WriteString(` xmlns="`)
		} else {
			w.buf.WriteString(` xmlns:` + ns.Prefix + `="`)
		}
		escapeAttr(&w.buf, ns.URI)
		w.buf.WriteByte('"')
	}
	for _, a := range attrs {
		w.buf.WriteString(" " + a.name + `="`)
		escapeAttr(&w.buf, a.value)
		w.buf.WriteByte('"')
	}

	children := el.content()
	if len(children) == 0 {
		w.buf.WriteString("/>")
		return nil
	}
	w.buf.WriteByte('>')

	block := w.pretty && !hasText(children)
	for _, n := range children {
		if block {
			w.newline(depth + 1)
		}
		if err := w.node(n, scope, depth+1, block); err != nil {
			return err
		}
	}
	if block {
		w.newline(depth)
	}

	w.buf.WriteString("</" + tag + ">")
	return nil
}

func (w *writer) node(n Node, scope *nsScope, depth int, block bool) error {
	switch n := n.(type) {
	case *Element:
		if !block && w.pretty {
			// Mixed content is rendered verbatim.
			inner := &writer{}
			if err := inner.element(n, scope, depth); err != nil {
				return err
			}
			w.buf.Write(inner.buf.Bytes())
			return nil
		}
		return w.element(n, scope, depth)
	case CharData:
		if err := checkChars(string(n)); err != nil {
			return err
		}
		escapeText(&w.buf, string(n))
	case Comment:
		if err := checkChars(string(n)); err != nil {
			return err
		}
		if strings.Contains(string(n), "--") || strings.HasSuffix(string(n), "-") {
			return errors.Wrap(ErrEncoding, "comment must not contain \"--\" or end with \"-\"")
		}
		w.buf.WriteString("<!--" + string(n) + "-->")
	case ProcInst:
		if !isNCName(n.Target) || strings.EqualFold(n.Target, "xml") || strings.Contains(n.Inst, "?>") {
			return errors.Wrapf(ErrEncoding, "invalid processing instruction %q", n.Target)
		}
		if err := checkChars(n.Inst); err != nil {
			return err
		}
		w.buf.WriteString("<?" + n.Target)
		if n.Inst != "" {
			w.buf.WriteString(" " + n.Inst)
		}
		w.buf.WriteString("?>")
	default:
		return errors.Wrapf(ErrEncoding, "unsupported node type %T", n)
	}
	return nil
}

func (w *writer) newline(depth int) {
	w.buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		w.buf.WriteString(w.indent)
	}
}

func declared(decls []Namespace, prefix string) bool {
	for _, ns := range decls {
		if ns.Prefix == prefix {
			return true
		}
	}
	return false
}

func hasText(nodes []Node) bool {
	for _, n := range nodes {
		if _, ok := n.(CharData); ok {
			return true
		}
	}
	return false
}

func escapeText(buf *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '\r':
			buf.WriteString("&#xD;")
		default:
			buf.WriteRune(r)
		}
	}
}

func escapeAttr(buf *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '"':
			buf.WriteString("&quot;")
		case '\t':
			buf.WriteString("&#x9;")
		case '\n':
			buf.WriteString("&#xA;")
		case '\r':
			buf.WriteString("&#xD;")
		default:
			buf.WriteRune(r)
		}
	}
}

// checkChars verifies that s is valid UTF-8 made only of characters permitted in XML 1.0.
func checkChars(s string) error {
	if !utf8.ValidString(s) {
		return errors.Wrap(ErrEncoding, "invalid UTF-8")
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return errors.Wrapf(ErrEncoding, "invalid XML character %U", r)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// isNCName reports whether s is a valid XML name without a colon.
func isNCName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nl)) {
			continue
		}
		return false
	}
	return true
}

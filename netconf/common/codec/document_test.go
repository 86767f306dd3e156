package codec

import (
	"encoding/xml"
	"errors"
	"testing"

	assert "github.com/stretchr/testify/require"
)

const reply = `<?xml version="1.0" encoding="UTF-8"?>
<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="101">
  <data>
    <interfaces xmlns="urn:ietf:params:xml:ns:yang:ietf-interfaces">
      <interface>
        <name>eth0</name>
        <description>uplink &amp; mgmt</description>
      </interface>
    </interfaces>
    <sys:system xmlns:sys="urn:ietf:params:xml:ns:yang:ietf-system" xmlns:nc="urn:ietf:params:xml:ns:netconf:base:1.0" nc:operation="merge">
      <sys:hostname>router1</sys:hostname>
    </sys:system>
  </data>
</rpc-reply>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(reply))
	assert.NoError(t, err)

	root := doc.Root
	assert.Equal(t, xml.Name{Space: "urn:ietf:params:xml:ns:netconf:base:1.0", Local: "rpc-reply"}, root.Name)
	id, ok := root.AttrValue("", "message-id")
	assert.True(t, ok)
	assert.Equal(t, "101", id)

	data := root.Child("", "data")
	assert.NotNil(t, data)
	assert.Len(t, data.Elements(), 2)

	ifs := data.Child("urn:ietf:params:xml:ns:yang:ietf-interfaces", "interfaces")
	assert.NotNil(t, ifs)
	desc := ifs.Child("", "interface").Child("", "description")
	assert.Equal(t, "uplink & mgmt", desc.Text())

	sys := data.Child("urn:ietf:params:xml:ns:yang:ietf-system", "system")
	assert.NotNil(t, sys)
	assert.Equal(t, "sys", sys.Prefix)
	op, ok := sys.AttrValue("urn:ietf:params:xml:ns:netconf:base:1.0", "operation")
	assert.True(t, ok)
	assert.Equal(t, "merge", op)
	assert.Equal(t, "urn:ietf:params:xml:ns:yang:ietf-system", sys.Child("", "hostname").Name.Space)

	assert.Nil(t, data.Child("", "missing"))
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"WhitespaceOnly", "  \n "},
		{"Truncated", `<rpc-reply><data>`},
		{"TruncatedTag", `<rpc-reply><da`},
		{"MismatchedClose", `<a><b></a></b>`},
		{"UnexpectedClose", `</a>`},
		{"TwoRoots", `<a/><b/>`},
		{"TextAfterRoot", `<a/>trailing`},
		{"TextBeforeRoot", `leading<a/>`},
		{"UndeclaredPrefix", `<x:a/>`},
		{"UndeclaredAttrPrefix", `<a x:b="1"/>`},
		{"DuplicateAttr", `<a b="1" b="2"/>`},
		{"Doctype", `<!DOCTYPE a><a/>`},
		{"UnknownEntity", `<a>&bogus;</a>`},
		{"UnquotedAttr", `<a b=1/>`},
		{"EmptyPrefixBinding", `<a xmlns:x=""/>`},
		{"PrefixedClosePrefixMismatch", `<x:a xmlns:x="urn:x" xmlns:y="urn:x"></y:a>`},
		{"DuplicateDefaultNamespace", `<x xmlns="urn:a" xmlns="urn:b"/>`},
		{"DuplicatePrefixDeclaration", `<p:x xmlns:p="a" xmlns:p="b"/>`},
		{"DuplicateIdenticalDeclaration", `<x xmlns="urn:a" xmlns="urn:a"/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.input))
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrMalformedDocument), "got %v", err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		reply,
		`<a/>`,
		`<a xmlns="urn:a"><b xmlns="">text</b></a>`,
		`<p:a xmlns:p="urn:p" p:x="1" y="2"><p:b>1 &lt; 2</p:b><!-- note --></p:a>`,
		`<a>mixed <b>content</b> kept</a>`,
		`<a xml:lang="en"><?proc data?></a>`,
		`<a attr="tab&#x9;newline&#xA;quote&quot;"/>`,
	}

	for _, input := range inputs {
		doc, err := Parse([]byte(input))
		assert.NoError(t, err)

		out, err := Serialize(doc)
		assert.NoError(t, err)

		again, err := Parse(out)
		assert.NoError(t, err, "reparse of %s", out)
		assert.True(t, doc.Root.Equal(again.Root), "round trip of %s produced %s", input, out)
	}
}

func TestSerializeCanonical(t *testing.T) {
	doc, err := Parse([]byte(`<a xmlns="urn:a">
	<b  x = "1" >v</b>
	<c/>
</a>`))
	assert.NoError(t, err)

	out, err := Serialize(doc)
	assert.NoError(t, err)
	assert.Equal(t, `<a xmlns="urn:a"><b x="1">v</b><c/></a>`, string(out))
}

func TestSerializeExtractedSubtree(t *testing.T) {
	doc, err := Parse([]byte(reply))
	assert.NoError(t, err)

	sys := doc.Root.Child("", "data").Child("", "system")
	out, err := SerializeElement(sys)
	assert.NoError(t, err)
	assert.Equal(t,
		`<sys:system xmlns:sys="urn:ietf:params:xml:ns:yang:ietf-system" xmlns:nc="urn:ietf:params:xml:ns:netconf:base:1.0" nc:operation="merge"><sys:hostname>router1</sys:hostname></sys:system>`,
		string(out))

	data := doc.Root.Child("", "data")
	out, err = SerializeElement(data)
	assert.NoError(t, err)
	again, err := Parse(out)
	assert.NoError(t, err)
	assert.True(t, data.Equal(again.Root))
	assert.Equal(t, "urn:ietf:params:xml:ns:netconf:base:1.0", again.Root.Name.Space)
}

func TestSerializeBuiltElements(t *testing.T) {
	el := NewElement("urn:ietf:params:xml:ns:netconf:base:1.0", "get-config").Append(
		NewElement("urn:ietf:params:xml:ns:netconf:base:1.0", "source").Append(
			NewElement("urn:ietf:params:xml:ns:netconf:base:1.0", "running")),
	)
	el.Attr = append(el.Attr, Attr{Name: xml.Name{Space: "urn:other", Local: "tag"}, Value: "t"})

	out, err := SerializeElement(el)
	assert.NoError(t, err)
	assert.Equal(t,
		`<get-config xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" xmlns:ns0="urn:other" ns0:tag="t"><source><running/></source></get-config>`,
		string(out))
}

func TestSerializeConflictingDefaultNamespace(t *testing.T) {
	root := NewElement("urn:a", "x").Append(NewElement("urn:b", "y"))
	root.Namespaces = []Namespace{{URI: "urn:b"}}

	out, err := SerializeElement(root)
	assert.NoError(t, err)
	assert.Equal(t, `<ns0:x xmlns="urn:b" xmlns:ns0="urn:a"><y/></ns0:x>`, string(out))

	again, err := Parse(out)
	assert.NoError(t, err)
	assert.True(t, root.Equal(again.Root))
}

func TestSerializeFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
	}{
		{"NilDocument", nil},
		{"NoRoot", &Document{}},
		{"BadElementName", &Document{Root: NewElement("", "1abc")}},
		{"EmptyElementName", &Document{Root: NewElement("", "")}},
		{"BadAttrName", &Document{Root: &Element{Name: xml.Name{Local: "a"}, Attr: []Attr{{Name: xml.Name{Local: "b c"}}}}}},
		{"ControlCharInText", &Document{Root: NewElement("", "a").Append(CharData("bad\x01"))}},
		{"ControlCharInAttr", &Document{Root: &Element{Name: xml.Name{Local: "a"}, Attr: []Attr{{Name: xml.Name{Local: "b"}, Value: "\x00"}}}}},
		{"InvalidUTF8", &Document{Root: NewElement("", "a").Append(CharData("\xff"))}},
		{"BadComment", &Document{Root: NewElement("", "a").Append(Comment("a--b"))}},
		{"UnqualifiedElementWithDefaultNamespace", &Document{Root: &Element{Name: xml.Name{Local: "a"}, Namespaces: []Namespace{{URI: "urn:b"}}}}},
		{"PrefixDeclaredTwice", &Document{Root: &Element{Name: xml.Name{Space: "urn:a", Local: "a"}, Namespaces: []Namespace{{Prefix: "p", URI: "urn:a"}, {Prefix: "p", URI: "urn:b"}}}}},
		{"BadChild", &Document{Root: NewElement("", "a").Append(NewElement("", "ok"), NewElement("", "<bad>"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Serialize(tt.doc)
			assert.True(t, errors.Is(err, ErrEncoding), "got %v", err)
		})
	}
}

func TestPrettyPrint(t *testing.T) {
	doc, err := Parse([]byte(`<data xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><interfaces xmlns="urn:ietf:params:xml:ns:yang:ietf-interfaces"><interface><name>eth0</name><enabled>true</enabled></interface></interfaces><note>a <b>mixed</b> value</note><empty/></data>`))
	assert.NoError(t, err)

	pretty, err := PrettyPrint(doc, "  ")
	assert.NoError(t, err)

	expected := `<data xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <interfaces xmlns="urn:ietf:params:xml:ns:yang:ietf-interfaces">
    <interface>
      <name>eth0</name>
      <enabled>true</enabled>
    </interface>
  </interfaces>
  <note>a <b>mixed</b> value</note>
  <empty/>
</data>`
	assert.Equal(t, expected, pretty)

	// Purely presentational.
	reparsed, err := Parse([]byte(pretty))
	assert.NoError(t, err)
	assert.True(t, doc.Root.Equal(reparsed.Root))

	again, err := PrettyPrint(reparsed, "  ")
	assert.NoError(t, err)
	assert.Equal(t, pretty, again)

	_, err = PrettyPrint(doc, "x")
	assert.True(t, errors.Is(err, ErrEncoding))
	_, err = PrettyPrint(nil, "  ")
	assert.True(t, errors.Is(err, ErrEncoding))
}

func TestElementEqual(t *testing.T) {
	parse := func(s string) *Element {
		doc, err := Parse([]byte(s))
		assert.NoError(t, err)
		return doc.Root
	}

	assert.True(t, parse(`<p:a xmlns:p="urn:x" b="1" c="2"/>`).Equal(parse(`<a xmlns="urn:x" c="2" b="1"></a>`)))
	assert.False(t, parse(`<a xmlns="urn:x"/>`).Equal(parse(`<a xmlns="urn:y"/>`)))
	assert.False(t, parse(`<a b="1"/>`).Equal(parse(`<a b="2"/>`)))
	assert.False(t, parse(`<a>x</a>`).Equal(parse(`<a>y</a>`)))
	assert.False(t, parse(`<a><b/><c/></a>`).Equal(parse(`<a><c/><b/></a>`)))
	assert.True(t, parse(`<a> <b/> </a>`).Equal(parse(`<a><b/></a>`)))
	assert.False(t, parse(`<a> x </a>`).Equal(parse(`<a>x</a>`)))

	var nilEl *Element
	assert.True(t, nilEl.Equal(nil))
	assert.False(t, nilEl.Equal(parse(`<a/>`)))
}

func TestClone(t *testing.T) {
	doc, err := Parse([]byte(reply))
	assert.NoError(t, err)

	c := doc.Root.Clone()
	assert.True(t, doc.Root.Equal(c))

	c.Child("", "data").Children = nil
	assert.False(t, doc.Root.Equal(c))
	assert.Len(t, doc.Root.Child("", "data").Elements(), 2)
}

package builder

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/francoispqt/gojay"

	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/kind"
)

// MarshalJSONObject implements gojay.MarshalerJSONObject.
func (n *Node) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKeyOmitEmpty("leaf", n.Leaf)
	enc.StringKeyOmitEmpty("name", n.Name)
	if n.At != nil {
		enc.ObjectKey("at", (*jsonPosition)(n.At))
	}
	if len(n.Children) > 0 {
		enc.ArrayKey("children", nodeList(n.Children))
	}
}

// IsNil implements gojay.MarshalerJSONObject.
func (n *Node) IsNil() bool { return n == nil }

type nodeList []*Node

// jsonNode decodes one Node and remembers where it sits in the document so
// type errors can name it. Unknown keys are skipped.
type jsonNode struct {
	node *Node
	path string
}

func (j jsonNode) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "leaf", "name", "at", "children":
	default:
		return nil
	}

	raw, err := embedded(dec)
	if err != nil || raw == nil {
		return err
	}

	switch key {
	case "leaf":
		return decodeString(raw, j.path+".leaf", &j.node.Leaf)
	case "name":
		return decodeString(raw, j.path+".name", &j.node.Name)
	case "at":
		if raw[0] != '{' {
			return typeError(j.path+".at", "an object")
		}
		p := &jsonPosition{}
		if err := gojay.UnmarshalJSONObject(raw, p); err != nil {
			return err
		}
		j.node.At = (*kind.Position)(p)
	case "children":
		if raw[0] != '[' {
			return typeError(j.path+".children", "an array")
		}
		children := &jsonChildren{path: j.path + ".children"}
		if err := gojay.UnmarshalJSONArray(raw, children); err != nil {
			return err
		}
		j.node.Children = children.nodes
	}
	return nil
}

func (j jsonNode) NKeys() int { return 0 }

type jsonChildren struct {
	path  string
	nodes nodeList
}

func (c *jsonChildren) UnmarshalJSONArray(dec *gojay.Decoder) error {
	path := fmt.Sprintf("%s[%d]", c.path, len(c.nodes))
	raw, err := embedded(dec)
	if err != nil {
		return err
	}
	if raw == nil || raw[0] != '{' {
		return typeError(path, "an object")
	}
	n := &Node{}
	if err := gojay.UnmarshalJSONObject(raw, jsonNode{node: n, path: path}); err != nil {
		return err
	}
	c.nodes = append(c.nodes, n)
	return nil
}

// embedded reads the next value verbatim. It returns nil for null.
func embedded(dec *gojay.Decoder) (gojay.EmbeddedJSON, error) {
	var raw gojay.EmbeddedJSON
	if err := dec.EmbeddedJSON(&raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	return raw, nil
}

func decodeString(raw gojay.EmbeddedJSON, path string, dst *string) error {
	if raw[0] != '"' {
		return typeError(path, "a string")
	}
	return gojay.Unmarshal(raw, dst)
}

func typeError(path, want string) error {
	return errors.NewParseError(errors.CodeSyntax, "value must be "+want).WithPath(path)
}

func (l nodeList) MarshalJSONArray(enc *gojay.Encoder) {
	for _, n := range l {
		enc.Object(n)
	}
}

func (l nodeList) IsNil() bool { return len(l) == 0 }

type jsonPosition kind.Position

func (p *jsonPosition) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "x":
		return dec.Int(&p.X)
	case "y":
		return dec.Int(&p.Y)
	}
	return nil
}

func (p *jsonPosition) NKeys() int { return 2 }

func (p *jsonPosition) MarshalJSONObject(enc *gojay.Encoder) {
	enc.IntKey("x", p.X)
	enc.IntKey("y", p.Y)
}

func (p *jsonPosition) IsNil() bool { return p == nil }

type jsonDocument struct {
	Root *Node
}

func (d *jsonDocument) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	if key != "root" {
		return nil
	}
	raw, err := embedded(dec)
	if err != nil || raw == nil {
		return err
	}
	if raw[0] != '{' {
		return typeError("root", "an object")
	}
	d.Root = &Node{}
	return gojay.UnmarshalJSONObject(raw, jsonNode{node: d.Root, path: "root"})
}

func (d *jsonDocument) NKeys() int { return 1 }

func (d *jsonDocument) MarshalJSONObject(enc *gojay.Encoder) {
	enc.ObjectKey("root", d.Root)
}

func (d *jsonDocument) IsNil() bool { return d == nil }

func decodeJSON(r io.Reader) (*Node, error) {
	dec := gojay.BorrowDecoder(r)
	defer dec.Release()

	var doc jsonDocument
	if err := dec.DecodeObject(&doc); err != nil {
		var ce *errors.CanopyError
		if stderrors.As(err, &ce) {
			return nil, ce
		}
		return nil, errors.NewParseError(errors.CodeSyntax, "invalid json document").WithCause(err)
	}
	if doc.Root == nil {
		return nil, errors.NewParseError(errors.CodeDocument, "document has no root").WithPath("root")
	}
	return doc.Root, nil
}

func encodeJSON(w io.Writer, root *Node) error {
	enc := gojay.BorrowEncoder(w)
	defer enc.Release()

	if err := enc.EncodeObject(&jsonDocument{Root: root}); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

package visitor

import (
	"bytes"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/canopy/internal/tree"
)

// HTML renders a subtree as nested lists. Composites become <ul> elements
// and leaves become <li> items carrying their kind and position as data
// attributes. A leaf visited outside any composite renders as a <span>.
type HTML struct {
	root    *html.Node
	current *html.Node
}

// NewHTML returns an HTML visitor with an empty container.
func NewHTML() *HTML {
	root := element(atom.Div, html.Attribute{Key: "class", Val: "canopy"})
	return &HTML{root: root, current: root}
}

// VisitLeaf appends a list item for l.
func (h *HTML) VisitLeaf(l *tree.Leaf) error {
	h.ensure()
	pos := l.Position()
	tag := atom.Li
	if h.current.DataAtom != atom.Ul {
		tag = atom.Span
	}
	n := element(tag,
		html.Attribute{Key: "class", Val: "leaf"},
		html.Attribute{Key: "data-kind", Val: l.Kind().Key()},
		html.Attribute{Key: "data-x", Val: strconv.Itoa(pos.X)},
		html.Attribute{Key: "data-y", Val: strconv.Itoa(pos.Y)},
	)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: l.Operation()})
	h.current.AppendChild(n)
	return nil
}

// VisitComposite appends a nested list for c and descends into it.
func (h *HTML) VisitComposite(c *tree.Composite) error {
	h.ensure()
	attrs := []html.Attribute{{Key: "class", Val: "composite"}}
	if c.Name() != "" {
		attrs = append(attrs, html.Attribute{Key: "data-name", Val: c.Name()})
	}
	ul := element(atom.Ul, attrs...)

	if h.current.DataAtom == atom.Ul {
		li := element(atom.Li)
		li.AppendChild(ul)
		h.current.AppendChild(li)
	} else {
		h.current.AppendChild(ul)
	}

	parent := h.current
	h.current = ul
	err := tree.VisitChildren(h, c)
	h.current = parent
	return err
}

// Node returns the container node holding the rendered tree.
func (h *HTML) Node() *html.Node {
	h.ensure()
	return h.root
}

// Render writes the rendered markup to w.
func (h *HTML) Render(w io.Writer) error {
	return html.Render(w, h.Node())
}

// String returns the rendered markup.
func (h *HTML) String() string {
	var buf bytes.Buffer
	if err := h.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func (h *HTML) ensure() {
	if h.root == nil {
		*h = *NewHTML()
	}
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

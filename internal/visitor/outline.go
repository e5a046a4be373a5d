package visitor

import (
	"strings"

	"github.com/conneroisu/canopy/internal/tree"
)

// Outline renders a subtree as indented text, one element per line.
//
//	+ root
//	  - circle at (0, 0)
//	  + *
//	    - B at (0, 0)
type Outline struct {
	// Indent is repeated once per depth level. Defaults to two spaces.
	Indent string

	b     strings.Builder
	depth int
}

// VisitLeaf writes the leaf's kind and position.
func (o *Outline) VisitLeaf(l *tree.Leaf) error {
	o.line("- " + l.Draw())
	return nil
}

// VisitComposite writes the composite and descends.
func (o *Outline) VisitComposite(c *tree.Composite) error {
	o.line("+ " + compositeLabel(c))
	o.depth++
	err := tree.VisitChildren(o, c)
	o.depth--
	return err
}

func (o *Outline) line(s string) {
	indent := o.Indent
	if indent == "" {
		indent = "  "
	}
	for i := 0; i < o.depth; i++ {
		o.b.WriteString(indent)
	}
	o.b.WriteString(s)
	o.b.WriteByte('\n')
}

// String returns the rendered outline.
func (o *Outline) String() string { return o.b.String() }

// Reset discards rendered output.
func (o *Outline) Reset() {
	o.b.Reset()
	o.depth = 0
}

package tree

import "github.com/conneroisu/canopy/internal/errors"

// Visitor is an operation defined outside the element types, with one case
// per element variant. Adding a variant means updating every Visitor.
type Visitor interface {
	VisitLeaf(l *Leaf) error
	VisitComposite(c *Composite) error
}

// Funcs is a dispatch table implementing Visitor. Nil cases do nothing, so
// a Funcs with only a Composite case performs a shallow visit.
type Funcs struct {
	Leaf      func(l *Leaf) error
	Composite func(c *Composite) error
}

// VisitLeaf dispatches to f.Leaf.
func (f Funcs) VisitLeaf(l *Leaf) error {
	if f.Leaf == nil {
		return nil
	}
	return f.Leaf(l)
}

// VisitComposite dispatches to f.Composite.
func (f Funcs) VisitComposite(c *Composite) error {
	if f.Composite == nil {
		return nil
	}
	return f.Composite(c)
}

// VisitChildren accepts v on each child of c in order, stopping at the first
// error. A visitor calls it from VisitComposite to traverse deeply.
func VisitChildren(v Visitor, c *Composite) error {
	if v == nil {
		return errors.NewNullArgument("visit children", errors.CodeNilVisitor, "visitor")
	}
	if c == nil {
		return errors.NewNullArgument("visit children", errors.CodeNilChild, "composite")
	}
	for _, child := range c.Children() {
		if err := child.Accept(v); err != nil {
			return err
		}
	}
	return nil
}

// Deep wraps v so every composite case is followed by visiting the
// composite's children, giving a pre-order traversal.
func Deep(v Visitor) Visitor {
	if v == nil {
		return nil
	}
	return &deep{inner: v}
}

type deep struct {
	inner Visitor
}

func (d *deep) VisitLeaf(l *Leaf) error {
	return d.inner.VisitLeaf(l)
}

func (d *deep) VisitComposite(c *Composite) error {
	if err := d.inner.VisitComposite(c); err != nil {
		return err
	}
	return VisitChildren(d, c)
}

// Package tree implements the part-whole hierarchy and the visitor protocol.
//
// An Element is a closed sum type with exactly two variants: *Leaf, which
// references a shared kind.Kind, and *Composite, which exclusively owns an
// ordered sequence of children. Operations outside the element types are
// written as Visitors. Accept dispatches to the visitor case matching the
// element's own variant and never recurses; deep traversal is the business
// of the visitor's composite case (see VisitChildren and Deep).
//
// Trees are not synchronized. Callers serialize mutation and traversal of a
// given subtree themselves.
package tree

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/kind"
)

// Element is a node of the tree. The set of implementations is closed to
// *Leaf and *Composite.
type Element interface {
	// ID returns the identity assigned at construction.
	ID() uuid.UUID
	// Parent returns the owning composite, or nil for a root.
	Parent() *Composite
	// Accept calls the visitor case for the element's own variant.
	Accept(v Visitor) error
	// Operation returns the ordered aggregate value of the subtree.
	Operation() string
	// Add appends child. Only composites accept children.
	Add(child Element) error
	// Remove detaches the first child identical to child.
	Remove(child Element) error
	// Children returns a copy of the ordered child sequence.
	Children() []Element

	setParent(p *Composite)
	isNil() bool
}

type node struct {
	id     uuid.UUID
	parent *Composite
}

func newNode() node { return node{id: uuid.New()} }

func (n *node) ID() uuid.UUID          { return n.id }
func (n *node) Parent() *Composite     { return n.parent }
func (n *node) setParent(p *Composite) { n.parent = p }

// Leaf is an element without children backed by a shared Kind. The Kind is
// intrinsic state; the leaf's position is extrinsic state owned by the leaf.
type Leaf struct {
	node
	kind *kind.Kind
	pos  kind.Position
}

// LeafOption configures a Leaf.
type LeafOption func(*Leaf)

// At places the leaf at the given coordinates.
func At(x, y int) LeafOption {
	return func(l *Leaf) { l.pos = kind.Position{X: x, Y: y} }
}

// NewLeaf creates a leaf referencing k. It panics if k is nil; use LeafOf
// when k comes from a source that may return nil.
func NewLeaf(k *kind.Kind, opts ...LeafOption) *Leaf {
	l, err := LeafOf(k, opts...)
	if err != nil {
		panic("tree: " + err.Error())
	}
	return l
}

// LeafOf creates a leaf referencing k and fails with NullArgument when k is
// nil.
func LeafOf(k *kind.Kind, opts ...LeafOption) (*Leaf, error) {
	if k == nil {
		return nil, errors.NewNullArgument("new leaf", errors.CodeNilKind, "kind")
	}
	l := &Leaf{node: newNode(), kind: k}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Kind returns the shared intrinsic state.
func (l *Leaf) Kind() *kind.Kind { return l.kind }

// Position returns the leaf's extrinsic position.
func (l *Leaf) Position() kind.Position { return l.pos }

// Draw renders the leaf's kind at the leaf's position.
func (l *Leaf) Draw() string { return l.kind.Draw(l.pos) }

// Accept calls v.VisitLeaf(l).
func (l *Leaf) Accept(v Visitor) error {
	if v == nil {
		return errors.NewNullArgument("accept", errors.CodeNilVisitor, "visitor").WithElement(l.id.String())
	}
	return v.VisitLeaf(l)
}

// Operation returns the glyph of the leaf's kind.
func (l *Leaf) Operation() string { return l.kind.Glyph() }

// Add always fails: leaves have no children.
func (l *Leaf) Add(Element) error {
	return errors.NewInvalidOperation("add", errors.CodeLeafMutation, "leaf elements cannot have children").
		WithElement(l.id.String())
}

// Remove always fails: leaves have no children.
func (l *Leaf) Remove(Element) error {
	return errors.NewInvalidOperation("remove", errors.CodeLeafMutation, "leaf elements cannot have children").
		WithElement(l.id.String())
}

// Children returns nil.
func (l *Leaf) Children() []Element { return nil }

func (l *Leaf) isNil() bool { return l == nil }

// String returns a short description.
func (l *Leaf) String() string { return fmt.Sprintf("leaf(%s)", l.kind.Key()) }

// Composite is an element owning an ordered sequence of children. Child
// order is part of the observable contract of Operation and traversal.
type Composite struct {
	node
	name     string
	children []Element
}

// NewComposite creates an empty composite with an optional name.
func NewComposite(name string) *Composite {
	return &Composite{node: newNode(), name: name}
}

// Of creates an unnamed composite and adds children in order.
func Of(children ...Element) (*Composite, error) {
	c := NewComposite("")
	for _, child := range children {
		if err := c.Add(child); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Name returns the composite's name, possibly empty.
func (c *Composite) Name() string { return c.name }

// Len returns the number of direct children.
func (c *Composite) Len() int { return len(c.children) }

// Child returns the i-th child. It panics when i is out of range.
func (c *Composite) Child(i int) Element { return c.children[i] }

// Accept calls v.VisitComposite(c). Children are not visited unless the
// visitor does so itself.
func (c *Composite) Accept(v Visitor) error {
	if v == nil {
		return errors.NewNullArgument("accept", errors.CodeNilVisitor, "visitor").WithElement(c.id.String())
	}
	return v.VisitComposite(c)
}

// Operation returns the concatenation of the children's operations in child
// order. It uses an explicit stack, so depth is bounded only by memory.
func (c *Composite) Operation() string {
	return Concat(c)
}

// Add appends child to the end of the child sequence. It fails with
// NullArgument for nil, and with InvalidOperation when child already has a
// parent or when adding it would make c contain itself.
func (c *Composite) Add(child Element) error {
	if child == nil || child.isNil() {
		return errors.NewNullArgument("add", errors.CodeNilChild, "child").WithElement(c.id.String())
	}
	if child.Parent() != nil {
		return errors.NewInvalidOperation("add", errors.CodeSharedParent, "child is already owned by another composite").
			WithElement(child.ID().String())
	}
	if sub, ok := child.(*Composite); ok && c.hasAncestor(sub) {
		return errors.NewInvalidOperation("add", errors.CodeCycle, "composite cannot contain itself").
			WithElement(sub.id.String())
	}

	c.children = append(c.children, child)
	child.setParent(c)
	return nil
}

// hasAncestor reports whether sub is c or one of its ancestors. sub has no
// parent here, so it can only be an ancestor of c if it has children.
func (c *Composite) hasAncestor(sub *Composite) bool {
	if sub == c {
		return true
	}
	if len(sub.children) == 0 {
		return false
	}
	for p := c.parent; p != nil; p = p.parent {
		if p == sub {
			return true
		}
	}
	return false
}

// Remove detaches the first child identical to child. It fails with
// NotFound when child is not a direct child of c.
func (c *Composite) Remove(child Element) error {
	if child == nil || child.isNil() {
		return errors.NewNullArgument("remove", errors.CodeNilChild, "child").WithElement(c.id.String())
	}
	for i, candidate := range c.children {
		if candidate != child {
			continue
		}
		copy(c.children[i:], c.children[i+1:])
		c.children[len(c.children)-1] = nil
		c.children = c.children[:len(c.children)-1]
		child.setParent(nil)
		return nil
	}
	return errors.NewNotFound("remove", "element is not a child of this composite").
		WithElement(child.ID().String())
}

// Children returns a copy of the child sequence in insertion order.
func (c *Composite) Children() []Element {
	if len(c.children) == 0 {
		return nil
	}
	result := make([]Element, len(c.children))
	copy(result, c.children)
	return result
}

func (c *Composite) isNil() bool { return c == nil }

// String returns a short description.
func (c *Composite) String() string {
	if c.name == "" {
		return fmt.Sprintf("composite[%d]", len(c.children))
	}
	return fmt.Sprintf("composite(%s)[%d]", c.name, len(c.children))
}

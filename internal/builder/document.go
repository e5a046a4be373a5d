package builder

import (
	"fmt"

	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/kind"
	"github.com/conneroisu/canopy/internal/tree"
)

// Node is the format-neutral document form of an element. A node with a
// Leaf key is a leaf; any other node is a composite.
type Node struct {
	Leaf     string         `yaml:"leaf,omitempty"`
	Name     string         `yaml:"name,omitempty"`
	At       *kind.Position `yaml:"at,omitempty"`
	Children []*Node        `yaml:"children,omitempty"`
}

// IsLeaf reports whether n describes a leaf.
func (n *Node) IsLeaf() bool { return n.Leaf != "" }

// Build turns a document node into a tree. Every invalid node is reported,
// not just the first.
func (b *Builder) Build(root *Node) (tree.Element, error) {
	if root == nil {
		return nil, errors.NewParseError(errors.CodeDocument, "document has no root").WithPath("root")
	}

	collector := errors.NewCollector()
	el := b.build(root, "root", collector)
	if err := collector.Err(); err != nil {
		return nil, err
	}
	return el, nil
}

func (b *Builder) build(n *Node, path string, errs *errors.Collector) tree.Element {
	if n == nil {
		errs.Add(errors.NewParseError(errors.CodeDocument, "empty node").WithPath(path))
		return nil
	}

	if n.IsLeaf() {
		if n.Name != "" || len(n.Children) > 0 {
			errs.Add(errors.NewParseError(errors.CodeDocument, "leaf node cannot have a name or children").
				WithPath(path).WithContext("leaf", n.Leaf))
			return nil
		}
		var opts []tree.LeafOption
		if n.At != nil {
			opts = append(opts, tree.At(n.At.X, n.At.Y))
		}
		l, err := tree.LeafOf(b.kinds.GetOrCreate(n.Leaf), opts...)
		if err != nil {
			errs.Add(errors.NewParseError(errors.CodeDocument, "no kind for leaf").
				WithPath(path).WithContext("leaf", n.Leaf).WithCause(err))
			return nil
		}
		return l
	}

	if n.At != nil {
		errs.Add(errors.NewParseError(errors.CodeDocument, "composite node cannot have a position").WithPath(path))
	}

	c := b.NewComposite(n.Name)
	for i, child := range n.Children {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		el := b.build(child, childPath, errs)
		if el == nil {
			continue
		}
		if err := c.Add(el); err != nil {
			errs.Add(errors.NewParseError(errors.CodeDocument, "cannot attach node").
				WithPath(childPath).WithCause(err))
		}
	}
	return c
}

// Snapshot converts a tree into its document form.
func Snapshot(root tree.Element) *Node {
	return tree.Fold(root,
		func(l *tree.Leaf) *Node {
			n := &Node{Leaf: l.Kind().Key()}
			if pos := l.Position(); pos != (kind.Position{}) {
				n.At = &pos
			}
			return n
		},
		func(c *tree.Composite, children []*Node) *Node {
			n := &Node{Name: c.Name()}
			if len(children) > 0 {
				n.Children = children
			}
			return n
		},
	)
}

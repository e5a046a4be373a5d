package visitor

import "github.com/conneroisu/canopy/internal/tree"

// Counter counts the leaves and composites of a subtree.
type Counter struct {
	Leaves     int
	Composites int
}

// VisitLeaf counts a leaf.
func (c *Counter) VisitLeaf(*tree.Leaf) error {
	c.Leaves++
	return nil
}

// VisitComposite counts a composite and descends into its children.
func (c *Counter) VisitComposite(comp *tree.Composite) error {
	c.Composites++
	return tree.VisitChildren(c, comp)
}

// Total returns the number of elements counted.
func (c *Counter) Total() int { return c.Leaves + c.Composites }

// Reset zeroes the counts.
func (c *Counter) Reset() { *c = Counter{} }

// Depth records the maximum depth of a subtree. The visited root sits at
// depth 0.
type Depth struct {
	Max     int
	current int
}

// VisitLeaf records the leaf's depth.
func (d *Depth) VisitLeaf(*tree.Leaf) error {
	d.observe()
	return nil
}

// VisitComposite records the composite's depth and descends.
func (d *Depth) VisitComposite(c *tree.Composite) error {
	d.observe()
	d.current++
	err := tree.VisitChildren(d, c)
	d.current--
	return err
}

func (d *Depth) observe() {
	if d.current > d.Max {
		d.Max = d.current
	}
}

// Reset zeroes the recorded depth.
func (d *Depth) Reset() { *d = Depth{} }

// ChildLister is a shallow visitor: it records the direct children of the
// composite it visits and never descends. Visiting a leaf records nothing.
type ChildLister struct {
	Children []tree.Element
}

// VisitLeaf does nothing.
func (l *ChildLister) VisitLeaf(*tree.Leaf) error { return nil }

// VisitComposite records c's direct children in order.
func (l *ChildLister) VisitComposite(c *tree.Composite) error {
	l.Children = append(l.Children, c.Children()...)
	return nil
}

// Operations returns the Operation value of every recorded child.
func (l *ChildLister) Operations() []string {
	ops := make([]string, len(l.Children))
	for i, child := range l.Children {
		ops[i] = child.Operation()
	}
	return ops
}

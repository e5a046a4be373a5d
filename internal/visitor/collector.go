package visitor

import (
	"github.com/google/uuid"

	"github.com/conneroisu/canopy/internal/tree"
)

// Entry is one element recorded by a Collector.
type Entry struct {
	ID    uuid.UUID
	Label string
	Depth int
	Leaf  bool
}

// Collector records every element of a subtree in pre-order or post-order.
// Leaves are labelled with their glyph; composites with their name, or "*"
// when unnamed.
type Collector struct {
	Order   tree.Order
	Entries []Entry
	depth   int
}

// NewCollector returns a Collector for the given order.
func NewCollector(order tree.Order) *Collector {
	return &Collector{Order: order}
}

// VisitLeaf records the leaf.
func (c *Collector) VisitLeaf(l *tree.Leaf) error {
	c.Entries = append(c.Entries, Entry{
		ID:    l.ID(),
		Label: l.Operation(),
		Depth: c.depth,
		Leaf:  true,
	})
	return nil
}

// VisitComposite records the composite before or after its children.
func (c *Collector) VisitComposite(comp *tree.Composite) error {
	entry := Entry{ID: comp.ID(), Label: compositeLabel(comp), Depth: c.depth}
	if c.Order == tree.PreOrder {
		c.Entries = append(c.Entries, entry)
	}

	c.depth++
	err := tree.VisitChildren(c, comp)
	c.depth--
	if err != nil {
		return err
	}

	if c.Order == tree.PostOrder {
		c.Entries = append(c.Entries, entry)
	}
	return nil
}

// Labels returns the recorded labels in visit order.
func (c *Collector) Labels() []string {
	labels := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		labels[i] = e.Label
	}
	return labels
}

// IDs returns the recorded element IDs in visit order.
func (c *Collector) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.Entries))
	for i, e := range c.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Reset drops recorded entries and keeps the order.
func (c *Collector) Reset() {
	c.Entries = nil
	c.depth = 0
}

func compositeLabel(c *tree.Composite) string {
	if c.Name() == "" {
		return "*"
	}
	return c.Name()
}

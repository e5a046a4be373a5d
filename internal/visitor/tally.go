package visitor

import (
	"sort"

	"github.com/conneroisu/canopy/internal/kind"
	"github.com/conneroisu/canopy/internal/tree"
)

// Tally counts leaves per kind key and the distinct Kind instances behind
// each key. With a flyweight registry every key maps to exactly one
// instance, however many leaves use it.
type Tally struct {
	counts    map[string]int
	instances map[string]map[*kind.Kind]struct{}
}

// NewTally returns an empty Tally.
func NewTally() *Tally {
	return &Tally{
		counts:    make(map[string]int),
		instances: make(map[string]map[*kind.Kind]struct{}),
	}
}

// VisitLeaf counts the leaf under its kind key.
func (t *Tally) VisitLeaf(l *tree.Leaf) error {
	if t.counts == nil {
		*t = *NewTally()
	}
	k := l.Kind()
	t.counts[k.Key()]++
	set, ok := t.instances[k.Key()]
	if !ok {
		set = make(map[*kind.Kind]struct{})
		t.instances[k.Key()] = set
	}
	set[k] = struct{}{}
	return nil
}

// VisitComposite descends into c.
func (t *Tally) VisitComposite(c *tree.Composite) error {
	return tree.VisitChildren(t, c)
}

// Keys returns the tallied kind keys in lexicographic order.
func (t *Tally) Keys() []string {
	keys := make([]string, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of leaves using key.
func (t *Tally) Count(key string) int { return t.counts[key] }

// Instances returns the number of distinct Kind values seen for key.
func (t *Tally) Instances(key string) int { return len(t.instances[key]) }

// Shared reports whether every key was served by a single Kind instance.
func (t *Tally) Shared() bool {
	for _, set := range t.instances {
		if len(set) > 1 {
			return false
		}
	}
	return true
}

package visitor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/flyweight"
	"github.com/conneroisu/canopy/internal/kind"
	"github.com/conneroisu/canopy/internal/tree"
)

func leaf(key string, opts ...tree.LeafOption) *tree.Leaf {
	return tree.NewLeaf(kind.New(key), opts...)
}

func compose(t *testing.T, name string, children ...tree.Element) *tree.Composite {
	t.Helper()
	c := tree.NewComposite(name)
	for _, child := range children {
		require.NoError(t, c.Add(child))
	}
	return c
}

// scenario builds Composite(Leaf("A"), Composite(Leaf("B"), Leaf("C"))).
func scenario(t *testing.T) *tree.Composite {
	t.Helper()
	return compose(t, "", leaf("A"), compose(t, "", leaf("B"), leaf("C")))
}

func TestCounter_Scenario(t *testing.T) {
	c := &Counter{}
	require.NoError(t, scenario(t).Accept(c))

	assert.Equal(t, 3, c.Leaves)
	assert.Equal(t, 2, c.Composites)
	assert.Equal(t, 5, c.Total())

	c.Reset()
	assert.Equal(t, 0, c.Total())
}

func TestCounter_LeafRoot(t *testing.T) {
	c := &Counter{}
	require.NoError(t, leaf("A").Accept(c))
	assert.Equal(t, Counter{Leaves: 1}, *c)
}

func TestDepth(t *testing.T) {
	tests := []struct {
		name string
		root func(t *testing.T) tree.Element
		want int
	}{
		{"leaf", func(*testing.T) tree.Element { return leaf("A") }, 0},
		{"empty composite", func(*testing.T) tree.Element { return tree.NewComposite("") }, 0},
		{"scenario", func(t *testing.T) tree.Element { return scenario(t) }, 2},
		{"skewed", func(t *testing.T) tree.Element {
			return compose(t, "", compose(t, "", compose(t, "", leaf("A"))), leaf("B"))
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Depth{}
			require.NoError(t, tt.root(t).Accept(d))
			assert.Equal(t, tt.want, d.Max)
		})
	}
}

func TestChildLister_IsShallow(t *testing.T) {
	root := scenario(t)
	l := &ChildLister{}

	require.NoError(t, root.Accept(l))

	assert.Len(t, l.Children, 2)
	assert.Equal(t, []string{"A", "BC"}, l.Operations())
	assert.Same(t, root.Child(0), l.Children[0])
}

func TestChildLister_Leaf(t *testing.T) {
	l := &ChildLister{}
	require.NoError(t, leaf("A").Accept(l))
	assert.Empty(t, l.Children)
}

func TestCollector_Orders(t *testing.T) {
	root := compose(t, "root", leaf("A"), compose(t, "inner", leaf("B"), leaf("C")), leaf("D"))

	pre := NewCollector(tree.PreOrder)
	require.NoError(t, root.Accept(pre))
	assert.Equal(t, []string{"root", "A", "inner", "B", "C", "D"}, pre.Labels())

	post := NewCollector(tree.PostOrder)
	require.NoError(t, root.Accept(post))
	assert.Equal(t, []string{"A", "B", "C", "inner", "D", "root"}, post.Labels())
}

func TestCollector_MatchesWalk(t *testing.T) {
	root := compose(t, "", leaf("A"), compose(t, "", leaf("B"), compose(t, ""), leaf("C")))

	for _, order := range []tree.Order{tree.PreOrder, tree.PostOrder} {
		t.Run(order.String(), func(t *testing.T) {
			c := NewCollector(order)
			require.NoError(t, root.Accept(c))

			var walked []string
			var depths []int
			require.NoError(t, tree.Walk(root, order, func(e tree.Element, depth int) error {
				walked = append(walked, e.ID().String())
				depths = append(depths, depth)
				return nil
			}))

			require.Len(t, c.Entries, len(walked))
			for i, entry := range c.Entries {
				assert.Equal(t, walked[i], entry.ID.String())
				assert.Equal(t, depths[i], entry.Depth)
			}
		})
	}
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector(tree.PostOrder)
	require.NoError(t, scenario(t).Accept(c))
	c.Reset()
	assert.Empty(t, c.Entries)
	assert.Equal(t, tree.PostOrder, c.Order)
}

func TestOutline(t *testing.T) {
	root := compose(t, "root", leaf("circle", tree.At(1, 2)), compose(t, "", leaf("B")))
	o := &Outline{}

	require.NoError(t, root.Accept(o))

	want := strings.Join([]string{
		"+ root",
		"  - circle at (1, 2)",
		"  + *",
		"    - B at (0, 0)",
		"",
	}, "\n")
	assert.Equal(t, want, o.String())

	o.Reset()
	o.Indent = "\t"
	require.NoError(t, root.Accept(o))
	assert.Contains(t, o.String(), "\t\t- B at (0, 0)")
}

func TestTally_SharedThroughRegistry(t *testing.T) {
	reg := flyweight.New(kind.New)
	root := tree.NewComposite("")
	for i := 0; i < 10; i++ {
		key := "circle"
		if i%2 == 0 {
			key = "square"
		}
		require.NoError(t, root.Add(tree.NewLeaf(reg.GetOrCreate(key), tree.At(i, i))))
	}

	tally := NewTally()
	require.NoError(t, root.Accept(tally))

	assert.Equal(t, []string{"circle", "square"}, tally.Keys())
	assert.Equal(t, 5, tally.Count("circle"))
	assert.Equal(t, 1, tally.Instances("circle"))
	assert.True(t, tally.Shared())
	assert.Equal(t, int64(2), reg.Constructions())
}

func TestTally_DetectsUnsharedKinds(t *testing.T) {
	root := compose(t, "", leaf("A"), leaf("A"))

	var tally Tally
	require.NoError(t, root.Accept(&tally))

	assert.Equal(t, 2, tally.Count("A"))
	assert.Equal(t, 2, tally.Instances("A"))
	assert.False(t, tally.Shared())
}

// failing stops on the first leaf matching key.
type failing struct {
	Counter
	key string
}

func (f *failing) VisitLeaf(l *tree.Leaf) error {
	if l.Kind().Key() == f.key {
		return errors.NewNotFound("visit", fmt.Sprintf("stop at %s", f.key))
	}
	return f.Counter.VisitLeaf(l)
}

func (f *failing) VisitComposite(c *tree.Composite) error {
	f.Composites++
	return tree.VisitChildren(f, c)
}

func TestVisitorErrorsPropagate(t *testing.T) {
	f := &failing{key: "B"}
	err := scenario(t).Accept(f)

	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 1, f.Leaves)
	assert.Equal(t, 2, f.Composites)
}

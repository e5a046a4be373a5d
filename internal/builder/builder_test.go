package builder

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/flyweight"
	"github.com/conneroisu/canopy/internal/kind"
	"github.com/conneroisu/canopy/internal/tree"
	"github.com/conneroisu/canopy/internal/visitor"
)

func newBuilder() *Builder {
	return New(nil, nil)
}

func decode(t *testing.T, b *Builder, input string, f Format) tree.Element {
	t.Helper()
	el, err := b.Decode(context.Background(), strings.NewReader(input), f)
	require.NoError(t, err)
	return el
}

func TestBuilder_LeavesShareKinds(t *testing.T) {
	b := newBuilder()

	first := b.NewLeaf("circle", tree.At(0, 0))
	second := b.NewLeaf("circle", tree.At(3, 4))

	assert.Same(t, first.Kind(), second.Kind())
	assert.Equal(t, "circle at (3, 4)", second.Draw())
	assert.Equal(t, int64(1), b.Kinds().Constructions())
}

func TestBuilder_UsesGivenRegistry(t *testing.T) {
	reg := flyweight.New(kind.Factory(map[string]kind.Definition{
		"x": {Name: "cross", Glyph: "✕", Weight: 2},
	}))
	b := New(reg, nil)

	l := b.NewLeaf("x")
	assert.Equal(t, "✕", l.Operation())
	assert.Same(t, reg, b.Kinds())
	assert.Equal(t, 1, reg.Len())
}

func TestBuild_Scenario(t *testing.T) {
	b := newBuilder()
	doc := &Node{Children: []*Node{
		{Leaf: "A"},
		{Children: []*Node{{Leaf: "B"}, {Leaf: "C"}}},
	}}

	root, err := b.Build(doc)
	require.NoError(t, err)
	assert.Equal(t, "ABC", root.Operation())

	c := &visitor.Counter{}
	require.NoError(t, root.Accept(c))
	assert.Equal(t, 3, c.Leaves)
	assert.Equal(t, 2, c.Composites)
}

func TestBuild_ReportsEveryInvalidNode(t *testing.T) {
	b := newBuilder()
	doc := &Node{Children: []*Node{
		{Leaf: "A", Children: []*Node{{Leaf: "B"}}},
		nil,
		{At: &kind.Position{X: 1}},
	}}

	_, err := b.Build(doc)
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
	assert.Contains(t, err.Error(), "root.children[0]")
	assert.Contains(t, err.Error(), "root.children[1]")
	assert.Contains(t, err.Error(), "root.children[2]")
}

func TestBuild_ReportsMissingKinds(t *testing.T) {
	reg := flyweight.New(func(key string) *kind.Kind {
		if key == "ghost" {
			return nil
		}
		return kind.New(key)
	})
	b := New(reg, nil)

	_, err := b.Build(&Node{Children: []*Node{{Leaf: "A"}, {Leaf: "ghost"}}})
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
	assert.True(t, errors.IsNullArgument(err))
	assert.Contains(t, err.Error(), "root.children[1]")
}

func TestBuild_NilRoot(t *testing.T) {
	_, err := newBuilder().Build(nil)
	assert.True(t, errors.IsParse(err))
}

func TestSnapshot(t *testing.T) {
	b := newBuilder()
	root := b.NewComposite("row")
	require.NoError(t, root.Add(b.NewLeaf("A", tree.At(1, 2))))
	require.NoError(t, root.Add(b.NewComposite("")))

	got := Snapshot(root)

	assert.Equal(t, &Node{
		Name: "row",
		Children: []*Node{
			{Leaf: "A", At: &kind.Position{X: 1, Y: 2}},
			{},
		},
	}, got)
	assert.Nil(t, Snapshot(nil))
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"yaml": FormatYAML, "YML": FormatYAML, "json": FormatJSON, "expr": FormatExpr, " canopy ": FormatExpr,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseFormat("xml")
	assert.True(t, errors.IsParse(err))
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("tree.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("dir/tree.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("tree.json"))
	assert.Equal(t, FormatExpr, FormatForPath("tree.canopy"))
	assert.Equal(t, FormatExpr, FormatForPath("-"))
}

func TestDecode_AllFormatsAgree(t *testing.T) {
	inputs := map[Format]string{
		FormatYAML: `
root:
  name: row
  children:
    - leaf: circle
      at: {x: 1, y: 2}
    - children:
        - leaf: B
        - leaf: C
`,
		FormatJSON: `{"root": {"name": "row", "children": [
			{"leaf": "circle", "at": {"x": 1, "y": 2}},
			{"children": [{"leaf": "B"}, {"leaf": "C"}]}
		]}}`,
		FormatExpr: "row(circle@1:2, (B, C))",
	}

	for f, input := range inputs {
		t.Run(string(f), func(t *testing.T) {
			b := newBuilder()
			root := decode(t, b, input, f)

			assert.Equal(t, "○BC", root.Operation())
			assert.Equal(t, "row(circle@1:2, (B, C))", Expr(root))
			assert.Equal(t, 3, b.Kinds().Len())
		})
	}
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := newBuilder().Decode(context.Background(), strings.NewReader("A"), Format("xml"))
	assert.True(t, errors.IsParse(err))
}

func TestEncode_RoundTrip(t *testing.T) {
	source := "row(A@1:2, (B, 'x y'), ())"

	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			b := newBuilder()
			root := decode(t, b, source, FormatExpr)

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, root, f))

			again := decode(t, b, buf.String(), f)
			assert.Equal(t, Expr(root), Expr(again))
			assert.Equal(t, Snapshot(root), Snapshot(again))
		})
	}
}

func TestEncode_NilRoot(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, errors.IsNullArgument(Encode(&buf, nil, FormatJSON)))
}

package visitor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/canopy/internal/tree"
)

func TestHTML_NestedLists(t *testing.T) {
	h := NewHTML()
	require.NoError(t, scenario(t).Accept(h))

	want := `<div class="canopy"><ul class="composite">` +
		`<li class="leaf" data-kind="A" data-x="0" data-y="0">A</li>` +
		`<li><ul class="composite">` +
		`<li class="leaf" data-kind="B" data-x="0" data-y="0">B</li>` +
		`<li class="leaf" data-kind="C" data-x="0" data-y="0">C</li>` +
		`</ul></li></ul></div>`
	assert.Equal(t, want, h.String())
}

func TestHTML_NamedCompositeAndPosition(t *testing.T) {
	root := compose(t, "row", leaf("circle", tree.At(3, 4)))
	h := NewHTML()
	require.NoError(t, root.Accept(h))

	out := h.String()
	assert.Contains(t, out, `data-name="row"`)
	assert.Contains(t, out, `data-kind="circle" data-x="3" data-y="4">○</li>`)
}

func TestHTML_LeafRoot(t *testing.T) {
	h := NewHTML()
	require.NoError(t, leaf("A").Accept(h))

	assert.Equal(t, `<div class="canopy"><span class="leaf" data-kind="A" data-x="0" data-y="0">A</span></div>`, h.String())
}

func TestHTML_EscapesText(t *testing.T) {
	root := compose(t, `a"b`, leaf("<x>"))
	h := &HTML{}
	require.NoError(t, root.Accept(h))

	out := h.String()
	assert.Contains(t, out, "&lt;x&gt;")
	assert.Contains(t, out, `data-name="a&#34;b"`)
}

func TestHTML_RenderParsesBack(t *testing.T) {
	h := NewHTML()
	require.NoError(t, scenario(t).Accept(h))

	var buf bytes.Buffer
	require.NoError(t, h.Render(&buf))

	doc, err := html.Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)

	var items int
	var count func(n *html.Node)
	count = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" {
			for _, a := range n.Attr {
				if a.Key == "class" && a.Val == "leaf" {
					items++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			count(c)
		}
	}
	count(doc)
	assert.Equal(t, 3, items)
}

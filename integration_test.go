package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/canopy/internal/builder"
	"github.com/conneroisu/canopy/internal/config"
	"github.com/conneroisu/canopy/internal/di"
	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/flyweight"
	"github.com/conneroisu/canopy/internal/logging"
	"github.com/conneroisu/canopy/internal/tree"
	"github.com/conneroisu/canopy/internal/visitor"
	"github.com/conneroisu/canopy/internal/watcher"
)

const gridYAML = `root:
  name: grid
  children:
    - name: row
      children:
        - leaf: circle
          at: {x: 0, y: 0}
        - leaf: Square
          at: {x: 1, y: 0}
    - name: row
      children:
        - leaf: CIRCLE
          at: {x: 0, y: 1}
        - leaf: star
          at: {x: 1, y: 1}
`

func newContainer(t *testing.T) *di.ServiceContainer {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	container := di.NewServiceContainer(cfg)
	container.RegisterInstance(di.ServiceLogger, logging.Logger(logging.NewNopLogger()))
	require.NoError(t, container.Initialize())
	t.Cleanup(func() {
		assert.NoError(t, container.Shutdown(context.Background()))
	})
	return container
}

func TestIntegration_ConfigToRender(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("registry.case_fold", true)
	viper.Set("kinds", map[string]interface{}{
		"star": map[string]interface{}{"glyph": "☆", "weight": 5},
	})

	container := newContainer(t)
	b, err := container.GetBuilder()
	require.NoError(t, err)

	root, err := b.Decode(context.Background(), strings.NewReader(gridYAML), builder.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "○□○☆", root.Operation())
	assert.Equal(t, 1+4+1+5, tree.Weight(root))

	counter := &visitor.Counter{}
	require.NoError(t, root.Accept(counter))
	assert.Equal(t, 4, counter.Leaves)
	assert.Equal(t, 3, counter.Composites)

	// case folding shares "circle" and "CIRCLE"
	tally := visitor.NewTally()
	require.NoError(t, root.Accept(tally))
	assert.True(t, tally.Shared())
	assert.Equal(t, []string{"circle", "square", "star"}, tally.Keys())
	assert.Equal(t, 2, tally.Count("circle"))
	assert.Equal(t, int64(3), b.Kinds().Constructions())

	h := visitor.NewHTML()
	require.NoError(t, root.Accept(h))
	assert.Contains(t, h.String(), `data-name="grid"`)
	assert.Equal(t, 4, strings.Count(h.String(), `class="leaf"`))
}

func TestIntegration_CollectorMatchesWalk(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	container := newContainer(t)
	b, err := container.GetBuilder()
	require.NoError(t, err)

	root, err := b.Decode(context.Background(), strings.NewReader(gridYAML), builder.FormatYAML)
	require.NoError(t, err)

	for _, order := range []tree.Order{tree.PreOrder, tree.PostOrder} {
		t.Run(order.String(), func(t *testing.T) {
			collector := visitor.NewCollector(order)
			require.NoError(t, root.Accept(collector))

			var walked []string
			require.NoError(t, tree.Walk(root, order, func(e tree.Element, _ int) error {
				walked = append(walked, e.ID().String())
				return nil
			}))

			var collected []string
			for _, id := range collector.IDs() {
				collected = append(collected, id.String())
			}
			assert.Equal(t, walked, collected)
			assert.Len(t, collected, 7)
		})
	}
}

func TestIntegration_FormatsRoundTrip(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	container := newContainer(t)
	b, err := container.GetBuilder()
	require.NoError(t, err)

	root, err := b.Decode(context.Background(), strings.NewReader(gridYAML), builder.FormatYAML)
	require.NoError(t, err)
	want := builder.Expr(root)

	for _, f := range builder.Formats() {
		t.Run(string(f), func(t *testing.T) {
			var buf strings.Builder
			require.NoError(t, builder.Encode(&buf, root, f))

			back, err := b.Decode(context.Background(), strings.NewReader(buf.String()), f)
			require.NoError(t, err)
			assert.Equal(t, want, builder.Expr(back))
			assert.Equal(t, root.Operation(), back.Operation())
		})
	}

	// every decode reused the kinds of the first one
	assert.Equal(t, int64(4), b.Kinds().Constructions())
}

func TestIntegration_RegistryWithFileWatcher(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("watch.debounce", "20ms")

	container := newContainer(t)
	b, err := container.GetBuilder()
	require.NoError(t, err)
	events := b.Kinds().Watch()
	defer b.Kinds().UnWatch(events)

	doc := filepath.Join(t.TempDir(), "tree.canopy")
	require.NoError(t, os.WriteFile(doc, []byte("(A, B)"), 0o644))
	first, err := b.Decode(context.Background(), strings.NewReader("(A, B)"), builder.FormatExpr)
	require.NoError(t, err)
	require.Equal(t, "AB", first.Operation())

	fw, err := container.NewFileWatcher()
	require.NoError(t, err)
	defer fw.Stop()
	require.NoError(t, fw.WatchFile(doc))

	rebuilt := make(chan string, 10)
	fw.AddHandler(func(ctx context.Context, _ []watcher.ChangeEvent) error {
		f, err := os.Open(doc)
		if err != nil {
			return err
		}
		defer f.Close()
		root, err := b.Decode(ctx, f, builder.FormatForPath(doc))
		if err != nil {
			return err
		}
		rebuilt <- root.Operation()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	require.NoError(t, os.WriteFile(doc, []byte("(A, (B, C))"), 0o644))

	deadline := time.After(3 * time.Second)
	for done := false; !done; {
		select {
		case op := <-rebuilt:
			done = op == "ABC"
		case <-deadline:
			t.Fatal("document was not rebuilt")
		}
	}

	created := map[string]bool{}
	shared := map[string]bool{}
	for drained := false; !drained; {
		select {
		case e := <-events:
			switch e.Type {
			case flyweight.EventCreated:
				assert.False(t, created[e.Key], "kind %s constructed twice", e.Key)
				created[e.Key] = true
			case flyweight.EventShared:
				shared[e.Key] = true
			}
		default:
			drained = true
		}
	}
	assert.True(t, created["C"])
	assert.True(t, shared["A"])
	assert.Equal(t, int64(3), b.Kinds().Constructions())
}

func TestIntegration_ConfigurationLoading(t *testing.T) {
	tests := []struct {
		name   string
		setup  func()
		verify func(t *testing.T, cfg *config.Config)
	}{
		{
			name:  "default configuration",
			setup: func() {},
			verify: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.DefaultLogLevel, cfg.Log.Level)
				assert.Equal(t, config.DefaultRenderFormat, cfg.Render.Format)
				assert.Equal(t, tree.PreOrder, cfg.Order())
				assert.Equal(t, config.DefaultDebounce, cfg.Watch.Debounce)
				assert.False(t, cfg.Registry.CaseFold)
			},
		},
		{
			name: "custom configuration",
			setup: func() {
				viper.Set("log.level", "debug")
				viper.Set("render.format", "outline")
				viper.Set("render.order", "post")
				viper.Set("watch.debounce", "1s")
			},
			verify: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "outline", cfg.Render.Format)
				assert.Equal(t, tree.PostOrder, cfg.Order())
				assert.Equal(t, time.Second, cfg.Watch.Debounce)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			tt.setup()

			cfg, err := config.Load()
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

func TestIntegration_ErrorHandling(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("render.format", "pdf")
	_, err := config.Load()
	require.Error(t, err)
	viper.Reset()

	container := newContainer(t)
	b, err := container.GetBuilder()
	require.NoError(t, err)

	bad := `root:
  children:
    - leaf: A
      children: [{leaf: B}]
    - name: oops
      at: {x: 1, y: 1}
`
	_, err = b.Decode(context.Background(), strings.NewReader(bad), builder.FormatYAML)
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
	assert.Contains(t, err.Error(), "root.children[0]")
	assert.Contains(t, err.Error(), "root.children[1]")

	leaf := b.NewLeaf("circle")
	assert.True(t, errors.IsInvalidOperation(leaf.Add(b.NewLeaf("square"))))

	group := b.NewComposite("group")
	assert.True(t, errors.IsNotFound(group.Remove(leaf)))
	assert.True(t, errors.IsNullArgument(group.Add(nil)))
}

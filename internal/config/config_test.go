package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/logging"
	"github.com/conneroisu/canopy/internal/tree"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults",
			setup: func() { viper.Reset() },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
				assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
				assert.Equal(t, DefaultRenderFormat, cfg.Render.Format)
				assert.Equal(t, DefaultRenderOrder, cfg.Render.Order)
				assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
				assert.False(t, cfg.Registry.CaseFold)
				assert.Zero(t, cfg.Registry.TTL)
				assert.NotNil(t, cfg.Kinds)
			},
		},
		{
			name: "explicit values",
			setup: func() {
				viper.Reset()
				viper.Set("log.level", "debug")
				viper.Set("log.format", "json")
				viper.Set("registry.case_fold", true)
				viper.Set("render.format", "html")
				viper.Set("render.order", "post")
				viper.Set("watch.debounce", "250ms")
				viper.Set("registry.ttl", "10m")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Format)
				assert.True(t, cfg.Registry.CaseFold)
				assert.Equal(t, "html", cfg.Render.Format)
				assert.Equal(t, tree.PostOrder, cfg.Order())
				assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
				assert.Equal(t, 10*time.Minute, cfg.Registry.TTL)
			},
		},
		{
			name: "kind definitions",
			setup: func() {
				viper.Reset()
				viper.Set("kinds", map[string]interface{}{
					"star": map[string]interface{}{"name": "star", "glyph": "★", "weight": 5},
				})
			},
			check: func(t *testing.T, cfg *Config) {
				require.Contains(t, cfg.Kinds, "star")
				star := cfg.KindFactory()("star")
				assert.Equal(t, "★", star.Glyph())
				assert.Equal(t, 5, star.Weight())
				assert.Equal(t, "○", cfg.KindFactory()("circle").Glyph())
			},
		},
		{
			name: "unknown log level",
			setup: func() {
				viper.Reset()
				viper.Set("log.level", "chatty")
			},
			expectError: true,
		},
		{
			name: "unknown log format",
			setup: func() {
				viper.Reset()
				viper.Set("log.format", "xml")
			},
			expectError: true,
		},
		{
			name: "unknown render format",
			setup: func() {
				viper.Reset()
				viper.Set("render.format", "pdf")
			},
			expectError: true,
		},
		{
			name: "unknown order",
			setup: func() {
				viper.Reset()
				viper.Set("render.order", "level")
			},
			expectError: true,
		},
		{
			name: "unknown input format",
			setup: func() {
				viper.Reset()
				viper.Set("render.input", "toml")
			},
			expectError: true,
		},
		{
			name: "negative kind weight",
			setup: func() {
				viper.Reset()
				viper.Set("kinds", map[string]interface{}{
					"bad": map[string]interface{}{"weight": -1},
				})
			},
			expectError: true,
		},
		{
			name: "negative debounce",
			setup: func() {
				viper.Reset()
				viper.Set("watch.debounce", "-1s")
			},
			expectError: true,
		},
		{
			name: "negative ttl",
			setup: func() {
				viper.Reset()
				viper.Set("registry.ttl", "-5m")
			},
			expectError: true,
		},
		{
			name: "undecodable value",
			setup: func() {
				viper.Reset()
				viper.Set("watch.debounce", "soon")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			cfg, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				assert.Equal(t, errors.KindConfig, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	path := filepath.Join(dir, ".canopy.yml")
	content := `
log:
  level: warn
registry:
  case_fold: true
render:
  format: outline
  order: post
kinds:
  hex:
    name: hexagon
    glyph: ⬡
    weight: 6
watch:
  debounce: 50ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Registry.CaseFold)
	assert.Equal(t, "outline", cfg.Render.Format)
	assert.Equal(t, tree.PostOrder, cfg.Order())
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "⬡", cfg.KindFactory()("hex").Glyph())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, tree.PreOrder, cfg.Order())
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"

	var buf bytes.Buffer
	lc := cfg.LoggerConfig(&buf)

	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Same(t, &buf, lc.Output)

	logging.NewLogger(lc).Debug(context.Background(), "hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

// Package config provides configuration management for canopy using Viper
// for loading from files, environment variables, and command-line flags.
//
// The configuration supports YAML files, environment variable overrides with
// the CANOPY_ prefix, and validation. It covers logging, the kind registry,
// kind definitions that override the built-in catalog, rendering defaults,
// and the debounce interval used by the watch command.
//
// Viper lowercases map keys, so kind keys defined in configuration are
// always lowercase.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/kind"
	"github.com/conneroisu/canopy/internal/logging"
	"github.com/conneroisu/canopy/internal/tree"
)

// Default values applied by Load.
const (
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultRenderFormat = "text"
	DefaultRenderOrder  = "pre"
	DefaultDebounce     = 100 * time.Millisecond
)

// RenderFormats lists the accepted render.format values.
var RenderFormats = []string{"text", "outline", "html", "json", "yaml", "expr"}

type Config struct {
	Log         LogConfig                  `yaml:"log" mapstructure:"log"`
	Registry    RegistryConfig             `yaml:"registry" mapstructure:"registry"`
	Render      RenderConfig               `yaml:"render" mapstructure:"render"`
	Kinds       map[string]kind.Definition `yaml:"kinds" mapstructure:"kinds"`
	Watch       WatchConfig                `yaml:"watch" mapstructure:"watch"`
	TargetFiles []string                   `yaml:"-" mapstructure:"-"` // CLI arguments, not from config file
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type RegistryConfig struct {
	// CaseFold canonicalizes kind keys with Unicode case folding.
	CaseFold bool `yaml:"case_fold" mapstructure:"case_fold"`
	// TTL keeps kinds in an expiring cache shared by every tree the
	// process builds. Zero disables the cache.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type RenderConfig struct {
	// Format selects the output of render: text, outline, html, json, yaml or expr.
	Format string `yaml:"format" mapstructure:"format"`
	// Order selects pre or post order for walk.
	Order string `yaml:"order" mapstructure:"order"`
	// Input forces the input document format instead of guessing from the
	// file extension.
	Input string `yaml:"input" mapstructure:"input"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError("cannot decode configuration").WithCause(err)
	}

	// Handle case_fold set via viper (workaround for viper bool handling)
	if viper.IsSet("registry.case_fold") {
		config.Registry.CaseFold = viper.GetBool("registry.case_fold")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

func applyDefaults(config *Config) {
	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}
	if config.Render.Format == "" {
		config.Render.Format = DefaultRenderFormat
	}
	if config.Render.Order == "" {
		config.Render.Order = DefaultRenderOrder
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}
	if config.Kinds == nil {
		config.Kinds = make(map[string]kind.Definition)
	}
}

// validateConfig validates configuration values
func validateConfig(config *Config) error {
	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	if err := validateRenderConfig(&config.Render); err != nil {
		return fmt.Errorf("render config: %w", err)
	}

	if err := validateKinds(config.Kinds); err != nil {
		return fmt.Errorf("kinds config: %w", err)
	}

	if config.Registry.TTL < 0 {
		return fmt.Errorf("registry config: %w",
			errors.NewConfigError("ttl must not be negative").WithContext("ttl", config.Registry.TTL))
	}

	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: %w",
			errors.NewConfigError("debounce must not be negative").WithContext("debounce", config.Watch.Debounce))
	}

	return nil
}

func validateLogConfig(config *LogConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return errors.NewConfigError("unknown log level " + config.Level).WithCause(err)
	}

	switch config.Format {
	case "text", "json":
		return nil
	default:
		return errors.NewConfigError("log format must be text or json").WithContext("format", config.Format)
	}
}

func validateRenderConfig(config *RenderConfig) error {
	if !isRenderFormat(config.Format) {
		return errors.NewConfigError("unknown render format " + config.Format).
			WithContext("allowed", strings.Join(RenderFormats, ", "))
	}

	if _, err := tree.ParseOrder(config.Order); err != nil {
		return err
	}

	switch config.Input {
	case "", "yaml", "yml", "json", "expr":
		return nil
	default:
		return errors.NewConfigError("unknown input format " + config.Input)
	}
}

func validateKinds(kinds map[string]kind.Definition) error {
	for key, def := range kinds {
		if strings.TrimSpace(key) == "" {
			return errors.NewConfigError("kind key must not be empty")
		}
		if def.Weight < 0 {
			return errors.NewConfigError("kind weight must not be negative").WithContext("kind", key)
		}
		if strings.ContainsAny(def.Glyph, "\n\r") {
			return errors.NewConfigError("kind glyph must be a single line").WithContext("kind", key)
		}
	}
	return nil
}

func isRenderFormat(format string) bool {
	for _, f := range RenderFormats {
		if f == format {
			return true
		}
	}
	return false
}

// LoggerConfig returns the logger configuration writing to out.
func (c *Config) LoggerConfig(out io.Writer) *logging.LoggerConfig {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return &logging.LoggerConfig{
		Level:     level,
		Format:    c.Log.Format,
		Output:    out,
		Component: "canopy",
	}
}

// Order returns the configured traversal order.
func (c *Config) Order() tree.Order {
	order, err := tree.ParseOrder(c.Render.Order)
	if err != nil {
		return tree.PreOrder
	}
	return order
}

// KindFactory returns the constructor the kind registry uses, preferring
// configured definitions over the built-in catalog.
func (c *Config) KindFactory() func(string) *kind.Kind {
	return kind.Factory(c.Kinds)
}

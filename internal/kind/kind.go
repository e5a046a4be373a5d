// Package kind provides the flyweight payload shared across tree leaves.
// This package contains the intrinsic, immutable state of a leaf; per-use
// extrinsic state such as a Position is always supplied by the caller.
package kind

import (
	"fmt"
	"sort"
)

// Kind is the intrinsic state of a leaf. A Kind is immutable once built and
// is safe to share between any number of trees and goroutines.
type Kind struct {
	key    string
	name   string
	glyph  string
	weight int
}

// Definition describes the intrinsic state used to build a Kind.
type Definition struct {
	// Name is the human readable name (e.g., "circle")
	Name string `yaml:"name" mapstructure:"name"`
	// Glyph is the short value a leaf contributes to Operation
	Glyph string `yaml:"glyph" mapstructure:"glyph"`
	// Weight is the numeric value a leaf contributes to weighted folds
	Weight int `yaml:"weight" mapstructure:"weight"`
}

// Position is extrinsic state: where a particular use of a Kind sits.
type Position struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// String returns "(x, y)".
func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

var catalog = map[string]Definition{
	"circle":    {Name: "circle", Glyph: "○", Weight: 1},
	"triangle":  {Name: "triangle", Glyph: "△", Weight: 3},
	"rectangle": {Name: "rectangle", Glyph: "▭", Weight: 4},
	"square":    {Name: "square", Glyph: "□", Weight: 4},
}

// New builds the Kind for key from the built-in catalog. Keys outside the
// catalog use the key itself as name and glyph with a weight of 1.
func New(key string) *Kind {
	def, ok := catalog[key]
	if !ok {
		def = Definition{}
	}
	return FromDefinition(key, def)
}

// FromDefinition builds a Kind from an explicit definition, filling empty
// fields from the key.
func FromDefinition(key string, def Definition) *Kind {
	if def.Name == "" {
		def.Name = key
	}
	if def.Glyph == "" {
		def.Glyph = key
	}
	if def.Weight == 0 {
		def.Weight = 1
	}
	return &Kind{
		key:    key,
		name:   def.Name,
		glyph:  def.Glyph,
		weight: def.Weight,
	}
}

// Factory returns a constructor that prefers overrides and falls back to
// New. The overrides map is copied.
func Factory(overrides map[string]Definition) func(string) *Kind {
	defs := make(map[string]Definition, len(overrides))
	for k, v := range overrides {
		defs[k] = v
	}
	return func(key string) *Kind {
		if def, ok := defs[key]; ok {
			return FromDefinition(key, def)
		}
		return New(key)
	}
}

// Catalog returns the built-in kind keys in lexicographic order.
func Catalog() []string {
	keys := make([]string, 0, len(catalog))
	for k := range catalog {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Key returns the canonicalization key.
func (k *Kind) Key() string { return k.key }

// Name returns the human readable name.
func (k *Kind) Name() string { return k.name }

// Glyph returns the value a leaf of this kind contributes to Operation.
func (k *Kind) Glyph() string { return k.glyph }

// Weight returns the numeric value used by weighted folds.
func (k *Kind) Weight() int { return k.weight }

// Definition returns a copy of the intrinsic state.
func (k *Kind) Definition() Definition {
	return Definition{Name: k.name, Glyph: k.glyph, Weight: k.weight}
}

// Draw renders this kind at the caller supplied position. It never mutates
// the Kind.
func (k *Kind) Draw(pos Position) string {
	return k.name + " at " + pos.String()
}

// String returns the key.
func (k *Kind) String() string { return k.key }

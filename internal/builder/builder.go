// Package builder assembles canopy trees from external input.
//
// A Builder owns no tree state. It hands out leaves whose kinds come from a
// flyweight registry, so every leaf built with the same key shares one Kind,
// and decodes tree documents in three formats:
//
//	yaml  root: {name: row, children: [{leaf: A}, {leaf: B, at: {x: 1, y: 2}}]}
//	json  {"root": {"name": "row", "children": [{"leaf": "A"}]}}
//	expr  row(A, (B@1:2, C))
//
// Input errors are reported as parse errors carrying the path of the
// offending node.
package builder

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/flyweight"
	"github.com/conneroisu/canopy/internal/kind"
	"github.com/conneroisu/canopy/internal/logging"
	"github.com/conneroisu/canopy/internal/tree"
)

// Format names a tree document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatExpr Format = "expr"
)

// Formats lists the supported document formats.
func Formats() []Format {
	return []Format{FormatYAML, FormatJSON, FormatExpr}
}

// ParseFormat parses a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "expr", "canopy":
		return FormatExpr, nil
	default:
		return "", errors.NewParseError(errors.CodeDocument, "unknown document format "+s).
			WithContext("format", s)
	}
}

// FormatForPath picks a format from a file extension, defaulting to expr.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatExpr
	}
}

// Builder creates leaves and composites backed by a kind registry.
type Builder struct {
	kinds  *flyweight.Registry[string, *kind.Kind]
	logger logging.Logger
}

// New creates a Builder over kinds. A nil registry is replaced by one using
// the built-in catalog; a nil logger discards output.
func New(kinds *flyweight.Registry[string, *kind.Kind], logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if kinds == nil {
		kinds = flyweight.New(kind.New, flyweight.WithLogger[string](logger))
	}
	return &Builder{
		kinds:  kinds,
		logger: logger.WithComponent("builder"),
	}
}

// Kinds returns the registry leaves draw their kinds from.
func (b *Builder) Kinds() *flyweight.Registry[string, *kind.Kind] {
	return b.kinds
}

// NewLeaf returns a leaf sharing the canonical Kind for key.
func (b *Builder) NewLeaf(key string, opts ...tree.LeafOption) *tree.Leaf {
	return tree.NewLeaf(b.kinds.GetOrCreate(key), opts...)
}

// NewComposite returns an empty composite.
func (b *Builder) NewComposite(name string) *tree.Composite {
	return tree.NewComposite(name)
}

// Decode reads a document in format f and builds its tree.
func (b *Builder) Decode(ctx context.Context, r io.Reader, f Format) (tree.Element, error) {
	perf := logging.StartOperation(b.logger, "decode")

	var (
		root *Node
		err  error
	)
	switch f {
	case FormatYAML:
		root, err = decodeYAML(r)
	case FormatJSON:
		root, err = decodeJSON(r)
	case FormatExpr:
		root, err = decodeExpr(r)
	default:
		err = errors.NewParseError(errors.CodeDocument, "unknown document format "+string(f))
	}
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	el, err := b.Build(root)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	perf.End(ctx, "format", string(f), "kinds", b.kinds.Len())
	return el, nil
}

// Encode writes root to w in format f.
func Encode(w io.Writer, root tree.Element, f Format) error {
	if root == nil {
		return errors.NewNullArgument("encode", errors.CodeNilChild, "root")
	}
	switch f {
	case FormatYAML:
		return encodeYAML(w, Snapshot(root))
	case FormatJSON:
		return encodeJSON(w, Snapshot(root))
	case FormatExpr:
		_, err := io.WriteString(w, Expr(root)+"\n")
		return err
	default:
		return errors.NewParseError(errors.CodeDocument, "unknown document format "+string(f))
	}
}

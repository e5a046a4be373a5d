package builder

import (
	stderrors "errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/canopy/internal/errors"
)

type yamlDocument struct {
	Root *Node `yaml:"root"`
}

func decodeYAML(r io.Reader) (*Node, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.NewParseError(errors.CodeDocument, "empty yaml document")
		}
		return nil, errors.NewParseError(errors.CodeSyntax, "invalid yaml document").WithCause(err)
	}
	if doc.Root == nil {
		return nil, errors.NewParseError(errors.CodeDocument, "document has no root").WithPath("root")
	}
	return doc.Root, nil
}

func encodeYAML(w io.Writer, root *Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlDocument{Root: root}); err != nil {
		return err
	}
	return enc.Close()
}

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/canopy/internal/di"
	"github.com/conneroisu/canopy/internal/flyweight"
	"github.com/conneroisu/canopy/internal/kind"
)

var kindsCmd = &cobra.Command{
	Use:     "kinds [file]",
	Aliases: []string{"k"},
	Short:   "List the shared leaf kinds",
	Long: `List the kinds held by the flyweight registry together with the
number of lookups each one served.

With a document, the registry holds exactly the kinds the document uses.
Without one, it is filled with the built-in catalog and every kind defined
in the configuration.

Examples:
  canopy kinds                 # Built-in and configured kinds
  canopy kinds tree.yaml       # Kinds used by a document
  canopy kinds -o yaml tree.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKinds,
}

var (
	kindsFlags  *StandardFlags
	kindsOutput string
)

func init() {
	rootCmd.AddCommand(kindsCmd)

	kindsFlags = AddStandardFlags(kindsCmd, "output")
	kindsCmd.Flags().StringVarP(&kindsOutput, "output", "o", "table", "Output format (table, yaml)")

	AddFlagValidation(kindsCmd, "output", func(format string) error {
		return ValidateFormatWithSuggestion(format, []string{"table", "yaml"})
	})
}

// kindRow is one registry entry as printed by kinds.
type kindRow struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Glyph  string `yaml:"glyph"`
	Weight int    `yaml:"weight"`
	Hits   int64  `yaml:"hits"`
}

func runKinds(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close(cmd)

	kinds := s.builder.Kinds()
	if len(args) == 1 {
		if err := ValidateFileExists(args[0]); err != nil {
			return err
		}
		if _, err := s.load(cmd.Context(), args[0], cmd.InOrStdin()); err != nil {
			return err
		}
	} else {
		preload(kinds, knownKeys(s.cfg.Kinds))
	}

	w, closeOut, err := kindsFlags.Writer(cmd)
	if err != nil {
		return err
	}
	if err := writeKinds(w, kindRows(kinds), kindsOutput); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

// knownKeys returns the catalog keys merged with configured ones.
func knownKeys(defs map[string]kind.Definition) []string {
	seen := make(map[string]bool)
	keys := kind.Catalog()
	for _, k := range keys {
		seen[k] = true
	}
	for k := range defs {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func preload(kinds *di.KindRegistry, keys []string) {
	for _, key := range keys {
		kinds.GetOrCreate(key)
	}
}

func kindRows(kinds *di.KindRegistry) []kindRow {
	entries := flyweight.SortedEntries(kinds)
	rows := make([]kindRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, kindRow{
			Key:    e.Key,
			Name:   e.Value.Name(),
			Glyph:  e.Value.Glyph(),
			Weight: e.Value.Weight(),
			Hits:   e.Hits,
		})
	}
	return rows
}

func writeKinds(w io.Writer, rows []kindRow, format string) error {
	if strings.ToLower(format) == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No kinds registered.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tGLYPH\tWEIGHT\tHITS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", r.Key, r.Name, r.Glyph, r.Weight, r.Hits)
	}
	return tw.Flush()
}

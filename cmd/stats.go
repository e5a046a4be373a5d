package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/francoispqt/gojay"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/canopy/internal/tree"
	"github.com/conneroisu/canopy/internal/visitor"
)

var statsCmd = &cobra.Command{
	Use:   "stats [file|-]",
	Short: "Summarize a tree document",
	Long: `Count the leaves and composites of a tree, measure its depth and
show how leaves share kinds through the registry.

Examples:
  canopy stats tree.yaml             # Table output
  canopy stats -o json tree.canopy   # JSON output
  canopy stats -o yaml tree.json     # YAML output`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

var (
	statsFlags  *StandardFlags
	statsOutput string
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsFlags = AddStandardFlags(statsCmd, "output")
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "table", "Output format (table, json, yaml)")

	AddFlagValidation(statsCmd, "output", func(format string) error {
		return ValidateFormatWithSuggestion(format, []string{"table", "json", "yaml"})
	})
}

// statsReport is the summary printed by stats.
type statsReport struct {
	Leaves        int         `yaml:"leaves"`
	Composites    int         `yaml:"composites"`
	Depth         int         `yaml:"depth"`
	Weight        int         `yaml:"weight"`
	Constructions int64       `yaml:"constructions"`
	Shared        bool        `yaml:"shared"`
	Kinds         []kindCount `yaml:"kinds"`
}

type kindCount struct {
	Key    string `yaml:"key"`
	Leaves int    `yaml:"leaves"`
}

func (r *statsReport) MarshalJSONObject(enc *gojay.Encoder) {
	enc.IntKey("leaves", r.Leaves)
	enc.IntKey("composites", r.Composites)
	enc.IntKey("depth", r.Depth)
	enc.IntKey("weight", r.Weight)
	enc.Int64Key("constructions", r.Constructions)
	enc.BoolKey("shared", r.Shared)
	enc.ArrayKey("kinds", kindCounts(r.Kinds))
}

func (r *statsReport) IsNil() bool { return r == nil }

type kindCounts []kindCount

func (k kindCounts) MarshalJSONArray(enc *gojay.Encoder) {
	for i := range k {
		enc.Object(&k[i])
	}
}

func (k kindCounts) IsNil() bool { return k == nil }

func (k *kindCount) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("key", k.Key)
	enc.IntKey("leaves", k.Leaves)
}

func (k *kindCount) IsNil() bool { return k == nil }

// collectStats runs the counting visitors over root.
func collectStats(root tree.Element, constructions int64) (*statsReport, error) {
	counter := &visitor.Counter{}
	depth := &visitor.Depth{}
	tally := visitor.NewTally()
	for _, v := range []tree.Visitor{counter, depth, tally} {
		if err := root.Accept(v); err != nil {
			return nil, err
		}
	}

	report := &statsReport{
		Leaves:        counter.Leaves,
		Composites:    counter.Composites,
		Depth:         depth.Max,
		Weight:        tree.Weight(root),
		Constructions: constructions,
		Shared:        tally.Shared(),
		Kinds:         make([]kindCount, 0, len(tally.Keys())),
	}
	for _, key := range tally.Keys() {
		report.Kinds = append(report.Kinds, kindCount{Key: key, Leaves: tally.Count(key)})
	}
	return report, nil
}

func runStats(cmd *cobra.Command, args []string) error {
	path := documentArg(args)
	if err := ValidateFileExists(path); err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close(cmd)

	root, err := s.load(cmd.Context(), path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	report, err := collectStats(root, s.builder.Kinds().Constructions())
	if err != nil {
		return err
	}

	w, closeOut, err := statsFlags.Writer(cmd)
	if err != nil {
		return err
	}
	if err := writeStats(w, report, statsOutput); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func writeStats(w io.Writer, report *statsReport, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := gojay.BorrowEncoder(w)
		defer enc.Release()
		if err := enc.EncodeObject(report); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeStatsTable(w, report)
	}
}

func writeStatsTable(w io.Writer, report *statsReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Leaves\t%d\n", report.Leaves)
	fmt.Fprintf(tw, "Composites\t%d\n", report.Composites)
	fmt.Fprintf(tw, "Depth\t%d\n", report.Depth)
	fmt.Fprintf(tw, "Weight\t%d\n", report.Weight)
	fmt.Fprintf(tw, "Kinds constructed\t%d\n", report.Constructions)
	fmt.Fprintf(tw, "Shared\t%t\n", report.Shared)
	if len(report.Kinds) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "KIND\tLEAVES")
		for _, k := range report.Kinds {
			fmt.Fprintf(tw, "%s\t%d\n", k.Key, k.Leaves)
		}
	}
	return tw.Flush()
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/canopy/internal/tree"
	"github.com/conneroisu/canopy/internal/visitor"
)

var walkCmd = &cobra.Command{
	Use:     "walk [file|-]",
	Aliases: []string{"w"},
	Short:   "List the elements of a tree in visit order",
	Long: `Visit every element of a tree exactly once and print one line per
element: its depth, whether it is a leaf or a composite, and its label.
Leaves are labelled with their glyph, composites with their name or "*".

Examples:
  canopy walk tree.yaml               # Pre-order
  canopy walk --order post tree.yaml  # Post-order
  canopy walk --ids tree.canopy       # Include element IDs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWalk,
}

var (
	walkFlags *StandardFlags
	walkOrder string
	walkIDs   bool
)

func init() {
	rootCmd.AddCommand(walkCmd)

	walkFlags = AddStandardFlags(walkCmd, "output")
	walkCmd.Flags().StringVar(&walkOrder, "order", "pre", "Visit order (pre, post)")
	walkCmd.Flags().BoolVar(&walkIDs, "ids", false, "Print element IDs")

	AddFlagValidation(walkCmd, "order", func(order string) error {
		_, err := tree.ParseOrder(order)
		return err
	})
}

func runWalk(cmd *cobra.Command, args []string) error {
	path := documentArg(args)
	if err := ValidateFileExists(path); err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close(cmd)

	order := s.cfg.Order()
	if cmd.Flags().Changed("order") {
		if order, err = tree.ParseOrder(walkOrder); err != nil {
			return err
		}
	}

	root, err := s.load(cmd.Context(), path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	collector := visitor.NewCollector(order)
	if err := root.Accept(collector); err != nil {
		return err
	}

	w, closeOut, err := walkFlags.Writer(cmd)
	if err != nil {
		return err
	}
	if err := writeEntries(w, collector.Entries, walkIDs); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func writeEntries(w io.Writer, entries []visitor.Entry, withIDs bool) error {
	for _, e := range entries {
		role := "composite"
		if e.Leaf {
			role = "leaf"
		}
		line := fmt.Sprintf("%d %-9s %s%s", e.Depth, role, strings.Repeat("  ", e.Depth), e.Label)
		if withIDs {
			line += " " + e.ID.String()
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/canopy/internal/builder"
)

var convertCmd = &cobra.Command{
	Use:     "convert [file|-]",
	Aliases: []string{"c"},
	Short:   "Re-encode a tree document in another format",
	Long: `Decode a tree document and write it back as YAML, JSON or the compact
notation. Kinds keep their keys and leaves keep their positions.

Examples:
  canopy convert -o json tree.canopy               # Compact notation to JSON
  canopy convert -o expr tree.yaml                 # YAML to compact notation
  canopy convert -o yaml --out tree.yaml tree.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

var (
	convertFlags  *StandardFlags
	convertOutput string
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertFlags = AddStandardFlags(convertCmd, "output")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", string(builder.FormatYAML), "Target format (yaml, json, expr)")

	AddFlagValidation(convertCmd, "output", func(format string) error {
		_, err := builder.ParseFormat(format)
		return err
	})
}

func runConvert(cmd *cobra.Command, args []string) error {
	path := documentArg(args)
	if err := ValidateFileExists(path); err != nil {
		return err
	}

	target, err := builder.ParseFormat(convertOutput)
	if err != nil {
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

	w, closeOut, err := convertFlags.Writer(cmd)
	if err != nil {
		return err
	}
	if err := builder.Encode(w, root, target); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

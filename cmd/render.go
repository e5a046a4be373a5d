package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/canopy/internal/config"
)

var renderCmd = &cobra.Command{
	Use:     "render [file|-]",
	Aliases: []string{"r"},
	Short:   "Render a tree document",
	Long: `Build the tree described by a document and render it.

Formats:
  text     the tree's operation, leaves concatenated in order (default)
  outline  one line per element, indented by depth
  html     nested lists, one item per leaf
  json, yaml, expr
           the tree re-encoded as a document

Examples:
  canopy render tree.yaml                  # Print the operation
  canopy render -f outline tree.canopy     # Indented outline
  echo '(A, (B, C))' | canopy render       # Read compact notation from stdin
  canopy render -f html --out tree.html tree.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

var (
	renderFlags  *StandardFlags
	renderFormat string
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderFlags = AddStandardFlags(renderCmd, "output")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", config.DefaultRenderFormat,
		"Output format (text, outline, html, json, yaml, expr)")

	AddFlagValidation(renderCmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, config.RenderFormats)
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	path := documentArg(args)
	if err := ValidateFileExists(path); err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close(cmd)

	if cmd.Flags().Changed("format") {
		s.cfg.Render.Format = renderFormat
	}

	root, err := s.load(cmd.Context(), path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	w, closeOut, err := renderFlags.Writer(cmd)
	if err != nil {
		return err
	}
	if err := renderTree(w, root, s.cfg.Render.Format); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/canopy/internal/config"
	"github.com/conneroisu/canopy/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch file",
	Short: "Rerender a tree document whenever it changes",
	Long: `Render a tree document, then watch it and render it again after
every change. Changes arriving in quick succession are debounced
(watch.debounce in the configuration). Kinds stay shared across rebuilds.
With registry.ttl set, every rebuild gets its own registry and kinds left
unused for longer than the ttl are constructed again.

Examples:
  canopy watch tree.yaml                # Rerender the operation
  canopy watch -f outline tree.canopy   # Rerender an outline
  canopy watch -v tree.json             # Also report each change`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchFlags  *StandardFlags
	watchFormat string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags = AddStandardFlags(watchCmd, "verbosity")
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", config.DefaultRenderFormat,
		"Output format (text, outline, html, json, yaml, expr)")

	AddFlagValidation(watchCmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, config.RenderFormats)
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := watchFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	path := args[0]
	if err := ValidateFileExists(path); err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close(cmd)

	if cmd.Flags().Changed("format") {
		s.cfg.Render.Format = watchFormat
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchDocument(ctx, s, path, cmd.OutOrStdout(), watchFlags)
}

// watchDocument renders path once and again after every change until ctx
// is done. Load errors are reported and watching continues.
func watchDocument(ctx context.Context, s *session, path string, out io.Writer, flags *StandardFlags) error {
	fileWatcher, err := s.container.NewFileWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	if err := fileWatcher.WatchFile(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	var mu sync.Mutex
	rerender := func(ctx context.Context) {
		mu.Lock()
		defer mu.Unlock()

		b := s.builder
		if s.cfg.Registry.TTL > 0 {
			fresh, err := s.container.NewTreeBuilder()
			if err != nil {
				s.logger.Error(ctx, err, "Rebuild failed", "path", path)
				return
			}
			b = fresh
		}

		root, err := s.loadWith(ctx, b, path, nil)
		if err != nil {
			s.logger.Error(ctx, err, "Rebuild failed", "path", path)
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		if err := renderTree(out, root, s.cfg.Render.Format); err != nil {
			s.logger.Error(ctx, err, "Render failed", "path", path)
		}
	}

	fileWatcher.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, event := range events {
			if flags.Verbose {
				fmt.Fprintf(out, "# %s: %s\n", event.Type, event.Path)
			}
			if event.Type == watcher.EventTypeDeleted {
				s.logger.Warn(ctx, nil, "Watched document was removed", "path", event.Path)
				return nil
			}
		}
		rerender(ctx)
		return nil
	})

	rerender(ctx)

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	if !flags.Quiet {
		s.logger.Info(ctx, "Watching for changes", "path", path, "debounce", s.cfg.Watch.Debounce)
	}

	<-ctx.Done()
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/canopy/internal/builder"
	"github.com/conneroisu/canopy/internal/config"
	"github.com/conneroisu/canopy/internal/di"
	"github.com/conneroisu/canopy/internal/logging"
	"github.com/conneroisu/canopy/internal/tree"
	"github.com/conneroisu/canopy/internal/visitor"
)

// session holds the services of one command invocation.
type session struct {
	cfg       *config.Config
	container *di.ServiceContainer
	logger    logging.Logger
	builder   *builder.Builder
}

// newSession loads the configuration and resolves the services commands
// share. The caller must close the session.
func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return newSessionWith(di.NewServiceContainer(cfg))
}

func newSessionWith(container *di.ServiceContainer) (*session, error) {
	if err := container.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize service container: %w", err)
	}
	logger, err := container.GetLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get logger: %w", err)
	}
	b, err := container.GetBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree builder: %w", err)
	}
	return &session{
		cfg:       container.Config(),
		container: container,
		logger:    logger,
		builder:   b,
	}, nil
}

func (s *session) close(cmd *cobra.Command) {
	if err := s.container.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Error during container shutdown: %v\n", err)
	}
}

// inputFormat picks the document format of path: the configured input
// format when set, otherwise the one implied by the file extension.
func (s *session) inputFormat(path string) (builder.Format, error) {
	if s.cfg.Render.Input != "" {
		return builder.ParseFormat(s.cfg.Render.Input)
	}
	return builder.FormatForPath(path), nil
}

// load decodes the document at path. An empty path or "-" reads stdin.
func (s *session) load(ctx context.Context, path string, stdin io.Reader) (tree.Element, error) {
	return s.loadWith(ctx, s.builder, path, stdin)
}

func (s *session) loadWith(ctx context.Context, b *builder.Builder, path string, stdin io.Reader) (tree.Element, error) {
	format, err := s.inputFormat(path)
	if err != nil {
		return nil, err
	}

	var r io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open document: %w", err)
		}
		defer f.Close()
		r = f
	}

	root, err := b.Decode(ctx, r, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", displayName(path), err)
	}
	return root, nil
}

func displayName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}

func documentArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// renderTree writes root to w in one of config.RenderFormats.
func renderTree(w io.Writer, root tree.Element, format string) error {
	switch strings.ToLower(format) {
	case "text":
		_, err := fmt.Fprintln(w, root.Operation())
		return err
	case "outline":
		outline := &visitor.Outline{}
		if err := root.Accept(outline); err != nil {
			return err
		}
		_, err := io.WriteString(w, outline.String())
		return err
	case "html":
		h := visitor.NewHTML()
		if err := root.Accept(h); err != nil {
			return err
		}
		if err := h.Render(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	case "json", "yaml", "expr":
		f, err := builder.ParseFormat(format)
		if err != nil {
			return err
		}
		return builder.Encode(w, root, f)
	default:
		return fmt.Errorf("unsupported render format: %s (supported: %s)",
			format, strings.Join(config.RenderFormats, ", "))
	}
}

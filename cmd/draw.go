package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/canopy/internal/di"
	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/flyweight"
	"github.com/conneroisu/canopy/internal/kind"
)

var drawCmd = &cobra.Command{
	Use:   "draw [file|-]",
	Short: "Draw shapes, sharing one kind per shape type",
	Long: `Read draw commands, one per line, and draw each shape at its position.
A command is a kind followed by two integer coordinates:

  CIRCLE 0 0
  CIRCLE 3 4

The first use of a kind prints "drawn", later uses print "shared" because
they reuse the kind already in the registry. Blank lines and lines
starting with # are ignored.

Examples:
  printf 'CIRCLE 0 0\nCIRCLE 3 4\n' | canopy draw
  canopy draw --case-fold shapes.txt
  canopy draw -v shapes.txt          # Also print the registry afterwards`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDraw,
}

var drawFlags *StandardFlags

func init() {
	rootCmd.AddCommand(drawCmd)

	drawFlags = AddStandardFlags(drawCmd, "output", "verbosity")
}

func runDraw(cmd *cobra.Command, args []string) error {
	if err := drawFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	path := documentArg(args)
	if err := ValidateFileExists(path); err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close(cmd)

	var in io.Reader = cmd.InOrStdin()
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open commands: %w", err)
		}
		defer f.Close()
		in = f
	}

	w, closeOut, err := drawFlags.Writer(cmd)
	if err != nil {
		return err
	}

	c := newCanvas(s.builder.Kinds(), w)
	defer c.close()

	if err := c.run(in, displayName(path)); err != nil {
		closeOut()
		return err
	}
	if drawFlags.Verbose {
		fmt.Fprintf(w, "# %d kinds for %d shapes\n", s.builder.Kinds().Len(), c.shapes)
	}
	return closeOut()
}

// canvas draws shapes whose kinds come from a registry. Registry events
// tell it whether a draw constructed the kind or shared an existing one.
type canvas struct {
	kinds  *di.KindRegistry
	events <-chan flyweight.Event[string]
	out    io.Writer
	shapes int
}

func newCanvas(kinds *di.KindRegistry, out io.Writer) *canvas {
	return &canvas{kinds: kinds, events: kinds.Watch(), out: out}
}

func (c *canvas) close() {
	c.kinds.UnWatch(c.events)
}

// run draws every command read from r. It stops at the first malformed
// line.
func (c *canvas) run(r io.Reader, source string) error {
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		name, pos, err := parseDrawCommand(text)
		if err != nil {
			return err.WithPath(fmt.Sprintf("%s:%d", source, line))
		}
		if err := c.draw(name, pos); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (c *canvas) draw(name string, pos kind.Position) error {
	k := c.kinds.GetOrCreate(name)
	c.shapes++

	status := "shared"
	for pending := true; pending; {
		select {
		case e := <-c.events:
			if e.Type == flyweight.EventCreated && e.Key == k.Key() {
				status = "drawn"
			}
		default:
			pending = false
		}
	}

	_, err := fmt.Fprintf(c.out, "%s %s at %s\n", name, status, pos)
	return err
}

func parseDrawCommand(text string) (string, kind.Position, *errors.CanopyError) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return "", kind.Position{}, errors.NewParseError(errors.CodeSyntax, "expected KIND X Y").
			WithContext("command", text)
	}
	x, errX := strconv.Atoi(fields[1])
	y, errY := strconv.Atoi(fields[2])
	if errX != nil || errY != nil {
		return "", kind.Position{}, errors.NewParseError(errors.CodeSyntax, "coordinates must be integers").
			WithContext("command", text)
	}
	return fields[0], kind.Position{X: x, Y: y}, nil
}

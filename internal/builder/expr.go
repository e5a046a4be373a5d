package builder

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"

	"github.com/conneroisu/canopy/internal/errors"
	"github.com/conneroisu/canopy/internal/kind"
	"github.com/conneroisu/canopy/internal/tree"
)

// Compact notation:
//
//	element   = composite | leaf
//	composite = [name] "(" [element {"," element}] ")"
//	leaf      = (key | 'quoted key') ["@" x ":" y]
//
// Names must touch their opening parenthesis: row(A, B).

const (
	whitespaceToken = iota
	comaTerminatorToken
	groupBlockToken
	quotedToken
)

var (
	whitespaceMatcher     = parsly.NewToken(whitespaceToken, " ", matcher.NewWhiteSpace())
	comaTerminatorMatcher = parsly.NewToken(comaTerminatorToken, "coma", matcher.NewTerminator(',', true))
	groupBlockMatcher     = parsly.NewToken(groupBlockToken, "( .... )", matcher.NewBlock('(', ')', '\\'))
	quotedMatcher         = parsly.NewToken(quotedToken, "' .... '", matcher.NewQuote('\'', '\\'))
)

func decodeExpr(r io.Reader) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewParseError(errors.CodeDocument, "cannot read expression").WithCause(err)
	}
	return ParseExpr(string(data))
}

// ParseExpr parses a compact notation document holding exactly one element.
func ParseExpr(input string) (*Node, error) {
	nodes, err := parseList([]byte(input), "")
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 0:
		return nil, errors.NewParseError(errors.CodeDocument, "empty expression").WithPath("root")
	case 1:
		return nodes[0], nil
	default:
		return nil, errors.NewParseError(errors.CodeSyntax, "expression must have a single root element").
			WithPath("root").WithContext("elements", len(nodes))
	}
}

func parseList(input []byte, path string) ([]*Node, error) {
	var nodes []*Node
	cursor := parsly.NewCursor("", input, 0)
	for {
		cursor.MatchAny(whitespaceMatcher)
		if cursor.Pos >= len(cursor.Input) {
			if len(nodes) > 0 {
				return nil, syntaxError(listPath(path), "expected element after ','")
			}
			return nodes, nil
		}

		elemPath := listPath(path)
		if path != "" {
			elemPath = fmt.Sprintf("%s[%d]", path, len(nodes))
		}
		node, more, err := parseElement(cursor, elemPath)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
		if !more {
			return nodes, nil
		}
	}
}

// listPath names a list for error reporting; the top level list is the
// document root.
func listPath(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

// parseElement reads one element and its trailing separator. more reports
// whether a ',' followed.
func parseElement(cursor *parsly.Cursor, path string) (*Node, bool, error) {
	name := ""
	if n := namePrefix(cursor.Input[cursor.Pos:]); n > 0 {
		name = string(cursor.Input[cursor.Pos : cursor.Pos+n])
		cursor.Pos += n
	}

	match := cursor.MatchAny(groupBlockMatcher, quotedMatcher, comaTerminatorMatcher)
	switch match.Code {
	case groupBlockToken:
		text := match.Text(cursor)
		children, err := parseList([]byte(text[1:len(text)-1]), path)
		if err != nil {
			return nil, false, err
		}
		rest, more := tail(cursor)
		if strings.TrimSpace(rest) != "" {
			return nil, false, syntaxError(path, "unexpected "+strconv.Quote(strings.TrimSpace(rest))+" after group")
		}
		return &Node{Name: name, Children: children}, more, nil

	case quotedToken:
		key := unquote(match.Text(cursor))
		rest, more := tail(cursor)
		node, err := leafNode(key, strings.TrimSpace(rest), path)
		return node, more, err

	case comaTerminatorToken:
		text := match.Text(cursor)
		node, err := bareLeaf(text[:len(text)-1], path)
		return node, true, err

	default:
		rest := string(cursor.Input[cursor.Pos:])
		cursor.Pos = len(cursor.Input)
		node, err := bareLeaf(rest, path)
		return node, false, err
	}
}

// tail consumes input up to and including the next ','.
func tail(cursor *parsly.Cursor) (string, bool) {
	match := cursor.MatchAny(comaTerminatorMatcher)
	if match.Code == comaTerminatorToken {
		text := match.Text(cursor)
		return text[:len(text)-1], true
	}
	rest := string(cursor.Input[cursor.Pos:])
	cursor.Pos = len(cursor.Input)
	return rest, false
}

func bareLeaf(token, path string) (*Node, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, syntaxError(path, "empty element")
	}
	if strings.ContainsAny(token, "()'") {
		return nil, syntaxError(path, "unexpected "+strconv.Quote(token))
	}
	key, suffix := token, ""
	if i := strings.LastIndexByte(token, '@'); i >= 0 {
		key, suffix = strings.TrimSpace(token[:i]), token[i:]
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return nil, syntaxError(path, "unexpected whitespace in "+strconv.Quote(key))
	}
	return leafNode(key, suffix, path)
}

// leafNode builds a leaf from key and an optional "@x:y" suffix.
func leafNode(key, suffix, path string) (*Node, error) {
	if key == "" {
		return nil, syntaxError(path, "empty leaf key")
	}
	node := &Node{Leaf: key}
	if suffix == "" {
		return node, nil
	}
	if suffix[0] != '@' {
		return nil, syntaxError(path, "unexpected "+strconv.Quote(suffix)+" after leaf")
	}
	xs, ys, ok := strings.Cut(suffix[1:], ":")
	if !ok {
		return nil, syntaxError(path, "position must be @x:y")
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return nil, syntaxError(path, "invalid position "+strconv.Quote(suffix))
	}
	node.At = &kind.Position{X: x, Y: y}
	return node, nil
}

// namePrefix returns the length of a composite name directly followed by
// '(' at the start of b, or 0.
func namePrefix(b []byte) int {
	n := 0
	for n < len(b) {
		r, size := utf8.DecodeRune(b[n:])
		if !isNameRune(r) {
			break
		}
		n += size
	}
	if n > 0 && n < len(b) && b[n] == '(' {
		return n
	}
	return 0
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
}

func unquote(text string) string {
	if len(text) >= 2 {
		text = text[1 : len(text)-1]
	}
	if !strings.Contains(text, `\`) {
		return text
	}
	var b strings.Builder
	escaped := false
	for _, r := range text {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

func syntaxError(path, msg string) *errors.CanopyError {
	return errors.NewParseError(errors.CodeSyntax, msg).WithPath(path)
}

// Expr renders root in compact notation. Composite names that are not
// valid identifiers are dropped.
func Expr(root tree.Element) string {
	return tree.Fold(root,
		func(l *tree.Leaf) string {
			s := quoteKey(l.Kind().Key())
			if pos := l.Position(); pos != (kind.Position{}) {
				s += fmt.Sprintf("@%d:%d", pos.X, pos.Y)
			}
			return s
		},
		func(c *tree.Composite, children []string) string {
			var b bytes.Buffer
			if isName(c.Name()) {
				b.WriteString(c.Name())
			}
			b.WriteByte('(')
			b.WriteString(strings.Join(children, ", "))
			b.WriteByte(')')
			return b.String()
		},
	)
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isNameRune(r) {
			return false
		}
	}
	return true
}

func quoteKey(key string) string {
	if key != "" && !strings.ContainsAny(key, " \t\r\n,()'@\\") {
		return key
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range key {
		if r == '\'' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

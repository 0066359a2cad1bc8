// Package javascript parses JavaScript source into a tree.Tree using the
// tree-sitter JavaScript grammar.
package javascript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/leapstack-labs/leaplint/pkg/source"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

// DefaultMaxFileSize is the largest input accepted unless overridden.
const DefaultMaxFileSize = 10 * 1024 * 1024

// ErrFileTooLarge is returned when the input exceeds the configured limit.
var ErrFileTooLarge = errors.New("file too large")

// Option configures a Parser.
type Option func(*Parser)

// WithMaxFileSize sets the maximum input size in bytes.
func WithMaxFileSize(bytes int) Option {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Parser implements tree.Parser for JavaScript. It is safe for concurrent
// use: every call creates its own tree-sitter parser.
type Parser struct {
	maxFileSize int
	logger      *slog.Logger
}

var _ tree.Parser = (*Parser)(nil)

// New creates a JavaScript parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses text. Inputs containing ERROR or MISSING nodes yield a
// *tree.SyntaxError located at the first such node.
func (p *Parser) Parse(ctx context.Context, text *source.Text) (*tree.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if text.Len() > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, text.Len(), p.maxFileSize)
	}
	content := text.Bytes()
	if !utf8.Valid(content) {
		return nil, &tree.SyntaxError{Message: "content is not valid UTF-8", Line: 1, Column: 1}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tsTree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tsTree.Close()

	root := tsTree.RootNode()
	if root == nil {
		return nil, errors.New("tree-sitter returned nil root node")
	}
	if root.HasError() {
		serr := firstError(root, text)
		p.logger.Debug("syntax error",
			slog.Int("line", serr.Line),
			slog.Int("column", serr.Column),
			slog.String("message", serr.Message))
		return nil, serr
	}

	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()
	spec := convert(cursor)
	return tree.Build(text, spec), nil
}

// convert copies the node under the cursor and its subtree into a Spec.
func convert(c *sitter.TreeCursor) tree.Spec {
	n := c.CurrentNode()
	spec := tree.Spec{
		Kind:      n.Type(),
		Field:     c.CurrentFieldName(),
		Anonymous: !n.IsNamed(),
		Range:     source.Range{Start: int(n.StartByte()), End: int(n.EndByte())},
	}
	if c.GoToFirstChild() {
		for {
			spec.Children = append(spec.Children, convert(c))
			if !c.GoToNextSibling() {
				break
			}
		}
		c.GoToParent()
	}
	return spec
}

func firstError(root *sitter.Node, text *source.Text) *tree.SyntaxError {
	bad := findErrorNode(root)
	if bad == nil {
		bad = root
	}
	offset := int(bad.StartByte())
	pos := text.PositionFor(offset)

	msg := "Parsing error: unexpected token"
	switch {
	case bad.IsMissing():
		msg = fmt.Sprintf("Parsing error: missing %q", bad.Type())
	case bad.EndByte() > bad.StartByte():
		snippet := text.Slice(source.Range{Start: offset, End: int(bad.EndByte())})
		if r, _ := utf8.DecodeRuneInString(snippet); r != utf8.RuneError {
			msg = fmt.Sprintf("Parsing error: unexpected token %q", string(r))
		}
	case offset >= text.Len():
		msg = "Parsing error: unexpected end of input"
	}
	return &tree.SyntaxError{Message: msg, Offset: offset, Line: pos.Line, Column: pos.Column}
}

// findErrorNode returns the first ERROR or MISSING node in pre-order.
func findErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if found := findErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

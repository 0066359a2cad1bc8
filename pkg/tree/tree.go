package tree

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leaplint/pkg/source"
)

// Parser turns source text into a Tree. Implementations return a
// *SyntaxError when the text cannot be parsed.
type Parser interface {
	Parse(ctx context.Context, text *source.Text) (*Tree, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, text *source.Text) (*Tree, error)

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, text *source.Text) (*Tree, error) {
	return f(ctx, text)
}

// SyntaxError reports source text that could not be parsed.
type SyntaxError struct {
	Message string
	Offset  int
	Line    int
	Column  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Tree is an immutable program tree bound to the text it was parsed from.
type Tree struct {
	root *Node
	text *source.Text
	size int
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Source returns the text the tree was parsed from.
func (t *Tree) Source() *source.Text { return t.text }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return t.size }

// Text returns the source text covered by n.
func (t *Tree) Text(n *Node) string {
	if n == nil {
		return ""
	}
	return t.text.Slice(n.rng)
}

// Walk visits every node in depth-first pre-order. If fn returns false the
// node's subtree is skipped.
func (t *Tree) Walk(fn func(n *Node) bool) {
	walk(t.root, fn)
}

func walk(n *Node, fn func(n *Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.children {
		walk(c, fn)
	}
}

// Spec describes a node to be built. Parsers produce a Spec hierarchy and
// hand it to Build, which links parents and freezes the result.
type Spec struct {
	Kind      string
	Field     string
	Anonymous bool
	Range     source.Range
	Children  []Spec
}

// Build creates an immutable Tree from a Spec hierarchy.
func Build(text *source.Text, root Spec) *Tree {
	t := &Tree{text: text}
	t.root = t.build(root, nil, 0)
	return t
}

func (t *Tree) build(spec Spec, parent *Node, index int) *Node {
	n := &Node{
		kind:   spec.Kind,
		field:  spec.Field,
		named:  !spec.Anonymous,
		rng:    spec.Range,
		parent: parent,
		index:  index,
		id:     t.size,
	}
	t.size++
	if len(spec.Children) > 0 {
		n.children = make([]*Node, len(spec.Children))
		for i, c := range spec.Children {
			n.children[i] = t.build(c, n, i)
		}
	}
	return n
}

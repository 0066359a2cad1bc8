// Package selector parses and matches the selector strings rules use to
// subscribe to nodes.
//
// Supported syntax:
//
//	kind                  nodes of a kind
//	*                     any node
//	kind:exit             fire when leaving the node instead of entering it
//	a b                   b with an ancestor matching a
//	a > b                 b whose parent matches a
//	kind[left]            a child is stored under field "left"
//	kind[left="x"]        that child's text equals x (also != and /regex/)
//	kind[text=/re/]       the node's own text matches
//	kind[field="name"]    the node itself hangs under field "name"
//	a, b                  either; fires once per node
//
// The kind Program matches the root and is also dispatched as a virtual
// event before the first and after the last node.
package selector

import (
	"regexp"

	"github.com/leapstack-labs/leaplint/pkg/tree"
)

// ProgramKind is the virtual kind dispatched around the whole traversal.
const ProgramKind = "Program"

type combinator int

const (
	descendant combinator = iota
	child
)

type attrOp int

const (
	opExists attrOp = iota
	opEqual
	opNotEqual
	opRegex
)

type attribute struct {
	name  string
	op    attrOp
	value string
	re    *regexp.Regexp
}

type compound struct {
	kind  string // "" matches any kind
	attrs []attribute
}

// Selector is one compiled alternative of a selector string.
type Selector struct {
	raw   string
	exit  bool
	parts []compound
	combs []combinator // combs[i] joins parts[i] and parts[i+1]
}

// String returns the source of this alternative.
func (s *Selector) String() string { return s.raw }

// Exit reports whether the selector fires on the exit edge.
func (s *Selector) Exit() bool { return s.exit }

// Kind returns the kind of the right-most compound, or "" for a wildcard.
// It is the key the selector is indexed under.
func (s *Selector) Kind() string { return s.parts[len(s.parts)-1].kind }

// Match reports whether n satisfies the selector. Matching is pure: it only
// reads n, its ancestors and the tree's text.
func (s *Selector) Match(t *tree.Tree, n *tree.Node) bool {
	return s.matchAt(t, len(s.parts)-1, n)
}

func (s *Selector) matchAt(t *tree.Tree, i int, n *tree.Node) bool {
	if !s.parts[i].match(t, n) {
		return false
	}
	if i == 0 {
		return true
	}
	switch s.combs[i-1] {
	case child:
		p := n.Parent()
		return p != nil && s.matchAt(t, i-1, p)
	default:
		for p := n.Parent(); p != nil; p = p.Parent() {
			if s.matchAt(t, i-1, p) {
				return true
			}
		}
		return false
	}
}

func (c compound) match(t *tree.Tree, n *tree.Node) bool {
	switch c.kind {
	case "":
	case ProgramKind:
		if !n.IsRoot() {
			return false
		}
	default:
		if n.Kind() != c.kind {
			return false
		}
	}
	for _, a := range c.attrs {
		if !a.match(t, n) {
			return false
		}
	}
	return true
}

func (a attribute) match(t *tree.Tree, n *tree.Node) bool {
	var (
		value   string
		present bool
	)
	switch a.name {
	case "text":
		value, present = t.Text(n), true
	case "field":
		value, present = n.Field(), n.Field() != ""
	default:
		if c := n.ChildByField(a.name); c != nil {
			value, present = t.Text(c), true
		}
	}

	switch a.op {
	case opExists:
		return present
	case opEqual:
		return present && value == a.value
	case opNotEqual:
		return !present || value != a.value
	case opRegex:
		return present && a.re.MatchString(value)
	}
	return false
}

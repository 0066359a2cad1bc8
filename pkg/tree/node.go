// Package tree provides the immutable program tree the lint engine walks.
//
// A Tree is built once per pass from a parser's output and never mutated
// afterwards. Parent pointers are non-owning back references; ownership flows
// from the root down through Children.
package tree

import "github.com/leapstack-labs/leaplint/pkg/source"

// Node is one node of a parsed program.
type Node struct {
	kind     string
	field    string
	named    bool
	rng      source.Range
	parent   *Node
	children []*Node
	index    int // position among parent's children
	id       int // pre-order sequence number, unique within a tree
}

// Kind returns the node type tag, e.g. "variable_declaration".
func (n *Node) Kind() string { return n.kind }

// Field returns the field name under which the node hangs in its parent,
// or "" if the parent does not name it.
func (n *Node) Field() string { return n.field }

// Named reports whether the node is a named grammar node rather than an
// anonymous token such as ";" or "var".
func (n *Node) Named() bool { return n.named }

// Range returns the half-open byte range covered by the node.
func (n *Node) Range() source.Range { return n.rng }

// Start returns the byte offset where the node begins.
func (n *Node) Start() int { return n.rng.Start }

// End returns the byte offset just past the node.
func (n *Node) End() int { return n.rng.End }

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// ID returns the pre-order sequence number of the node within its tree.
func (n *Node) ID() int { return n.id }

// Children returns all children, named and anonymous, in source order.
// The returned slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the i-th child or nil if out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// NamedChildren returns the named children in source order.
func (n *Node) NamedChildren() []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.named {
			out = append(out, c)
		}
	}
	return out
}

// ChildByField returns the first child stored under the given field name.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.children {
		if c.field == field {
			return c
		}
	}
	return nil
}

// ChildOfKind returns the first child with the given kind.
func (n *Node) ChildOfKind(kind string) *Node {
	for _, c := range n.children {
		if c.kind == kind {
			return c
		}
	}
	return nil
}

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node { return n.Child(0) }

// LastChild returns the last child or nil.
func (n *Node) LastChild() *Node { return n.Child(len(n.children) - 1) }

// NextSibling returns the following sibling or nil.
func (n *Node) NextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.Child(n.index + 1)
}

// PrevSibling returns the preceding sibling or nil.
func (n *Node) PrevSibling() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.Child(n.index - 1)
}

// Ancestors returns the chain of enclosing nodes, nearest first.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

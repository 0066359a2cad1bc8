package rules

import (
	"github.com/leapstack-labs/leaplint/pkg/source"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

// endOf is the empty range right after n.
func endOf(n *tree.Node) source.Range {
	return source.Range{Start: n.End(), End: n.End()}
}

// collect returns the nodes of t with the given kind, in source order.
func collect(t *tree.Tree, kind string) []*tree.Node {
	var out []*tree.Node
	t.Walk(func(n *tree.Node) bool {
		if n.Kind() == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

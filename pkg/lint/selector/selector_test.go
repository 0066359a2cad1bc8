package selector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/pkg/lint/selector"
	"github.com/leapstack-labs/leaplint/pkg/source"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

func r(start, end int) source.Range { return source.Range{Start: start, End: end} }

// callTree is `console.log(a == "b")`.
func callTree() *tree.Tree {
	return tree.Build(source.New(`console.log(a == "b")`), tree.Spec{
		Kind: "program", Range: r(0, 21),
		Children: []tree.Spec{{
			Kind: "expression_statement", Range: r(0, 21),
			Children: []tree.Spec{{
				Kind: "call_expression", Range: r(0, 21),
				Children: []tree.Spec{
					{
						Kind: "member_expression", Field: "function", Range: r(0, 11),
						Children: []tree.Spec{
							{Kind: "identifier", Field: "object", Range: r(0, 7)},
							{Kind: ".", Anonymous: true, Range: r(7, 8)},
							{Kind: "property_identifier", Field: "property", Range: r(8, 11)},
						},
					},
					{
						Kind: "arguments", Field: "arguments", Range: r(11, 21),
						Children: []tree.Spec{
							{Kind: "(", Anonymous: true, Range: r(11, 12)},
							{
								Kind: "binary_expression", Range: r(12, 20),
								Children: []tree.Spec{
									{Kind: "identifier", Field: "left", Range: r(12, 13)},
									{Kind: "==", Field: "operator", Anonymous: true, Range: r(14, 16)},
									{Kind: "string", Field: "right", Range: r(17, 20)},
								},
							},
							{Kind: ")", Anonymous: true, Range: r(20, 21)},
						},
					},
				},
			}},
		}},
	})
}

func find(t *testing.T, tr *tree.Tree, kind string, nth int) *tree.Node {
	t.Helper()
	var found *tree.Node
	seen := 0
	tr.Walk(func(n *tree.Node) bool {
		if found == nil && n.Kind() == kind {
			if seen == nth {
				found = n
			}
			seen++
		}
		return found == nil
	})
	require.NotNil(t, found, "no %s #%d", kind, nth)
	return found
}

func TestParse(t *testing.T) {
	tests := []struct {
		src      string
		alts     int
		kind     string
		exit     bool
		wantErr  bool
		errMatch string
	}{
		{src: "string", alts: 1, kind: "string"},
		{src: "string:exit", alts: 1, kind: "string", exit: true},
		{src: "*", alts: 1, kind: ""},
		{src: "Program:exit", alts: 1, kind: "Program", exit: true},
		{src: "call_expression > member_expression[object=\"console\"]", alts: 1, kind: "member_expression"},
		{src: "program  expression_statement", alts: 1, kind: "expression_statement"},
		{src: "binary_expression[operator=/^[!=]=$/]", alts: 1, kind: "binary_expression"},
		{src: "[text='x']", alts: 1, kind: ""},
		{src: "string, template_string", alts: 2, kind: "string"},
		{src: "a[left], b[x=\"y, z\"]", alts: 2, kind: "a"},
		{src: "", wantErr: true},
		{src: "a,", wantErr: true},
		{src: "a[", wantErr: true},
		{src: "a[x=\"y]", wantErr: true},
		{src: "a >", wantErr: true},
		{src: "a:first-child", wantErr: true, errMatch: "unsupported pseudo"},
		{src: "a[x!=/y/]", wantErr: true},
		{src: "a[x=/(/]", wantErr: true, errMatch: "bad regular expression"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			sels, err := selector.Parse(tt.src)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMatch != "" {
					assert.Contains(t, err.Error(), tt.errMatch)
				}
				return
			}
			require.NoError(t, err)
			require.Len(t, sels, tt.alts)
			assert.Equal(t, tt.kind, sels[0].Kind())
			assert.Equal(t, tt.exit, sels[0].Exit())
		})
	}
}

func TestMatch(t *testing.T) {
	tr := callTree()

	tests := []struct {
		name   string
		sel    string
		kind   string
		nth    int
		expect bool
	}{
		{name: "kind", sel: "string", kind: "string", expect: true},
		{name: "wrong kind", sel: "number", kind: "string", expect: false},
		{name: "wildcard", sel: "*", kind: "arguments", expect: true},
		{name: "child combinator", sel: "call_expression > member_expression", kind: "member_expression", expect: true},
		{name: "child combinator not grandchild", sel: "expression_statement > member_expression", kind: "member_expression", expect: false},
		{name: "descendant combinator", sel: "expression_statement member_expression", kind: "member_expression", expect: true},
		{name: "descendant chain", sel: "program call_expression binary_expression", kind: "binary_expression", expect: true},
		{name: "descendant needs order", sel: "binary_expression call_expression", kind: "call_expression", expect: false},
		{name: "field text equals", sel: `member_expression[object="console"]`, kind: "member_expression", expect: true},
		{name: "field text differs", sel: `member_expression[object!="console"]`, kind: "member_expression", expect: false},
		{name: "field missing not equal", sel: `member_expression[missing!="x"]`, kind: "member_expression", expect: true},
		{name: "field presence", sel: "binary_expression[operator]", kind: "binary_expression", expect: true},
		{name: "field absence", sel: "binary_expression[body]", kind: "binary_expression", expect: false},
		{name: "regex on anonymous field", sel: "binary_expression[operator=/^[!=]=$/]", kind: "binary_expression", expect: true},
		{name: "case insensitive regex", sel: "identifier[text=/CONSOLE/i]", kind: "identifier", expect: true},
		{name: "own field pseudo attribute", sel: `identifier[field="left"]`, kind: "identifier", nth: 1, expect: true},
		{name: "own field pseudo attribute mismatch", sel: `identifier[field="left"]`, kind: "identifier", expect: false},
		{name: "Program matches root", sel: "Program", kind: "program", expect: true},
		{name: "Program as ancestor", sel: "Program > expression_statement", kind: "expression_statement", expect: true},
		{name: "bare attribute value", sel: "member_expression[property=log]", kind: "member_expression", expect: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sels, err := selector.Parse(tt.sel)
			require.NoError(t, err)
			n := find(t, tr, tt.kind, tt.nth)
			assert.Equal(t, tt.expect, sels[0].Match(tr, n))
		})
	}
}

func TestCompile_Caches(t *testing.T) {
	a, err := selector.Compile("string:exit")
	require.NoError(t, err)
	b, err := selector.Compile("string:exit")
	require.NoError(t, err)
	assert.Same(t, a[0], b[0])

	_, err = selector.Compile("a[")
	assert.Error(t, err)
}

func TestIndex_CandidatesInRegistrationOrder(t *testing.T) {
	ix := selector.NewIndex[string]()
	add := func(src, value string) {
		sels, err := selector.Parse(src)
		require.NoError(t, err)
		ix.Add(sels, value)
	}

	add("string", "first")
	add("*", "wild")
	add("string:exit", "exit")
	add("string, template_string", "list")
	add("number", "other")
	add("Program", "program")

	var got []string
	var groups []int
	ix.Candidates("string", false, func(e *selector.Entry[string]) {
		got = append(got, e.Value)
		groups = append(groups, e.Group)
	})
	assert.Equal(t, []string{"first", "wild", "list"}, got)
	assert.Equal(t, []int{0, 1, 3}, groups)

	got = nil
	ix.Candidates("string", true, func(e *selector.Entry[string]) { got = append(got, e.Value) })
	assert.Equal(t, []string{"exit"}, got)

	got = nil
	ix.Exact(selector.ProgramKind, false, func(e *selector.Entry[string]) { got = append(got, e.Value) })
	assert.Equal(t, []string{"program"}, got)

	assert.True(t, ix.Has("number", false))
	assert.False(t, ix.Has("number", true))
	assert.Equal(t, 7, ix.Len())
}

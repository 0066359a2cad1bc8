package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/pkg/source"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

func testRuleDef(id string, fixable FixKind) RuleDef {
	return RuleDef{
		ID:          id,
		Type:        TypeLayout,
		Description: "rule " + id,
		Severity:    SeverityWarning,
		Fixable:     fixable,
		Create: func(_ *Context) (Listeners, error) {
			return nil, nil
		},
	}
}

// stringTree is the tree of `x = "a";` reduced to the nodes the tests need.
func stringTree() *tree.Tree {
	return tree.Build(source.New(`x = "a";`), tree.Spec{
		Kind:  "program",
		Range: source.Range{Start: 0, End: 8},
		Children: []tree.Spec{
			{Kind: "identifier", Range: source.Range{Start: 0, End: 1}},
			{Kind: "string", Range: source.Range{Start: 4, End: 7}},
		},
	})
}

func TestWrapRuleDef(t *testing.T) {
	def := testRuleDef("quotes", FixCode)
	def.ConfigKeys = []string{"style"}
	def.Rationale = "consistency"
	rule := WrapRuleDef(def)

	assert.Equal(t, "quotes", rule.ID())
	assert.Equal(t, "quotes", rule.Name(), "name falls back to the id")
	assert.Equal(t, TypeLayout, rule.Type())
	assert.Equal(t, SeverityWarning, rule.DefaultSeverity())
	assert.Equal(t, FixCode, rule.Fixable())
	assert.Equal(t, []string{"style"}, rule.ConfigKeys())

	unwrapper, ok := rule.(interface{ Unwrap() RuleDef })
	require.True(t, ok)
	assert.Equal(t, "consistency", unwrapper.Unwrap().Rationale)

	info := GetRuleInfo(rule)
	assert.Equal(t, "https://leaplint.dev/rules/quotes", info.DocumentationURL)
	assert.Equal(t, FixCode, info.Fixable)

	_, err := WrapRuleDef(RuleDef{ID: "empty"}).Create(nil)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	Clear()
	t.Cleanup(Clear)

	Register(testRuleDef("semi", FixCode))
	Register(testRuleDef("eqeqeq", FixCode))
	Register(RuleDef{ID: "no-debugger", Type: TypeProblem, Create: func(*Context) (Listeners, error) { return nil, nil }})

	assert.Equal(t, 3, Count())

	var ids []string
	for _, r := range GetAll() {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"eqeqeq", "no-debugger", "semi"}, ids)

	rule, ok := GetRule("semi")
	require.True(t, ok)
	assert.Equal(t, "semi", rule.ID())

	_, ok = GetRule("missing")
	assert.False(t, ok)

	assert.Len(t, GetByType(TypeProblem), 1)
	assert.Len(t, AllRules(), 3)
}

func TestConfig_Resolve(t *testing.T) {
	catalogue := map[string]Rule{
		"a": WrapRuleDef(testRuleDef("a", FixNone)),
		"b": WrapRuleDef(testRuleDef("b", FixNone)),
		"c": WrapRuleDef(testRuleDef("c", FixNone)),
	}
	lookup := func(id string) (Rule, bool) {
		r, ok := catalogue[id]
		return r, ok
	}
	all := func() []Rule {
		return []Rule{catalogue["a"], catalogue["b"], catalogue["c"]}
	}

	t.Run("nil enabled list runs every rule", func(t *testing.T) {
		active, err := NewConfig().ResolveWith(lookup, all)
		require.NoError(t, err)
		assert.Len(t, active, 3)
	})

	t.Run("order severity options and disabled", func(t *testing.T) {
		cfg := NewConfig().Enable("c", "a", "b", "c")
		cfg.Disable("b")
		cfg.SetSeverity("a", SeverityError)
		cfg.SetRuleOptions("c", map[string]any{"k": 1})

		active, err := cfg.ResolveWith(lookup, all)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, "c", active[0].Rule.ID())
		assert.Equal(t, SeverityWarning, active[0].Severity)
		assert.Equal(t, map[string]any{"k": 1}, active[0].Options)
		assert.Equal(t, "a", active[1].Rule.ID())
		assert.Equal(t, SeverityError, active[1].Severity)
	})

	t.Run("unknown rule", func(t *testing.T) {
		_, err := NewConfig().Enable("zzz").ResolveWith(lookup, all)
		assert.ErrorContains(t, err, `unknown rule "zzz"`)
	})
}

func TestContext_Report(t *testing.T) {
	tr := stringTree()
	str := tr.Root().Child(1)

	var got []Violation
	sink := func(v Violation) { got = append(got, v) }

	rule := WrapRuleDef(testRuleDef("quotes", FixCode))
	ctx := NewContext(ActiveRule{Rule: rule, Severity: SeverityError}, tr, "a.js", sink)

	ctx.Report(Descriptor{
		Node:    str,
		Message: "Strings must use {{ style }} quotes, not {{other}}.",
		Data:    map[string]any{"style": "singlequote"},
		Fix: func(fx Fixer) []Edit {
			return []Edit{
				fx.ReplaceRange(source.Range{Start: 6, End: 7}, "'"),
				fx.ReplaceRange(source.Range{Start: 4, End: 5}, "'"),
			}
		},
	})
	ctx.Report(Descriptor{Range: source.Range{Start: 0, End: 1}, Message: "plain"})

	require.Len(t, got, 2)
	v := got[0]
	assert.Equal(t, "quotes", v.RuleID)
	assert.Equal(t, SeverityError, v.Severity)
	assert.Equal(t, "Strings must use singlequote quotes, not {{other}}.", v.Message)
	assert.Equal(t, "string", v.NodeKind)
	assert.Equal(t, source.Position{Line: 1, Column: 5, Offset: 4}, v.Start)
	require.NotNil(t, v.Fix)
	assert.Equal(t, Edit{Range: source.Range{Start: 4, End: 7}, Text: "'a'"}, *v.Fix)

	assert.Equal(t, "plain", got[1].Message)
	assert.Nil(t, got[1].Fix)
	assert.Equal(t, "a.js", ctx.Filename())
}

func TestContext_ReportRuleBugsPanic(t *testing.T) {
	tr := stringTree()
	str := tr.Root().Child(1)
	sink := func(Violation) {}

	t.Run("fix from non-fixable rule", func(t *testing.T) {
		ctx := NewContext(Activate(WrapRuleDef(testRuleDef("r", FixNone))), tr, "", sink)
		assert.Panics(t, func() {
			ctx.Report(Descriptor{Node: str, Fix: func(fx Fixer) []Edit { return []Edit{fx.Remove(str)} }})
		})
	})

	t.Run("overlapping edits", func(t *testing.T) {
		ctx := NewContext(Activate(WrapRuleDef(testRuleDef("r", FixCode))), tr, "", sink)
		assert.Panics(t, func() {
			ctx.Report(Descriptor{Node: str, Fix: func(fx Fixer) []Edit {
				return []Edit{
					fx.ReplaceRange(source.Range{Start: 4, End: 6}, "x"),
					fx.ReplaceRange(source.Range{Start: 5, End: 7}, "y"),
				}
			}})
		})
	})

	t.Run("edit out of bounds", func(t *testing.T) {
		ctx := NewContext(Activate(WrapRuleDef(testRuleDef("r", FixCode))), tr, "", sink)
		assert.Panics(t, func() {
			ctx.Report(Descriptor{Node: str, Fix: func(fx Fixer) []Edit {
				return []Edit{fx.InsertTextAt(99, ";")}
			}})
		})
	})
}

func TestMergeEdits(t *testing.T) {
	text := source.New("abcdef")

	merged, err := MergeEdits(text, nil)
	require.NoError(t, err)
	assert.Nil(t, merged)

	merged, err = MergeEdits(text, []Edit{
		{Range: source.Range{Start: 4, End: 4}, Text: "X"},
		{Range: source.Range{Start: 1, End: 2}, Text: "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, &Edit{Range: source.Range{Start: 1, End: 4}, Text: "BcdX"}, merged)
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{in: "error", want: SeverityError, ok: true},
		{in: "warn", want: SeverityWarning, ok: true},
		{in: "Warning", want: SeverityWarning, ok: true},
		{in: "hint", want: SeverityHint, ok: true},
		{in: "loud", want: SeverityWarning, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSeverity(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}

	var s Severity
	require.NoError(t, s.UnmarshalText([]byte("info")))
	assert.Equal(t, SeverityInfo, s)
	assert.Error(t, s.UnmarshalText([]byte("nope")))
	assert.True(t, IsOff("off"))
	assert.False(t, IsOff("error"))
}

func TestOptions(t *testing.T) {
	opts := map[string]any{
		"n":     float64(3),
		"s":     "double",
		"b":     true,
		"list":  []any{"x", 1, "y"},
		"other": 4,
	}

	assert.Equal(t, 3, GetIntOption(opts, "n", 0))
	assert.Equal(t, 7, GetIntOption(opts, "missing", 7))
	assert.Equal(t, "double", GetStringOption(opts, "s", ""))
	assert.Equal(t, "fallback", GetStringOption(opts, "other", "fallback"))
	assert.True(t, GetBoolOption(opts, "b", false))
	assert.Equal(t, []string{"x", "y"}, GetStringSliceOption(opts, "list", nil))
	assert.Equal(t, 4, GetOption(opts, "other", 0))

	style, err := GetEnumOption(opts, "s", []string{"single", "double"}, "single")
	require.NoError(t, err)
	assert.Equal(t, "double", style)

	_, err = GetEnumOption(map[string]any{"s": "back"}, "s", []string{"single", "double"}, "single")
	assert.Error(t, err)
}

package linter_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/lint/linter"
	"github.com/leapstack-labs/leaplint/pkg/source"
	"github.com/leapstack-labs/leaplint/pkg/tree"
	"github.com/leapstack-labs/leaplint/pkg/tree/javascript"
)

// wordsParser turns space separated words into "word" nodes under a
// "program" root. "!!" is a syntax error.
func wordsParser() tree.Parser {
	return tree.ParserFunc(func(_ context.Context, text *source.Text) (*tree.Tree, error) {
		s := text.String()
		if i := strings.Index(s, "!!"); i >= 0 {
			return nil, &tree.SyntaxError{Message: "unexpected !!", Offset: i, Line: 1, Column: i + 1}
		}
		root := tree.Spec{Kind: "program", Range: source.Range{Start: 0, End: len(s)}}
		start := -1
		for i := 0; i <= len(s); i++ {
			if i == len(s) || s[i] == ' ' || s[i] == '\n' {
				if start >= 0 {
					root.Children = append(root.Children, tree.Spec{Kind: "word", Range: source.Range{Start: start, End: i}})
					start = -1
				}
				continue
			}
			if start < 0 {
				start = i
			}
		}
		return tree.Build(text, root), nil
	})
}

func rule(id string, fixable lint.FixKind, create lint.CreateFunc) lint.ActiveRule {
	return lint.Activate(lint.WrapRuleDef(lint.RuleDef{
		ID:       id,
		Type:     lint.TypeLayout,
		Severity: lint.SeverityError,
		Fixable:  fixable,
		Create:   create,
	}))
}

// singleQuotes reports single-quoted strings and fixes them to double quotes.
func singleQuotes() lint.ActiveRule {
	return rule("quotes", lint.FixCode, func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{
			lint.On("string", func(n *tree.Node) {
				raw := ctx.Text(n)
				if !strings.HasPrefix(raw, "'") {
					return
				}
				ctx.Report(lint.Descriptor{
					Node:    n,
					Message: "Strings must use doublequote.",
					Fix: func(fx lint.Fixer) []lint.Edit {
						return []lint.Edit{fx.ReplaceText(n, `"`+raw[1:len(raw)-1]+`"`)}
					},
				})
			}),
		}, nil
	})
}

func newJS(t *testing.T) *linter.Linter {
	return linter.New(javascript.New(), linter.WithLogger(testutil.NewTestLogger(t)))
}

func TestLint_FixesSingleQuotes(t *testing.T) {
	l := newJS(t)
	report, err := l.Lint(context.Background(), source.New("var a = 'x';"), []lint.ActiveRule{singleQuotes()}, linter.Options{Fix: true})
	require.NoError(t, err)

	assert.Equal(t, `var a = "x";`, report.Source.String())
	assert.Empty(t, report.Violations)
	assert.Equal(t, 1, report.FixesApplied)
	assert.Equal(t, 2, report.PassCount())
	assert.True(t, report.Converged)
	assert.True(t, report.Fixed)
}

func TestLint_WithoutFixReportsOnce(t *testing.T) {
	l := newJS(t)
	text := source.New("var a = 'x';\nvar b = 'y';")
	report, err := l.Lint(context.Background(), text, []lint.ActiveRule{singleQuotes()}, linter.Options{})
	require.NoError(t, err)

	require.Len(t, report.Violations, 2)
	assert.Equal(t, source.Position{Line: 1, Column: 9, Offset: 8}, report.Violations[0].Start)
	assert.Equal(t, 2, report.Violations[1].Start.Line)
	assert.NotNil(t, report.Violations[0].Fix)
	assert.Same(t, text, report.Source)
	assert.Equal(t, 1, report.PassCount())
	assert.False(t, report.Fixed)
}

func TestLint_SyntaxErrorIsFatal(t *testing.T) {
	l := newJS(t)
	report, err := l.Lint(context.Background(), source.New("let x = ;"), []lint.ActiveRule{singleQuotes()}, linter.Options{Fix: true})
	require.NoError(t, err)

	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.True(t, v.Fatal)
	assert.Empty(t, v.RuleID)
	assert.Equal(t, lint.SeverityError, v.Severity)
	assert.Equal(t, 1, v.Start.Line)
	assert.Equal(t, 0, report.PassCount())
	assert.Equal(t, 0, report.FixesApplied)
	assert.True(t, report.Fatal())
}

func TestLint_RuleCrash(t *testing.T) {
	l := newJS(t)
	crash := rule("crashy", lint.FixNone, func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{
			lint.On("identifier", func(n *tree.Node) {
				panic(errors.New("boom"))
			}),
		}, nil
	})

	report, err := l.Lint(context.Background(), source.New("\n  foo();"), []lint.ActiveRule{singleQuotes(), crash}, linter.Options{})
	require.Error(t, err)
	assert.Nil(t, report)

	var rerr *lint.RuleError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "crashy", rerr.RuleID)
	assert.Equal(t, lint.PhaseEnter, rerr.Phase)
	assert.Equal(t, "identifier", rerr.NodeKind)
	assert.Equal(t, source.Range{Start: 3, End: 6}, rerr.Range)
	assert.Equal(t, 2, rerr.Start.Line)
	assert.Equal(t, 3, rerr.Start.Column)
	assert.EqualError(t, errors.Unwrap(rerr), "boom")
	assert.NotEmpty(t, linter.Stack(err))
}

func TestLint_CreateFailures(t *testing.T) {
	l := linter.New(wordsParser())

	t.Run("create returns error", func(t *testing.T) {
		bad := rule("bad", lint.FixNone, func(*lint.Context) (lint.Listeners, error) {
			return nil, errors.New("invalid options")
		})
		_, err := l.Lint(context.Background(), source.New("a"), []lint.ActiveRule{bad}, linter.Options{})
		var rerr *lint.RuleError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, lint.PhaseCreate, rerr.Phase)
		assert.Contains(t, err.Error(), "failed to initialize")
	})

	t.Run("bad selector", func(t *testing.T) {
		bad := rule("bad", lint.FixNone, func(*lint.Context) (lint.Listeners, error) {
			return lint.Listeners{lint.On("word[", func(*tree.Node) {})}, nil
		})
		_, err := l.Lint(context.Background(), source.New("a"), []lint.ActiveRule{bad}, linter.Options{})
		var rerr *lint.RuleError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "word[", rerr.Selector)
	})

	t.Run("fix from non-fixable rule", func(t *testing.T) {
		bad := rule("bad", lint.FixNone, func(ctx *lint.Context) (lint.Listeners, error) {
			return lint.Listeners{lint.On("word", func(n *tree.Node) {
				ctx.Report(lint.Descriptor{Node: n, Message: "m", Fix: func(fx lint.Fixer) []lint.Edit {
					return []lint.Edit{fx.Remove(n)}
				}})
			})}, nil
		})
		_, err := l.Lint(context.Background(), source.New("a"), []lint.ActiveRule{bad}, linter.Options{Fix: true})
		var rerr *lint.RuleError
		require.True(t, errors.As(err, &rerr))
		assert.Contains(t, err.Error(), "does not declare itself fixable")
	})
}

func TestLint_DispatchOrder(t *testing.T) {
	var calls []string
	record := func(id string) lint.CreateFunc {
		return func(ctx *lint.Context) (lint.Listeners, error) {
			on := func(sel string) lint.Listener {
				return lint.On(sel, func(n *tree.Node) {
					calls = append(calls, id+" "+sel+" "+ctx.Text(n))
				})
			}
			return lint.Listeners{
				on("Program:exit"),
				on("word:exit"),
				on("word"),
				on("Program"),
				on("word, *"),
			}, nil
		}
	}
	rules := []lint.ActiveRule{rule("a", lint.FixNone, record("a")), rule("b", lint.FixNone, record("b"))}

	_, err := linter.New(wordsParser()).Lint(context.Background(), source.New("x y"), rules, linter.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a Program x y",
		"b Program x y",
		"a word, * x y", // "*" sees the real root
		"b word, * x y",
		"a word x",
		"a word, * x",
		"b word x",
		"b word, * x",
		"a word:exit x",
		"b word:exit x",
		"a word y",
		"a word, * y",
		"b word y",
		"b word, * y",
		"a word:exit y",
		"b word:exit y",
		"a Program:exit x y",
		"b Program:exit x y",
	}, calls)
}

func TestLint_OverlappingFixesResolveOverPasses(t *testing.T) {
	upper := rule("upper", lint.FixCode, func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{lint.On(`word[text="foo"]`, func(n *tree.Node) {
			ctx.Report(lint.Descriptor{Node: n, Message: "shout", Fix: func(fx lint.Fixer) []lint.Edit {
				return []lint.Edit{fx.ReplaceText(n, "FOO")}
			}})
		})}, nil
	})
	join := rule("join", lint.FixCode, func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{lint.On(`word[text=/^foo$/i]`, func(n *tree.Node) {
			next := n.NextSibling()
			if next == nil || ctx.Text(next) != "bar" {
				return
			}
			r := source.Range{Start: n.Start() + 2, End: next.End()}
			ctx.Report(lint.Descriptor{Range: r, Message: "join", Fix: func(fx lint.Fixer) []lint.Edit {
				return []lint.Edit{fx.ReplaceRange(r, strings.ReplaceAll(ctx.Source().Slice(r), " ", ""))}
			}})
		})}, nil
	})

	report, err := linter.New(wordsParser()).Lint(context.Background(), source.New("foo bar"), []lint.ActiveRule{upper, join}, linter.Options{Fix: true})
	require.NoError(t, err)

	require.Len(t, report.Passes, 3)
	first := report.Passes[0]
	require.Len(t, first.Plan.Accepted, 1)
	require.Len(t, first.Plan.Skipped, 1)
	assert.Equal(t, "FOO bar", first.Output.String())

	assert.Equal(t, "FOObar", report.Source.String())
	assert.Equal(t, 2, report.FixesApplied)
	assert.Empty(t, report.Violations)
	assert.True(t, report.Converged)
}

func TestLint_PassCeiling(t *testing.T) {
	grow := rule("grow", lint.FixCode, func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{lint.On("Program", func(n *tree.Node) {
			ctx.Report(lint.Descriptor{Node: n, Message: "grow", Fix: func(fx lint.Fixer) []lint.Edit {
				return []lint.Edit{fx.InsertTextAt(0, "x")}
			}})
		})}, nil
	})
	bar := rule("bar", lint.FixNone, func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{lint.On(`word[text="bar"]`, func(n *tree.Node) {
			ctx.Report(lint.Descriptor{Node: n, Message: "bar"})
		})}, nil
	})

	parses := 0
	counting := tree.ParserFunc(func(ctx context.Context, text *source.Text) (*tree.Tree, error) {
		parses++
		return wordsParser().Parse(ctx, text)
	})

	logger, logs := testutil.NewRecordingLogger()
	report, err := linter.New(counting, linter.WithLogger(logger)).Lint(context.Background(), source.New("foo bar"), []lint.ActiveRule{grow, bar}, linter.Options{Fix: true, MaxPasses: 3})
	require.NoError(t, err)

	assert.True(t, logs.Contains("fix loop did not converge", "max_passes=3"))
	assert.Equal(t, 3, parses)
	assert.Equal(t, 3, report.PassCount())
	assert.False(t, report.Converged)
	assert.Equal(t, 3, report.FixesApplied)
	assert.Equal(t, "xxxfoo bar", report.Source.String())

	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.Equal(t, "bar", v.RuleID)
	assert.Equal(t, "bar", report.Source.Slice(v.Range))
	assert.Equal(t, 8, v.Start.Column)
}

func TestLint_DefaultCeilingIsTen(t *testing.T) {
	grow := rule("grow", lint.FixCode, func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{lint.On("Program", func(n *tree.Node) {
			ctx.Report(lint.Descriptor{Node: n, Message: "grow", Fix: func(fx lint.Fixer) []lint.Edit {
				return []lint.Edit{fx.InsertTextAt(0, "x")}
			}})
		})}, nil
	})
	report, err := linter.New(wordsParser()).Lint(context.Background(), source.New("a"), []lint.ActiveRule{grow}, linter.Options{Fix: true})
	require.NoError(t, err)
	assert.Equal(t, linter.DefaultMaxPasses, report.PassCount())
	assert.False(t, report.Converged)
}

func TestLint_FixesIntroducingSyntaxError(t *testing.T) {
	bang := rule("bang", lint.FixCode, func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{lint.On("word", func(n *tree.Node) {
			ctx.Report(lint.Descriptor{Node: n, Message: "bang", Fix: func(fx lint.Fixer) []lint.Edit {
				return []lint.Edit{fx.InsertTextAfter(n, "!!")}
			}})
		})}, nil
	})
	report, err := linter.New(wordsParser()).Lint(context.Background(), source.New("a"), []lint.ActiveRule{bang}, linter.Options{Fix: true})
	require.NoError(t, err)
	assert.Equal(t, "a!!", report.Source.String())
	assert.Equal(t, 1, report.PassCount())
	assert.True(t, report.Fatal())
}

func TestLint_FreshRuleStatePerPass(t *testing.T) {
	var seen []int
	counter := rule("counter", lint.FixCode, func(ctx *lint.Context) (lint.Listeners, error) {
		count := 0
		return lint.Listeners{
			lint.On("word", func(n *tree.Node) {
				count++
				if ctx.Text(n) == "a" {
					ctx.Report(lint.Descriptor{Node: n, Message: "a", Fix: func(fx lint.Fixer) []lint.Edit {
						return []lint.Edit{fx.ReplaceText(n, "b")}
					}})
				}
			}),
			lint.On("Program:exit", func(*tree.Node) { seen = append(seen, count) }),
		}, nil
	})
	_, err := linter.New(wordsParser()).Lint(context.Background(), source.New("a c"), []lint.ActiveRule{counter}, linter.Options{Fix: true})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, seen)
}

func TestLint_FixTypes(t *testing.T) {
	l := newJS(t)
	report, err := l.Lint(context.Background(), source.New("var a = 'x';"), []lint.ActiveRule{singleQuotes()}, linter.Options{
		Fix:      true,
		FixTypes: []lint.RuleType{lint.TypeProblem},
	})
	require.NoError(t, err)
	assert.Equal(t, "var a = 'x';", report.Source.String())
	require.Len(t, report.Violations, 1)
	assert.NotNil(t, report.Violations[0].Fix)
	assert.Equal(t, 0, report.FixesApplied)
	assert.Equal(t, 1, report.PassCount())
}

func TestLint_InlineDirectives(t *testing.T) {
	debugger := rule("no-debugger", lint.FixNone, func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{lint.On("debugger_statement", func(n *tree.Node) {
			ctx.Report(lint.Descriptor{Node: n, Message: "Unexpected 'debugger' statement."})
		})}, nil
	})
	rules := []lint.ActiveRule{debugger, singleQuotes()}

	src := strings.Join([]string{
		"debugger; // leaplint-disable-line no-debugger",
		"// leaplint-disable-next-line",
		"debugger;",
		"/* leaplint-disable quotes */",
		"var a = 'x';",
		"debugger;",
		"/* leaplint-enable quotes */",
		"var b = 'y';",
		"/* leaplint-disable */",
		"debugger;",
		"/* leaplint-enable */",
		"// leaplint-disable-line semi -- nothing to hide",
		"",
	}, "\n")

	report, err := newJS(t).Lint(context.Background(), source.New(src), rules, linter.Options{ReportUnusedDirectives: true})
	require.NoError(t, err)

	var got []string
	for _, v := range report.Violations {
		got = append(got, v.RuleID+"@"+v.Start.String())
	}
	assert.Equal(t, []string{
		"no-debugger@6:1",
		"quotes@8:9",
		"@12:1",
	}, got)
	assert.Contains(t, report.Violations[2].Message, "no problems were reported from 'semi'")

	report, err = newJS(t).Lint(context.Background(), source.New(src), rules, linter.Options{NoInlineConfig: true})
	require.NoError(t, err)
	assert.Len(t, report.Violations, 6)
}

func TestLint_DeterministicAndIdempotent(t *testing.T) {
	l := newJS(t)
	rules := []lint.ActiveRule{singleQuotes()}
	src := source.New("var a = 'x', b = 'y';\nfoo('z');\n")

	first, err := l.Lint(context.Background(), src, rules, linter.Options{Fix: true})
	require.NoError(t, err)
	second, err := l.Lint(context.Background(), src, rules, linter.Options{Fix: true})
	require.NoError(t, err)

	assert.Equal(t, first.Source.String(), second.Source.String())
	assert.Equal(t, first.Violations, second.Violations)
	assert.Equal(t, first.FixesApplied, second.FixesApplied)

	again, err := l.Lint(context.Background(), first.Source, rules, linter.Options{Fix: true})
	require.NoError(t, err)
	assert.Equal(t, 0, again.FixesApplied)
	assert.Equal(t, first.Source.String(), again.Source.String())
}

func TestLint_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := linter.New(wordsParser()).Lint(ctx, source.New("a"), nil, linter.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

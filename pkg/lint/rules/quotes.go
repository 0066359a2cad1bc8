package rules

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

func init() {
	lint.Register(Quotes)
}

// Quotes enforces one quote character for string literals.
var Quotes = lint.RuleDef{
	ID:          "quotes",
	Name:        "Enforce quote style",
	Type:        lint.TypeLayout,
	Description: "Enforce the consistent use of either double or single quotes.",
	Severity:    lint.SeverityError,
	Fixable:     lint.FixCode,
	ConfigKeys:  []string{"style", "avoid_escape"},
	Create:      createQuotes,

	Rationale:   "Mixing quote styles makes code harder to scan and produces noisy diffs.",
	BadExample:  `var a = 'x';`,
	GoodExample: `var a = "x";`,
}

func createQuotes(ctx *lint.Context) (lint.Listeners, error) {
	style, err := lint.GetEnumOption(ctx.Options(), "style", []string{"double", "single"}, "double")
	if err != nil {
		return nil, err
	}
	avoidEscape := lint.GetBoolOption(ctx.Options(), "avoid_escape", false)

	want, other := byte('"'), byte('\'')
	if style == "single" {
		want, other = other, want
	}

	return lint.Listeners{
		lint.On("string", func(n *tree.Node) {
			if p := n.Parent(); p != nil && p.Kind() == "jsx_attribute" {
				return
			}
			raw := ctx.Text(n)
			if len(raw) < 2 || raw[0] == want {
				return
			}
			inner := raw[1 : len(raw)-1]
			if avoidEscape && strings.IndexByte(inner, want) >= 0 {
				return
			}
			ctx.Report(lint.Descriptor{
				Node:    n,
				Message: "Strings must use {{style}}quote.",
				Data:    map[string]any{"style": style},
				Fix: func(fx lint.Fixer) []lint.Edit {
					return []lint.Edit{fx.ReplaceText(n, string(want)+requote(inner, other, want)+string(want))}
				},
			})
		}),
	}, nil
}

// requote rewrites the body of a string literal delimited by from so it can
// be delimited by to: escaped from quotes lose their backslash and bare to
// quotes gain one.
func requote(inner string, from, to byte) string {
	var b strings.Builder
	b.Grow(len(inner) + 2)
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			next := inner[i+1]
			if next != from {
				b.WriteByte(c)
			}
			b.WriteByte(next)
			i++
			continue
		}
		if c == to {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

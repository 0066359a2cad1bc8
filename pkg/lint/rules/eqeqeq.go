package rules

import (
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

func init() {
	lint.Register(Eqeqeq)
}

// Eqeqeq requires strict equality operators.
var Eqeqeq = lint.RuleDef{
	ID:          "eqeqeq",
	Name:        "Require === and !==",
	Type:        lint.TypeSuggestion,
	Description: "Require the use of === and !==.",
	Severity:    lint.SeverityError,
	Fixable:     lint.FixCode,
	ConfigKeys:  []string{"null"},
	Create:      createEqeqeq,

	Rationale:   "== and != coerce their operands with rules few people remember.",
	BadExample:  `if (a == "b") {}`,
	GoodExample: `if (a === "b") {}`,
	HowToFix:    "Only comparisons whose result cannot change (typeof checks, literals of the same type) are fixed automatically.",
}

func createEqeqeq(ctx *lint.Context) (lint.Listeners, error) {
	nullMode, err := lint.GetEnumOption(ctx.Options(), "null", []string{"always", "ignore"}, "always")
	if err != nil {
		return nil, err
	}

	return lint.Listeners{
		lint.On(`binary_expression[operator=/^[!=]=$/]`, func(n *tree.Node) {
			op := n.ChildByField("operator")
			left, right := n.ChildByField("left"), n.ChildByField("right")
			if op == nil || left == nil || right == nil {
				return
			}
			if nullMode == "ignore" && (left.Kind() == "null" || right.Kind() == "null") {
				return
			}
			actual := ctx.Text(op)
			expected := actual + "="
			d := lint.Descriptor{
				Node:    op,
				Message: "Expected '{{expected}}' and instead saw '{{actual}}'.",
				Data:    map[string]any{"expected": expected, "actual": actual},
			}
			if isTypeof(ctx, left) || isTypeof(ctx, right) || sameLiteralKind(left, right) {
				d.Fix = func(fx lint.Fixer) []lint.Edit {
					return []lint.Edit{fx.ReplaceText(op, expected)}
				}
			}
			ctx.Report(d)
		}),
	}, nil
}

func isTypeof(ctx *lint.Context, n *tree.Node) bool {
	if n.Kind() != "unary_expression" {
		return false
	}
	op := n.ChildByField("operator")
	return op != nil && ctx.Text(op) == "typeof"
}

func sameLiteralKind(a, b *tree.Node) bool {
	switch a.Kind() {
	case "string", "number", "true", "false", "null":
	default:
		return false
	}
	if a.Kind() == "true" || a.Kind() == "false" {
		return b.Kind() == "true" || b.Kind() == "false"
	}
	return a.Kind() == b.Kind()
}

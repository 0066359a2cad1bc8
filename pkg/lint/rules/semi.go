package rules

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

func init() {
	lint.Register(Semi)
}

// Semi requires or disallows semicolons at the end of statements.
var Semi = lint.RuleDef{
	ID:          "semi",
	Name:        "Require or disallow semicolons",
	Type:        lint.TypeLayout,
	Description: "Require or disallow semicolons instead of automatic semicolon insertion.",
	Severity:    lint.SeverityError,
	Fixable:     lint.FixCode,
	ConfigKeys:  []string{"style"},
	Create:      createSemi,

	Rationale:   "Relying on automatic semicolon insertion hides statement boundaries.",
	BadExample:  "var a = 1\nfoo()",
	GoodExample: "var a = 1;\nfoo();",
}

// semiStatements are the statement kinds terminated by a semicolon.
const semiStatements = "expression_statement:exit, variable_declaration:exit, lexical_declaration:exit, " +
	"return_statement:exit, throw_statement:exit, break_statement:exit, continue_statement:exit, " +
	"debugger_statement:exit, import_statement:exit, export_statement:exit"

func createSemi(ctx *lint.Context) (lint.Listeners, error) {
	style, err := lint.GetEnumOption(ctx.Options(), "style", []string{"always", "never"}, "always")
	if err != nil {
		return nil, err
	}

	return lint.Listeners{
		lint.On(semiStatements, func(n *tree.Node) {
			if !needsSemi(n) {
				return
			}
			last := n.LastChild()
			hasSemi := last != nil && !last.Named() && last.Kind() == ";"

			switch {
			case style == "always" && !hasSemi:
				ctx.Report(lint.Descriptor{
					Range:   endOf(n),
					Message: "Missing semicolon.",
					Fix: func(fx lint.Fixer) []lint.Edit {
						return []lint.Edit{fx.InsertTextAfter(n, ";")}
					},
				})
			case style == "never" && hasSemi:
				d := lint.Descriptor{Node: last, Message: "Extra semicolon."}
				if !startsRisky(ctx, n.NextSibling()) {
					d.Fix = func(fx lint.Fixer) []lint.Edit {
						return []lint.Edit{fx.Remove(last)}
					}
				}
				ctx.Report(d)
			}
		}),
	}, nil
}

// needsSemi excludes statements whose grammar carries no terminator: loop
// headers and exported declarations.
func needsSemi(n *tree.Node) bool {
	if p := n.Parent(); p != nil && (p.Kind() == "for_statement" || p.Kind() == "for_in_statement") {
		return false
	}
	if n.Kind() != "export_statement" {
		return true
	}
	if n.ChildByField("declaration") != nil {
		return false
	}
	if v := n.ChildByField("value"); v != nil {
		switch v.Kind() {
		case "function_expression", "function", "class", "arrow_function", "generator_function":
			return false
		}
	}
	return true
}

// startsRisky reports whether removing the semicolon before next would join
// the two statements.
func startsRisky(ctx *lint.Context, next *tree.Node) bool {
	if next == nil {
		return false
	}
	text := strings.TrimSpace(ctx.Text(next))
	if text == "" {
		return false
	}
	return strings.ContainsAny(text[:1], "[(/+-`")
}

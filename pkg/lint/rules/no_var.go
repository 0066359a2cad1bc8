package rules

import (
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

func init() {
	lint.Register(NoVar)
}

// NoVar requires let or const instead of var.
var NoVar = lint.RuleDef{
	ID:          "no-var",
	Name:        "Require let or const",
	Type:        lint.TypeSuggestion,
	Description: "Require let or const instead of var.",
	Severity:    lint.SeverityWarning,
	Fixable:     lint.FixCode,
	Create:      createNoVar,

	Rationale:   "var is function scoped and hoisted, which hides bugs that block scoping exposes.",
	BadExample:  "var count = 0;",
	GoodExample: "let count = 0;",
	HowToFix:    "Replace var with let. Redeclared names, declarations in switch cases and names used before their declaration or outside its block are not fixed automatically.",
}

func createNoVar(ctx *lint.Context) (lint.Listeners, error) {
	// Names declared with var more than once cannot become let.
	declared := make(map[string]int)
	for _, decl := range collect(ctx.Tree(), "variable_declaration") {
		for _, id := range declaredIdents(decl) {
			declared[ctx.Text(id)]++
		}
	}
	refs := make(map[string][]*tree.Node)
	for _, kind := range []string{"identifier", "shorthand_property_identifier"} {
		for _, id := range collect(ctx.Tree(), kind) {
			refs[ctx.Text(id)] = append(refs[ctx.Text(id)], id)
		}
	}

	return lint.Listeners{
		lint.On("variable_declaration", func(n *tree.Node) {
			kw := n.FirstChild()
			d := lint.Descriptor{Node: n, Message: "Unexpected var, use let or const instead."}
			if kw != nil && kw.Kind() == "var" && fixableVar(ctx, n, declared, refs) {
				d.Fix = func(fx lint.Fixer) []lint.Edit {
					return []lint.Edit{fx.ReplaceText(kw, "let")}
				}
			}
			ctx.Report(d)
		}),
	}, nil
}

// fixableVar reports whether turning n into a let declaration keeps every
// use of its names valid: each name is declared once, and is only used
// after the declaration and inside the block that would scope the let.
func fixableVar(ctx *lint.Context, n *tree.Node, declared map[string]int, refs map[string][]*tree.Node) bool {
	if p := n.Parent(); p != nil && p.Kind() == "switch_case" {
		return false
	}
	ids := declaredIdents(n)
	if len(ids) == 0 {
		return false
	}
	scope := blockScope(n)
	for _, id := range ids {
		name := ctx.Text(id)
		if declared[name] > 1 {
			return false
		}
		for _, ref := range refs[name] {
			switch {
			case ref == id:
			case ref.Start() < n.End():
				// Used before or while declaring: a temporal dead zone error.
				return false
			case ref.Start() < scope.Start() || ref.End() > scope.End():
				return false
			}
		}
	}
	return true
}

// blockScope returns the node that would scope n if it were a let
// declaration.
func blockScope(n *tree.Node) *tree.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "statement_block", "program", "for_statement", "for_in_statement", "class_static_block":
			return p
		}
	}
	root := n
	for root.Parent() != nil {
		root = root.Parent()
	}
	return root
}

// declaredIdents returns the plain identifiers bound by a declaration.
// Destructuring patterns yield nothing, which keeps them unfixed.
func declaredIdents(decl *tree.Node) []*tree.Node {
	var ids []*tree.Node
	for _, d := range decl.NamedChildren() {
		if d.Kind() != "variable_declarator" {
			continue
		}
		if id := d.ChildByField("name"); id != nil && id.Kind() == "identifier" {
			ids = append(ids, id)
		}
	}
	return ids
}

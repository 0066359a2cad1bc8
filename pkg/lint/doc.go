// Package lint defines the contracts shared by the lint engine and its rules.
//
// # Architecture
//
// The engine is split into small packages with one job each:
//
//  1. Root package (pkg/lint/): rules, the rule context, violations, edits,
//     configuration and the global rule registry
//  2. Selectors (pkg/lint/selector/): parsing and matching of listener selectors
//  3. Fix resolution (pkg/lint/fix/): choosing a non-overlapping subset of edits
//     and splicing them into the source
//  4. Linter (pkg/lint/linter/): traversal, dispatch and the multi-pass fix loop
//  5. Rules (pkg/lint/rules/): the built-in rule set
//
// # Rule Registration
//
// Rules are registered via init() functions when their package is imported:
//
//	import _ "github.com/leapstack-labs/leaplint/pkg/lint/rules"
//
// # Writing Rules
//
// A rule is a closure factory. Create runs once per pass with a fresh Context
// and returns the listeners the engine should call:
//
//	var NoDebugger = lint.RuleDef{
//		ID:          "no-debugger",
//		Type:        lint.TypeProblem,
//		Description: "Disallow the use of debugger",
//		Severity:    lint.SeverityError,
//		Create: func(ctx *lint.Context) (lint.Listeners, error) {
//			return lint.Listeners{
//				lint.On("debugger_statement", func(n *tree.Node) {
//					ctx.Report(lint.Descriptor{Node: n, Message: "Unexpected 'debugger' statement."})
//				}),
//			}, nil
//		},
//	}
//
//	func init() {
//		lint.Register(NoDebugger)
//	}
//
// # Configuration
//
// Use Config to pick the rules to run, their order and their severity:
//
//	config := lint.NewConfig()
//	config.Enable("quotes", "semi")
//	config.SetSeverity("semi", lint.SeverityWarning)
//	config.SetRuleOptions("quotes", map[string]any{"style": "single"})
//	active, err := config.Resolve()
package lint

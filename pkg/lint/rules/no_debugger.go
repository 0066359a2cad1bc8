package rules

import (
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

func init() {
	lint.Register(NoDebugger)
}

// NoDebugger disallows debugger statements.
var NoDebugger = lint.RuleDef{
	ID:          "no-debugger",
	Name:        "Disallow debugger",
	Type:        lint.TypeProblem,
	Description: "Disallow the use of debugger.",
	Severity:    lint.SeverityError,
	Create: func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{
			lint.On("debugger_statement", func(n *tree.Node) {
				ctx.Report(lint.Descriptor{Node: n, Message: "Unexpected 'debugger' statement."})
			}),
		}, nil
	},

	Rationale: "debugger statements pause execution in every environment with an attached debugger.",
	HowToFix:  "Remove the statement; use breakpoints in your debugger instead.",
}

package rules

import (
	"slices"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

func init() {
	lint.Register(NoConsole)
}

// NoConsole disallows calls to console methods.
var NoConsole = lint.RuleDef{
	ID:          "no-console",
	Name:        "Disallow console",
	Type:        lint.TypeSuggestion,
	Description: "Disallow the use of console.",
	Severity:    lint.SeverityWarning,
	ConfigKeys:  []string{"allow"},
	Create: func(ctx *lint.Context) (lint.Listeners, error) {
		allow := lint.GetStringSliceOption(ctx.Options(), "allow", nil)
		return lint.Listeners{
			lint.On(`call_expression > member_expression[object="console"]`, func(n *tree.Node) {
				if n.Field() != "function" {
					return
				}
				if prop := n.ChildByField("property"); prop != nil && slices.Contains(allow, ctx.Text(prop)) {
					return
				}
				ctx.Report(lint.Descriptor{Node: n, Message: "Unexpected console statement."})
			}),
		}, nil
	},

	Rationale:   "Console output left in shipped code leaks internals and clutters logs.",
	BadExample:  `console.log("here");`,
	GoodExample: `logger.debug("here");`,
}

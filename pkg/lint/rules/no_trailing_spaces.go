package rules

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/source"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

func init() {
	lint.Register(NoTrailingSpaces)
}

// NoTrailingSpaces disallows whitespace at the end of lines.
var NoTrailingSpaces = lint.RuleDef{
	ID:          "no-trailing-spaces",
	Name:        "Disallow trailing whitespace",
	Type:        lint.TypeLayout,
	Description: "Disallow trailing whitespace at the end of lines.",
	Severity:    lint.SeverityWarning,
	Fixable:     lint.FixWhitespace,
	ConfigKeys:  []string{"skip_blank_lines", "ignore_comments"},
	Create:      createNoTrailingSpaces,
}

const trailingBlanks = " \t\v\f\u00a0\ufeff"

func createNoTrailingSpaces(ctx *lint.Context) (lint.Listeners, error) {
	skipBlank := lint.GetBoolOption(ctx.Options(), "skip_blank_lines", false)
	ignoreComments := lint.GetBoolOption(ctx.Options(), "ignore_comments", false)

	return lint.Listeners{
		lint.On("Program:exit", func(*tree.Node) {
			text := ctx.Source()
			// Whitespace inside template literals is content.
			protected := collect(ctx.Tree(), "template_string")
			if ignoreComments {
				protected = append(protected, collect(ctx.Tree(), "comment")...)
			}

			for line := 1; line <= text.LineCount(); line++ {
				content := text.Line(line)
				trimmed := strings.TrimRight(content, trailingBlanks)
				if len(trimmed) == len(content) {
					continue
				}
				if skipBlank && trimmed == "" {
					continue
				}
				start := text.LineStart(line)
				r := source.Range{Start: start + len(trimmed), End: start + len(content)}
				if inside(protected, r) {
					continue
				}
				ctx.Report(lint.Descriptor{
					Range:   r,
					Message: "Trailing spaces not allowed.",
					Fix: func(fx lint.Fixer) []lint.Edit {
						return []lint.Edit{fx.RemoveRange(r)}
					},
				})
			}
		}),
	}, nil
}

// inside reports whether r lies within one of the nodes. A comment that
// ends exactly at r still owns it.
func inside(nodes []*tree.Node, r source.Range) bool {
	for _, n := range nodes {
		if r.Start >= n.Start() && r.End <= n.End() {
			return true
		}
	}
	return false
}

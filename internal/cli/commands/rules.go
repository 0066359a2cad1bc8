package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules" // register built-in rules
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Type    string // Filter by type: problem, suggestion, layout
	Fixable bool   // Only fixable rules
	Verbose bool   // Show full documentation
	Format  string // Output format
}

// ruleTypeOrder is the listing order of rule types.
var ruleTypeOrder = []lint.RuleType{lint.TypeProblem, lint.TypeSuggestion, lint.TypeLayout}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-id]",
		Short: "List available lint rules",
		Long: `List all available lint rules with their documentation.

Rules are organized by type: problems are likely bugs, suggestions are
better ways of doing things and layout rules only affect formatting.
Use --verbose to see full documentation including examples and fix guidance.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all rules
  leaplint rules

  # Show details for a specific rule
  leaplint rules no-var

  # List layout rules only
  leaplint rules --type layout

  # List rules that --fix can repair
  leaplint rules --fixable

  # Output as JSON
  leaplint rules --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0], opts)
			}
			return listRules(cmd, opts)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeRuleIDs(nil, nil, "")
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "Filter by type: problem, suggestion, layout")
	cmd.Flags().BoolVar(&opts.Fixable, "fixable", false, "Only list fixable rules")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Show full documentation")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

// rulesRenderer returns the renderer for the rules command. The rules
// listing needs no project configuration.
func rulesRenderer(cmd *cobra.Command, opts *RulesOptions) *output.Renderer {
	format := opts.Format
	if format == "" {
		if cmdCtx, err := NewCommandContext(cmd); err == nil {
			return cmdCtx.Renderer
		}
	}
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	r := rulesRenderer(cmd, opts)

	if opts.Type != "" {
		if _, err := lint.ParseRuleType(opts.Type); err != nil {
			return err
		}
	}
	rules := filterRules(lint.AllRules(), opts)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return listRulesJSON(r, rules)
	case output.ModeMarkdown:
		return listRulesMarkdown(r, rules, opts.Verbose)
	default:
		return listRulesText(r, rules, opts.Verbose)
	}
}

// filterRules applies the options and orders rules by type, then ID.
func filterRules(rules []lint.RuleInfo, opts *RulesOptions) []lint.RuleInfo {
	var filtered []lint.RuleInfo
	for _, t := range ruleTypeOrder {
		if opts.Type != "" && string(t) != opts.Type {
			continue
		}
		for _, r := range rules {
			if r.Type != t {
				continue
			}
			if opts.Fixable && r.Fixable == lint.FixNone {
				continue
			}
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func showRule(cmd *cobra.Command, ruleID string, opts *RulesOptions) error {
	r := rulesRenderer(cmd, opts)

	rule, ok := lint.GetRule(ruleID)
	if !ok {
		return fmt.Errorf("rule %q not found", ruleID)
	}
	info := lint.GetRuleInfo(rule)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(info)
	case output.ModeMarkdown:
		showRuleMarkdown(r, &info)
	default:
		showRuleText(r, &info)
	}
	return nil
}

func typeHeading(t lint.RuleType) string {
	return cases.Title(language.English).String(string(t)) + " Rules"
}

func countByType(rules []lint.RuleInfo) map[lint.RuleType]int {
	counts := make(map[lint.RuleType]int)
	for _, r := range rules {
		counts[r.Type]++
	}
	return counts
}

// listRulesText outputs rules in styled text format.
func listRulesText(r *output.Renderer, rules []lint.RuleInfo, verbose bool) error {
	styles := r.Styles()
	counts := countByType(rules)

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Lint Rules (%d problem, %d suggestion, %d layout)",
		counts[lint.TypeProblem], counts[lint.TypeSuggestion], counts[lint.TypeLayout])))

	var t table.Writer
	var current lint.RuleType
	flush := func() {
		if t == nil {
			return
		}
		for _, line := range strings.Split(t.Render(), "\n") {
			r.Println("  " + line)
		}
		t = nil
	}

	for _, rule := range rules {
		if rule.Type != current {
			flush()
			current = rule.Type
			r.Println("")
			r.Println(styles.Header2.Render(typeHeading(current)))
			t = table.NewWriter()
			t.SetStyle(table.StyleDefault)
			t.Style().Options = table.OptionsNoBordersAndSeparators
		}

		fixable := ""
		if rule.Fixable != lint.FixNone {
			fixable = styles.Info.Render("fixable")
		}
		t.AppendRow(table.Row{
			styles.Bold.Render(rule.ID),
			severityStyle(styles, rule.DefaultSeverity).Render(rule.DefaultSeverity.String()),
			fixable,
			rule.Description,
		})
		if verbose && rule.Rationale != "" {
			t.AppendRow(table.Row{"", "", "", styles.Muted.Render("Why: " + truncateOneLine(rule.Rationale, 80))})
		}
	}
	flush()

	r.Println("")
	r.Println(styles.Muted.Render("Use 'leaplint rules <rule-id>' for detailed documentation"))
	r.Println("")

	return nil
}

// listRulesMarkdown outputs rules in markdown format.
func listRulesMarkdown(r *output.Renderer, rules []lint.RuleInfo, verbose bool) error {
	r.Println("# Lint Rules")
	r.Println("")

	var current lint.RuleType
	for _, rule := range rules {
		if rule.Type != current {
			current = rule.Type
			r.Println("## " + typeHeading(current))
			r.Println("")
		}

		fixable := ""
		if rule.Fixable != lint.FixNone {
			fixable = " (fixable)"
		}
		r.Printf("- **%s** - %s (`%s`)%s\n", rule.ID, rule.Description, rule.DefaultSeverity.String(), fixable)
		if verbose && rule.Rationale != "" {
			r.Println("  > " + rule.Rationale)
		}
	}

	r.Println("")
	return nil
}

// RulesJSONOutput is the JSON output structure for rules listing.
type RulesJSONOutput struct {
	Rules []lint.RuleInfo `json:"rules"`
	Count struct {
		Problem    int `json:"problem"`
		Suggestion int `json:"suggestion"`
		Layout     int `json:"layout"`
		Total      int `json:"total"`
	} `json:"count"`
}

// listRulesJSON outputs rules in JSON format.
func listRulesJSON(r *output.Renderer, rules []lint.RuleInfo) error {
	out := RulesJSONOutput{Rules: rules}
	counts := countByType(rules)
	out.Count.Problem = counts[lint.TypeProblem]
	out.Count.Suggestion = counts[lint.TypeSuggestion]
	out.Count.Layout = counts[lint.TypeLayout]
	out.Count.Total = len(rules)
	return r.JSON(out)
}

// showRuleText displays detailed rule info in text format.
func showRuleText(r *output.Renderer, rule *lint.RuleInfo) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("%s - %s", rule.ID, rule.Name)))
	r.Println("")

	r.Printf("  %s: %s\n", styles.Bold.Render("Type"), rule.Type)
	r.Printf("  %s: %s\n", styles.Bold.Render("Severity"), rule.DefaultSeverity.String())
	r.Printf("  %s: %s\n", styles.Bold.Render("Fixable"), rule.Fixable.String())
	r.Println("")

	r.Println(styles.Bold.Render("Description"))
	r.Println("  " + rule.Description)
	r.Println("")

	if rule.Rationale != "" {
		r.Println(styles.Bold.Render("Why This Matters"))
		r.Println("  " + rule.Rationale)
		r.Println("")
	}

	if rule.BadExample != "" {
		r.Println(styles.Bold.Render("Bad Example"))
		for _, line := range strings.Split(rule.BadExample, "\n") {
			r.Println(styles.Muted.Render("  " + line))
		}
		r.Println("")
	}

	if rule.GoodExample != "" {
		r.Println(styles.Bold.Render("Good Example"))
		for _, line := range strings.Split(rule.GoodExample, "\n") {
			r.Println(styles.Success.Render("  " + line))
		}
		r.Println("")
	}

	if rule.HowToFix != "" {
		r.Println(styles.Bold.Render("How to Fix"))
		r.Println("  " + rule.HowToFix)
		r.Println("")
	}

	if len(rule.ConfigKeys) > 0 {
		r.Println(styles.Bold.Render("Configuration"))
		r.Printf("  Options: %s\n", strings.Join(rule.ConfigKeys, ", "))
		r.Println("")
	}

	if rule.DocumentationURL != "" {
		r.Println(styles.Muted.Render("  " + rule.DocumentationURL))
	}
}

// showRuleMarkdown displays detailed rule info in markdown format.
func showRuleMarkdown(r *output.Renderer, rule *lint.RuleInfo) {
	r.Printf("# %s - %s\n\n", rule.ID, rule.Name)
	r.Printf("**Type:** %s | **Severity:** `%s` | **Fixable:** %s\n\n", rule.Type, rule.DefaultSeverity.String(), rule.Fixable.String())
	r.Println(rule.Description)
	r.Println("")

	if rule.Rationale != "" {
		r.Println("## Why This Matters")
		r.Println("")
		r.Println(rule.Rationale)
		r.Println("")
	}

	if rule.BadExample != "" {
		r.Println("## Bad Example")
		r.Println("")
		r.Println("```js")
		r.Println(rule.BadExample)
		r.Println("```")
		r.Println("")
	}

	if rule.GoodExample != "" {
		r.Println("## Good Example")
		r.Println("")
		r.Println("```js")
		r.Println(rule.GoodExample)
		r.Println("```")
		r.Println("")
	}

	if rule.HowToFix != "" {
		r.Println("## How to Fix")
		r.Println("")
		r.Println(rule.HowToFix)
		r.Println("")
	}

	if len(rule.ConfigKeys) > 0 {
		r.Println("## Configuration")
		r.Println("")
		r.Printf("Options: `%s`\n", strings.Join(rule.ConfigKeys, "`, `"))
		r.Println("")
	}

	if rule.DocumentationURL != "" {
		r.Printf("See %s\n", rule.DocumentationURL)
	}
}

func severityStyle(styles *output.Styles, sev lint.Severity) lipgloss.Style {
	switch sev {
	case lint.SeverityError:
		return styles.Error
	case lint.SeverityWarning:
		return styles.Warning
	case lint.SeverityInfo:
		return styles.Info
	default:
		return styles.Muted
	}
}

func truncateOneLine(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// LintViolation is one reported problem in a form fit for every mode.
type LintViolation struct {
	RuleID    string `json:"rule_id,omitempty"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
	Fixable   bool   `json:"fixable"`
	Fatal     bool   `json:"fatal,omitempty"`
}

// LintFileResult holds the results for one file.
type LintFileResult struct {
	Path         string          `json:"path"`
	Violations   []LintViolation `json:"violations"`
	Error        string          `json:"error,omitempty"`
	FixesApplied int             `json:"fixes_applied,omitempty"`
	Converged    bool            `json:"converged"`
	Cached       bool            `json:"cached,omitempty"`
	// Output is the fixed source, set only for dry runs.
	Output string `json:"output,omitempty"`
}

// LintSummary totals a run.
type LintSummary struct {
	Files           int `json:"files"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	FixableErrors   int `json:"fixable_errors"`
	FixableWarnings int `json:"fixable_warnings"`
	FixesApplied    int `json:"fixes_applied"`
	FailedFiles     int `json:"failed_files"`
	Suppressed      int `json:"suppressed"`
}

// Problems returns errors plus warnings.
func (s LintSummary) Problems() int {
	return s.Errors + s.Warnings
}

// LintOutput is the complete result of a lint run.
type LintOutput struct {
	Files              []LintFileResult `json:"files"`
	Summary            LintSummary      `json:"summary"`
	UnusedSuppressions []string         `json:"unused_suppressions,omitempty"`
}

// RenderLint writes lint results in the effective mode. Files without
// problems are omitted from text and markdown output.
func (r *Renderer) RenderLint(out *LintOutput) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(out)
	case ModeMarkdown:
		r.renderLintMarkdown(out)
	default:
		r.renderLintText(out)
	}
	return nil
}

func hasProblems(f LintFileResult) bool {
	return len(f.Violations) > 0 || f.Error != ""
}

func (r *Renderer) renderLintText(out *LintOutput) {
	styles := r.styles
	for _, f := range out.Files {
		if !hasProblems(f) {
			continue
		}
		r.Println("")
		r.Println(styles.Path.Render(f.Path))
		if f.Error != "" {
			r.Println("  " + styles.Error.Render(f.Error))
		}
		if len(f.Violations) == 0 {
			continue
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleDefault)
		t.Style().Options = table.OptionsNoBordersAndSeparators
		for _, v := range f.Violations {
			sev := styles.Warning.Render(v.Severity)
			if v.Severity == "error" {
				sev = styles.Error.Render(v.Severity)
			}
			t.AppendRow(table.Row{
				styles.Muted.Render(fmt.Sprintf("%d:%d", v.Line, v.Column)),
				sev,
				v.Message,
				styles.Muted.Render(v.RuleID),
			})
		}
		for _, line := range strings.Split(t.Render(), "\n") {
			r.Println(" " + line)
		}
	}

	s := out.Summary
	r.Println("")
	switch {
	case s.Problems() > 0:
		summary := fmt.Sprintf("%s %s (%s, %s)", styles.StatusFailed.String(),
			Plural(s.Problems(), "problem"), Plural(s.Errors, "error"), Plural(s.Warnings, "warning"))
		if s.Errors > 0 {
			r.Println(styles.Error.Bold(true).Render(summary))
		} else {
			r.Println(styles.Warning.Bold(true).Render(summary))
		}
		if s.FixableErrors+s.FixableWarnings > 0 {
			r.Println(styles.Muted.Render(fmt.Sprintf("  %s and %s potentially fixable with the `--fix` option.",
				Plural(s.FixableErrors, "error"), Plural(s.FixableWarnings, "warning"))))
		}
	case s.FailedFiles == 0:
		r.Success(fmt.Sprintf("No problems found in %s", Plural(s.Files, "file")))
	}
	if s.FailedFiles > 0 {
		r.Println(styles.Error.Render(fmt.Sprintf("%s could not be linted", Plural(s.FailedFiles, "file"))))
	}
	if s.FixesApplied > 0 {
		r.Println(styles.Success.Render(fmt.Sprintf("Applied %s", Plural(s.FixesApplied, "fix"))))
	}
	if s.Suppressed > 0 {
		r.Println(styles.Muted.Render(fmt.Sprintf("%s suppressed", Plural(s.Suppressed, "violation"))))
	}
	for _, u := range out.UnusedSuppressions {
		r.Warning("unused suppression: " + u)
	}
}

func (r *Renderer) renderLintMarkdown(out *LintOutput) {
	r.Println(FormatHeader(1, "Lint Results"))
	r.Println("")

	for _, f := range out.Files {
		if !hasProblems(f) {
			continue
		}
		r.Println(FormatHeader(2, f.Path))
		r.Println("")
		if f.Error != "" {
			r.Println("> " + f.Error)
			r.Println("")
		}
		if len(f.Violations) == 0 {
			continue
		}
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Line", "Column", "Severity", "Rule", "Message"})
		for _, v := range f.Violations {
			t.AppendRow(table.Row{v.Line, v.Column, v.Severity, v.RuleID, v.Message})
		}
		r.Println(t.RenderMarkdown())
		r.Println("")
	}

	s := out.Summary
	r.Println(FormatHeader(2, "Summary"))
	r.Println("")
	r.Println(FormatKeyValue("Files", fmt.Sprintf("%d", s.Files)))
	r.Println(FormatKeyValue("Errors", fmt.Sprintf("%d", s.Errors)))
	r.Println(FormatKeyValue("Warnings", fmt.Sprintf("%d", s.Warnings)))
	if s.FixesApplied > 0 {
		r.Println(FormatKeyValue("Fixes applied", fmt.Sprintf("%d", s.FixesApplied)))
	}
	if s.FailedFiles > 0 {
		r.Println(FormatKeyValue("Failed files", fmt.Sprintf("%d", s.FailedFiles)))
	}
	if s.Suppressed > 0 {
		r.Println(FormatKeyValue("Suppressed", fmt.Sprintf("%d", s.Suppressed)))
	}
	for _, u := range out.UnusedSuppressions {
		r.Println(FormatKeyValue("Unused suppression", u))
	}
}

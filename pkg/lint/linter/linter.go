// Package linter runs rules over a source text: it parses, dispatches
// listeners during a depth-first traversal, and, when fixing, repeats
// parse, analyze and fix passes until the text stops changing or a pass
// ceiling is reached.
package linter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/lint/fix"
	"github.com/leapstack-labs/leaplint/pkg/source"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

// DefaultMaxPasses bounds the fix loop when Options.MaxPasses is unset.
const DefaultMaxPasses = 10

// Options controls a single Lint call.
type Options struct {
	// Fix enables the multi-pass fix loop.
	Fix bool
	// MaxPasses caps the number of parse/analyze cycles. Zero means
	// DefaultMaxPasses.
	MaxPasses int
	// FixTypes restricts fixing to rules of these types. Empty means all.
	FixTypes []lint.RuleType
	// Filename is passed through to rules and reports.
	Filename string
	// NoInlineConfig ignores leaplint-disable comments.
	NoInlineConfig bool
	// ReportUnusedDirectives reports disable comments that hid nothing.
	ReportUnusedDirectives bool
}

// Pass records one parse/analyze/fix cycle.
type Pass struct {
	Number     int
	Input      *source.Text
	Violations []lint.Violation
	Plan       *fix.Plan    // nil unless fixing
	Output     *source.Text // nil when no edit was applied
}

// Report is the outcome of linting one text.
type Report struct {
	Filename string
	// Source is the final text: the input when nothing was fixed.
	Source *source.Text
	// Violations remaining after the last pass, in report order.
	Violations []lint.Violation
	// FixesApplied counts edits applied across all passes.
	FixesApplied int
	Passes       []Pass
	// Converged is false when the pass ceiling stopped a fix loop that was
	// still applying edits.
	Converged bool
	// Fixed reports whether Source differs from the input.
	Fixed bool
}

// PassCount returns the number of completed analysis passes.
func (r *Report) PassCount() int {
	return len(r.Passes)
}

// Fatal reports whether the text could not be parsed.
func (r *Report) Fatal() bool {
	for _, v := range r.Violations {
		if v.Fatal {
			return true
		}
	}
	return false
}

// Option configures a Linter.
type Option func(*Linter)

// WithLogger sets the logger used for pass-level diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Linter runs rules over source texts. It holds no per-file state and is
// safe for concurrent use as long as its parser is.
type Linter struct {
	parser tree.Parser
	logger *slog.Logger
}

// New creates a Linter that parses with p.
func New(p tree.Parser, opts ...Option) *Linter {
	l := &Linter{
		parser: p,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lint analyzes text with the given rules. Parse failures are reported as a
// single fatal violation, not as an error. A rule failure returns a
// *lint.RuleError. The context is only consulted between passes, so a pass
// that has started always completes.
func (l *Linter) Lint(ctx context.Context, text *source.Text, rules []lint.ActiveRule, opts Options) (*Report, error) {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	logger := l.logger.With(slog.String("file", opts.Filename))
	filter := fixFilter(rules, opts.FixTypes)

	report := &Report{Filename: opts.Filename, Source: text, Converged: true}
	current := text

	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("lint interrupted before pass %d: %w", pass, err)
		}

		tr, err := l.parser.Parse(ctx, current)
		if err != nil {
			var serr *tree.SyntaxError
			if !errors.As(err, &serr) {
				return nil, fmt.Errorf("failed to parse: %w", err)
			}
			if pass > 1 {
				logger.Warn("fixes produced unparseable output", slog.Int("pass", pass))
			}
			report.Source = current
			report.Violations = []lint.Violation{syntaxViolation(current, serr)}
			report.Fixed = current.String() != text.String()
			return report, nil
		}

		violations, err := l.analyze(tr, rules, opts)
		if err != nil {
			return nil, err
		}
		p := Pass{Number: pass, Input: current, Violations: violations}

		if !opts.Fix {
			report.Passes = append(report.Passes, p)
			report.Violations = violations
			return report, nil
		}

		p.Plan = fix.Resolve(violations, filter)
		if p.Plan.Empty() {
			report.Passes = append(report.Passes, p)
			report.Source = current
			report.Violations = violations
			report.Fixed = current.String() != text.String()
			return report, nil
		}

		p.Output = p.Plan.Apply(current)
		report.Passes = append(report.Passes, p)
		report.FixesApplied += len(p.Plan.Accepted)
		logger.Debug("applied fixes",
			slog.Int("pass", pass),
			slog.Int("accepted", len(p.Plan.Accepted)),
			slog.Int("skipped", len(p.Plan.Skipped)))

		if pass >= maxPasses {
			report.Source = p.Output
			report.Violations = relocate(p, p.Output)
			report.Converged = false
			report.Fixed = true
			logger.Warn("fix loop did not converge", slog.Int("max_passes", maxPasses))
			return report, nil
		}
		current = p.Output
	}
}

// analyze runs one traversal and applies inline directives.
func (l *Linter) analyze(tr *tree.Tree, rules []lint.ActiveRule, opts Options) ([]lint.Violation, error) {
	var violations []lint.Violation
	sink := func(v lint.Violation) { violations = append(violations, v) }

	ix, err := instantiate(rules, tr, opts.Filename, sink)
	if err != nil {
		return nil, err
	}
	d := &dispatcher{tree: tr, ix: ix}
	if err := d.run(); err != nil {
		var rerr *lint.RuleError
		if errors.As(err, &rerr) {
			rerr.Start = tr.Source().PositionFor(rerr.Range.Start)
		}
		return nil, err
	}

	if opts.NoInlineConfig {
		return violations, nil
	}
	ds := parseDirectives(tr)
	violations = ds.filter(violations)
	if opts.ReportUnusedDirectives {
		violations = append(violations, ds.unused(tr.Source())...)
	}
	return violations, nil
}

// relocate maps the violations left unfixed by the final pass into the
// text that pass produced. Their fixes refer to the old text and are
// dropped.
func relocate(p Pass, out *source.Text) []lint.Violation {
	remaining := p.Plan.Remaining(p.Violations)
	for i := range remaining {
		v := &remaining[i]
		v.Range = source.Range{Start: p.Plan.MapOffset(v.Range.Start), End: p.Plan.MapOffset(v.Range.End)}
		if v.Range.End < v.Range.Start {
			v.Range.End = v.Range.Start
		}
		v.Fix = nil
		v.Locate(out)
	}
	return remaining
}

func syntaxViolation(text *source.Text, err *tree.SyntaxError) lint.Violation {
	v := lint.Violation{
		Severity: lint.SeverityError,
		Message:  err.Message,
		Range:    source.Range{Start: err.Offset, End: err.Offset},
		Fatal:    true,
	}
	v.Locate(text)
	return v
}

func fixFilter(rules []lint.ActiveRule, types []lint.RuleType) fix.Filter {
	if len(types) == 0 {
		return nil
	}
	allowed := make(map[lint.RuleType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	ruleTypes := make(map[string]lint.RuleType, len(rules))
	for _, r := range rules {
		ruleTypes[r.Rule.ID()] = r.Rule.Type()
	}
	return func(v lint.Violation) bool {
		return allowed[ruleTypes[v.RuleID]]
	}
}

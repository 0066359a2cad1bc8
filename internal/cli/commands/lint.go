package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplint/internal/cache"
	"github.com/leapstack-labs/leaplint/internal/cli/config"
	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/files"
	"github.com/leapstack-labs/leaplint/internal/runner"
	"github.com/leapstack-labs/leaplint/internal/suppress"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/lint/linter"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules" // register built-in rules
	"github.com/leapstack-labs/leaplint/pkg/tree/javascript"
)

// LintOptions holds options for the lint command.
type LintOptions struct {
	Fix                        bool
	FixDryRun                  bool
	FixTypes                   []string
	Rules                      []string // Run only these rules
	Stdin                      bool
	StdinFilename              string
	MaxWarnings                int // -1 disables the check
	Watch                      bool
	SuppressAll                bool
	SuppressRules              []string
	PruneSuppressions          bool
	PassOnUnprunedSuppressions bool
}

func (o *LintOptions) suppressing() bool {
	return o.SuppressAll || len(o.SuppressRules) > 0
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [path...]",
		Short: "Lint JavaScript files",
		Long: `Analyze JavaScript files and report problems.

Files are selected by the include and ignore patterns of .leaplint.yaml;
paths given on the command line narrow the search. With --fix, fixes are
applied in repeated passes until the source stops changing or the pass
limit is reached.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Lint the project
  leaplint lint

  # Lint and fix a directory
  leaplint lint --fix src/

  # Show what --fix would change without writing
  leaplint lint --fix-dry-run

  # Only apply layout fixes
  leaplint lint --fix --fix-type layout

  # Lint text from an editor
  cat app.js | leaplint lint --stdin --stdin-filename app.js

  # Record current errors as accepted debt
  leaplint lint --suppress-all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.Fix, "fix", false, "Automatically fix problems and write the results")
	f.BoolVar(&opts.FixDryRun, "fix-dry-run", false, "Compute fixes without writing them; prints a diff")
	f.StringSliceVar(&opts.FixTypes, "fix-type", nil, "Fix only rules of these types: problem, suggestion, layout")
	f.StringSliceVar(&opts.Rules, "rule", nil, "Run only these rules")
	f.BoolVar(&opts.Stdin, "stdin", false, "Lint source read from standard input")
	f.StringVar(&opts.StdinFilename, "stdin-filename", "<stdin>", "File name reported for --stdin")
	f.IntVar(&opts.MaxWarnings, "max-warnings", -1, "Fail when more warnings than this are found")
	f.BoolVarP(&opts.Watch, "watch", "w", false, "Re-lint files when they change")
	f.BoolVar(&opts.SuppressAll, "suppress-all", false, "Suppress all current error violations")
	f.StringSliceVar(&opts.SuppressRules, "suppress-rule", nil, "Suppress current error violations of these rules")
	f.BoolVar(&opts.PruneSuppressions, "prune-suppressions", false, "Remove suppressions that no longer occur")
	f.BoolVar(&opts.PassOnUnprunedSuppressions, "pass-on-unpruned-suppressions", false, "Do not fail on unused suppressions")

	// Config-backed flags; the loader maps them onto config keys.
	f.Int("max-passes", config.DefaultMaxPasses, "Maximum parse/fix passes per file")
	f.Int("workers", 0, "Files linted in parallel (0 = number of CPUs)")
	f.Duration("file-timeout", config.DefaultFileTimeout, "Time limit per file (0 = none)")
	f.Bool("cache", false, "Only lint changed files")
	f.String("cache-location", config.DefaultCachePath, "Path to the cache database")
	f.String("suppressions-location", config.DefaultSuppressionsPath, "Path to the suppressions file")
	f.Bool("no-inline-config", false, "Ignore leaplint-disable comments")
	f.Bool("report-unused-directives", false, "Report leaplint-disable comments that hide nothing")

	_ = cmd.RegisterFlagCompletionFunc("fix-type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(lint.TypeProblem), string(lint.TypeSuggestion), string(lint.TypeLayout)}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("rule", completeRuleIDs)
	_ = cmd.RegisterFlagCompletionFunc("suppress-rule", completeRuleIDs)

	return cmd
}

func completeRuleIDs(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	var ids []string
	for _, r := range lint.GetAll() {
		ids = append(ids, r.ID())
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// lintSession holds everything needed to lint and report, so watch mode can
// repeat runs with the same setup.
type lintSession struct {
	opts    *LintOptions
	cfg     *config.Config
	logger  *slog.Logger
	r       *output.Renderer
	errOut  io.Writer
	runner  *runner.Runner
	sup     *suppress.File
	matcher *files.Matcher
}

func runLint(cmd *cobra.Command, opts *LintOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}

	s, cleanup, err := newLintSession(ctx, cmdCtx, opts)
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	defer cleanup()
	s.errOut = cmd.ErrOrStderr()

	if opts.Stdin {
		return s.lintStdin(ctx, cmd.InOrStdin())
	}

	if len(args) == 0 {
		args = []string{"."}
	}
	paths, err := files.Discover(ctx, s.cfg.ProjectRoot, args, s.matcher)
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	if len(paths) == 0 && !opts.Watch {
		return &ExitError{Code: ExitFatal, Err: fmt.Errorf("no files matching %s", strings.Join(args, ", "))}
	}

	code, err := s.lintPaths(ctx, paths)
	if opts.Watch {
		if err != nil {
			s.r.Error(err.Error())
		}
		return s.watch(ctx, args)
	}
	if err != nil {
		return &ExitError{Code: code, Err: err}
	}
	if code != ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

func newLintSession(ctx context.Context, cmdCtx *CommandContext, opts *LintOptions) (*lintSession, func(), error) {
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger

	if opts.Stdin && (opts.suppressing() || opts.PruneSuppressions) {
		return nil, nil, errors.New("suppression flags cannot be used with --stdin")
	}
	if opts.SuppressAll && len(opts.SuppressRules) > 0 {
		return nil, nil, errors.New("--suppress-all and --suppress-rule cannot be used together")
	}

	rules, err := cfg.ActiveRules(opts.Rules...)
	if err != nil {
		return nil, nil, err
	}
	if len(rules) == 0 {
		return nil, nil, errors.New("no rules enabled")
	}
	fixTypes := make([]lint.RuleType, 0, len(opts.FixTypes))
	for _, t := range opts.FixTypes {
		rt, err := lint.ParseRuleType(strings.TrimSpace(t))
		if err != nil {
			return nil, nil, err
		}
		fixTypes = append(fixTypes, rt)
	}

	lintOpts := linter.Options{
		Fix:                    opts.Fix || opts.FixDryRun,
		MaxPasses:              cfg.MaxPasses,
		FixTypes:               fixTypes,
		NoInlineConfig:         cfg.NoInlineConfig,
		ReportUnusedDirectives: cfg.ReportUnusedDirectives,
	}
	runCfg := runner.Config{
		Linter:      linter.New(javascript.New(javascript.WithLogger(logger)), linter.WithLogger(logger)),
		Rules:       rules,
		Options:     lintOpts,
		Workers:     cfg.Workers,
		FileTimeout: cfg.FileTimeout,
		WriteFixes:  opts.Fix && !opts.FixDryRun,
		Logger:      logger,
	}

	cleanup := func() {}
	if cfg.Cache.Enabled && !opts.Stdin {
		c, err := cache.Open(ctx, cfg.Cache.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = c.Close() }
		runCfg.Cache = c
		runCfg.ConfigHash, err = configHash(rules, lintOpts)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	sup, err := suppress.Load(cfg.Suppressions.Path)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &lintSession{
		opts:    opts,
		cfg:     cfg,
		logger:  logger,
		r:       cmdCtx.Renderer,
		runner:  runner.New(runCfg),
		sup:     sup,
		matcher: files.NewMatcher(cfg.Include, cfg.Ignore),
	}, cleanup, nil
}

// ruleFingerprint is the part of a rule's configuration that affects results.
type ruleFingerprint struct {
	ID       string
	Severity string
	Options  map[string]any
}

// configHash identifies the rule set and every option that changes a
// report, so a fixing run never reuses a plain run's results.
func configHash(rules []lint.ActiveRule, opts linter.Options) (string, error) {
	fps := make([]ruleFingerprint, 0, len(rules))
	for _, r := range rules {
		fps = append(fps, ruleFingerprint{ID: r.Rule.ID(), Severity: r.Severity.String(), Options: r.Options})
	}
	fixTypes := make([]string, 0, len(opts.FixTypes))
	for _, t := range opts.FixTypes {
		fixTypes = append(fixTypes, string(t))
	}
	sort.Strings(fixTypes)
	return cache.ConfigHash(fps, opts.NoInlineConfig, opts.ReportUnusedDirectives, opts.Fix, fixTypes)
}

// lintPaths lints, reports and returns the exit code for the run.
func (s *lintSession) lintPaths(ctx context.Context, paths []string) (int, error) {
	results, err := s.runner.Run(ctx, paths)
	if err != nil {
		return ExitFatal, err
	}
	out, err := s.collect(ctx, results)
	if err != nil {
		return ExitFatal, err
	}

	if s.dryRun() && s.r.EffectiveMode() != output.ModeJSON {
		for _, res := range results {
			s.printDiff(res)
		}
	}
	if err := s.r.RenderLint(out); err != nil {
		return ExitFatal, err
	}
	return s.exitCode(out)
}

func (s *lintSession) lintStdin(ctx context.Context, in io.Reader) error {
	content, err := io.ReadAll(in)
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: fmt.Errorf("failed to read stdin: %w", err)}
	}
	res := s.runner.LintText(ctx, s.opts.StdinFilename, content)
	out, err := s.collect(ctx, []runner.FileResult{res})
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}

	r := s.r
	if s.opts.Fix || s.opts.FixDryRun {
		fixed := fixedOutput(content, res.Report)
		if r.EffectiveMode() == output.ModeJSON {
			out.Files[0].Output = string(fixed)
		} else {
			// stdout carries the fixed source; the report goes to stderr.
			_, _ = r.Writer().Write(fixed)
			r = output.NewRenderer(s.errOut, s.errOut, output.Mode(s.cfg.OutputFormat))
		}
	}
	if err := r.RenderLint(out); err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	code, err := s.exitCode(out)
	if code != ExitOK || err != nil {
		return &ExitError{Code: code, Err: err}
	}
	return nil
}

// fixedOutput is the text printed for a fixing stdin run: the fixed source,
// or the input when nothing was fixed or the fixes broke parsing.
func fixedOutput(content []byte, report *linter.Report) []byte {
	if report == nil || !report.Fixed || report.Fatal() {
		return content
	}
	return []byte(report.Source.Output())
}

func (s *lintSession) dryRun() bool {
	return s.opts.FixDryRun
}

// collect converts results for rendering and applies bulk suppressions.
func (s *lintSession) collect(ctx context.Context, results []runner.FileResult) (*output.LintOutput, error) {
	out := &output.LintOutput{Files: make([]output.LintFileResult, 0, len(results))}
	sum := &out.Summary
	dirty := false

	for _, res := range results {
		sum.Files++
		fr := output.LintFileResult{Path: res.Path, Cached: res.Cached}
		if res.Err != nil {
			fr.Error = res.Err.Error()
			sum.FailedFiles++
			out.Files = append(out.Files, fr)
			continue
		}

		vs := res.Violations()
		if !s.opts.Stdin {
			key := files.Rel(s.cfg.ProjectRoot, res.Path)
			if s.opts.suppressing() {
				s.sup.Suppress(key, vs, s.opts.SuppressRules...)
				dirty = true
			}
			if s.opts.PruneSuppressions {
				s.sup.Prune(key, vs)
				dirty = true
			}
			kept, unused := s.sup.Apply(key, vs)
			sum.Suppressed += len(vs) - len(kept)
			for _, u := range unused {
				out.UnusedSuppressions = append(out.UnusedSuppressions, u.String())
			}
			vs = kept
		}

		fr.Converged = res.Report.Converged
		fr.FixesApplied = res.Report.FixesApplied
		if s.dryRun() && res.Report.Fixed && s.r.EffectiveMode() == output.ModeJSON {
			fr.Output = res.Report.Source.Output()
		}
		sum.FixesApplied += res.Report.FixesApplied
		fr.Violations = make([]output.LintViolation, 0, len(vs))
		for _, v := range vs {
			fr.Violations = append(fr.Violations, toOutputViolation(v))
			switch v.Severity {
			case lint.SeverityError:
				sum.Errors++
				if v.Fixable() {
					sum.FixableErrors++
				}
			case lint.SeverityWarning:
				sum.Warnings++
				if v.Fixable() {
					sum.FixableWarnings++
				}
			}
		}
		out.Files = append(out.Files, fr)
	}

	if dirty {
		if err := s.sup.Save(ctx); err != nil {
			return nil, err
		}
		s.logger.Info("suppressions updated", slog.String("path", s.sup.Path()), slog.Int("entries", s.sup.Len()))
	}
	return out, nil
}

func toOutputViolation(v lint.Violation) output.LintViolation {
	return output.LintViolation{
		RuleID:    v.RuleID,
		Severity:  v.Severity.String(),
		Message:   v.Message,
		Line:      v.Start.Line,
		Column:    v.Start.Column,
		EndLine:   v.End.Line,
		EndColumn: v.End.Column,
		Fixable:   v.Fixable(),
		Fatal:     v.Fatal,
	}
}

func (s *lintSession) exitCode(out *output.LintOutput) (int, error) {
	sum := out.Summary
	switch {
	case sum.FailedFiles > 0:
		return ExitFatal, nil
	case len(out.UnusedSuppressions) > 0 && !s.opts.PassOnUnprunedSuppressions && !s.opts.Stdin:
		return ExitFatal, fmt.Errorf("%w; run with --prune-suppressions", suppress.ErrUnusedSuppressions)
	case sum.Errors > 0:
		return ExitLint, nil
	case s.opts.MaxWarnings >= 0 && sum.Warnings > s.opts.MaxWarnings:
		s.r.Warning(fmt.Sprintf("leaplint found too many warnings (maximum: %d)", s.opts.MaxWarnings))
		return ExitLint, nil
	}
	return ExitOK, nil
}

// printDiff writes a unified diff of the fixes computed for one file.
func (s *lintSession) printDiff(res runner.FileResult) {
	if res.Report == nil || !res.Report.Fixed || len(res.Report.Passes) == 0 {
		return
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(res.Report.Passes[0].Input.Output()),
		B:        difflib.SplitLines(res.Report.Source.Output()),
		FromFile: res.Path,
		ToFile:   res.Path + " (fixed)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		s.logger.Warn("failed to diff fixes", slog.String("file", res.Path), slog.String("error", err.Error()))
		return
	}
	if s.r.EffectiveMode() == output.ModeMarkdown {
		s.r.Println("```diff")
		s.r.Print(text)
		s.r.Println("```")
		return
	}
	s.r.Print(text)
}

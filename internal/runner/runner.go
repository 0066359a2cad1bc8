// Package runner lints batches of files concurrently. Each file is linted in
// isolation; a failure in one file is recorded in its result and never stops
// the others. Only cache storage failures abort a run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leaplint/internal/cache"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/lint/linter"
	"github.com/leapstack-labs/leaplint/pkg/source"
)

// Config configures a Runner.
type Config struct {
	Linter *linter.Linter
	Rules  []lint.ActiveRule
	// Options applies to every file; Filename is set per file.
	Options linter.Options
	// Workers bounds concurrency. Zero means runtime.NumCPU().
	Workers int
	// FileTimeout bounds the time spent on one file. Zero means no limit.
	FileTimeout time.Duration
	// WriteFixes writes fixed output back to disk.
	WriteFixes bool

	// Cache is optional. ConfigHash must identify everything besides file
	// content that affects results.
	Cache      *cache.Cache
	ConfigHash string

	Logger *slog.Logger
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path     string
	Report   *linter.Report
	Err      error
	Cached   bool
	Written  bool
	Duration time.Duration
}

// Violations returns the reported violations, or nil if linting failed.
func (r FileResult) Violations() []lint.Violation {
	if r.Report == nil {
		return nil
	}
	return r.Report.Violations
}

// Runner lints files with a fixed configuration.
type Runner struct {
	cfg    Config
	logger *slog.Logger

	readFile  func(string) ([]byte, error)
	writeFile func(string, []byte) error
}

// New creates a Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Runner{
		cfg:       cfg,
		logger:    logger,
		readFile:  os.ReadFile,
		writeFile: writeFilePreservingMode,
	}
}

// Run lints paths and returns one result per path, in input order.
// Cancelling ctx stops scheduling new files; files already started finish.
// The returned error is either a cache failure or the context error.
func (r *Runner) Run(ctx context.Context, paths []string) ([]FileResult, error) {
	runID := uuid.New().String()
	logger := r.logger.With(slog.String("run_id", runID))
	start := time.Now()
	logger.Debug("lint run started", slog.Int("files", len(paths)), slog.Int("workers", r.cfg.Workers))

	results := make([]FileResult, len(paths))
	for i, p := range paths {
		results[i].Path = p
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	scheduled := 0
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		scheduled++
		g.Go(func() error {
			fileStart := time.Now()
			res, err := r.lintFile(context.WithoutCancel(gctx), path, logger)
			res.Duration = time.Since(fileStart)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	for i := scheduled; i < len(paths); i++ {
		results[i].Err = fmt.Errorf("not linted: %w", context.Cause(gctx))
	}

	logger.Debug("lint run finished",
		slog.Int("files", len(paths)),
		slog.Int("scheduled", scheduled),
		slog.Duration("duration", time.Since(start)))

	if err != nil {
		return results, err
	}
	if ctx.Err() != nil {
		return results, fmt.Errorf("lint run interrupted: %w", ctx.Err())
	}
	return results, nil
}

// LintText lints in-memory content attributed to path. Nothing is read from
// or written to disk and the cache is not consulted.
func (r *Runner) LintText(ctx context.Context, path string, content []byte) FileResult {
	start := time.Now()
	res := FileResult{Path: path}
	res.Report, res.Err = r.lint(ctx, path, source.New(string(content)))
	res.Duration = time.Since(start)
	return res
}

// lintFile handles one file. The returned error is reserved for failures
// that must stop the run.
func (r *Runner) lintFile(ctx context.Context, path string, logger *slog.Logger) (FileResult, error) {
	res := FileResult{Path: path}
	content, err := r.readFile(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to read %s: %w", path, err)
		return res, nil
	}
	text := source.New(string(content))

	var key cache.Key
	if r.cfg.Cache != nil {
		key = cache.Key{Path: path, ContentHash: cache.ContentHash(content), ConfigHash: r.cfg.ConfigHash}
		entry, ok, err := r.cfg.Cache.Get(ctx, key)
		if err != nil {
			return res, err
		}
		if ok {
			res.Cached = true
			res.Report = &linter.Report{
				Filename:   path,
				Source:     text,
				Violations: entry.Violations,
				Converged:  entry.Converged,
			}
			return res, nil
		}
	}

	res.Report, res.Err = r.lint(ctx, path, text)
	if res.Err != nil {
		var rerr *lint.RuleError
		if errors.As(res.Err, &rerr) {
			logger.Error("rule failed",
				slog.String("file", path),
				slog.String("rule", rerr.RuleID),
				slog.String("error", rerr.Error()))
		}
		return res, nil
	}

	if r.cfg.WriteFixes && res.Report.Fixed && !res.Report.Fatal() {
		if err := r.writeFile(path, []byte(res.Report.Source.Output())); err != nil {
			res.Err = fmt.Errorf("failed to write fixes to %s: %w", path, err)
			return res, nil
		}
		res.Written = true
	}

	// Only results that leave the file untouched describe its content.
	if r.cfg.Cache != nil && res.Report.FixesApplied == 0 {
		entry := &cache.Entry{Violations: res.Report.Violations, Converged: res.Report.Converged}
		if err := r.cfg.Cache.Put(ctx, key, entry); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *Runner) lint(ctx context.Context, path string, text *source.Text) (*linter.Report, error) {
	if r.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.FileTimeout)
		defer cancel()
	}
	opts := r.cfg.Options
	opts.Filename = path
	return r.cfg.Linter.Lint(ctx, text, r.cfg.Rules, opts)
}

func writeFilePreservingMode(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}

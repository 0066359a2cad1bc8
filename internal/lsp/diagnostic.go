package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/leaplint/internal/cli/config"
	"github.com/leapstack-labs/leaplint/internal/files"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/lint/linter"
	"github.com/leapstack-labs/leaplint/pkg/tree/javascript"
)

const diagnosticSource = "leaplint"

// workspace is the configuration the server lints with. It is replaced as a
// whole when the config file changes.
type workspace struct {
	cfg     *config.Config
	rules   []lint.ActiveRule
	matcher *files.Matcher
	linter  *linter.Linter
}

// loadWorkspace loads the configuration for root. On error it still returns
// a usable workspace with the default configuration and every rule enabled.
func loadWorkspace(root string, logger *slog.Logger) (*workspace, error) {
	cfg, err := config.LoadFromDir(root)
	var rules []lint.ActiveRule
	if err == nil {
		rules, err = cfg.ActiveRules()
	}
	if err != nil {
		logger.Warn("using default configuration", slog.String("error", err.Error()))
		cfg = &config.Config{
			Include:     config.DefaultInclude,
			Ignore:      config.DefaultIgnore,
			MaxPasses:   config.DefaultMaxPasses,
			FileTimeout: config.DefaultFileTimeout,
			ProjectRoot: root,
		}
		rules, _ = cfg.ActiveRules()
	}

	return &workspace{
		cfg:     cfg,
		rules:   rules,
		matcher: files.NewMatcher(cfg.Include, cfg.Ignore),
		linter:  linter.New(javascript.New(javascript.WithLogger(logger)), linter.WithLogger(logger)),
	}, err
}

// covers reports whether the workspace lints the file at path.
func (w *workspace) covers(path string) bool {
	if w.cfg.ProjectRoot == "" || !filepath.IsAbs(path) {
		return w.matcher.Included(filepath.ToSlash(filepath.Base(path)))
	}
	return w.matcher.Included(files.Rel(w.cfg.ProjectRoot, path))
}

// lintDocument lints the document with the workspace rules.
func (w *workspace) lintDocument(ctx context.Context, doc *Document, fix bool) (*linter.Report, error) {
	if w.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.FileTimeout)
		defer cancel()
	}

	report, err := w.linter.Lint(ctx, doc.Text, w.rules, linter.Options{
		Fix:                    fix,
		MaxPasses:              w.cfg.MaxPasses,
		Filename:               URIToPath(doc.URI),
		NoInlineConfig:         w.cfg.NoInlineConfig,
		ReportUnusedDirectives: w.cfg.ReportUnusedDirectives,
	})
	if err != nil {
		return nil, fmt.Errorf("lint %s: %w", doc.URI, err)
	}
	return report, nil
}

// publishDiagnostics lints an open document and sends its diagnostics.
func (s *Server) publishDiagnostics(ctx context.Context, uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	diagnostics := s.computeDiagnostics(ctx, doc)
	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: diagnostics,
	})
}

// computeDiagnostics lints doc and caches its violations for code actions.
// Files outside the workspace include patterns get no diagnostics.
func (s *Server) computeDiagnostics(ctx context.Context, doc *Document) []Diagnostic {
	ws := s.workspace()
	if ws == nil || !ws.covers(URIToPath(doc.URI)) {
		s.fixes.clearURI(doc.URI)
		return []Diagnostic{}
	}

	report, err := ws.lintDocument(ctx, doc, false)
	if err != nil {
		s.logger.Error("lint failed", slog.String("uri", doc.URI), slog.String("error", err.Error()))
		s.fixes.clearURI(doc.URI)
		return []Diagnostic{}
	}

	s.fixes.store(doc.URI, doc.Version, report.Violations)

	diagnostics := make([]Diagnostic, 0, len(report.Violations))
	for _, v := range report.Violations {
		diagnostics = append(diagnostics, toDiagnostic(doc, v))
	}
	return diagnostics
}

// toDiagnostic converts a violation into an LSP diagnostic.
func toDiagnostic(doc *Document, v lint.Violation) Diagnostic {
	d := Diagnostic{
		Range:    doc.RangeFor(v.Range),
		Severity: toSeverity(v.Severity),
		Code:     v.RuleID,
		Source:   diagnosticSource,
		Message:  v.Message,
	}
	if v.DocumentationURL != "" {
		d.CodeDescription = &CodeDescription{Href: v.DocumentationURL}
	}
	return d
}

func toSeverity(s lint.Severity) DiagnosticSeverity {
	switch s {
	case lint.SeverityError:
		return DiagnosticSeverityError
	case lint.SeverityWarning:
		return DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return DiagnosticSeverityInformation
	default:
		return DiagnosticSeverityHint
	}
}

// sameRange reports whether a diagnostic was produced for violation v.
func sameRange(doc *Document, d Diagnostic, v lint.Violation) bool {
	return d.Code == v.RuleID && doc.RangeFor(v.Range) == d.Range
}

// editFor converts a source edit into an LSP text edit.
func editFor(doc *Document, e lint.Edit) TextEdit {
	return TextEdit{Range: doc.RangeFor(e.Range), NewText: e.Text}
}

// wholeDocument returns the range covering all of doc.
func wholeDocument(doc *Document) Range {
	return Range{End: doc.OffsetToPosition(doc.Text.Len())}
}

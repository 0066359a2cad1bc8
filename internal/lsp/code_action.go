package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/lint/linter"
)

// cachedLint is the last lint result of one document version.
type cachedLint struct {
	version    int
	violations []lint.Violation
}

// fixCache stores the violations of the last lint per URI so code actions
// can answer without linting again.
type fixCache struct {
	mu      sync.RWMutex
	results map[string]cachedLint
}

func newFixCache() *fixCache {
	return &fixCache{results: make(map[string]cachedLint)}
}

// store records the violations of a document version.
func (c *fixCache) store(uri string, version int, violations []lint.Violation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[uri] = cachedLint{version: version, violations: violations}
}

// get returns the violations cached for a document version.
func (c *fixCache) get(uri string, version int) ([]lint.Violation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[uri]
	if !ok || r.version != version {
		return nil, false
	}
	return r.violations, true
}

// clearURI removes all cached results for a URI.
func (c *fixCache) clearURI(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.results, uri)
}

// handleCodeAction handles the textDocument/codeAction request.
func (s *Server) handleCodeAction(ctx context.Context, msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	actions := s.getCodeActions(ctx, params)
	s.sendResponse(msg.ID, actions, nil)
	return nil
}

// getCodeActions returns the quick fixes for the diagnostics in params, a
// disable comment per rule, and a fix-all action when anything is fixable.
func (s *Server) getCodeActions(ctx context.Context, params CodeActionParams) []CodeAction {
	actions := []CodeAction{}
	uri := params.TextDocument.URI
	doc := s.documents.Get(uri)
	if doc == nil {
		return actions
	}

	violations, ok := s.fixes.get(uri, doc.Version)
	if !ok {
		s.computeDiagnostics(ctx, doc)
		violations, _ = s.fixes.get(uri, doc.Version)
	}

	if wants(params.Context.Only, CodeActionKindQuickFix) {
		disabled := make(map[string]bool)
		for _, diag := range params.Context.Diagnostics {
			if diag.Source != diagnosticSource || diag.Code == "" {
				continue
			}
			for _, v := range violations {
				if v.Fix == nil || !sameRange(doc, diag, v) {
					continue
				}
				actions = append(actions, CodeAction{
					Title:       "Fix: " + v.Message,
					Kind:        CodeActionKindQuickFix,
					Diagnostics: []Diagnostic{diag},
					IsPreferred: true,
					Edit:        singleEdit(uri, editFor(doc, *v.Fix)),
				})
				break
			}

			key := fmt.Sprintf("%s:%d", diag.Code, diag.Range.Start.Line)
			if disabled[key] {
				continue
			}
			disabled[key] = true
			actions = append(actions, disableAction(doc, diag))
		}
	}

	if wants(params.Context.Only, CodeActionKindSourceFixAll) && anyFixable(violations) {
		if action, ok := s.fixAllAction(ctx, doc); ok {
			actions = append(actions, action)
		}
	}

	return actions
}

// disableAction inserts a disable-next-line directive above the diagnostic,
// indented like the line it silences.
func disableAction(doc *Document, diag Diagnostic) CodeAction {
	line := int(diag.Range.Start.Line)
	text := doc.GetLine(line)
	indent := text[:len(text)-len(strings.TrimLeft(text, " \t"))]
	at := Position{Line: diag.Range.Start.Line}
	return CodeAction{
		Title:       fmt.Sprintf("Disable %s for this line", diag.Code),
		Kind:        CodeActionKindQuickFix,
		Diagnostics: []Diagnostic{diag},
		Edit: singleEdit(doc.URI, TextEdit{
			Range:   Range{Start: at, End: at},
			NewText: fmt.Sprintf("%s// %sdisable-next-line %s\n", indent, linter.DirectivePrefix, diag.Code),
		}),
	}
}

// fixAllAction runs the fix loop over the document and replaces its whole
// content with the result. Output that no longer parses is never offered.
func (s *Server) fixAllAction(ctx context.Context, doc *Document) (CodeAction, bool) {
	ws := s.workspace()
	if ws == nil {
		return CodeAction{}, false
	}
	report, err := ws.lintDocument(ctx, doc, true)
	if err != nil {
		s.logger.Error("fix failed", slog.String("uri", doc.URI), slog.String("error", err.Error()))
		return CodeAction{}, false
	}
	if !report.Fixed {
		return CodeAction{}, false
	}
	if report.Fatal() {
		s.logger.Warn("fixes produce unparseable output", slog.String("uri", doc.URI))
		return CodeAction{}, false
	}
	return CodeAction{
		Title: fmt.Sprintf("Fix all auto-fixable problems (%d)", report.FixesApplied),
		Kind:  CodeActionKindSourceFixAll,
		Edit: singleEdit(doc.URI, TextEdit{
			Range:   wholeDocument(doc),
			NewText: report.Source.String(),
		}),
	}, true
}

func singleEdit(uri string, edit TextEdit) *WorkspaceEdit {
	return &WorkspaceEdit{Changes: map[string][]TextEdit{uri: {edit}}}
}

// wants reports whether kind passes the client's only filter. A filter entry
// matches its own kind and every kind below it, so "source" admits
// "source.fixAll".
func wants(only []CodeActionKind, kind CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	for _, o := range only {
		if o == kind || strings.HasPrefix(string(kind), string(o)+".") {
			return true
		}
	}
	return false
}

func anyFixable(vs []lint.Violation) bool {
	for _, v := range vs {
		if v.Fixable() {
			return true
		}
	}
	return false
}

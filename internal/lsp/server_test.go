package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/tree"

	// Register built-in rules.
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules"
)

const sampleJS = "debugger;\nconst s = 'x';\n"

// frame encodes one JSON-RPC message with its Content-Length header.
func frame(t *testing.T, id int, method string, params any) string {
	t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if id > 0 {
		msg["id"] = id
	}
	if params != nil {
		msg["params"] = params
	}
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

// readAll decodes every framed message the server wrote.
func readAll(t *testing.T, out *bytes.Buffer) []JSONRPCMessage {
	t.Helper()
	s := NewServer(out, io.Discard)
	var msgs []JSONRPCMessage
	for {
		msg, err := s.readMessage()
		if err != nil {
			return msgs
		}
		msgs = append(msgs, *msg)
	}
}

func responseFor(t *testing.T, msgs []JSONRPCMessage, id int) JSONRPCMessage {
	t.Helper()
	want := json.RawMessage(fmt.Sprint(id))
	for _, m := range msgs {
		if m.ID != nil && bytes.Equal(*m.ID, want) {
			return m
		}
	}
	t.Fatalf("no response for request %d", id)
	return JSONRPCMessage{}
}

func notifications(msgs []JSONRPCMessage, method string) []JSONRPCMessage {
	var out []JSONRPCMessage
	for _, m := range msgs {
		if m.Method == method {
			out = append(out, m)
		}
	}
	return out
}

// newTestServer returns an initialized server rooted at a temp workspace.
func newTestServer(t *testing.T, configYAML string, opts ...Option) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	if configYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, ".leaplint.yaml"), []byte(configYAML), 0600))
	}
	s := NewServer(strings.NewReader(""), io.Discard, opts...)
	initMsg := frame(t, 1, "initialize", InitializeParams{RootURI: PathToURI(root)})
	s.reader = bufio.NewReader(strings.NewReader(initMsg))
	msg, err := s.readMessage()
	require.NoError(t, err)
	require.NoError(t, s.handleMessage(context.Background(), msg))
	return s, root
}

func openDoc(t *testing.T, s *Server, path, text string) string {
	t.Helper()
	uri := PathToURI(path)
	params, err := json.Marshal(DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: "javascript", Version: 1, Text: text},
	})
	require.NoError(t, err)
	require.NoError(t, s.handleMessage(context.Background(), &JSONRPCMessage{Method: "textDocument/didOpen", Params: params}))
	return uri
}

func TestServer_Lifecycle(t *testing.T) {
	root := t.TempDir()
	uri := PathToURI(filepath.Join(root, "app.js"))

	var in strings.Builder
	in.WriteString(frame(t, 1, "textDocument/hover", HoverParams{}))
	in.WriteString(frame(t, 2, "initialize", InitializeParams{RootURI: PathToURI(root)}))
	in.WriteString(frame(t, 0, "initialized", map[string]any{}))
	in.WriteString(frame(t, 0, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: "javascript", Version: 1, Text: sampleJS},
	}))
	in.WriteString(frame(t, 3, "workspace/symbol", map[string]any{}))
	in.WriteString(frame(t, 0, "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	}))
	in.WriteString(frame(t, 4, "shutdown", nil))
	in.WriteString(frame(t, 0, "exit", nil))

	out := new(bytes.Buffer)
	s := NewServer(strings.NewReader(in.String()), out, WithVersion("1.2.3"))
	require.NoError(t, s.Run(context.Background()))

	msgs := readAll(t, out)

	early := responseFor(t, msgs, 1)
	require.NotNil(t, early.Error)
	assert.Equal(t, codeNotInitialized, early.Error.Code)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(responseFor(t, msgs, 2).Result, &result))
	assert.Equal(t, "leaplint", result.ServerInfo.Name)
	assert.Equal(t, "1.2.3", result.ServerInfo.Version)
	assert.True(t, result.Capabilities.HoverProvider)
	require.NotNil(t, result.Capabilities.CodeActionProvider)
	assert.Contains(t, result.Capabilities.CodeActionProvider.CodeActionKinds, CodeActionKindSourceFixAll)

	unknown := responseFor(t, msgs, 3)
	require.NotNil(t, unknown.Error)
	assert.Equal(t, codeMethodNotFound, unknown.Error.Code)

	published := notifications(msgs, "textDocument/publishDiagnostics")
	require.Len(t, published, 2, "open publishes diagnostics, close clears them")
	var opened, closed PublishDiagnosticsParams
	require.NoError(t, json.Unmarshal(published[0].Params, &opened))
	require.NoError(t, json.Unmarshal(published[1].Params, &closed))
	assert.NotEmpty(t, opened.Diagnostics)
	assert.Empty(t, closed.Diagnostics)

	assert.Nil(t, responseFor(t, msgs, 4).Error)
}

func TestServer_ExitWithoutShutdown(t *testing.T) {
	in := frame(t, 0, "exit", nil)
	s := NewServer(strings.NewReader(in), io.Discard)
	assert.ErrorIs(t, s.Run(context.Background()), ErrExitWithoutShutdown)
}

func TestServer_Diagnostics(t *testing.T) {
	s, root := newTestServer(t, "")
	uri := openDoc(t, s, filepath.Join(root, "app.js"), sampleJS)

	diags := s.computeDiagnostics(context.Background(), s.documents.Get(uri))
	codes := make([]string, 0, len(diags))
	for _, d := range diags {
		codes = append(codes, d.Code)
		assert.Equal(t, diagnosticSource, d.Source)
	}
	assert.Contains(t, codes, "no-debugger")
	assert.Contains(t, codes, "quotes")

	for _, d := range diags {
		switch d.Code {
		case "no-debugger":
			assert.Equal(t, DiagnosticSeverityError, d.Severity)
			assert.Equal(t, Range{End: Position{Character: 9}}, d.Range)
			require.NotNil(t, d.CodeDescription)
			assert.Contains(t, d.CodeDescription.Href, "no-debugger")
		case "quotes":
			assert.Equal(t, Range{
				Start: Position{Line: 1, Character: 10},
				End:   Position{Line: 1, Character: 13},
			}, d.Range)
		}
	}
}

func TestServer_DiagnosticsRespectConfig(t *testing.T) {
	s, root := newTestServer(t, "include:\n  - 'src/**/*.js'\nrules:\n  - id: no-debugger\n")

	ignored := openDoc(t, s, filepath.Join(root, "app.js"), sampleJS)
	assert.Empty(t, s.computeDiagnostics(context.Background(), s.documents.Get(ignored)))

	included := openDoc(t, s, filepath.Join(root, "src", "app.js"), sampleJS)
	diags := s.computeDiagnostics(context.Background(), s.documents.Get(included))
	require.Len(t, diags, 1)
	assert.Equal(t, "no-debugger", diags[0].Code)
}

func TestServer_InvalidConfigFallsBack(t *testing.T) {
	logger, logs := testutil.NewRecordingLogger()
	s, root := newTestServer(t, "max_passes: 0\n", WithLogger(logger))
	uri := openDoc(t, s, filepath.Join(root, "app.js"), sampleJS)

	assert.True(t, logs.Contains("using default configuration", "max_passes"))
	assert.NotEmpty(t, s.computeDiagnostics(context.Background(), s.documents.Get(uri)))
	assert.Equal(t, root, s.workspace().cfg.ProjectRoot)
}

func TestServer_CodeActions(t *testing.T) {
	s, root := newTestServer(t, "")
	uri := openDoc(t, s, filepath.Join(root, "app.js"), "  const s = 'x';\n")
	ctx := context.Background()

	diags := s.computeDiagnostics(ctx, s.documents.Get(uri))
	var quotes Diagnostic
	for _, d := range diags {
		if d.Code == "quotes" {
			quotes = d
		}
	}
	require.Equal(t, "quotes", quotes.Code)

	actions := s.getCodeActions(ctx, CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Range:        quotes.Range,
		Context:      CodeActionContext{Diagnostics: []Diagnostic{quotes}},
	})
	require.Len(t, actions, 3)

	fix := actions[0]
	assert.Equal(t, CodeActionKindQuickFix, fix.Kind)
	assert.True(t, fix.IsPreferred)
	require.Len(t, fix.Edit.Changes[uri], 1)
	assert.Equal(t, `"x"`, fix.Edit.Changes[uri][0].NewText)

	disable := actions[1]
	assert.Equal(t, "Disable quotes for this line", disable.Title)
	require.Len(t, disable.Edit.Changes[uri], 1)
	assert.Equal(t, "  // leaplint-disable-next-line quotes\n", disable.Edit.Changes[uri][0].NewText)
	assert.Equal(t, Position{}, disable.Edit.Changes[uri][0].Range.Start)

	all := actions[2]
	assert.Equal(t, CodeActionKindSourceFixAll, all.Kind)
	require.Len(t, all.Edit.Changes[uri], 1)
	assert.Equal(t, "  const s = \"x\";\n", all.Edit.Changes[uri][0].NewText)
	assert.Equal(t, Position{Line: 1}, all.Edit.Changes[uri][0].Range.End)

	onlyFixAll := s.getCodeActions(ctx, CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Context:      CodeActionContext{Diagnostics: []Diagnostic{quotes}, Only: []CodeActionKind{"source"}},
	})
	require.Len(t, onlyFixAll, 1)
	assert.Equal(t, CodeActionKindSourceFixAll, onlyFixAll[0].Kind)
}

// unbalancedFix appends an unclosed group after every debugger statement.
var unbalancedFix = lint.WrapRuleDef(lint.RuleDef{
	ID:       "unbalanced-fix",
	Type:     lint.TypeProblem,
	Severity: lint.SeverityError,
	Fixable:  lint.FixCode,
	Create: func(ctx *lint.Context) (lint.Listeners, error) {
		return lint.Listeners{
			lint.On("debugger_statement", func(n *tree.Node) {
				ctx.Report(lint.Descriptor{
					Node:    n,
					Message: "unbalanced",
					Fix: func(fx lint.Fixer) []lint.Edit {
						return []lint.Edit{fx.InsertTextAfter(n, " (((")}
					},
				})
			}),
		}, nil
	},
})

func TestServer_FixAllSkipsUnparseableOutput(t *testing.T) {
	s, root := newTestServer(t, "")
	ws := *s.workspace()
	ws.rules = []lint.ActiveRule{lint.Activate(unbalancedFix)}
	s.setWorkspace(&ws)

	uri := openDoc(t, s, filepath.Join(root, "app.js"), "debugger;\n")
	actions := s.getCodeActions(context.Background(), CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Context:      CodeActionContext{Only: []CodeActionKind{CodeActionKindSourceFixAll}},
	})
	assert.Empty(t, actions)
}

func TestServer_Completion(t *testing.T) {
	s, root := newTestServer(t, "")
	uri := openDoc(t, s, filepath.Join(root, "app.js"), "// leaplint-dis\n// leaplint-disable-line no-var, no-\nlet a;\n")

	labels := func(items []CompletionItem) []string {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, it.Label)
		}
		return out
	}
	at := func(line, char uint32) CompletionParams {
		return CompletionParams{TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: uri},
			Position:     Position{Line: line, Character: char},
		}}
	}

	assert.Equal(t,
		[]string{"leaplint-disable", "leaplint-disable-line", "leaplint-disable-next-line"},
		labels(s.getCompletions(at(0, 15))))

	rules := labels(s.getCompletions(at(1, 36)))
	assert.ElementsMatch(t, []string{"no-console", "no-debugger", "no-trailing-spaces"}, rules)

	assert.Empty(t, s.getCompletions(at(2, 3)), "no completions outside comments")
}

func TestServer_Hover(t *testing.T) {
	s, root := newTestServer(t, "")
	uri := openDoc(t, s, filepath.Join(root, "app.js"), sampleJS)

	hover := s.getHover(HoverParams{TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     Position{Line: 0, Character: 3},
	}})
	require.NotNil(t, hover)
	assert.Equal(t, MarkupKindMarkdown, hover.Contents.Kind)
	assert.Contains(t, hover.Contents.Value, "**no-debugger** (error)")

	assert.Nil(t, s.getHover(HoverParams{TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     Position{Line: 1, Character: 2},
	}}))
}

func TestServer_ConfigSaveReloads(t *testing.T) {
	s, root := newTestServer(t, "")
	require.Greater(t, len(s.workspace().rules), 1)

	cfgPath := filepath.Join(root, ".leaplint.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("rules:\n  - id: semi\n"), 0600))

	params, err := json.Marshal(DidSaveTextDocumentParams{TextDocument: TextDocumentIdentifier{URI: PathToURI(cfgPath)}})
	require.NoError(t, err)
	require.NoError(t, s.handleMessage(context.Background(), &JSONRPCMessage{Method: "textDocument/didSave", Params: params}))

	rules := s.workspace().rules
	require.Len(t, rules, 1)
	assert.Equal(t, "semi", rules[0].Rule.ID())
}

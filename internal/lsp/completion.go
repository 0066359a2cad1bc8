package lsp

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/lint/linter"
)

// directiveDocs describes the inline configuration comments.
var directiveDocs = map[string]string{
	"disable":           "Disable rules from here to the next enable comment, or to the end of the file.",
	"enable":            "Re-enable rules disabled by an earlier disable comment.",
	"disable-line":      "Disable rules on the line of this comment.",
	"disable-next-line": "Disable rules on the line after this comment.",
}

// handleCompletion handles the textDocument/completion request.
func (s *Server) handleCompletion(msg *JSONRPCMessage) error {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	items := s.getCompletions(params)
	s.sendResponse(msg.ID, CompletionList{IsIncomplete: false, Items: items}, nil)
	return nil
}

// getCompletions completes directive names and rule IDs inside comments.
// Anywhere else there is nothing to offer.
func (s *Server) getCompletions(params CompletionParams) []CompletionItem {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []CompletionItem{}
	}

	body, ok := commentBody(doc.GetTextBefore(params.Position))
	if !ok {
		return []CompletionItem{}
	}

	name, rest, hasRules := strings.Cut(body, " ")
	if !hasRules {
		return directiveCompletions(name)
	}
	if _, ok := directiveDocs[strings.TrimPrefix(name, linter.DirectivePrefix)]; !ok || !strings.HasPrefix(name, linter.DirectivePrefix) {
		return []CompletionItem{}
	}
	if strings.Contains(rest, "--") {
		return []CompletionItem{}
	}
	return ruleCompletions(rest)
}

// commentBody returns the comment text before the cursor when the cursor is
// inside a line or block comment that starts on the same line.
func commentBody(before string) (string, bool) {
	i := max(strings.LastIndex(before, "//"), strings.LastIndex(before, "/*"))
	if i < 0 {
		return "", false
	}
	body := before[i+2:]
	if strings.Contains(body, "*/") {
		return "", false
	}
	return strings.TrimLeft(body, " \t"), true
}

func directiveCompletions(prefix string) []CompletionItem {
	items := []CompletionItem{}
	for name, doc := range directiveDocs {
		label := linter.DirectivePrefix + name
		if !strings.HasPrefix(label, prefix) {
			continue
		}
		items = append(items, CompletionItem{
			Label:         label,
			Kind:          CompletionItemKindKeyword,
			Detail:        "leaplint directive",
			Documentation: &MarkupContent{Kind: MarkupKindPlainText, Value: doc},
			InsertText:    label + " ",
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

// ruleCompletions offers the rule IDs not yet listed in the directive.
func ruleCompletions(list string) []CompletionItem {
	parts := strings.Split(list, ",")
	prefix := strings.TrimSpace(parts[len(parts)-1])
	listed := make([]string, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		listed = append(listed, strings.TrimSpace(p))
	}

	items := []CompletionItem{}
	for _, rule := range lint.GetAll() {
		id := rule.ID()
		if !strings.HasPrefix(id, prefix) || slices.Contains(listed, id) {
			continue
		}
		items = append(items, CompletionItem{
			Label:         id,
			Kind:          CompletionItemKindValue,
			Detail:        fmt.Sprintf("%s rule", rule.Type()),
			Documentation: &MarkupContent{Kind: MarkupKindPlainText, Value: rule.Description()},
		})
	}
	return items
}

// handleHover handles the textDocument/hover request.
func (s *Server) handleHover(msg *JSONRPCMessage) error {
	var params HoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	// A nil *Hover marshals to null, which means no hover.
	s.sendResponse(msg.ID, s.getHover(params), nil)
	return nil
}

// getHover describes the rule behind the first violation at the position.
func (s *Server) getHover(params HoverParams) *Hover {
	uri := params.TextDocument.URI
	doc := s.documents.Get(uri)
	if doc == nil {
		return nil
	}
	violations, ok := s.fixes.get(uri, doc.Version)
	if !ok {
		return nil
	}

	for _, v := range violations {
		r := doc.RangeFor(v.Range)
		if v.RuleID == "" || !r.Contains(params.Position) {
			continue
		}
		rule, ok := lint.GetRule(v.RuleID)
		if !ok {
			continue
		}
		return &Hover{
			Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: ruleMarkdown(lint.GetRuleInfo(rule), v)},
			Range:    &r,
		}
	}
	return nil
}

func ruleMarkdown(info lint.RuleInfo, v lint.Violation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** (%s)\n\n", info.ID, v.Severity)
	sb.WriteString(info.Description)
	sb.WriteString("\n")
	if info.Rationale != "" {
		fmt.Fprintf(&sb, "\n%s\n", info.Rationale)
	}
	if info.Fixable != lint.FixNone {
		fmt.Fprintf(&sb, "\nFixable (%s).\n", info.Fixable)
	}
	if info.DocumentationURL != "" {
		fmt.Fprintf(&sb, "\n[Documentation](%s)\n", info.DocumentationURL)
	}
	return sb.String()
}

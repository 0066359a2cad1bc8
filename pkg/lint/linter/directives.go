package linter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/source"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

// DirectivePrefix starts every inline configuration comment.
const DirectivePrefix = "leaplint-"

type directiveKind int

const (
	directiveDisable directiveKind = iota
	directiveEnable
	directiveDisableLine
	directiveDisableNextLine
)

var directiveNames = map[string]directiveKind{
	DirectivePrefix + "disable":           directiveDisable,
	DirectivePrefix + "enable":            directiveEnable,
	DirectivePrefix + "disable-line":      directiveDisableLine,
	DirectivePrefix + "disable-next-line": directiveDisableNextLine,
}

type directive struct {
	kind  directiveKind
	name  string
	rules []string // empty means every rule
	rng   source.Range
	line  int // target line of line directives
	used  bool
}

func (d *directive) covers(ruleID string) bool {
	if len(d.rules) == 0 {
		return true
	}
	for _, r := range d.rules {
		if r == ruleID {
			return true
		}
	}
	return false
}

// directives holds the inline configuration comments of one pass.
type directives struct {
	line  []*directive
	block []*directive // in source order
}

// parseDirectives collects inline configuration from the comments of tr.
func parseDirectives(tr *tree.Tree) *directives {
	ds := &directives{}
	text := tr.Source()
	tr.Walk(func(n *tree.Node) bool {
		if n.Kind() != "comment" {
			return true
		}
		d := parseComment(tr.Text(n))
		if d == nil {
			return false
		}
		d.rng = n.Range()
		switch d.kind {
		case directiveDisableLine:
			d.line = text.PositionFor(n.Start()).Line
			ds.line = append(ds.line, d)
		case directiveDisableNextLine:
			d.line = text.PositionFor(n.End()).Line + 1
			ds.line = append(ds.line, d)
		default:
			ds.block = append(ds.block, d)
		}
		return false
	})
	return ds
}

func parseComment(raw string) *directive {
	var body string
	switch {
	case strings.HasPrefix(raw, "//"):
		body = raw[2:]
	case strings.HasPrefix(raw, "/*"):
		body = strings.TrimSuffix(raw[2:], "*/")
	default:
		return nil
	}
	if i := strings.Index(body, "--"); i >= 0 {
		body = body[:i]
	}
	body = strings.TrimSpace(body)

	name, rest, _ := strings.Cut(body, " ")
	kind, ok := directiveNames[name]
	if !ok {
		return nil
	}
	d := &directive{kind: kind, name: name}
	for _, r := range strings.Split(rest, ",") {
		if r = strings.TrimSpace(r); r != "" {
			d.rules = append(d.rules, r)
		}
	}
	return d
}

// filter drops the violations the directives disable. Fatal violations are
// never hidden.
func (ds *directives) filter(vs []lint.Violation) []lint.Violation {
	if len(ds.line) == 0 && len(ds.block) == 0 {
		return vs
	}
	out := vs[:0:0]
	for _, v := range vs {
		if v.Fatal || v.RuleID == "" || !ds.suppresses(v) {
			out = append(out, v)
		}
	}
	return out
}

func (ds *directives) suppresses(v lint.Violation) bool {
	for _, d := range ds.line {
		if d.line == v.Start.Line && d.covers(v.RuleID) {
			d.used = true
			return true
		}
	}

	var global *directive
	disabled := make(map[string]*directive)
	enabled := make(map[string]bool)
	for _, d := range ds.block {
		if d.rng.Start > v.Range.Start {
			break
		}
		switch {
		case d.kind == directiveDisable && len(d.rules) == 0:
			global = d
			clear(disabled)
			clear(enabled)
		case d.kind == directiveDisable:
			for _, r := range d.rules {
				delete(enabled, r)
				disabled[r] = d
			}
		case d.kind == directiveEnable && len(d.rules) == 0:
			global = nil
			clear(disabled)
			clear(enabled)
		case d.kind == directiveEnable:
			for _, r := range d.rules {
				delete(disabled, r)
				if global != nil {
					enabled[r] = true
				}
			}
		}
	}

	if d := disabled[v.RuleID]; d != nil {
		d.used = true
		return true
	}
	if global != nil && !enabled[v.RuleID] {
		global.used = true
		return true
	}
	return false
}

// unused reports disable directives that hid nothing.
func (ds *directives) unused(text *source.Text) []lint.Violation {
	var out []lint.Violation
	report := func(d *directive) {
		if d.used || d.kind == directiveEnable {
			return
		}
		msg := fmt.Sprintf("Unused %s directive (no problems were reported).", d.name)
		if len(d.rules) > 0 {
			msg = fmt.Sprintf("Unused %s directive (no problems were reported from '%s').", d.name, strings.Join(d.rules, "', '"))
		}
		v := lint.Violation{
			Severity: lint.SeverityWarning,
			Message:  msg,
			Range:    d.rng,
			NodeKind: "comment",
		}
		v.Locate(text)
		out = append(out, v)
	}
	all := make([]*directive, 0, len(ds.block)+len(ds.line))
	all = append(all, ds.block...)
	all = append(all, ds.line...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].rng.Start < all[j].rng.Start })
	for _, d := range all {
		report(d)
	}
	return out
}

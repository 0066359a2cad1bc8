package lint

import (
	"fmt"
	"regexp"

	"github.com/leapstack-labs/leaplint/pkg/source"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

// Descriptor is what a rule hands to Context.Report.
type Descriptor struct {
	// Node locates the violation. If nil, Range is used.
	Node *tree.Node
	// Range locates the violation when Node is nil.
	Range source.Range
	// Message may contain {{name}} placeholders filled from Data.
	Message string
	Data    map[string]any
	// Fix builds the edits that resolve the violation. Only rules whose
	// Fixable is not FixNone may set it.
	Fix FixFunc
}

// FixFunc returns the edits that resolve one violation. Several edits are
// merged into one; returning none means no fix is offered.
type FixFunc func(fx Fixer) []Edit

// Context is the per-rule, per-pass handle a rule uses to inspect the source
// and report violations. It is created fresh for every pass.
type Context struct {
	rule     Rule
	severity Severity
	options  map[string]any
	tree     *tree.Tree
	filename string
	sink     func(Violation)
}

// NewContext creates the context for one rule over one tree. Reports are
// delivered to sink in the order they are made.
func NewContext(active ActiveRule, tr *tree.Tree, filename string, sink func(Violation)) *Context {
	return &Context{
		rule:     active.Rule,
		severity: active.Severity,
		options:  active.Options,
		tree:     tr,
		filename: filename,
		sink:     sink,
	}
}

// RuleID returns the ID of the rule this context belongs to.
func (c *Context) RuleID() string { return c.rule.ID() }

// Severity returns the effective severity of the rule.
func (c *Context) Severity() Severity { return c.severity }

// Options returns the resolved rule options. May be nil.
func (c *Context) Options() map[string]any { return c.options }

// Filename returns the name of the file being linted, if known.
func (c *Context) Filename() string { return c.filename }

// Tree returns the tree of the current pass.
func (c *Context) Tree() *tree.Tree { return c.tree }

// Source returns the text of the current pass.
func (c *Context) Source() *source.Text { return c.tree.Source() }

// Text returns the source text covered by n.
func (c *Context) Text(n *tree.Node) string { return c.tree.Text(n) }

// Report records a violation. A rule reporting a fix without declaring
// itself fixable, or building an invalid fix, panics; the engine turns the
// panic into a RuleError for the file.
func (c *Context) Report(d Descriptor) {
	text := c.Source()
	v := Violation{
		RuleID:           c.rule.ID(),
		Severity:         c.severity,
		Message:          interpolate(d.Message, d.Data),
		Range:            d.Range,
		DocumentationURL: BuildDocURL(c.rule.ID()),
	}
	if d.Node != nil {
		v.Range = d.Node.Range()
		v.NodeKind = d.Node.Kind()
	}
	v.Locate(text)

	if d.Fix != nil {
		if c.rule.Fixable() == FixNone {
			panic(fmt.Errorf("rule %q reported a fix but does not declare itself fixable", c.rule.ID()))
		}
		edits := d.Fix(Fixer{text: text})
		for _, e := range edits {
			if e.Range.Start < 0 || e.Range.Start > e.Range.End || e.Range.End > text.Len() {
				panic(fmt.Errorf("rule %q produced an edit with invalid range %s", c.rule.ID(), e.Range))
			}
		}
		merged, err := MergeEdits(text, edits)
		if err != nil {
			panic(fmt.Errorf("rule %q: %w", c.rule.ID(), err))
		}
		v.Fix = merged
	}

	c.sink(v)
}

var placeholder = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// interpolate replaces {{name}} with data values. Unknown names are kept.
func interpolate(msg string, data map[string]any) string {
	if len(data) == 0 {
		return msg
	}
	return placeholder.ReplaceAllStringFunc(msg, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := data[name]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}

// Fixer builds edits against the text of the current pass.
type Fixer struct {
	text *source.Text
}

// ReplaceText replaces the text of n.
func (Fixer) ReplaceText(n *tree.Node, text string) Edit {
	return Edit{Range: n.Range(), Text: text}
}

// ReplaceRange replaces the text in r.
func (Fixer) ReplaceRange(r source.Range, text string) Edit {
	return Edit{Range: r, Text: text}
}

// InsertTextBefore inserts text right before n.
func (Fixer) InsertTextBefore(n *tree.Node, text string) Edit {
	return Edit{Range: source.Range{Start: n.Start(), End: n.Start()}, Text: text}
}

// InsertTextAfter inserts text right after n.
func (Fixer) InsertTextAfter(n *tree.Node, text string) Edit {
	return Edit{Range: source.Range{Start: n.End(), End: n.End()}, Text: text}
}

// InsertTextAt inserts text at offset.
func (Fixer) InsertTextAt(offset int, text string) Edit {
	return Edit{Range: source.Range{Start: offset, End: offset}, Text: text}
}

// Remove deletes n.
func (Fixer) Remove(n *tree.Node) Edit {
	return Edit{Range: n.Range()}
}

// RemoveRange deletes the text in r.
func (Fixer) RemoveRange(r source.Range) Edit {
	return Edit{Range: r}
}

// Source returns the text the edits apply to.
func (f Fixer) Source() *source.Text {
	return f.text
}

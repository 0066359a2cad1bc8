package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/source"
)

// Edit replaces the text in Range with Text. An empty range is an insertion.
// Edits are never applied implicitly; the fix resolver decides which ones run.
type Edit struct {
	Range source.Range `json:"range"`
	Text  string       `json:"text"`
}

// Violation is one reported finding.
type Violation struct {
	RuleID           string          `json:"rule_id,omitempty"`
	Severity         Severity        `json:"severity"`
	Message          string          `json:"message"`
	Range            source.Range    `json:"range"`
	Start            source.Position `json:"start"`
	End              source.Position `json:"end"`
	NodeKind         string          `json:"node_kind,omitempty"`
	Fix              *Edit           `json:"fix,omitempty"`
	Fatal            bool            `json:"fatal,omitempty"`
	DocumentationURL string          `json:"documentation_url,omitempty"`
}

// Fixable reports whether the violation carries a fix.
func (v Violation) Fixable() bool {
	return v.Fix != nil
}

func (v Violation) String() string {
	if v.RuleID == "" {
		return fmt.Sprintf("%s %s %s", v.Start, v.Severity, v.Message)
	}
	return fmt.Sprintf("%s %s %s (%s)", v.Start, v.Severity, v.Message, v.RuleID)
}

// Locate fills Start and End from Range against text.
func (v *Violation) Locate(text *source.Text) {
	v.Start = text.PositionFor(v.Range.Start)
	v.End = text.PositionFor(v.Range.End)
}

// CountBySeverity returns the number of error and warning violations.
func CountBySeverity(vs []Violation) (errors, warnings int) {
	for _, v := range vs {
		switch v.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}

// MergeEdits combines the edits of one report into a single edit spanning
// all of them. The gaps between edits are filled with the original text.
// Overlapping edits are rejected.
func MergeEdits(text *source.Text, edits []Edit) (*Edit, error) {
	switch len(edits) {
	case 0:
		return nil, nil
	case 1:
		e := edits[0]
		return &e, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Range.Start != sorted[j].Range.Start {
			return sorted[i].Range.Start < sorted[j].Range.Start
		}
		return sorted[i].Range.End < sorted[j].Range.End
	})

	var b strings.Builder
	start := sorted[0].Range.Start
	cursor := start
	for _, e := range sorted {
		if e.Range.Start < cursor {
			return nil, fmt.Errorf("fix edits overlap at %s", e.Range)
		}
		b.WriteString(text.Slice(source.Range{Start: cursor, End: e.Range.Start}))
		b.WriteString(e.Text)
		cursor = e.Range.End
	}
	return &Edit{Range: source.Range{Start: start, End: cursor}, Text: b.String()}, nil
}

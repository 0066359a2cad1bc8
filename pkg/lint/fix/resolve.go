// Package fix selects a non-overlapping subset of the edits attached to a
// pass's violations and splices them into the source text.
package fix

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/source"
)

// SkipReason explains why a fix was not applied.
type SkipReason int

const (
	// SkipConflict means the edit overlaps an edit accepted earlier.
	SkipConflict SkipReason = iota
	// SkipFiltered means the caller's filter excluded the fix.
	SkipFiltered
)

// String returns a human-readable description of the skip reason.
func (r SkipReason) String() string {
	switch r {
	case SkipConflict:
		return "conflicts with another fix"
	case SkipFiltered:
		return "excluded by fix filter"
	default:
		return "unknown reason"
	}
}

// Candidate is a violation with a fix, together with its report order.
type Candidate struct {
	Order int // index into the violations given to Resolve
	Edit  lint.Edit
}

// Skipped is a candidate that was not applied.
type Skipped struct {
	Candidate
	Reason SkipReason
}

// Filter decides whether a violation's fix may be applied.
type Filter func(v lint.Violation) bool

// Plan is the outcome of resolving one pass's fixes.
type Plan struct {
	// Accepted edits, ordered by position. They never overlap.
	Accepted []Candidate
	// Skipped fixes, in the order they were considered.
	Skipped []Skipped

	accepted map[int]bool
}

// Resolve picks the edits to apply. Candidates are ordered by start offset,
// then end offset, then report order; a candidate is accepted when it starts
// at or after the end of the last accepted edit. Ties on identical ranges go
// to the violation reported first.
func Resolve(violations []lint.Violation, filter Filter) *Plan {
	plan := &Plan{accepted: make(map[int]bool)}

	cands := make([]Candidate, 0, len(violations))
	for i, v := range violations {
		if v.Fix == nil {
			continue
		}
		c := Candidate{Order: i, Edit: *v.Fix}
		if filter != nil && !filter(v) {
			plan.Skipped = append(plan.Skipped, Skipped{Candidate: c, Reason: SkipFiltered})
			continue
		}
		cands = append(cands, c)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].Edit.Range, cands[j].Edit.Range
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})

	cursor := 0
	for _, c := range cands {
		if c.Edit.Range.Start < cursor {
			plan.Skipped = append(plan.Skipped, Skipped{Candidate: c, Reason: SkipConflict})
			continue
		}
		plan.Accepted = append(plan.Accepted, c)
		plan.accepted[c.Order] = true
		cursor = c.Edit.Range.End
	}
	return plan
}

// Empty reports whether no edit was accepted.
func (p *Plan) Empty() bool {
	return len(p.Accepted) == 0
}

// Applied reports whether the fix of the violation at report index i was
// accepted.
func (p *Plan) Applied(i int) bool {
	return p.accepted[i]
}

// Apply splices all accepted edits into text in a single left-to-right pass
// and returns the resulting text.
func (p *Plan) Apply(text *source.Text) *source.Text {
	if p.Empty() {
		return text
	}
	src := text.String()
	var b strings.Builder
	b.Grow(len(src))
	cursor := 0
	for _, c := range p.Accepted {
		b.WriteString(src[cursor:c.Edit.Range.Start])
		b.WriteString(c.Edit.Text)
		cursor = c.Edit.Range.End
	}
	b.WriteString(src[cursor:])
	return text.Derive(b.String())
}

// MapOffset translates an offset in the text the plan was resolved against
// into the text Apply produces. Offsets inside a replaced range map to the
// start of its replacement.
func (p *Plan) MapOffset(offset int) int {
	delta := 0
	for _, c := range p.Accepted {
		r := c.Edit.Range
		if offset < r.Start {
			break
		}
		if offset >= r.End {
			delta += len(c.Edit.Text) - r.Len()
			continue
		}
		return r.Start + delta
	}
	return offset + delta
}

// Remaining returns, in report order, the violations whose fixes were not
// applied.
func (p *Plan) Remaining(violations []lint.Violation) []lint.Violation {
	out := make([]lint.Violation, 0, len(violations)-len(p.Accepted))
	for i, v := range violations {
		if !p.accepted[i] {
			out = append(out, v)
		}
	}
	return out
}

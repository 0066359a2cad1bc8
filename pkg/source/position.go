package source

import "fmt"

// Position represents a location in the source text.
type Position struct {
	Line   int `json:"line"`   // 1-based line number
	Column int `json:"column"` // 1-based column number, counted in runes
	Offset int `json:"offset"` // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a half-open byte range [Start, End) into a Text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Empty reports whether the range covers no bytes (an insertion point).
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Contains returns true if the range contains the given offset.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Covers reports whether other lies completely inside r.
func (r Range) Covers(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Overlaps reports whether two ranges share at least one byte.
// An empty range overlaps a range that strictly contains its offset.
func (r Range) Overlaps(other Range) bool {
	if r.Empty() {
		return other.Start < r.Start && r.Start < other.End
	}
	if other.Empty() {
		return r.Start < other.Start && other.Start < r.End
	}
	return r.Start < other.End && other.Start < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Package source holds the immutable source text a lint pass works on,
// together with the offset to line/column index used to report locations.
package source

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const bom = "\uFEFF"

// Text is an immutable source string. Applying fixes never mutates a Text,
// it produces a new one.
type Text struct {
	content string
	hasBOM  bool
	lines   []int // byte offset where each line starts
}

// New creates a Text. A leading byte order mark is stripped and remembered
// so that offsets never account for it.
func New(content string) *Text {
	hasBOM := strings.HasPrefix(content, bom)
	if hasBOM {
		content = content[len(bom):]
	}
	return &Text{
		content: content,
		hasBOM:  hasBOM,
		lines:   buildLineIndex(content),
	}
}

// Derive returns a new Text with different content that keeps the BOM flag
// of t. Used when fixes produce the next pass's text.
func (t *Text) Derive(content string) *Text {
	next := New(content)
	next.hasBOM = next.hasBOM || t.hasBOM
	return next
}

// String returns the content without BOM.
func (t *Text) String() string {
	return t.content
}

// Bytes returns a copy of the content as a byte slice.
func (t *Text) Bytes() []byte {
	return []byte(t.content)
}

// Output returns the content as it should be written back, BOM included.
func (t *Text) Output() string {
	if t.hasBOM {
		return bom + t.content
	}
	return t.content
}

// HasBOM reports whether the original input started with a byte order mark.
func (t *Text) HasBOM() bool {
	return t.hasBOM
}

// Len returns the content length in bytes.
func (t *Text) Len() int {
	return len(t.content)
}

// LineCount returns the number of lines. An empty text has one line.
func (t *Text) LineCount() int {
	return len(t.lines)
}

// Slice returns the text covered by r, clamped to the content bounds.
func (t *Text) Slice(r Range) string {
	start, end := t.clamp(r.Start), t.clamp(r.End)
	if start > end {
		return ""
	}
	return t.content[start:end]
}

// Line returns the content of the 1-based line n without its line terminator.
func (t *Text) Line(n int) string {
	if n < 1 || n > len(t.lines) {
		return ""
	}
	start := t.lines[n-1]
	end := len(t.content)
	if n < len(t.lines) {
		end = t.lines[n] - 1
	}
	return strings.TrimSuffix(t.content[start:end], "\r")
}

// LineStart returns the byte offset at which the 1-based line n begins.
func (t *Text) LineStart(n int) int {
	if n < 1 {
		return 0
	}
	if n > len(t.lines) {
		return len(t.content)
	}
	return t.lines[n-1]
}

// PositionFor converts a byte offset to a Position. Offsets past the end are
// clamped to the end of the text.
func (t *Text) PositionFor(offset int) Position {
	offset = t.clamp(offset)
	// largest line start <= offset
	line := sort.Search(len(t.lines), func(i int) bool {
		return t.lines[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	col := utf8.RuneCountInString(t.content[t.lines[line]:offset]) + 1
	return Position{Line: line + 1, Column: col, Offset: offset}
}

// OffsetFor converts a 1-based line and rune column to a byte offset.
func (t *Text) OffsetFor(line, column int) (int, error) {
	if line < 1 || line > len(t.lines) {
		return 0, fmt.Errorf("line %d out of range [1,%d]", line, len(t.lines))
	}
	if column < 1 {
		return 0, fmt.Errorf("column %d out of range", column)
	}
	offset := t.lines[line-1]
	for i := 1; i < column; i++ {
		if offset >= len(t.content) || t.content[offset] == '\n' {
			return 0, fmt.Errorf("column %d past end of line %d", column, line)
		}
		_, size := utf8.DecodeRuneInString(t.content[offset:])
		offset += size
	}
	return offset, nil
}

func (t *Text) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(t.content) {
		return len(t.content)
	}
	return offset
}

func buildLineIndex(content string) []int {
	lines := make([]int, 1, strings.Count(content, "\n")+1)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return lines
}

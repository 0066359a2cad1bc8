package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/leapstack-labs/leaplint/pkg/source"
)

// Document represents an open text document in the editor.
type Document struct {
	URI     string       // Document URI (file:///path/to/file.js)
	Version int          // Version number, incremented on each change
	Text    *source.Text // Content with its line index
}

// Content returns the document text.
func (d *Document) Content() string {
	return d.Text.String()
}

// DocumentStore manages open documents in memory.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// NewDocumentStore creates a new document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*Document),
	}
}

// Open adds or replaces a document in the store.
func (s *DocumentStore) Open(uri string, content string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[uri] = &Document{URI: uri, Version: version, Text: source.New(content)}
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, uri)
}

// Get retrieves a document by URI. Documents are replaced, never mutated, so
// the result is safe to read without holding the lock.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.documents[uri]
}

// Update replaces an open document's content. Stale versions are ignored.
func (s *DocumentStore) Update(uri string, content string, version int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[uri]
	if !ok || version < doc.Version {
		return false
	}
	s.documents[uri] = &Document{URI: uri, Version: version, Text: source.New(content)}
	return true
}

// List returns all open document URIs.
func (s *DocumentStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	return uris
}

// utf16Len returns the length of s in UTF-16 code units.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// OffsetToPosition converts a byte offset to an LSP position.
func (d *Document) OffsetToPosition(offset int) Position {
	if d == nil {
		return Position{}
	}
	p := d.Text.PositionFor(offset)
	start := d.Text.LineStart(p.Line)
	character := utf16Len(d.Content()[start:p.Offset])
	return Position{
		Line:      uint32(p.Line - 1), //nolint:gosec // G115: lines are 1-based
		Character: uint32(character),  //nolint:gosec // G115: lengths are non-negative
	}
}

// PositionToOffset converts an LSP position to a byte offset. Characters
// past the end of the line clamp to the line end.
func (d *Document) PositionToOffset(pos Position) int {
	if d == nil {
		return 0
	}
	line := int(pos.Line) + 1
	if line > d.Text.LineCount() {
		return d.Text.Len()
	}
	content := d.Content()
	offset := d.Text.LineStart(line)
	units := 0
	for offset < len(content) && units < int(pos.Character) {
		r, size := utf8.DecodeRuneInString(content[offset:])
		if r == '\n' || r == '\r' {
			break
		}
		units += utf16Len(string(r))
		offset += size
	}
	return offset
}

// RangeFor converts a source range to an LSP range.
func (d *Document) RangeFor(r source.Range) Range {
	return Range{Start: d.OffsetToPosition(r.Start), End: d.OffsetToPosition(r.End)}
}

// GetLine returns the content of a zero-based line.
func (d *Document) GetLine(line int) string {
	if d == nil {
		return ""
	}
	return d.Text.Line(line + 1)
}

// GetTextBefore returns the text of the position's line up to the position.
func (d *Document) GetTextBefore(pos Position) string {
	offset := d.PositionToOffset(pos)
	start := d.Text.LineStart(int(pos.Line) + 1)
	if offset <= start {
		return ""
	}
	return d.Content()[start:offset]
}

// GetTextInRange returns the text within a range.
func (d *Document) GetTextInRange(r Range) string {
	start := d.PositionToOffset(r.Start)
	end := d.PositionToOffset(r.End)
	return d.Text.Slice(source.Range{Start: start, End: end})
}

// URIToPath converts a file:// URI to a file system path.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}

// PathToURI converts a file system path to a file:// URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

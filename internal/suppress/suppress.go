// Package suppress manages the bulk suppressions file: per file and rule, a
// count of error violations that are accepted as existing debt. Linting hides
// up to that many errors of the rule in the file; new ones still fail.
package suppress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"

	"github.com/leapstack-labs/leaplint/pkg/lint"
)

// DefaultPath is the suppressions file used when none is configured.
const DefaultPath = "leaplint-suppressions.json"

// ErrUnusedSuppressions is returned when stored counts exceed the live
// violations, meaning debt was paid off and the file should be pruned.
var ErrUnusedSuppressions = errors.New("there are suppressions left that do not occur anymore")

// Entry is the stored suppression for one rule in one file.
type Entry struct {
	Count int `json:"count"`
}

// Unused describes a suppression whose count exceeds the live violations.
type Unused struct {
	Path   string
	RuleID string
	Stored int
	Live   int
}

func (u Unused) String() string {
	return fmt.Sprintf("%s: %s suppresses %d, found %d", u.Path, u.RuleID, u.Stored, u.Live)
}

// File is a loaded suppressions file. Paths are slash separated and relative
// to the directory the tool runs in.
type File struct {
	path    string
	entries map[string]map[string]Entry
}

// Load reads the suppressions at path. A missing file yields an empty set.
func Load(path string) (*File, error) {
	f := &File{path: path, entries: make(map[string]map[string]Entry)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read suppressions: %w", err)
	}
	if err := json.Unmarshal(data, &f.entries); err != nil {
		return nil, fmt.Errorf("failed to parse suppressions %s: %w", path, err)
	}
	if f.entries == nil {
		f.entries = make(map[string]map[string]Entry)
	}
	return f, nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Len returns the number of (file, rule) entries.
func (f *File) Len() int {
	n := 0
	for _, rules := range f.entries {
		n += len(rules)
	}
	return n
}

// Count returns the stored count for a file and rule.
func (f *File) Count(path, ruleID string) int {
	return f.entries[key(path)][ruleID].Count
}

// Apply hides up to the stored count of error violations per rule, in report
// order, and reports entries whose count exceeds what was found.
func (f *File) Apply(path string, vs []lint.Violation) ([]lint.Violation, []Unused) {
	stored := f.entries[key(path)]
	if len(stored) == 0 {
		return vs, nil
	}

	hidden := make(map[string]int, len(stored))
	kept := make([]lint.Violation, 0, len(vs))
	for _, v := range vs {
		if suppressible(v) && hidden[v.RuleID] < stored[v.RuleID].Count {
			hidden[v.RuleID]++
			continue
		}
		kept = append(kept, v)
	}

	var unused []Unused
	live := LiveCounts(vs)
	for _, ruleID := range sortedKeys(stored) {
		if n := live[ruleID]; n < stored[ruleID].Count {
			unused = append(unused, Unused{Path: key(path), RuleID: ruleID, Stored: stored[ruleID].Count, Live: n})
		}
	}
	return kept, unused
}

// Suppress records the live error counts of a file. With no rule ids every
// rule is recorded; otherwise only the listed ones.
func (f *File) Suppress(path string, vs []lint.Violation, ruleIDs ...string) {
	p := key(path)
	for ruleID, n := range LiveCounts(vs) {
		if len(ruleIDs) > 0 && !contains(ruleIDs, ruleID) {
			continue
		}
		if f.entries[p] == nil {
			f.entries[p] = make(map[string]Entry)
		}
		f.entries[p][ruleID] = Entry{Count: n}
	}
}

// Prune lowers the counts of a linted file to its live counts and drops
// entries that reach zero.
func (f *File) Prune(path string, vs []lint.Violation) {
	p := key(path)
	stored := f.entries[p]
	if stored == nil {
		return
	}
	live := LiveCounts(vs)
	for ruleID, e := range stored {
		n := min(e.Count, live[ruleID])
		if n == 0 {
			delete(stored, ruleID)
			continue
		}
		stored[ruleID] = Entry{Count: n}
	}
	if len(stored) == 0 {
		delete(f.entries, p)
	}
}

// Save writes the file atomically while holding an advisory lock next to it.
func (f *File) Save(ctx context.Context) (retErr error) {
	data, err := json.MarshalIndent(f.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode suppressions: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create suppressions directory: %w", err)
	}

	lock := flock.New(f.path + ".lock")
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("could not get file lock %q: %w", lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("could not lock %q", lock.Path())
	}
	defer func() {
		retErr = multierr.Append(retErr, lock.Unlock())
		_ = os.Remove(lock.Path())
	}()

	tmp, err := os.CreateTemp(dir, ".leaplint-suppressions-*")
	if err != nil {
		return fmt.Errorf("failed to write suppressions: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		return multierr.Append(fmt.Errorf("failed to write suppressions: %w", err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write suppressions: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace suppressions: %w", err)
	}
	return nil
}

// LiveCounts counts the suppressible violations per rule.
func LiveCounts(vs []lint.Violation) map[string]int {
	counts := make(map[string]int)
	for _, v := range vs {
		if suppressible(v) {
			counts[v.RuleID]++
		}
	}
	return counts
}

// suppressible reports whether v may be hidden: only rule errors qualify.
func suppressible(v lint.Violation) bool {
	return v.RuleID != "" && !v.Fatal && v.Severity == lint.SeverityError
}

func key(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

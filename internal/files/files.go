// Package files finds the source files a lint run covers.
//
// Patterns are slash separated globs matched against paths relative to the
// project root:
//   - * and ? match within one path segment, as in path.Match
//   - ** matches zero or more whole segments
//   - a pattern without a slash matches the base name at any depth
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// Matcher decides which files are linted.
type Matcher struct {
	include []string
	ignore  []string
}

// NewMatcher creates a matcher. An empty include list includes every file.
func NewMatcher(include, ignore []string) *Matcher {
	return &Matcher{include: normalize(include), ignore: normalize(ignore)}
}

func normalize(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(p)), "./")
		if p == "" {
			continue
		}
		if !strings.Contains(strings.TrimSuffix(p, "/"), "/") {
			p = "**/" + p
		}
		out = append(out, strings.TrimSuffix(p, "/"))
	}
	return out
}

// Included reports whether rel matches an include pattern and no ignore
// pattern.
func (m *Matcher) Included(rel string) bool {
	rel = filepath.ToSlash(rel)
	if m.Ignored(rel) {
		return false
	}
	if len(m.include) == 0 {
		return true
	}
	for _, p := range m.include {
		if Match(p, rel) {
			return true
		}
	}
	return false
}

// Ignored reports whether rel matches an ignore pattern.
func (m *Matcher) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range m.ignore {
		if Match(p, rel) {
			return true
		}
	}
	return false
}

// ignoredDir reports whether everything below the directory rel is ignored.
func (m *Matcher) ignoredDir(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range m.ignore {
		if Match(p, rel) {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "/**"); ok && Match(prefix, rel) {
			return true
		}
	}
	return false
}

// Match reports whether the slash separated name matches pattern.
func Match(pattern, name string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			for i := 0; i <= len(segs); i++ {
				if matchSegments(rest, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, err := path.Match(pat[0], segs[0]); err != nil || !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}

// Discover expands args into the sorted, de-duplicated list of files to lint.
// Directories are walked and filtered through m; files named explicitly are
// kept unless ignored. Paths are matched relative to root and returned as
// found. No args means root itself.
func Discover(ctx context.Context, root string, args []string, m *Matcher) ([]string, error) {
	if len(args) == 0 {
		args = []string{root}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("no files matching %q: %w", arg, err)
		}
		if !info.IsDir() {
			if !m.Ignored(Rel(root, arg)) {
				add(arg)
			}
			continue
		}

		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			rel := Rel(root, p)
			if d.IsDir() {
				if p != arg && (skipDirs[d.Name()] || m.ignoredDir(rel)) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && m.Included(rel) {
				add(p)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

// Rel returns p relative to root in slash form, or p itself when it lies
// outside root.
func Rel(root, p string) string {
	absRoot, err1 := filepath.Abs(root)
	absP, err2 := filepath.Abs(p)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(absRoot, absP)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// Dirs returns the directories under args that Discover would descend into.
// Explicit file arguments contribute their parent directory.
func Dirs(root string, args []string, m *Matcher) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	if len(args) == 0 {
		args = []string{root}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(filepath.Dir(arg))
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if p != arg && (skipDirs[d.Name()] || m.ignoredDir(Rel(root, p))) {
				return filepath.SkipDir
			}
			add(p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

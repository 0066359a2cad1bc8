package suppress_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/suppress"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func errs(rules ...string) []lint.Violation {
	vs := make([]lint.Violation, 0, len(rules))
	for i, r := range rules {
		vs = append(vs, lint.Violation{RuleID: r, Severity: lint.SeverityError, Message: string(rune('a' + i))})
	}
	return vs
}

func ids(vs []lint.Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.RuleID+":"+v.Message)
	}
	return out
}

func TestSuppress_ApplyHidesUpToCount(t *testing.T) {
	f, err := suppress.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Zero(t, f.Len())

	f.Suppress("src/a.js", errs("semi", "semi", "quotes"))
	assert.Equal(t, 2, f.Count("src/a.js", "semi"))
	assert.Equal(t, 1, f.Count("./src/a.js", "quotes"))

	tests := []struct {
		name   string
		live   []lint.Violation
		kept   []string
		unused []suppress.Unused
	}{
		{
			name: "same violations are hidden",
			live: errs("semi", "semi", "quotes"),
			kept: []string{},
		},
		{
			name: "new violations beyond the count stay",
			live: errs("semi", "semi", "semi", "quotes", "eqeqeq"),
			kept: []string{"semi:c", "eqeqeq:e"},
		},
		{
			name:   "fixed violations leave unused suppressions",
			live:   errs("semi"),
			kept:   []string{},
			unused: []suppress.Unused{{Path: "src/a.js", RuleID: "quotes", Stored: 1, Live: 0}, {Path: "src/a.js", RuleID: "semi", Stored: 2, Live: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, unused := f.Apply("src/a.js", tt.live)
			assert.Equal(t, tt.kept, ids(kept))
			assert.Equal(t, tt.unused, unused)
		})
	}
}

func TestSuppress_WarningsAreNotSuppressed(t *testing.T) {
	f, err := suppress.Load(filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)

	vs := []lint.Violation{
		{RuleID: "no-console", Severity: lint.SeverityWarning},
		{Severity: lint.SeverityError, Fatal: true, Message: "Parsing error"},
	}
	f.Suppress("a.js", vs)
	assert.Zero(t, f.Len())

	kept, _ := f.Apply("a.js", vs)
	assert.Len(t, kept, 2)
}

func TestSuppress_OnlyListedRules(t *testing.T) {
	f, err := suppress.Load(filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)

	f.Suppress("a.js", errs("semi", "quotes"), "quotes")
	assert.Zero(t, f.Count("a.js", "semi"))
	assert.Equal(t, 1, f.Count("a.js", "quotes"))
}

func TestSuppress_Prune(t *testing.T) {
	f, err := suppress.Load(filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)
	f.Suppress("a.js", errs("semi", "semi", "quotes"))
	f.Suppress("b.js", errs("semi"))

	f.Prune("a.js", errs("semi"))
	assert.Equal(t, 1, f.Count("a.js", "semi"))
	assert.Zero(t, f.Count("a.js", "quotes"))
	assert.Equal(t, 1, f.Count("b.js", "semi"), "files not pruned are kept")

	f.Prune("b.js", nil)
	assert.Equal(t, 1, f.Len())
}

func TestSuppress_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "suppressions.json")
	f, err := suppress.Load(path)
	require.NoError(t, err)
	f.Suppress("src/b.js", errs("semi"))
	f.Suppress("src/a.js", errs("quotes", "quotes"))
	require.NoError(t, f.Save(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"src/a.js":{"quotes":{"count":2}},"src/b.js":{"semi":{"count":1}}}`, string(data))

	loaded, err := suppress.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Count("src/a.js", "quotes"))
	assert.Equal(t, path, loaded.Path())

	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err), "lock file should be removed")
}

func TestSuppress_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := suppress.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse suppressions")
}

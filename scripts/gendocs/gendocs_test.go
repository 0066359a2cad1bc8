package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/cli/config"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func TestConfigFields(t *testing.T) {
	fields, err := configFields()
	require.NoError(t, err)

	byKey := make(map[string]ConfigField, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	assert.Len(t, byKey, len(fieldDescriptions))
	assert.Equal(t, "max_passes", fields[2].Key)
	assert.Equal(t, "integer", byKey["max_passes"].Type)
	assert.Equal(t, "`10`", byKey["max_passes"].Default)
	assert.Equal(t, "gte=1", byKey["max_passes"].Constraints)
	assert.Equal(t, "duration", byKey["file_timeout"].Type)
	assert.Equal(t, "`"+config.DefaultCachePath+"`", byKey["cache.path"].Default)
	assert.Equal(t, "list of objects", byKey["rules"].Type)
	assert.Equal(t, "list of string", byKey["include"].Type)
	assert.NotContains(t, byKey, "cache")
}

func TestGenerateRuleDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateRuleDocs(dir))

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "## Problem")
	assert.Contains(t, string(index), "[`no-debugger`](/rules/no-debugger)")

	for _, r := range lint.GetAll() {
		assert.FileExists(t, filepath.Join(dir, r.ID()+".md"))
	}

	page, err := os.ReadFile(filepath.Join(dir, "quotes.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "# quotes\n")
	assert.Contains(t, string(page), "```js\n")
	assert.Contains(t, string(page), "- `style`\n")
	assert.Contains(t, string(page), "// leaplint-disable-next-line quotes")
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	for _, name := range []string{"index.md", "lint.md", "rules.md", "init.md", "lsp.md"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	page, err := os.ReadFile(filepath.Join(dir, "lint.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "```bash\nleaplint lint")
}

func TestMarkdownWriter(t *testing.T) {
	w := NewMarkdownWriter()
	w.Frontmatter("Title", "Desc")
	w.Header(2, "Section")
	w.Paragraph("  some   text  ")
	w.CodeBlock("js", "a();\n")
	w.BulletList([]string{Bold("x"), InlineCode("y")})

	assert.Equal(t, "---\ntitle: \"Title\"\ndescription: \"Desc\"\n---\n\n"+
		"## Section\n\n"+
		"some   text\n\n"+
		"```js\na();\n```\n\n"+
		"- **x**\n- `y`\n\n", string(w.Bytes()))
	assert.Equal(t, "a b c", cleanDescription(" a\n  b\tc "))
}

func TestDedent(t *testing.T) {
	assert.Equal(t, "# Lint\nleaplint lint\n\n  nested", dedent("  # Lint\n  leaplint lint\n\n    nested\n"))
}

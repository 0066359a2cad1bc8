package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules" // register built-in rules
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func ruleIDs(rules []lint.ActiveRule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.Rule.ID())
	}
	return ids
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, GetConfigFileUsed())
	assert.Equal(t, DefaultInclude, cfg.Include)
	assert.Equal(t, DefaultIgnore, cfg.Ignore)
	assert.Equal(t, DefaultMaxPasses, cfg.MaxPasses)
	assert.Equal(t, DefaultFileTimeout, cfg.FileTimeout)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultCachePath), cfg.Cache.Path)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultSuppressionsPath), cfg.Suppressions.Path)
	assert.Empty(t, cfg.Rules)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".leaplint.yaml"), []byte("max_passes: 4\n"), 0600))
	nested := filepath.Join(root, "src", "lib")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxPasses)
	assert.Equal(t, ".leaplint.yaml", filepath.Base(GetConfigFileUsed()))
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, ".leaplint", "cache.db"), cfg.Cache.Path)
}

func TestLoadConfig_YAMLRules(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, ".leaplint.yaml", `include: ["src/**/*.js"]
file_timeout: 5s
cache:
  enabled: true
  path: /tmp/leaplint-cache.db
rules:
  - id: semi
    severity: warning
    options:
      style: never
  - id: quotes
  - id: no-console
    severity: "off"
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/**/*.js"}, cfg.Include)
	assert.Equal(t, 5*time.Second, cfg.FileTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "/tmp/leaplint-cache.db", cfg.Cache.Path)
	require.Len(t, cfg.Rules, 3)
	assert.Equal(t, "never", cfg.Rules[0].Options["style"])

	active, err := cfg.ActiveRules()
	require.NoError(t, err)
	assert.Equal(t, []string{"semi", "quotes"}, ruleIDs(active))
	assert.Equal(t, lint.SeverityWarning, active[0].Severity)
	assert.Equal(t, map[string]any{"style": "never"}, active[0].Options)
}

func TestLoadConfig_TOML(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, ".leaplint.toml", `max_passes = 3
ignore = ["vendor/**"]

[[rules]]
id = "eqeqeq"
severity = "error"

[rules.options]
null = "ignore"
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxPasses)
	assert.Equal(t, []string{"vendor/**"}, cfg.Ignore)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "eqeqeq", cfg.Rules[0].ID)
	assert.Equal(t, "ignore", cfg.Rules[0].Options["null"])
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, ".leaplint.yaml", "max_passes: 2\nworkers: 2\n")

	tests := []struct {
		name    string
		env     string
		flag    string
		setFlag bool
		want    int
	}{
		{name: "file over defaults", want: 2},
		{name: "env over file", env: "5", want: 5},
		{name: "flag over env", env: "5", flag: "7", setFlag: true, want: 7},
		{name: "unset flag falls back to env", env: "5", want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			if tt.env != "" {
				t.Setenv("LEAPLINT_MAX_PASSES", tt.env)
			}
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			flags.Int("max-passes", 10, "")
			if tt.setFlag {
				require.NoError(t, flags.Set("max-passes", tt.flag))
			}

			cfg, err := LoadConfig(path, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.MaxPasses)
			assert.Equal(t, 2, cfg.Workers)
		})
	}
}

func TestLoadConfig_NestedEnvAndFlagKeys(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, ".leaplint.yaml", "log_level: info\n")
	t.Setenv("LEAPLINT_CACHE__ENABLED", "true")
	t.Setenv("LEAPLINT_IGNORE", "a/**,b/**")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("cache-location", "", "")
	flags.String("suppressions-location", "", "")
	require.NoError(t, flags.Set("cache-location", "/tmp/c.db"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "/tmp/c.db", cfg.Cache.Path)
	assert.Equal(t, []string{"a/**", "b/**"}, cfg.Ignore)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultSuppressionsPath), cfg.Suppressions.Path)
}

func TestLoadConfig_Invalid(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, ".leaplint.yaml", `max_passes: 0
output: html
rules:
  - id: quotes
    severity: loud
  - id: no-such-rule
  - id: quotes
`)

	_, err := LoadConfig(path, nil)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "invalid config")
	assert.Contains(t, msg, "max_passes must be at least 1")
	assert.Contains(t, msg, `output must be one of auto|text|json|markdown, got "html"`)
	assert.Contains(t, msg, `rules[0].severity must be off, error or warning, got "loud"`)
	assert.Contains(t, msg, `rules[1]: unknown rule "no-such-rule"`)
	assert.Contains(t, msg, `rules[2]: rule "quotes" listed twice`)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_ActiveRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   []RuleConfig
		only    []string
		want    []string
		wantErr string
	}{
		{
			name: "empty list enables every rule by id",
			want: []string{"eqeqeq", "no-console", "no-debugger", "no-trailing-spaces", "no-var", "quotes", "semi"},
		},
		{
			name:  "configured order is run order",
			rules: []RuleConfig{{ID: "semi"}, {ID: "eqeqeq"}, {ID: "quotes"}},
			want:  []string{"semi", "eqeqeq", "quotes"},
		},
		{
			name:  "only narrows the configured list",
			rules: []RuleConfig{{ID: "semi"}, {ID: "eqeqeq"}, {ID: "quotes"}},
			only:  []string{"quotes"},
			want:  []string{"quotes"},
		},
		{
			name:  "only re-enables rules that are off",
			rules: []RuleConfig{{ID: "semi", Severity: "off"}},
			only:  []string{"semi"},
			want:  []string{"semi"},
		},
		{
			name:  "only without configured rules",
			only:  []string{"no-var", "eqeqeq"},
			want:  []string{"no-var", "eqeqeq"},
		},
		{
			name:    "only with unknown rule",
			only:    []string{"bogus"},
			wantErr: `unknown rule "bogus"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Rules: tt.rules}
			active, err := cfg.ActiveRules(tt.only...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ruleIDs(active))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLogLevel("debug").String())
	assert.Equal(t, "INFO", ParseLogLevel("INFO").String())
	assert.Equal(t, "ERROR", ParseLogLevel("error").String())
	assert.Equal(t, "WARN", ParseLogLevel("").String())
}

func TestLoadFromDir(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".leaplint.yaml"), []byte("max_passes: 3\nrules:\n  - id: semi\n"), 0600))
	nested := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Setenv("LEAPLINT_MAX_PASSES", "7")

	cfg, err := LoadFromDir(nested)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxPasses, "environment is not consulted")
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Nil(t, GetCurrentConfig(), "current config is untouched")

	rules, err := cfg.ActiveRules()
	require.NoError(t, err)
	assert.Equal(t, []string{"semi"}, ruleIDs(rules))

	cfg, err = LoadFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPasses, cfg.MaxPasses)
}

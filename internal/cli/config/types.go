// Package config loads leaplint configuration from defaults, a config file,
// LEAPLINT_ environment variables and command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Include                []string           `koanf:"include" validate:"dive,required"`
	Ignore                 []string           `koanf:"ignore" validate:"dive,required"`
	MaxPasses              int                `koanf:"max_passes" validate:"gte=1"`
	Workers                int                `koanf:"workers" validate:"gte=0"`
	FileTimeout            time.Duration      `koanf:"file_timeout" validate:"gte=0"`
	ReportUnusedDirectives bool               `koanf:"report_unused_directives"`
	NoInlineConfig         bool               `koanf:"no_inline_config"`
	OutputFormat           string             `koanf:"output" validate:"omitempty,oneof=auto text json markdown"`
	LogLevel               string             `koanf:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat              string             `koanf:"log_format" validate:"omitempty,oneof=text json"`
	Verbose                bool               `koanf:"verbose"`
	Cache                  CacheConfig        `koanf:"cache"`
	Suppressions           SuppressionsConfig `koanf:"suppressions"`
	Rules                  []RuleConfig       `koanf:"rules" validate:"dive"`

	// ProjectRoot is the directory of the config file, or the working
	// directory when there is none. Relative paths resolve against it.
	ProjectRoot string `koanf:"-"`
}

// CacheConfig controls the on-disk result cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"required_if=Enabled true"`
}

// SuppressionsConfig locates the bulk suppressions file.
type SuppressionsConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// RuleConfig enables one rule. The list order is the run order.
type RuleConfig struct {
	ID       string         `koanf:"id" validate:"required"`
	Severity string         `koanf:"severity" validate:"omitempty,severity"`
	Options  map[string]any `koanf:"options"`
}

// Default configuration values.
const (
	DefaultMaxPasses        = 10
	DefaultFileTimeout      = 30 * time.Second
	DefaultOutput           = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel         = "warn"
	DefaultLogFormat        = "text"
	DefaultCachePath        = ".leaplint/cache.db"
	DefaultSuppressionsPath = "leaplint-suppressions.json"
)

// DefaultInclude and DefaultIgnore are the file patterns used when the
// config file sets none.
var (
	DefaultInclude = []string{"**/*.js", "**/*.mjs", "**/*.cjs", "**/*.jsx"}
	DefaultIgnore  = []string{"node_modules/**", "dist/**", ".leaplint/**"}
)

// ConfigFileNames lists the names searched for, in order.
var ConfigFileNames = []string{".leaplint.yaml", ".leaplint.yml", ".leaplint.toml"}

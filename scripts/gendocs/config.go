package main

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/leaplint/internal/cli/config"
)

// ConfigField describes one configuration key.
type ConfigField struct {
	Key         string
	Type        string
	Default     string
	Constraints string
	Description string
}

// fieldDescriptions documents every key of config.Config. configFields
// fails on a key missing here so new settings cannot ship undocumented.
var fieldDescriptions = map[string]string{
	"include":                  "Glob patterns of files to lint, relative to the project root.",
	"ignore":                   "Glob patterns of files to skip. Ignore wins over include.",
	"max_passes":               "Maximum number of lint passes when fixing. The loop stops earlier once no fix applies.",
	"workers":                  "Number of files linted concurrently. Zero uses one worker per CPU.",
	"file_timeout":             "Time limit for linting a single file, as a Go duration.",
	"report_unused_directives": "Report disable comments that suppress nothing.",
	"no_inline_config":         "Ignore leaplint- comments in source files.",
	"output":                   "Output format: auto, text, json or markdown.",
	"log_level":                "Log level: debug, info, warn or error.",
	"log_format":               "Log format: text or json.",
	"verbose":                  "Print extra information such as the config file in use.",
	"cache.enabled":            "Reuse results for files whose content and rule set are unchanged.",
	"cache.path":               "Location of the result cache database.",
	"suppressions.path":        "Location of the bulk suppressions file.",
	"rules":                    "Rules to enable, in run order. Each entry takes id, severity and options. An empty list enables every built-in rule.",
}

// generateConfigDocs writes configuration.md from the config struct and its
// defaults.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fields, err := configFields()
	if err != nil {
		return err
	}
	if err := writeFile(outDir, "configuration.md", configPage(fields)); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}

// configFields lists the keys of config.Config in declaration order.
func configFields() ([]ConfigField, error) {
	defaults := config.Defaults()
	var fields []ConfigField
	var missing []string

	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag := f.Tag.Get("koanf")
			if tag == "" || tag == "-" {
				continue
			}
			key := prefix + tag
			if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Duration(0)) {
				walk(f.Type, key+".")
				continue
			}
			desc, ok := fieldDescriptions[key]
			if !ok {
				missing = append(missing, key)
			}
			fields = append(fields, ConfigField{
				Key:         key,
				Type:        typeName(f.Type),
				Default:     formatDefault(defaults[key]),
				Constraints: f.Tag.Get("validate"),
				Description: desc,
			})
		}
	}
	walk(reflect.TypeOf(config.Config{}), "")

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("undocumented config keys: %s", strings.Join(missing, ", "))
	}
	return fields, nil
}

func typeName(t reflect.Type) string {
	if t == reflect.TypeOf(time.Duration(0)) {
		return "duration"
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int64:
		return "integer"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Struct {
			return "list of objects"
		}
		return "list of " + typeName(t.Elem())
	case reflect.Map:
		return "map"
	default:
		return t.Kind().String()
	}
}

func formatDefault(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case []string:
		quoted := make([]string, len(v))
		for i, s := range v {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		return InlineCode("[" + strings.Join(quoted, ", ") + "]")
	default:
		return InlineCode(fmt.Sprint(v))
	}
}

func configPage(fields []ConfigField) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "leaplint configuration file reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	names := make([]string, len(config.ConfigFileNames))
	for i, n := range config.ConfigFileNames {
		names[i] = InlineCode(n)
	}
	w.Paragraph("leaplint reads the first of these files found in the working directory or any parent directory:")
	w.BulletList(names)
	w.Paragraph("Relative paths resolve against the directory holding the config file. Run " +
		InlineCode("leaplint init") + " to write a starter file.")

	w.Header(2, "Keys")
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{InlineCode(f.Key), f.Type, f.Default, f.Constraints, f.Description})
	}
	w.Table([]string{"Key", "Type", "Default", "Constraints", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `include:
  - "src/**/*.js"
max_passes: 10
rules:
  - id: no-debugger
  - id: quotes
    severity: warning
    options:
      style: double`)
	return w.Bytes()
}

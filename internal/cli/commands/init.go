package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leaplint/internal/cli/config"
	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

const configHeader = `# leaplint configuration.
# Rules run in the order listed. Set severity to off, warning or error.
# Run 'leaplint rules' to see every available rule.
`

// initFile is the shape written by init; it mirrors config.Config.
type initFile struct {
	Include   []string   `yaml:"include"`
	Ignore    []string   `yaml:"ignore"`
	MaxPasses int        `yaml:"max_passes"`
	Cache     initCache  `yaml:"cache"`
	Rules     []initRule `yaml:"rules"`
}

type initCache struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type initRule struct {
	ID       string `yaml:"id"`
	Severity string `yaml:"severity,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var all bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a leaplint configuration",
		Long: `Create a .leaplint.yaml configuration file.

The generated file lists the default include and ignore patterns and the
recommended rules: every problem and suggestion rule. Use --all to add the
layout rules as well.`,
		Example: `  # Initialize in current directory
  leaplint init

  # Enable every rule
  leaplint init --all

  # Initialize in another directory
  leaplint init my-project

  # Force overwrite existing config
  leaplint init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cmdCtx, err := NewCommandContext(cmd)
			var r *output.Renderer
			if err == nil {
				r = cmdCtx.Renderer
			} else {
				// A broken existing config must not block --force.
				r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
			}
			return runInit(r, dir, force, all)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&all, "all", false, "Enable every rule, including layout rules")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, all bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileNames[0])
	}

	data, err := renderInitConfig(all)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.StatusLine(config.ConfigFileNames[0], "success", "created")
	r.Println("")
	r.Success("leaplint initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Adjust include and ignore patterns for your project")
	r.Println("  2. Run 'leaplint lint' to check your code")
	r.Println("  3. Run 'leaplint lint --fix' to apply automatic fixes")

	return nil
}

// renderInitConfig builds the default configuration file contents.
func renderInitConfig(all bool) ([]byte, error) {
	f := initFile{
		Include:   config.DefaultInclude,
		Ignore:    config.DefaultIgnore,
		MaxPasses: config.DefaultMaxPasses,
		Cache:     initCache{Path: config.DefaultCachePath},
	}
	for _, rule := range lint.GetAll() {
		if !all && rule.Type() == lint.TypeLayout {
			continue
		}
		f.Rules = append(f.Rules, initRule{ID: rule.ID(), Severity: rule.DefaultSeverity().String()})
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return buf.Bytes(), nil
}

package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplint/internal/cli/config"
	"github.com/leapstack-labs/leaplint/internal/lsp"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC. It lints open
JavaScript documents as they change and offers fixes as code actions.
Configuration is loaded from the workspace root sent by the client in its
initialize request, and reloaded when the config file is saved.`,
		Example: `  # Start LSP server (usually called by an editor)
  leaplint lsp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := config.GetLogger(cmd.Context())
			server := lsp.NewServer(os.Stdin, os.Stdout, lsp.WithLogger(logger), lsp.WithVersion(version))
			return server.Run(cmd.Context())
		},
	}

	return cmd
}

package cli

import (
	"fmt"

	"github.com/neilberkman/qbench/cmd/qbench/mcp"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio that lets an
assistant run build benchmarks, fetch stored builds, create share and
Compiler Explorer links, and browse the local history.

Configure in your MCP client's config file:
  {
    "mcpServers": {
      "qbench": {
        "command": "qbench",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	database, _, err := openHistory()
	if err != nil {
		return err
	}
	if database != nil {
		defer func() {
			_ = database.Close()
		}()
	}

	deps := mcp.Deps{
		DB:          database,
		Client:      newClient(),
		NewSession:  func() *session.Session { return newSession() },
		Defaults:    cfg.Defaults,
		ServiceURL:  cfg.ServiceURL,
		ExplorerURL: cfg.ExplorerURL,
		Version:     version,
	}
	if err := mcp.StartServer(deps); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

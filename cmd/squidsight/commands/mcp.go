package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/squidsight/squidsight/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start squidsight as an MCP server (stdio)",
		Long: `Exposes squidsight as an MCP tool server. Add to your MCP client config:

  {
    "mcpServers": {
      "squidsight": {
        "command": "squidsight",
        "args": ["mcp", "--config", "./squidsight.yaml"]
      }
    }
  }

Tools: check_domain, traffic_summary, list_patterns, run_diagnostics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			resolveSources(cfg)

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

			s := mcpserver.NewServer(cfg, logger)
			return mcpserver.Serve(cmd.Context(), s)
		},
	}
}

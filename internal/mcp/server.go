// Package mcp exposes squidsight's audit queries as MCP tools so an agent
// running behind the firewall can ask why its traffic was blocked.
package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/squidsight/squidsight/internal/config"
)

// NewServer creates an MCP server exposing squidsight tools.
func NewServer(cfg *config.Config, logger *slog.Logger) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "squidsight",
		Version: "0.1.0",
	}, nil)

	h := &handlers{cfg: cfg, logger: logger}

	s.AddTool(checkDomainTool(), h.handleCheckDomain)
	s.AddTool(trafficSummaryTool(), h.handleTrafficSummary)
	s.AddTool(listPatternsTool(), h.handleListPatterns)
	s.AddTool(runDiagnosticsTool(), h.handleRunDiagnostics)

	return s
}

// Serve runs the MCP server on stdio until ctx is cancelled.
func Serve(ctx context.Context, s *mcp.Server) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/squidsight/squidsight/internal/accesslog"
	"github.com/squidsight/squidsight/internal/config"
	"github.com/squidsight/squidsight/internal/diagnose"
	"github.com/squidsight/squidsight/internal/netprobe"
	"github.com/squidsight/squidsight/internal/policy"
	"github.com/squidsight/squidsight/internal/runtime"
	"github.com/squidsight/squidsight/internal/traffic"
	"github.com/squidsight/squidsight/internal/verdict"
)

type handlers struct {
	cfg    *config.Config
	logger *slog.Logger
}

// --- Tool definitions ---

func checkDomainTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "check_domain",
		Description: "Check whether a destination domain is permitted by the egress " +
			"allowlist, with evidence from the proxy access log.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"domain": map[string]any{"type": "string", "description": "Destination domain to check"},
			},
			"required": []string{"domain"},
		},
	}
}

func trafficSummaryTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "traffic_summary",
		Description: "Aggregate the proxy access log into per-domain allow/block " +
			"counters plus summary totals.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"domain":       map[string]any{"type": "string", "description": "Substring filter on destination domains"},
				"blocked_only": map[string]any{"type": "boolean", "description": "Only include blocked requests"},
				"top":          map[string]any{"type": "number", "description": "Truncate the per-domain list to the top N"},
			},
		},
	}
}

func listPatternsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_patterns",
		Description: "List the allowlist domain patterns declared in the firewall policy.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

func runDiagnosticsTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "run_diagnostics",
		Description: "Run the firewall diagnostics battery: policy, log, container " +
			"state, and network probes. Returns per-check results and an issue count.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

// --- Handlers ---

func (h *handlers) handleCheckDomain(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain := argString(req.Params.Arguments, "domain", "")
	if domain == "" {
		return toolError("domain is required"), nil
	}

	patterns, err := policy.ExtractFile(h.cfg.Policy)
	if err != nil {
		return toolError(fmt.Sprintf("reading policy: %v", err)), nil
	}

	// A missing log is fine: the verdict degrades to allowlist-only.
	records, err := accesslog.ReadFile(h.cfg.Log)
	if err != nil {
		h.logger.Warn("access log unavailable", "path", h.cfg.Log, "error", err)
		records = nil
	}

	return toolJSON(verdict.Evaluate(domain, patterns, records)), nil
}

func (h *handlers) handleTrafficSummary(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := accesslog.ReadFile(h.cfg.Log)
	if err != nil {
		return toolError(fmt.Sprintf("reading access log: %v", err)), nil
	}

	rep := traffic.Aggregate(records, traffic.Filters{
		Domain:      argString(req.Params.Arguments, "domain", ""),
		BlockedOnly: argBool(req.Params.Arguments, "blocked_only", false),
		Top:         argInt(req.Params.Arguments, "top", 0),
	})
	return toolJSON(rep), nil
}

func (h *handlers) handleListPatterns(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patterns, err := policy.ExtractFile(h.cfg.Policy)
	if err != nil {
		return toolError(fmt.Sprintf("reading policy: %v", err)), nil
	}
	return toolJSON(map[string]any{
		"patterns": patterns,
		"total":    len(patterns),
	}), nil
}

func (h *handlers) handleRunDiagnostics(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	composer := &diagnose.Composer{
		PolicyPath:     h.cfg.Policy,
		LogPath:        h.cfg.Log,
		ProxyContainer: h.cfg.Runtime.ProxyContainer,
		AgentContainer: h.cfg.Runtime.AgentContainer,
		Network:        h.cfg.Runtime.Network,
		Runtime:        runtime.NewClient(h.cfg.Runtime.Binary, h.cfg.ProbeTimeout()),
		Probe:          netprobe.NewProber(h.cfg.ProbeTimeout()),
	}
	return toolJSON(composer.Run(ctx)), nil
}

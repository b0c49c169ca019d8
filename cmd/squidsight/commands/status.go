package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/squidsight/squidsight/internal/accesslog"
	"github.com/squidsight/squidsight/internal/archive"
	"github.com/squidsight/squidsight/internal/diagnose"
	"github.com/squidsight/squidsight/internal/netprobe"
	"github.com/squidsight/squidsight/internal/policy"
	"github.com/squidsight/squidsight/internal/runtime"
	"github.com/squidsight/squidsight/internal/traffic"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show firewall audit status at a glance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			resolveSources(cfg)

			fmt.Println()
			fmt.Println("  squidsight status")
			fmt.Println("  ────────────────────────────────────────")
			fmt.Printf("  Policy:        %s\n", orNone(cfg.Policy))
			fmt.Printf("  Access log:    %s\n", orNone(cfg.Log))
			fmt.Printf("  Runtime:       %s\n", cfg.Runtime.Binary)
			fmt.Printf("  Config:        %s\n", cfgFile)

			if cfg.Policy != "" {
				if patterns, err := policy.ExtractFile(cfg.Policy); err == nil {
					fmt.Printf("  Patterns:      %d\n", len(patterns))
				}
			}

			if cfg.Log != "" {
				if records, err := accesslog.ReadFile(cfg.Log); err == nil {
					rep := traffic.Aggregate(records, traffic.Filters{})
					fmt.Println("  ────────────────────────────────────────")
					fmt.Printf("  Requests:      %d\n", rep.Summary.Total)
					fmt.Printf("  Allowed:       %d\n", rep.Summary.Allowed)
					fmt.Printf("  Blocked:       %d\n", rep.Summary.Blocked)
					fmt.Printf("  Domains:       %d\n", len(rep.Domains))
				}
			}

			// Archive stats, best effort
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
			if store, err := archive.NewStore(cfg.Archive.Path, logger); err == nil {
				if n, err := store.Count(); err == nil && n > 0 {
					fmt.Printf("  Archived:      %d\n", n)
				}
				_ = store.Close()
			}

			composer := &diagnose.Composer{
				PolicyPath:     cfg.Policy,
				LogPath:        cfg.Log,
				ProxyContainer: cfg.Runtime.ProxyContainer,
				AgentContainer: cfg.Runtime.AgentContainer,
				Network:        cfg.Runtime.Network,
				Runtime:        runtime.NewClient(cfg.Runtime.Binary, cfg.ProbeTimeout()),
				Probe:          netprobe.NewProber(cfg.ProbeTimeout()),
			}
			rep := composer.Run(cmd.Context())
			fmt.Println("  ────────────────────────────────────────")
			if rep.Issues == 0 {
				fmt.Println("  Health:        ok")
			} else {
				fmt.Printf("  Health:        %d issue(s), run 'squidsight diagnose' for details\n", rep.Issues)
			}

			fmt.Println()
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "none found"
	}
	return s
}

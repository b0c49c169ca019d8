package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/squidsight/squidsight/internal/diagnose"
	"github.com/squidsight/squidsight/internal/netprobe"
	"github.com/squidsight/squidsight/internal/runtime"
)

func newDiagnoseCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run the firewall diagnostics battery",
		Long: "Checks the policy file, the access log, the proxy and agent containers, " +
			"and network reachability, producing a pass/fail report with remediation " +
			"hints. Exit code 1 when any check fails.",
		Example: `  squidsight diagnose
  squidsight diagnose --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			resolveSources(cfg)

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

			if jsonOutput {
				data, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			} else {
				printDiagnostics(rep)
			}

			if rep.Issues > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printDiagnostics(rep diagnose.Report) {
	fmt.Println()
	for _, chk := range rep.Checks {
		fmt.Printf("  %s  %-28s %s\n", statusBadge(chk.Status), chk.Name, chk.Message)
		if chk.Fix != "" {
			fmt.Printf("          fix: %s\n", chk.Fix)
		}
	}
	fmt.Println()
	if rep.Issues == 0 {
		fmt.Println("  No issues found.")
	} else {
		fmt.Printf("  %d issue(s) found.\n", rep.Issues)
	}
	fmt.Println()
}

func statusBadge(s diagnose.Status) string {
	switch s {
	case diagnose.Passed:
		return color.GreenString("PASS")
	case diagnose.Failed:
		return color.RedString("FAIL")
	case diagnose.Skipped:
		return color.YellowString("SKIP")
	default:
		return s.String()
	}
}

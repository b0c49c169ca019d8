package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/squidsight/squidsight/internal/accesslog"
	"github.com/squidsight/squidsight/internal/policy"
	"github.com/squidsight/squidsight/internal/verdict"
)

func newCheckCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check <domain>",
		Short: "Check whether a domain is permitted by the firewall",
		Long: "Cross-references the allowlist with observed traffic and reports a single " +
			"verdict for the domain. Exit code 0 when allowed, 1 when blocked or not " +
			"allowlisted, 2 when no policy source can be found.",
		Example: `  squidsight check github.com
  squidsight check api.openai.com --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			resolveSources(cfg)
			if cfg.Policy == "" {
				exitNoSource("policy file")
			}

			patterns, err := policy.ExtractFile(cfg.Policy)
			if err != nil {
				fmt.Fprintf(os.Stderr, "squidsight: reading policy: %v\n", err)
				os.Exit(2)
			}

			// A missing or empty log only weakens the evidence; the
			// allowlist half of the verdict still stands.
			var records []accesslog.Record
			if cfg.Log != "" {
				records, _ = accesslog.ReadFile(cfg.Log)
			}

			v := verdict.Evaluate(args[0], patterns, records)

			if jsonOutput {
				data, err := json.MarshalIndent(v, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			} else {
				printVerdict(v)
			}

			switch v.Status {
			case verdict.StatusAllowed, verdict.StatusAllowedViaAllowlist:
				return nil
			default:
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printVerdict(v verdict.Verdict) {
	fmt.Println()
	fmt.Printf("  %s\n", v.Domain)
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Verdict:       %s\n", colorStatus(v.Status))
	if v.InAllowlist {
		fmt.Printf("  Pattern:       %s\n", v.MatchedPattern)
	} else {
		fmt.Printf("  Pattern:       none\n")
	}
	if v.LastLog != nil {
		outcome := "allowed"
		if !v.LastLog.Allowed {
			outcome = "blocked"
		}
		fmt.Printf("  Last seen:     %s (%d, %s)\n", outcome, v.LastLog.StatusCode, v.LastLog.Decision)
	} else {
		fmt.Printf("  Last seen:     never\n")
	}
	if v.Suggestion != "" {
		fmt.Println("  ────────────────────────────────────────")
		fmt.Printf("  To allow this domain, re-run the firewall setup with:\n")
		fmt.Printf("    %s\n", v.Suggestion)
	}
	fmt.Println()
}

func colorStatus(s verdict.Status) string {
	switch s {
	case verdict.StatusAllowed, verdict.StatusAllowedViaAllowlist:
		return color.GreenString(string(s))
	case verdict.StatusBlocked:
		return color.RedString(string(s))
	case verdict.StatusAllowedUnexpected:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}

package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/squidsight/squidsight/internal/policy"
)

func newPatternsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the allowlist patterns declared in the policy",
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

			if jsonOutput {
				data, err := json.MarshalIndent(map[string]any{
					"policy":   cfg.Policy,
					"patterns": patterns,
					"total":    len(patterns),
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if len(patterns) == 0 {
				fmt.Printf("No allowlist patterns in %s.\n", cfg.Policy)
				return nil
			}
			fmt.Printf("%d pattern(s) from %s:\n\n", len(patterns), cfg.Policy)
			for _, p := range patterns {
				kind := "exact"
				if strings.HasPrefix(p, ".") {
					kind = "suffix"
				}
				fmt.Printf("  %-40s %s\n", p, kind)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

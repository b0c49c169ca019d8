package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/squidsight/squidsight/internal/config"
	"github.com/squidsight/squidsight/internal/discover"
)

var cfgFile string

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "squidsight",
		Short: "Audit an outbound-traffic allowlisting firewall",
		Long: "Squidsight reconstructs policy intent from a forward proxy's access log " +
			"and its allowlist configuration: per-domain traffic statistics, single-domain " +
			"verdicts, and a diagnostics battery for the firewall's container setup.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "squidsight.yaml", "config file path")

	root.AddCommand(
		newCheckCmd(),
		newTrafficCmd(),
		newPatternsCmd(),
		newDiagnoseCmd(),
		newStatusCmd(),
		newIngestCmd(),
		newLogsCmd(),
		newExportCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Defaults()
	}
	return cfg
}

// resolveSources fills unset log/policy paths from well-known locations.
// Discovery lives here in the CLI layer; the core packages only ever see
// resolved paths.
func resolveSources(cfg *config.Config) {
	if cfg.Log == "" {
		if p, ok := discover.Log(); ok {
			cfg.Log = p
		}
	}
	if cfg.Policy == "" {
		if p, ok := discover.Policy(); ok {
			cfg.Policy = p
		}
	}
}

// exitNoSource reports a missing required input and exits with the
// "unable to locate input" code.
func exitNoSource(what string) {
	fmt.Fprintf(os.Stderr, "squidsight: no %s found; set it in %s or pass --config\n", what, cfgFile)
	os.Exit(2)
}

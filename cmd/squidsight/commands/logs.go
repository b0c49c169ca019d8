package commands

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/squidsight/squidsight/internal/archive"
)

func newLogsCmd() *cobra.Command {
	var domain, since string
	var blocked bool
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the record archive",
		Example: `  squidsight logs
  squidsight logs --blocked
  squidsight logs --domain github --limit 100
  squidsight logs --since 24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
			store, err := archive.NewStore(cfg.Archive.Path, logger)
			if err != nil {
				return fmt.Errorf("opening archive: %w", err)
			}
			defer func() { _ = store.Close() }()

			var sinceTS float64
			if since != "" {
				dur, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", since, err)
				}
				sinceTS = float64(time.Now().Add(-dur).Unix())
			}

			entries, err := store.Query(archive.QueryOpts{
				Domain:      domain,
				BlockedOnly: blocked,
				Since:       sinceTS,
				Limit:       limit,
			})
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No archived records found. Run 'squidsight ingest' first.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "TIME\tCLIENT\tDOMAIN\tMETHOD\tSTATUS\tDECISION\n") //nolint:errcheck // CLI output
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", //nolint:errcheck // CLI output
					epochTime(e.Timestamp), e.ClientIP, e.Domain, e.Method, e.StatusCode, e.Decision)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "substring filter on destination domains")
	cmd.Flags().BoolVar(&blocked, "blocked", false, "show only blocked requests")
	cmd.Flags().StringVar(&since, "since", "", "show entries since duration (e.g. 1h, 30m)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")
	return cmd
}

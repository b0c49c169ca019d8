package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/squidsight/squidsight/internal/accesslog"
	"github.com/squidsight/squidsight/internal/traffic"
)

func newTrafficCmd() *cobra.Command {
	var domain, since, until string
	var blocked, jsonOutput, follow bool
	var top int

	cmd := &cobra.Command{
		Use:   "traffic",
		Short: "Summarize proxy traffic per destination domain",
		Example: `  squidsight traffic
  squidsight traffic --blocked
  squidsight traffic --domain github --top 10
  squidsight traffic --since 1h
  squidsight traffic --follow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			resolveSources(cfg)
			if cfg.Log == "" {
				exitNoSource("access log")
			}

			filters := traffic.Filters{
				Domain:      domain,
				BlockedOnly: blocked,
				Top:         top,
			}
			var err error
			if filters.Since, err = boundFromAgo(since); err != nil {
				return fmt.Errorf("invalid --since %q: %w", since, err)
			}
			if filters.Until, err = boundFromAgo(until); err != nil {
				return fmt.Errorf("invalid --until %q: %w", until, err)
			}

			records, err := accesslog.ReadFile(cfg.Log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "squidsight: reading access log: %v\n", err)
				os.Exit(2)
			}

			rep := traffic.Aggregate(records, filters)

			if jsonOutput {
				data, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			printReport(rep)

			if follow {
				return followLog(cfg.Log, filters)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "substring filter on destination domains")
	cmd.Flags().BoolVar(&blocked, "blocked", false, "only include blocked requests")
	cmd.Flags().StringVar(&since, "since", "", "only include requests newer than duration ago (e.g. 1h, 30m)")
	cmd.Flags().StringVar(&until, "until", "", "only include requests older than duration ago")
	cmd.Flags().IntVar(&top, "top", 0, "show only the top N domains")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&follow, "follow", false, "stream newly logged requests after the summary")
	return cmd
}

// boundFromAgo converts a "duration ago" flag into an epoch bound; empty
// means unbounded.
func boundFromAgo(ago string) (float64, error) {
	if ago == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ago)
	if err != nil {
		return 0, err
	}
	return float64(time.Now().Add(-dur).Unix()), nil
}

func printReport(rep traffic.Report) {
	fmt.Println()
	fmt.Println("  traffic summary")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Requests:      %d\n", rep.Summary.Total)
	fmt.Printf("  Allowed:       %d\n", rep.Summary.Allowed)
	fmt.Printf("  Blocked:       %d\n", rep.Summary.Blocked)
	fmt.Printf("  Tunnels:       %d\n", rep.Summary.Tunnels)
	if rep.Summary.Total > 0 {
		fmt.Printf("  Range:         %s to %s\n",
			epochTime(rep.Summary.First), epochTime(rep.Summary.Last))
	}
	fmt.Println()

	if len(rep.Domains) == 0 {
		fmt.Println("  No matching traffic.")
		fmt.Println()
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  DOMAIN\tALLOWED\tBLOCKED\tTOTAL\n") //nolint:errcheck // CLI output
	for _, ds := range rep.Domains {
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\n", //nolint:errcheck // CLI output
			ds.Domain, ds.Allowed, ds.Blocked, ds.Total)
	}
	_ = tw.Flush()
	fmt.Println()
}

// followLog streams newly appended records matching the filters until
// interrupted.
func followLog(path string, filters traffic.Filters) error {
	fmt.Println("Streaming new requests (Ctrl+C to stop)...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	err := accesslog.Follow(ctx, path, logger, func(rec accesslog.Record) {
		if !matchesFollow(rec, filters) {
			return
		}
		outcome := "allowed"
		if !rec.Allowed {
			outcome = "blocked"
		}
		fmt.Printf("%s  %-8s %-40s %d %s\n",
			epochTime(rec.Timestamp), outcome, rec.Domain, rec.StatusCode, rec.Decision)
	})
	if errors.Is(err, context.Canceled) {
		fmt.Println("\nStopped.")
		return nil
	}
	return err
}

// matchesFollow applies the same inclusion rules the aggregator uses, minus
// the time bounds, which make no sense for a live stream.
func matchesFollow(rec accesslog.Record, f traffic.Filters) bool {
	streamFilters := traffic.Filters{Domain: f.Domain, BlockedOnly: f.BlockedOnly}
	rep := traffic.Aggregate([]accesslog.Record{rec}, streamFilters)
	return rep.Summary.Total == 1
}

func epochTime(ts float64) string {
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05")
}

package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/squidsight/squidsight/internal/accesslog"
	"github.com/squidsight/squidsight/internal/archive"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Archive the current access log into the local database",
		Long: "Parses the access log and appends every record to the SQLite archive, so " +
			"traffic stays queryable after the proxy rotates its logs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			resolveSources(cfg)
			if cfg.Log == "" {
				exitNoSource("access log")
			}

			records, err := accesslog.ReadFile(cfg.Log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "squidsight: reading access log: %v\n", err)
				os.Exit(2)
			}
			if len(records) == 0 {
				fmt.Println("No parseable records in the access log.")
				return nil
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
			store, err := archive.NewStore(cfg.Archive.Path, logger)
			if err != nil {
				return fmt.Errorf("opening archive: %w", err)
			}
			defer func() { _ = store.Close() }()

			n, err := store.Ingest(records)
			if err != nil {
				return fmt.Errorf("archiving records: %w", err)
			}
			fmt.Printf("Archived %d record(s) into %s.\n", n, cfg.Archive.Path)
			return nil
		},
	}
}

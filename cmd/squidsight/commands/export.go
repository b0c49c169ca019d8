package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/squidsight/squidsight/internal/exporter"
)

func newExportCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Serve traffic statistics as Prometheus metrics",
		Long: "Starts an HTTP endpoint that re-parses the access log on every scrape and " +
			"exports per-domain allow/block counters plus summary totals.",
		Example: `  squidsight export
  squidsight export --listen :9302`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			resolveSources(cfg)
			if cfg.Log == "" {
				exitNoSource("access log")
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			collector := exporter.NewCollector(cfg.Log, logger)

			mux := http.NewServeMux()
			mux.Handle("/metrics", exporter.Handler(collector))

			srv := &http.Server{
				Addr:              listen,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			logger.Info("serving metrics", "addr", listen, "log", cfg.Log)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving metrics: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:9302", "listen address for the metrics endpoint")
	return cmd
}

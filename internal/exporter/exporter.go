// Package exporter serves aggregated traffic statistics as Prometheus
// metrics. The access log is re-parsed on every scrape, so the exporter
// stays stateless and always reflects the log on disk.
package exporter

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/squidsight/squidsight/internal/accesslog"
	"github.com/squidsight/squidsight/internal/traffic"
)

// Collector exposes per-domain allow/block counters from the access log.
type Collector struct {
	logPath string
	logger  *slog.Logger

	domainRequests *prometheus.Desc
	totalRequests  *prometheus.Desc
	tunnelRequests *prometheus.Desc
	scrapeOK       *prometheus.Desc
}

// NewCollector creates a collector reading the given access log.
func NewCollector(logPath string, logger *slog.Logger) *Collector {
	return &Collector{
		logPath: logPath,
		logger:  logger,
		domainRequests: prometheus.NewDesc(
			"squidsight_domain_requests_total",
			"Requests per destination domain by outcome.",
			[]string{"domain", "outcome"}, nil,
		),
		totalRequests: prometheus.NewDesc(
			"squidsight_requests_total",
			"Total requests in the access log by outcome.",
			[]string{"outcome"}, nil,
		),
		tunnelRequests: prometheus.NewDesc(
			"squidsight_tunnel_requests_total",
			"CONNECT tunnel requests in the access log.",
			nil, nil,
		),
		scrapeOK: prometheus.NewDesc(
			"squidsight_log_readable",
			"Whether the access log could be read on the last scrape.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.domainRequests
	ch <- c.totalRequests
	ch <- c.tunnelRequests
	ch <- c.scrapeOK
}

// Collect implements prometheus.Collector by parsing and aggregating the
// log. An unreadable log yields squidsight_log_readable 0 and no counters.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	records, err := accesslog.ReadFile(c.logPath)
	if err != nil {
		c.logger.Warn("reading access log for scrape", "path", c.logPath, "error", err)
		ch <- prometheus.MustNewConstMetric(c.scrapeOK, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.scrapeOK, prometheus.GaugeValue, 1)

	rep := traffic.Aggregate(records, traffic.Filters{})
	ch <- prometheus.MustNewConstMetric(c.totalRequests, prometheus.CounterValue,
		float64(rep.Summary.Allowed), "allowed")
	ch <- prometheus.MustNewConstMetric(c.totalRequests, prometheus.CounterValue,
		float64(rep.Summary.Blocked), "blocked")
	ch <- prometheus.MustNewConstMetric(c.tunnelRequests, prometheus.CounterValue,
		float64(rep.Summary.Tunnels))

	for _, ds := range rep.Domains {
		ch <- prometheus.MustNewConstMetric(c.domainRequests, prometheus.CounterValue,
			float64(ds.Allowed), ds.Domain, "allowed")
		ch <- prometheus.MustNewConstMetric(c.domainRequests, prometheus.CounterValue,
			float64(ds.Blocked), ds.Domain, "blocked")
	}
}

// Handler returns an HTTP handler serving the metrics on a dedicated
// registry, keeping Go runtime metrics out of the scrape.
func Handler(c *Collector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

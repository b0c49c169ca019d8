package exporter

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `1718123456.789 172.30.0.10:51234 registry.npmjs.org:443 104.16.92.83:443 HTTP/1.1 CONNECT 200 TCP_TUNNEL:HIER_DIRECT registry.npmjs.org:443 "npm/10.2.4"
1718123460.100 172.30.0.10:51240 example.com:443 93.184.216.34:443 HTTP/1.1 CONNECT 403 TCP_DENIED:HIER_NONE example.com:443 "curl/8.5.0"
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func gather(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func TestCollect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))

	byName := gather(t, NewCollector(path, testLogger()))

	readable := byName["squidsight_log_readable"]
	require.NotNil(t, readable)
	assert.Equal(t, 1.0, readable.GetMetric()[0].GetGauge().GetValue())

	tunnels := byName["squidsight_tunnel_requests_total"]
	require.NotNil(t, tunnels)
	assert.Equal(t, 2.0, tunnels.GetMetric()[0].GetCounter().GetValue())

	totals := byName["squidsight_requests_total"]
	require.NotNil(t, totals)
	got := map[string]float64{}
	for _, m := range totals.GetMetric() {
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"allowed": 1, "blocked": 1}, got)

	domains := byName["squidsight_domain_requests_total"]
	require.NotNil(t, domains)
	// Two domains, two outcomes each.
	assert.Len(t, domains.GetMetric(), 4)
}

func TestCollect_UnreadableLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")
	byName := gather(t, NewCollector(path, testLogger()))

	readable := byName["squidsight_log_readable"]
	require.NotNil(t, readable)
	assert.Equal(t, 0.0, readable.GetMetric()[0].GetGauge().GetValue())
	assert.NotContains(t, byName, "squidsight_requests_total")
}

func TestHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))

	srv := httptest.NewServer(Handler(NewCollector(path, testLogger())))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "squidsight_log_readable 1")
	// The dedicated registry keeps Go runtime metrics out.
	assert.NotContains(t, string(body), "go_goroutines")
}

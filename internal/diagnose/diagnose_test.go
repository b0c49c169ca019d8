package diagnose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	allowedLine = `1718123456.789 172.30.0.10:51234 registry.npmjs.org:443 104.16.92.83:443 HTTP/1.1 CONNECT 200 TCP_TUNNEL:HIER_DIRECT registry.npmjs.org:443 "npm/10.2.4"`
	strayLine   = `1718123460.100 172.30.0.10:51240 pypi.org:443 151.101.0.223:443 HTTP/1.1 CONNECT 200 TCP_TUNNEL:HIER_DIRECT pypi.org:443 "pip/24.0"`
)

type fakeRuntime struct {
	running map[string]bool
	health  string
	ip      string
	network bool
	err     error
}

func (f *fakeRuntime) ContainerRunning(_ context.Context, name string) (bool, error) {
	return f.running[name], f.err
}

func (f *fakeRuntime) ContainerHealth(_ context.Context, _ string) (string, error) {
	return f.health, f.err
}

func (f *fakeRuntime) ContainerIP(_ context.Context, _, _ string) (string, error) {
	return f.ip, f.err
}

func (f *fakeRuntime) NetworkExists(_ context.Context, _ string) (bool, error) {
	return f.network, f.err
}

type fakeProber struct {
	pingErr    error
	resolveErr error
}

func (f *fakeProber) Ping(_ context.Context, _ string) (time.Duration, error) {
	return 2 * time.Millisecond, f.pingErr
}

func (f *fakeProber) Resolve(_ context.Context, _, _ string) ([]string, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return []string{"140.82.121.3"}, nil
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func healthyComposer(t *testing.T) *Composer {
	t.Helper()
	return &Composer{
		PolicyPath:     writeFixture(t, "squid.conf", "acl allowed_domains dstdomain .npmjs.org\n"),
		LogPath:        writeFixture(t, "access.log", allowedLine+"\n"),
		ProxyContainer: "squid-proxy",
		AgentContainer: "agent",
		Network:        "firewall-net",
		Runtime: &fakeRuntime{
			running: map[string]bool{"squid-proxy": true, "agent": true},
			health:  "healthy",
			ip:      "172.30.0.2",
			network: true,
		},
		Probe: &fakeProber{},
	}
}

func checkByName(t *testing.T, rep Report, name string) Check {
	t.Helper()
	for _, chk := range rep.Checks {
		if chk.Name == name {
			return chk
		}
	}
	t.Fatalf("no check named %q", name)
	return Check{}
}

func TestRun_AllHealthy(t *testing.T) {
	rep := healthyComposer(t).Run(context.Background())

	assert.Equal(t, 0, rep.Issues)
	require.Len(t, rep.Checks, 11)
	for _, chk := range rep.Checks {
		assert.Equal(t, Passed, chk.Status, "check %q: %s", chk.Name, chk.Message)
		assert.Empty(t, chk.Fix)
	}
}

func TestRun_ProxyDownSkipsDependents(t *testing.T) {
	c := healthyComposer(t)
	c.Runtime = &fakeRuntime{
		running: map[string]bool{"squid-proxy": false, "agent": true},
		ip:      "172.30.0.3",
		network: true,
	}
	rep := c.Run(context.Background())

	assert.Equal(t, Failed, checkByName(t, rep, "proxy container").Status)
	assert.Equal(t, Skipped, checkByName(t, rep, "proxy health").Status)
	assert.Equal(t, Skipped, checkByName(t, rep, "proxy reachability").Status)
	assert.Equal(t, Skipped, checkByName(t, rep, "dns resolution").Status)

	// Skips are not issues.
	assert.Equal(t, 1, rep.Issues)
}

func TestRun_RuntimeErrorDoesNotAbortBattery(t *testing.T) {
	c := healthyComposer(t)
	c.Runtime = &fakeRuntime{err: errors.New("cannot connect to the docker daemon")}
	rep := c.Run(context.Background())

	// Every check still reports; file-level checks are unaffected.
	require.Len(t, rep.Checks, 11)
	assert.Equal(t, Passed, checkByName(t, rep, "policy file").Status)
	chk := checkByName(t, rep, "proxy container")
	assert.Equal(t, Failed, chk.Status)
	assert.NotEmpty(t, chk.Fix)
}

func TestRun_UnexpectedAllowedTraffic(t *testing.T) {
	c := healthyComposer(t)
	c.LogPath = writeFixture(t, "access.log", allowedLine+"\n"+strayLine+"\n")
	rep := c.Run(context.Background())

	chk := checkByName(t, rep, "unexpected allowed traffic")
	assert.Equal(t, Failed, chk.Status)
	assert.Contains(t, chk.Message, "pypi.org")
}

func TestRun_EmptyLogSkipsFormatCheck(t *testing.T) {
	c := healthyComposer(t)
	c.LogPath = writeFixture(t, "access.log", "")
	rep := c.Run(context.Background())

	assert.Equal(t, Skipped, checkByName(t, rep, "log format").Status)
	assert.Equal(t, Skipped, checkByName(t, rep, "unexpected allowed traffic").Status)
	assert.Equal(t, 0, rep.Issues)
}

func TestRun_MissingSources(t *testing.T) {
	c := healthyComposer(t)
	c.PolicyPath = ""
	c.LogPath = filepath.Join(t.TempDir(), "missing.log")
	rep := c.Run(context.Background())

	assert.Equal(t, Failed, checkByName(t, rep, "policy file").Status)
	assert.Equal(t, Skipped, checkByName(t, rep, "allowlist patterns").Status)
	assert.Equal(t, Failed, checkByName(t, rep, "access log").Status)
	assert.Equal(t, Skipped, checkByName(t, rep, "log format").Status)
}

func TestRun_ProbeFailures(t *testing.T) {
	c := healthyComposer(t)
	c.Probe = &fakeProber{
		pingErr:    errors.New("timeout"),
		resolveErr: errors.New("SERVFAIL"),
	}
	rep := c.Run(context.Background())

	assert.Equal(t, Failed, checkByName(t, rep, "proxy reachability").Status)
	assert.Equal(t, Failed, checkByName(t, rep, "dns resolution").Status)
	assert.Equal(t, 2, rep.Issues)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "PASS", Passed.String())
	assert.Equal(t, "FAIL", Failed.String())
	assert.Equal(t, "SKIP", Skipped.String())
}

// Package diagnose runs a fixed battery of named health checks over the
// firewall's policy, log, and container state and reduces them to a
// pass/fail report with remediation hints.
package diagnose

import (
	"context"
	"time"
)

// Status is the outcome of one check. Skipped means the check was
// inapplicable given current state; it is rendered distinctly and never
// counted as an issue.
type Status int

const (
	Passed Status = iota
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "PASS"
	case Failed:
		return "FAIL"
	case Skipped:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status for JSON reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Check is one named result. Fix is a human-actionable remediation hint,
// present only on failures.
type Check struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// Report is the ordered battery output. Issues counts failed checks only.
type Report struct {
	Checks []Check `json:"checks"`
	Issues int     `json:"issues"`
}

// RuntimeClient is the container-runtime surface the battery consumes.
// *runtime.Client satisfies it; tests inject fakes.
type RuntimeClient interface {
	ContainerRunning(ctx context.Context, name string) (bool, error)
	ContainerHealth(ctx context.Context, name string) (string, error)
	ContainerIP(ctx context.Context, name, network string) (string, error)
	NetworkExists(ctx context.Context, name string) (bool, error)
}

// NetProber is the probing surface the battery consumes. *netprobe.Prober
// satisfies it.
type NetProber interface {
	Ping(ctx context.Context, addr string) (time.Duration, error)
	Resolve(ctx context.Context, domain, resolver string) ([]string, error)
}

// Composer holds the resolved sources and collaborators for one battery run.
// Source paths arrive resolved; the composer never goes looking for them.
type Composer struct {
	PolicyPath string
	LogPath    string

	ProxyContainer string
	AgentContainer string
	Network        string

	// ResolveDomain is the name resolved during the DNS probe. Empty means
	// use the default.
	ResolveDomain string

	Runtime RuntimeClient
	Probe   NetProber
}

// DefaultResolveDomain is a domain expected to resolve anywhere the
// firewall is correctly set up.
const DefaultResolveDomain = "github.com"

// Run executes the battery in fixed order. Every check is independently
// failure-tolerant: a collaborator error becomes a failed check with a fix
// hint, never an aborted batch.
func (c *Composer) Run(ctx context.Context) Report {
	var rep Report
	for _, fn := range c.battery() {
		rep.Checks = append(rep.Checks, fn(ctx))
	}
	for _, chk := range rep.Checks {
		if chk.Status == Failed {
			rep.Issues++
		}
	}
	return rep
}

func (c *Composer) battery() []func(context.Context) Check {
	return []func(context.Context) Check{
		c.checkPolicyFile,
		c.checkPatterns,
		c.checkLogFile,
		c.checkLogParses,
		c.checkProxyRunning,
		c.checkProxyHealthy,
		c.checkNetwork,
		c.checkAgentAttached,
		c.checkProxyReachable,
		c.checkDNSThroughProxy,
		c.checkNoUnexpectedAllows,
	}
}

func passed(name, msg string) Check {
	return Check{Name: name, Status: Passed, Message: msg}
}

func failed(name, msg, fix string) Check {
	return Check{Name: name, Status: Failed, Message: msg, Fix: fix}
}

func skipped(name, msg string) Check {
	return Check{Name: name, Status: Skipped, Message: msg}
}

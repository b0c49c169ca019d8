package diagnose

import (
	"context"
	"fmt"
	"os"

	"github.com/squidsight/squidsight/internal/accesslog"
	"github.com/squidsight/squidsight/internal/policy"
	"github.com/squidsight/squidsight/internal/traffic"
)

func (c *Composer) checkPolicyFile(_ context.Context) Check {
	const name = "policy file"
	if c.PolicyPath == "" {
		return failed(name, "no policy file configured",
			"set 'policy' in squidsight.yaml to the squid.conf path")
	}
	if _, err := os.Stat(c.PolicyPath); err != nil {
		return failed(name, fmt.Sprintf("cannot read %s: %v", c.PolicyPath, err),
			"check the path and file permissions")
	}
	return passed(name, c.PolicyPath)
}

func (c *Composer) checkPatterns(_ context.Context) Check {
	const name = "allowlist patterns"
	if c.PolicyPath == "" {
		return skipped(name, "no policy file configured")
	}
	patterns, err := policy.ExtractFile(c.PolicyPath)
	if err != nil {
		return failed(name, fmt.Sprintf("reading %s: %v", c.PolicyPath, err),
			"check the path and file permissions")
	}
	if len(patterns) == 0 {
		return failed(name, "no allowed_domains dstdomain patterns found",
			"declare 'acl allowed_domains dstdomain <domains>' in the policy file")
	}
	return passed(name, fmt.Sprintf("%d pattern(s)", len(patterns)))
}

func (c *Composer) checkLogFile(_ context.Context) Check {
	const name = "access log"
	if c.LogPath == "" {
		return failed(name, "no access log configured",
			"set 'log' in squidsight.yaml to the squid access.log path")
	}
	if _, err := os.Stat(c.LogPath); err != nil {
		return failed(name, fmt.Sprintf("cannot read %s: %v", c.LogPath, err),
			"check the path and file permissions")
	}
	return passed(name, c.LogPath)
}

func (c *Composer) checkLogParses(_ context.Context) Check {
	const name = "log format"
	if c.LogPath == "" {
		return skipped(name, "no access log configured")
	}
	st, err := os.Stat(c.LogPath)
	if err != nil {
		return skipped(name, "access log unreadable")
	}
	if st.Size() == 0 {
		return skipped(name, "access log is empty; no traffic yet")
	}
	records, err := accesslog.ReadFile(c.LogPath)
	if err != nil {
		return failed(name, fmt.Sprintf("reading %s: %v", c.LogPath, err),
			"check file permissions")
	}
	if len(records) == 0 {
		return failed(name, "no line in the access log matched the expected format",
			"verify the proxy's logformat matches what squidsight expects")
	}
	return passed(name, fmt.Sprintf("%d record(s) parsed", len(records)))
}

func (c *Composer) checkProxyRunning(ctx context.Context) Check {
	const name = "proxy container"
	running, err := c.Runtime.ContainerRunning(ctx, c.ProxyContainer)
	if err != nil {
		return failed(name, fmt.Sprintf("querying runtime: %v", err),
			"check that the container runtime is installed and reachable")
	}
	if !running {
		return failed(name, fmt.Sprintf("%s is not running", c.ProxyContainer),
			"start the firewall proxy container")
	}
	return passed(name, fmt.Sprintf("%s is running", c.ProxyContainer))
}

func (c *Composer) checkProxyHealthy(ctx context.Context) Check {
	const name = "proxy health"
	running, err := c.Runtime.ContainerRunning(ctx, c.ProxyContainer)
	if err != nil || !running {
		return skipped(name, "proxy is not running")
	}
	health, err := c.Runtime.ContainerHealth(ctx, c.ProxyContainer)
	if err != nil {
		return failed(name, fmt.Sprintf("querying health: %v", err),
			"check that the container runtime is reachable")
	}
	switch health {
	case "healthy", "none":
		return passed(name, health)
	default:
		return failed(name, fmt.Sprintf("health is %q", health),
			"inspect the proxy container logs")
	}
}

func (c *Composer) checkNetwork(ctx context.Context) Check {
	const name = "firewall network"
	exists, err := c.Runtime.NetworkExists(ctx, c.Network)
	if err != nil {
		return failed(name, fmt.Sprintf("querying network: %v", err),
			"check that the container runtime is reachable")
	}
	if !exists {
		return failed(name, fmt.Sprintf("network %s does not exist", c.Network),
			"create the firewall network and attach both containers")
	}
	return passed(name, c.Network)
}

func (c *Composer) checkAgentAttached(ctx context.Context) Check {
	const name = "agent network attachment"
	running, err := c.Runtime.ContainerRunning(ctx, c.AgentContainer)
	if err != nil || !running {
		return skipped(name, "agent is not running")
	}
	ip, err := c.Runtime.ContainerIP(ctx, c.AgentContainer, c.Network)
	if err != nil {
		return failed(name, fmt.Sprintf("querying agent address: %v", err),
			"check that the container runtime is reachable")
	}
	if ip == "" {
		return failed(name, fmt.Sprintf("%s has no address on %s", c.AgentContainer, c.Network),
			"attach the agent container to the firewall network")
	}
	return passed(name, fmt.Sprintf("%s at %s", c.AgentContainer, ip))
}

func (c *Composer) checkProxyReachable(ctx context.Context) Check {
	const name = "proxy reachability"
	ip, ok := c.proxyIP(ctx)
	if !ok {
		return skipped(name, "proxy is not running")
	}
	rtt, err := c.Probe.Ping(ctx, ip)
	if err != nil {
		return failed(name, fmt.Sprintf("no ICMP reply from %s: %v", ip, err),
			"check the firewall network and host ICMP settings")
	}
	return passed(name, fmt.Sprintf("%s replied in %s", ip, rtt))
}

func (c *Composer) checkDNSThroughProxy(ctx context.Context) Check {
	const name = "dns resolution"
	ip, ok := c.proxyIP(ctx)
	if !ok {
		return skipped(name, "proxy is not running")
	}
	domain := c.ResolveDomain
	if domain == "" {
		domain = DefaultResolveDomain
	}
	addrs, err := c.Probe.Resolve(ctx, domain, ip)
	if err != nil {
		return failed(name, fmt.Sprintf("resolving %s: %v", domain, err),
			"check the proxy container's DNS configuration")
	}
	return passed(name, fmt.Sprintf("%s -> %s", domain, addrs[0]))
}

// checkNoUnexpectedAllows cross-references allowed traffic against the
// allowlist: every allowed domain in the log should match some pattern.
func (c *Composer) checkNoUnexpectedAllows(_ context.Context) Check {
	const name = "unexpected allowed traffic"
	if c.PolicyPath == "" || c.LogPath == "" {
		return skipped(name, "policy or log not configured")
	}
	patterns, err := policy.ExtractFile(c.PolicyPath)
	if err != nil {
		return skipped(name, "policy unreadable")
	}
	records, err := accesslog.ReadFile(c.LogPath)
	if err != nil {
		return skipped(name, "access log unreadable")
	}
	if len(records) == 0 {
		return skipped(name, "no traffic observed yet")
	}

	rep := traffic.Aggregate(records, traffic.Filters{})
	var unexpected []string
	for _, ds := range rep.Domains {
		if ds.Allowed == 0 {
			continue
		}
		if _, ok := policy.Match(ds.Domain, patterns); !ok {
			unexpected = append(unexpected, ds.Domain)
		}
	}
	if len(unexpected) > 0 {
		return failed(name,
			fmt.Sprintf("%d domain(s) passed the proxy without an allowlist entry: %v", len(unexpected), unexpected),
			"review the proxy ACL ordering; traffic may be bypassing the allowlist")
	}
	return passed(name, "all allowed traffic matches the allowlist")
}

// proxyIP resolves the proxy container's network address, reporting ok=false
// when the proxy is not running or unaddressed.
func (c *Composer) proxyIP(ctx context.Context) (string, bool) {
	running, err := c.Runtime.ContainerRunning(ctx, c.ProxyContainer)
	if err != nil || !running {
		return "", false
	}
	ip, err := c.Runtime.ContainerIP(ctx, c.ProxyContainer, c.Network)
	if err != nil || ip == "" {
		return "", false
	}
	return ip, true
}

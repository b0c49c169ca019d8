// Package netprobe runs the two network probes the diagnostics battery
// needs: ICMP reachability of the proxy container and DNS resolution
// through a given resolver.
package netprobe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	probing "github.com/prometheus-community/pro-bing"
)

// Prober runs bounded, synchronous network probes.
type Prober struct {
	timeout time.Duration
}

// NewProber creates a prober. A non-positive timeout falls back to five
// seconds.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{timeout: timeout}
}

// Ping sends a single unprivileged ICMP probe to addr and returns the
// round-trip time.
func (p *Prober) Ping(ctx context.Context, addr string) (time.Duration, error) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return 0, fmt.Errorf("creating pinger: %w", err)
	}
	pinger.Count = 1
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return 0, fmt.Errorf("pinging %s: %w", addr, err)
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("no reply from %s within %s", addr, p.timeout)
	}
	return stats.AvgRtt, nil
}

// Resolve looks up the A records for domain against the given resolver
// address (host or host:port; port 53 is assumed when absent).
func (p *Prober) Resolve(ctx context.Context, domain, resolver string) ([]string, error) {
	if _, _, err := net.SplitHostPort(resolver); err != nil {
		resolver = net.JoinHostPort(resolver, "53")
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: p.timeout}
	resp, _, err := client.ExchangeContext(ctx, msg, resolver)
	if err != nil {
		return nil, fmt.Errorf("resolving %s via %s: %w", domain, resolver, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("resolving %s via %s: %s", domain, resolver, dns.RcodeToString[resp.Rcode])
	}

	var addrs []string
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A.String())
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no A records for %s", domain)
	}
	return addrs, nil
}

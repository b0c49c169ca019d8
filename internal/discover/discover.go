// Package discover finds log and policy sources at their well-known
// locations. Only the CLI layer uses it; the core packages take resolved
// paths and never go looking on their own.
package discover

import (
	"os"
	"path/filepath"
)

// logCandidates are the access log locations the firewall setups we audit
// are known to use, in preference order.
var logCandidates = []string{
	"/var/log/squid/access.log",
	"/var/log/squid3/access.log",
	"/usr/local/squid/var/logs/access.log",
}

// policyCandidates are the squid.conf locations, in preference order.
var policyCandidates = []string{
	"/etc/squid/squid.conf",
	"/etc/squid3/squid.conf",
	"/usr/local/squid/etc/squid.conf",
}

// Log returns the best access log source: the newest-modified existing
// candidate. ok is false when none exists.
func Log() (string, bool) {
	return newest(logCandidates)
}

// Policy returns the first existing policy file candidate.
func Policy() (string, bool) {
	return first(policyCandidates)
}

// LogUnder scans root-relative candidates, for setups where the firewall
// logs are bind-mounted somewhere else.
func LogUnder(root string) (string, bool) {
	paths := make([]string, len(logCandidates))
	for i, p := range logCandidates {
		paths[i] = filepath.Join(root, p)
	}
	return newest(paths)
}

func first(paths []string) (string, bool) {
	for _, p := range paths {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// newest picks the most recently modified existing path, so a live log wins
// over a stale leftover.
func newest(paths []string) (string, bool) {
	var best string
	var bestMod int64
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			continue
		}
		if mod := st.ModTime().UnixNano(); best == "" || mod > bestMod {
			best, bestMod = p, mod
		}
	}
	return best, best != ""
}

// Package verdict answers "is this domain allowed, and what is the
// evidence?" by combining static allowlist membership with observed traffic.
package verdict

import (
	"strings"

	"github.com/squidsight/squidsight/internal/accesslog"
	"github.com/squidsight/squidsight/internal/policy"
)

// Status is the synthesized conclusion for one domain.
type Status string

const (
	// StatusAllowed: allowlisted and the log confirms traffic got through.
	StatusAllowed Status = "ALLOWED"
	// StatusAllowedViaAllowlist: allowlisted but no traffic observed yet.
	StatusAllowedViaAllowlist Status = "ALLOWED_VIA_ALLOWLIST"
	// StatusAllowedUnexpected: traffic got through without an allowlist
	// entry. Worth investigating.
	StatusAllowedUnexpected Status = "ALLOWED_UNEXPECTED"
	// StatusBlocked: the proxy denied the most recent request.
	StatusBlocked Status = "BLOCKED"
	// StatusNotTested: not allowlisted and never seen in the log.
	StatusNotTested Status = "NOT_TESTED"
)

// LogStatus is the most recent log observation for the queried domain.
type LogStatus struct {
	Allowed    bool   `json:"allowed"`
	StatusCode int    `json:"status_code"`
	Decision   string `json:"decision"`
}

// Verdict is the full answer for one domain query. Suggestion is advisory
// text only; nothing here mutates policy.
type Verdict struct {
	Domain         string     `json:"domain"`
	InAllowlist    bool       `json:"in_allowlist"`
	MatchedPattern string     `json:"matched_pattern,omitempty"`
	LastLog        *LogStatus `json:"last_log,omitempty"`
	Status         Status     `json:"status"`
	Suggestion     string     `json:"suggestion,omitempty"`
}

// Evaluate computes a fresh verdict for domain against the extracted
// patterns and the log records in file order.
func Evaluate(domain string, patterns []string, records []accesslog.Record) Verdict {
	v := Verdict{Domain: domain}
	v.MatchedPattern, v.InAllowlist = policy.Match(domain, patterns)

	if rec, ok := LastObservation(domain, records); ok {
		v.LastLog = &LogStatus{
			Allowed:    rec.Allowed,
			StatusCode: rec.StatusCode,
			Decision:   rec.Decision,
		}
	}

	switch {
	case v.LastLog == nil && v.InAllowlist:
		v.Status = StatusAllowedViaAllowlist
	case v.LastLog == nil:
		v.Status = StatusNotTested
	case !v.LastLog.Allowed:
		v.Status = StatusBlocked
	case v.InAllowlist:
		v.Status = StatusAllowed
	default:
		v.Status = StatusAllowedUnexpected
	}

	if !v.InAllowlist {
		v.Suggestion = policy.SuggestArgs(patterns, domain)
	}
	return v
}

// LastObservation scans records in order and returns the last one whose
// domain contains the query as a substring. Containment, not equality, so a
// query for "github.com" also picks up "api.github.com". Records are taken
// in supplied order, not sorted by timestamp: on an unordered log this is
// the textually-last match.
func LastObservation(domain string, records []accesslog.Record) (accesslog.Record, bool) {
	var last accesslog.Record
	found := false
	for _, rec := range records {
		if rec.Domain == "" || rec.Domain == accesslog.UnknownHost {
			continue
		}
		if strings.Contains(rec.Domain, domain) {
			last = rec
			found = true
		}
	}
	return last, found
}

// Package traffic aggregates parsed access log records into per-domain
// allow/block statistics.
package traffic

import (
	"sort"
	"strings"

	"github.com/squidsight/squidsight/internal/accesslog"
)

// Filters narrows which records participate in aggregation. Zero values mean
// no filtering. Domain is substring containment against the derived domain —
// deliberately looser than allowlist matching, so free-text filters like
// "github" work.
type Filters struct {
	Domain      string
	BlockedOnly bool
	Since       float64 // inclusive lower timestamp bound, 0 = unbounded
	Until       float64 // inclusive upper timestamp bound, 0 = unbounded
	Top         int     // truncate the per-domain list after sorting, 0 = all
}

// DomainStats accumulates counts for one destination domain.
type DomainStats struct {
	Domain  string `json:"domain"`
	Allowed int    `json:"allowed"`
	Blocked int    `json:"blocked"`
	Total   int    `json:"total"`
}

// Summary holds totals across every included record. First and Last are the
// min/max timestamps of included records and are meaningful only when
// Total > 0.
type Summary struct {
	Total   int     `json:"total"`
	Allowed int     `json:"allowed"`
	Blocked int     `json:"blocked"`
	Tunnels int     `json:"tunnels"`
	First   float64 `json:"first_timestamp,omitempty"`
	Last    float64 `json:"last_timestamp,omitempty"`
}

// Report is the aggregation result: summary totals plus per-domain stats
// sorted by total count descending. Equal totals keep first-seen order.
type Report struct {
	Summary Summary       `json:"summary"`
	Domains []DomainStats `json:"domains"`
}

// Aggregate makes a single pass over records in input order. Records with an
// unknown domain are excluded from both the per-domain stats and the summary
// totals; they are not an error. Top-N truncation applies only to the domain
// list, never to the summary.
func Aggregate(records []accesslog.Record, f Filters) Report {
	byDomain := make(map[string]*DomainStats)
	var order []*DomainStats
	var sum Summary

	for _, rec := range records {
		if !included(rec, f) {
			continue
		}

		sum.Total++
		if rec.Allowed {
			sum.Allowed++
		} else {
			sum.Blocked++
		}
		if rec.Tunnel {
			sum.Tunnels++
		}
		if sum.Total == 1 || rec.Timestamp < sum.First {
			sum.First = rec.Timestamp
		}
		if rec.Timestamp > sum.Last {
			sum.Last = rec.Timestamp
		}

		ds, ok := byDomain[rec.Domain]
		if !ok {
			ds = &DomainStats{Domain: rec.Domain}
			byDomain[rec.Domain] = ds
			order = append(order, ds)
		}
		ds.Total++
		if rec.Allowed {
			ds.Allowed++
		} else {
			ds.Blocked++
		}
	}

	// Stable sort: ties keep first-seen order so identical inputs render
	// identically.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Total > order[j].Total
	})
	if f.Top > 0 && len(order) > f.Top {
		order = order[:f.Top]
	}

	domains := make([]DomainStats, len(order))
	for i, ds := range order {
		domains[i] = *ds
	}
	return Report{Summary: sum, Domains: domains}
}

func included(rec accesslog.Record, f Filters) bool {
	if rec.Domain == "" || rec.Domain == accesslog.UnknownHost {
		return false
	}
	if f.Domain != "" && !strings.Contains(rec.Domain, f.Domain) {
		return false
	}
	if f.BlockedOnly && rec.Allowed {
		return false
	}
	if f.Since != 0 && rec.Timestamp < f.Since {
		return false
	}
	if f.Until != 0 && rec.Timestamp > f.Until {
		return false
	}
	return true
}

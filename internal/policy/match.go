package policy

import (
	"strings"

	"github.com/squidsight/squidsight/internal/accesslog"
)

// Match returns the first pattern in declaration order that covers domain.
// There is no specificity ranking: a later, narrower pattern never overrides
// an earlier broader one, so matching stays a single linear scan. The second
// return value is false when nothing matches.
func Match(domain string, patterns []string) (string, bool) {
	if domain == "" || domain == accesslog.UnknownHost {
		return "", false
	}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if matchesPattern(domain, p) {
			return p, true
		}
	}
	return "", false
}

// matchesPattern applies Squid dstdomain semantics for one pattern:
//
//   - exact equality always matches
//   - ".example.com" matches api.example.com and bare example.com
//   - "example.com" matches example.com and any proper subdomain
func matchesPattern(domain, pattern string) bool {
	if domain == pattern {
		return true
	}
	if strings.HasPrefix(pattern, ".") {
		// The dot-stripped suffix check lets the bare domain through:
		// ".example.com" covers example.com itself, not just subdomains.
		return strings.HasSuffix(domain, pattern) ||
			strings.HasSuffix(domain, strings.TrimPrefix(pattern, "."))
	}
	return strings.HasSuffix(domain, "."+pattern)
}

// SuggestArgs builds the advisory pattern list a user would pass to re-run
// the firewall setup with domain added. It never touches the policy itself.
func SuggestArgs(patterns []string, domain string) string {
	args := make([]string, 0, len(patterns)+1)
	args = append(args, patterns...)
	args = append(args, domain)
	return strings.Join(args, " ")
}

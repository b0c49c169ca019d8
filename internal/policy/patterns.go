// Package policy extracts allowlist domain patterns from a Squid
// configuration and matches destination domains against them.
package policy

import (
	"bufio"
	"os"
	"strings"
)

const (
	aclKeyword   = "acl"
	aclName      = "allowed_domains"
	aclDirective = "dstdomain"

	// accessKeyword ends a multi-line pattern block: once http_access rules
	// start, the allowlist declaration is over.
	accessKeyword = "http_access"
)

// ExtractPatterns scans Squid configuration text for the allowed-domains ACL
// and returns its patterns in declaration order. A pattern is either an exact
// domain ("example.com") or a suffix wildcard (".example.com") covering the
// domain and its subdomains. Continuation lines are part of the declaration
// until another acl or an http_access directive starts. Quoted tokens
// reference external pattern files and are skipped; resolving them is the
// caller's problem, not ours.
func ExtractPatterns(configText string) []string {
	var patterns []string
	inside := false

	sc := bufio.NewScanner(strings.NewReader(configText))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch {
		case fields[0] == aclKeyword:
			inside = false
			if len(fields) >= 3 && fields[1] == aclName && fields[2] == aclDirective {
				patterns = append(patterns, patternTokens(fields[3:])...)
				inside = true
			}
		case fields[0] == accessKeyword:
			inside = false
		case inside:
			patterns = append(patterns, patternTokens(fields)...)
		}
	}
	return patterns
}

// ExtractFile reads a configuration file and extracts its patterns.
func ExtractFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ExtractPatterns(string(data)), nil
}

// patternTokens filters a token list down to literal patterns: quoted file
// references and empty tokens contribute nothing.
func patternTokens(fields []string) []string {
	var out []string
	for _, tok := range fields {
		if tok == "" || strings.HasPrefix(tok, `"`) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

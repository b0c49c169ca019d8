// Package accesslog parses Squid access log lines into structured request
// records. The proxy is configured with a fixed logformat; anything that does
// not match it exactly is skipped rather than surfaced as a partial record.
package accesslog

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	// DeniedMarker is the substring of a decision token that marks a request
	// the proxy refused (TCP_DENIED, TCP_DENIED_REPLY, ...). Decision tokens
	// carry a routing-hierarchy suffix, so this is a substring test.
	DeniedMarker = "DENIED"

	// UnknownHost is the placeholder Squid logs when it never learned a
	// hostname for the request (common for raw-IP tunnels).
	UnknownHost = "-"
)

// Record is one parsed access log line.
type Record struct {
	Timestamp  float64 `json:"timestamp"`
	ClientIP   string  `json:"client_ip"`
	ClientPort int     `json:"client_port"`
	Host       string  `json:"host"`
	HostPort   int     `json:"host_port,omitempty"`
	DestIP     string  `json:"dest_ip"`
	DestPort   int     `json:"dest_port,omitempty"`
	Protocol   string  `json:"protocol"`
	Method     string  `json:"method"`
	StatusCode int     `json:"status_code"`
	Decision   string  `json:"decision"`
	URL        string  `json:"url"`
	UserAgent  string  `json:"user_agent"`

	// Derived fields.
	Domain  string `json:"domain"`
	Allowed bool   `json:"allowed"`
	Tunnel  bool   `json:"tunnel"`
}

// ParseLine parses a single access log line. The expected layout is
//
//	<ts> <client:port> <host:port> <dest:port> <proto> <method> <status> <decision:hier> <url> "<user-agent>"
//
// The second return value is false for any line that does not match; no
// partial records are produced.
func ParseLine(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Record{}, false
	}

	// The user-agent is the only quoted field and always comes last.
	if !strings.HasSuffix(line, `"`) {
		return Record{}, false
	}
	open := strings.Index(line, `"`)
	if open < 0 || open == len(line)-1 {
		return Record{}, false
	}
	ua := line[open+1 : len(line)-1]

	fields := strings.Fields(strings.TrimSpace(line[:open]))
	if len(fields) != 9 {
		return Record{}, false
	}

	ts, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Record{}, false
	}

	clientIP, clientPort, ok := splitHostPort(fields[1])
	if !ok {
		return Record{}, false
	}
	host, hostPort := splitLenient(fields[2])
	destIP, destPort := splitLenient(fields[3])

	status, err := strconv.Atoi(fields[6])
	if err != nil {
		return Record{}, false
	}
	if !strings.Contains(fields[7], ":") {
		return Record{}, false
	}

	rec := Record{
		Timestamp:  ts,
		ClientIP:   clientIP,
		ClientPort: clientPort,
		Host:       host,
		HostPort:   hostPort,
		DestIP:     destIP,
		DestPort:   destPort,
		Protocol:   fields[4],
		Method:     fields[5],
		StatusCode: status,
		Decision:   fields[7],
		URL:        fields[8],
		UserAgent:  ua,
	}
	rec.Domain = deriveDomain(rec.Host, rec.URL)
	rec.Allowed = !strings.Contains(rec.Decision, DeniedMarker)
	rec.Tunnel = rec.Method == "CONNECT"
	return rec, true
}

// Parse reads every line from r and returns the records that parsed.
// Malformed lines are dropped silently.
func Parse(r io.Reader) []Record {
	var records []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if rec, ok := ParseLine(sc.Text()); ok {
			records = append(records, rec)
		}
	}
	return records
}

// ParseAll parses a slice of raw lines in order.
func ParseAll(lines []string) []Record {
	var records []Record
	for _, line := range lines {
		if rec, ok := ParseLine(line); ok {
			records = append(records, rec)
		}
	}
	return records
}

// ReadFile parses an access log from disk. A missing file is an error for
// the caller to map to its exit convention; parse failures are not.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f), nil
}

// splitHostPort splits "addr:port" and requires a numeric port.
func splitHostPort(s string) (string, int, bool) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return "", 0, false
	}
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, false
	}
	return s[:i], port, true
}

// splitLenient strips an optional ":port" suffix, tolerating the "-"
// placeholder for either half.
func splitLenient(s string) (string, int) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return s, 0
	}
	return s[:i], port
}

// deriveDomain picks the best-known destination name for a record. The host
// field wins when the proxy resolved one; otherwise a bare hostname is
// scraped from the URL. UnknownHost means no name could be recovered and the
// record must be excluded from per-domain statistics.
func deriveDomain(host, url string) string {
	if host != "" && host != UnknownHost {
		return host
	}
	if d := hostFromURL(url); d != "" && d != UnknownHost {
		return d
	}
	return UnknownHost
}

// hostFromURL scrapes a hostname out of a URL-ish field: strip any scheme,
// then take everything up to the first ':', '/', or whitespace.
func hostFromURL(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		url = url[i+3:]
	}
	if i := strings.IndexAny(url, ":/ \t"); i >= 0 {
		url = url[:i]
	}
	return url
}

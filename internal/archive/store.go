// Package archive persists parsed access log records in a local SQLite
// database so traffic can be queried after logs rotate away.
package archive

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/squidsight/squidsight/internal/accesslog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS request_log (
	id TEXT PRIMARY KEY,
	timestamp REAL NOT NULL,
	client_ip TEXT NOT NULL,
	client_port INTEGER,
	domain TEXT NOT NULL,
	dest_ip TEXT,
	dest_port INTEGER,
	protocol TEXT,
	method TEXT,
	status_code INTEGER,
	decision TEXT NOT NULL,
	url TEXT,
	allowed INTEGER NOT NULL,
	tunnel INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_request_domain ON request_log(domain);
CREATE INDEX IF NOT EXISTS idx_request_timestamp ON request_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_request_allowed ON request_log(allowed);
`

// Store manages the SQLite record archive.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the SQLite archive database.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("setting WAL mode: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("creating schema: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Ingest writes a batch of records in one transaction and returns the number
// stored. Ingest is one-shot and synchronous; there is no write queue.
func (s *Store) Ingest(records []accesslog.Record) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning ingest: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO request_log
		(id, timestamp, client_ip, client_port, domain, dest_ip, dest_port, protocol, method, status_code, decision, url, allowed, tunnel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	n := 0
	for _, rec := range records {
		_, err := stmt.Exec(uuid.NewString(), rec.Timestamp, rec.ClientIP, rec.ClientPort,
			rec.Domain, rec.DestIP, rec.DestPort, rec.Protocol, rec.Method,
			rec.StatusCode, rec.Decision, rec.URL, boolInt(rec.Allowed), boolInt(rec.Tunnel))
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("inserting record: %w", err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing ingest: %w", err)
	}
	s.logger.Info("archived records", "count", n)
	return n, nil
}

// QueryOpts filters archive queries. Zero values mean no filtering.
type QueryOpts struct {
	Domain      string  // substring match on the derived domain
	BlockedOnly bool
	Since       float64 // inclusive lower timestamp bound
	Limit       int     // default 50
}

// Entry is one archived record.
type Entry struct {
	ID         string  `json:"id"`
	Timestamp  float64 `json:"timestamp"`
	ClientIP   string  `json:"client_ip"`
	Domain     string  `json:"domain"`
	Method     string  `json:"method"`
	StatusCode int     `json:"status_code"`
	Decision   string  `json:"decision"`
	Allowed    bool    `json:"allowed"`
	Tunnel     bool    `json:"tunnel"`
}

// Query returns archived records matching the given filters, newest first.
func (s *Store) Query(opts QueryOpts) ([]Entry, error) {
	query := "SELECT id, timestamp, client_ip, domain, method, status_code, decision, allowed, tunnel FROM request_log WHERE 1=1"
	var args []any

	if opts.Domain != "" {
		query += " AND domain LIKE ?"
		args = append(args, "%"+opts.Domain+"%")
	}
	if opts.BlockedOnly {
		query += " AND allowed = 0"
	}
	if opts.Since != 0 {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	} else {
		query += " LIMIT 50"
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var allowed, tunnel int
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ClientIP, &e.Domain, &e.Method,
			&e.StatusCode, &e.Decision, &allowed, &tunnel); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.Allowed = allowed != 0
		e.Tunnel = tunnel != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of archived records.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM request_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting archive: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

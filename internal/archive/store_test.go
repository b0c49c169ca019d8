package archive

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/squidsight/squidsight/internal/accesslog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := NewStore(dbPath, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecords() []accesslog.Record {
	return []accesslog.Record{
		{Timestamp: 100, ClientIP: "172.30.0.10", Domain: "api.github.com", Method: "CONNECT",
			StatusCode: 200, Decision: "TCP_TUNNEL:HIER_DIRECT", Allowed: true, Tunnel: true},
		{Timestamp: 200, ClientIP: "172.30.0.10", Domain: "pypi.org", Method: "CONNECT",
			StatusCode: 403, Decision: "TCP_DENIED:HIER_NONE", Allowed: false},
		{Timestamp: 300, ClientIP: "172.30.0.11", Domain: "github.com", Method: "GET",
			StatusCode: 200, Decision: "TCP_MISS:HIER_DIRECT", Allowed: true},
	}
}

func TestIngestAndCount(t *testing.T) {
	store := newTestStore(t)

	n, err := store.Ingest(sampleRecords())
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("ingested = %d, want 3", n)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestQuery_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Ingest(sampleRecords()); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Query(QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Timestamp != 300 {
		t.Errorf("first entry timestamp = %v, want 300", entries[0].Timestamp)
	}
	if entries[0].ID == "" {
		t.Error("entry should have an id")
	}
}

func TestQuery_DomainSubstring(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Ingest(sampleRecords()); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Query(QueryOpts{Domain: "github"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Domain != "github.com" && e.Domain != "api.github.com" {
			t.Errorf("unexpected domain %q", e.Domain)
		}
	}
}

func TestQuery_BlockedOnly(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Ingest(sampleRecords()); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Query(QueryOpts{BlockedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Domain != "pypi.org" {
		t.Errorf("domain = %q, want pypi.org", entries[0].Domain)
	}
	if entries[0].Allowed {
		t.Error("blocked entry should have Allowed=false")
	}
}

func TestQuery_SinceAndLimit(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Ingest(sampleRecords()); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Query(QueryOpts{Since: 200})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("since filter: got %d entries, want 2", len(entries))
	}

	entries, err = store.Query(QueryOpts{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("limit: got %d entries, want 1", len(entries))
	}
	if entries[0].Timestamp != 300 {
		t.Errorf("limited query should keep newest, got %v", entries[0].Timestamp)
	}
}

func TestIngest_Empty(t *testing.T) {
	store := newTestStore(t)
	n, err := store.Ingest(nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("ingested = %d, want 0", n)
	}
}

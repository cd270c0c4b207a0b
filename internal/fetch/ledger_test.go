package fetch_test

import (
	"context"
	"testing"
	"time"

	"recap/internal/fetch"
)

func newTestLedger(t *testing.T) *fetch.Ledger {
	t.Helper()
	ledger, err := fetch.OpenLedger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLedger failed: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestLedgerRoundTrip(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	entry := fetch.Entry{
		Key:       "dQw4w9WgXcQ",
		Source:    "https://youtu.be/dQw4w9WgXcQ",
		Title:     "dQw4w9WgXcQ",
		Path:      "/cache/dQw4w9WgXcQ.m4a",
		SizeBytes: 2048,
	}
	if err := ledger.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := ledger.Lookup(ctx, entry.Key)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry, got nil")
	}
	if got.Source != entry.Source || got.Path != entry.Path || got.SizeBytes != entry.SizeBytes {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.LastAccess.IsZero() {
		t.Fatalf("expected timestamps, got %+v", got)
	}
}

func TestLedgerLookupMissing(t *testing.T) {
	ledger := newTestLedger(t)
	got, err := ledger.Lookup(context.Background(), "missing-key")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}
}

func TestLedgerLastWriteWins(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	first := fetch.Entry{Key: "abc", Source: "https://example.com/a", Path: "/cache/abc.m4a", SizeBytes: 10}
	second := fetch.Entry{Key: "abc", Source: "https://example.com/a", Path: "/cache/abc.webm", SizeBytes: 20}
	if err := ledger.Record(ctx, first); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	if err := ledger.Record(ctx, second); err != nil {
		t.Fatalf("second Record failed: %v", err)
	}

	got, err := ledger.Lookup(ctx, "abc")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.Path != second.Path || got.SizeBytes != second.SizeBytes {
		t.Fatalf("expected last write to win, got %+v", got)
	}

	count, bytes, err := ledger.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if count != 1 || bytes != 20 {
		t.Fatalf("unexpected stats: count=%d bytes=%d", count, bytes)
	}
}

func TestLedgerTouchAndEntries(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Record(ctx, fetch.Entry{Key: "old", Source: "s1", Path: "/cache/old.m4a", SizeBytes: 1}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := ledger.Record(ctx, fetch.Entry{Key: "new", Source: "s2", Path: "/cache/new.m4a", SizeBytes: 2}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := ledger.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "new" {
		t.Fatalf("expected most recent first, got %+v", entries)
	}

	before, err := ledger.Lookup(ctx, "old")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := ledger.Touch(ctx, "old"); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	after, err := ledger.Lookup(ctx, "old")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !after.LastAccess.After(before.LastAccess) {
		t.Fatalf("expected Touch to advance last access: %v then %v", before.LastAccess, after.LastAccess)
	}

	entries, err = ledger.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if entries[0].Key != "old" {
		t.Fatalf("expected touched entry first, got %+v", entries)
	}
}

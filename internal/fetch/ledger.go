package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Ledger records what the media cache directory holds, backed by SQLite so
// entries survive daemon restarts. It is an index over the cache, not the
// cache itself; a missing ledger row only costs a re-download.
type Ledger struct {
	db   *sql.DB
	path string
}

// Entry describes one cached download.
type Entry struct {
	Key        string
	Source     string
	Title      string
	Path       string
	SizeBytes  int64
	CreatedAt  time.Time
	LastAccess time.Time
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS media_cache (
    key TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    title TEXT,
    path TEXT NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    last_access TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_media_cache_last_access ON media_cache(last_access);
`

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// OpenLedger initializes or connects to the cache ledger under dir.
func OpenLedger(dir string) (*Ledger, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("ledger directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, "cache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	return &Ledger{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Lookup returns the entry for key, or nil when the ledger has none.
func (l *Ledger) Lookup(ctx context.Context, key string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT key, source, title, path, size_bytes, created_at, last_access FROM media_cache WHERE key = ?`,
		key,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup cache entry: %w", err)
	}
	return entry, nil
}

// Record upserts an entry. Concurrent writers for one key may race; the last
// write wins because the key is derived deterministically from content
// identity.
func (l *Ledger) Record(ctx context.Context, entry Entry) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return l.execWithRetry(ctx,
		`INSERT INTO media_cache (key, source, title, path, size_bytes, created_at, last_access)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET
             source = excluded.source,
             title = excluded.title,
             path = excluded.path,
             size_bytes = excluded.size_bytes,
             last_access = excluded.last_access`,
		entry.Key,
		entry.Source,
		nullableString(entry.Title),
		entry.Path,
		entry.SizeBytes,
		now,
		now,
	)
}

// Touch refreshes an entry's last access timestamp.
func (l *Ledger) Touch(ctx context.Context, key string) error {
	return l.execWithRetry(ctx,
		`UPDATE media_cache SET last_access = ? WHERE key = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		key,
	)
}

// Remove drops an entry from the ledger.
func (l *Ledger) Remove(ctx context.Context, key string) error {
	return l.execWithRetry(ctx, `DELETE FROM media_cache WHERE key = ?`, key)
}

// Entries lists everything the ledger knows, most recently used first.
func (l *Ledger) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT key, source, title, path, size_bytes, created_at, last_access FROM media_cache ORDER BY last_access DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Stats reports how many downloads the cache holds and their combined size.
func (l *Ledger) Stats(ctx context.Context) (int, int64, error) {
	var (
		count int
		bytes sql.NullInt64
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(size_bytes), 0) FROM media_cache`,
	).Scan(&count, &bytes)
	if err != nil {
		return 0, 0, fmt.Errorf("cache stats: %w", err)
	}
	return count, bytes.Int64, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		key        string
		source     string
		title      sql.NullString
		path       string
		sizeBytes  sql.NullInt64
		createdRaw sql.NullString
		accessRaw  sql.NullString
	)
	if err := scanner.Scan(&key, &source, &title, &path, &sizeBytes, &createdRaw, &accessRaw); err != nil {
		return nil, err
	}
	entry := &Entry{
		Key:       key,
		Source:    source,
		Title:     title.String,
		Path:      path,
		SizeBytes: sizeBytes.Int64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if access, err := parseTimeString(accessRaw.String); err == nil {
		entry.LastAccess = access
	}
	return entry, nil
}

func (l *Ledger) execWithRetry(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = l.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

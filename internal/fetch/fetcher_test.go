package fetch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recap/internal/fetch"
	"recap/internal/services"
)

// fakeDownloader mimics the tool contract: it writes a file derived from the
// output template, substituting its own extension.
type fakeDownloader struct {
	ext     string
	payload []byte
	err     error
	calls   int
	argv    []string
}

func (d *fakeDownloader) run(ctx context.Context, name string, args ...string) (string, error) {
	d.calls++
	d.argv = args
	if d.err != nil {
		return "", d.err
	}
	template := ""
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			template = args[i+1]
		}
	}
	if template == "" {
		return "", errors.New("no output template")
	}
	dest := strings.Replace(template, "%(ext)s", d.ext, 1)
	if err := os.WriteFile(dest, d.payload, 0o644); err != nil {
		return "", err
	}
	return "download ok", nil
}

func newTestFetcher(t *testing.T, downloader *fakeDownloader) (*fetch.Fetcher, *fetch.Ledger, string) {
	t.Helper()
	dir := t.TempDir()
	ledger, err := fetch.OpenLedger(dir)
	if err != nil {
		t.Fatalf("OpenLedger failed: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	fetcher := fetch.New(fetch.Options{Downloader: "yt-dlp", CacheDir: dir, Timeout: 30 * time.Second}, ledger)
	fetcher.WithCommandRunner(downloader.run)
	return fetcher, ledger, dir
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	downloader := &fakeDownloader{ext: "m4a", payload: []byte("audio-bytes")}
	fetcher, ledger, dir := newTestFetcher(t, downloader)
	ctx := context.Background()

	const ref = "https://youtu.be/dQw4w9WgXcQ"
	path, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if path != filepath.Join(dir, "dQw4w9WgXcQ.m4a") {
		t.Fatalf("unexpected path: %q", path)
	}
	if downloader.calls != 1 {
		t.Fatalf("expected one download, got %d", downloader.calls)
	}
	joined := strings.Join(downloader.argv, " ")
	if !strings.Contains(joined, "--no-playlist") || !strings.Contains(joined, "-f bestaudio/best") {
		t.Fatalf("unexpected downloader args: %v", downloader.argv)
	}
	if downloader.argv[len(downloader.argv)-1] != ref {
		t.Fatalf("expected reference as final arg, got %v", downloader.argv)
	}

	entry, err := ledger.Lookup(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry == nil || entry.Path != path || entry.SizeBytes != int64(len(downloader.payload)) {
		t.Fatalf("unexpected ledger entry: %+v", entry)
	}

	// Second fetch must come from the cache without touching the network.
	again, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		t.Fatalf("cached Fetch failed: %v", err)
	}
	if again != path {
		t.Fatalf("expected cached path %q, got %q", path, again)
	}
	if downloader.calls != 1 {
		t.Fatalf("expected cache hit to skip the downloader, got %d calls", downloader.calls)
	}
}

func TestFetchResolvesRewrittenSuffix(t *testing.T) {
	downloader := &fakeDownloader{ext: "webm", payload: []byte("opus-bytes")}
	fetcher, _, dir := newTestFetcher(t, downloader)

	path, err := fetcher.Fetch(context.Background(), "https://youtu.be/AAAAAAAAAAA")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if path != filepath.Join(dir, "AAAAAAAAAAA.webm") {
		t.Fatalf("expected rewritten suffix to be resolved, got %q", path)
	}
}

func TestFetchStaleLedgerEntryRedownloads(t *testing.T) {
	downloader := &fakeDownloader{ext: "m4a", payload: []byte("audio-bytes")}
	fetcher, _, _ := newTestFetcher(t, downloader)
	ctx := context.Background()

	const ref = "https://youtu.be/BBBBBBBBBBB"
	path, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove cached file: %v", err)
	}

	again, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		t.Fatalf("re-fetch failed: %v", err)
	}
	if downloader.calls != 2 {
		t.Fatalf("expected stale entry to trigger re-download, got %d calls", downloader.calls)
	}
	if _, err := os.Stat(again); err != nil {
		t.Fatalf("expected re-downloaded file: %v", err)
	}
}

func TestFetchToolFailure(t *testing.T) {
	downloader := &fakeDownloader{err: errors.New("network unreachable")}
	fetcher, ledger, _ := newTestFetcher(t, downloader)
	ctx := context.Background()

	_, err := fetcher.Fetch(ctx, "https://youtu.be/CCCCCCCCCCC")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	entry, lookupErr := ledger.Lookup(ctx, "CCCCCCCCCCC")
	if lookupErr != nil {
		t.Fatalf("Lookup failed: %v", lookupErr)
	}
	if entry != nil {
		t.Fatalf("expected no ledger entry after failure, got %+v", entry)
	}
}

func TestFetchEmptyDownloadRejected(t *testing.T) {
	downloader := &fakeDownloader{ext: "m4a", payload: nil}
	fetcher, _, dir := newTestFetcher(t, downloader)

	_, err := fetcher.Fetch(context.Background(), "https://youtu.be/DDDDDDDDDDD")
	if err == nil {
		t.Fatal("expected error for empty download")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "DDDDDDDDDDD.m4a")); !os.IsNotExist(statErr) {
		t.Fatalf("expected empty file to be removed, got %v", statErr)
	}
}

func TestFetchTimeout(t *testing.T) {
	dir := t.TempDir()
	fetcher := fetch.New(fetch.Options{CacheDir: dir, Timeout: 20 * time.Millisecond}, nil)
	fetcher.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := fetcher.Fetch(context.Background(), "https://youtu.be/EEEEEEEEEEE")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestFetchEmptyReference(t *testing.T) {
	fetcher := fetch.New(fetch.Options{CacheDir: t.TempDir()}, nil)
	_, err := fetcher.Fetch(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected error for empty reference")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestPruneDropsStaleRows(t *testing.T) {
	downloader := &fakeDownloader{ext: "m4a", payload: []byte("audio-bytes")}
	fetcher, ledger, _ := newTestFetcher(t, downloader)
	ctx := context.Background()

	keepPath, err := fetcher.Fetch(ctx, "https://youtu.be/FFFFFFFFFFF")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	stalePath, err := fetcher.Fetch(ctx, "https://youtu.be/GGGGGGGGGGG")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if err := os.Remove(stalePath); err != nil {
		t.Fatalf("remove cached file: %v", err)
	}

	removed, err := fetcher.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 stale row removed, got %d", removed)
	}

	kept, err := ledger.Lookup(ctx, "FFFFFFFFFFF")
	if err != nil || kept == nil {
		t.Fatalf("expected surviving entry, got %+v err=%v", kept, err)
	}
	if kept.Path != keepPath {
		t.Fatalf("unexpected surviving path %q", kept.Path)
	}
	gone, err := ledger.Lookup(ctx, "GGGGGGGGGGG")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected stale entry to be dropped, got %+v", gone)
	}
}

func TestPruneWithoutLedger(t *testing.T) {
	fetcher := fetch.New(fetch.Options{CacheDir: t.TempDir()}, nil)
	removed, err := fetcher.Prune(context.Background())
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op without ledger, got removed=%d err=%v", removed, err)
	}
}

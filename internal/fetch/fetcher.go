package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"recap/internal/logging"
	"recap/internal/services"
)

const defaultFetchTimeout = 10 * time.Minute

// Options configures remote media retrieval.
type Options struct {
	Downloader string
	CacheDir   string
	Timeout    time.Duration
}

// Fetcher downloads remote media into the key-addressed cache directory. A
// nil ledger disables cache bookkeeping; every fetch then hits the network.
type Fetcher struct {
	opts   Options
	ledger *Ledger
	logger *slog.Logger
	runner func(ctx context.Context, name string, args ...string) (string, error)
}

// New creates a Fetcher with the provided options.
func New(opts Options, ledger *Ledger) *Fetcher {
	if strings.TrimSpace(opts.Downloader) == "" {
		opts.Downloader = "yt-dlp"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	return &Fetcher{opts: opts, ledger: ledger, logger: logging.NewNop()}
}

// SetLogger attaches a component logger.
func (f *Fetcher) SetLogger(logger *slog.Logger) {
	f.logger = logging.NewComponentLogger(logger, "fetcher")
}

// WithCommandRunner sets a custom command runner (for testing).
func (f *Fetcher) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	f.runner = runner
}

// Fetch resolves a remote reference to a local file. Cache lookups precede
// network fetches: a ledger hit whose file still exists returns immediately
// without invoking the downloader. The tool may rewrite the output suffix, so
// the produced file is resolved by key rather than by the requested name.
func (f *Fetcher) Fetch(ctx context.Context, reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return "", services.Wrap(services.ErrValidation, "fetcher", "fetch", "empty media reference", nil)
	}
	key := CacheKey(ref)

	if cached := f.cachedPath(ctx, key); cached != "" {
		f.logger.Debug("cache hit",
			logging.String("key", key),
			logging.String("path", cached),
		)
		return cached, nil
	}

	if err := os.MkdirAll(f.opts.CacheDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "fetcher", "fetch", "cache directory unavailable", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	started := time.Now()
	template := filepath.Join(f.opts.CacheDir, key+".%(ext)s")
	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "bestaudio/best",
		"-o", template,
		"--", ref,
	}
	output, runErr := f.run(runCtx, f.opts.Downloader, args...)
	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "fetcher", "fetch",
				fmt.Sprintf("download exceeded %s", f.opts.Timeout), runErr)
		}
		return "", services.Wrap(services.ErrExternalTool, "fetcher", "fetch", "downloader failed", runErr)
	}

	produced, err := resolveProduced(f.opts.CacheDir, key)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "fetcher", "fetch", "downloader produced no output", err)
	}
	info, statErr := os.Stat(produced)
	if statErr != nil || info.Size() == 0 {
		os.Remove(produced)
		return "", services.Wrap(services.ErrExternalTool, "fetcher", "fetch", "downloaded file is empty", statErr)
	}

	if f.ledger != nil {
		entry := Entry{
			Key:       key,
			Source:    ref,
			Title:     TitleFromReference(ref),
			Path:      produced,
			SizeBytes: info.Size(),
		}
		if err := f.ledger.Record(ctx, entry); err != nil {
			f.logger.Warn("cache ledger update failed",
				logging.String("key", key),
				logging.Error(err),
			)
		}
	}

	f.logger.Info("fetched media",
		logging.String("key", key),
		logging.String("path", produced),
		logging.Int64("bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("tool_output", strings.TrimSpace(output)),
	)
	return produced, nil
}

// Prune drops ledger rows whose cached files disappeared or shrank to zero
// bytes, typically after the cache directory was cleaned out-of-band. Only the
// index is touched; files are never deleted here. Returns the number of rows
// removed.
func (f *Fetcher) Prune(ctx context.Context) (int, error) {
	if f.ledger == nil {
		return 0, nil
	}
	entries, err := f.ledger.Entries(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "fetcher", "prune", "list cache entries", err)
	}
	removed := 0
	for _, entry := range entries {
		info, statErr := os.Stat(entry.Path)
		if statErr == nil && info.Size() > 0 {
			continue
		}
		if err := f.ledger.Remove(ctx, entry.Key); err != nil {
			f.logger.Warn("cache prune failed",
				logging.String("key", entry.Key),
				logging.Error(err),
			)
			continue
		}
		removed++
	}
	return removed, nil
}

// cachedPath returns the usable on-disk path for key, or empty when the cache
// cannot serve it. A ledger row pointing at a missing or empty file is stale;
// the caller re-downloads and the subsequent record overwrites the row.
func (f *Fetcher) cachedPath(ctx context.Context, key string) string {
	if f.ledger == nil {
		return ""
	}
	entry, err := f.ledger.Lookup(ctx, key)
	if err != nil {
		f.logger.Warn("cache lookup failed", logging.String("key", key), logging.Error(err))
		return ""
	}
	if entry == nil {
		return ""
	}
	info, err := os.Stat(entry.Path)
	if err != nil || info.Size() == 0 {
		f.logger.Debug("cache entry is stale",
			logging.String("key", key),
			logging.String("path", entry.Path),
		)
		return ""
	}
	if err := f.ledger.Touch(ctx, key); err != nil {
		f.logger.Warn("cache touch failed", logging.String("key", key), logging.Error(err))
	}
	return entry.Path
}

// resolveProduced locates the file the downloader wrote for key. The tool
// substitutes its own extension into the output template, so the result is
// found by prefix, skipping partial-download droppings.
func resolveProduced(dir, key string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, key+".*"))
	if err != nil {
		return "", err
	}
	var (
		best     string
		bestTime time.Time
	)
	for _, match := range matches {
		switch strings.ToLower(filepath.Ext(match)) {
		case ".part", ".ytdl", ".tmp":
			continue
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = match
			bestTime = info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no file matching %s.* in %s", key, dir)
	}
	return best, nil
}

func (f *Fetcher) run(ctx context.Context, name string, args ...string) (string, error) {
	if f.runner != nil {
		return f.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"recap/internal/config"
	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/summarize"
)

const defaultSettle = 5 * time.Second

// Submitter accepts a media source for processing. Both the daemon and the
// pipeline orchestrator satisfy it.
type Submitter interface {
	Submit(source string, opts summarize.Options) (jobs.Job, error)
}

// Config describes the drop folder and its stability window.
type Config struct {
	Dir        string
	Settle     time.Duration
	Extensions []string
}

// Watcher turns settled drop-folder files into pipeline submissions.
type Watcher struct {
	dir        string
	settle     time.Duration
	extensions map[string]struct{}
	submitter  Submitter
	logger     *slog.Logger

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New constructs a watcher. An empty extension list accepts every file.
func New(cfg Config, submitter Submitter, logger *slog.Logger) (*Watcher, error) {
	if submitter == nil {
		return nil, errors.New("watcher requires a submitter")
	}
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, errors.New("watcher requires a directory")
	}

	settle := cfg.Settle
	if settle <= 0 {
		settle = defaultSettle
	}

	extensions := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = struct{}{}
	}

	return &Watcher{
		dir:        dir,
		settle:     settle,
		extensions: extensions,
		submitter:  submitter,
		logger:     logging.NewComponentLogger(logger, "watch"),
		pending:    make(map[string]*time.Timer),
	}, nil
}

// FromConfig builds a watcher from daemon configuration. The media extension
// allowlist doubles as the drop-folder filter so partial downloads and editor
// droppings never reach the pipeline.
func FromConfig(cfg *config.Config, submitter Submitter, logger *slog.Logger) (*Watcher, error) {
	return New(Config{
		Dir:        cfg.Watch.Dir,
		Settle:     time.Duration(cfg.Watch.SettleSeconds) * time.Second,
		Extensions: cfg.Validation.Extensions,
	}, submitter, logger)
}

// Start begins watching. It sweeps files already in the directory, then
// spawns the event loop; both stop when ctx is canceled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.fsw = fsw

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.sweep(runCtx)

	w.wg.Add(1)
	go w.run(runCtx)

	w.logger.Info("watch folder active",
		logging.String("dir", w.dir),
		logging.Duration("settle", w.settle))
	return nil
}

// Close stops event delivery and cancels pending settle timers.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.observe(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

// sweep arms settle timers for files that predate the watcher.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("scan watch directory", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.observe(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

// observe arms or resets the settle timer for a candidate file. The timer only
// fires once no event has touched the file for the settle window.
func (w *Watcher) observe(ctx context.Context, path string) {
	if !w.eligible(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.settled(ctx, path)
	})
}

func (w *Watcher) settled(ctx context.Context, path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return
	}

	job, err := w.submitter.Submit(path, summarize.Options{})
	if err != nil {
		w.logger.Warn("watch submit failed",
			logging.String("path", path),
			logging.Error(err))
		return
	}
	w.logger.Info("watched file submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", path))
}

// eligible filters out dotfiles and anything whose extension is not in the
// allowlist. Partial downloads (.part and friends) fail the extension check.
func (w *Watcher) eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}

package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"recap/internal/api"
	"recap/internal/config"
	"recap/internal/deps"
	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/notifications"
	"recap/internal/pipeline"
	"recap/internal/preflight"
	"recap/internal/summarize"
)

// stopTimeout bounds how long Stop waits for in-flight jobs to drain.
const stopTimeout = 10 * time.Second

// TranscriptionHealth exposes the transcription chain state used by health
// reporting.
type TranscriptionHealth interface {
	Engines() []string
	Healthy(ctx context.Context) bool
}

// SummarizerHealth exposes the summarizer state used by health reporting.
type SummarizerHealth interface {
	LLMEnabled() bool
	ProbeLLM(ctx context.Context) error
}

// Components bundles the collaborators the daemon coordinates. Registry and
// Pipeline are required; the rest enrich status and health surfaces when set.
type Components struct {
	Registry    *jobs.Registry
	Pipeline    *pipeline.Orchestrator
	Transcriber TranscriptionHealth
	Summarizer  SummarizerHealth
	Notifier    notifications.Service
}

// Daemon owns the long-running process lifecycle: instance locking, the
// pipeline orchestrator, and the HTTP API server.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comps  Components

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	mu      sync.Mutex
	cancel  context.CancelFunc
	running atomic.Bool
}

// Status aggregates daemon runtime information for status surfaces.
type Status struct {
	Running      bool
	PID          int
	SocketPath   string
	LockFilePath string
	Pipeline     pipeline.Stats
	LastJob      *jobs.Job
	Dependencies []deps.Status
}

// New constructs a daemon from configuration and its collaborators.
func New(cfg *config.Config, comps Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if comps.Registry == nil {
		return nil, errors.New("daemon requires a job registry")
	}
	if comps.Pipeline == nil {
		return nil, errors.New("daemon requires a pipeline orchestrator")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "recapd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		comps:    comps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, starts the pipeline workers, and brings
// up the HTTP API server. It fails when another daemon holds the lock.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another recap daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.comps.Pipeline.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		d.unlock()
		return fmt.Errorf("start pipeline: %w", err)
	}

	if err := d.api.start(runCtx); err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		if stopErr := d.comps.Pipeline.Stop(stopCtx); stopErr != nil {
			d.logger.Warn("pipeline stop failed during startup rollback", logging.Error(stopErr))
		}
		stopCancel()
		cancel()
		d.cancel = nil
		d.unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("recap daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop drains the pipeline, shuts down the API server, and releases the
// instance lock. Safe to call when the daemon is not running.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := d.comps.Pipeline.Stop(stopCtx); err != nil {
		d.logger.Warn("pipeline stop timed out", logging.Error(err))
	}

	d.api.stop()
	d.unlock()

	d.running.Store(false)
	d.logger.Info("recap daemon stopped")
}

// Close implements io.Closer for defer-friendly shutdown.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

func (d *Daemon) unlock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Submit registers a job for the given media source and enqueues it. Jobs
// submitted before Start sit in the queue until the workers come up.
func (d *Daemon) Submit(source string, opts summarize.Options) (jobs.Job, error) {
	return d.comps.Pipeline.Submit(source, opts)
}

// Jobs returns the active jobs and the retained terminal window.
func (d *Daemon) Jobs() (active, completed []jobs.Job) {
	return d.comps.Registry.List(), d.comps.Registry.Completed()
}

// Job looks up a single job by id.
func (d *Daemon) Job(id string) (jobs.Job, bool) {
	return d.comps.Registry.Get(strings.TrimSpace(id))
}

// Status snapshots the daemon runtime state, pipeline counters, and external
// dependency availability.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		SocketPath:   d.cfg.SocketPath(),
		LockFilePath: d.lockPath,
		Pipeline:     d.comps.Pipeline.Stats(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
	if completed := d.comps.Registry.Completed(); len(completed) > 0 {
		status.LastJob = &completed[0]
	}
	return status
}

// Health reports component readiness. Healthy means every non-optional
// component is ready. Summarization always reports ready since the local
// summarizer serves as a fallback when the LLM is unreachable.
func (d *Daemon) Health(ctx context.Context) api.HealthReport {
	report := api.HealthReport{Healthy: true}

	record := func(component api.ComponentHealth) {
		report.Components = append(report.Components, component)
		if !component.Ready && !component.Optional {
			report.Healthy = false
		}
	}

	dirs := []struct{ name, path string }{
		{"Work directory", d.cfg.Paths.WorkDir},
		{"Cache directory", d.cfg.Paths.CacheDir},
		{"Log directory", d.cfg.Paths.LogDir},
	}
	for _, dir := range dirs {
		result := preflight.CheckDirectoryAccess(dir.name, dir.path)
		record(api.ComponentHealth{Name: result.Name, Ready: result.Passed, Detail: result.Detail})
	}
	if d.cfg.Watch.Enabled {
		result := preflight.CheckDirectoryAccess("Watch directory", d.cfg.Watch.Dir)
		record(api.ComponentHealth{Name: result.Name, Ready: result.Passed, Detail: result.Detail})
	}

	for _, status := range preflight.CheckSystemDeps(d.cfg) {
		detail := status.Detail
		if detail == "" {
			detail = status.Command
		}
		record(api.ComponentHealth{
			Name:     status.Name,
			Ready:    status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}

	if d.comps.Transcriber != nil {
		engines := d.comps.Transcriber.Engines()
		ready := d.comps.Transcriber.Healthy(ctx)
		component := api.ComponentHealth{Name: "Transcription", Ready: ready}
		switch {
		case ready:
			component.Detail = "engines: " + strings.Join(engines, ", ")
		case len(engines) == 0:
			component.Detail = "no engines configured"
		default:
			component.Detail = "no engine available (configured: " + strings.Join(engines, ", ") + ")"
		}
		record(component)
	}

	if d.comps.Summarizer != nil {
		component := api.ComponentHealth{Name: "Summarization", Ready: true}
		switch {
		case !d.comps.Summarizer.LLMEnabled():
			component.Detail = "local summarizer"
		case d.comps.Summarizer.ProbeLLM(ctx) != nil:
			component.Detail = "LLM unreachable, local fallback active"
		default:
			component.Detail = "LLM reachable"
		}
		record(component)
	}

	return report
}

// TestNotification sends a test message through the configured notifier and
// reports whether it was sent along with a human-readable message.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}

	notifier := d.comps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(d.cfg)
	}
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

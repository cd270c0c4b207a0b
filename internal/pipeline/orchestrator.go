package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/media/validate"
	"recap/internal/notifications"
	"recap/internal/services"
	"recap/internal/summarize"
	"recap/internal/transcribe"
)

const component = "pipeline"

const (
	defaultWorkers = 2

	// jobQueueDepth bounds how many accepted submissions can wait for a free
	// worker before Submit starts refusing work.
	jobQueueDepth = 128
)

// Fetcher resolves a remote reference to a local media file.
type Fetcher interface {
	Fetch(ctx context.Context, reference string) (string, error)
}

// Transcoder produces the canonical transcription input from arbitrary media.
type Transcoder interface {
	Normalize(ctx context.Context, inputPath string) (string, error)
}

// Validator screens canonical audio before it reaches the engines.
type Validator interface {
	Check(ctx context.Context, path string) validate.Report
}

// Transcriber runs the engine chain over canonical audio.
type Transcriber interface {
	Run(ctx context.Context, audioPath string) (transcribe.Result, error)
}

// Summarizer condenses a transcript per the request options.
type Summarizer interface {
	Summarize(ctx context.Context, text string, opts summarize.Options) (string, error)
}

// Config captures the orchestrator's pool settings.
type Config struct {
	Workers int
}

// Deps wires the stage services the orchestrator drives. Registry,
// Transcoder, Validator, Transcriber, and Summarizer are required; Fetcher is
// only exercised by URL submissions and Notifier may be nil.
type Deps struct {
	Registry    *jobs.Registry
	Fetcher     Fetcher
	Transcoder  Transcoder
	Validator   Validator
	Transcriber Transcriber
	Summarizer  Summarizer
	Notifier    notifications.Service
}

// Orchestrator runs submitted jobs on a bounded worker pool.
type Orchestrator struct {
	registry    *jobs.Registry
	fetcher     Fetcher
	transcoder  Transcoder
	validator   Validator
	transcriber Transcriber
	summarizer  Summarizer
	notifier    notifications.Service
	logger      *slog.Logger

	workers int
	queue   chan submission

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type submission struct {
	jobID string
	opts  summarize.Options
}

// New constructs an orchestrator over the supplied services.
func New(cfg Config, deps Deps, logger *slog.Logger) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		registry:    deps.Registry,
		fetcher:     deps.Fetcher,
		transcoder:  deps.Transcoder,
		validator:   deps.Validator,
		transcriber: deps.Transcriber,
		summarizer:  deps.Summarizer,
		notifier:    deps.Notifier,
		logger:      logging.NewComponentLogger(logger, component),
		workers:     workers,
		queue:       make(chan submission, jobQueueDepth),
	}
}

// Start launches the worker pool. The pool stops when ctx is canceled or Stop
// is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.wg.Add(o.workers)
	for i := 0; i < o.workers; i++ {
		go o.worker(runCtx)
	}
	o.logger.Info("pipeline started", logging.Int("workers", o.workers))
	return nil
}

// Stop cancels the pool and waits for in-flight jobs to settle, bounded by
// ctx. Submissions still queued when the pool stops are abandoned with the
// process.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		o.logger.Info("pipeline stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the worker pool is active.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Submit validates the request, registers a job, and hands it to the next
// free worker. It returns a snapshot of the created job and never blocks on
// pipeline work.
func (o *Orchestrator) Submit(source string, opts summarize.Options) (jobs.Job, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return jobs.Job{}, services.Wrap(services.ErrValidation, component, "submit", "source is required", nil)
	}
	if err := opts.Validate(); err != nil {
		return jobs.Job{}, err
	}

	kind := jobs.KindURL
	if !IsRemote(source) {
		kind = jobs.KindFile
		info, err := os.Stat(source)
		if err != nil {
			return jobs.Job{}, services.Wrap(services.ErrValidation, component, "submit",
				fmt.Sprintf("media file %s not readable", source), err)
		}
		if info.IsDir() {
			return jobs.Job{}, services.Wrap(services.ErrValidation, component, "submit",
				fmt.Sprintf("%s is a directory", source), nil)
		}
	}

	job := o.registry.Create(kind, source)
	select {
	case o.queue <- submission{jobID: job.ID, opts: opts}:
	default:
		_ = o.registry.Fail(job.ID, jobs.Error{
			Kind:    jobs.ErrorKindUnknown,
			Stage:   "submit",
			Message: "job queue is full",
		})
		return jobs.Job{}, services.Wrap(services.ErrUnavailable, component, "submit", "job queue is full", nil)
	}
	o.logger.Info("job submitted",
		logging.String("job_id", job.ID),
		logging.String("kind", string(kind)),
		logging.String("source", source))
	return job, nil
}

// Stats describes pool and registry occupancy for status surfaces.
type Stats struct {
	Running bool
	Workers int
	Queued  int
	Jobs    jobs.Summary
}

// Stats reports current pool and registry occupancy.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Running: o.Running(),
		Workers: o.workers,
		Queued:  len(o.queue),
		Jobs:    o.registry.Stats(),
	}
}

// IsRemote reports whether the source should be resolved by the fetcher
// rather than opened as a local file.
func IsRemote(source string) bool {
	lower := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (o *Orchestrator) worker(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-o.queue:
			if ctx.Err() != nil {
				return
			}
			o.runJob(ctx, sub)
		}
	}
}

package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention bounds how many terminal jobs the registry keeps visible.
const DefaultRetention = 20

// ErrNotFound is returned when a job id matches neither the active table nor
// the recently-completed window.
var ErrNotFound = errors.New("job not found")

// Registry is the process-wide job table: an internally synchronized active
// map plus a bounded most-recent-first window of terminal jobs. Nothing is
// persisted; registry contents live and die with the process.
type Registry struct {
	mu        sync.RWMutex
	active    map[string]*Job
	completed []*Job
	retention int
	now       func() time.Time
}

// NewRegistry constructs a registry retaining up to retention terminal jobs.
// Values <= 0 fall back to DefaultRetention.
func NewRegistry(retention int) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		active:    make(map[string]*Job),
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a new job for the given input and returns a snapshot of it.
// Job ids are unique for the process lifetime and never reused.
func (r *Registry) Create(kind Kind, inputRef string) Job {
	job := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusCreated,
		Stage:     "Queued",
		Message:   "Waiting for a worker",
		InputRef:  inputRef,
		CreatedAt: r.now().UTC(),
	}

	r.mu.Lock()
	r.active[job.ID] = job
	r.mu.Unlock()

	return job.Clone()
}

// Get returns a snapshot of the job, checking the active table first and the
// completed window second.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if job, ok := r.active[id]; ok {
		return job.Clone(), true
	}
	for _, job := range r.completed {
		if job.ID == id {
			return job.Clone(), true
		}
	}
	return Job{}, false
}

// List returns snapshots of all active (non-terminal) jobs in creation order.
func (r *Registry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.active))
	for _, job := range r.active {
		out = append(out, job.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Completed returns snapshots of the retained terminal jobs, most recent first.
func (r *Registry) Completed() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.completed))
	for _, job := range r.completed {
		out = append(out, job.Clone())
	}
	return out
}

// SetProgress updates a job's progress, clamped to [0,100] and never
// decreasing. An empty status keeps the current one. A clamped value of 100
// or a terminal status moves the job into the completed window in the same
// critical section. Updates against terminal jobs are no-ops.
func (r *Registry) SetProgress(id string, status Status, stage, message string, percent float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.active[id]
	if !ok {
		if r.inCompletedLocked(id) {
			return nil
		}
		return ErrNotFound
	}

	percent = clampPercent(percent)
	if percent < job.Progress {
		percent = job.Progress
	}
	if status != "" {
		job.Status = status
	}
	job.setProgress(stage, message, percent)

	if percent >= 100 || job.Status.Terminal() {
		if !job.Status.Terminal() {
			job.Status = StatusCompleted
			job.Stage = "Complete"
		}
		r.moveToCompletedLocked(job)
	}
	return nil
}

// Complete records the pipeline outputs and moves the job to the completed
// window atomically.
func (r *Registry) Complete(id string, result Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.active[id]
	if !ok {
		if r.inCompletedLocked(id) {
			return nil
		}
		return ErrNotFound
	}

	job.setCompleted(result, r.now().UTC())
	r.moveToCompletedLocked(job)
	return nil
}

// Fail records the typed failure and moves the job to the completed window
// atomically. Progress is left at its last value.
func (r *Registry) Fail(id string, jobErr Error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.active[id]
	if !ok {
		if r.inCompletedLocked(id) {
			return nil
		}
		return ErrNotFound
	}

	if jobErr.Kind == "" {
		jobErr.Kind = ErrorKindUnknown
	}
	job.setFailed(jobErr, r.now().UTC())
	r.moveToCompletedLocked(job)
	return nil
}

// Summary aggregates registry counts for status surfaces.
type Summary struct {
	Active    int
	Completed int
	Failed    int
}

// Stats reports active and retained terminal job counts.
func (r *Registry) Stats() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := Summary{Active: len(r.active)}
	for _, job := range r.completed {
		if job.Status == StatusFailed {
			summary.Failed++
		} else {
			summary.Completed++
		}
	}
	return summary
}

// moveToCompletedLocked removes the job from the active table and pushes it to
// the front of the completed window, evicting the oldest entry on overflow.
// Callers must hold the write lock. A job is visible in exactly one of the two
// collections at every point.
func (r *Registry) moveToCompletedLocked(job *Job) {
	if job.CompletedAt == nil {
		at := r.now().UTC()
		job.CompletedAt = &at
	}
	delete(r.active, job.ID)
	r.completed = append([]*Job{job}, r.completed...)
	if len(r.completed) > r.retention {
		r.completed = r.completed[:r.retention]
	}
}

func (r *Registry) inCompletedLocked(id string) bool {
	for _, job := range r.completed {
		if job.ID == id {
			return true
		}
	}
	return false
}

func clampPercent(percent float64) float64 {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

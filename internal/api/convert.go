package api

import (
	"time"

	"recap/internal/deps"
	"recap/internal/jobs"
	"recap/internal/pipeline"
	"recap/internal/summarize"
)

// FromJob converts a registry snapshot to its API representation.
func FromJob(job jobs.Job) Job {
	dto := Job{
		ID:     job.ID,
		Kind:   string(job.Kind),
		Source: job.InputRef,
		Status: string(job.Status),
		Progress: JobProgress{
			Stage:   job.Stage,
			Percent: job.Progress,
			Message: job.Message,
		},
		CreatedAt: FormatTime(job.CreatedAt),
	}
	if job.CompletedAt != nil {
		dto.CompletedAt = FormatTime(*job.CompletedAt)
	}
	if job.Result != nil {
		dto.Result = &JobResult{
			Transcript: job.Result.Transcript,
			Summary:    job.Result.Summary,
		}
	}
	if job.Error != nil {
		dto.Error = &JobError{
			Kind:    string(job.Error.Kind),
			Stage:   job.Error.Stage,
			Message: job.Error.Message,
		}
	}
	return dto
}

// FromJobs converts a slice of registry snapshots into API DTOs, preserving
// order.
func FromJobs(items []jobs.Job) []Job {
	if len(items) == 0 {
		return nil
	}
	out := make([]Job, 0, len(items))
	for _, job := range items {
		out = append(out, FromJob(job))
	}
	return out
}

// FromPipelineStats converts orchestrator occupancy into the API payload.
// LastJob is left for the caller since the stats carry only counters.
func FromPipelineStats(stats pipeline.Stats) PipelineStatus {
	return PipelineStatus{
		Running:   stats.Running,
		Workers:   stats.Workers,
		Queued:    stats.Queued,
		Active:    stats.Jobs.Active,
		Completed: stats.Jobs.Completed,
		Failed:    stats.Jobs.Failed,
	}
}

// FromDependencies converts binary availability checks into API DTOs.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// SummarizeOptions converts the wire options into the summarizer's form.
func (o SummaryOptions) SummarizeOptions() summarize.Options {
	return summarize.Options{
		Length:   o.Length,
		Format:   o.Format,
		Focus:    append([]string(nil), o.Focus...),
		MinWords: o.MinWords,
		MaxWords: o.MaxWords,
	}
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime reverses FormatTime for consumers that render relative ages.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

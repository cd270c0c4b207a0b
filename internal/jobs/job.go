package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline job.
type Status string

const (
	StatusCreated      Status = "created"
	StatusExtracting   Status = "extracting_audio"
	StatusTranscribing Status = "transcribing"
	StatusSummarizing  Status = "summarizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusCreated,
	StatusExtracting,
	StatusTranscribing,
	StatusSummarizing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Kind distinguishes how a job's input reference should be resolved.
type Kind string

const (
	KindFile Kind = "file"
	KindURL  Kind = "url"
)

// ErrorKind classifies a terminal failure by the stage family that caused it.
type ErrorKind string

const (
	ErrorKindAudioProcessing ErrorKind = "audio_processing"
	ErrorKindTranscription   ErrorKind = "transcription"
	ErrorKindSummarization   ErrorKind = "summarization"
	ErrorKindDownload        ErrorKind = "download"
	ErrorKindUnknown         ErrorKind = "unknown"
)

// Result carries the pipeline outputs of a completed job.
type Result struct {
	Transcript string
	Summary    string
}

// Error describes why a job failed.
type Error struct {
	Kind    ErrorKind
	Stage   string
	Message string
}

// Job tracks one media-to-summary pipeline execution.
type Job struct {
	ID          string
	Kind        Kind
	Status      Status
	Progress    float64
	Stage       string
	Message     string
	InputRef    string
	CreatedAt   time.Time
	CompletedAt *time.Time
	Result      *Result
	Error       *Error
}

// Terminal reports whether the job reached an end state.
func (j Job) Terminal() bool {
	return j.Status.Terminal()
}

// Clone returns a deep copy so callers never alias registry-internal state.
func (j Job) Clone() Job {
	cp := j
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		cp.CompletedAt = &at
	}
	if j.Result != nil {
		result := *j.Result
		cp.Result = &result
	}
	if j.Error != nil {
		jobErr := *j.Error
		cp.Error = &jobErr
	}
	return cp
}

// setProgress updates the three progress fields together. Percent is assumed
// pre-clamped by the registry.
func (j *Job) setProgress(stage, message string, percent float64) {
	if stage != "" {
		j.Stage = stage
	}
	if message != "" {
		j.Message = message
	}
	j.Progress = percent
}

func (j *Job) setCompleted(result Result, at time.Time) {
	j.Status = StatusCompleted
	j.Progress = 100
	j.Stage = "Complete"
	j.Message = "Summary ready"
	j.Result = &result
	j.Error = nil
	j.CompletedAt = &at
}

func (j *Job) setFailed(jobErr Error, at time.Time) {
	j.Status = StatusFailed
	j.Stage = "Failed"
	j.Message = jobErr.Message
	j.Error = &jobErr
	j.CompletedAt = &at
}

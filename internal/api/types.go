package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a pipeline job in a transport-friendly format.
type Job struct {
	ID          string      `json:"id"`
	Kind        string      `json:"kind"`
	Source      string      `json:"source"`
	Status      string      `json:"status"`
	Progress    JobProgress `json:"progress"`
	CreatedAt   string      `json:"createdAt,omitempty"`
	CompletedAt string      `json:"completedAt,omitempty"`
	Result      *JobResult  `json:"result,omitempty"`
	Error       *JobError   `json:"error,omitempty"`
}

// JobProgress captures stage progress information for a job.
type JobProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// JobResult carries the transcript and summary of a completed job.
type JobResult struct {
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

// JobError describes why a job failed.
type JobError struct {
	Kind    string `json:"kind"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// SummaryOptions is the wire form of a summarization request.
type SummaryOptions struct {
	Length   string   `json:"length,omitempty"`
	Format   string   `json:"format,omitempty"`
	Focus    []string `json:"focus,omitempty"`
	MinWords int      `json:"minWords,omitempty"`
	MaxWords int      `json:"maxWords,omitempty"`
}

// SubmitRequest asks the daemon to run the pipeline for a media source.
type SubmitRequest struct {
	Source  string         `json:"source"`
	Options SummaryOptions `json:"options"`
}

// PipelineStatus summarizes orchestrator execution state.
type PipelineStatus struct {
	Running   bool `json:"running"`
	Workers   int  `json:"workers"`
	Queued    int  `json:"queued"`
	Active    int  `json:"activeJobs"`
	Completed int  `json:"completedJobs"`
	Failed    int  `json:"failedJobs"`
	LastJob   *Job `json:"lastJob,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	SocketPath   string             `json:"socketPath"`
	LockFilePath string             `json:"lockFilePath"`
	Pipeline     PipelineStatus     `json:"pipeline"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ComponentHealth mirrors readiness reporting for pipeline components.
type ComponentHealth struct {
	Name     string `json:"name"`
	Ready    bool   `json:"ready"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// HealthReport aggregates component readiness. Healthy means every
// non-optional component is ready.
type HealthReport struct {
	Healthy    bool              `json:"healthy"`
	Components []ComponentHealth `json:"components"`
}

// JobsResponse wraps the active jobs and the retained terminal window.
type JobsResponse struct {
	Active    []Job `json:"active"`
	Completed []Job `json:"completed"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

package ipc

import "recap/internal/api"

// Job mirrors the HTTP API job DTO for internal IPC callers.
type Job = api.Job

// SummaryOptions mirrors the HTTP API summary options DTO.
type SummaryOptions = api.SummaryOptions

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// ComponentHealth describes readiness of a pipeline component.
type ComponentHealth = api.ComponentHealth

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/pipeline status information.
type StatusResponse struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	SocketPath    string             `json:"socket_path"`
	LockPath      string             `json:"lock_path"`
	Workers       int                `json:"workers"`
	Queued        int                `json:"queued"`
	ActiveJobs    int                `json:"active_jobs"`
	CompletedJobs int                `json:"completed_jobs"`
	FailedJobs    int                `json:"failed_jobs"`
	LastJob       *Job               `json:"last_job"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// SubmitRequest asks the daemon to run the pipeline for a media source.
type SubmitRequest struct {
	Source  string         `json:"source"`
	Options SummaryOptions `json:"options"`
}

// SubmitResponse returns the created job.
type SubmitResponse struct {
	Job Job `json:"job"`
}

// JobsRequest fetches the job tables.
type JobsRequest struct{}

// JobsResponse contains active jobs and the retained terminal window.
type JobsResponse struct {
	Active    []Job `json:"active"`
	Completed []Job `json:"completed"`
}

// JobRequest fetches a single job by id.
type JobRequest struct {
	ID string `json:"id"`
}

// JobResponse contains a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// HealthRequest fetches component readiness.
type HealthRequest struct{}

// HealthResponse reports component readiness. Healthy means every
// non-optional component is ready.
type HealthResponse struct {
	Healthy    bool              `json:"healthy"`
	Components []ComponentHealth `json:"components"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

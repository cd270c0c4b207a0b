// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates registry job snapshots into transport-friendly
// DTOs that web clients and the CLI can render without coupling to internal
// types.
//
// # Key Types
//
// Job: transport representation of a pipeline job with progress, result, and
// typed error details.
//
// SubmitRequest: media source plus summary options, shared by POST /api/jobs
// and the IPC Submit method.
//
// DaemonStatus: daemon running state, pipeline counters, and external
// dependency availability.
//
// HealthReport: per-component readiness with an aggregate healthy flag.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (jobs.Status, jobs.Kind, jobs.ErrorKind) are exposed as lowercase
// strings. Timestamps use RFC3339 with milliseconds.
package api

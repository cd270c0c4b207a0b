// Package daemon coordinates the long-running Recap process and system
// integration points.
//
// It wires configuration, the job registry, and the pipeline orchestrator
// into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon exposes job submission and inspection helpers, serves
// the HTTP API, and aggregates dependency and component health for status
// surfaces.
//
// Keep orchestration logic here: individual pipeline stages live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon

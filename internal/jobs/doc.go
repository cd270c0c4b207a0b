// Package jobs models pipeline jobs and the in-memory registry that tracks
// them. The registry is the only mutable structure shared across workers and
// pollers; it synchronizes internally and hands out snapshots, never pointers
// into its own state. Terminal jobs stay visible through a bounded
// most-recent-first window and are evicted oldest-first. Nothing survives a
// process restart.
package jobs

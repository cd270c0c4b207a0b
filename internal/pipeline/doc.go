// Package pipeline drives media-to-summary jobs through their stages.
//
// The Orchestrator owns a bounded worker pool fed by Submit. Each job walks
// fetch (URL sources only), canonical audio extraction, validation,
// transcription, and summarization, reporting progress through the job
// registry at fixed stage boundaries. Stage failures are classified into the
// job-facing error taxonomy and always resolve the job to a terminal state;
// nothing escapes a worker, including panics. The canonical audio file is
// removed on every exit path, success or failure. Terminal states trigger a
// notification.
//
// Callers never block on pipeline work: Submit enqueues and returns, and
// observers poll the registry for progress.
package pipeline

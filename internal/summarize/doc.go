// Package summarize turns transcripts into summaries.
//
// # Backend Policy
//
// The remote chat backend is tried first, gated by an explicit health probe.
// A failed probe, a failed call, or an empty completion falls through to the
// local extractive backend without surfacing an error to the caller; the
// fallback is logged only. The whole operation fails when the transcript is
// below the minimum word count or when every backend fails.
//
// # Local Backend
//
// The local pass is extractive: sentences are scored with TF-IDF weights over
// the transcript (each sentence is one document), near-duplicate sentences are
// suppressed by cosine similarity, and the top sentences are re-emitted in
// their original order. Transcripts above the chunk budget are split on
// sentence boundaries and summarized chunk by chunk; chunking never applies to
// the remote path.
//
// # Formats
//
// Backends produce plain prose. Formatting is a pure post-processing step:
// paragraph passes through, bullets and numbered re-segment by sentence and
// re-render with markers, key_points adds a heading over bullets.
package summarize

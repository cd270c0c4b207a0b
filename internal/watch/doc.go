// Package watch submits media files dropped into a configured directory.
//
// It debounces filesystem events per file: every create or write resets the
// file's settle timer, and only files that stay quiet for the settle window
// are handed to the pipeline. Files already present when the watcher starts
// are swept up on the same terms, so a daemon restart does not strand
// half-processed inboxes.
package watch

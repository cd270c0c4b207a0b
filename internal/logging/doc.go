// Package logging wires slog with the handlers and helpers the daemon and CLI
// share: a one-line console handler for interactive use, a JSON handler for
// machine consumption, attribute constructors, and context-aware enrichment
// that stamps job/stage/engine fields onto every record.
package logging

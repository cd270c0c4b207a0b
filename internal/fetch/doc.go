// Package fetch resolves remote media references to locally cached files.
//
// A reference (streaming URL or bare video id) maps to a stable cache key:
// the recognized video id when one is present, otherwise a digest of the
// reference. Downloads run through an external tool (yt-dlp by default) into
// a key-addressed cache directory, and a SQLite ledger records what the cache
// holds so lookups can skip the network entirely. Concurrent fetches for the
// same key are not deduplicated; each caller may populate the cache
// independently and the last write wins.
package fetch

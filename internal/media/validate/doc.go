// Package validate gates canonical audio before transcription. Checks are
// read-only with one exception: audio that is quiet but not silent gets a
// best-effort in-place gain boost so engines see workable levels. Validation
// never returns an error; anything unreadable is simply invalid.
package validate

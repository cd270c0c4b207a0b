// Package transcode turns arbitrary audio and video inputs into the canonical
// PCM16 mono 16 kHz WAV every transcription engine consumes. Conversion is
// synchronous, timeout-bounded, and leaves no partial output behind on
// failure.
package transcode

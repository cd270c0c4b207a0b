// Package config loads, normalizes, and validates Recap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// OPENROUTER_API_KEY and GEMINI_API_KEY. The Config type centralizes every
// knob the daemon and CLI need, from pipeline worker counts to per-engine
// transcription credentials.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

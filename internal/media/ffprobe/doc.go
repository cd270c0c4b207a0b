// Package ffprobe wraps the ffprobe binary for container and stream
// inspection. The transcoder and validator both lean on it to learn duration,
// channel layout, and sample rate before and after normalization.
package ffprobe

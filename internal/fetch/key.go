package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	videoIDPattern = regexp.MustCompile(`(?:[?&]v=|youtu\.be/|/shorts/|/embed/|/live/)([A-Za-z0-9_-]{11})(?:[?&#/]|$)`)
	bareIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// CacheKey derives a stable identifier for a media reference. References that
// carry a recognizable video id reuse it, so the same video reached through
// different URL shapes shares one cache entry. Everything else hashes the
// trimmed reference.
func CacheKey(reference string) string {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return ""
	}
	if id := VideoID(ref); id != "" {
		return id
	}
	sum := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:])[:16]
}

// VideoID extracts a YouTube-style video id from the reference, or returns
// empty when none is present.
func VideoID(reference string) string {
	ref := strings.TrimSpace(reference)
	if bareIDPattern.MatchString(ref) {
		return ref
	}
	if match := videoIDPattern.FindStringSubmatch(ref); match != nil {
		return match[1]
	}
	return ""
}

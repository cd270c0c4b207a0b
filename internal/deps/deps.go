// Package deps checks availability of the external binaries the pipeline
// shells out to. Both the daemon preflight and the CLI status command use it
// so the requirements list lives in one place.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// PipelineRequirements lists the binaries the media pipeline invokes. Empty
// commands fall back to the conventional binary names; the whisper.cpp CLI
// stays unset unless configured since the offline engine is optional.
func PipelineRequirements(ffmpeg, ffprobe, downloader, whisperCLI string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     orDefault(ffmpeg, "ffmpeg"),
			Description: "Audio normalization, loudness probing, gain rescue",
		},
		{
			Name:        "FFprobe",
			Command:     orDefault(ffprobe, "ffprobe"),
			Description: "Container and stream inspection",
		},
		{
			Name:        "yt-dlp",
			Command:     orDefault(downloader, "yt-dlp"),
			Description: "Remote media download",
			Optional:    true,
		},
		{
			Name:        "whisper.cpp",
			Command:     strings.TrimSpace(whisperCLI),
			Description: "Offline transcription engine",
			Optional:    true,
		},
	}
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unconfigured", Command: "", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary flagged, got %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured detail, got %#v", results[2])
	}
}

func TestPipelineRequirementsDefaults(t *testing.T) {
	reqs := PipelineRequirements("", "", "", "")
	byName := make(map[string]Requirement, len(reqs))
	for _, req := range reqs {
		byName[req.Name] = req
	}

	if byName["FFmpeg"].Command != "ffmpeg" || byName["FFmpeg"].Optional {
		t.Fatalf("unexpected ffmpeg requirement: %#v", byName["FFmpeg"])
	}
	if byName["yt-dlp"].Command != "yt-dlp" || !byName["yt-dlp"].Optional {
		t.Fatalf("unexpected yt-dlp requirement: %#v", byName["yt-dlp"])
	}
	if byName["whisper.cpp"].Command != "" {
		t.Fatalf("expected whisper.cpp unset by default: %#v", byName["whisper.cpp"])
	}
}

func TestPipelineRequirementsOverrides(t *testing.T) {
	reqs := PipelineRequirements("/opt/ffmpeg", "", "/usr/local/bin/yt-dlp", "whisper-cli")
	if reqs[0].Command != "/opt/ffmpeg" {
		t.Fatalf("expected ffmpeg override, got %q", reqs[0].Command)
	}
	if reqs[2].Command != "/usr/local/bin/yt-dlp" {
		t.Fatalf("expected downloader override, got %q", reqs[2].Command)
	}
	if reqs[3].Command != "whisper-cli" {
		t.Fatalf("expected whisper override, got %q", reqs[3].Command)
	}
}

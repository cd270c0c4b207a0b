package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recap/internal/ipc"
)

func TestSubmitAndWaitPrintsSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	path := writeMediaFixture(t, env, "meeting.mp3")

	out, _, err := runCLI(t, []string{"submit", path, "--wait"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("submit --wait: %v\noutput: %s", err, out)
	}
	requireContains(t, out, "accepted (file), waiting...")
	requireContains(t, out, "Summary:")
	requireContains(t, out, stubSummary)
	requireContains(t, out, "Transcript:")

	listing, _, err := runCLI(t, []string{"jobs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs after submit: %v", err)
	}
	requireContains(t, listing, "Recent jobs:")
	requireContains(t, listing, "meeting.mp3")
	requireContains(t, listing, "Completed")
}

func TestSubmitWaitJSONEmitsTerminalJob(t *testing.T) {
	env := setupCLITestEnv(t)
	path := writeMediaFixture(t, env, "standup.wav")

	out, _, err := runCLI(t, []string{"submit", path, "--wait", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("submit --wait --json: %v\noutput: %s", err, out)
	}

	var job ipc.Job
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("unmarshal job JSON: %v\noutput: %s", err, out)
	}
	if job.Status != "completed" {
		t.Fatalf("unexpected status %q", job.Status)
	}
	if job.Result == nil {
		t.Fatal("expected result payload")
	}
	if job.Result.Summary != stubSummary {
		t.Errorf("unexpected summary %q", job.Result.Summary)
	}
	if job.Result.Transcript != stubTranscript {
		t.Errorf("unexpected transcript %q", job.Result.Transcript)
	}
	if job.CompletedAt == "" {
		t.Error("expected completedAt to be set")
	}
}

func TestSubmitRejectsUnknownLength(t *testing.T) {
	env := setupCLITestEnv(t)
	path := writeMediaFixture(t, env, "clip.mp3")

	_, _, err := runCLI(t, []string{"submit", path, "--length", "gigantic"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), `unknown length "gigantic"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"submit", filepath.Join(env.baseDir, "absent.mp3")}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "inspect file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitRejectsDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "media")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, _, err := runCLI(t, []string{"submit", dir}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for directory source")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

package jobs

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCreateAssignsUniqueIDs(t *testing.T) {
	registry := NewRegistry(0)
	seen := make(map[string]struct{})
	for range 50 {
		job := registry.Create(KindFile, "clip.mp4")
		if job.ID == "" {
			t.Fatal("expected non-empty id")
		}
		if _, dup := seen[job.ID]; dup {
			t.Fatalf("duplicate job id %s", job.ID)
		}
		seen[job.ID] = struct{}{}
		if job.Status != StatusCreated {
			t.Fatalf("expected created status, got %s", job.Status)
		}
	}
}

func TestSetProgressClampsAndNeverDecreases(t *testing.T) {
	registry := NewRegistry(0)
	job := registry.Create(KindFile, "clip.mp4")

	if err := registry.SetProgress(job.ID, StatusExtracting, "Extracting audio", "", 150); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	got, _ := registry.Get(job.ID)
	if got.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %f", got.Progress)
	}

	job = registry.Create(KindFile, "clip2.mp4")
	if err := registry.SetProgress(job.ID, StatusTranscribing, "Transcribing", "", 50); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if err := registry.SetProgress(job.ID, StatusTranscribing, "Transcribing", "", 30); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	got, _ = registry.Get(job.ID)
	if got.Progress != 50 {
		t.Fatalf("expected progress to hold at 50, got %f", got.Progress)
	}

	if err := registry.SetProgress(job.ID, "", "", "", -10); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	got, _ = registry.Get(job.ID)
	if got.Progress != 50 {
		t.Fatalf("expected negative clamp to keep 50, got %f", got.Progress)
	}
}

func TestFullProgressMovesJobToCompleted(t *testing.T) {
	registry := NewRegistry(0)
	job := registry.Create(KindFile, "clip.mp4")

	if err := registry.SetProgress(job.ID, "", "", "", 100); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}

	got, ok := registry.Get(job.ID)
	if !ok {
		t.Fatal("expected job to remain visible after completion")
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}

	for _, active := range registry.List() {
		if active.ID == job.ID {
			t.Fatal("completed job still listed as active")
		}
	}
	completed := registry.Completed()
	if len(completed) != 1 || completed[0].ID != job.ID {
		t.Fatalf("expected job in completed window, got %v", completed)
	}
}

func TestRetentionEvictsOldestFirst(t *testing.T) {
	registry := NewRegistry(20)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	registry.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	ids := make([]string, 0, 21)
	for i := range 21 {
		job := registry.Create(KindFile, fmt.Sprintf("clip-%d.mp4", i))
		ids = append(ids, job.ID)
		if err := registry.Complete(job.ID, Result{Transcript: "t", Summary: "s"}); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}

	completed := registry.Completed()
	if len(completed) != 20 {
		t.Fatalf("expected 20 retained, got %d", len(completed))
	}
	if _, ok := registry.Get(ids[0]); ok {
		t.Fatal("expected oldest job evicted")
	}
	if completed[0].ID != ids[20] {
		t.Fatalf("expected most recent first, got %s", completed[0].ID)
	}
	if _, ok := registry.Get(ids[20]); !ok {
		t.Fatal("expected newest job retained")
	}
}

func TestFailRecordsTypedError(t *testing.T) {
	registry := NewRegistry(0)
	job := registry.Create(KindURL, "https://example.com/watch?v=abc123")
	if err := registry.SetProgress(job.ID, StatusExtracting, "Extracting audio", "", 15); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}

	jobErr := Error{Kind: ErrorKindDownload, Stage: "extracting_audio", Message: "downloader exited with status 1"}
	if err := registry.Fail(job.ID, jobErr); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	got, ok := registry.Get(job.ID)
	if !ok {
		t.Fatal("expected failed job visible")
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", got.Status)
	}
	if got.Error == nil || got.Error.Kind != ErrorKindDownload {
		t.Fatalf("unexpected error field: %+v", got.Error)
	}
	if got.Progress != 15 {
		t.Fatalf("expected progress preserved at failure, got %f", got.Progress)
	}
}

func TestFailDefaultsUnknownKind(t *testing.T) {
	registry := NewRegistry(0)
	job := registry.Create(KindFile, "clip.mp4")
	if err := registry.Fail(job.ID, Error{Message: "worker panic"}); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ := registry.Get(job.ID)
	if got.Error.Kind != ErrorKindUnknown {
		t.Fatalf("expected unknown kind, got %s", got.Error.Kind)
	}
}

func TestTerminalJobsIgnoreFurtherUpdates(t *testing.T) {
	registry := NewRegistry(0)
	job := registry.Create(KindFile, "clip.mp4")
	if err := registry.Complete(job.ID, Result{Transcript: "t", Summary: "s"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if err := registry.SetProgress(job.ID, StatusTranscribing, "Transcribing", "", 10); err != nil {
		t.Fatalf("expected terminal update to be a no-op, got %v", err)
	}
	got, _ := registry.Get(job.ID)
	if got.Progress != 100 || got.Status != StatusCompleted {
		t.Fatalf("terminal job mutated: %+v", got)
	}
}

func TestUnknownJobReturnsErrNotFound(t *testing.T) {
	registry := NewRegistry(0)
	if err := registry.SetProgress("missing", StatusExtracting, "", "", 10); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := registry.Get("missing"); ok {
		t.Fatal("expected lookup miss")
	}
}

func TestSnapshotsDoNotAliasRegistryState(t *testing.T) {
	registry := NewRegistry(0)
	job := registry.Create(KindFile, "clip.mp4")
	if err := registry.Complete(job.ID, Result{Transcript: "original", Summary: "s"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	snapshot, _ := registry.Get(job.ID)
	snapshot.Result.Transcript = "mutated"

	fresh, _ := registry.Get(job.ID)
	if fresh.Result.Transcript != "original" {
		t.Fatal("registry state mutated through snapshot")
	}
}

func TestConcurrentAccess(t *testing.T) {
	registry := NewRegistry(0)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				job := registry.Create(KindFile, "clip.mp4")
				_ = registry.SetProgress(job.ID, StatusTranscribing, "Transcribing", "", 40)
				_ = registry.Complete(job.ID, Result{Transcript: "t", Summary: "s"})
				registry.List()
				registry.Completed()
				registry.Stats()
			}
		}()
	}
	wg.Wait()

	if got := len(registry.List()); got != 0 {
		t.Fatalf("expected no active jobs after drain, got %d", got)
	}
	if got := len(registry.Completed()); got != DefaultRetention {
		t.Fatalf("expected retention-capped completed window, got %d", got)
	}
}

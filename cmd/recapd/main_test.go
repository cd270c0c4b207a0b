package main

import (
	"path/filepath"
	"testing"
	"time"

	"recap/internal/config"
	"recap/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.API.Bind = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

func TestTranscriptionEnginesPriorityOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.WhisperAPI.Enabled = true
	cfg.Transcription.WhisperAPI.APIKey = "test-key"
	cfg.Transcription.Gemini.Enabled = true
	cfg.Transcription.Gemini.APIKeys = []string{"test-key"}

	engines := transcriptionEngines(&cfg)
	if len(engines) != 3 {
		t.Fatalf("expected 3 engines, got %d", len(engines))
	}

	expected := []string{"whisper_api", "gemini", "whisper_cpp"}
	for i, engine := range engines {
		if engine == nil {
			t.Fatalf("engine %d is nil", i)
		}
		if engine.Name() != expected[i] {
			t.Errorf("engine %d name: expected %q, got %q", i, expected[i], engine.Name())
		}
	}
}

func TestTranscriptionEnginesRespectToggles(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.WhisperCpp.Enabled = false

	if engines := transcriptionEngines(&cfg); len(engines) != 0 {
		t.Fatalf("expected no engines with everything disabled, got %d", len(engines))
	}

	cfg.Transcription.Gemini.Enabled = true
	engines := transcriptionEngines(&cfg)
	if len(engines) != 1 || engines[0].Name() != "gemini" {
		t.Fatalf("expected only the gemini engine, got %d engines", len(engines))
	}
}

func TestValidationLimits(t *testing.T) {
	cfg := config.Default()
	cfg.Validation.MinDurationSeconds = 1.5
	cfg.Validation.MaxDurationSeconds = 60

	limits := validationLimits(&cfg)
	if limits.MinDuration != 1500*time.Millisecond {
		t.Errorf("min duration: expected 1.5s, got %s", limits.MinDuration)
	}
	if limits.MaxDuration != time.Minute {
		t.Errorf("max duration: expected 1m, got %s", limits.MaxDuration)
	}
	if limits.MinBytes != cfg.Validation.MinBytes {
		t.Errorf("min bytes: expected %d, got %d", cfg.Validation.MinBytes, limits.MinBytes)
	}
	if limits.QuietFloorDB != cfg.Validation.QuietFloorDB {
		t.Errorf("quiet floor: expected %v, got %v", cfg.Validation.QuietFloorDB, limits.QuietFloorDB)
	}
	if len(limits.Extensions) == 0 {
		t.Error("expected default extension allowlist to carry over")
	}
}

func TestBuildSummarizerLLMToggle(t *testing.T) {
	cfg := config.Default()
	if s := buildSummarizer(&cfg); s.LLMEnabled() {
		t.Fatal("expected local-only summarizer by default")
	}

	cfg.Summarization.LLM.Enabled = true
	cfg.Summarization.LLM.APIKey = "test-key"
	if s := buildSummarizer(&cfg); !s.LLMEnabled() {
		t.Fatal("expected remote backend when the llm is enabled")
	}
}

func TestBuildDaemon(t *testing.T) {
	cfg := testConfig(t)

	d, cleanup, err := buildDaemon(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildDaemon: %v", err)
	}
	defer cleanup()

	if d == nil {
		t.Fatal("expected a daemon")
	}
	if d.Running() {
		t.Fatal("daemon should not report running before Start")
	}
}

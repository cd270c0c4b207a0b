package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recap/internal/api"
	"recap/internal/config"
	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/media/validate"
	"recap/internal/pipeline"
	"recap/internal/summarize"
	"recap/internal/transcribe"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.API.Bind = "127.0.0.1:0"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

type stubTranscoder struct{}

func (stubTranscoder) Normalize(_ context.Context, inputPath string) (string, error) {
	return inputPath, nil
}

type stubValidator struct{}

func (stubValidator) Check(context.Context, string) validate.Report {
	return validate.Report{OK: true}
}

type stubTranscriber struct{}

func (stubTranscriber) Run(context.Context, string) (transcribe.Result, error) {
	return transcribe.Result{Text: "transcript", Engine: "stub"}, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, string, summarize.Options) (string, error) {
	return "summary", nil
}

type stubChainHealth struct {
	engines []string
	healthy bool
}

func (s stubChainHealth) Engines() []string            { return s.engines }
func (s stubChainHealth) Healthy(context.Context) bool { return s.healthy }

type stubSummarizerHealth struct {
	llm      bool
	probeErr error
}

func (s stubSummarizerHealth) LLMEnabled() bool               { return s.llm }
func (s stubSummarizerHealth) ProbeLLM(context.Context) error { return s.probeErr }

type stubNotifier struct {
	tested bool
	err    error
}

func (s *stubNotifier) NotifyJobCompleted(context.Context, string, string, string) error { return nil }
func (s *stubNotifier) NotifyJobFailed(context.Context, string, string, string) error    { return nil }
func (s *stubNotifier) TestNotification(context.Context) error {
	s.tested = true
	return s.err
}

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	registry := jobs.NewRegistry(5)
	orch := pipeline.New(pipeline.Config{Workers: 1}, pipeline.Deps{
		Registry:    registry,
		Transcoder:  stubTranscoder{},
		Validator:   stubValidator{},
		Transcriber: stubTranscriber{},
		Summarizer:  stubSummarizer{},
	}, logging.NewNop())

	d, err := New(cfg, Components{Registry: registry, Pipeline: orch}, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running")
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("unexpected pid %d", status.PID)
	}
	if !status.Pipeline.Running {
		t.Fatal("expected pipeline running in status")
	}
	if !strings.HasSuffix(status.SocketPath, "recap.sock") {
		t.Fatalf("unexpected socket path %s", status.SocketPath)
	}
	if !strings.HasSuffix(status.LockFilePath, "recapd.lock") {
		t.Fatalf("unexpected lock path %s", status.LockFilePath)
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to stop")
	}
	if d.Status().Running {
		t.Fatal("expected stopped status")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	first := newTestDaemon(t, cfg)
	second := newTestDaemon(t, cfg)

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first daemon: %v", err)
	}
	defer first.Stop()

	err := second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail while lock is held")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDaemonSubmitTracksJob(t *testing.T) {
	d := newTestDaemon(t, testConfig(t))

	media := filepath.Join(t.TempDir(), "talk.mp3")
	if err := os.WriteFile(media, []byte("fixture"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	job, err := d.Submit(media, summarize.Options{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, ok := d.Job(" " + job.ID + " ")
	if !ok {
		t.Fatalf("job %s not found", job.ID)
	}
	if got.InputRef != media {
		t.Fatalf("unexpected input ref %s", got.InputRef)
	}

	active, completed := d.Jobs()
	if len(active) != 1 || len(completed) != 0 {
		t.Fatalf("unexpected job counts: active=%d completed=%d", len(active), len(completed))
	}
}

func TestDaemonHealthReportsComponents(t *testing.T) {
	d := newTestDaemon(t, testConfig(t))
	d.comps.Transcriber = stubChainHealth{engines: []string{"whisper-api", "gemini"}, healthy: true}
	d.comps.Summarizer = stubSummarizerHealth{llm: false}

	report := d.Health(context.Background())

	byName := map[string]api.ComponentHealth{}
	for _, component := range report.Components {
		byName[component.Name] = component
	}

	for _, name := range []string{"Work directory", "Cache directory", "Log directory"} {
		component, ok := byName[name]
		if !ok || !component.Ready {
			t.Fatalf("expected %s to be ready, got %+v", name, component)
		}
	}

	transcription := byName["Transcription"]
	if !transcription.Ready {
		t.Fatalf("unexpected transcription health: %+v", transcription)
	}
	if transcription.Detail != "engines: whisper-api, gemini" {
		t.Fatalf("unexpected transcription detail %q", transcription.Detail)
	}

	summarization := byName["Summarization"]
	if !summarization.Ready {
		t.Fatalf("unexpected summarization health: %+v", summarization)
	}
	if summarization.Detail != "local summarizer" {
		t.Fatalf("unexpected summarization detail %q", summarization.Detail)
	}
}

func TestDaemonHealthUnhealthyWithoutEngines(t *testing.T) {
	d := newTestDaemon(t, testConfig(t))
	d.comps.Transcriber = stubChainHealth{engines: []string{"whisper-api"}, healthy: false}
	d.comps.Summarizer = stubSummarizerHealth{llm: true, probeErr: errors.New("dial timeout")}

	report := d.Health(context.Background())
	if report.Healthy {
		t.Fatal("expected unhealthy report when no engine is available")
	}

	var transcription, summarization api.ComponentHealth
	for _, component := range report.Components {
		switch component.Name {
		case "Transcription":
			transcription = component
		case "Summarization":
			summarization = component
		}
	}
	if transcription.Ready {
		t.Fatal("expected transcription to be unready")
	}
	if transcription.Detail != "no engine available (configured: whisper-api)" {
		t.Fatalf("unexpected transcription detail %q", transcription.Detail)
	}
	if !summarization.Ready {
		t.Fatal("expected summarization to stay ready on LLM failure")
	}
	if summarization.Detail != "LLM unreachable, local fallback active" {
		t.Fatalf("unexpected summarization detail %q", summarization.Detail)
	}
}

func TestDaemonTestNotification(t *testing.T) {
	cfg := testConfig(t)
	d := newTestDaemon(t, cfg)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent {
		t.Fatalf("expected unsent result without topic, got sent=%v err=%v", sent, err)
	}
	if message != "ntfy topic not configured" {
		t.Fatalf("unexpected message %q", message)
	}

	cfg.Notifications.NtfyTopic = "recap-test"
	notifier := &stubNotifier{}
	d.comps.Notifier = notifier

	sent, message, err = d.TestNotification(context.Background())
	if err != nil || !sent {
		t.Fatalf("expected sent result, got sent=%v err=%v", sent, err)
	}
	if !notifier.tested {
		t.Fatal("expected notifier to be exercised")
	}
	if message != "test notification sent" {
		t.Fatalf("unexpected message %q", message)
	}

	notifier.err = errors.New("ntfy 500")
	if sent, _, err = d.TestNotification(context.Background()); err == nil || sent {
		t.Fatalf("expected failure result, got sent=%v err=%v", sent, err)
	}
}

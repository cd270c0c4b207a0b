package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"recap/internal/config"
	"recap/internal/daemon"
	"recap/internal/ipc"
	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/media/validate"
	"recap/internal/notifications"
	"recap/internal/pipeline"
	"recap/internal/summarize"
	"recap/internal/testsupport"
	"recap/internal/transcribe"
)

const (
	stubTranscript = "hello from the recording and a few more words"
	stubSummary    = "the short version"
)

type passthroughTranscoder struct{}

func (passthroughTranscoder) Normalize(_ context.Context, path string) (string, error) {
	return path, nil
}

type okValidator struct{}

func (okValidator) Check(_ context.Context, path string) validate.Report {
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	return validate.Report{OK: true, SizeBytes: size}
}

type fixedTranscriber struct{}

func (fixedTranscriber) Run(context.Context, string) (transcribe.Result, error) {
	return transcribe.Result{Text: stubTranscript, Engine: "stub", Attempts: []transcribe.Attempt{{Engine: "stub", Text: stubTranscript}}}, nil
}

type fixedSummarizer struct{}

func (fixedSummarizer) Summarize(context.Context, string, summarize.Options) (string, error) {
	return stubSummary, nil
}

type readyChain struct{}

func (readyChain) Engines() []string { return []string{"stub"} }

func (readyChain) Healthy(context.Context) bool { return true }

type localOnlySummarizer struct{}

func (localOnlySummarizer) LLMEnabled() bool { return false }

func (localOnlySummarizer) ProbeLLM(context.Context) error { return nil }

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg", "ffprobe", "yt-dlp", "whisper-cli"))

	configPath := filepath.Join(homeDir, ".config", "recap", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	registry := jobs.NewRegistry(5)
	orchestrator := pipeline.New(
		pipeline.Config{Workers: 1},
		pipeline.Deps{
			Registry:    registry,
			Transcoder:  passthroughTranscoder{},
			Validator:   okValidator{},
			Transcriber: fixedTranscriber{},
			Summarizer:  fixedSummarizer{},
			Notifier:    notifications.NewService(cfg),
		},
		logger,
	)

	d, err := daemon.New(cfg, daemon.Components{
		Registry:    registry,
		Pipeline:    orchestrator,
		Transcriber: readyChain{},
		Summarizer:  localOnlySummarizer{},
		Notifier:    notifications.NewService(cfg),
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}

	socketPath := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets unavailable: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(*cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeMediaFixture(t *testing.T, env *cliTestEnv, name string) string {
	t.Helper()
	path := filepath.Join(env.baseDir, "drop", name)
	testsupport.WriteFile(t, path, 4096)
	return path
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

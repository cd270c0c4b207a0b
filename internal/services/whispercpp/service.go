// Package whispercpp runs local whisper.cpp transcription through the
// whisper-cli binary.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"recap/internal/services"
)

const (
	component = "whisper-cpp"

	defaultBinary  = "whisper-cli"
	defaultTimeout = 900 * time.Second
)

// Config captures the settings for the local engine.
type Config struct {
	Binary         string
	ModelPath      string
	TimeoutSeconds int
}

// Service transcribes canonical audio with a local whisper.cpp install.
type Service struct {
	cfg     Config
	timeout time.Duration
	runner  func(ctx context.Context, name string, args ...string) (string, error)
}

// NewService creates a whisper.cpp service with the given configuration.
func NewService(cfg Config) *Service {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Service{
		cfg: Config{
			Binary:         binary,
			ModelPath:      strings.TrimSpace(cfg.ModelPath),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		timeout: timeout,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	s.runner = runner
}

// Name identifies this engine in attempts, logs, and health output.
func (s *Service) Name() string {
	return "whisper_cpp"
}

// Model returns the configured model path for logging.
func (s *Service) Model() string {
	return s.cfg.ModelPath
}

// Available reports whether the binary and model file are both present.
func (s *Service) Available(ctx context.Context) bool {
	_ = ctx
	if s == nil || s.cfg.ModelPath == "" {
		return false
	}
	if _, err := exec.LookPath(s.cfg.Binary); err != nil {
		return false
	}
	info, err := os.Stat(s.cfg.ModelPath)
	return err == nil && !info.IsDir()
}

// Transcribe runs whisper-cli over the audio file and returns the text.
// The input should already be canonical 16 kHz mono WAV; whisper.cpp rejects
// other layouts. The transcript side file is removed before returning.
func (s *Service) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "transcribe"
	if s.cfg.ModelPath == "" {
		return "", services.Wrap(services.ErrConfiguration, component, op, "model path required", nil)
	}
	if info, err := os.Stat(s.cfg.ModelPath); err != nil || info.IsDir() {
		return "", services.Wrap(services.ErrConfiguration, component, op,
			fmt.Sprintf("model file %s missing", s.cfg.ModelPath), err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", services.Wrap(services.ErrValidation, component, op, "audio file unreadable", err)
	}

	outputPrefix := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".transcript"
	transcriptPath := outputPrefix + ".txt"
	defer os.Remove(transcriptPath)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := s.buildArgs(audioPath, outputPrefix)
	if _, err := s.run(runCtx, s.cfg.Binary, args...); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, component, op,
				fmt.Sprintf("transcription exceeded %s", s.timeout), err)
		}
		return "", services.Wrap(services.ErrExternalTool, component, op, "whisper-cli failed", err)
	}

	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, component, op, "whisper-cli produced no transcript", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", services.Wrap(services.ErrExternalTool, component, op, "whisper-cli produced an empty transcript", nil)
	}
	return text, nil
}

func (s *Service) buildArgs(audioPath, outputPrefix string) []string {
	return []string{
		"-m", s.cfg.ModelPath,
		"-f", audioPath,
		"-otxt",
		"-of", outputPrefix,
		"-np",
	}
}

func (s *Service) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.runner != nil {
		return s.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(output))
	if err != nil {
		return trimmed, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, trimmed)
	}
	return trimmed, nil
}

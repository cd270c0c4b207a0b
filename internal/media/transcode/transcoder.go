package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"recap/internal/logging"
	"recap/internal/services"
)

const (
	// CanonicalSampleRate is the sample rate every downstream engine expects.
	CanonicalSampleRate = 16000
	// CanonicalChannels is the channel count every downstream engine expects.
	CanonicalChannels = 1

	defaultTimeout = 5 * time.Minute

	// minOutputBytes guards against ffmpeg succeeding with a header-only file.
	minOutputBytes = 128
)

// Options configures canonical-audio conversion.
type Options struct {
	FFmpegBinary string
	WorkDir      string
	Timeout      time.Duration
	// SpeechFilter applies a band-pass filter tuned for voice plus a mild
	// gain boost before encoding.
	SpeechFilter bool
	GainDB       float64
}

// Transcoder normalizes arbitrary audio/video inputs into canonical PCM16
// mono 16 kHz WAV files.
type Transcoder struct {
	opts   Options
	logger *slog.Logger
	runner func(ctx context.Context, name string, args ...string) (string, error)
}

// New creates a Transcoder with the provided options.
func New(opts Options) *Transcoder {
	if strings.TrimSpace(opts.FFmpegBinary) == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Transcoder{opts: opts, logger: logging.NewNop()}
}

// SetLogger attaches a component logger.
func (t *Transcoder) SetLogger(logger *slog.Logger) {
	t.logger = logging.NewComponentLogger(logger, "transcoder")
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcoder) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	t.runner = runner
}

// Normalize converts inputPath into a fresh canonical WAV under the work
// directory and returns its path. The input is never mutated. On any failure
// the partially written output is removed before the error is returned, so a
// caller either receives a usable file or no file at all.
func (t *Transcoder) Normalize(ctx context.Context, inputPath string) (string, error) {
	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return "", services.Wrap(services.ErrValidation, "transcoder", "normalize", "empty input path", nil)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return "", services.Wrap(services.ErrNotFound, "transcoder", "normalize", "input not readable", err)
	}

	workDir := t.opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "transcoder", "normalize", "work directory unavailable", err)
	}

	dest, err := os.CreateTemp(workDir, "canonical-*.wav")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "transcoder", "normalize", "create output file", err)
	}
	destPath := dest.Name()
	if err := dest.Close(); err != nil {
		os.Remove(destPath)
		return "", services.Wrap(services.ErrConfiguration, "transcoder", "normalize", "close output file", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	started := time.Now()
	args := t.buildArgs(inputPath, destPath)
	output, runErr := t.run(runCtx, t.opts.FFmpegBinary, args...)
	if runErr != nil {
		os.Remove(destPath)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "transcoder", "normalize",
				fmt.Sprintf("conversion exceeded %s", t.opts.Timeout), runErr)
		}
		return "", services.Wrap(services.ErrExternalTool, "transcoder", "normalize", "ffmpeg failed", runErr)
	}

	info, statErr := os.Stat(destPath)
	if statErr != nil || info.Size() < minOutputBytes {
		os.Remove(destPath)
		detail := "output file missing"
		if statErr == nil {
			detail = fmt.Sprintf("output too small (%d bytes)", info.Size())
		}
		return "", services.Wrap(services.ErrExternalTool, "transcoder", "normalize", detail, statErr)
	}

	t.logger.Debug("normalized audio",
		logging.String("input", inputPath),
		logging.String("output", destPath),
		logging.Int64("bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("tool_output", strings.TrimSpace(output)),
	)
	return destPath, nil
}

func (t *Transcoder) buildArgs(inputPath, destPath string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-sn",
		"-dn",
		"-ac", fmt.Sprintf("%d", CanonicalChannels),
		"-ar", fmt.Sprintf("%d", CanonicalSampleRate),
	}
	if t.opts.SpeechFilter {
		args = append(args, "-af", speechFilterChain(t.opts.GainDB))
	}
	args = append(args, "-c:a", "pcm_s16le", destPath)
	return args
}

// speechFilterChain trims frequencies outside the voice band and optionally
// boosts gain.
func speechFilterChain(gainDB float64) string {
	chain := "highpass=f=80,lowpass=f=8000"
	if gainDB > 0 {
		chain += fmt.Sprintf(",volume=%.1fdB", gainDB)
	}
	return chain
}

func (t *Transcoder) run(ctx context.Context, name string, args ...string) (string, error) {
	if t.runner != nil {
		return t.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

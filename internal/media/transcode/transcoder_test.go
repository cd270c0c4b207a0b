package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recap/internal/services"
)

func writeFakeWAV(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func newTestTranscoder(t *testing.T, opts Options) *Transcoder {
	t.Helper()
	if opts.WorkDir == "" {
		opts.WorkDir = t.TempDir()
	}
	return New(opts)
}

func TestNormalizeProducesCanonicalArgs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	writeFakeWAV(t, input, 4096)

	transcoder := newTestTranscoder(t, Options{})
	var gotArgs []string
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		gotArgs = args
		// The runner stands in for ffmpeg, so it must fill the output file.
		writeFakeWAV(t, args[len(args)-1], 2048)
		return "", nil
	})

	out, err := transcoder.Normalize(context.Background(), input)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	defer os.Remove(out)

	joined := strings.Join(gotArgs, " ")
	for _, fragment := range []string{"-vn", "-sn", "-dn", "-ac 1", "-ar 16000", "-c:a pcm_s16le"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in args %q", fragment, joined)
		}
	}
	if !strings.HasSuffix(out, ".wav") {
		t.Fatalf("expected wav output, got %s", out)
	}
}

func TestNormalizeArgsAreDeterministic(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	writeFakeWAV(t, input, 4096)

	transcoder := newTestTranscoder(t, Options{SpeechFilter: true, GainDB: 6})
	var first, second string
	run := func(dst *string) {
		transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
			// Strip the per-call output path; everything else must match.
			*dst = strings.Join(args[:len(args)-1], " ")
			writeFakeWAV(t, args[len(args)-1], 2048)
			return "", nil
		})
		out, err := transcoder.Normalize(context.Background(), input)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		os.Remove(out)
	}
	run(&first)
	run(&second)

	if first != second {
		t.Fatalf("args differ between runs:\n%s\n%s", first, second)
	}
	if !strings.Contains(first, "highpass=f=80,lowpass=f=8000,volume=6.0dB") {
		t.Fatalf("expected speech filter chain in %q", first)
	}
}

func TestNormalizeCleansUpOnToolFailure(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	writeFakeWAV(t, input, 4096)

	workDir := t.TempDir()
	transcoder := newTestTranscoder(t, Options{WorkDir: workDir})
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		writeFakeWAV(t, args[len(args)-1], 64)
		return "", errors.New("ffmpeg: exit status 1")
	})

	_, err := transcoder.Normalize(context.Background(), input)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}

	entries, readErr := os.ReadDir(workDir)
	if readErr != nil {
		t.Fatalf("read work dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected partial output removed, found %d entries", len(entries))
	}
}

func TestNormalizeCleansUpOnTrivialOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	writeFakeWAV(t, input, 4096)

	workDir := t.TempDir()
	transcoder := newTestTranscoder(t, Options{WorkDir: workDir})
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		writeFakeWAV(t, args[len(args)-1], 16)
		return "", nil
	})

	_, err := transcoder.Normalize(context.Background(), input)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error for trivial output, got %v", err)
	}
	entries, _ := os.ReadDir(workDir)
	if len(entries) != 0 {
		t.Fatalf("expected trivial output removed, found %d entries", len(entries))
	}
}

func TestNormalizeTimeoutMapsToTimeoutError(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	writeFakeWAV(t, input, 4096)

	transcoder := newTestTranscoder(t, Options{Timeout: 10 * time.Millisecond})
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := transcoder.Normalize(context.Background(), input)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestNormalizeRejectsMissingInput(t *testing.T) {
	transcoder := newTestTranscoder(t, Options{})
	if _, err := transcoder.Normalize(context.Background(), filepath.Join(t.TempDir(), "absent.mp4")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := transcoder.Normalize(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNormalizeNeverMutatesInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	writeFakeWAV(t, input, 4096)
	before, _ := os.Stat(input)

	transcoder := newTestTranscoder(t, Options{})
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		writeFakeWAV(t, args[len(args)-1], 2048)
		return "", nil
	})
	out, err := transcoder.Normalize(context.Background(), input)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	defer os.Remove(out)

	after, _ := os.Stat(input)
	if before.Size() != after.Size() || !before.ModTime().Equal(after.ModTime()) {
		t.Fatal("input file changed during normalization")
	}
}

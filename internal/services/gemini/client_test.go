package gemini

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/genai"

	"recap/internal/services"
)

func writeAudioFixture(t *testing.T, name, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestTranscribeSendsPromptAndAudio(t *testing.T) {
	audioPath := writeAudioFixture(t, "canonical.wav", "RIFF fake audio payload")

	var gotModel string
	var gotParts []*genai.Part
	client := NewClient(
		Config{APIKeys: []string{"key-1"}, Model: "demo-model"},
		WithGenerateFunc(func(ctx context.Context, apiKey, model string, parts []*genai.Part) (string, error) {
			gotModel = model
			gotParts = parts
			return "  transcribed speech  ", nil
		}),
	)

	text, err := client.Transcribe(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if text != "transcribed speech" {
		t.Fatalf("unexpected transcription %q", text)
	}
	if gotModel != "demo-model" {
		t.Fatalf("unexpected model %q", gotModel)
	}
	if len(gotParts) != 2 {
		t.Fatalf("expected prompt and audio parts, got %d parts", len(gotParts))
	}
	if gotParts[0].Text == "" || !strings.Contains(gotParts[0].Text, "verbatim") {
		t.Fatalf("unexpected prompt part %+v", gotParts[0])
	}
	if gotParts[1].InlineData == nil || gotParts[1].InlineData.MIMEType != "audio/wav" {
		t.Fatalf("unexpected audio part %+v", gotParts[1])
	}
	if string(gotParts[1].InlineData.Data) != "RIFF fake audio payload" {
		t.Fatal("audio bytes were not forwarded")
	}
}

func TestTranscribeRotatesKeysOnQuota(t *testing.T) {
	audioPath := writeAudioFixture(t, "audio.wav", "payload")

	var keysSeen []string
	client := NewClient(
		Config{APIKeys: []string{"key-1", "key-2", "key-3"}},
		WithGenerateFunc(func(ctx context.Context, apiKey, model string, parts []*genai.Part) (string, error) {
			keysSeen = append(keysSeen, apiKey)
			if apiKey == "key-1" {
				return "", errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")
			}
			return "rotated transcription", nil
		}),
	)

	text, err := client.Transcribe(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if text != "rotated transcription" {
		t.Fatalf("unexpected transcription %q", text)
	}
	if len(keysSeen) != 2 || keysSeen[0] != "key-1" || keysSeen[1] != "key-2" {
		t.Fatalf("unexpected key order %v", keysSeen)
	}

	// Rotation persists: the next call should start from the working key.
	keysSeen = nil
	if _, err := client.Transcribe(context.Background(), audioPath); err != nil {
		t.Fatalf("second Transcribe returned error: %v", err)
	}
	if len(keysSeen) != 1 || keysSeen[0] != "key-2" {
		t.Fatalf("expected rotation to persist, got %v", keysSeen)
	}
}

func TestTranscribeAllKeysExhausted(t *testing.T) {
	audioPath := writeAudioFixture(t, "audio.wav", "payload")

	var calls int
	client := NewClient(
		Config{APIKeys: []string{"key-1", "key-2"}},
		WithGenerateFunc(func(ctx context.Context, apiKey, model string, parts []*genai.Part) (string, error) {
			calls++
			return "", errors.New("quota exceeded for project")
		}),
	)

	_, err := client.Transcribe(context.Background(), audioPath)
	if err == nil {
		t.Fatal("expected transcription to fail")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exhausted") {
		t.Fatalf("unexpected error %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one call per key, got %d", calls)
	}
}

func TestTranscribeNonQuotaErrorFailsFast(t *testing.T) {
	audioPath := writeAudioFixture(t, "audio.wav", "payload")

	var calls int
	client := NewClient(
		Config{APIKeys: []string{"key-1", "key-2"}},
		WithGenerateFunc(func(ctx context.Context, apiKey, model string, parts []*genai.Part) (string, error) {
			calls++
			return "", errors.New("googleapi: Error 400: API_KEY_INVALID")
		}),
	)

	_, err := client.Transcribe(context.Background(), audioPath)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestTranscribeTimeout(t *testing.T) {
	audioPath := writeAudioFixture(t, "audio.wav", "payload")

	client := NewClient(
		Config{APIKeys: []string{"key-1"}},
		WithGenerateFunc(func(ctx context.Context, apiKey, model string, parts []*genai.Part) (string, error) {
			return "", context.DeadlineExceeded
		}),
	)

	_, err := client.Transcribe(context.Background(), audioPath)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestTranscribeEmptyModelOutput(t *testing.T) {
	audioPath := writeAudioFixture(t, "audio.wav", "payload")

	client := NewClient(
		Config{APIKeys: []string{"key-1"}},
		WithGenerateFunc(func(ctx context.Context, apiKey, model string, parts []*genai.Part) (string, error) {
			return "   ", nil
		}),
	)

	_, err := client.Transcribe(context.Background(), audioPath)
	if err == nil {
		t.Fatal("expected empty transcription to fail")
	}
	if !strings.Contains(err.Error(), "empty transcription") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTranscribeValidatesAudioFile(t *testing.T) {
	client := NewClient(Config{APIKeys: []string{"key-1"}})

	_, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing file, got %v", err)
	}

	_, err = client.Transcribe(context.Background(), writeAudioFixture(t, "empty.wav", ""))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty file, got %v", err)
	}
}

func TestAvailableRequiresKeys(t *testing.T) {
	if NewClient(Config{}).Available(context.Background()) {
		t.Fatal("expected keyless client to be unavailable")
	}
	if NewClient(Config{APIKeys: []string{"  "}}).Available(context.Background()) {
		t.Fatal("expected blank-key client to be unavailable")
	}
	if !NewClient(Config{APIKeys: []string{"key-1"}}).Available(context.Background()) {
		t.Fatal("expected keyed client to be available")
	}
}

func TestMimeTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "audio.wav", want: "audio/wav"},
		{path: "audio.MP3", want: "audio/mpeg"},
		{path: "audio.opus", want: "audio/ogg"},
		{path: "audio.m4a", want: "audio/mp4"},
		{path: "audio.bin", want: "audio/wav"},
	}
	for _, tc := range tests {
		if got := mimeTypeFor(tc.path); got != tc.want {
			t.Fatalf("mimeTypeFor(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

// Package gemini transcribes audio with Google's Gemini models via inline
// audio prompts, rotating across configured API keys on quota errors.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"recap/internal/services"
)

const (
	component = "gemini"

	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 300 * time.Second

	// Inline request payloads are capped by the API at 20 MB; larger audio
	// would need the file upload API, which this engine does not use.
	maxInlineBytes = 20 << 20

	transcribePrompt = "Transcribe this audio recording verbatim. Return only the " +
		"spoken words as plain text, with no timestamps, speaker labels, or commentary."
)

// Config captures the settings required to reach the Gemini API.
type Config struct {
	APIKeys        []string
	Model          string
	TimeoutSeconds int
}

// generateFunc performs one content-generation call with one API key.
type generateFunc func(ctx context.Context, apiKey, model string, parts []*genai.Part) (string, error)

// Client uploads canonical audio inline and returns the transcribed text.
type Client struct {
	cfg      Config
	timeout  time.Duration
	generate generateFunc

	mu     sync.Mutex
	keyIdx int
}

// Option customizes the client.
type Option func(*Client)

// WithGenerateFunc overrides the content-generation call (useful for tests).
func WithGenerateFunc(fn generateFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.generate = fn
		}
	}
}

// NewClient constructs a Gemini transcription client from the supplied
// configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	keys := make([]string, 0, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	client := &Client{
		cfg: Config{
			APIKeys:        keys,
			Model:          model,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		timeout:  timeout,
		generate: generateContent,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name identifies this engine in attempts, logs, and health output.
func (c *Client) Name() string {
	return "gemini"
}

// Available reports whether at least one API key is configured.
func (c *Client) Available(ctx context.Context) bool {
	_ = ctx
	return c != nil && len(c.cfg.APIKeys) > 0
}

// Transcribe sends the audio file inline and returns the transcription text.
// Keys rotate on quota errors; rotation position persists across calls so a
// rate-limited key is not retried first on the next job.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "transcribe"
	if len(c.cfg.APIKeys) == 0 {
		return "", services.Wrap(services.ErrConfiguration, component, op, "no api keys configured", nil)
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, component, op, "read audio file", err)
	}
	if len(data) == 0 {
		return "", services.Wrap(services.ErrValidation, component, op, "audio file is empty", nil)
	}
	if len(data) > maxInlineBytes {
		return "", services.Wrap(services.ErrValidation, component, op,
			fmt.Sprintf("audio file is %d bytes, inline limit is %d", len(data), maxInlineBytes), nil)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		genai.NewPartFromBytes(data, mimeTypeFor(audioPath)),
	}

	attempts := len(c.cfg.APIKeys)
	var lastErr error
	for range attempts {
		key := c.currentKey()

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		text, err := c.generate(callCtx, key, c.cfg.Model, parts)
		cancel()

		if err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				return "", services.Wrap(services.ErrExternalTool, component, op, "model returned an empty transcription", nil)
			}
			return text, nil
		}
		if isQuotaError(err) {
			c.rotateKey()
			lastErr = err
			continue
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, component, op,
				fmt.Sprintf("request exceeded %s", c.timeout), err)
		}
		return "", services.Wrap(services.ErrExternalTool, component, op, "generate content", err)
	}
	return "", services.Wrap(services.ErrTransient, component, op, "all api keys exhausted", lastErr)
}

func (c *Client) currentKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.APIKeys[c.keyIdx%len(c.cfg.APIKeys)]
}

func (c *Client) rotateKey() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keyIdx = (c.keyIdx + 1) % len(c.cfg.APIKeys)
}

func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func mimeTypeFor(audioPath string) string {
	switch strings.ToLower(filepath.Ext(audioPath)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	case ".m4a", ".mp4":
		return "audio/mp4"
	default:
		return "audio/wav"
	}
}

func generateContent(ctx context.Context, apiKey, model string, parts []*genai.Part) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	result, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response")
	}
	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return text.String(), nil
}

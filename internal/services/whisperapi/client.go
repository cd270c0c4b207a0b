// Package whisperapi transcribes audio through a hosted Whisper-compatible
// HTTP endpoint using the OpenAI audio/transcriptions schema.
package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recap/internal/services"
)

const (
	component = "whisper-api"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
	defaultTimeout = 300 * time.Second

	// Hosted transcription endpoints reject uploads above 25 MB.
	maxUploadBytes = 25 << 20
)

// Config captures the settings required to reach the transcription endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client uploads canonical audio and returns the transcribed text.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a hosted Whisper client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

// Name identifies this engine in attempts, logs, and health output.
func (c *Client) Name() string {
	return "whisper_api"
}

// Available reports whether the engine is configured well enough to try.
func (c *Client) Available(ctx context.Context) bool {
	_ = ctx
	return c != nil && c.cfg.APIKey != ""
}

// Transcribe uploads the audio file and returns the transcription text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "transcribe"
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, component, op, "api key required", nil)
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, component, op, "audio file unreadable", err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrValidation, component, op, "audio file is empty", nil)
	}
	if info.Size() > maxUploadBytes {
		return "", services.Wrap(services.ErrValidation, component, op,
			fmt.Sprintf("audio file is %d bytes, upload limit is %d", info.Size(), maxUploadBytes), nil)
	}

	body, contentType, err := c.buildUploadForm(audioPath)
	if err != nil {
		return "", err
	}
	text, err := c.postTranscription(ctx, body, contentType)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrExternalTool, component, op, "endpoint returned an empty transcription", nil)
	}
	return text, nil
}

// The endpoint requires multipart/form-data: audio bytes ride in the "file"
// field, scalar parameters as sibling form fields.
func (c *Client) buildUploadForm(audioPath string) (*bytes.Buffer, string, error) {
	const op = "build upload"
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, component, op, "open audio file", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("model", c.cfg.Model); err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, component, op, "write model field", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, component, op, "write response_format field", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, component, op, "create file field", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", services.Wrap(services.ErrValidation, component, op, "read audio file", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, component, op, "close multipart writer", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func (c *Client) postTranscription(ctx context.Context, body *bytes.Buffer, contentType string) (string, error) {
	const op = "transcribe"
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, component, op, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, component, op,
				fmt.Sprintf("request exceeded %s", c.httpClient.Timeout), err)
		}
		return "", services.Wrap(services.ErrUnavailable, component, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", c.statusError(op, resp)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrExternalTool, component, op, "decode response", err)
	}
	return payload.Text, nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	message := fmt.Sprintf("http %d", resp.StatusCode)
	if readErr == nil {
		var envelope struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			message = fmt.Sprintf("http %d: %s", resp.StatusCode, envelope.Error.Message)
		} else if text := strings.TrimSpace(string(body)); text != "" {
			message = fmt.Sprintf("http %d: %s", resp.StatusCode, text)
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, component, op, message, nil)
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, component, op, message, nil)
	default:
		return services.Wrap(services.ErrExternalTool, component, op, message, nil)
	}
}

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recap/internal/config"
)

const userAgent = "Recap/0.1.0"

// summarySnippetRunes bounds how much of the summary rides in a push body.
const summarySnippetRunes = 200

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyJobCompleted(ctx context.Context, source, engine, summary string) error
	NotifyJobFailed(ctx context.Context, source, stage, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.Completed,
		failed:    cfg.Notifications.Failed,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	completed bool
	failed    bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, source, engine, summary string) error {
	if !n.completed {
		return nil
	}
	source = strings.TrimSpace(source)
	engine = strings.TrimSpace(engine)

	message := fmt.Sprintf("✅ Summary ready: %s", source)
	if engine != "" {
		message = fmt.Sprintf("%s (transcribed by %s)", message, engine)
	}
	if snippet := summarySnippet(summary); snippet != "" {
		message = message + "\n" + snippet
	}

	data := payload{
		title:    "Recap - Summary Ready",
		message:  message,
		tags:     []string{"recap", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, source, stage, message string) error {
	if !n.failed {
		return nil
	}

	var builder strings.Builder
	builder.WriteString("❌ Failed: ")
	builder.WriteString(strings.TrimSpace(source))
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteString(": ")
		builder.WriteString(message)
	}

	data := payload{
		title:    "Recap - Job Failed",
		message:  builder.String(),
		tags:     []string{"recap", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Recap - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"recap", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// summarySnippet collapses whitespace and truncates the summary so a long
// transcript digest never overflows a push notification.
func summarySnippet(summary string) string {
	summary = strings.Join(strings.Fields(summary), " ")
	runes := []rune(summary)
	if len(runes) <= summarySnippetRunes {
		return summary
	}
	return string(runes[:summarySnippetRunes]) + "…"
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string, string) error    { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }

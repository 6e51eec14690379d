package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pdfwhacker/internal/config"
	"pdfwhacker/internal/services"
)

const userAgent = "pdfwhacker/0.1.0"

// Service defines the notification surface exposed to the pipelines.
type Service interface {
	NotifyWatchStarted(ctx context.Context, workingDir string) error
	NotifyFallback(ctx context.Context, file string, outcome services.Outcome, detail string) error
	NotifyMergeCompleted(ctx context.Context, count int, output string, size int64) error
	NotifyMergeFailed(ctx context.Context, count int, outcome services.Outcome) error
	NotifyError(ctx context.Context, err error, context string) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyWatchStarted(ctx context.Context, workingDir string) error {
	data := payload{
		title:    "pdfwhacker - Watching",
		message:  fmt.Sprintf("Watching %s", strings.TrimSpace(workingDir)),
		tags:     []string{"pdfwhacker", "watch", "started"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFallback(ctx context.Context, file string, outcome services.Outcome, detail string) error {
	file = strings.TrimSpace(file)
	var message string
	switch outcome {
	case services.OutcomePasswordProtected:
		message = fmt.Sprintf("🔒 %s is password protected; original copied to output", file)
	case services.OutcomeToolFailure:
		message = fmt.Sprintf("⚠️ Could not compress %s; original copied to output", file)
	case services.OutcomeIneffective:
		message = fmt.Sprintf("%s did not shrink enough; original copied to output", file)
	default:
		message = fmt.Sprintf("%s: %s", file, outcome)
	}
	if detail = strings.TrimSpace(detail); detail != "" {
		message = fmt.Sprintf("%s\n%s", message, detail)
	}
	data := payload{
		title:   "pdfwhacker - Original Kept",
		message: message,
		tags:    []string{"pdfwhacker", "compress", string(outcome)},
	}
	if outcome.Problem() {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMergeCompleted(ctx context.Context, count int, output string, size int64) error {
	data := payload{
		title:   "pdfwhacker - Merged",
		message: fmt.Sprintf("📎 Merged %d files into %s (%d bytes)", count, strings.TrimSpace(output), size),
		tags:    []string{"pdfwhacker", "merge", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMergeFailed(ctx context.Context, count int, outcome services.Outcome) error {
	reason := "unexpected error"
	if outcome == services.OutcomePasswordProtected {
		reason = "one of the files is password protected"
	}
	data := payload{
		title:    "pdfwhacker - Merge Failed",
		message:  fmt.Sprintf("❌ Could not merge %d files: %s. Inputs left in place.", count, reason),
		tags:     []string{"pdfwhacker", "merge", string(outcome)},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "pdfwhacker - Error",
		message:  builder.String(),
		tags:     []string{"pdfwhacker", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "pdfwhacker - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"pdfwhacker", "test"},
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

type noopService struct{}

func (noopService) NotifyWatchStarted(context.Context, string) error { return nil }
func (noopService) NotifyFallback(context.Context, string, services.Outcome, string) error {
	return nil
}
func (noopService) NotifyMergeCompleted(context.Context, int, string, int64) error { return nil }
func (noopService) NotifyMergeFailed(context.Context, int, services.Outcome) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error               { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }

// Noop returns a Service that discards every notification.
func Noop() Service {
	return noopService{}
}

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"romscribe/internal/config"
)

const userAgent = "romscribe/0.1.0"

// RunSummary carries the counts reported when a run finishes.
type RunSummary struct {
	InputDir      string
	Candidates    int
	Generated     int
	Failed        int
	ImagesWritten int
	ImageFailures int
	Duration      time.Duration
	DocumentPath  string
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunFailed(ctx context.Context, err error, inputDir string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc actually delivers anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return !noop
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

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	durationText := summary.Duration.Round(time.Second).String()
	if summary.Duration < time.Second {
		durationText = "under a second"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d roms described", summary.Generated, summary.Candidates)
	if summary.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", summary.Failed)
	}
	if summary.ImagesWritten > 0 || summary.ImageFailures > 0 {
		fmt.Fprintf(&b, "\n%d cover(s) rendered", summary.ImagesWritten)
		if summary.ImageFailures > 0 {
			fmt.Fprintf(&b, ", %d failed", summary.ImageFailures)
		}
	}
	fmt.Fprintf(&b, "\nTook %s", durationText)
	if summary.DocumentPath != "" {
		fmt.Fprintf(&b, "\nFile: %s", summary.DocumentPath)
	}

	data := payload{
		title:   "romscribe - Game List Ready",
		message: b.String(),
		tags:    []string{"romscribe", "run", "completed"},
	}
	if summary.Failed > 0 || summary.ImageFailures > 0 {
		data.title = "romscribe - Game List Ready (with errors)"
		data.tags = append(data.tags, "warning")
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, err error, inputDir string) error {
	var builder strings.Builder
	builder.WriteString("Run failed")
	if inputDir = strings.TrimSpace(inputDir); inputDir != "" {
		builder.WriteString(" for ")
		builder.WriteString(inputDir)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "romscribe - Error",
		message:  builder.String(),
		tags:     []string{"romscribe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "romscribe - Test",
		message:  "Notification system test",
		tags:     []string{"romscribe", "test"},
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

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error  { return nil }
func (noopService) NotifyRunFailed(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dbqueue/internal/config"
)

const userAgent = "dbqueue/0.1.0"

// SweepSummary is the notification view of one maintenance pass.
type SweepSummary struct {
	Table       string
	RowsRemoved int64
	Duration    time.Duration
}

// Service defines the notification surface used by the daemon.
type Service interface {
	NotifySweepFailed(ctx context.Context, table string, err error) error
	NotifySweepRecovered(ctx context.Context, summary SweepSummary) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Maintenance.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Maintenance.NtfyRequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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

func (n *ntfyService) NotifySweepFailed(ctx context.Context, table string, err error) error {
	var builder strings.Builder
	builder.WriteString("Maintenance sweep failed")
	if table = strings.TrimSpace(table); table != "" {
		builder.WriteString(" for table ")
		builder.WriteString(table)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "dbqueue - Sweep Failed",
		message:  builder.String(),
		tags:     []string{"dbqueue", "sweep", "error"},
		priority: "high",
	})
}

func (n *ntfyService) NotifySweepRecovered(ctx context.Context, summary SweepSummary) error {
	duration := summary.Duration.Round(time.Millisecond)
	if duration < 0 {
		duration = 0
	}
	return n.send(ctx, payload{
		title:   "dbqueue - Sweep Recovered",
		message: fmt.Sprintf("Maintenance sweep for %s succeeded: %d claimed rows removed in %s", summary.Table, summary.RowsRemoved, duration),
		tags:    []string{"dbqueue", "sweep", "recovered"},
	})
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

func (noopService) NotifySweepFailed(context.Context, string, error) error   { return nil }
func (noopService) NotifySweepRecovered(context.Context, SweepSummary) error { return nil }

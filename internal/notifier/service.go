package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docwatch/internal/config"
)

const userAgent = "docwatch/0.1.0"

// Service delivers a text message to a destination. The tracker composes the
// message; this layer only moves bytes.
type Service interface {
	Send(ctx context.Context, destination, text string) error
}

// NewService builds a notifier backed by ntfy when configured.
// When no server is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	server := strings.TrimSpace(cfg.Notifications.NtfyServer)
	if server == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		server:       server,
		defaultTopic: strings.TrimSpace(cfg.Notifications.DefaultTopic),
		client:       &http.Client{Timeout: timeout},
	}
}

// NewNtfyService constructs an ntfy notifier directly; tests use this with an
// httptest server.
func NewNtfyService(server, defaultTopic string, client *http.Client) Service {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ntfyService{
		server:       strings.TrimRight(strings.TrimSpace(server), "/"),
		defaultTopic: strings.TrimSpace(defaultTopic),
		client:       client,
	}
}

type ntfyService struct {
	server       string
	defaultTopic string
	client       *http.Client
}

// Send publishes text to the destination topic. An empty destination falls
// back to the configured default topic.
func (n *ntfyService) Send(ctx context.Context, destination, text string) error {
	if n == nil || n.client == nil {
		return nil
	}
	topic := strings.TrimSpace(destination)
	if topic == "" {
		topic = n.defaultTopic
	}
	if topic == "" {
		return fmt.Errorf("send notification: no destination topic")
	}

	endpoint := strings.TrimRight(n.server, "/") + "/" + topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", "docwatch")

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

func (noopService) Send(context.Context, string, string) error { return nil }

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that the configuration is internally consistent and that
// required external endpoints are present and well-formed.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paperless.URL) == "" {
		problems = append(problems, "paperless.url is required")
	} else if err := validateURL(c.Paperless.URL); err != nil {
		problems = append(problems, fmt.Sprintf("paperless.url: %v", err))
	}
	if strings.TrimSpace(c.Paperless.Token) == "" {
		problems = append(problems, "paperless.token is required")
	}

	if c.AI.URL != "" {
		if err := validateURL(c.AI.URL); err != nil {
			problems = append(problems, fmt.Sprintf("ai.url: %v", err))
		}
		if strings.TrimSpace(c.AI.Token) == "" {
			problems = append(problems, "ai.token is required when ai.url is set")
		}
	}

	if c.Notifications.DefaultTopic != "" {
		if err := validateURL(c.Notifications.NtfyServer); err != nil {
			problems = append(problems, fmt.Sprintf("notifications.ntfy_server: %v", err))
		}
	}

	if c.Tracker.TickIntervalSeconds < 1 {
		problems = append(problems, "tracker.tick_interval_seconds must be at least 1")
	}
	for _, budget := range []struct {
		name  string
		value int
	}{
		{"tracker.upload_attempt_limit", c.Tracker.UploadAttemptLimit},
		{"tracker.visibility_timeout", c.Tracker.VisibilityTimeout},
		{"tracker.trigger_retry_limit", c.Tracker.TriggerRetryLimit},
		{"tracker.enrichment_timeout", c.Tracker.EnrichmentTimeout},
		{"tracker.recent_page_size", c.Tracker.RecentPageSize},
		{"tracker.recency_window_minutes", c.Tracker.RecencyWindowMins},
		{"tracker.snapshot_ttl_hours", c.Tracker.SnapshotTTLHours},
	} {
		if budget.value < 1 {
			problems = append(problems, fmt.Sprintf("%s must be at least 1", budget.name))
		}
	}

	if c.Ingest.Enabled && strings.TrimSpace(c.Paths.InboxDir) == "" {
		problems = append(problems, "paths.inbox_dir is required when ingest is enabled")
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func validateURL(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

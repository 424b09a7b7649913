package testsupport

import (
	"path/filepath"
	"testing"

	"docwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")
	cfg.Paperless.URL = "https://paperless.test"
	cfg.Paperless.Token = "test-token"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAI enables the enrichment service on the test config.
func WithAI(url, token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.AI.URL = url
		cfg.AI.Token = token
	}
}

// WithNtfy points notifications at the provided server and topic.
func WithNtfy(server, topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyServer = server
		cfg.Notifications.DefaultTopic = topic
	}
}

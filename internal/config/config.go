package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	InboxDir string `toml:"inbox_dir"`
}

// Paperless contains connection settings for the document management service.
type Paperless struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// AI contains connection settings for the optional enrichment side-service.
// An empty URL disables enrichment entirely.
type AI struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// Notifications contains settings for the push notification sink.
type Notifications struct {
	NtfyServer     string `toml:"ntfy_server"`
	DefaultTopic   string `toml:"default_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Tracker contains timing and retry budgets for the progress tracker.
// The budgets are expressed in ticks of TickInterval seconds.
type Tracker struct {
	TickIntervalSeconds int `toml:"tick_interval_seconds"`
	UploadAttemptLimit  int `toml:"upload_attempt_limit"`
	VisibilityTimeout   int `toml:"visibility_timeout"`
	TriggerRetryLimit   int `toml:"trigger_retry_limit"`
	EnrichmentTimeout   int `toml:"enrichment_timeout"`
	RecentPageSize      int `toml:"recent_page_size"`
	RecencyWindowMins   int `toml:"recency_window_minutes"`
	SnapshotTTLHours    int `toml:"snapshot_ttl_hours"`
}

// Ingest contains settings for the watch-folder submission source.
type Ingest struct {
	Enabled       bool `toml:"enabled"`
	SettleSeconds int  `toml:"settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for docwatch.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and inbox directories
//   - Paperless: document service URL and API token
//   - AI: enrichment side-service URL and API key (optional)
//   - Notifications: ntfy server, topic, and timeouts
//   - Tracker: tick interval and per-state retry budgets
//   - Ingest: watch-folder submission settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Paperless     Paperless     `toml:"paperless"`
	AI            AI            `toml:"ai"`
	Notifications Notifications `toml:"notifications"`
	Tracker       Tracker       `toml:"tracker"`
	Ingest        Ingest        `toml:"ingest"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/docwatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("docwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Ingest.Enabled && strings.TrimSpace(c.Paths.InboxDir) != "" {
		dirs = append(dirs, c.Paths.InboxDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AIEnabled reports whether the enrichment side-service is configured.
// Absence of configuration is a valid branch, not an error.
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.AI.URL) != "" && strings.TrimSpace(c.AI.Token) != ""
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.InboxDir != "" {
		if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
			return err
		}
	}
	c.Paperless.URL = strings.TrimRight(strings.TrimSpace(c.Paperless.URL), "/")
	c.Paperless.Token = strings.TrimSpace(c.Paperless.Token)
	c.AI.URL = strings.TrimRight(strings.TrimSpace(c.AI.URL), "/")
	c.AI.Token = strings.TrimSpace(c.AI.Token)
	c.Notifications.NtfyServer = strings.TrimRight(strings.TrimSpace(c.Notifications.NtfyServer), "/")
	c.Notifications.DefaultTopic = strings.TrimSpace(c.Notifications.DefaultTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

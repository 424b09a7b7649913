package config

const (
	defaultDataDir          = "~/.local/share/docwatch"
	defaultLogDir           = "~/.local/share/docwatch/logs"
	defaultInboxDir         = "~/docwatch/inbox"
	defaultRequestTimeout   = 30
	defaultNtfyServer       = "https://ntfy.sh"
	defaultNtfyTimeout      = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultTickInterval     = 1
	defaultUploadAttempts   = 30
	defaultVisibilityTicks  = 60
	defaultTriggerRetries   = 5
	defaultEnrichmentTicks  = 120
	defaultRecentPageSize   = 50
	defaultRecencyWindowMin = 10
	defaultSnapshotTTLHours = 24
	defaultSettleSeconds    = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			InboxDir: defaultInboxDir,
		},
		Paperless: Paperless{
			RequestTimeout: defaultRequestTimeout,
		},
		Notifications: Notifications{
			NtfyServer:     defaultNtfyServer,
			RequestTimeout: defaultNtfyTimeout,
		},
		Tracker: Tracker{
			TickIntervalSeconds: defaultTickInterval,
			UploadAttemptLimit:  defaultUploadAttempts,
			VisibilityTimeout:   defaultVisibilityTicks,
			TriggerRetryLimit:   defaultTriggerRetries,
			EnrichmentTimeout:   defaultEnrichmentTicks,
			RecentPageSize:      defaultRecentPageSize,
			RecencyWindowMins:   defaultRecencyWindowMin,
			SnapshotTTLHours:    defaultSnapshotTTLHours,
		},
		Ingest: Ingest{
			Enabled:       false,
			SettleSeconds: defaultSettleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

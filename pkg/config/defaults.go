package config

// Default values applied by ApplyDefaults to a freshly parsed Config.
const (
	DefaultPort = 8787
	DefaultHost = "127.0.0.1"

	DefaultAuthHeader = "authorization"

	DefaultConcurrencyMaxWorkers = 4
	// ApplyDefaults does not apply the next two: a zero maxQueueSize or
	// requestTimeout stays zero, meaning unbounded.
	DefaultConcurrencyMaxQueueSize   = 100
	DefaultConcurrencyRequestTimeout = 30.0

	DefaultLoggingDatabase          = ".ccrelay/ccrelay.db"
	DefaultLoggingDriver            = "embedded"
	DefaultLoggingLevel             = "info"
	DefaultLoggingFormat            = "json"
	DefaultLoggingRetentionDays     = 30
	DefaultLoggingRetentionSchedule = "0 3 * * *"
	DefaultLoggingMaxFileSizeBytes  = 50 * 1024 * 1024

	// OfficialProviderID is the id every RouterConfig must carry; it is
	// the last-resort target when no provider is routed and never
	// deletable via the management API.
	OfficialProviderID = "official"

	// DefaultUpstreamTimeout bounds the HTTP proxy executor's call to the
	// upstream, independent of any queue-wait timeout.
	DefaultUpstreamTimeout = 300 // seconds

	// WriteQueueBatchSize and WriteQueueFlushInterval bound the logger
	// driver's batching of insertLog calls.
	WriteQueueBatchSize     = 50
	WriteQueueFlushInterval = 1.0 // seconds

	// DefaultLogQueryLimit and MaxLogQueryLimit bound queryLogs.
	DefaultLogQueryLimit = 100
	MaxLogQueryLimit     = 10000
)

// ApplyDefaults fills in zero-valued fields of cfg with sensible defaults.
// It mutates cfg in place and never overrides an explicitly set value.
func ApplyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = OfficialProviderID
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	if _, ok := cfg.Providers[OfficialProviderID]; !ok {
		cfg.Providers[OfficialProviderID] = ProviderConfig{
			Name:         "Official",
			BaseURL:      "https://api.anthropic.com",
			Mode:         "passthrough",
			ProviderType: "anthropic",
			AuthHeader:   DefaultAuthHeader,
			Enabled:      true,
		}
	}
	for id, p := range cfg.Providers {
		if p.Name == "" {
			p.Name = id
		}
		if p.AuthHeader == "" {
			p.AuthHeader = DefaultAuthHeader
		}
		if p.ProviderType == "" {
			p.ProviderType = "anthropic"
		}
		if p.Mode == "" {
			p.Mode = "passthrough"
		}
		cfg.Providers[id] = p
	}

	if cfg.Concurrency.MaxWorkers == 0 {
		cfg.Concurrency.MaxWorkers = DefaultConcurrencyMaxWorkers
	}

	for i, rq := range cfg.RouteQueues {
		if rq.Name == "" {
			rq.Name = rq.Pattern
		}
		if rq.MaxWorkers == 0 {
			rq.MaxWorkers = DefaultConcurrencyMaxWorkers
		}
		cfg.RouteQueues[i] = rq
	}

	if cfg.Logging.Database == "" {
		cfg.Logging.Database = DefaultLoggingDatabase
	}
	if cfg.Logging.Driver == "" {
		cfg.Logging.Driver = DefaultLoggingDriver
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Logging.RetentionDays == 0 {
		cfg.Logging.RetentionDays = DefaultLoggingRetentionDays
	}
	if cfg.Logging.RetentionSchedule == "" {
		cfg.Logging.RetentionSchedule = DefaultLoggingRetentionSchedule
	}
	if cfg.Logging.MaxFileSizeBytes == 0 {
		cfg.Logging.MaxFileSizeBytes = DefaultLoggingMaxFileSizeBytes
	}
}

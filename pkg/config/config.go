package config

import "time"

// Config is the root configuration structure for the proxy. It corresponds
// directly to the on-disk RouterConfig shape: providers, routing rules,
// concurrency tuning, and logging.
type Config struct {
	// Port is the TCP port the dataplane and management API listen on.
	Port int `yaml:"port"`

	// Host is the bind address for the listener. Defaults to "127.0.0.1".
	Host string `yaml:"host"`

	// Providers maps provider id to its configuration. Exactly one entry
	// named "official" must exist; it is the last-resort fallback target.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// DefaultProvider is the id of the provider selected when no explicit
	// switch has happened yet.
	DefaultProvider string `yaml:"defaultProvider"`

	// Routing holds the path-pattern lists that drive block/route/passthrough
	// decisions.
	Routing RoutingConfig `yaml:"routing"`

	// Concurrency tunes the default queue. Optional; a nil/zero value
	// disables bounded concurrency (direct execution).
	Concurrency ConcurrencyConfig `yaml:"concurrency"`

	// RouteQueues lists additional per-path-pattern queues evaluated before
	// the default queue.
	RouteQueues []RouteQueueConfig `yaml:"routeQueues"`

	// Logging controls the request/response logger driver.
	Logging LoggingConfig `yaml:"logging"`
}

// ProviderConfig is the on-disk shape of a Provider (see pkg/router.Provider
// for the runtime form with a compiled model map).
type ProviderConfig struct {
	// Name is a human-readable label; defaults to the provider id.
	Name string `yaml:"name"`

	// BaseURL is the upstream's root URL, no trailing slash.
	BaseURL string `yaml:"baseUrl"`

	// Mode is either "passthrough" (forward client credentials unchanged)
	// or "inject" (substitute the configured APIKey).
	Mode string `yaml:"mode"`

	// ProviderType is either "anthropic" or "openai"; it selects whether
	// requests are translated before being forwarded.
	ProviderType string `yaml:"providerType"`

	// APIKey is the credential injected in "inject" mode. May contain
	// ${VAR} tokens, expanded from the environment at load time.
	APIKey string `yaml:"apiKey"`

	// AuthHeader names the header the key is carried in. Defaults to
	// "authorization"; any other name is sent as a raw value (no "Bearer"
	// prefix), matching the convention used for "x-api-key".
	AuthHeader string `yaml:"authHeader"`

	// ModelMap is an ordered list of exact/wildcard model rewrite rules.
	ModelMap []ModelMapEntry `yaml:"modelMap"`

	// VLModelMap is consulted instead of ModelMap when the request body
	// contains image content.
	VLModelMap []ModelMapEntry `yaml:"vlModelMap"`

	// Headers are applied last, overriding anything copied or injected by
	// prepareHeaders.
	Headers map[string]string `yaml:"headers"`

	// Enabled toggles whether this provider is selectable via /switch.
	Enabled bool `yaml:"enabled"`
}

// ModelMapEntry is one rule in a ModelMap/VLModelMap list. Pattern may use
// "*"/"?" glob wildcards; entries are tried in order, exact matches first.
type ModelMapEntry struct {
	Pattern string `yaml:"pattern"`
	Model   string `yaml:"model"`
}

// RoutingConfig holds the path-pattern lists consulted by the router.
type RoutingConfig struct {
	// Proxy paths are always routed through the current provider.
	Proxy []string `yaml:"proxy"`

	// Passthrough paths bypass routing (and thus provider selection).
	Passthrough []string `yaml:"passthrough"`

	// Block rules are checked first, only while the provider is in
	// "inject" mode.
	Block []BlockRule `yaml:"block"`

	// OpenAIBlock rules are checked after Block, only for providers whose
	// type is "openai".
	OpenAIBlock []BlockRule `yaml:"openaiBlock"`
}

// BlockRule short-circuits a matching request with a canned response.
type BlockRule struct {
	Path     string `yaml:"path"`
	Response string `yaml:"response"`
	Code     int    `yaml:"code"`
}

// ConcurrencyConfig tunes the default work queue.
type ConcurrencyConfig struct {
	// Enabled turns on bounded concurrency. When false, tasks execute
	// directly without passing through a queue.
	Enabled bool `yaml:"enabled"`

	// MaxWorkers bounds the number of tasks executing concurrently.
	MaxWorkers int `yaml:"maxWorkers"`

	// MaxQueueSize bounds the number of tasks waiting for a permit.
	// Zero means unbounded.
	MaxQueueSize int `yaml:"maxQueueSize"`

	// RequestTimeout bounds only the queue-wait phase, in seconds. Zero
	// means tasks may wait indefinitely.
	RequestTimeout float64 `yaml:"requestTimeout"`
}

// RouteQueueConfig describes one additional queue matched by a compiled
// regular expression against the request path.
type RouteQueueConfig struct {
	// Name labels the queue in stats output; defaults to Pattern.
	Name string `yaml:"name"`

	// Pattern is a regular expression, not a glob. An invalid pattern
	// makes the queue unreachable (it matches nothing) rather than
	// failing configuration load.
	Pattern string `yaml:"pattern"`

	MaxWorkers     int     `yaml:"maxWorkers"`
	MaxQueueSize   int     `yaml:"maxQueueSize"`
	RequestTimeout float64 `yaml:"requestTimeout"`
}

// LoggingConfig controls the request/response logger driver.
type LoggingConfig struct {
	// Enabled turns the logger driver on. When false, insertLog/
	// updateLogCompleted are no-ops and the management log endpoints
	// return empty results.
	Enabled bool `yaml:"enabled"`

	// Database is the path to the embedded SQLite store. Defaults to
	// ".ccrelay/ccrelay.db", relative to the working directory.
	Database string `yaml:"database"`

	// Driver selects the storage driver: "embedded" (mattn/go-sqlite3)
	// or "relational" (modernc.org/sqlite, cgo-free). Defaults to
	// "embedded".
	Driver string `yaml:"driver"`

	// Level names a minimum level (debug, info, warn, error). It is
	// validated and defaulted but not read when the process logger is
	// built; that logger's level comes from the -v flag.
	Level string `yaml:"level"`

	// Format names "json" or "text". It is validated and defaulted but
	// not read; the process logger always writes JSON.
	Format string `yaml:"format"`

	// RetentionDays bounds how long request/response records are kept by
	// cleanOldLogs.
	RetentionDays int `yaml:"retentionDays"`

	// RetentionSchedule is a cron expression controlling how often
	// cleanOldLogs runs in the background.
	RetentionSchedule string `yaml:"retentionSchedule"`

	// MaxFileSizeBytes triggers a trim-to-newest-1000 pass on the
	// embedded store once exceeded.
	MaxFileSizeBytes int64 `yaml:"maxFileSizeBytes"`
}

const (
	// HeartbeatInterval is how often a leader refreshes its server lock.
	HeartbeatInterval = 3 * time.Second

	// HeartbeatTimeout is how stale a lock's heartbeat may be before a
	// challenger treats the holder as dead.
	HeartbeatTimeout = 10 * time.Second
)

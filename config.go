package steward

import "time"

// Config holds configuration for the Steward engine.
type Config struct {
	// MaxParentDepth is the maximum depth for parent-link traversal.
	// Defaults to 10.
	MaxParentDepth int `json:"max_parent_depth,omitempty"`

	// InitMaxAttempts bounds the startup ping retry loop.
	// Defaults to 5.
	InitMaxAttempts int `json:"init_max_attempts,omitempty"`

	// InitRetryInterval is the initial backoff interval between startup
	// ping attempts. Defaults to 500ms; the interval grows exponentially.
	InitRetryInterval time.Duration `json:"init_retry_interval,omitempty"`

	// CacheTTL is the time-to-live for cached check results.
	// Zero means no caching even when a Cache is configured.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// EnableCheckLog persists an audit entry for every check decision.
	// Disabled by default.
	EnableCheckLog bool `json:"enable_check_log,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxParentDepth:    10,
		InitMaxAttempts:   5,
		InitRetryInterval: 500 * time.Millisecond,
	}
}

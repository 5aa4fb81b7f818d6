package extension

// Config holds the Steward extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.steward" or "steward" keys).
type Config struct {
	// MaxParentDepth controls the maximum depth for parent-link traversal.
	MaxParentDepth int `json:"max_parent_depth" mapstructure:"max_parent_depth" yaml:"max_parent_depth"`

	// InitMaxAttempts bounds the startup store ping retry loop.
	InitMaxAttempts int `json:"init_max_attempts" mapstructure:"init_max_attempts" yaml:"init_max_attempts"`

	// EnableCheckLog persists an audit entry for every check decision.
	EnableCheckLog bool `json:"enable_check_log" mapstructure:"enable_check_log" yaml:"enable_check_log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxParentDepth:  10,
		InitMaxAttempts: 5,
	}
}

package config

// Default values for configuration options. Empty app fields are filled by
// the dropbox package (client identifier, system locale, token endpoint).
const (
	defaultLogLevel = "warn"
	defaultTimeout  = "5m"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{LogLevel: defaultLogLevel},
		Network: NetworkConfig{Timeout: defaultTimeout},
	}
}

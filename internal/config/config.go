// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for dropbox-go. Values are layered:
// defaults, then the config file, then environment variables, then CLI flags.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	App     AppConfig     `toml:"app"`
	Logging LoggingConfig `toml:"logging"`
	Network NetworkConfig `toml:"network"`
}

// AppConfig identifies the registered Dropbox app and the request settings
// sent with every call. The secret may also come from the environment so it
// never has to be written to disk.
type AppConfig struct {
	AppKey           string `toml:"app_key"`
	AppSecret        string `toml:"app_secret"`
	ClientIdentifier string `toml:"client_identifier"`
	Locale           string `toml:"locale"`
	TokenURL         string `toml:"token_url"`
}

// LoggingConfig controls the log level of the CLI's stderr handler.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// NetworkConfig controls the HTTP client.
type NetworkConfig struct {
	Timeout string `toml:"timeout"`
}

// CLIOverrides holds values from CLI flags. Empty means "not specified".
type CLIOverrides struct {
	ConfigPath string // --config
}

// Resolved is the effective configuration after every layer is applied.
type Resolved struct {
	ConfigPath string
	TokenPath  string

	AppKey           string
	AppSecret        string
	ClientIdentifier string
	Locale           string
	TokenURL         string

	LogLevel string
	Timeout  time.Duration

	// Token is a pre-authorized access token from DROPBOX_GO_TOKEN. When set
	// it takes precedence over the saved token file.
	Token string
}

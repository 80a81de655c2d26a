package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "DROPBOX_GO_CONFIG"
	EnvAppKey    = "DROPBOX_GO_APP_KEY"
	EnvAppSecret = "DROPBOX_GO_APP_SECRET"
	EnvToken     = "DROPBOX_GO_TOKEN"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // DROPBOX_GO_CONFIG: override config file path
	AppKey     string // DROPBOX_GO_APP_KEY
	AppSecret  string // DROPBOX_GO_APP_SECRET
	Token      string // DROPBOX_GO_TOKEN: pre-authorized access token
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		AppKey:     os.Getenv(EnvAppKey),
		AppSecret:  os.Getenv(EnvAppSecret),
		Token:      os.Getenv(EnvToken),
	}
}

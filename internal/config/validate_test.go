package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad log level", func(c *Config) { c.Logging.LogLevel = "trace" }, "log_level"},
		{"empty log level", func(c *Config) { c.Logging.LogLevel = "" }, "log_level"},
		{"unparseable timeout", func(c *Config) { c.Network.Timeout = "forever" }, "timeout"},
		{"timeout too short", func(c *Config) { c.Network.Timeout = "10ms" }, "at least 1s"},
		{"secret without key", func(c *Config) { c.App.AppSecret = "S" }, "app_secret"},
		{"relative token url", func(c *Config) { c.App.TokenURL = "/oauth2/token" }, "token_url"},
		{"non-http token url", func(c *Config) { c.App.TokenURL = "ftp://x/token" }, "token_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.LogLevel = "loud"
	cfg.Network.Timeout = "x"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "timeout")
}

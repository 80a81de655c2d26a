package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.AppKey != "" {
		cfg.App.AppKey = env.AppKey
	}

	if env.AppSecret != "" {
		cfg.App.AppSecret = env.AppSecret
	}

	// Validate already rejected unparseable timeouts.
	timeout, _ := time.ParseDuration(cfg.Network.Timeout)

	return &Resolved{
		ConfigPath:       cfgPath,
		TokenPath:        DefaultTokenPath(),
		AppKey:           cfg.App.AppKey,
		AppSecret:        cfg.App.AppSecret,
		ClientIdentifier: cfg.App.ClientIdentifier,
		Locale:           cfg.App.Locale,
		TokenURL:         cfg.App.TokenURL,
		LogLevel:         cfg.Logging.LogLevel,
		Timeout:          timeout,
		Token:            env.Token,
	}, nil
}

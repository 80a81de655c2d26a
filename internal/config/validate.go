package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const minTimeout = 1 * time.Second

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks all configuration values and returns every error found,
// so users can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateApp(&cfg.App)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

func validateApp(a *AppConfig) []error {
	var errs []error

	if a.AppSecret != "" && a.AppKey == "" {
		errs = append(errs, errors.New("app_secret: set without app_key"))
	}

	if a.TokenURL != "" {
		u, err := url.Parse(a.TokenURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errs = append(errs, fmt.Errorf("token_url: must be an absolute http(s) URL, got %q", a.TokenURL))
		}
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	if !validLogLevels[l.LogLevel] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		return []error{fmt.Errorf("timeout: %w", err)}
	}

	if d < minTimeout {
		return []error{fmt.Errorf("timeout: must be at least %s, got %s", minTimeout, d)}
	}

	return nil
}

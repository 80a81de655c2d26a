package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHome = "/home/testuser"

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestConfigDir(t *testing.T) {
	assert.Equal(t, filepath.Join(testHome, ".config", appName), configDir(platformLinux, testHome, env(nil)))
	assert.Equal(t, filepath.Join("/xdg", appName),
		configDir(platformLinux, testHome, env(map[string]string{"XDG_CONFIG_HOME": "/xdg"})))
	assert.Equal(t, filepath.Join(testHome, "Library", "Application Support", appName),
		configDir(platformDarwin, testHome, env(nil)))
	assert.Equal(t, filepath.Join(testHome, ".config", appName), configDir("freebsd", testHome, env(nil)))
}

func TestDataDir(t *testing.T) {
	assert.Equal(t, filepath.Join(testHome, ".local", "share", appName), dataDir(platformLinux, testHome, env(nil)))
	assert.Equal(t, filepath.Join("/data", appName),
		dataDir(platformLinux, testHome, env(map[string]string{"XDG_DATA_HOME": "/data"})))
	assert.Equal(t, filepath.Join(testHome, "Library", "Application Support", appName),
		dataDir(platformDarwin, testHome, env(nil)))
}

func TestDefaultPaths(t *testing.T) {
	assert.True(t, strings.HasSuffix(DefaultConfigPath(), filepath.Join(appName, "config.toml")))
	assert.True(t, strings.HasSuffix(DefaultTokenPath(), filepath.Join(appName, "token.json")))
}

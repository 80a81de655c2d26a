// Package testutil provides shared environment helpers for the E2E tests.
// It depends only on stdlib so that E2E tests (which cannot import
// internal/) can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AllowlistEnv names the comma-separated list of account emails the E2E
// suite may touch.
const AllowlistEnv = "DROPBOX_GO_ALLOWED_TEST_ACCOUNTS"

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ValidateAllowlist crashes the process if AllowlistEnv is not set or if the
// account named by accountEnvVar is not in it.
func ValidateAllowlist(accountEnvVar string) {
	if err := CheckAllowlist(os.Getenv(AllowlistEnv), accountEnvVar, os.Getenv(accountEnvVar)); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL: "+err.Error())
		fmt.Fprintln(os.Stderr, "Example: "+AllowlistEnv+"=tester@example.com")
		os.Exit(1)
	}
}

// CheckAllowlist reports whether account (read from accountEnvVar) appears in
// the comma-separated allowlist. Emails compare case-insensitively.
func CheckAllowlist(allowlist, accountEnvVar, account string) error {
	if allowlist == "" {
		return fmt.Errorf("%s not set", AllowlistEnv)
	}

	if account == "" {
		return fmt.Errorf("%s not set", accountEnvVar)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.EqualFold(strings.TrimSpace(a), account) {
			return nil
		}
	}

	return fmt.Errorf("%s=%q is not in %s=%q", accountEnvVar, account, AllowlistEnv, allowlist)
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

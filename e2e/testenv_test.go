//go:build e2e

package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Variables the E2E suite reads. The token is passed to the binary through
// the environment and never written to the isolated data directory.
const (
	envAccount   = "DROPBOX_GO_TEST_ACCOUNT"
	envToken     = "DROPBOX_GO_TOKEN"
	envAppKey    = "DROPBOX_GO_APP_KEY"
	envAppSecret = "DROPBOX_GO_APP_SECRET"
	envConfig    = "DROPBOX_GO_CONFIG"
)

// requireEnv crashes the process unless every named variable is set.
func requireEnv(names ...string) {
	for _, n := range names {
		if os.Getenv(n) == "" {
			fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", n)
			fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
			os.Exit(1)
		}
	}
}

// setupIsolation points HOME and the XDG directories at a temp root so the
// binary can never read or write a production config or token file.
// Returns a cleanup function that removes the temp root.
func setupIsolation() func() {
	os.Unsetenv(envConfig)

	tempRoot, err := os.MkdirTemp("", "dropbox-go-e2e-isolation-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: creating isolation temp dir: %v\n", err)
		os.Exit(1)
	}

	dirs := map[string]string{
		"HOME":            filepath.Join(tempRoot, "home"),
		"XDG_CONFIG_HOME": filepath.Join(tempRoot, "config"),
		"XDG_DATA_HOME":   filepath.Join(tempRoot, "data"),
	}

	for env, d := range dirs {
		if mkErr := os.MkdirAll(d, 0o755); mkErr != nil {
			fmt.Fprintf(os.Stderr, "FATAL: creating dir %s: %v\n", d, mkErr)
			os.Exit(1)
		}

		os.Setenv(env, d)
	}

	verifyIsolation(tempRoot)

	fmt.Fprintf(os.Stderr, "E2E isolation: HOME=%s XDG_DATA_HOME=%s\n", dirs["HOME"], dirs["XDG_DATA_HOME"])

	return func() {
		os.RemoveAll(tempRoot)
	}
}

// verifyIsolation hard-crashes the process if a production path could leak
// into test execution. Runs before m.Run() so no test executes otherwise.
func verifyIsolation(tempRoot string) {
	crash := func(msg string) {
		fmt.Fprintf(os.Stderr, "FATAL: isolation check failed: %s\n", msg)
		os.Exit(1)
	}

	if os.Getenv(envConfig) != "" {
		crash(envConfig + " is set and would leak a production config into tests")
	}

	for _, v := range []string{"HOME", "XDG_DATA_HOME", "XDG_CONFIG_HOME"} {
		val := os.Getenv(v)
		if val == "" || !strings.HasPrefix(val, tempRoot) {
			crash(v + " not overridden to temp dir")
		}
	}

	homeDir, _ := os.UserHomeDir()
	if !strings.HasPrefix(homeDir, tempRoot) {
		crash("os.UserHomeDir() returned " + homeDir + ", not under " + tempRoot)
	}
}

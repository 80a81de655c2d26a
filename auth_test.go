package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/dropbox-go/internal/config"
	"github.com/tonimelisma/dropbox-go/internal/dropbox"
	"github.com/tonimelisma/dropbox-go/internal/tokenfile"
)

func (e *cliEnv) savedToken() *tokenfile.File {
	e.t.Helper()

	tf, err := tokenfile.New(e.fs, config.DefaultTokenPath()).Load()
	require.NoError(e.t, err)

	return tf
}

func TestLogin_Token(t *testing.T) {
	env := newCLIEnv(t, testConfig)

	_, stderr := env.mustRun("login", "--token", "T")
	assert.Contains(t, stderr, "Linked account Test User (test@example.com).")

	tf := env.savedToken()
	require.NotNil(t, tf)
	assert.Equal(t, "T", tf.Token.AccessToken)
	assert.Equal(t, "dbid:42", tf.Meta.AccountID)
	assert.False(t, tf.Meta.LinkedAt.IsZero())
}

func TestLogin_TokenRejected(t *testing.T) {
	env := newCLIEnv(t, testConfig)

	_, _, err := env.run("login", "--token", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.Nil(t, env.savedToken())
}

func TestLogin_Web(t *testing.T) {
	env := newCLIEnv(t, testConfig)

	env.mustRun("login")

	tf := env.savedToken()
	require.NotNil(t, tf)
	assert.Equal(t, "T", tf.Token.AccessToken)
}

func TestLogin_WebBadCode(t *testing.T) {
	env := newCLIEnv(t, testConfig)
	env.opts = append(env.opts, dropbox.WithCodeProvider(staticCode("stale")))

	_, _, err := env.run("login")
	require.Error(t, err)
	assert.ErrorIs(t, err, dropbox.ErrAuth)
	assert.Nil(t, env.savedToken())
}

func TestLogin_Code(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "abc", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"T","token_type":"bearer"}`))
	}))
	defer srv.Close()

	env := newCLIEnv(t, testConfig+"token_url = \""+srv.URL+"/1/oauth2/token\"\n")

	env.mustRun("login", "--code", "abc")

	tf := env.savedToken()
	require.NotNil(t, tf)
	assert.Equal(t, "T", tf.Token.AccessToken)
}

func TestLogin_CodeAndTokenExclusive(t *testing.T) {
	env := newCLIEnv(t, testConfig)

	_, _, err := env.run("login", "--code", "a", "--token", "b")
	require.Error(t, err)
}

func TestLogin_MissingCredentials(t *testing.T) {
	env := newCLIEnv(t, "")

	_, _, err := env.run("login", "--token", "T")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing app key and app secret")
	assert.Contains(t, err.Error(), config.EnvAppKey)
}

func TestLogin_CredentialsFromEnv(t *testing.T) {
	env := newCLIEnv(t, "")
	t.Setenv(config.EnvAppKey, "K")
	t.Setenv(config.EnvAppSecret, "S")

	env.mustRun("login", "--token", "T")
	require.NotNil(t, env.savedToken())
}

func TestLogout(t *testing.T) {
	env := newCLIEnv(t, testConfig)

	_, stderr := env.mustRun("logout")
	assert.Contains(t, stderr, "Not logged in.")

	env.mustRun("login", "--token", "T")

	_, stderr = env.mustRun("logout")
	assert.Contains(t, stderr, "Logged out.")
	assert.Nil(t, env.savedToken())
}

func TestWhoami(t *testing.T) {
	env := newCLIEnv(t, testConfig)

	_, _, err := env.run("whoami")
	require.ErrorIs(t, err, errNotLoggedIn)

	env.mustRun("login", "--token", "T")

	stdout, _ := env.mustRun("whoami")
	assert.Contains(t, stdout, "Test User (test@example.com)")
	assert.Contains(t, stdout, "dbid:42")

	stdout, _ = env.mustRun("--json", "whoami")

	var out whoamiOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, whoamiOutput{AccountID: "dbid:42", DisplayName: "Test User", Email: "test@example.com"}, out)
}

func TestWhoami_EnvToken(t *testing.T) {
	env := newCLIEnv(t, testConfig)
	t.Setenv(config.EnvToken, "T")

	stdout, _ := env.mustRun("whoami")
	assert.Contains(t, stdout, "Test User")
	assert.Nil(t, env.savedToken(), "env token is not persisted")
}

func TestWhoami_RejectedSavedToken(t *testing.T) {
	env := newCLIEnv(t, testConfig)
	require.NoError(t, tokenfile.New(env.fs, config.DefaultTokenPath()).Save("revoked", tokenfile.Meta{}))

	_, _, err := env.run("whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.Contains(t, err.Error(), "login")
}

func TestAccountLabel(t *testing.T) {
	assert.Equal(t, "A (a@b)", accountLabel(dropbox.Account{DisplayName: "A", Email: "a@b"}))
	assert.Equal(t, "A", accountLabel(dropbox.Account{DisplayName: "A"}))
	assert.Equal(t, "a@b", accountLabel(dropbox.Account{Email: "a@b"}))
	assert.Equal(t, "dbid:1", accountLabel(dropbox.Account{ID: "dbid:1"}))
}

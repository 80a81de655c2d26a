package dropbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// AuthorizeWeb runs the interactive flow:
//  1. Builds the authorization URL from the app credentials
//  2. Tries to open it in a browser (failure is logged, not fatal)
//  3. Reads the authorization code from the configured CodeProvider
//  4. Exchanges the code for an access token via the backend
//  5. Links a client and returns the Session
//
// Every failure after step 2 is returned as a KindAuth error carrying the cause.
func (f *Facade) AuthorizeWeb(ctx context.Context) (*Session, error) {
	authURL := f.backend.AuthURL()

	f.logger.Info("starting web authorization")
	f.launchBrowser(authURL)

	code, err := f.prompt.AuthCode(ctx, authURL)
	if err != nil {
		return nil, newError(KindAuth, "prompt", "", err)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, newError(KindAuth, "prompt", "", ErrEmptyCode)
	}

	token, err := f.backend.FinishAuth(ctx, code)
	if err != nil {
		f.logger.Warn("authorization code rejected", slog.String("error", err.Error()))
		return nil, newError(KindAuth, "exchange", "", err)
	}

	sess, err := f.link(ctx, token)
	if err != nil {
		return nil, newError(KindAuth, "account", "", err)
	}

	return sess, nil
}

// AuthorizeCode exchanges a previously obtained authorization code at the
// token endpoint and links a client with the resulting token. Exchange
// failures are KindTokenExchange; a token the API then rejects is KindAuth.
func (f *Facade) AuthorizeCode(ctx context.Context, code string) (*Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, newError(KindTokenExchange, "exchange", "", ErrEmptyCode)
	}

	f.logger.Info("exchanging authorization code")

	token, err := f.exchangeCode(ctx, code)
	if err != nil {
		f.logger.Warn("token exchange failed", slog.String("error", err.Error()))
		return nil, newError(KindTokenExchange, "exchange", "", err)
	}

	sess, err := f.link(ctx, token)
	if err != nil {
		return nil, newError(KindAuth, "account", "", err)
	}

	return sess, nil
}

// AuthorizeToken validates a caller-supplied access token with one account
// lookup. It reports failure through the boolean rather than an error; the
// cause is logged. On failure the returned Session is nil.
func (f *Facade) AuthorizeToken(ctx context.Context, token string) (*Session, bool) {
	if strings.TrimSpace(token) == "" {
		f.logger.Warn("access token rejected", slog.String("error", "empty token"))
		return nil, false
	}

	sess, err := f.link(ctx, token)
	if err != nil {
		f.logger.Warn("access token rejected", slog.String("error", err.Error()))
		return nil, false
	}

	return sess, true
}

// exchangeCode posts code, grant_type, client_id and client_secret as a
// form to the token endpoint and returns the access_token from the JSON reply.
func (f *Facade) exchangeCode(ctx context.Context, code string) (string, error) {
	cfg := &oauth2.Config{
		ClientID:     f.creds.AppKey,
		ClientSecret: f.creds.AppSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  f.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	tok, err := cfg.Exchange(context.WithValue(ctx, oauth2.HTTPClient, f.httpClient), code)
	if err != nil {
		return "", err
	}

	if tok.AccessToken == "" {
		return "", fmt.Errorf("dropbox: token response missing access_token")
	}

	return tok.AccessToken, nil
}

// link is the point all three flows converge on: bind a handle to the token
// and confirm it with an account lookup.
func (f *Facade) link(ctx context.Context, token string) (*Session, error) {
	handle := f.backend.NewHandle(token)

	acct, err := handle.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("dropbox: fetching account info: %w", err)
	}

	id := uuid.NewString()
	logger := f.logger.With(slog.String("session", id))

	logger.Info("linked account",
		slog.String("display_name", acct.DisplayName),
		slog.String("account_id", acct.ID),
	)

	return &Session{
		id:      id,
		token:   token,
		handle:  handle,
		account: *acct,
		fs:      f.fs,
		logger:  logger,
	}, nil
}

// launchBrowser tries to open authURL. On failure the URL is logged so the
// user can open it by hand; the code prompt also shows it.
func (f *Facade) launchBrowser(authURL string) {
	if f.openURL == nil {
		return
	}

	if err := f.openURL(authURL); err != nil {
		f.logger.Warn("failed to open browser",
			slog.String("url", authURL),
			slog.String("error", err.Error()),
		)
	}
}

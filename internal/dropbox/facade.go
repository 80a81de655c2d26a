package dropbox

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/afero"
)

// DefaultTokenURL is the endpoint AuthorizeCode posts authorization codes to.
const DefaultTokenURL = "https://api.dropbox.com/1/oauth2/token"

// Facade holds the app credentials and request config and hands out a
// Session from whichever authorization flow succeeds. It keeps no mutable
// state, so one Facade may be shared across goroutines.
type Facade struct {
	creds      Credentials
	cfg        RequestConfig
	backend    Backend
	prompt     CodeProvider
	openURL    func(string) error
	tokenURL   string
	httpClient *http.Client
	fs         afero.Fs
	logger     *slog.Logger
}

// Option customizes a Facade.
type Option func(*Facade)

// WithBackend replaces the SDK backend (tests, alternate providers).
func WithBackend(b Backend) Option {
	return func(f *Facade) { f.backend = b }
}

// WithCodeProvider sets how AuthorizeWeb obtains the authorization code.
func WithCodeProvider(p CodeProvider) Option {
	return func(f *Facade) { f.prompt = p }
}

// WithBrowser sets the function used to open the authorization URL. A nil
// opener skips the browser step.
func WithBrowser(open func(string) error) Option {
	return func(f *Facade) { f.openURL = open }
}

// WithTokenURL overrides DefaultTokenURL.
func WithTokenURL(u string) Option {
	return func(f *Facade) { f.tokenURL = u }
}

// WithHTTPClient sets the client for token exchange and the SDK backend.
// The request-config headers are layered on top of its transport.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Facade) { f.httpClient = c }
}

// WithFs sets the local filesystem used by sessions for upload and download.
func WithFs(fs afero.Fs) Option {
	return func(f *Facade) { f.fs = fs }
}

// New creates a Facade. Missing options default to the Dropbox SDK backend,
// a console prompt on stdin, the platform browser, and the OS filesystem.
func New(creds Credentials, cfg RequestConfig, logger *slog.Logger, opts ...Option) *Facade {
	f := &Facade{
		creds:    creds,
		cfg:      cfg.withDefaults(),
		openURL:  OpenBrowser,
		tokenURL: DefaultTokenURL,
		logger:   gatedLogger(logger).With(slog.String("component", "dropbox")),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.httpClient == nil {
		f.httpClient = &http.Client{}
	}

	f.httpClient = wrapHTTPClient(f.httpClient, f.cfg)

	if f.backend == nil {
		f.backend = NewSDKBackend(f.creds, f.httpClient)
	}

	if f.prompt == nil {
		f.prompt = NewConsolePrompt(os.Stdin, os.Stderr)
	}

	if f.fs == nil {
		f.fs = afero.NewOsFs()
	}

	return f
}

// AppKey returns the app key the facade was built with.
func (f *Facade) AppKey() string {
	return f.creds.AppKey
}

// RequestConfig returns the effective request config.
func (f *Facade) RequestConfig() RequestConfig {
	return f.cfg
}

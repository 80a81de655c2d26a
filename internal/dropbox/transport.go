package dropbox

import (
	"net/http"
	"time"
)

// defaultHTTPTimeout bounds a single request, including body transfer.
const defaultHTTPTimeout = 5 * time.Minute

// headerTransport stamps the client identifier and locale onto every request.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	language  string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)

	if r.Header.Get("Accept-Language") == "" {
		r.Header.Set("Accept-Language", t.language)
	}

	return t.base.RoundTrip(r)
}

// NewHTTPClient returns an HTTP client carrying cfg's identifier and locale.
// A zero timeout selects the default.
func NewHTTPClient(cfg RequestConfig, timeout time.Duration) *http.Client {
	return wrapHTTPClient(&http.Client{Timeout: timeout}, cfg)
}

// wrapHTTPClient layers the request-config headers onto client's transport.
func wrapHTTPClient(client *http.Client, cfg RequestConfig) *http.Client {
	cfg = cfg.withDefaults()

	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	if _, ok := base.(*headerTransport); ok {
		return client
	}

	timeout := client.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	return &http.Client{
		Transport: &headerTransport{
			base:      base,
			userAgent: cfg.ClientIdentifier,
			language:  cfg.LanguageTag(),
		},
		CheckRedirect: client.CheckRedirect,
		Jar:           client.Jar,
		Timeout:       timeout,
	}
}

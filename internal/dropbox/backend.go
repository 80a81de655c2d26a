package dropbox

import (
	"context"
	"io"
)

// Backend is the storage provider capability set the facade delegates to.
// SDKBackend is the real implementation; tests use fakes.
type Backend interface {
	// AuthURL returns the URL where the user authorizes the app and receives
	// a one-time code.
	AuthURL() string
	// FinishAuth exchanges an authorization code for an access token.
	FinishAuth(ctx context.Context, code string) (string, error)
	// NewHandle binds a client to an access token. It does not touch the
	// network; the token is checked by the first call.
	NewHandle(token string) Handle
}

// Handle is an authenticated client. Errors for missing remote paths wrap
// ErrNotFound.
type Handle interface {
	Account(ctx context.Context) (*Account, error)
	Upload(ctx context.Context, path string, mode WriteMode, size int64, r io.Reader) (*FileMetadata, error)
	// Download writes the content of path at revision rev (latest if empty) to w.
	Download(ctx context.Context, path, rev string, w io.Writer) (*FileMetadata, error)
	ListFolder(ctx context.Context, path string) ([]EntryMetadata, error)
	ShareableURL(ctx context.Context, path string) (string, error)
}

package dropbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	sdk "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/sharing"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"golang.org/x/oauth2"
)

// Endpoint is the Dropbox OAuth2 endpoint used by the web flow.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.dropbox.com/oauth2/authorize",
	TokenURL: "https://api.dropboxapi.com/oauth2/token",
}

// SDKBackend implements Backend with the Dropbox Go SDK.
type SDKBackend struct {
	oauth  *oauth2.Config
	client *http.Client
}

// NewSDKBackend creates a backend for the given app. client carries
// transport settings; bearer tokens are added per handle.
func NewSDKBackend(creds Credentials, client *http.Client) *SDKBackend {
	if client == nil {
		client = http.DefaultClient
	}

	return &SDKBackend{
		oauth: &oauth2.Config{
			ClientID:     creds.AppKey,
			ClientSecret: creds.AppSecret,
			Endpoint:     Endpoint,
		},
		client: client,
	}
}

// AuthURL returns the no-redirect authorization URL: Dropbox shows the code
// to the user instead of redirecting.
func (b *SDKBackend) AuthURL() string {
	return b.oauth.AuthCodeURL("")
}

// FinishAuth exchanges code at the OAuth2 token endpoint.
func (b *SDKBackend) FinishAuth(ctx context.Context, code string) (string, error) {
	tok, err := b.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, b.client), code)
	if err != nil {
		return "", fmt.Errorf("dropbox: finishing authorization: %w", err)
	}

	return tok.AccessToken, nil
}

// NewHandle builds SDK clients bound to token.
func (b *SDKBackend) NewHandle(token string) Handle {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, b.client)
	authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	cfg := sdk.Config{
		Token:    token,
		LogLevel: sdk.LogOff,
		Client:   authed,
	}

	return &sdkHandle{
		files:   files.New(cfg),
		users:   users.New(cfg),
		sharing: sharing.New(cfg),
	}
}

// sdkHandle adapts the SDK namespaces to Handle. The SDK calls take no
// context, so cancellation is checked before each call and otherwise
// bounded by the HTTP client timeout.
type sdkHandle struct {
	files   files.Client
	users   users.Client
	sharing sharing.Client
}

func (h *sdkHandle) Account(ctx context.Context) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acct, err := h.users.GetCurrentAccount()
	if err != nil {
		return nil, classifyAPIError(err)
	}

	out := &Account{ID: acct.AccountId, Email: acct.Email}
	if acct.Name != nil {
		out.DisplayName = acct.Name.DisplayName
	}

	return out, nil
}

func (h *sdkHandle) Upload(
	ctx context.Context, path string, mode WriteMode, size int64, r io.Reader,
) (*FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	arg := files.NewUploadArg(path)
	arg.Mode = sdkWriteMode(mode)
	// Add mode never replaces: the server picks a free name on conflict.
	arg.Autorename = mode.Kind == WriteModeAdd

	res, err := h.files.Upload(arg, io.LimitReader(r, size))
	if err != nil {
		return nil, classifyAPIError(err)
	}

	return fileMetadata(res), nil
}

func (h *sdkHandle) Download(ctx context.Context, path, rev string, w io.Writer) (*FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	arg := files.NewDownloadArg(path)
	arg.Rev = rev

	res, content, err := h.files.Download(arg)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	defer content.Close()

	if _, err := io.Copy(w, content); err != nil {
		return nil, fmt.Errorf("dropbox: streaming %s: %w", path, err)
	}

	return fileMetadata(res), nil
}

func (h *sdkHandle) ListFolder(ctx context.Context, path string) ([]EntryMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The API spells the root as the empty string.
	if path == rootPath {
		path = ""
	}

	res, err := h.files.ListFolder(files.NewListFolderArg(path))
	if err != nil {
		return nil, classifyAPIError(err)
	}

	entries := entryMetadata(res.Entries)

	for res.HasMore {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err = h.files.ListFolderContinue(files.NewListFolderContinueArg(res.Cursor))
		if err != nil {
			return nil, classifyAPIError(err)
		}

		entries = append(entries, entryMetadata(res.Entries)...)
	}

	return entries, nil
}

func (h *sdkHandle) ShareableURL(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	res, err := h.sharing.CreateSharedLinkWithSettings(sharing.NewCreateSharedLinkWithSettingsArg(path))
	if err == nil {
		return sharedLinkURL(res), nil
	}

	if !strings.HasPrefix(err.Error(), "shared_link_already_exists") {
		return "", classifyAPIError(err)
	}

	// A link exists already; return it instead of failing.
	links, listErr := h.sharing.ListSharedLinks(&sharing.ListSharedLinksArg{Path: path, DirectOnly: true})
	if listErr != nil {
		return "", classifyAPIError(listErr)
	}

	for _, l := range links.Links {
		if u := sharedLinkURL(l); u != "" {
			return u, nil
		}
	}

	return "", fmt.Errorf("dropbox: shared link for %s exists but was not listed", path)
}

func sdkWriteMode(m WriteMode) *files.WriteMode {
	switch m.Kind {
	case WriteModeOverwrite:
		return &files.WriteMode{Tagged: sdk.Tagged{Tag: files.WriteModeOverwrite}}
	case WriteModeUpdate:
		return &files.WriteMode{Tagged: sdk.Tagged{Tag: files.WriteModeUpdate}, Update: m.Rev}
	default:
		return &files.WriteMode{Tagged: sdk.Tagged{Tag: files.WriteModeAdd}}
	}
}

func fileMetadata(m *files.FileMetadata) *FileMetadata {
	if m == nil {
		return &FileMetadata{}
	}

	return &FileMetadata{
		ID:             m.Id,
		Name:           m.Name,
		PathDisplay:    m.PathDisplay,
		PathLower:      m.PathLower,
		Size:           int64(m.Size), //nolint:gosec // file sizes fit in int64
		Rev:            m.Rev,
		ClientModified: m.ClientModified,
		ServerModified: m.ServerModified,
		ContentHash:    m.ContentHash,
	}
}

func entryMetadata(entries []files.IsMetadata) []EntryMetadata {
	out := make([]EntryMetadata, 0, len(entries))

	for _, e := range entries {
		switch m := e.(type) {
		case *files.FileMetadata:
			out = append(out, EntryMetadata{
				Name:        m.Name,
				PathDisplay: m.PathDisplay,
				Size:        int64(m.Size), //nolint:gosec // file sizes fit in int64
				Rev:         m.Rev,
				Modified:    m.ServerModified,
			})
		case *files.FolderMetadata:
			out = append(out, EntryMetadata{
				Name:        m.Name,
				PathDisplay: m.PathDisplay,
				IsFolder:    true,
			})
		case *files.DeletedMetadata:
			out = append(out, EntryMetadata{
				Name:        m.Name,
				PathDisplay: m.PathDisplay,
				IsDeleted:   true,
			})
		}
	}

	return out
}

func sharedLinkURL(md sharing.IsSharedLinkMetadata) string {
	switch m := md.(type) {
	case *sharing.FileLinkMetadata:
		return m.Url
	case *sharing.FolderLinkMetadata:
		return m.Url
	case *sharing.SharedLinkMetadata:
		return m.Url
	default:
		return ""
	}
}

// classifyAPIError wraps ErrNotFound around SDK errors whose summary reports
// a missing path ("path/not_found/..", "path_lookup/not_found/..").
func classifyAPIError(err error) error {
	if strings.Contains(err.Error(), "not_found") {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return fmt.Errorf("dropbox: api: %w", err)
}

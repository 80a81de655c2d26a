package dropbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/tonimelisma/dropbox-go/pkg/contenthash"
)

// fakeBackend accepts exactly one token and one authorization code.
type fakeBackend struct {
	authURL    string
	validCode  string
	validToken string
	handle     *fakeHandle

	mu       sync.Mutex
	finished []string
	handles  []string
}

func newFakeBackend(token string) *fakeBackend {
	return &fakeBackend{
		authURL:    "https://auth.example/authorize?client_id=K",
		validCode:  "good-code",
		validToken: token,
		handle:     newFakeHandle(),
	}
}

func (b *fakeBackend) AuthURL() string { return b.authURL }

func (b *fakeBackend) FinishAuth(_ context.Context, code string) (string, error) {
	b.mu.Lock()
	b.finished = append(b.finished, code)
	b.mu.Unlock()

	if code != b.validCode {
		return "", errors.New("invalid_grant: code doesn't exist or has expired")
	}

	return b.validToken, nil
}

func (b *fakeBackend) NewHandle(token string) Handle {
	b.mu.Lock()
	b.handles = append(b.handles, token)
	b.mu.Unlock()

	if token != b.validToken {
		return &fakeHandle{accountErr: errors.New("invalid_access_token")}
	}

	return b.handle
}

// uploadCall records one Upload invocation.
type uploadCall struct {
	path    string
	mode    WriteMode
	size    int64
	content string
}

// fakeHandle is an in-memory remote tree keyed by clean path.
type fakeHandle struct {
	accountErr error
	uploadErr  error
	listErr    error
	linkErr    error
	// failAfter makes Download write this many bytes and then fail.
	failAfter int
	// wrongHash makes Upload and Download report a content hash that does
	// not match the bytes.
	wrongHash bool

	mu      sync.Mutex
	files   map[string][]byte
	uploads []uploadCall
	links   map[string]string
	listed  int
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		files:     make(map[string][]byte),
		links:     make(map[string]string),
		failAfter: -1,
	}
}

func (h *fakeHandle) Account(_ context.Context) (*Account, error) {
	if h.accountErr != nil {
		return nil, h.accountErr
	}

	return &Account{ID: "dbid:1", DisplayName: "Test User", Email: "test@example.com"}, nil
}

func (h *fakeHandle) Upload(_ context.Context, p string, mode WriteMode, size int64, r io.Reader) (*FileMetadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.uploads = append(h.uploads, uploadCall{path: p, mode: mode, size: size, content: string(data)})

	if h.uploadErr != nil {
		return nil, h.uploadErr
	}

	h.files[p] = data

	return &FileMetadata{
		ID:             "id:" + p,
		Name:           path.Base(p),
		PathDisplay:    p,
		PathLower:      p,
		Size:           int64(len(data)),
		Rev:            fmt.Sprintf("rev%d", len(h.uploads)),
		ServerModified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ContentHash:    h.hashOf(data),
	}, nil
}

func (h *fakeHandle) Download(_ context.Context, p, _ string, w io.Writer) (*FileMetadata, error) {
	h.mu.Lock()
	data, ok := h.files[p]
	h.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: path/not_found/", ErrNotFound)
	}

	if h.failAfter >= 0 {
		_, _ = w.Write(data[:h.failAfter])
		return nil, errors.New("connection reset")
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	return &FileMetadata{
		Name:        path.Base(p),
		PathDisplay: p,
		Size:        int64(len(data)),
		Rev:         "rev1",
		ContentHash: h.hashOf(data),
	}, nil
}

func (h *fakeHandle) hashOf(data []byte) string {
	if h.wrongHash {
		data = append([]byte("x"), data...)
	}

	sum, err := contenthash.FromReader(bytes.NewReader(data))
	if err != nil {
		panic(err)
	}

	return sum
}

func (h *fakeHandle) ListFolder(_ context.Context, _ string) ([]EntryMetadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.listed++

	if h.listErr != nil {
		return nil, h.listErr
	}

	out := make([]EntryMetadata, 0, len(h.files))
	for p, data := range h.files {
		out = append(out, EntryMetadata{Name: path.Base(p), PathDisplay: p, Size: int64(len(data))})
	}

	return out, nil
}

func (h *fakeHandle) ShareableURL(_ context.Context, p string) (string, error) {
	if h.linkErr != nil {
		return "", h.linkErr
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.files[p]; !ok {
		return "", fmt.Errorf("%w: path/not_found/", ErrNotFound)
	}

	u := "https://www.dropbox.com/s/abc" + p
	h.links[p] = u

	return u, nil
}

// countingFs wraps an afero.Fs and counts Close calls per opened path.
type countingFs struct {
	afero.Fs

	mu     sync.Mutex
	closes map[string]int
	// writeErr, if set, is returned by every Write on created files.
	writeErr error
}

func newCountingFs(base afero.Fs) *countingFs {
	return &countingFs{Fs: base, closes: make(map[string]int)}
}

func (c *countingFs) Open(name string) (afero.File, error) {
	f, err := c.Fs.Open(name)
	if err != nil {
		return nil, err
	}

	return &countingFile{File: f, fs: c, name: name}, nil
}

func (c *countingFs) Create(name string) (afero.File, error) {
	f, err := c.Fs.Create(name)
	if err != nil {
		return nil, err
	}

	return &countingFile{File: f, fs: c, name: name}, nil
}

func (c *countingFs) closeCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closes[name]
}

type countingFile struct {
	afero.File
	fs   *countingFs
	name string
}

func (f *countingFile) Close() error {
	f.fs.mu.Lock()
	f.fs.closes[f.name]++
	f.fs.mu.Unlock()

	return f.File.Close()
}

func (f *countingFile) Write(p []byte) (int, error) {
	if f.fs.writeErr != nil {
		return 0, f.fs.writeErr
	}

	return f.File.Write(p)
}

// newTestFacade builds a facade over backend with an in-memory filesystem
// and no browser.
func newTestFacade(t *testing.T, backend Backend, fs afero.Fs, opts ...Option) *Facade {
	t.Helper()

	base := []Option{
		WithBackend(backend),
		WithFs(fs),
		WithBrowser(nil),
	}

	return New(Credentials{AppKey: "K", AppSecret: "S"}, RequestConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)), append(base, opts...)...)
}

// writeFile creates a file with content in fs.
func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()

	if err := fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := afero.WriteFile(fs, name, []byte(content), os.FileMode(0o644)); err != nil {
		t.Fatal(err)
	}
}

package dropbox

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/dropbox-go/pkg/contenthash"
)

// rootPath is listed before every download.
const rootPath = "/"

// Session is an authorized connection. It is returned by the Facade's
// authorization flows and is immutable afterwards.
type Session struct {
	id      string
	token   string
	handle  Handle
	account Account
	fs      afero.Fs
	logger  *slog.Logger
}

// ID identifies the session in log records.
func (s *Session) ID() string { return s.id }

// AccessToken returns the token the session was authorized with.
func (s *Session) AccessToken() string { return s.token }

// Account returns the linked account as reported at authorization time.
func (s *Session) Account() Account { return s.account }

// Upload stores localPath at "/" + its base name, never overwriting.
func (s *Session) Upload(ctx context.Context, localPath string) (*FileMetadata, error) {
	return s.UploadWithMode(ctx, localPath, DefaultRemotePath(localPath), AddMode())
}

// UploadTo stores localPath at remotePath, never overwriting.
func (s *Session) UploadTo(ctx context.Context, localPath, remotePath string) (*FileMetadata, error) {
	return s.UploadWithMode(ctx, localPath, remotePath, AddMode())
}

// UploadWithMode stores localPath at remotePath using mode. The local file is
// opened right before the transfer and closed exactly once, whether or not
// the transfer succeeds.
func (s *Session) UploadWithMode(
	ctx context.Context, localPath, remotePath string, mode WriteMode,
) (*FileMetadata, error) {
	dest, err := cleanRemotePath(remotePath)
	if err != nil {
		return nil, newError(KindUpload, "remote", remotePath, err)
	}

	f, err := s.fs.Open(localPath)
	if err != nil {
		return nil, newError(KindUpload, "open", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newError(KindUpload, "stat", localPath, err)
	}

	if info.IsDir() {
		return nil, newError(KindUpload, "open", localPath, errors.New("is a directory"))
	}

	s.logger.Info("uploading file",
		slog.String("local", localPath),
		slog.String("remote", dest),
		slog.String("mode", mode.String()),
		slog.Int64("size", info.Size()),
	)

	h := contenthash.New()

	md, err := s.handle.Upload(ctx, dest, mode, info.Size(), io.TeeReader(f, h))
	if err != nil {
		s.logger.Error("upload failed",
			slog.String("remote", dest),
			slog.String("error", err.Error()),
		)

		return nil, newError(KindUpload, "remote", dest, err)
	}

	if err := verifyHash(h, md.ContentHash); err != nil {
		s.logger.Error("upload hash mismatch",
			slog.String("remote", md.PathDisplay),
			slog.String("error", err.Error()),
		)

		return nil, newError(KindUpload, "verify", dest, err)
	}

	s.logger.Info("uploaded",
		slog.String("remote", md.PathDisplay),
		slog.Int64("size", md.Size),
		slog.String("rev", md.Rev),
		slog.Time("server_modified", md.ServerModified),
	)

	return md, nil
}

// partialSuffix marks a download in progress. The target path is only
// replaced once the transfer has completed and verified.
const partialSuffix = ".partial"

// Download writes the latest revision of remotePath to localPath. The root
// listing it logs first is diagnostic only; a listing failure is logged and
// ignored. Bytes go to localPath + ".partial" and are renamed over localPath
// only after the transfer and hash check succeed, so a failed download
// leaves an existing localPath untouched.
func (s *Session) Download(ctx context.Context, remotePath, localPath string) (*FileMetadata, error) {
	src, err := cleanRemotePath(remotePath)
	if err != nil {
		return nil, newError(KindDownload, "remote", remotePath, err)
	}

	s.logRootListing(ctx)

	partialPath := localPath + partialSuffix

	f, err := s.fs.Create(partialPath)
	if err != nil {
		return nil, newError(KindDownload, "create", localPath, err)
	}

	s.logger.Info("downloading file",
		slog.String("remote", src),
		slog.String("local", localPath),
	)

	h := contenthash.New()

	md, dlErr := s.handle.Download(ctx, src, "", io.MultiWriter(f, h))
	closeErr := f.Close()

	if dlErr != nil {
		s.removePartial(partialPath)
		s.logger.Error("download failed",
			slog.String("remote", src),
			slog.String("error", dlErr.Error()),
		)

		return nil, newError(KindDownload, "remote", src, dlErr)
	}

	if closeErr != nil {
		s.removePartial(partialPath)
		return nil, newError(KindDownload, "close", localPath, closeErr)
	}

	if err := verifyHash(h, md.ContentHash); err != nil {
		s.removePartial(partialPath)
		s.logger.Error("download hash mismatch",
			slog.String("remote", src),
			slog.String("error", err.Error()),
		)

		return nil, newError(KindDownload, "verify", src, err)
	}

	if err := s.fs.Rename(partialPath, localPath); err != nil {
		s.removePartial(partialPath)
		return nil, newError(KindDownload, "rename", localPath, err)
	}

	s.logger.Info("downloaded",
		slog.String("remote", md.PathDisplay),
		slog.Int64("size", md.Size),
		slog.String("rev", md.Rev),
	)

	return md, nil
}

// PublicLink returns a shareable URL for remotePath. Failures come back as
// KindLink errors (also matching ErrNotFound for a missing path).
func (s *Session) PublicLink(ctx context.Context, remotePath string) (string, error) {
	p, err := cleanRemotePath(remotePath)
	if err != nil {
		return "", newError(KindLink, "remote", remotePath, err)
	}

	url, err := s.handle.ShareableURL(ctx, p)
	if err != nil {
		s.logger.Warn("unable to get shareable URL",
			slog.String("remote", p),
			slog.String("error", err.Error()),
		)

		return "", newError(KindLink, "remote", p, err)
	}

	s.logger.Info("shareable URL created", slog.String("remote", p))

	return url, nil
}

// List returns the entries of a remote folder. A blank path lists the root.
// Failures come back as KindList errors (also matching ErrNotFound for a
// missing folder).
func (s *Session) List(ctx context.Context, remotePath string) ([]EntryMetadata, error) {
	p := rootPath
	if strings.Trim(remotePath, "/") != "" {
		p = path.Clean("/" + remotePath)
	}

	entries, err := s.handle.ListFolder(ctx, p)
	if err != nil {
		s.logger.Warn("listing folder failed",
			slog.String("remote", p),
			slog.String("error", err.Error()),
		)

		return nil, newError(KindList, "remote", p, err)
	}

	s.logger.Info("listed folder", slog.String("remote", p), slog.Int("count", len(entries)))

	return entries, nil
}

func (s *Session) logRootListing(ctx context.Context) {
	entries, err := s.handle.ListFolder(ctx, rootPath)
	if err != nil {
		s.logger.Warn("listing root failed", slog.String("error", err.Error()))
		return
	}

	s.logger.Info("files in the root path", slog.Int("count", len(entries)))

	for _, e := range entries {
		s.logger.Info("root entry",
			slog.String("name", e.Name),
			slog.String("path", e.PathDisplay),
			slog.Bool("folder", e.IsFolder),
			slog.Int64("size", e.Size),
			slog.String("rev", e.Rev),
		)
	}
}

// verifyHash compares the running hash with the server's hex digest. An
// empty digest (folders, some backends) is not checked.
func verifyHash(h hash.Hash, want string) error {
	if want == "" {
		return nil
	}

	if got := hex.EncodeToString(h.Sum(nil)); got != want {
		return fmt.Errorf("%w: local %s, remote %s", ErrHashMismatch, got, want)
	}

	return nil
}

func (s *Session) removePartial(localPath string) {
	if err := s.fs.Remove(localPath); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
		s.logger.Warn("removing partial download",
			slog.String("local", localPath),
			slog.String("error", err.Error()),
		)
	}
}

// DefaultRemotePath is "/" plus the base name of localPath, normalized to NFC
// so names from macOS (NFD) match what other clients see.
func DefaultRemotePath(localPath string) string {
	return "/" + norm.NFC.String(filepath.Base(localPath))
}

// cleanRemotePath makes p absolute and clean. A path naming the root itself
// is not a valid file path.
func cleanRemotePath(p string) (string, error) {
	if strings.Trim(strings.TrimSpace(p), "/") == "" {
		return "", ErrInvalidPath
	}

	return path.Clean("/" + p), nil
}

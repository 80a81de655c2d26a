// Package tokenfile persists the access token of the linked Dropbox account
// together with cached account details, so CLI commands after login can
// authorize without asking again.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the token directory.
const DirPerms = 0o700

// Meta is account information cached at login for display without a
// network round trip.
type Meta struct {
	AccountID   string    `json:"account_id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	LinkedAt    time.Time `json:"linked_at,omitzero"`
}

// File is the on-disk format.
type File struct {
	Token *oauth2.Token `json:"token"`
	Meta  Meta          `json:"meta"`
}

// Store reads and writes one token file.
type Store struct {
	fs   afero.Fs
	path string
}

// New returns a store for path on fsys (afero.NewOsFs() if nil).
func New(fsys afero.Fs, path string) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &Store{fs: fsys, path: path}
}

// Path returns the token file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the saved token. Returns (nil, nil) if no file exists.
func (s *Store) Load() (*File, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not logged in"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", s.path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", s.path, err)
	}

	if tf.Token == nil || tf.Token.AccessToken == "" {
		return nil, fmt.Errorf("tokenfile: %s has no access token (re-login required)", s.path)
	}

	return &tf, nil
}

// Save writes the token file atomically (write-to-temp + rename) with 0600
// permissions. Never logs token values.
func (s *Store) Save(accessToken string, meta Meta) error {
	if accessToken == "" {
		return errors.New("tokenfile: refusing to save an empty token")
	}

	tf := File{
		Token: &oauth2.Token{AccessToken: accessToken, TokenType: "bearer"},
		Meta:  meta,
	}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, DirPerms); err != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, err)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := afero.TempFile(s.fs, dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = s.fs.Remove(tmpPath)
		}
	}()

	if err := s.fs.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// UpdateMeta rewrites the cached account details, keeping the token.
// Empty fields in meta leave the saved value unchanged.
func (s *Store) UpdateMeta(meta Meta) error {
	tf, err := s.Load()
	if err != nil {
		return fmt.Errorf("reading token for metadata update: %w", err)
	}

	if tf == nil {
		return fmt.Errorf("no token file at %s", s.path)
	}

	merged := tf.Meta
	if meta.AccountID != "" {
		merged.AccountID = meta.AccountID
	}

	if meta.DisplayName != "" {
		merged.DisplayName = meta.DisplayName
	}

	if meta.Email != "" {
		merged.Email = meta.Email
	}

	if !meta.LinkedAt.IsZero() {
		merged.LinkedAt = meta.LinkedAt
	}

	return s.Save(tf.Token.AccessToken, merged)
}

// Remove deletes the token file. Reports whether a file was removed.
func (s *Store) Remove() (bool, error) {
	err := s.fs.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("tokenfile: removing %s: %w", s.path, err)
	}

	return true, nil
}

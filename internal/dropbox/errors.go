// Package dropbox is a small facade over the Dropbox API: three ways to
// authorize, file upload and download, and shareable links. Network access
// goes through a Backend so the facade's own rules (path defaulting, error
// kinds, logging) can be exercised without a real account.
package dropbox

import (
	"errors"
	"fmt"
)

// Kind classifies a facade failure. The set is closed.
type Kind int

const (
	KindAuth Kind = iota + 1
	KindTokenExchange
	KindUpload
	KindDownload
	KindLink
	KindList
)

// Sentinel errors, one per Kind. Use errors.Is(err, dropbox.ErrUpload) to check.
var (
	ErrAuth          = errors.New("dropbox: authorization failed")
	ErrTokenExchange = errors.New("dropbox: token exchange failed")
	ErrUpload        = errors.New("dropbox: upload failed")
	ErrDownload      = errors.New("dropbox: download failed")
	ErrLink          = errors.New("dropbox: shareable link failed")
	ErrList          = errors.New("dropbox: folder listing failed")
)

// ErrNotFound is wrapped by backends when a remote path does not exist.
// It is matched in addition to the Kind sentinel.
var ErrNotFound = errors.New("dropbox: path not found")

// ErrEmptyCode is returned when an authorization code is blank.
var ErrEmptyCode = errors.New("dropbox: empty authorization code")

// ErrInvalidPath is returned for a blank or root-only remote file path.
var ErrInvalidPath = errors.New("dropbox: invalid remote path")

// ErrHashMismatch is wrapped when the transferred bytes do not match the
// content hash the server reported.
var ErrHashMismatch = errors.New("dropbox: content hash mismatch")

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindTokenExchange:
		return "token exchange"
	case KindUpload:
		return "upload"
	case KindDownload:
		return "download"
	case KindLink:
		return "link"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuth
	case KindTokenExchange:
		return ErrTokenExchange
	case KindUpload:
		return ErrUpload
	case KindDownload:
		return ErrDownload
	case KindLink:
		return ErrLink
	case KindList:
		return ErrList
	default:
		return nil
	}
}

// Error is the typed error every facade operation returns.
type Error struct {
	Kind Kind
	Op   string // step that failed, e.g. "open", "exchange", "remote"
	Path string // local or remote path involved, if any
	Err  error  // underlying cause
}

func (e *Error) Error() string {
	msg := "dropbox: " + e.Kind.String()
	if e.Op != "" {
		msg += " " + e.Op
	}

	if e.Path != "" {
		msg += " " + e.Path
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()

	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	return 0
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

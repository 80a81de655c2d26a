package dropbox

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DefaultClientIdentifier is sent as the User-Agent on every request.
const DefaultClientIdentifier = "dropbox-go/0.1"

// defaultLocale is used when neither LC_ALL nor LANG carries a usable value.
const defaultLocale = "en_US"

// Credentials identify the registered Dropbox app. Immutable after construction.
type Credentials struct {
	AppKey    string
	AppSecret string
}

// Validate reports whether both fields are present.
func (c Credentials) Validate() error {
	var missing []string
	if c.AppKey == "" {
		missing = append(missing, "app key")
	}

	if c.AppSecret == "" {
		missing = append(missing, "app secret")
	}

	if len(missing) > 0 {
		return fmt.Errorf("dropbox: missing %s", strings.Join(missing, " and "))
	}

	return nil
}

// RequestConfig carries the static client identifier and locale passed on
// every request.
type RequestConfig struct {
	ClientIdentifier string
	Locale           string // POSIX form, e.g. "en_US"
}

// DefaultRequestConfig returns the default identifier and the process locale.
func DefaultRequestConfig() RequestConfig {
	return RequestConfig{
		ClientIdentifier: DefaultClientIdentifier,
		Locale:           SystemLocale(os.Getenv),
	}
}

// SystemLocale derives a POSIX locale from LC_ALL or LANG, dropping any
// codeset or modifier suffix ("de_DE.UTF-8@euro" -> "de_DE").
func SystemLocale(getenv func(string) string) string {
	for _, key := range []string{"LC_ALL", "LANG"} {
		v := getenv(key)
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}

		if v != "" && v != "C" && v != "POSIX" {
			return v
		}
	}

	return defaultLocale
}

// LanguageTag converts the locale to a BCP 47 tag for Accept-Language.
// Unparseable locales fall back to "en-US".
func (c RequestConfig) LanguageTag() string {
	tag, err := language.Parse(strings.ReplaceAll(c.Locale, "_", "-"))
	if err != nil {
		return language.AmericanEnglish.String()
	}

	return tag.String()
}

// withDefaults fills empty fields.
func (c RequestConfig) withDefaults() RequestConfig {
	if c.ClientIdentifier == "" {
		c.ClientIdentifier = DefaultClientIdentifier
	}

	if c.Locale == "" {
		c.Locale = defaultLocale
	}

	return c
}

// WriteModeKind selects what happens when the upload destination exists.
type WriteModeKind string

const (
	WriteModeAdd       WriteModeKind = "add"
	WriteModeOverwrite WriteModeKind = "overwrite"
	WriteModeUpdate    WriteModeKind = "update"
)

// WriteMode is add (never overwrite), overwrite, or update-if-revision-matches.
type WriteMode struct {
	Kind WriteModeKind
	Rev  string // only for WriteModeUpdate
}

// AddMode keeps existing files; conflicting uploads are renamed by the server.
func AddMode() WriteMode { return WriteMode{Kind: WriteModeAdd} }

// OverwriteMode replaces any existing file.
func OverwriteMode() WriteMode { return WriteMode{Kind: WriteModeOverwrite} }

// UpdateMode replaces the file only if its current revision is rev.
func UpdateMode(rev string) WriteMode { return WriteMode{Kind: WriteModeUpdate, Rev: rev} }

func (m WriteMode) String() string {
	if m.Kind == WriteModeUpdate {
		return string(m.Kind) + ":" + m.Rev
	}

	return string(m.Kind)
}

// ParseWriteMode maps the CLI spelling to a WriteMode. rev is required for
// "update" and ignored otherwise.
func ParseWriteMode(kind, rev string) (WriteMode, error) {
	switch WriteModeKind(kind) {
	case "", WriteModeAdd:
		return AddMode(), nil
	case WriteModeOverwrite:
		return OverwriteMode(), nil
	case WriteModeUpdate:
		if rev == "" {
			return WriteMode{}, fmt.Errorf("dropbox: write mode %q requires a revision", kind)
		}

		return UpdateMode(rev), nil
	default:
		return WriteMode{}, fmt.Errorf("dropbox: unknown write mode %q (want add, overwrite, or update)", kind)
	}
}

// FileMetadata describes a remote file.
type FileMetadata struct {
	ID             string
	Name           string
	PathDisplay    string
	PathLower      string
	Size           int64
	Rev            string
	ClientModified time.Time
	ServerModified time.Time
	ContentHash    string // hex; see pkg/contenthash
}

// EntryMetadata is one entry of a folder listing.
type EntryMetadata struct {
	Name        string
	PathDisplay string
	IsFolder    bool
	IsDeleted   bool
	Size        int64 // zero for folders
	Rev         string
	Modified    time.Time
}

// Account is the linked Dropbox account.
type Account struct {
	ID          string
	DisplayName string
	Email       string
}

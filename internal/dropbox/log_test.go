package dropbox

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The switch is process-wide, so these tests do not run in parallel and
// restore it when done.
func restoreLogSwitch(t *testing.T) {
	t.Helper()

	prev := LogEnabled()
	t.Cleanup(func() { SetLogEnabled(prev) })
}

func TestSetLogEnabled(t *testing.T) {
	restoreLogSwitch(t)

	SetLogEnabled(false)
	assert.False(t, LogEnabled())

	SetLogEnabled(true)
	assert.True(t, LogEnabled())
}

func TestGatedLogger_DropsRecordsWhenDisabled(t *testing.T) {
	restoreLogSwitch(t)

	var buf bytes.Buffer
	logger := gatedLogger(slog.New(slog.NewTextHandler(&buf, nil))).With(slog.String("k", "v"))

	SetLogEnabled(false)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	SetLogEnabled(true)
	logger.Info("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "k=v")
}

func TestGatedLogger_NotDoubleWrapped(t *testing.T) {
	l := gatedLogger(nil)
	assert.Same(t, l, gatedLogger(l))
}

func TestFacade_NoLogWhenDisabled(t *testing.T) {
	restoreLogSwitch(t)

	var buf bytes.Buffer
	backend := newFakeBackend("T")
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.txt", "abc")

	f := New(Credentials{AppKey: "K", AppSecret: "S"}, RequestConfig{},
		slog.New(slog.NewTextHandler(&buf, nil)),
		WithBackend(backend), WithFs(fs), WithBrowser(nil))

	SetLogEnabled(false)

	sess, ok := f.AuthorizeToken(context.Background(), "T")
	require.True(t, ok)

	_, err := sess.Upload(context.Background(), "/a.txt")
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	SetLogEnabled(true)

	_, err = sess.UploadTo(context.Background(), "/a.txt", "/b.txt")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "uploading file")
	assert.Contains(t, buf.String(), "session="+sess.ID())
}

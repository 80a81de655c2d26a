package dropbox

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// logDisabled is the process-wide logging switch. The zero value means
// logging is on.
var logDisabled atomic.Bool

// SetLogEnabled turns facade logging on or off for the whole process.
func SetLogEnabled(enabled bool) {
	logDisabled.Store(!enabled)
}

// LogEnabled reports the current state of the switch.
func LogEnabled() bool {
	return !logDisabled.Load()
}

// gateHandler drops every record while logging is switched off. The switch
// is read per record so toggling affects loggers already handed out.
type gateHandler struct {
	next slog.Handler
}

func (h gateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return LogEnabled() && h.next.Enabled(ctx, level)
}

func (h gateHandler) Handle(ctx context.Context, r slog.Record) error {
	if !LogEnabled() {
		return nil
	}

	return h.next.Handle(ctx, r)
}

func (h gateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return gateHandler{next: h.next.WithAttrs(attrs)}
}

func (h gateHandler) WithGroup(name string) slog.Handler {
	return gateHandler{next: h.next.WithGroup(name)}
}

// gatedLogger wraps logger (slog.Default() if nil) in the switch.
func gatedLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}

	if _, ok := logger.Handler().(gateHandler); ok {
		return logger
	}

	return slog.New(gateHandler{next: logger.Handler()})
}

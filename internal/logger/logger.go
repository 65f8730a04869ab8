package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelInternal is the most verbose level, used for step-by-step traces of
// skip-list descents and break bookkeeping.
const LevelInternal = slog.LevelDebug - 4

// EnvVar names the environment variable that enables stderr logging at
// package init. Accepted values: internal, debug, info, warn, error.
const EnvVar = "BRKIT_LOG"

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() or set BRKIT_LOG to enable logging.
var L *slog.Logger = slog.New(slog.DiscardHandler)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Writer  io.Writer  // Destination. Default: os.Stderr
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
	JSON    bool       // Emit JSON records instead of text
}

func init() {
	if lvl, ok := ParseLevel(os.Getenv(EnvVar)); ok {
		_ = Init(Options{Enabled: true, Level: lvl})
	}
}

// Init configures logging. Call from main() before any log calls.
// If opts.Enabled is false, all log output is discarded.
func Init(opts Options) error {
	if !opts.Enabled {
		L = slog.New(slog.DiscardHandler)
		return nil
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}

	hopts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(w, hopts))
	} else {
		L = slog.New(slog.NewTextHandler(w, hopts))
	}
	return nil
}

// ParseLevel maps a level name to a slog level. Unknown or empty names
// report false.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "internal", "trace":
		return LevelInternal, true
	case "debug":
		return slog.LevelDebug, true
	case "info", "note":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

// replaceLevel prints LevelInternal as INTERNAL instead of DEBUG-4.
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelInternal {
		a.Value = slog.StringValue("INTERNAL")
	}
	return a
}

// Internal logs a trace message at LevelInternal.
func Internal(msg string, args ...any) { L.Log(context.Background(), LevelInternal, msg, args...) }

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }

// Enabled reports whether records at level would be emitted. Callers use it
// to skip building expensive attributes.
func Enabled(level slog.Level) bool { return L.Enabled(context.Background(), level) }

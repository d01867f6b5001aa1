// Package log configures the process-wide slog logger. Packages take a
// component logger once at construction:
//
//	logger := log.Component("animation")
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New builds a logger writing to w. format "json" selects JSON lines;
// anything else is logfmt-style text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init installs a stdout logger as the default. GO_ENV=production forces
// JSON output.
func Init(level, format string) {
	InitWriter(os.Stdout, level, format)
}

// InitWriter is Init writing to w.
func InitWriter(w io.Writer, level, format string) {
	if os.Getenv("GO_ENV") == "production" {
		format = "json"
	}
	l := New(w, level, format)
	current.Store(l)
	slog.SetDefault(l)
}

// L returns the installed logger, or slog's default before Init.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Component tags the logger with the subsystem name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

func Warn(msg string, args ...any) { L().Warn(msg, args...) }

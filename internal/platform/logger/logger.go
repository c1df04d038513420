// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps LOG_LEVEL values to slog levels. Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup returns a JSON slog.Logger writing to w.
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault installs a JSON logger as the slog default. A nil writer means stdout.
func SetupDefault(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	l := Setup(w, level)
	slog.SetDefault(l)
	return l
}

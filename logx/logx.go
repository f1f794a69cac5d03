// Package logx provides the small log/slog setup this module's
// components share, in the spirit of hector/pkg/logger: a parsed level
// and a logger that tags every record with its owning component.
package logx

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a string log level to slog.Level. Unknown values
// default to Info, matching the permissive behavior of config-driven
// log levels elsewhere in the stack.
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

// New builds a text-handler slog.Logger at the given level, writing to
// stderr so indexer progress never pollutes a caller's stdout protocol.
func New(level slog.Level) *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// Component returns a logger tagged with the given component name.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", name)
}

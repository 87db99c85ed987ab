// Package logger builds the application's structured logger.
package logger

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Staging (staging): JSON output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
//
// A non-empty level ("debug", "info", "warn", "error") overrides the
// level implied by env.
func New(env, level string, w io.Writer) *slog.Logger {
	var (
		lvl  slog.Level
		json bool
	)

	switch env {
	case "prod":
		lvl, json = slog.LevelInfo, true
	case "staging":
		lvl, json = slog.LevelDebug, true
	default: // "dev" and anything unrecognised
		lvl, json = slog.LevelDebug, false
	}

	if parsed, ok := ParseLevel(level); ok {
		lvl = parsed
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a case-insensitive level name to a slog.Level.
// ok is false for the empty string and for unknown names.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

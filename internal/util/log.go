// Package util provides shared utility functions for logging, retries, and
// request rate limiting.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a structured logger using log/slog at the specified
// level. Supported levels: "debug", "info", "warn", "error"; unrecognised
// levels default to "info". format selects the handler: "text" for
// human-readable output, anything else for JSON.
func NewLogger(level, format string) *slog.Logger {
	var slevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slevel = slog.LevelDebug
	case "info":
		slevel = slog.LevelInfo
	case "warn":
		slevel = slog.LevelWarn
	case "error":
		slevel = slog.LevelError
	default:
		slevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: slevel}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// SetDefault configures the provided logger as the default slog logger.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}

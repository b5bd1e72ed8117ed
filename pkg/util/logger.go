package util

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: human-readable text at debug level in
// development, JSON at info level everywhere else. Both the API server and
// the worker log through this.
func NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

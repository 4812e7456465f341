package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the service logger. Format is "json" (the default) or "text",
// which reads better on a local terminal.
func New(service, level, format string) *slog.Logger {
	return slog.New(newHandler(os.Stdout, level, format)).With("service", service)
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

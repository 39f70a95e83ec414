// Package observability adapts scheduler lifecycle events (executor.EventKind)
// into the ambient stack: structured slog logging, an optional colorized
// zerolog console sink, and an OpenTelemetry tracing sink. None of these
// are part of the scheduler core (§9); they are Middleware handlers a
// host registers via Engine.RegisterMiddleware.
package observability

import (
	"log/slog"
	"os"
	"strings"
)

// Setup mirrors the teacher's logger.Setup: a JSON slog.Logger at the
// requested level, installed as the process default.
func Setup(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}

// Package logging provides structured logging configuration using log/slog.
//
// Every dataset load carries a load ID in its context. FromContext attaches
// it to log entries, so all lines emitted by one load can be correlated.
// Requests served by the metrics endpoint get chi's request ID instead.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const (
	loadIDKey ctxKey = iota
	datasetKey
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Logs go to stderr so that command output on stdout stays parseable.
func Setup(level, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithLoad returns a context tagged with a load ID and dataset name.
func WithLoad(ctx context.Context, loadID, dataset string) context.Context {
	ctx = context.WithValue(ctx, loadIDKey, loadID)
	return context.WithValue(ctx, datasetKey, dataset)
}

// LoadID returns the load ID stored by WithLoad, or "".
func LoadID(ctx context.Context) string {
	id, _ := ctx.Value(loadIDKey).(string)
	return id
}

// FromContext returns a logger enriched with load or request context.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Info("copied rows", "table", "pop.person", "rows", n)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if id := LoadID(ctx); id != "" {
		logger = logger.With("load_id", id)
	}
	if ds, _ := ctx.Value(datasetKey).(string); ds != "" {
		logger = logger.With("dataset", ds)
	}

	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	logger := logging.WithFields(ctx, "table", "dis.dyn", "disease_id", id)
//	logger.Info("merge pass started", "file", name)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

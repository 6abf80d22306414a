// Package logging wraps log/slog with the field names used across the
// graph store, importers and the query server.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with graph-specific helpers.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, uses a text handler on stderr at info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable lines to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger that writes JSON lines to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Noop returns a Logger that discards everything.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Unknown strings yield info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithGraph tags every record with the graph directory.
func (l *Logger) WithGraph(dir string) *Logger {
	return &Logger{Logger: l.Logger.With("graph", dir)}
}

// LogLoad logs a completed or failed graph load.
func (l *Logger) LogLoad(ctx context.Context, nodes, edges int64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "graph load failed", "error", err)
		return
	}
	l.InfoContext(ctx, "graph loaded",
		"nodes", nodes,
		"edges", edges,
		"elapsed", elapsed.Round(time.Millisecond),
	)
}

// LogSave logs a completed or failed graph save.
func (l *Logger) LogSave(ctx context.Context, nodes, edges int64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "graph save failed", "error", err)
		return
	}
	l.InfoContext(ctx, "graph saved",
		"nodes", nodes,
		"edges", edges,
		"elapsed", elapsed.Round(time.Millisecond),
	)
}

// LogImport logs an import stage.
func (l *Logger) LogImport(ctx context.Context, stage string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "import failed", "stage", stage, "error", err)
		return
	}
	l.InfoContext(ctx, "import stage complete", "stage", stage, "count", count)
}

// LogQuery logs a routing query at debug level.
func (l *Logger) LogQuery(ctx context.Context, kind string, source int64, results int, elapsed time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "query failed", "kind", kind, "source", source, "error", err)
		return
	}
	l.DebugContext(ctx, "query completed",
		"kind", kind,
		"source", source,
		"results", results,
		"elapsed", elapsed,
	)
}

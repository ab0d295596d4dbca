package nonechucks

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with library-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPosition adds a source position field to the logger.
func (l *Logger) WithPosition(pos int) *Logger {
	return &Logger{
		Logger: l.Logger.With("position", pos),
	}
}

// WithBatchSize adds a batch size field to the logger.
func (l *Logger) WithBatchSize(size int) *Logger {
	return &Logger{
		Logger: l.Logger.With("batch_size", size),
	}
}

// LogClassify logs the first-touch classification of a position.
func (l *Logger) LogClassify(ctx context.Context, pos int, err error) {
	if err != nil {
		l.DebugContext(ctx, "sample classified unsafe",
			"position", pos,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "sample classified safe",
			"position", pos,
		)
	}
}

// LogBuildIndex logs an eager index build.
func (l *Logger) LogBuildIndex(ctx context.Context, examined, safe int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"examined", examined,
			"safe", safe,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index build completed",
			"examined", examined,
			"safe", safe,
			"unsafe", examined-safe,
		)
	}
}

// LogBatch logs the delivery of a logical batch.
func (l *Logger) LogBatch(ctx context.Context, size, pulls int) {
	l.DebugContext(ctx, "batch delivered",
		"size", size,
		"raw_pulls", pulls,
	)
}

// LogPassEnd logs the end of a pass.
func (l *Logger) LogPassEnd(ctx context.Context, batches int, dropLast bool) {
	l.DebugContext(ctx, "pass ended",
		"batches", batches,
		"drop_last", dropLast,
	)
}

// LogSnapshot logs an index snapshot operation.
func (l *Logger) LogSnapshot(ctx context.Context, examined int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index snapshot failed",
			"examined", examined,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index snapshot saved",
			"examined", examined,
		)
	}
}

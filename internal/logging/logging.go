// Package logging provides the structured logger used across the
// txova-tcc coordinator. It is a thin wrapper around log/slog, matching
// the surface of the Txova platform's logging.Logger (Info/Warn/Error/Debug
// and their *Context variants, key-value structured fields, no
// fmt.Sprintf message interpolation).
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the structured logger used throughout this module.
type Logger struct {
	slog *slog.Logger
}

var defaultLogger = New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Default returns the package-wide default logger.
func Default() *Logger {
	return defaultLogger
}

// New creates a Logger backed by the given slog.Handler.
func New(handler slog.Handler) *Logger {
	return &Logger{slog: slog.New(handler)}
}

// With returns a Logger that always includes the given key-value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slog.ErrorContext(ctx, msg, args...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}

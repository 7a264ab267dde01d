package mmapstream

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with mmapstream-specific context.
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

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// LogOpen logs a stream open.
func (l *Logger) LogOpen(path string, size int64, readOnly bool, err error) {
	if err != nil {
		l.Error("open failed",
			"path", path,
			"read_only", readOnly,
			"error", err,
		)
	} else {
		l.Debug("stream opened",
			"path", path,
			"size", size,
			"read_only", readOnly,
		)
	}
}

// LogRemap logs a remap of the backing file.
func (l *Logger) LogRemap(path string, oldSize, newSize int64, err error) {
	if err != nil {
		l.Error("remap failed",
			"path", path,
			"old_size", oldSize,
			"new_size", newSize,
			"error", err,
		)
	} else {
		l.Debug("remap completed",
			"path", path,
			"old_size", oldSize,
			"new_size", newSize,
		)
	}
}

// LogClose logs a stream close.
func (l *Logger) LogClose(path string, size int64, err error) {
	if err != nil {
		l.Warn("close completed with errors",
			"path", path,
			"size", size,
			"error", err,
		)
	} else {
		l.Debug("stream closed",
			"path", path,
			"size", size,
		)
	}
}

package mmapstream

import (
	"log/slog"
	"os"

	"github.com/hupe1980/mmapstream/internal/mmap"
)

// DefaultPerm is the permission used when Open creates a missing file.
const DefaultPerm os.FileMode = 0o644

type options struct {
	readOnly         bool
	perm             os.FileMode
	advice           AccessPattern
	metricsCollector MetricsCollector
	logger           *Logger
	provider         mmap.Provider
}

// Option configures Open behavior.
type Option func(*options)

// WithReadOnly opens the file for reading only. The stream cannot grow and
// Write returns ErrReadOnly. A missing file is created empty; opening it
// with an initialSize beyond the file's size fails with a *PlatformError
// (wrapping ErrBeyondEOF on unix).
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// WithPerm sets the permission bits used when the file has to be created.
func WithPerm(perm os.FileMode) Option {
	return func(o *options) {
		o.perm = perm
	}
}

// WithAccessPattern hints the kernel how the mapping will be accessed.
// The hint is re-applied after every remap.
func WithAccessPattern(p AccessPattern) Option {
	return func(o *options) {
		o.advice = p
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &mmapstream.BasicMetricsCollector{}
//	s, _ := mmapstream.Open("data.db", 1<<20, mmapstream.WithMetricsCollector(metrics))
//	// ... use s ...
//	stats := metrics.GetStats()
//	fmt.Printf("Remaps: %d, grown: %d bytes\n", stats.RemapCount, stats.BytesGrown)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := mmapstream.NewJSONLogger(slog.LevelDebug)
//	s, _ := mmapstream.Open("data.db", 0, mmapstream.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// withProvider swaps the platform provider. Used by tests for fault injection.
func withProvider(p mmap.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		perm:             DefaultPerm,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		provider:         mmap.OS,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.provider == nil {
		o.provider = mmap.OS
	}
	return o
}

package mmapstream

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    remapCounter   prometheus.Counter
//	    flushHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordRemap(oldSize, newSize int64, d time.Duration, err error) {
//	    p.remapCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordOpen is called after each Open.
	RecordOpen(duration time.Duration, err error)

	// RecordRemap is called after each remap with the size before and the
	// size requested.
	RecordRemap(oldSize, newSize int64, duration time.Duration, err error)

	// RecordFlush is called after each explicit Flush or Sync.
	RecordFlush(duration time.Duration, err error)

	// RecordClose is called once per stream, on the first Close.
	RecordClose(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(time.Duration, error)                {}
func (NoopMetricsCollector) RecordRemap(int64, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordFlush(time.Duration, error)               {}
func (NoopMetricsCollector) RecordClose(time.Duration, error)               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpenCount       atomic.Int64
	OpenErrors      atomic.Int64
	RemapCount      atomic.Int64
	RemapErrors     atomic.Int64
	RemapTotalNanos atomic.Int64
	BytesGrown      atomic.Int64
	FlushCount      atomic.Int64
	FlushErrors     atomic.Int64
	FlushTotalNanos atomic.Int64
	CloseCount      atomic.Int64
	CloseErrors     atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(_ time.Duration, err error) {
	b.OpenCount.Add(1)
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordRemap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemap(oldSize, newSize int64, duration time.Duration, err error) {
	b.RemapCount.Add(1)
	b.RemapTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RemapErrors.Add(1)
		return
	}
	if newSize > oldSize {
		b.BytesGrown.Add(newSize - oldSize)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(duration time.Duration, err error) {
	b.FlushCount.Add(1)
	b.FlushTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// RecordClose implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClose(_ time.Duration, err error) {
	b.CloseCount.Add(1)
	if err != nil {
		b.CloseErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpenCount:      b.OpenCount.Load(),
		OpenErrors:     b.OpenErrors.Load(),
		RemapCount:     b.RemapCount.Load(),
		RemapErrors:    b.RemapErrors.Load(),
		RemapAvgNanos:  avgNanos(b.RemapTotalNanos.Load(), b.RemapCount.Load()),
		BytesGrown:     b.BytesGrown.Load(),
		FlushCount:     b.FlushCount.Load(),
		FlushErrors:    b.FlushErrors.Load(),
		FlushAvgNanos:  avgNanos(b.FlushTotalNanos.Load(), b.FlushCount.Load()),
		CloseCount:     b.CloseCount.Load(),
		CloseErrors:    b.CloseErrors.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OpenCount     int64
	OpenErrors    int64
	RemapCount    int64
	RemapErrors   int64
	RemapAvgNanos int64
	BytesGrown    int64
	FlushCount    int64
	FlushErrors   int64
	FlushAvgNanos int64
	CloseCount    int64
	CloseErrors   int64
}

package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// BufferLimitBytes is the hard limit for in-memory staging buffers
	// (compressed backup payloads, restore downloads).
	// If 0, no hard limit is enforced (only tracking).
	BufferLimitBytes int64

	// MaxBackgroundWorkers is the maximum number of files processed
	// concurrently by a backup or restore.
	// If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec is the maximum IO throughput for background tasks.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages shared resources (buffers, concurrency, IO).
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	// Buffers
	bufSem  *semaphore.Weighted // nil if unlimited
	bufUsed atomic.Int64

	// Concurrency
	bgSem *semaphore.Weighted

	// IO
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.BufferLimitBytes > 0 {
		c.bufSem = semaphore.NewWeighted(cfg.BufferLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the effective limits.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// clamp keeps a request within the hard limit so a single oversized
// buffer waits for exclusive use instead of blocking forever.
func (c *Controller) clamp(bytes int64) int64 {
	if c.bufSem != nil && bytes > c.cfg.BufferLimitBytes {
		return c.cfg.BufferLimitBytes
	}
	return bytes
}

// AcquireBuffer reserves bytes of staging memory and returns the amount
// actually reserved, which must be passed to ReleaseBuffer.
// If a hard limit is configured and usage would exceed it,
// this blocks until memory is available or ctx is canceled.
func (c *Controller) AcquireBuffer(ctx context.Context, bytes int64) (int64, error) {
	if c == nil || bytes <= 0 {
		return 0, nil
	}
	bytes = c.clamp(bytes)

	if c.bufSem != nil {
		if err := c.bufSem.Acquire(ctx, bytes); err != nil {
			return 0, err
		}
	}

	c.bufUsed.Add(bytes)
	return bytes, nil
}

// TryAcquireBuffer attempts to reserve staging memory without blocking.
// Returns true if acquired, false if limit would be exceeded.
func (c *Controller) TryAcquireBuffer(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.bufSem != nil {
		if !c.bufSem.TryAcquire(bytes) {
			return false
		}
	}

	c.bufUsed.Add(bytes)
	return true
}

// ReleaseBuffer releases reserved staging memory.
func (c *Controller) ReleaseBuffer(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.bufSem != nil {
		c.bufSem.Release(bytes)
	}
	c.bufUsed.Add(-bytes)
}

// BufferUsage returns the current staging memory usage in bytes.
func (c *Controller) BufferUsage() int64 {
	if c == nil {
		return 0
	}
	return c.bufUsed.Load()
}

// AcquireBackground attempts to reserve a background worker slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireBackground attempts to reserve a background worker slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil {
		return true
	}
	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground releases a background worker slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than one second of budget are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

package storage

import (
	"github.com/hupe1980/mmapstream"
	"github.com/hupe1980/mmapstream/internal/fs"
	"github.com/hupe1980/mmapstream/resource"
)

// DefaultReservation is the size a new file is mapped at on first open.
const DefaultReservation = 1 << 20

type options struct {
	compression Compression
	controller  *resource.Controller
	logger      *mmapstream.Logger
	reservation int64
	streamOpts  []mmapstream.Option
	fs          fs.FileSystem
}

// Option configures Open and Restore.
type Option func(*options)

// WithCompression selects the codec used by Backup.
// Restore always uses the codec recorded in the manifest.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithController bounds backup and restore concurrency, staging memory and
// IO throughput. Without a controller files are processed one at a time.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithLogger configures structured logging. The logger is passed down to
// every stream.
func WithLogger(logger *mmapstream.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReservation sets the size new files are mapped at.
// Values <= 0 fall back to DefaultReservation.
func WithReservation(n int64) Option {
	return func(o *options) {
		o.reservation = n
	}
}

// WithStreamOptions appends options for every stream the storage opens.
func WithStreamOptions(optFns ...mmapstream.Option) Option {
	return func(o *options) {
		o.streamOpts = append(o.streamOpts, optFns...)
	}
}

// withFileSystem replaces the directory operations (for fault injection).
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		compression: CompressionZstd,
		reservation: DefaultReservation,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = mmapstream.NoopLogger()
	}
	if o.reservation <= 0 {
		o.reservation = DefaultReservation
	}
	if o.fs == nil {
		o.fs = fs.Default
	}
	if o.controller == nil {
		o.controller = resource.NewController(resource.Config{})
	}
	return o
}

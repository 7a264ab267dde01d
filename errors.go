package mmapstream

import (
	"errors"
	"fmt"

	"github.com/hupe1980/mmapstream/internal/mmap"
)

var (
	// ErrInvalidState is returned when an operation needs a live mapping
	// that the stream does not have. It always indicates a programming error.
	ErrInvalidState = errors.New("mmapstream: invalid state")

	// ErrClosed is returned when the stream has already been closed.
	ErrClosed = fmt.Errorf("%w: stream is closed", ErrInvalidState)

	// ErrNoView is returned when a failed remap left the stream without a mapping.
	ErrNoView = fmt.Errorf("%w: no valid view", ErrInvalidState)

	// ErrNotSupported is returned for operations the stream refuses by design.
	ErrNotSupported = errors.New("mmapstream: operation not supported")

	// ErrReadOnly is returned when writing to or growing a read-only stream.
	ErrReadOnly = fmt.Errorf("%w: stream is read-only", ErrNotSupported)

	// ErrShrinkNotSupported is returned by SetLength for values below Length.
	ErrShrinkNotSupported = fmt.Errorf("%w: cannot reduce the file size", ErrNotSupported)

	// ErrOutOfRange is matched by every *RangeError.
	ErrOutOfRange = errors.New("mmapstream: value out of range")

	// ErrInvalidWhence is returned by Seek for an unknown origin.
	ErrInvalidWhence = errors.New("mmapstream: invalid whence")

	// ErrLocked is wrapped by the *IOError returned from Open when another
	// stream holds the file.
	ErrLocked = mmap.ErrLocked

	// ErrBeyondEOF is returned when a read-only stream is opened larger
	// than its file.
	ErrBeyondEOF = mmap.ErrBeyondEOF
)

// PlatformError is a failure of the OS mapping layer (mapping creation,
// view mapping, flush or release). Code carries the OS error number.
type PlatformError = mmap.Error

// IOError indicates the backing file could not be opened or created.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("mmapstream: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// RangeError indicates a position or size outside [0, Length].
// It matches ErrOutOfRange with errors.Is.
type RangeError struct {
	Op     string
	Value  int64
	Length int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("mmapstream: %s: %d is outside [0, %d]", e.Op, e.Value, e.Length)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

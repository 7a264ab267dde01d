package mmap

import (
	"errors"
	"fmt"
	"syscall"
)

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential
	// AccessRandom expects data to be accessed randomly.
	AccessRandom
	// AccessWillNeed expects data to be accessed in the near future.
	AccessWillNeed
	// AccessDontNeed expects data to not be accessed in the near future.
	AccessDontNeed
)

// Access is the access mode of a file handle or view.
type Access int

const (
	// AccessRead opens for reading only.
	AccessRead Access = iota
	// AccessReadWrite opens for reading and writing.
	AccessReadWrite
)

func (a Access) String() string {
	if a == AccessReadWrite {
		return "read-write"
	}
	return "read"
}

// Protection is the page protection of a mapping object.
type Protection int

const (
	// ProtRead maps pages read-only.
	ProtRead Protection = iota
	// ProtReadWrite maps pages read-write.
	ProtReadWrite
)

var (
	// ErrClosed is returned when operating on a released resource.
	ErrClosed = errors.New("mmap: resource is closed")
	// ErrLocked is returned when another owner holds the file.
	ErrLocked = errors.New("mmap: file is locked by another owner")
	// ErrInvalidSize is returned for negative or unaddressable sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidRange is returned when a flush range falls outside the view.
	ErrInvalidRange = errors.New("mmap: invalid range")
	// ErrBeyondEOF is returned when a read-only mapping would extend past the end of the file.
	ErrBeyondEOF = errors.New("mmap: read-only mapping exceeds file size")
	// ErrUnsupported is returned on platforms without a mapping backend.
	ErrUnsupported = errors.New("mmap: unsupported platform")
)

// Error is a platform mapping failure. Code carries the OS error number when
// the failure came from a system call, and zero otherwise.
type Error struct {
	Op   string
	Code int
	Err  error
}

func newError(op string, err error) *Error {
	e := &Error{Op: op, Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		e.Code = int(errno)
	}
	return e
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("mmap: %s: %v (code %d)", e.Op, e.Err, e.Code)
	}
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

package mmapstream

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/mmapstream/internal/mmap"
)

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern = mmap.AccessPattern

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault = mmap.AccessDefault
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential = mmap.AccessSequential
	// AccessRandom expects data to be accessed randomly.
	AccessRandom = mmap.AccessRandom
	// AccessWillNeed expects data to be accessed in the near future.
	AccessWillNeed = mmap.AccessWillNeed
	// AccessDontNeed expects data to not be accessed in the near future.
	AccessDontNeed = mmap.AccessDontNeed
)

// Stream is a seekable, grow-only byte stream backed by a memory-mapped file.
//
// Stream implements io.ReadWriteSeeker, io.ReaderAt, io.WriterTo and
// io.Closer. It is not safe for concurrent use.
type Stream struct {
	name     string
	p        mmap.Provider
	file     *mmap.File
	mapping  *mmap.Mapping
	view     *mmap.View
	size     int64
	pos      int64
	writable bool
	closed   bool

	advice  AccessPattern
	logger  *Logger
	metrics MetricsCollector
}

var (
	_ io.ReadWriteSeeker = (*Stream)(nil)
	_ io.ReaderAt        = (*Stream)(nil)
	_ io.WriterTo        = (*Stream)(nil)
	_ io.Closer          = (*Stream)(nil)
)

// Open opens or creates the file at path and maps initialSize bytes of it.
//
// A writable stream extends the file to initialSize if it is shorter.
// initialSize 0 maps the file at its current size. A negative initialSize
// returns a *RangeError.
func Open(path string, initialSize int64, optFns ...Option) (*Stream, error) {
	o := applyOptions(optFns)

	start := time.Now()
	s, err := open(path, initialSize, o)
	o.metricsCollector.RecordOpen(time.Since(start), err)
	o.logger.LogOpen(path, initialSize, o.readOnly, err)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func open(path string, initialSize int64, o options) (*Stream, error) {
	if initialSize < 0 {
		return nil, &RangeError{Op: "open", Value: initialSize}
	}

	access := mmap.AccessReadWrite
	if o.readOnly {
		access = mmap.AccessRead
	}

	f, err := o.provider.OpenFile(path, access, o.perm)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	s := &Stream{
		name:     path,
		p:        o.provider,
		file:     f,
		writable: !o.readOnly,
		advice:   o.advice,
		logger:   o.logger,
		metrics:  o.metricsCollector,
	}

	size := initialSize
	if size == 0 {
		size, err = s.p.FileSize(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if err := s.remap(size); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// Name returns the path the stream was opened with.
func (s *Stream) Name() string {
	return s.name
}

// Writable reports whether the stream accepts writes.
func (s *Stream) Writable() bool {
	return s.writable && !s.closed
}

// Length returns the current mapped size in bytes.
func (s *Stream) Length() int64 {
	return s.size
}

// Position returns the cursor.
func (s *Stream) Position() int64 {
	return s.pos
}

// SetPosition moves the cursor to p. A position outside [0, Length]
// returns a *RangeError and leaves the cursor unchanged.
func (s *Stream) SetPosition(p int64) error {
	if s.closed {
		return ErrClosed
	}
	if p < 0 || p > s.size {
		return &RangeError{Op: "set position", Value: p, Length: s.size}
	}
	s.pos = p
	return nil
}

func (s *Stream) checkView() error {
	if s.closed {
		return ErrClosed
	}
	if !s.view.Valid() {
		return ErrNoView
	}
	return nil
}

// Read reads up to len(p) bytes from the cursor and advances it.
// At the end of the stream Read returns 0, io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	if err := s.checkView(); err != nil {
		return 0, err
	}
	if s.pos < 0 || s.pos > s.size {
		return 0, &RangeError{Op: "read", Value: s.pos, Length: s.size}
	}
	if len(p) == 0 {
		return 0, nil
	}
	if s.pos >= s.size {
		return 0, io.EOF
	}
	n := copy(p, s.view.Bytes()[s.pos:s.size])
	s.pos += int64(n)
	return n, nil
}

// ReadAt reads len(p) bytes starting at off without moving the cursor.
// It returns io.EOF when fewer than len(p) bytes are available.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if err := s.checkView(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, &RangeError{Op: "read at", Value: off, Length: s.size}
	}
	if off >= s.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, s.view.Bytes()[off:s.size])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Write writes p at the cursor and advances it. Writing past the end grows
// the file and the mapping to exactly the new end.
func (s *Stream) Write(p []byte) (int, error) {
	if !s.writable {
		return 0, ErrReadOnly
	}
	if err := s.checkView(); err != nil {
		return 0, err
	}
	if s.pos < 0 || s.pos > s.size {
		return 0, &RangeError{Op: "write", Value: s.pos, Length: s.size}
	}
	if len(p) == 0 {
		return 0, nil
	}
	if end := s.pos + int64(len(p)); end > s.size {
		if err := s.remap(end); err != nil {
			return 0, err
		}
	}
	n := copy(s.view.Bytes()[s.pos:], p)
	s.pos += int64(n)
	return n, nil
}

// WriteTo writes the bytes from the cursor to the end of the stream to w
// straight from the mapping and advances the cursor.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	if err := s.checkView(); err != nil {
		return 0, err
	}
	if s.pos >= s.size {
		return 0, nil
	}
	rest := s.view.Bytes()[s.pos:s.size]
	n, err := w.Write(rest)
	s.pos += int64(n)
	if err == nil && n < len(rest) {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// Seek sets the cursor relative to whence (io.SeekStart, io.SeekCurrent or
// io.SeekEnd) and returns the new position. A target outside [0, Length]
// returns a *RangeError and leaves the cursor unchanged.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = s.size + offset
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidWhence, whence)
	}
	if target < 0 || target > s.size {
		return 0, &RangeError{Op: "seek", Value: target, Length: s.size}
	}
	s.pos = target
	return target, nil
}

// SetLength grows the stream to n bytes. The new bytes read as zero.
// Shrinking returns ErrShrinkNotSupported and leaves the stream unchanged.
func (s *Stream) SetLength(n int64) error {
	if s.closed {
		return ErrClosed
	}
	if n < 0 {
		return &RangeError{Op: "set length", Value: n, Length: s.size}
	}
	switch {
	case n == s.size:
		return nil
	case n < s.size:
		return ErrShrinkNotSupported
	case !s.writable:
		return ErrReadOnly
	}
	return s.remap(n)
}

// Flush writes dirty pages of the mapping back to the file.
// It is a no-op on read-only streams.
func (s *Stream) Flush() error {
	if s.closed {
		return ErrClosed
	}
	if !s.writable || !s.view.Valid() {
		return nil
	}
	start := time.Now()
	err := s.view.Flush()
	s.metrics.RecordFlush(time.Since(start), err)
	return err
}

// Sync flushes the mapping and then the file's metadata to stable storage.
func (s *Stream) Sync() error {
	if err := s.Flush(); err != nil {
		return err
	}
	if !s.writable {
		return nil
	}
	return s.p.FlushFile(s.file)
}

// Advise hints the kernel how the mapping will be accessed. The hint is
// kept and re-applied after every remap.
func (s *Stream) Advise(pattern AccessPattern) error {
	if err := s.checkView(); err != nil {
		return err
	}
	s.advice = pattern
	return s.view.Advise(pattern)
}

// remap replaces the mapping and view with ones of newSize bytes.
// The cursor survives. If the new mapping cannot be created the previous
// size is mapped again so the stream stays usable.
func (s *Stream) remap(newSize int64) error {
	start := time.Now()
	oldSize := s.size
	hadView := s.view != nil
	pos := s.pos

	err := s.unmap()
	if err == nil {
		err = s.mapSize(newSize)
	}
	if err == nil {
		s.size = newSize
	} else if hadView && !s.view.Valid() {
		if rerr := s.mapSize(oldSize); rerr != nil {
			s.logger.Warn("restore mapping failed", "path", s.name, "size", oldSize, "error", rerr)
		}
	}
	s.pos = pos

	if hadView {
		s.metrics.RecordRemap(oldSize, newSize, time.Since(start), err)
		s.logger.LogRemap(s.name, oldSize, newSize, err)
	}
	return err
}

// unmap releases the view and then the mapping.
func (s *Stream) unmap() error {
	var errs []error
	if s.view != nil {
		errs = append(errs, s.view.Release())
	}
	if s.mapping != nil {
		errs = append(errs, s.mapping.Close())
	}
	return errors.Join(errs...)
}

func (s *Stream) mapSize(size int64) error {
	prot, access := mmap.ProtRead, mmap.AccessRead
	if s.writable {
		prot, access = mmap.ProtReadWrite, mmap.AccessReadWrite
	}

	m, err := s.p.CreateMapping(s.file, prot, size)
	if err != nil {
		return err
	}
	v, err := s.p.MapView(m, access, 0, 0)
	if err != nil {
		_ = m.Close()
		return err
	}
	s.mapping, s.view = m, v

	if s.advice != AccessDefault {
		if err := v.Advise(s.advice); err != nil {
			s.logger.Debug("advise failed", "path", s.name, "error", err)
		}
	}
	return nil
}

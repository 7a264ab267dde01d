package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mmapstream"
)

// Storage is a directory of named, mapped streams.
//
// Streams are opened lazily by File and are owned by the storage: they stay
// open until Close and must not be closed by the caller. Storage is safe for
// concurrent use; the streams it returns are not.
type Storage struct {
	dir  string
	opts options

	mu     sync.Mutex
	files  map[string]*mmapstream.Stream
	closed bool
}

// Open opens (or creates) the storage directory dir.
func Open(dir string, optFns ...Option) (*Storage, error) {
	o := applyOptions(optFns)
	if err := o.compression.validate(); err != nil {
		return nil, err
	}
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &Storage{
		dir:   dir,
		opts:  o,
		files: make(map[string]*mmapstream.Stream),
	}, nil
}

// Dir returns the storage directory.
func (s *Storage) Dir() string {
	return s.dir
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name == ManifestName {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// File returns the stream for name, opening it on first use.
//
// A new file is mapped at the configured reservation; an existing file that
// is larger keeps its size.
func (s *Storage) File(name string) (*mmapstream.Stream, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if f, ok := s.files[name]; ok {
		return f, nil
	}

	size := s.opts.reservation
	if fi, err := s.opts.fs.Stat(filepath.Join(s.dir, name)); err == nil && fi.Size() >= size {
		size = 0
	}

	f, err := s.openStream(name, size)
	if err != nil {
		return nil, err
	}
	s.files[name] = f
	return f, nil
}

// create opens a file that must not exist yet and registers it.
func (s *Storage) create(name string, size int64) (*mmapstream.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.files[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}
	if _, err := s.opts.fs.Stat(filepath.Join(s.dir, name)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}

	f, err := s.openStream(name, size)
	if err != nil {
		return nil, err
	}
	s.files[name] = f
	return f, nil
}

func (s *Storage) openStream(name string, size int64) (*mmapstream.Stream, error) {
	optFns := make([]mmapstream.Option, 0, len(s.opts.streamOpts)+1)
	optFns = append(optFns, mmapstream.WithLogger(s.opts.logger.WithComponent("storage")))
	optFns = append(optFns, s.opts.streamOpts...)
	return mmapstream.Open(filepath.Join(s.dir, name), size, optFns...)
}

// Names returns the names of the open files in sorted order.
func (s *Storage) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedKeys(s.files)
}

// Flush writes every open file's dirty pages back to disk.
func (s *Storage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.flushLocked()
}

func (s *Storage) flushLocked() error {
	var g errgroup.Group
	for name, f := range s.files {
		g.Go(func() error {
			if err := f.Flush(); err != nil {
				return fmt.Errorf("storage: flush %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close closes every open file. All files are closed even if some fail;
// the errors are joined. Close is idempotent.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, name := range sortedKeys(s.files) {
		if err := s.files[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: close %s: %w", name, err))
		}
	}
	s.files = nil
	return errors.Join(errs...)
}

func sortedKeys(m map[string]*mmapstream.Stream) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

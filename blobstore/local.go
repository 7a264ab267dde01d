package blobstore

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/mmapstream"
	"github.com/hupe1980/mmapstream/internal/fs"
)

// tmpSuffix marks blobs that are still being written.
const tmpSuffix = ".tmp"

// writeBufferSize batches small writes so a growing stream remaps rarely.
const writeBufferSize = 1 << 20

// LocalStore implements BlobStore using the local file system.
//
// Blobs are read through read-only mapped streams and written to a
// temporary file that is renamed into place on Close.
type LocalStore struct {
	root string
	opts []mmapstream.Option
	fs   fs.FileSystem
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
// optFns are passed to every stream the store opens.
func NewLocalStore(root string, optFns ...mmapstream.Option) *LocalStore {
	return &LocalStore{root: root, opts: optFns, fs: fs.Default}
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

func (s *LocalStore) streamOpts(extra ...mmapstream.Option) []mmapstream.Option {
	out := make([]mmapstream.Option, 0, len(s.opts)+len(extra))
	out = append(out, s.opts...)
	return append(out, extra...)
}

// Open opens a blob for reading.
//
// The blob is mapped read-only and holds the file's exclusive lock until
// it is closed.
func (s *LocalStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.path(name)
	if _, err := s.fs.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	st, err := mmapstream.Open(path, 0, s.streamOpts(mmapstream.WithReadOnly())...)
	if err != nil {
		return nil, err
	}
	return &localBlob{s: st}, nil
}

// Create creates a new blob for streaming writes.
func (s *LocalStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	final := s.path(name)
	if err := s.fs.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, err
	}

	tmp := final + tmpSuffix
	_ = s.fs.Remove(tmp)

	st, err := mmapstream.Open(tmp, 0, s.streamOpts()...)
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{
		fs:    s.fs,
		s:     st,
		w:     bufio.NewWriterSize(st, writeBufferSize),
		tmp:   tmp,
		final: final,
	}, nil
}

// Put writes a blob atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	final := s.path(name)
	if err := s.fs.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}

	tmp := final + tmpSuffix
	_ = s.fs.Remove(tmp)

	// The exact size is known, so the stream is mapped once.
	st, err := mmapstream.Open(tmp, int64(len(data)), s.streamOpts()...)
	if err != nil {
		return err
	}
	if _, err := st.Write(data); err != nil {
		_ = st.Close()
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := st.Sync(); err != nil {
		_ = st.Close()
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := st.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := s.fs.Rename(tmp, final); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return nil
}

// Delete removes a blob.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.fs.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// List returns all blobs matching the prefix. Names use forward slashes.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && path == s.root {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, tmpSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

type localBlob struct {
	mu sync.Mutex
	s  *mmapstream.Stream
}

func (b *localBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s.ReadAt(p, off)
}

func (b *localBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if off < 0 || length < 0 {
		return nil, mmapstream.ErrOutOfRange
	}
	size := b.Size()
	if off > size {
		off = size
	}
	if length > size-off {
		length = size - off
	}
	return io.NopCloser(io.NewSectionReader(&lockedReaderAt{b: b, ctx: ctx}, off, length)), nil
}

func (b *localBlob) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s.Length()
}

func (b *localBlob) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s.Close()
}

type lockedReaderAt struct {
	b   *localBlob
	ctx context.Context
}

func (r *lockedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return r.b.ReadAt(r.ctx, p, off)
}

type localWritableBlob struct {
	fs     fs.FileSystem
	s      *mmapstream.Stream
	w      *bufio.Writer
	tmp    string
	final  string
	closed bool
}

func (b *localWritableBlob) Write(p []byte) (int, error) {
	if b.closed {
		return 0, mmapstream.ErrClosed
	}
	return b.w.Write(p)
}

func (b *localWritableBlob) Sync() error {
	if b.closed {
		return mmapstream.ErrClosed
	}
	if err := b.w.Flush(); err != nil {
		return err
	}
	return b.s.Sync()
}

// Close flushes the blob and moves it into place.
func (b *localWritableBlob) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.w.Flush()
	if err == nil {
		err = b.s.Sync()
	}
	if cerr := b.s.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = b.fs.Rename(b.tmp, b.final)
	}
	if err != nil {
		_ = b.fs.Remove(b.tmp)
		return err
	}
	return nil
}

package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/crc32"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mmapstream"
	"github.com/hupe1980/mmapstream/blobstore"
	"github.com/hupe1980/mmapstream/resource"
)

// stagingBufferSize is the per-file buffer between a stream and a blob.
const stagingBufferSize = 1 << 20

// Backup flushes every open file and writes it to store, followed by the
// manifest. File positions are preserved. No file can be opened while a
// backup runs.
func (s *Storage) Backup(ctx context.Context, store blobstore.BlobStore) error {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.flushLocked(); err != nil {
		return err
	}

	names := sortedKeys(s.files)
	infos := make([]FileInfo, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		f := s.files[name]
		g.Go(func() error {
			info, err := s.backupFile(gctx, store, name, f)
			if err != nil {
				return fmt.Errorf("storage: backup %s: %w", name, err)
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.opts.logger.ErrorContext(ctx, "backup failed", "dir", s.dir, "error", err)
		return err
	}

	m := &Manifest{
		Version:     CurrentVersion,
		CreatedAt:   time.Now().UTC(),
		Compression: s.opts.compression,
		Files:       infos,
	}
	if err := saveManifest(ctx, store, m); err != nil {
		return fmt.Errorf("storage: write manifest: %w", err)
	}

	s.opts.logger.InfoContext(ctx, "backup completed",
		"dir", s.dir,
		"files", len(infos),
		"compression", string(s.opts.compression),
		"duration", time.Since(start),
	)
	return nil
}

func (s *Storage) backupFile(ctx context.Context, store blobstore.BlobStore, name string, f *mmapstream.Stream) (FileInfo, error) {
	rc := s.opts.controller
	if err := rc.AcquireBackground(ctx); err != nil {
		return FileInfo{}, err
	}
	defer rc.ReleaseBackground()

	bufSize, err := rc.AcquireBuffer(ctx, stagingBufferSize)
	if err != nil {
		return FileInfo{}, err
	}
	defer rc.ReleaseBuffer(bufSize)

	blobName := name + s.opts.compression.Ext()
	w, err := store.Create(ctx, blobName)
	if err != nil {
		return FileInfo{}, err
	}

	bw := bufio.NewWriterSize(resource.NewRateLimitedWriter(ctx, w, rc), int(bufSize))
	enc, err := newEncoder(s.opts.compression, bw)
	if err != nil {
		_ = w.Close()
		return FileInfo{}, err
	}

	h := crc32.New(castagnoli)
	n, err := copyFrom(f, io.MultiWriter(enc, h))
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		Name:   name,
		Blob:   blobName,
		Size:   n,
		CRC32C: h.Sum32(),
	}, nil
}

// copyFrom writes the whole of f to w and restores f's position.
func copyFrom(f *mmapstream.Stream, w io.Writer) (int64, error) {
	pos := f.Position()
	if err := f.SetPosition(0); err != nil {
		return 0, err
	}
	n, err := f.WriteTo(w)
	if perr := f.SetPosition(pos); err == nil {
		err = perr
	}
	return n, err
}

// Restore creates a storage in dir from the backup in store.
//
// None of the backed-up files may exist in dir. On failure the files
// created so far are removed. optFns configure the returned storage; the
// compression is taken from the manifest.
func Restore(ctx context.Context, store blobstore.BlobStore, dir string, optFns ...Option) (*Storage, error) {
	start := time.Now()

	m, err := LoadManifest(ctx, store)
	if err != nil {
		return nil, err
	}

	s, err := Open(dir, optFns...)
	if err != nil {
		return nil, err
	}

	for _, fi := range m.Files {
		if _, err := s.opts.fs.Stat(filepath.Join(dir, fi.Name)); err == nil {
			_ = s.Close()
			return nil, fmt.Errorf("%w: %s", ErrExists, fi.Name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, fi := range m.Files {
		g.Go(func() error {
			if err := s.restoreFile(gctx, store, m.Compression, fi); err != nil {
				return fmt.Errorf("storage: restore %s: %w", fi.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.opts.logger.ErrorContext(ctx, "restore failed", "dir", dir, "error", err)
		return nil, errors.Join(err, s.discard())
	}

	s.opts.logger.InfoContext(ctx, "restore completed",
		"dir", dir,
		"files", len(m.Files),
		"compression", string(m.Compression),
		"duration", time.Since(start),
	)
	return s, nil
}

func (s *Storage) restoreFile(ctx context.Context, store blobstore.BlobStore, c Compression, fi FileInfo) error {
	rc := s.opts.controller
	if err := rc.AcquireBackground(ctx); err != nil {
		return err
	}
	defer rc.ReleaseBackground()

	bufSize, err := rc.AcquireBuffer(ctx, stagingBufferSize)
	if err != nil {
		return err
	}
	defer rc.ReleaseBuffer(bufSize)

	b, err := store.Open(ctx, fi.Blob)
	if err != nil {
		return err
	}
	defer b.Close()

	r, err := blobstore.NewReader(ctx, b)
	if err != nil {
		return err
	}
	defer r.Close()

	dec, err := newDecoder(c, bufio.NewReaderSize(resource.NewRateLimitedReader(ctx, r, rc), int(bufSize)))
	if err != nil {
		return err
	}
	defer dec.Close()

	f, err := s.create(fi.Name, fi.Size)
	if err != nil {
		return err
	}

	h := crc32.New(castagnoli)
	n, err := io.Copy(io.MultiWriter(f, h), dec)
	if err != nil {
		return err
	}
	if n != fi.Size {
		return fmt.Errorf("%w: %s: size %d, want %d", ErrCorruptBackup, fi.Name, n, fi.Size)
	}
	if sum := h.Sum32(); sum != fi.CRC32C {
		return fmt.Errorf("%w: %s: crc32c %08x, want %08x", ErrCorruptBackup, fi.Name, sum, fi.CRC32C)
	}
	if err := f.SetPosition(0); err != nil {
		return err
	}
	return f.Flush()
}

// discard closes s and removes every file it opened.
func (s *Storage) discard() error {
	names := s.Names()
	err := s.Close()
	for _, name := range names {
		if rerr := s.opts.fs.Remove(filepath.Join(s.dir, name)); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = errors.Join(err, rerr)
		}
	}
	return err
}

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
)

// ErrAborted is returned by a PipeBlob that was aborted.
var ErrAborted = errors.New("blobstore: upload aborted")

// Keyspace maps blob names to object keys below a root prefix.
type Keyspace struct {
	Root string
}

// Key returns the object key for name.
func (k Keyspace) Key(name string) string {
	return path.Join(k.Root, name)
}

// ListPrefix returns the object key prefix matching blob names that start
// with prefix. A directory-like prefix keeps its trailing slash.
func (k Keyspace) ListPrefix(prefix string) string {
	p := k.Key(prefix)
	if (prefix == "" && k.Root != "") || strings.HasSuffix(prefix, "/") {
		p += "/"
	}
	return p
}

// Name returns the blob name for an object key below the root.
func (k Keyspace) Name(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, k.Root), "/")
}

// Range is an inclusive byte range of a remote object.
type Range struct {
	Start, End int64
}

// ClampRange limits [off, off+length) to an object of size bytes.
// ok is false when nothing remains to be read.
func ClampRange(off, length, size int64) (r Range, ok bool) {
	if off < 0 || length <= 0 || off >= size {
		return Range{}, false
	}
	return Range{Start: off, End: min(off+length, size) - 1}, true
}

// Len returns the number of bytes in r.
func (r Range) Len() int64 { return r.End - r.Start + 1 }

// Header formats r for an HTTP Range header.
func (r Range) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ReadAtRange implements Blob.ReadAt for blobs that can only serve range
// requests. It issues one request and returns io.EOF for short reads.
func ReadAtRange(ctx context.Context, b Blob, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r, ok := ClampRange(off, int64(len(p)), b.Size())
	if !ok {
		return 0, io.EOF
	}

	body, err := b.ReadRange(ctx, r.Start, r.Len())
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	n, err := io.ReadFull(body, p[:r.Len()])
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n, io.EOF
	case err != nil:
		return n, err
	case n < len(p):
		return n, io.EOF
	}
	return n, nil
}

// PipeBlob is a WritableBlob whose bytes are streamed to an upload running
// in the background. The object is committed when Close returns nil.
type PipeBlob struct {
	pw   *io.PipeWriter
	done chan error

	mu       sync.Mutex
	closed   bool
	closeErr error
}

// NewPipeBlob starts upload in a goroutine. upload reads the blob's bytes
// from r until EOF; an early return unblocks pending writes with its error.
func NewPipeBlob(upload func(r io.Reader) error) *PipeBlob {
	pr, pw := io.Pipe()
	b := &PipeBlob{pw: pw, done: make(chan error, 1)}

	go func() {
		err := upload(pr)
		_ = pr.CloseWithError(err)
		b.done <- err
	}()
	return b
}

func (b *PipeBlob) Write(p []byte) (int, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}
	return b.pw.Write(p)
}

// Close finishes the upload and waits for it. Later calls return the same result.
func (b *PipeBlob) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return b.closeErr
	}
	b.closed = true

	if err := b.pw.Close(); err != nil {
		b.closeErr = err
		return err
	}
	b.closeErr = <-b.done
	return b.closeErr
}

// Abort stops the upload without committing it and waits for it to end.
func (b *PipeBlob) Abort() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	_ = b.pw.CloseWithError(ErrAborted)
	<-b.done
	b.closeErr = ErrAborted
	return nil
}

// Sync is a no-op; data is only committed on Close.
func (b *PipeBlob) Sync() error {
	return nil
}

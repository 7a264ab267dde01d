package mmap

import "os"

// File is an exclusively owned file handle.
// It outlives every Mapping created over it.
type File struct {
	f      *os.File
	name   string
	access Access
	p      Provider
	closed bool
}

func newFile(p Provider, f *os.File, access Access) *File {
	return &File{f: f, name: f.Name(), access: access, p: p}
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.name
}

// Access returns the access mode the file was opened with.
func (f *File) Access() Access {
	return f.access
}

// Valid reports whether the handle is still open.
func (f *File) Valid() bool {
	return f != nil && !f.closed && f.f != nil
}

// Close releases the handle. It is idempotent.
func (f *File) Close() error {
	if f == nil || f.closed {
		return nil
	}
	f.closed = true
	return f.p.CloseFile(f)
}

// Mapping is a size-bounded mapping object over a File.
// Its size is fixed at creation; growing requires a new Mapping.
type Mapping struct {
	file   *File
	prot   Protection
	size   int64
	handle uintptr // windows only
	p      Provider
	closed bool
}

// File returns the file the mapping was created over.
func (m *Mapping) File() *File {
	return m.file
}

// Size returns the fixed capacity of the mapping in bytes.
func (m *Mapping) Size() int64 {
	return m.size
}

// Protection returns the page protection of the mapping.
func (m *Mapping) Protection() Protection {
	return m.prot
}

// Valid reports whether the mapping and its file are still open.
func (m *Mapping) Valid() bool {
	return m != nil && !m.closed && m.file.Valid()
}

// Close releases the mapping object. It is idempotent.
// Views mapped from it must be released first.
func (m *Mapping) Close() error {
	if m == nil || m.closed {
		return nil
	}
	m.closed = true
	return m.p.CloseMapping(m)
}

// viewLength validates a view request and resolves length 0 to "rest of the mapping".
func viewLength(op string, m *Mapping, access Access, offset int64, length int) (int, error) {
	if !m.Valid() {
		return 0, newError(op, ErrClosed)
	}
	if access == AccessReadWrite && m.prot != ProtReadWrite {
		return 0, newError(op, os.ErrPermission)
	}
	if offset < 0 || length < 0 || offset > m.size {
		return 0, newError(op, ErrInvalidRange)
	}
	if length == 0 {
		rest := m.size - offset
		if int64(int(rest)) != rest {
			return 0, newError(op, ErrInvalidSize)
		}
		return int(rest), nil
	}
	if offset+int64(length) > m.size {
		return 0, newError(op, ErrInvalidRange)
	}
	return length, nil
}

// checkMapping validates a CreateMapping request shared by all backends.
func checkMapping(f *File, prot Protection, maxSize int64) error {
	if !f.Valid() {
		return newError("create mapping", ErrClosed)
	}
	if maxSize < 0 || int64(int(maxSize)) != maxSize {
		return newError("create mapping", ErrInvalidSize)
	}
	if prot == ProtReadWrite && f.access != AccessReadWrite {
		return newError("create mapping", os.ErrPermission)
	}
	return nil
}

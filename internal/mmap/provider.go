package mmap

import "os"

// Provider creates and releases the OS resources behind a mapped stream.
//
// OpenFile opens or creates path with exclusive access. Failures are
// returned as *os.PathError or wrap ErrLocked. Every other operation fails
// with *Error.
//
// MapView maps length bytes starting at offset; length 0 maps the rest of
// the mapping. Unmap, CloseMapping and CloseFile are safe on resources that
// are already released.
type Provider interface {
	OpenFile(path string, access Access, perm os.FileMode) (*File, error)
	FileSize(f *File) (int64, error)
	CreateMapping(f *File, prot Protection, maxSize int64) (*Mapping, error)
	MapView(m *Mapping, access Access, offset int64, length int) (*View, error)
	FlushView(v *View, offset, length int) error
	FlushFile(f *File) error
	Unmap(v *View) error
	CloseMapping(m *Mapping) error
	CloseFile(f *File) error
}

type osProvider struct{}

// OS is the provider backed by the host operating system.
var OS Provider = osProvider{}

func (osProvider) FileSize(f *File) (int64, error) {
	if !f.Valid() {
		return 0, newError("file size", ErrClosed)
	}
	fi, err := f.f.Stat()
	if err != nil {
		return 0, newError("file size", err)
	}
	return fi.Size(), nil
}

func (osProvider) FlushFile(f *File) error {
	if f == nil || f.f == nil {
		return newError("flush file", ErrClosed)
	}
	if err := f.f.Sync(); err != nil {
		return newError("flush file", err)
	}
	return nil
}

func (osProvider) CloseFile(f *File) error {
	if f == nil || f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	if err != nil {
		return newError("close file", err)
	}
	return nil
}

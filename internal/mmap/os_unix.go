//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package mmap

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var pageSize = unix.Getpagesize()

func (osProvider) OpenFile(path string, access Access, perm os.FileMode) (*File, error) {
	flag := os.O_RDONLY | os.O_CREATE
	if access == AccessReadWrite {
		flag = os.O_RDWR | os.O_CREATE
	}

	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	// flock locks belong to the open file description, so a second open of
	// the same path conflicts even inside this process.
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, &os.PathError{Op: "flock", Path: path, Err: err}
	}

	return newFile(OS, f, access), nil
}

// CreateMapping extends the file to maxSize for writable mappings, the way
// CreateFileMapping does on Windows. POSIX has no separate mapping object,
// so the Mapping only records the bound.
func (osProvider) CreateMapping(f *File, prot Protection, maxSize int64) (*Mapping, error) {
	if err := checkMapping(f, prot, maxSize); err != nil {
		return nil, err
	}

	fi, err := f.f.Stat()
	if err != nil {
		return nil, newError("create mapping", err)
	}
	if maxSize > fi.Size() {
		if prot != ProtReadWrite {
			return nil, newError("create mapping", ErrBeyondEOF)
		}
		if err := unix.Ftruncate(int(f.f.Fd()), maxSize); err != nil {
			return nil, newError("ftruncate", err)
		}
	}

	return &Mapping{file: f, prot: prot, size: maxSize, p: OS}, nil
}

func (osProvider) MapView(m *Mapping, access Access, offset int64, length int) (*View, error) {
	n, err := viewLength("map view", m, access, offset, length)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return newView(OS, m, nil, offset, access), nil
	}

	prot := unix.PROT_READ
	if access == AccessReadWrite {
		prot |= unix.PROT_WRITE
	}

	data, err := unix.Mmap(int(m.file.f.Fd()), offset, n, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, newError("mmap", err)
	}

	return newView(OS, m, data, offset, access), nil
}

func (osProvider) FlushView(v *View, offset, length int) error {
	if v == nil || len(v.data) == 0 {
		return nil
	}
	// msync needs a page-aligned start address.
	start := offset &^ (pageSize - 1)
	if err := unix.Msync(v.data[start:offset+length], unix.MS_SYNC); err != nil {
		return newError("msync", err)
	}
	return nil
}

func (osProvider) Unmap(v *View) error {
	if v == nil || len(v.data) == 0 {
		return nil
	}
	if err := unix.Munmap(v.data); err != nil {
		return newError("munmap", err)
	}
	return nil
}

func (osProvider) CloseMapping(*Mapping) error {
	return nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontNeed:
		advice = unix.MADV_DONTNEED
	default:
		advice = unix.MADV_NORMAL
	}

	// The hint is advisory; alignment complaints are not worth surfacing.
	err := unix.Madvise(data, advice)
	if errors.Is(err, unix.EINVAL) {
		return nil
	}
	return err
}

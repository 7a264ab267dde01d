//go:build windows

package mmap

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func (osProvider) OpenFile(path string, access Access, _ os.FileMode) (*File, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}

	desired := uint32(windows.GENERIC_READ)
	if access == AccessReadWrite {
		desired |= windows.GENERIC_WRITE
	}

	// Share mode 0 keeps every other opener out while we hold the handle.
	h, err := windows.CreateFile(name, desired, 0, nil, windows.OPEN_ALWAYS, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		if errors.Is(err, windows.ERROR_SHARING_VIOLATION) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}

	return newFile(OS, os.NewFile(uintptr(h), path), access), nil
}

func (osProvider) CreateMapping(f *File, prot Protection, maxSize int64) (*Mapping, error) {
	if err := checkMapping(f, prot, maxSize); err != nil {
		return nil, err
	}

	fi, err := f.f.Stat()
	if err != nil {
		return nil, newError("create mapping", err)
	}
	if maxSize > fi.Size() && prot != ProtReadWrite {
		return nil, newError("create mapping", ErrBeyondEOF)
	}

	// CreateFileMapping rejects empty mappings; a zero bound needs no object.
	if maxSize == 0 {
		return &Mapping{file: f, prot: prot, p: OS}, nil
	}

	protect := uint32(windows.PAGE_READONLY)
	if prot == ProtReadWrite {
		protect = windows.PAGE_READWRITE
	}

	h, err := windows.CreateFileMapping(windows.Handle(f.f.Fd()), nil, protect,
		uint32(uint64(maxSize)>>32), uint32(maxSize), nil)
	if err != nil {
		return nil, newError("CreateFileMapping", err)
	}

	return &Mapping{file: f, prot: prot, size: maxSize, handle: uintptr(h), p: OS}, nil
}

func (osProvider) MapView(m *Mapping, access Access, offset int64, length int) (*View, error) {
	n, err := viewLength("map view", m, access, offset, length)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return newView(OS, m, nil, offset, access), nil
	}

	desired := uint32(windows.FILE_MAP_READ)
	if access == AccessReadWrite {
		desired = windows.FILE_MAP_WRITE
	}

	addr, err := windows.MapViewOfFile(windows.Handle(m.handle), desired,
		uint32(uint64(offset)>>32), uint32(offset), uintptr(n))
	if err != nil {
		return nil, newError("MapViewOfFile", err)
	}

	v := newView(OS, m, unsafe.Slice((*byte)(unsafe.Pointer(addr)), n), offset, access)
	v.addr = addr
	return v, nil
}

func (osProvider) FlushView(v *View, offset, length int) error {
	if v == nil || len(v.data) == 0 {
		return nil
	}
	if err := windows.FlushViewOfFile(v.addr+uintptr(offset), uintptr(length)); err != nil {
		return newError("FlushViewOfFile", err)
	}
	return nil
}

func (osProvider) Unmap(v *View) error {
	if v == nil || len(v.data) == 0 {
		return nil
	}
	if err := windows.UnmapViewOfFile(v.addr); err != nil {
		return newError("UnmapViewOfFile", err)
	}
	return nil
}

func (osProvider) CloseMapping(m *Mapping) error {
	if m == nil || m.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(windows.Handle(m.handle))
	m.handle = 0
	if err != nil {
		return newError("CloseHandle", err)
	}
	return nil
}

// osAdvise is a no-op: Windows has no madvise equivalent.
func osAdvise([]byte, AccessPattern) error {
	return nil
}

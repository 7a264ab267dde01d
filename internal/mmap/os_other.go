//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package mmap

import "os"

func (osProvider) OpenFile(path string, _ Access, _ os.FileMode) (*File, error) {
	return nil, &os.PathError{Op: "open", Path: path, Err: ErrUnsupported}
}

func (osProvider) CreateMapping(*File, Protection, int64) (*Mapping, error) {
	return nil, newError("create mapping", ErrUnsupported)
}

func (osProvider) MapView(*Mapping, Access, int64, int) (*View, error) {
	return nil, newError("map view", ErrUnsupported)
}

func (osProvider) FlushView(*View, int, int) error {
	return newError("flush view", ErrUnsupported)
}

func (osProvider) Unmap(*View) error {
	return nil
}

func (osProvider) CloseMapping(*Mapping) error {
	return nil
}

func osAdvise([]byte, AccessPattern) error {
	return nil
}

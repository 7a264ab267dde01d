package storage

import "errors"

var (
	// ErrClosed is returned when the storage has been closed.
	ErrClosed = errors.New("storage: closed")

	// ErrInvalidName is returned for file names that are empty, contain a
	// path separator or collide with the manifest.
	ErrInvalidName = errors.New("storage: invalid file name")

	// ErrExists is returned by Restore when a target file already exists.
	ErrExists = errors.New("storage: file already exists")

	// ErrCorruptBackup is returned when restored data does not match the manifest.
	ErrCorruptBackup = errors.New("storage: corrupt backup")

	// ErrUnsupportedCompression is returned for unknown compression names.
	ErrUnsupportedCompression = errors.New("storage: unsupported compression")

	// ErrUnsupportedVersion is returned for manifests written by a newer format.
	ErrUnsupportedVersion = errors.New("storage: unsupported manifest version")
)

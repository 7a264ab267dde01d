// Package mmapstream provides a seekable, growable byte stream over a
// memory-mapped file.
//
// A Stream exposes a single file as an ordinary read/write/seek stream
// whose bytes live in a shared mapping of the file. Reads and writes are
// plain memory copies; the OS pages data in and writes dirty pages back.
// Writing past the end grows the file and the mapping. The stream never
// shrinks.
//
// # Quick Start
//
//	s, err := mmapstream.Open("data.db", 1<<20) // reserve 1 MiB
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	s.Write([]byte("hello"))
//	s.Seek(0, io.SeekStart)
//	buf := make([]byte, 5)
//	s.Read(buf)
//
// Passing 0 as initial size maps the file at its current on-disk size:
//
//	s, _ := mmapstream.Open("data.db", 0, mmapstream.WithReadOnly())
//
// # Resources
//
// Each stream owns three nested OS resources: the file handle, a mapping
// object sized to the current length, and a view of the whole mapping.
// Growing the stream releases the view and mapping and creates new ones;
// the file handle lives until Close. Close tears the chain down in reverse
// order exactly once.
//
// # Ownership
//
// The file is opened with an exclusive lock. A second Open of the same
// path, in this or any other process, fails with an *IOError until the
// first stream is closed.
//
// A Stream is not safe for concurrent use. Callers serialize access.
//
// # Error Handling
//
// Errors fall into a small set of kinds:
//
//	*IOError        the file could not be opened or created
//	*PlatformError  the OS rejected a mapping, view, flush or release
//	ErrInvalidState the stream is closed or lost its view
//	*RangeError     a position or size outside [0, Length]
//	ErrNotSupported read-only writes and shrinking
//
// Use errors.Is and errors.As to inspect them.
package mmapstream

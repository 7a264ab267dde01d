// Package mmap is the platform mapping provider behind mmapstream.
//
// # Overview
//
// A memory-mapped stream owns three nested OS resources:
//
//   - [File]: an open file handle, taken with an exclusive lock
//   - [Mapping]: a size-bounded mapping object over the file
//   - [View]: the mapping projected into the address space
//
// The [Provider] interface creates, flushes and releases each of them. The
// stream depends only on the interface, so tests can substitute a
// [FaultyProvider] and other platforms can plug in their own backend.
//
// # Usage
//
//	f, err := mmap.OS.OpenFile("data.db", mmap.AccessReadWrite, 0o644)
//	if err != nil { ... }
//	defer f.Close()
//
//	m, err := mmap.OS.CreateMapping(f, mmap.ProtReadWrite, 1<<20)
//	if err != nil { ... }
//	defer m.Close()
//
//	v, err := mmap.OS.MapView(m, mmap.AccessReadWrite, 0, 0)
//	if err != nil { ... }
//	defer v.Release()
//
//	copy(v.Bytes(), "hello")
//	_ = v.Flush()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): flock(2) for exclusive access, ftruncate(2)
//     to size writable mappings, mmap(2)/msync(2)/madvise(2).
//   - Windows: CreateFile with share mode 0, CreateFileMapping,
//     MapViewOfFile, FlushViewOfFile and FlushFileBuffers. Advise is a no-op.
//   - Other platforms return [ErrUnsupported] from every operation.
//
// # Thread Safety
//
// Resources are owned by a single caller. Release, Close and Unmap are
// idempotent but not synchronized.
package mmap

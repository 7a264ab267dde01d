package mmap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, access Access) *File {
	t.Helper()
	f, err := OS.OpenFile(filepath.Join(t.TempDir(), "test.dat"), access, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestOpenFile_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.dat")

	f, err := OS.OpenFile(path, AccessReadWrite, 0o644)
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, f.Valid())
	assert.Equal(t, path, f.Name())
	assert.Equal(t, AccessReadWrite, f.Access())

	size, err := OS.FileSize(f)
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenFile_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.dat")

	f, err := OS.OpenFile(path, AccessReadWrite, 0o644)
	require.NoError(t, err)

	_, err = OS.OpenFile(path, AccessRead, 0o644)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, f.Close())

	// Lock is released with the handle.
	f2, err := OS.OpenFile(path, AccessRead, 0o644)
	require.NoError(t, err)
	assert.NoError(t, f2.Close())
}

func TestOpenFile_BadPath(t *testing.T) {
	_, err := OS.OpenFile(filepath.Join(t.TempDir(), "missing", "dir", "x.dat"), AccessReadWrite, 0o644)
	var pathErr *os.PathError
	assert.ErrorAs(t, err, &pathErr)
}

func TestCreateMapping_ExtendsWritableFile(t *testing.T) {
	f := openTemp(t, AccessReadWrite)

	m, err := OS.CreateMapping(f, ProtReadWrite, 8192)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, int64(8192), m.Size())
	assert.Equal(t, ProtReadWrite, m.Protection())
	assert.Same(t, f, m.File())

	size, err := OS.FileSize(f)
	require.NoError(t, err)
	assert.Equal(t, int64(8192), size)
}

func TestCreateMapping_ReadOnlyBeyondEOF(t *testing.T) {
	f := openTemp(t, AccessRead)

	_, err := OS.CreateMapping(f, ProtRead, 100)
	var mErr *Error
	require.ErrorAs(t, err, &mErr)
	assert.ErrorIs(t, err, ErrBeyondEOF)
}

func TestCreateMapping_WriteOnReadOnlyFile(t *testing.T) {
	f := openTemp(t, AccessRead)

	_, err := OS.CreateMapping(f, ProtReadWrite, 0)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestCreateMapping_InvalidSize(t *testing.T) {
	f := openTemp(t, AccessReadWrite)

	_, err := OS.CreateMapping(f, ProtReadWrite, -1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestCreateMapping_ClosedFile(t *testing.T) {
	f := openTemp(t, AccessReadWrite)
	require.NoError(t, f.Close())

	_, err := OS.CreateMapping(f, ProtReadWrite, 10)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMapView_WriteFlushRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.dat")
	f, err := OS.OpenFile(path, AccessReadWrite, 0o644)
	require.NoError(t, err)

	m, err := OS.CreateMapping(f, ProtReadWrite, 4096)
	require.NoError(t, err)

	v, err := OS.MapView(m, AccessReadWrite, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 4096, v.Len())
	assert.True(t, v.Valid())
	assert.True(t, v.Writable())

	copy(v.Bytes()[100:], "modified")
	require.NoError(t, v.FlushRange(100, 8))
	require.NoError(t, v.Flush())

	require.NoError(t, v.Release())
	require.NoError(t, m.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "modified", string(data[100:108]))
}

func TestMapView_ZeroLength(t *testing.T) {
	f := openTemp(t, AccessRead)

	m, err := OS.CreateMapping(f, ProtRead, 0)
	require.NoError(t, err)
	defer m.Close()

	v, err := OS.MapView(m, AccessRead, 0, 0)
	require.NoError(t, err)

	assert.True(t, v.Valid())
	assert.Equal(t, 0, v.Len())
	assert.NoError(t, v.Flush())
	assert.NoError(t, v.Release())
	assert.False(t, v.Valid())
}

func TestMapView_InvalidRequests(t *testing.T) {
	f := openTemp(t, AccessReadWrite)
	m, err := OS.CreateMapping(f, ProtReadWrite, 4096)
	require.NoError(t, err)
	defer m.Close()

	_, err = OS.MapView(m, AccessReadWrite, -1, 0)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = OS.MapView(m, AccessReadWrite, 0, 8192)
	assert.ErrorIs(t, err, ErrInvalidRange)

	ro, err := OS.CreateMapping(f, ProtRead, 4096)
	require.NoError(t, err)
	defer ro.Close()

	_, err = OS.MapView(ro, AccessReadWrite, 0, 0)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestView_ReleaseIdempotent(t *testing.T) {
	f := openTemp(t, AccessReadWrite)
	m, err := OS.CreateMapping(f, ProtReadWrite, 4096)
	require.NoError(t, err)
	defer m.Close()

	v, err := OS.MapView(m, AccessReadWrite, 0, 0)
	require.NoError(t, err)

	require.NoError(t, v.Release())
	assert.Nil(t, v.Bytes())
	assert.Equal(t, 0, v.Len())
	assert.NoError(t, v.Release())

	// Flushing a released view is a no-op.
	assert.NoError(t, v.Flush())
	assert.ErrorIs(t, v.Advise(AccessRandom), ErrClosed)
}

func TestView_FlushRangeBounds(t *testing.T) {
	f := openTemp(t, AccessReadWrite)
	m, err := OS.CreateMapping(f, ProtReadWrite, 4096)
	require.NoError(t, err)
	defer m.Close()

	v, err := OS.MapView(m, AccessReadWrite, 0, 0)
	require.NoError(t, err)
	defer v.Release()

	assert.ErrorIs(t, v.FlushRange(4000, 200), ErrInvalidRange)
	assert.ErrorIs(t, v.FlushRange(-1, 1), ErrInvalidRange)
	assert.NoError(t, v.FlushRange(4095, 1))
}

func TestView_Advise(t *testing.T) {
	f := openTemp(t, AccessReadWrite)
	m, err := OS.CreateMapping(f, ProtReadWrite, 4096)
	require.NoError(t, err)
	defer m.Close()

	v, err := OS.MapView(m, AccessRead, 0, 0)
	require.NoError(t, err)
	defer v.Release()

	for _, p := range []AccessPattern{AccessDefault, AccessSequential, AccessRandom, AccessWillNeed, AccessDontNeed} {
		assert.NoError(t, v.Advise(p))
	}
}

func TestResources_CloseIdempotent(t *testing.T) {
	f := openTemp(t, AccessReadWrite)
	m, err := OS.CreateMapping(f, ProtReadWrite, 10)
	require.NoError(t, err)

	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
	assert.False(t, m.Valid())

	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())
	assert.False(t, f.Valid())

	// Provider-level close on an invalid handle is a no-op.
	assert.NoError(t, OS.CloseFile(f))
	assert.NoError(t, OS.CloseMapping(m))
}

func TestError_Code(t *testing.T) {
	e := newError("mmap", errors.New("boom"))
	assert.Equal(t, 0, e.Code)
	assert.Equal(t, "mmap: mmap: boom", e.Error())

	wrapped := &Error{Op: "flush"}
	assert.Equal(t, "mmap: flush", wrapped.Error())
	assert.Nil(t, wrapped.Unwrap())
}

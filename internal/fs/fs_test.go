package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "a", "b")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(fpath, []byte("hello"), 0o644))

	info, err := lfs.Stat(fpath)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	newPath := filepath.Join(dir, "renamed.txt")
	require.NoError(t, lfs.Rename(fpath, newPath))

	require.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)

	fpath := filepath.Join(tmp, "faulty.txt")
	require.NoError(t, os.WriteFile(fpath, []byte("x"), 0o644))

	ffs.AddRule(OpRename, Fault{Pattern: "final"})

	// Non-matching paths pass through.
	require.NoError(t, ffs.Rename(fpath, fpath+".moved"))

	err := ffs.Rename(fpath+".moved", filepath.Join(tmp, "final.txt"))
	assert.ErrorIs(t, err, ErrInjected)
	var pErr *os.PathError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "rename", pErr.Op)

	_, err = os.Stat(fpath + ".moved")
	assert.NoError(t, err)
	assert.Equal(t, 2, ffs.Count(OpRename))

	ffs.ClearRules()
	assert.NoError(t, ffs.Rename(fpath+".moved", filepath.Join(tmp, "final.txt")))
}

func TestFaultyFS_CustomError(t *testing.T) {
	boom := errors.New("boom")
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule(OpMkdirAll, Fault{Err: boom})
	ffs.AddRule(OpRemove, Fault{})
	ffs.AddRule(OpStat, Fault{})

	assert.ErrorIs(t, ffs.MkdirAll(t.TempDir(), 0o755), boom)
	assert.ErrorIs(t, ffs.Remove("x"), ErrInjected)
	_, err := ffs.Stat("x")
	assert.ErrorIs(t, err, ErrInjected)

	assert.Equal(t, 1, ffs.Count(OpMkdirAll))
	assert.Equal(t, 0, ffs.Count(OpRename))
}

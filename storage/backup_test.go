package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mmapstream"
	"github.com/hupe1980/mmapstream/blobstore"
	"github.com/hupe1980/mmapstream/internal/fs"
	"github.com/hupe1980/mmapstream/resource"
	"github.com/hupe1980/mmapstream/testutil"
)

// fill opens name in st and writes data at its start.
func fill(t *testing.T, st *Storage, name string, data []byte) *mmapstream.Stream {
	t.Helper()
	f, err := st.File(name)
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	return f
}

func readFile(t *testing.T, f *mmapstream.Stream) []byte {
	t.Helper()
	got := make([]byte, f.Length())
	_, err := f.ReadAt(got, 0)
	require.NoError(t, err)
	return got
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	rng := testutil.NewRNG(42)
	text := []byte(rng.Text(10000))
	random := rng.Bytes(5000)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(string(c), func(t *testing.T) {
			ctx := context.Background()
			store := blobstore.NewMemoryStore()

			src := openStorage(t, WithReservation(4096), WithCompression(c))
			a := fill(t, src, "text.db", text)
			fill(t, src, "random.db", random)
			_, err := src.File("empty.db")
			require.NoError(t, err)

			require.NoError(t, src.Backup(ctx, store))

			// Positions survive the backup.
			assert.Equal(t, int64(len(text)), a.Position())

			names, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{
				ManifestName,
				"empty.db" + c.Ext(),
				"random.db" + c.Ext(),
				"text.db" + c.Ext(),
			}, names)

			dst, err := Restore(ctx, store, t.TempDir())
			require.NoError(t, err)
			defer dst.Close()

			assert.Equal(t, []string{"empty.db", "random.db", "text.db"}, dst.Names())

			f, err := dst.File("text.db")
			require.NoError(t, err)
			assert.Equal(t, int64(len(text)), f.Length())
			assert.Equal(t, int64(0), f.Position())
			assert.Equal(t, text, readFile(t, f))

			f, err = dst.File("random.db")
			require.NoError(t, err)
			assert.Equal(t, random, readFile(t, f))

			f, err = dst.File("empty.db")
			require.NoError(t, err)
			assert.Equal(t, int64(4096), f.Length())
			assert.Equal(t, make([]byte, 4096), readFile(t, f))
		})
	}
}

func TestBackup_Manifest(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	src := openStorage(t, WithReservation(16), WithCompression(CompressionLZ4))
	fill(t, src, "a.db", []byte("0123456789abcdef"))
	require.NoError(t, src.Backup(ctx, store))

	m, err := LoadManifest(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, m.Version)
	assert.Equal(t, CompressionLZ4, m.Compression)
	assert.False(t, m.CreatedAt.IsZero())
	require.Len(t, m.Files, 1)
	assert.Equal(t, "a.db", m.Files[0].Name)
	assert.Equal(t, "a.db.lz4", m.Files[0].Blob)
	assert.Equal(t, int64(16), m.Files[0].Size)
	assert.NotZero(t, m.Files[0].CRC32C)
}

func TestBackupRestore_LocalStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())
	data := testutil.NewRNG(7).Bytes(3 * stagingBufferSize)

	src := openStorage(t, WithReservation(int64(len(data))))
	fill(t, src, "big.db", data)
	require.NoError(t, src.Backup(ctx, store))

	dst, err := Restore(ctx, store, t.TempDir())
	require.NoError(t, err)
	defer dst.Close()

	f, err := dst.File("big.db")
	require.NoError(t, err)
	assert.Equal(t, data, readFile(t, f))
	require.NoError(t, dst.Close())

	testutil.AssertFileContents(t, filepath.Join(dst.Dir(), "big.db"), data)
}

func TestBackupRestore_Controller(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	rc := resource.NewController(resource.Config{
		BufferLimitBytes:     stagingBufferSize / 2,
		MaxBackgroundWorkers: 2,
		IOLimitBytesPerSec:   64 << 20,
	})

	src := openStorage(t, WithReservation(1024), WithController(rc))
	for _, name := range []string{"a.db", "b.db", "c.db", "d.db"} {
		fill(t, src, name, []byte(name))
	}
	require.NoError(t, src.Backup(ctx, store))
	assert.Equal(t, int64(0), rc.BufferUsage())

	dst, err := Restore(ctx, store, t.TempDir(), WithController(rc))
	require.NoError(t, err)
	defer dst.Close()
	assert.Equal(t, int64(0), rc.BufferUsage())
	assert.Len(t, dst.Names(), 4)
}

func TestBackup_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := openStorage(t, WithReservation(64))
	fill(t, src, "a.db", []byte("x"))

	store := blobstore.NewMemoryStore()
	err := src.Backup(ctx, store)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = LoadManifest(context.Background(), store)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestBackup_Closed(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	assert.ErrorIs(t, st.Backup(context.Background(), blobstore.NewMemoryStore()), ErrClosed)
}

func TestBackup_Logs(t *testing.T) {
	var logs bytes.Buffer
	logger := mmapstream.NewLogger(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))

	src := openStorage(t, WithReservation(64), WithLogger(logger))
	fill(t, src, "a.db", []byte("x"))
	require.NoError(t, src.Backup(context.Background(), blobstore.NewMemoryStore()))

	assert.Contains(t, logs.String(), "backup completed")
	assert.Contains(t, logs.String(), "files=1")
}

func TestRestore_MissingManifest(t *testing.T) {
	_, err := Restore(context.Background(), blobstore.NewMemoryStore(), t.TempDir())
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestRestore_Exists(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	src := openStorage(t, WithReservation(64))
	fill(t, src, "a.db", []byte("x"))
	require.NoError(t, src.Backup(ctx, store))

	dir := t.TempDir()
	existing := filepath.Join(dir, "a.db")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0o644))

	_, err := Restore(ctx, store, dir)
	assert.ErrorIs(t, err, ErrExists)
	testutil.AssertFileContents(t, existing, []byte("keep"))
}

func TestRestore_Corrupt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(m *Manifest)
	}{
		{"size", func(m *Manifest) { m.Files[0].Size++ }},
		{"checksum", func(m *Manifest) { m.Files[0].CRC32C++ }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			src := openStorage(t, WithReservation(64))
			fill(t, src, "a.db", []byte("payload"))
			require.NoError(t, src.Backup(ctx, store))

			m, err := LoadManifest(ctx, store)
			require.NoError(t, err)
			tt.mutate(m)
			require.NoError(t, saveManifest(ctx, store, m))

			dir := t.TempDir()
			_, err = Restore(ctx, store, dir)
			assert.ErrorIs(t, err, ErrCorruptBackup)

			// Partially restored files are removed.
			assert.NoFileExists(t, filepath.Join(dir, "a.db"))
		})
	}
}

func TestRestore_CleanupFailure(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	src := openStorage(t, WithReservation(64))
	fill(t, src, "a.db", []byte("payload"))
	require.NoError(t, src.Backup(ctx, store))

	m, err := LoadManifest(ctx, store)
	require.NoError(t, err)
	m.Files[0].CRC32C++
	require.NoError(t, saveManifest(ctx, store, m))

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule(fs.OpRemove, fs.Fault{Pattern: "a.db"})

	_, err = Restore(ctx, store, t.TempDir(), withFileSystem(ffs))
	assert.ErrorIs(t, err, ErrCorruptBackup)
	assert.ErrorIs(t, err, fs.ErrInjected)
	assert.Equal(t, 1, ffs.Count(fs.OpRemove))
}

func TestLoadManifest_Invalid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		data string
		want error
	}{
		{"garbage", "{", ErrCorruptBackup},
		{"future version", `{"version": 99, "compression": "none"}`, ErrUnsupportedVersion},
		{"zero version", `{"version": 0, "compression": "none"}`, ErrUnsupportedVersion},
		{"compression", `{"version": 1, "compression": "snappy"}`, ErrUnsupportedCompression},
		{"name", `{"version": 1, "compression": "none", "files": [{"name": "../x", "blob": "x"}]}`, ErrCorruptBackup},
		{"size", `{"version": 1, "compression": "none", "files": [{"name": "x", "blob": "x", "size": -1}]}`, ErrCorruptBackup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			require.NoError(t, store.Put(ctx, ManifestName, []byte(tt.data)))

			_, err := LoadManifest(ctx, store)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestManifest_JSON(t *testing.T) {
	m := Manifest{
		Version:     1,
		Compression: CompressionZstd,
		Files:       []FileInfo{{Name: "a", Blob: "a.zst", Size: 3, CRC32C: 7}},
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"compression":"zstd"`)
	assert.Contains(t, string(data), `"crc32c":7`)
}

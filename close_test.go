package mmapstream

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mmapstream/internal/mmap"
	"github.com/hupe1980/mmapstream/testutil"
)

func openFaulty(t *testing.T, size int64, optFns ...Option) (*Stream, *mmap.FaultyProvider) {
	t.Helper()
	fp := mmap.NewFaultyProvider(nil)
	s, err := Open(tempPath(t), size, append(optFns, withProvider(fp))...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, fp
}

func TestClose_Order(t *testing.T) {
	s, fp := openFaulty(t, 4096)

	assert.Equal(t, []mmap.Op{mmap.OpOpenFile, mmap.OpCreateMapping, mmap.OpMapView}, fp.Calls())
	fp.Reset()

	require.NoError(t, s.Close())

	assert.Equal(t, []mmap.Op{
		mmap.OpFlushView,
		mmap.OpUnmap,
		mmap.OpCloseMapping,
		mmap.OpFlushFile,
		mmap.OpCloseFile,
	}, fp.Calls())
}

func TestClose_ReadOnlyOrder(t *testing.T) {
	fp := mmap.NewFaultyProvider(nil)
	path := testutil.TempFile(t, "ro.db", []byte("abc"))

	s, err := Open(path, 0, WithReadOnly(), withProvider(fp))
	require.NoError(t, err)
	fp.Reset()

	require.NoError(t, s.Close())
	assert.Equal(t, []mmap.Op{mmap.OpUnmap, mmap.OpCloseMapping, mmap.OpCloseFile}, fp.Calls())
}

func TestClose_ExactlyOnce(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	s, fp := openFaulty(t, 100, WithMetricsCollector(metrics))
	fp.Reset()

	require.NoError(t, s.Close())
	calls := fp.Calls()

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	assert.Equal(t, calls, fp.Calls())
	assert.Equal(t, 1, fp.Count(mmap.OpCloseFile))
	assert.Equal(t, int64(1), metrics.GetStats().CloseCount)
}

func TestClose_BestEffort(t *testing.T) {
	var logs bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	s, fp := openFaulty(t, 100, WithLogger(logger))
	fp.AddRule(mmap.OpFlushView, mmap.Fault{})
	fp.AddRule(mmap.OpUnmap, mmap.Fault{})
	fp.Reset()

	err := s.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, mmap.ErrInjected)

	var pErr *PlatformError
	require.ErrorAs(t, err, &pErr)

	// Later steps still ran.
	assert.Equal(t, 1, fp.Count(mmap.OpCloseMapping))
	assert.Equal(t, 1, fp.Count(mmap.OpFlushFile))
	assert.Equal(t, 1, fp.Count(mmap.OpCloseFile))

	assert.Contains(t, logs.String(), "flush view")
	assert.Contains(t, logs.String(), "release view")

	// The lock is gone, so the file can be opened again.
	s2, err := Open(s.Name(), 0)
	require.NoError(t, err)
	assert.NoError(t, s2.Close())

	assert.NoError(t, s.Close())
}

func TestClose_JoinsErrors(t *testing.T) {
	first := errors.New("first")
	last := errors.New("last")

	s, fp := openFaulty(t, 100)
	fp.AddRule(mmap.OpCloseMapping, mmap.Fault{Err: first})
	fp.AddRule(mmap.OpCloseFile, mmap.Fault{Err: last})

	err := s.Close()
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, last)
}

func TestRemap_Order(t *testing.T) {
	s, fp := openFaulty(t, 100)
	fp.Reset()

	require.NoError(t, s.SetLength(200))

	assert.Equal(t, []mmap.Op{
		mmap.OpUnmap,
		mmap.OpCloseMapping,
		mmap.OpCreateMapping,
		mmap.OpMapView,
	}, fp.Calls())
}

func TestRemap_FailureKeepsStreamUsable(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	s, fp := openFaulty(t, 100, WithMetricsCollector(metrics))

	_, err := s.Write([]byte("keep me"))
	require.NoError(t, err)

	fp.AddRule(mmap.OpMapView, mmap.Fault{Times: 1})

	_, err = s.Write(bytes.Repeat([]byte{'x'}, 200))
	var pErr *PlatformError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "map view", pErr.Op)

	assert.Equal(t, int64(100), s.Length())
	assert.Equal(t, int64(7), s.Position())

	got := make([]byte, 7)
	_, err = s.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))

	// Growth works again once the fault is gone.
	_, err = s.Write(bytes.Repeat([]byte{'x'}, 200))
	require.NoError(t, err)
	assert.Equal(t, int64(207), s.Length())

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.RemapCount)
	assert.Equal(t, int64(1), stats.RemapErrors)
	assert.Equal(t, int64(107), stats.BytesGrown)
}

func TestRemap_LostView(t *testing.T) {
	s, fp := openFaulty(t, 100)

	// Both the new mapping and the fallback fail.
	fp.AddRule(mmap.OpCreateMapping, mmap.Fault{Times: 2})

	err := s.SetLength(200)
	require.Error(t, err)
	assert.Equal(t, int64(100), s.Length())

	_, err = s.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrNoView)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrNoView)

	// Flush is a no-op without a view; Close still releases the file.
	assert.NoError(t, s.Flush())
	assert.NoError(t, s.Close())
	assert.Equal(t, 1, fp.Count(mmap.OpCloseFile))
}

func TestOpen_FailureReleasesFile(t *testing.T) {
	fp := mmap.NewFaultyProvider(nil)
	fp.AddRule(mmap.OpMapView, mmap.Fault{})
	metrics := &BasicMetricsCollector{}

	_, err := Open(tempPath(t), 100, withProvider(fp), WithMetricsCollector(metrics))
	var pErr *PlatformError
	require.ErrorAs(t, err, &pErr)

	assert.Equal(t, 1, fp.Count(mmap.OpCloseMapping))
	assert.Equal(t, 1, fp.Count(mmap.OpCloseFile))
	assert.Equal(t, int64(1), metrics.GetStats().OpenErrors)
}

func TestFlush_Error(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	s, fp := openFaulty(t, 100, WithMetricsCollector(metrics))
	fp.AddRule(mmap.OpFlushView, mmap.Fault{Times: 1})

	err := s.Flush()
	var pErr *PlatformError
	require.ErrorAs(t, err, &pErr)

	require.NoError(t, s.Flush())
	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.FlushCount)
	assert.Equal(t, int64(1), stats.FlushErrors)
}

func TestSync_FlushesFile(t *testing.T) {
	s, fp := openFaulty(t, 100)
	fp.Reset()

	require.NoError(t, s.Sync())
	assert.Equal(t, []mmap.Op{mmap.OpFlushView, mmap.OpFlushFile}, fp.Calls())
}

package storage

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names the codec a backup blob is written with.
type Compression string

const (
	// CompressionNone stores file bytes as-is.
	CompressionNone Compression = "none"
	// CompressionLZ4 uses LZ4 frames (fast, good for hot data).
	CompressionLZ4 Compression = "lz4"
	// CompressionZstd uses zstd frames (better ratio, good for cold data).
	CompressionZstd Compression = "zstd"
)

// Ext returns the blob name suffix for c.
func (c Compression) Ext() string {
	switch c {
	case CompressionLZ4:
		return ".lz4"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

func (c Compression) validate() error {
	switch c {
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedCompression, string(c))
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder(w io.Writer) (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		enc := v.(*zstd.Encoder)
		enc.Reset(w)
		return enc, nil
	}
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder(r io.Reader) (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		dec := v.(*zstd.Decoder)
		if err := dec.Reset(r); err != nil {
			return nil, err
		}
		return dec, nil
	}
	return zstd.NewReader(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type zstdWriteCloser struct {
	*zstd.Encoder
}

func (z zstdWriteCloser) Close() error {
	err := z.Encoder.Close()
	z.Encoder.Reset(nil)
	zstdEncoderPool.Put(z.Encoder)
	return err
}

type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	_ = z.Decoder.Reset(nil)
	zstdDecoderPool.Put(z.Decoder)
	return nil
}

// newEncoder wraps w so that bytes written are compressed with c.
// Close flushes the frame but does not close w.
func newEncoder(c Compression, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionZstd:
		enc, err := getZstdEncoder(w)
		if err != nil {
			return nil, err
		}
		return zstdWriteCloser{enc}, nil
	}
	return nil, c.validate()
}

// newDecoder wraps r so that reads return bytes decompressed with c.
func newDecoder(c Compression, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompressionZstd:
		dec, err := getZstdDecoder(r)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{dec}, nil
	}
	return nil, c.validate()
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/crc32"

	"github.com/hupe1980/mmapstream/blobstore"
)

const (
	// ManifestName is the blob describing a backup.
	ManifestName = "MANIFEST.json"
	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Manifest describes a backup.
type Manifest struct {
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	Compression Compression `json:"compression"`
	Files       []FileInfo  `json:"files"`
}

// FileInfo describes a single backed-up file.
type FileInfo struct {
	Name   string `json:"name"`
	Blob   string `json:"blob"`
	Size   int64  `json:"size"`   // Uncompressed size in bytes
	CRC32C uint32 `json:"crc32c"` // Checksum of the uncompressed bytes
}

// LoadManifest reads and validates the manifest of the backup in store.
func LoadManifest(ctx context.Context, store blobstore.BlobStore) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, ManifestName)
	if err != nil {
		return nil, fmt.Errorf("storage: read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrCorruptBackup, err)
	}
	if m.Version > CurrentVersion || m.Version <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	if err := m.Compression.validate(); err != nil {
		return nil, err
	}
	for _, f := range m.Files {
		if err := validateName(f.Name); err != nil {
			return nil, fmt.Errorf("%w: manifest entry %q", ErrCorruptBackup, f.Name)
		}
		if f.Size < 0 {
			return nil, fmt.Errorf("%w: manifest entry %q has negative size", ErrCorruptBackup, f.Name)
		}
	}
	return &m, nil
}

func saveManifest(ctx context.Context, store blobstore.BlobStore, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return store.Put(ctx, ManifestName, data)
}

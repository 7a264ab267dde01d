// Package storage manages a directory of named mapped streams and backs
// them up to, or restores them from, a blobstore.BlobStore.
//
// # Files
//
//	st, err := storage.Open("./data")
//	defer st.Close()
//
//	f, err := st.File("users.db") // reserves 1 MiB on first open
//	f.Write(record)
//
// # Backups
//
// Backup flushes every open file and uploads one blob per file plus a
// MANIFEST.json describing them. The manifest is written last, so a
// backup without one is incomplete.
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("nightly/"))
//	err = st.Backup(ctx, store)
//
//	restored, err := storage.Restore(ctx, store, "./restored")
//
// Files are compressed with zstd by default; lz4 and no compression are
// available through WithCompression.
package storage

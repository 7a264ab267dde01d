// Package minio stores blobs in a MinIO bucket (or any S3-compatible
// server such as Ceph or Garage) using minio-go.
//
// Use it as the target of storage backups when the AWS SDK is not wanted:
//
//	store, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "backups", "nightly/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = st.Backup(ctx, store) // st is a *storage.Storage
//
// An existing *minio.Client can be wrapped with NewStore. Blobs written
// through Create are streamed with PutObject and become visible on Close.
package minio

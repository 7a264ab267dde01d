package storage_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/mmapstream/blobstore"
	"github.com/hupe1980/mmapstream/storage"
)

func Example_backup() {
	dir, err := os.MkdirTemp("", "storage-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	st, err := storage.Open(dir+"/live", storage.WithReservation(64))
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	f, err := st.File("users.db")
	if err != nil {
		log.Fatal(err)
	}
	if _, err := f.Write([]byte("alice,bob")); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	store := blobstore.NewLocalStore(dir + "/backup")
	if err := st.Backup(ctx, store); err != nil {
		log.Fatal(err)
	}

	restored, err := storage.Restore(ctx, store, dir+"/restored")
	if err != nil {
		log.Fatal(err)
	}
	defer restored.Close()

	rf, err := restored.File("users.db")
	if err != nil {
		log.Fatal(err)
	}
	buf := make([]byte, 9)
	if _, err := rf.Read(buf); err != nil {
		log.Fatal(err)
	}
	fmt.Println(restored.Names(), rf.Length(), string(buf))
	// Output: [users.db] 64 alice,bob
}

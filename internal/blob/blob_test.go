package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func testStoreRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Put(ctx, "timeseries/a.csv", strings.NewReader("alpha")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "timeseries/b.csv", strings.NewReader("beta")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "mapping/mapping.csv", strings.NewReader("gamma")); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Create-only: a second Put on the same key fails.
	if _, err := store.Put(ctx, "timeseries/a.csv", strings.NewReader("dup")); err == nil {
		t.Fatalf("expected duplicate put to fail")
	}

	rc, err := store.Get(ctx, "timeseries/a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || string(data) != "alpha" {
		t.Fatalf("unexpected content %q err=%v", data, err)
	}

	if _, err := store.Get(ctx, "timeseries/missing.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	infos, err := store.List(ctx, "timeseries/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 objects under prefix, got %d", len(infos))
	}
	if infos[0].Key != "timeseries/a.csv" || infos[1].Key != "timeseries/b.csv" {
		t.Fatalf("listing not ordered by key: %+v", infos)
	}
	if infos[0].Size != int64(len("alpha")) {
		t.Fatalf("unexpected size %d", infos[0].Size)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 objects total, got %d", len(all))
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	if store.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	testStoreRoundTrip(t, store)
}

func TestFilesystemStore(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	testStoreRoundTrip(t, store)
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "/abs/path", "../escape", "a/../../escape"} {
		if _, err := store.Get(ctx, key); err == nil {
			t.Fatalf("expected get %q to fail", key)
		}
		if _, err := store.Put(ctx, key, strings.NewReader("x")); err == nil {
			t.Fatalf("expected put %q to fail", key)
		}
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	t.Setenv("SENSORCORE_BLOB_DRIVER", "memory")
	store, err := Open(ctx)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}

	t.Setenv("SENSORCORE_BLOB_DRIVER", "fs")
	t.Setenv("SENSORCORE_BLOB_FS_ROOT", t.TempDir())
	store, err = Open(ctx)
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}

	t.Setenv("SENSORCORE_BLOB_DRIVER", "s3")
	t.Setenv("SENSORCORE_S3_BUCKET", "")
	if _, err := Open(ctx); err == nil {
		t.Fatalf("expected s3 driver to require a bucket")
	}

	t.Setenv("SENSORCORE_BLOB_DRIVER", "bogus")
	if _, err := Open(ctx); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

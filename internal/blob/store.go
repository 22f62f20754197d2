// Package blob abstracts the bulk object store the ingestion pipeline reads
// its source corpus from. The surface is read-oriented: list a prefix, then
// stream object contents. Put exists so tests and tooling can stage fixtures.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete object-store backend.
type Driver string

const (
	// DriverS3 is an S3 / MinIO compatible backend.
	DriverS3 Driver = "s3"
	// DriverFilesystem serves objects from a local directory (dev).
	DriverFilesystem Driver = "fs"
	// DriverMemory is the in-memory backend used by tests.
	DriverMemory Driver = "memory"
)

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store provides the thin S3-like surface the source reader needs.
type Store interface {
	// List returns all objects under prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Get streams an object's content. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Put stores a new object; it errors if the key already exists.
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	Driver() Driver
}

// ErrNotFound indicates the requested object does not exist.
var ErrNotFound = errors.New("blob: object not found")

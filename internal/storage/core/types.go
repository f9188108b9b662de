// Package core defines core abstractions for object store backends
// used internally by the persistence layer.
package core

import (
	"context"
	"errors"
)

// Driver identifies a concrete object store backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
	// DriverSQLite represents the embedded SQLite implementation.
	DriverSQLite Driver = "sqlite" // single-file SQLite database
	// DriverPostgres represents the Postgres implementation.
	DriverPostgres Driver = "postgres" // Postgres table
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
)

// Info describes a stored object.
type Info struct {
	Key  string `json:"key"`
	Size int64  `json:"size_bytes"`
}

// Store is a flat key/value object store holding the persisted form of a
// container tree. Keys are slash-separated relative paths. Semantics mirror a
// minimal subset of S3 so that an S3 adapter can be nearly 1:1 while database
// and filesystem adapters can emulate them.
type Store interface {
	// Put stores data under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) (Info, error)
	// Get returns the data stored under key. Missing keys yield ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Stat returns metadata only. Missing keys yield ErrKeyNotFound.
	Stat(ctx context.Context, key string) (Info, error)
	// Delete removes an object. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns objects whose key has the provided prefix. Stable ordering by key ascending.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver returns the configured backend driver string.
	Driver() Driver
	// Close releases backend resources. No-op for drivers without connections.
	Close() error
}

// ErrKeyNotFound is returned by Get and Stat when the key does not exist.
// Implementations wrap it with the offending key.
var ErrKeyNotFound = errors.New("objectstore: key not found")

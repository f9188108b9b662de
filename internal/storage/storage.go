// Package storage re-exports the object store abstractions and selects a
// backend driver from the environment. Higher layers depend on storage.Store
// and never on the driver packages directly.
package storage

import (
	"context"
	"fmt"
	"os"

	"spatialcore/internal/storage/core"
	fsstore "spatialcore/internal/storage/fs"
	memorystore "spatialcore/internal/storage/memory"
	postgresstore "spatialcore/internal/storage/postgres"
	s3store "spatialcore/internal/storage/s3"
	sqlitestore "spatialcore/internal/storage/sqlite"
)

type (
	// Driver identifies an object store backend driver.
	Driver = core.Driver
	// Info describes stored object metadata.
	Info = core.Info
	// Store is the interface for object store backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverSQLite is the embedded SQLite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the Postgres driver.
	DriverPostgres = core.DriverPostgres
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
)

// ErrKeyNotFound indicates a read against a missing key.
var ErrKeyNotFound = core.ErrKeyNotFound

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewFilesystem returns a Store rooted at the given directory.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewSQLite returns a Store backed by a single SQLite database file.
func NewSQLite(path string) (Store, error) { return sqlitestore.New(path) }

// NewPostgres returns a Store backed by a Postgres table.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	return postgresstore.New(ctx, dsn)
}

// S3Config re-exports the s3 driver configuration type.
type S3Config = s3store.Config

// NewS3 constructs an S3-backed Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3store.New(ctx, cfg) }

// OpenS3FromEnv constructs an S3 store using environment variables.
func OpenS3FromEnv(ctx context.Context) (Store, error) { return s3store.OpenFromEnv(ctx) }

// NewMockS3ForTests exposes the lightweight in-memory S3 mock for cross-package tests.
func NewMockS3ForTests() Store { return s3store.NewMockForTests() }

// Open selects a Store implementation using environment variables.
//
//	SPATIALCORE_STORE_DRIVER: fs|memory|sqlite|postgres|s3 (default fs)
//	SPATIALCORE_STORE_ROOT: directory root when driver=fs (default ./spatialcore)
//	SPATIALCORE_SQLITE_PATH: database file when driver=sqlite (default spatialcore.db)
//	SPATIALCORE_POSTGRES_DSN: connection string when driver=postgres
//	(S3 specific variables documented in the s3 driver)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("SPATIALCORE_STORE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("SPATIALCORE_STORE_ROOT"))
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(os.Getenv("SPATIALCORE_SQLITE_PATH"))
	case DriverPostgres:
		return NewPostgres(ctx, os.Getenv("SPATIALCORE_POSTGRES_DSN"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown store driver %s", driver)
	}
}

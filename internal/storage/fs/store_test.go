package fs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spatialcore/internal/storage/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStore_PutGetStatListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("expected fs driver")
	}
	info, err := store.Put(ctx, "tables/obs/meta.json", []byte("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "tables/obs/meta.json" || info.Size != 5 {
		t.Fatalf("unexpected info %+v", info)
	}
	// upsert replaces in place
	if _, err := store.Put(ctx, "tables/obs/meta.json", []byte("rewritten")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, err := store.Get(ctx, "tables/obs/meta.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(b, []byte("rewritten")) {
		t.Fatalf("unexpected payload %q", b)
	}
	st, err := store.Stat(ctx, "tables/obs/meta.json")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size != int64(len("rewritten")) {
		t.Fatalf("unexpected stat size %d", st.Size)
	}
	list, err := store.List(ctx, "tables/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "tables/obs/meta.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	ok, err := store.Delete(ctx, "tables/obs/meta.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "tables/obs/meta.json")
	if err != nil || ok {
		t.Fatalf("second delete should be false")
	}
}

func TestStore_PathTraversal(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "../escape.bin", []byte("x")); err == nil {
		t.Fatalf("expected traversal error")
	}
	if _, err := store.Put(ctx, "/abs.bin", []byte("x")); err == nil {
		t.Fatalf("expected absolute error")
	}
	if _, err := store.Put(ctx, "  ", []byte("x")); err == nil {
		t.Fatalf("expected empty key error")
	}
	if _, err := store.Get(ctx, "a/../../b"); err == nil {
		t.Fatalf("expected traversal error on get")
	}
}

func TestStore_StatOnKeyPrefixIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "images/scan/meta.json", []byte("{}")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Stat(ctx, "images/scan"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound for directory, got %v", err)
	}
	if ok, err := store.Delete(ctx, "images/scan"); err != nil || ok {
		t.Fatalf("delete of directory should be false, got %v %v", ok, err)
	}
}

func TestStore_ListSkipsTempLeftovers(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "labels/cells/meta.json", []byte("{}")); err != nil {
		t.Fatalf("put: %v", err)
	}
	// simulate an interrupted write
	leftover := filepath.Join(store.Root(), "labels", "cells", ".tmp-12345")
	if err := os.WriteFile(leftover, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write leftover: %v", err)
	}
	list, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "labels/cells/meta.json" {
		t.Fatalf("expected temp file skipped, got %+v", list)
	}
}

func TestStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Get(ctx, "nowhere.bin"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if _, err := store.Stat(ctx, "nowhere.bin"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestStore_DefaultRootCreated(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()
	store, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Root() != "./spatialcore" {
		t.Fatalf("unexpected root %q", store.Root())
	}
	if _, err := os.Stat(filepath.Join(dir, "spatialcore")); err != nil {
		t.Fatalf("expected default root created: %v", err)
	}
}

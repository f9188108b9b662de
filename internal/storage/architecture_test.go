package storage

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyStoragePackageImportsDrivers ensures that only the top-level storage
// package wraps the driver implementations. Other packages must depend on the
// storage.Store interface instead of importing driver packages directly.
func TestOnlyStoragePackageImportsDrivers(t *testing.T) {
	driverPrefixes := []string{
		"spatialcore/internal/storage/fs",
		"spatialcore/internal/storage/memory",
		"spatialcore/internal/storage/postgres",
		"spatialcore/internal/storage/s3",
		"spatialcore/internal/storage/sqlite",
	}
	allowedPrefix := "spatialcore/internal/storage"

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "spatialcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})

	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, allowedPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			for _, prefix := range driverPrefixes {
				if isDriverImport(importPath, prefix) {
					pos := filepath.Join(pkg.PkgPath, "...")
					seen[pos+": "+importPath] = struct{}{}
				}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import of storage driver package: %s", v)
		}
		t.Fatalf("found %d forbidden imports of storage driver packages", len(violations))
	}
}

func isDriverImport(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}

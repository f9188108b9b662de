package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spatialcore/internal/core"
	"spatialcore/internal/persistence"
	"spatialcore/internal/storage"
	"spatialcore/pkg/domain"
	"spatialcore/pkg/frame"
	"spatialcore/pkg/raster"
	"spatialcore/pkg/transform"
)

// buildContainer assembles the canonical demo container: a labels mask
// named "cells" in the "global" system and a table annotating it.
func buildContainer(t *testing.T) *domain.Container {
	t.Helper()
	ctx := context.Background()
	c := domain.NewContainer()

	mask, err := raster.NewDense(raster.Uint32, []int{6, 6})
	if err != nil {
		t.Fatalf("new dense: %v", err)
	}
	for _, yx := range [][2]int{{0, 0}, {0, 1}, {1, 1}} {
		if err := mask.Set(1, yx[0], yx[1]); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := mask.Set(2, 4, 4); err != nil {
		t.Fatalf("set: %v", err)
	}
	labels, err := domain.NewLabels(mask, []string{"y", "x"})
	if err != nil {
		t.Fatalf("new labels: %v", err)
	}
	if err := labels.Transforms().Set("global", transform.NewIdentity()); err != nil {
		t.Fatalf("set transform: %v", err)
	}
	if err := c.SetLabels("cells", labels); err != nil {
		t.Fatalf("set labels: %v", err)
	}

	rows := frame.New()
	if err := rows.AddStrings("region", []string{"cells", "cells"}); err != nil {
		t.Fatalf("add region: %v", err)
	}
	if err := rows.AddInts("id", []int64{1, 2}); err != nil {
		t.Fatalf("add id: %v", err)
	}
	table, err := domain.NewTable(rows)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	if err := table.SetAnnotationTarget(ctx, []string{"cells"}, "region", "id"); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if _, err := c.SetTable("measurements", table); err != nil {
		t.Fatalf("set table: %v", err)
	}
	return c
}

// TestFilesystemRoundTripWithOnDiskCorruption exercises the full stack:
// write through the service onto the fs driver, damage the persisted
// bytes directly on disk, then read back in both failure modes.
func TestFilesystemRoundTripWithOnDiskCorruption(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := storage.NewFilesystem(root)
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	svc := core.NewService(store)
	defer svc.Close()

	c := buildContainer(t)
	if err := svc.WriteContainer(ctx, "run", c, core.WriteOptions{}); err != nil {
		t.Fatalf("write container: %v", err)
	}

	loaded, _, err := svc.ReadContainer(ctx, "run", core.ReadOptions{})
	if err != nil {
		t.Fatalf("read container: %v", err)
	}
	equal, err := c.Equal(ctx, loaded)
	if err != nil {
		t.Fatalf("equal: %v", err)
	}
	if !equal {
		t.Fatal("fs round trip changed the container")
	}

	// Truncate the labels metadata file to zero bytes on disk.
	metaPath := filepath.Join(root, "run", "labels", "cells", "meta.json")
	if err := os.WriteFile(metaPath, nil, 0o644); err != nil {
		t.Fatalf("truncate metadata: %v", err)
	}

	// Error mode aborts with the underlying decode failure.
	if _, _, err := svc.ReadContainer(ctx, "run", core.ReadOptions{OnBadKeys: core.OnBadKeysError}); err == nil {
		t.Fatal("expected error-mode read to fail")
	}

	// Warn mode skips the element, keeps the table, and reports both
	// the skip and the dangling annotation.
	partial, report, err := svc.ReadContainer(ctx, "run", core.ReadOptions{OnBadKeys: core.OnBadKeysWarn})
	if err != nil {
		t.Fatalf("warn-mode read: %v", err)
	}
	if _, err := partial.Labels("cells"); err == nil {
		t.Fatal("damaged labels element should be excluded")
	}
	if _, err := partial.Table("measurements"); err != nil {
		t.Fatalf("table should survive: %v", err)
	}
	warnings := report.Result.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", warnings)
	}
	var sawSkip, sawDangling bool
	for _, w := range warnings {
		switch w.Check {
		case "read_element":
			sawSkip = w.Path == "labels/cells" && strings.Contains(w.Message, "JSON")
		case "annotation_reference":
			sawDangling = strings.Contains(w.Message, `"cells"`)
		}
	}
	if !sawSkip || !sawDangling {
		t.Fatalf("unexpected warning set: %+v", warnings)
	}
}

// TestFilterAndTransformSurviveRoundTrip checks that containers derived
// by filtering and canonicalization persist like originals.
func TestFilterAndTransformSurviveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := core.NewService(store)

	c := buildContainer(t)
	labels, err := c.Labels("cells")
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	scale, err := transform.NewScale([]float64{2, 2}, []string{"y", "x"})
	if err != nil {
		t.Fatalf("new scale: %v", err)
	}
	if err := labels.Transforms().Set("scaled", scale); err != nil {
		t.Fatalf("set transform: %v", err)
	}

	canonical, err := c.TransformToCoordinateSystem(ctx, "scaled")
	if err != nil {
		t.Fatalf("transform to system: %v", err)
	}
	if err := svc.WriteContainer(ctx, "derived", canonical, core.WriteOptions{}); err != nil {
		t.Fatalf("write derived: %v", err)
	}

	loaded, _, err := svc.ReadContainer(ctx, "derived", core.ReadOptions{})
	if err != nil {
		t.Fatalf("read derived: %v", err)
	}
	reloaded, err := loaded.Labels("cells")
	if err != nil {
		t.Fatalf("reloaded labels: %v", err)
	}
	systems := reloaded.Transforms().Systems()
	if len(systems) != 1 || systems[0] != "scaled" {
		t.Fatalf("canonicalized element maps into %v, want only scaled", systems)
	}
	tr, _ := reloaded.Transforms().Get("scaled")
	if !tr.Equal(transform.NewIdentity()) {
		t.Fatalf("canonicalized transform should be identity, got %v", tr)
	}
}

// TestFilteredAwayAnnotationSurvivesStrictRead covers the edge where a
// coordinate-system filter retains no annotated element: the filtered
// table must persist and re-read cleanly in error mode.
func TestFilteredAwayAnnotationSurvivesStrictRead(t *testing.T) {
	ctx := context.Background()
	svc := core.NewService(storage.NewMemory())

	c := buildContainer(t)
	empty, err := c.FilterByCoordinateSystem(ctx, []string{"no-such-system"}, true)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if err := svc.WriteContainer(ctx, "filtered", empty, core.WriteOptions{}); err != nil {
		t.Fatalf("write filtered: %v", err)
	}

	loaded, report, err := svc.ReadContainer(ctx, "filtered", core.ReadOptions{OnBadKeys: core.OnBadKeysError})
	if err != nil {
		t.Fatalf("strict re-read of a filtered container failed: %v", err)
	}
	if len(report.Failed()) != 0 {
		t.Fatalf("unexpected failures: %+v", report.Failed())
	}
	tbl, err := loaded.Table("measurements")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if tbl.Annotation() != nil {
		t.Fatalf("filtered-away annotation came back: %+v", tbl.Annotation())
	}
	rows, err := tbl.Rows().Materialize(ctx)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if rows.Len() != 0 {
		t.Fatalf("rows = %d, want 0", rows.Len())
	}
}

// TestPartialReadByKindSelection reads only the tables group from a
// persisted container.
func TestPartialReadByKindSelection(t *testing.T) {
	ctx := context.Background()
	svc := core.NewService(storage.NewMemory())

	c := buildContainer(t)
	if err := svc.WriteContainer(ctx, "run", c, core.WriteOptions{}); err != nil {
		t.Fatalf("write container: %v", err)
	}

	tablesOnly, report, err := svc.ReadContainer(ctx, "run", core.ReadOptions{
		Selection: []domain.Kind{domain.KindTables},
		OnBadKeys: core.OnBadKeysWarn,
	})
	if err != nil {
		t.Fatalf("read selection: %v", err)
	}
	if tablesOnly.Len() != 1 {
		t.Fatalf("expected only the table, got %d entries", tablesOnly.Len())
	}
	// The table annotates an element outside the selection; that is a
	// warning, not a failure.
	if len(report.Result.Warnings()) != 1 {
		t.Fatalf("expected one dangling annotation warning, got %+v", report.Result.Warnings())
	}
}

// TestWriteTransformationsAcrossStack verifies the metadata-only
// rewrite path against the raw persistence reader.
func TestWriteTransformationsAcrossStack(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := core.NewService(store)

	c := buildContainer(t)
	if err := svc.WriteContainer(ctx, "run", c, core.WriteOptions{}); err != nil {
		t.Fatalf("write container: %v", err)
	}
	labels, err := c.Labels("cells")
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	shift, err := transform.NewTranslation([]float64{1, 2}, []string{"y", "x"})
	if err != nil {
		t.Fatalf("new translation: %v", err)
	}
	if err := labels.Transforms().Set("aligned", shift); err != nil {
		t.Fatalf("set transform: %v", err)
	}
	if err := svc.WriteTransformations(ctx, c, domain.ElementRef{Kind: domain.KindLabels, Name: "cells"}); err != nil {
		t.Fatalf("write transformations: %v", err)
	}

	loaded, _, err := persistence.Read(ctx, store, "run", persistence.ReadOptions{})
	if err != nil {
		t.Fatalf("raw read: %v", err)
	}
	reloaded, err := loaded.Labels("cells")
	if err != nil {
		t.Fatalf("reloaded labels: %v", err)
	}
	got, ok := reloaded.Transforms().Get("aligned")
	if !ok || !got.Equal(shift) {
		t.Fatalf("transformation did not round trip: %v %v", got, ok)
	}
}

package domain

import (
	"testing"

	"spatialcore/pkg/transform"
)

func TestFilterByCoordinateSystem(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	out, err := c.FilterByCoordinateSystem(ctx, []string{"physical"}, false)
	mustNoError(t, "filter", err)

	refs := out.Refs()
	want := []string{"labels/cells", "points/detections"}
	if len(refs) != len(want) {
		t.Fatalf("refs = %v", refs)
	}
	for i := range want {
		if refs[i].Path() != want[i] {
			t.Fatalf("refs = %v, want %v", refs, want)
		}
	}
	if _, err := out.Table("measurements"); err != nil {
		t.Fatalf("tables should pass through whole: %v", err)
	}
}

func TestFilterResultTransformsAreIndependent(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	out, err := c.FilterByCoordinateSystem(ctx, []string{"global"}, false)
	mustNoError(t, "filter", err)

	lbl, err := out.Labels("cells")
	mustNoError(t, "labels", err)
	mustNoError(t, "mutate result", lbl.Transforms().Set("extra", transform.NewIdentity()))

	src, err := c.Labels("cells")
	mustNoError(t, "source labels", err)
	if _, ok := src.Transforms().Get("extra"); ok {
		t.Fatal("mutating the filtered copy leaked into the source")
	}
}

func TestFilterIdempotence(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	once, err := c.FilterByCoordinateSystem(ctx, []string{"physical"}, true)
	mustNoError(t, "filter once", err)
	twice, err := once.FilterByCoordinateSystem(ctx, []string{"physical"}, true)
	mustNoError(t, "filter twice", err)
	eq, err := once.Equal(ctx, twice)
	mustNoError(t, "equal", err)
	if !eq {
		t.Fatal("filtering twice by the same system changed the result")
	}
}

func TestFilterUnknownSystemIsEmpty(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	out, err := c.FilterByCoordinateSystem(ctx, []string{"unheard_of"}, false)
	mustNoError(t, "filter", err)
	if len(out.Refs()) != 0 {
		t.Fatalf("refs = %v, want none", out.Refs())
	}
}

func TestFilterTablesFollowKeptElements(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	shp, err := c.Shapes("regions")
	mustNoError(t, "shapes", err)
	mustNoError(t, "stage mapping", shp.Transforms().Set("stage", transform.NewIdentity()))

	out, err := c.FilterByCoordinateSystem(ctx, []string{"stage"}, true)
	mustNoError(t, "filter", err)
	if got := out.Refs(); len(got) != 1 || got[0].Path() != "shapes/regions" {
		t.Fatalf("refs = %v", got)
	}
	tbl, err := out.Table("measurements")
	mustNoError(t, "table", err)
	f, err := tbl.Rows().Materialize(ctx)
	mustNoError(t, "rows", err)
	if f.Len() != 0 {
		t.Fatalf("rows = %d, want 0 after dropping the annotated element", f.Len())
	}
}

func TestBoundingBoxQueryPoints(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	out, err := c.BoundingBoxQuery(ctx, []string{"x", "y"}, []float64{0, 0}, []float64{3, 3}, "global", false)
	mustNoError(t, "query", err)

	pts, err := out.Points("detections")
	mustNoError(t, "points", err)
	f, err := pts.Data().Materialize(ctx)
	mustNoError(t, "rows", err)
	xs, _ := f.Floats("x")
	// The boundary is inclusive: the point at x = 3 stays.
	if f.Len() != 2 || xs[0] != 1 || xs[1] != 3 {
		t.Fatalf("x = %v, want [1 3]", xs)
	}
	if pts.Transforms().Len() != 2 {
		t.Fatal("clip should keep all transform mappings")
	}
}

func TestBoundingBoxQueryRespectsTargetFrame(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	// In physical coordinates everything is doubled, so the box
	// [0,4]x[0,4] catches only the first point (2,2).
	out, err := c.BoundingBoxQuery(ctx, []string{"x", "y"}, []float64{0, 0}, []float64{4, 4}, "physical", false)
	mustNoError(t, "query", err)
	pts, err := out.Points("detections")
	mustNoError(t, "points", err)
	f, err := pts.Data().Materialize(ctx)
	mustNoError(t, "rows", err)
	xs, _ := f.Floats("x")
	// Intrinsic coordinates are preserved in the result.
	if f.Len() != 1 || xs[0] != 1 {
		t.Fatalf("x = %v, want [1]", xs)
	}
}

func TestBoundingBoxQueryOmitsUnmappedAndEmptyElements(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	out, err := c.BoundingBoxQuery(ctx, []string{"x", "y"}, []float64{0, 0}, []float64{100, 100}, "physical", false)
	mustNoError(t, "query", err)
	if _, err := out.Image("scan"); err == nil {
		t.Fatal("scan has no physical mapping and should be omitted")
	}

	far, err := c.BoundingBoxQuery(ctx, []string{"x", "y"}, []float64{500, 500}, []float64{600, 600}, "global", false)
	mustNoError(t, "far query", err)
	if len(far.Refs()) != 0 {
		t.Fatalf("far refs = %v, want none", far.Refs())
	}
}

func TestBoundingBoxQueryShapes(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	// The circle spans [1,3]x[1,3]; the unit square spans [0,1]x[0,1].
	out, err := c.BoundingBoxQuery(ctx, []string{"x", "y"}, []float64{2.5, 2.5}, []float64{5, 5}, "global", false)
	mustNoError(t, "query", err)
	shp, err := out.Shapes("regions")
	mustNoError(t, "shapes", err)
	if shp.Data().Len() != 1 || shp.Data().ID(0) != 10 {
		t.Fatalf("kept %d geometries, want only the circle", shp.Data().Len())
	}
}

func TestBoundingBoxQueryCropsRaster(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	out, err := c.BoundingBoxQuery(ctx, []string{"x", "y"}, []float64{2, 2}, []float64{3, 3}, "global", false)
	mustNoError(t, "query", err)

	lbl, err := out.Labels("cells")
	mustNoError(t, "labels", err)
	dense, err := lbl.Data().Materialize(ctx)
	mustNoError(t, "materialize", err)
	shape := dense.Shape()
	if shape[0] != 2 || shape[1] != 2 {
		t.Fatalf("shape = %v, want [2 2]", shape)
	}
	v, err := dense.At(0, 0)
	mustNoError(t, "at", err)
	if v != 2 {
		t.Fatalf("cropped value = %v, want 2", v)
	}

	// The crop re-origins the payload; the retained mapping must put
	// pixel (0,0) back at global (y,x) = (2,2).
	tr, ok := lbl.Transforms().Get("global")
	if !ok {
		t.Fatal("global mapping missing after crop")
	}
	mapped, err := tr.Apply([][]float64{{0, 0}}, []string{"y", "x"})
	mustNoError(t, "apply", err)
	if mapped[0][0] != 2 || mapped[0][1] != 2 {
		t.Fatalf("origin maps to %v, want (2, 2)", mapped[0])
	}
}

func TestBoundingBoxQueryValidation(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	if _, err := c.BoundingBoxQuery(ctx, []string{"x"}, []float64{0, 0}, []float64{1, 1}, "global", false); err == nil {
		t.Fatal("expected error for mismatched bounds length")
	}
	if _, err := c.BoundingBoxQuery(ctx, []string{"c"}, []float64{0}, []float64{1}, "global", false); err == nil {
		t.Fatal("expected error for non-spatial axis")
	}
	if _, err := c.BoundingBoxQuery(ctx, []string{"x"}, []float64{5}, []float64{1}, "global", false); err == nil {
		t.Fatal("expected error for min above max")
	}
	if _, err := c.BoundingBoxQuery(ctx, []string{"x", "x"}, []float64{0, 0}, []float64{1, 1}, "global", false); err == nil {
		t.Fatal("expected error for duplicate axis")
	}
}

func TestBoundingBoxQueryUnqueriedAxisUnconstrained(t *testing.T) {
	ctx := testContext()
	c := newTestContainer(t)
	out, err := c.BoundingBoxQuery(ctx, []string{"x"}, []float64{0}, []float64{3}, "global", false)
	mustNoError(t, "query", err)
	pts, err := out.Points("detections")
	mustNoError(t, "points", err)
	f, err := pts.Data().Materialize(ctx)
	mustNoError(t, "rows", err)
	// y = 9 survives because y is unconstrained; x = 5 does not.
	if f.Len() != 2 {
		t.Fatalf("rows = %d, want 2", f.Len())
	}
}

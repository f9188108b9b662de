package domain

import (
	"context"
	"testing"

	"spatialcore/pkg/frame"
	"spatialcore/pkg/geom"
	"spatialcore/pkg/raster"
	"spatialcore/pkg/transform"
)

func testContext() context.Context { return context.Background() }

// mustNoError simplifies tests that expect helper calls to succeed.
func mustNoError(t *testing.T, label string, err error) {
	t.Helper()
	if err != nil {
		if label == "" {
			t.Fatalf("unexpected error: %v", err)
		}
		t.Fatalf("%s: %v", label, err)
	}
}

func mustScale(t *testing.T, factors []float64, axes []string) transform.Transform {
	t.Helper()
	s, err := transform.NewScale(factors, axes)
	mustNoError(t, "new scale", err)
	return s
}

func mustTranslation(t *testing.T, offsets []float64, axes []string) transform.Transform {
	t.Helper()
	tr, err := transform.NewTranslation(offsets, axes)
	mustNoError(t, "new translation", err)
	return tr
}

// newTestLabels builds a 4x4 uint32 mask with instance 1 in the top
// left 2x2 block and instance 2 in the bottom right 2x2 block.
func newTestLabels(t *testing.T) *Labels {
	t.Helper()
	arr, err := raster.NewDense(raster.Uint32, []int{4, 4})
	mustNoError(t, "new dense", err)
	for _, yx := range [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
		mustNoError(t, "set", arr.Set(1, yx[0], yx[1]))
	}
	for _, yx := range [][2]int{{2, 2}, {2, 3}, {3, 2}, {3, 3}} {
		mustNoError(t, "set", arr.Set(2, yx[0], yx[1]))
	}
	el, err := NewLabels(arr, []string{"y", "x"})
	mustNoError(t, "new labels", err)
	return el
}

func newTestImage(t *testing.T) *Image {
	t.Helper()
	arr, err := raster.NewDense(raster.Uint8, []int{1, 4, 4})
	mustNoError(t, "new dense", err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			mustNoError(t, "set", arr.Set(float64(y*4+x), 0, y, x))
		}
	}
	el, err := NewImage(arr, []string{"c", "y", "x"})
	mustNoError(t, "new image", err)
	return el
}

func newTestPoints(t *testing.T, xs, ys []float64) *Points {
	t.Helper()
	f := frame.New()
	mustNoError(t, "add x", f.AddFloats("x", xs))
	mustNoError(t, "add y", f.AddFloats("y", ys))
	el, err := NewPoints(f, []string{"x", "y"})
	mustNoError(t, "new points", err)
	return el
}

func newTestShapes(t *testing.T) *Shapes {
	t.Helper()
	set := geom.NewSet()
	circle, err := geom.NewCircle([]float64{2, 2}, 1)
	mustNoError(t, "new circle", err)
	mustNoError(t, "add circle", set.Add(circle, 10))
	poly, err := geom.NewPolygon([][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	mustNoError(t, "new polygon", err)
	mustNoError(t, "add polygon", set.Add(poly, 11))
	el, err := NewShapes(set, []string{"x", "y"})
	mustNoError(t, "new shapes", err)
	return el
}

func newTestTable(t *testing.T, regions []string, instances []int64) *Table {
	t.Helper()
	f := frame.New()
	mustNoError(t, "add region", f.AddStrings("region", regions))
	mustNoError(t, "add instance", f.AddInts("instance", instances))
	vals := make([]float64, len(regions))
	for i := range vals {
		vals[i] = float64(i) * 1.5
	}
	mustNoError(t, "add value", f.AddFloats("value", vals))
	tbl, err := NewTable(f)
	mustNoError(t, "new table", err)
	return tbl
}

// newTestContainer assembles the standard fixture: an image, a labels
// mask, points and shapes, plus a table annotating the mask. All
// spatial elements map into "global" by identity; labels and points
// also map into "physical" by a factor two scale.
func newTestContainer(t *testing.T) *Container {
	t.Helper()
	ctx := context.Background()
	c := NewContainer()

	img := newTestImage(t)
	mustNoError(t, "img transform", img.Transforms().Set("global", transform.NewIdentity()))
	mustNoError(t, "set image", c.SetImage("scan", img))

	lbl := newTestLabels(t)
	mustNoError(t, "lbl transform", lbl.Transforms().Set("global", transform.NewIdentity()))
	mustNoError(t, "lbl physical", lbl.Transforms().Set("physical", mustScale(t, []float64{2, 2}, []string{"x", "y"})))
	mustNoError(t, "set labels", c.SetLabels("cells", lbl))

	pts := newTestPoints(t, []float64{1, 3, 5}, []float64{1, 3, 9})
	mustNoError(t, "pts transform", pts.Transforms().Set("global", transform.NewIdentity()))
	mustNoError(t, "pts physical", pts.Transforms().Set("physical", mustScale(t, []float64{2, 2}, []string{"x", "y"})))
	mustNoError(t, "set points", c.SetPoints("detections", pts))

	shp := newTestShapes(t)
	mustNoError(t, "shp transform", shp.Transforms().Set("global", transform.NewIdentity()))
	mustNoError(t, "set shapes", c.SetShapes("regions", shp))

	tbl := newTestTable(t, []string{"cells", "cells"}, []int64{1, 2})
	mustNoError(t, "annotate", tbl.SetAnnotationTarget(ctx, []string{"cells"}, "region", "instance"))
	if _, err := c.SetTable("measurements", tbl); err != nil {
		t.Fatalf("set table: %v", err)
	}
	return c
}

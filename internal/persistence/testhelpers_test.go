package persistence

import (
	"context"
	"testing"

	"spatialcore/internal/storage"
	"spatialcore/pkg/domain"
	"spatialcore/pkg/frame"
	"spatialcore/pkg/geom"
	"spatialcore/pkg/raster"
	"spatialcore/pkg/transform"
)

func testContext() context.Context { return context.Background() }

func mustNoError(t *testing.T, label string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", label, err)
	}
}

// newTestContainer builds a container with one element of every kind
// plus a table annotating the "cells" labels element. Raster shapes
// exceed the chunk edge on one axis so multi-chunk paths run.
func newTestContainer(t *testing.T) *domain.Container {
	t.Helper()
	c := domain.NewContainer()

	img, err := raster.NewDense(raster.Uint8, []int{1, 70, 70})
	mustNoError(t, "new image raster", err)
	for y := 0; y < 70; y++ {
		for x := 0; x < 70; x++ {
			mustNoError(t, "set pixel", img.Set(float64((y+x)%251), 0, y, x))
		}
	}
	image, err := domain.NewImage(img, []string{"c", "y", "x"})
	mustNoError(t, "new image", err)
	mustNoError(t, "image transform", image.Transforms().Set("global", transform.NewIdentity()))
	scale, err := transform.NewScale([]float64{0.5, 0.5}, []string{"y", "x"})
	mustNoError(t, "new scale", err)
	mustNoError(t, "image scaled transform", image.Transforms().Set("scaled", scale))
	mustNoError(t, "set image", c.SetImage("scan", image))

	mask, err := raster.NewDense(raster.Uint32, []int{8, 8})
	mustNoError(t, "new labels raster", err)
	for _, yx := range [][2]int{{0, 0}, {0, 1}, {1, 0}} {
		mustNoError(t, "set label", mask.Set(1, yx[0], yx[1]))
	}
	for _, yx := range [][2]int{{6, 6}, {7, 7}} {
		mustNoError(t, "set label", mask.Set(2, yx[0], yx[1]))
	}
	labels, err := domain.NewLabels(mask, []string{"y", "x"})
	mustNoError(t, "new labels", err)
	mustNoError(t, "labels transform", labels.Transforms().Set("global", transform.NewIdentity()))
	mustNoError(t, "set labels", c.SetLabels("cells", labels))

	pts := frame.New()
	mustNoError(t, "points x", pts.AddFloats("x", []float64{1, 2, 3}))
	mustNoError(t, "points y", pts.AddFloats("y", []float64{4, 5, 6}))
	mustNoError(t, "points gene", pts.AddStrings("gene", []string{"a", "b", "a"}))
	points, err := domain.NewPoints(pts, []string{"x", "y"})
	mustNoError(t, "new points", err)
	mustNoError(t, "points transform", points.Transforms().Set("global", transform.NewIdentity()))
	mustNoError(t, "set points", c.SetPoints("transcripts", points))

	set := geom.NewSet()
	circle, err := geom.NewCircle([]float64{3, 4}, 2)
	mustNoError(t, "new circle", err)
	mustNoError(t, "add circle", set.Add(circle, 1))
	poly, err := geom.NewPolygon([][]float64{{0, 0}, {4, 0}, {4, 4}, {0, 4}})
	mustNoError(t, "new polygon", err)
	mustNoError(t, "add polygon", set.Add(poly, 2))
	shapes, err := domain.NewShapes(set, []string{"x", "y"})
	mustNoError(t, "new shapes", err)
	mustNoError(t, "shapes transform", shapes.Transforms().Set("global", transform.NewIdentity()))
	mustNoError(t, "set shapes", c.SetShapes("nuclei", shapes))

	rows := frame.New()
	mustNoError(t, "table region", rows.AddStrings("region", []string{"cells", "cells"}))
	mustNoError(t, "table id", rows.AddInts("id", []int64{1, 2}))
	mustNoError(t, "table score", rows.AddFloats("score", []float64{0.9, 0.4}))
	table, err := domain.NewTable(rows)
	mustNoError(t, "new table", err)
	mustNoError(t, "annotate", table.SetAnnotationTarget(testContext(), []string{"cells"}, "region", "id"))
	_, err = c.SetTable("measurements", table)
	mustNoError(t, "set table", err)

	return c
}

// writeTestContainer persists a fresh test container to a fresh memory
// store under the given prefix.
func writeTestContainer(t *testing.T, prefix string) (storage.Store, *domain.Container) {
	t.Helper()
	store := storage.NewMemory()
	c := newTestContainer(t)
	mustNoError(t, "write", Write(testContext(), store, prefix, c, WriteOptions{}))
	return store, c
}

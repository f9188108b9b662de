package domain

import (
	"context"
	"sort"

	"spatialcore/pkg/frame"
	"spatialcore/pkg/raster"
	"spatialcore/pkg/transform"
)

// canonicalSpatial orders spatial axis names x, y, z, keeping only
// those present. Centroid output columns follow this order no matter
// how the source element orders its payload.
func canonicalSpatial(axes []string) []string {
	present := make(map[string]bool, len(axes))
	for _, a := range axes {
		present[a] = true
	}
	var out []string
	for _, a := range []string{"x", "y", "z"} {
		if present[a] {
			out = append(out, a)
		}
	}
	return out
}

// Centroids computes per-instance centroids of the referenced element
// expressed in the target coordinate system, returned as a points
// element mapping into that system by identity. Labels contribute one
// centroid per non-zero pixel value (column "label"), shapes one per
// geometry (column "id"), points map through as bare coordinates.
// Images have no instances and are rejected.
func (c *Container) Centroids(ctx context.Context, ref ElementRef, system string) (*Points, error) {
	el, err := c.Element(ref)
	if err != nil {
		return nil, err
	}
	t, err := c.TransformationBetween(ref, system)
	if err != nil {
		return nil, err
	}
	switch e := el.(type) {
	case *Labels:
		return labelCentroids(ctx, e, t, system)
	case *Shapes:
		return shapeCentroids(e, t, system)
	case *Points:
		return pointCentroids(ctx, e, t, system)
	case *Image:
		return nil, ErrValidation{Op: "get_centroids", Reason: "images elements have no instances"}
	}
	return nil, ErrValidation{Op: "get_centroids", Reason: "unsupported element type"}
}

func centroidPoints(coords [][]float64, srcAxes []string, idName string, ids []int64, system string) (*Points, error) {
	canon := canonicalSpatial(srcAxes)
	pos := make([]int, len(canon))
	for i, a := range canon {
		for j, sa := range srcAxes {
			if sa == a {
				pos[i] = j
			}
		}
	}
	f := frame.New()
	for i, a := range canon {
		col := make([]float64, len(coords))
		for r := range coords {
			col[r] = coords[r][pos[i]]
		}
		if err := f.AddFloats(a, col); err != nil {
			return nil, err
		}
	}
	if idName != "" {
		if err := f.AddInts(idName, ids); err != nil {
			return nil, err
		}
	}
	out, err := NewPoints(f, canon)
	if err != nil {
		return nil, err
	}
	if err := out.transforms.Set(system, transform.NewIdentity()); err != nil {
		return nil, err
	}
	return out, nil
}

func labelCentroids(ctx context.Context, e *Labels, t transform.Transform, system string) (*Points, error) {
	dense, err := e.data.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	shape := dense.Shape()
	sums := make(map[int64][]float64)
	counts := make(map[int64]int)
	idx := make([]int, len(shape))
	for {
		v, err := dense.At(idx...)
		if err != nil {
			return nil, err
		}
		if v != 0 {
			id := int64(v)
			s := sums[id]
			if s == nil {
				s = make([]float64, len(shape))
				sums[id] = s
			}
			for d := range idx {
				s[d] += float64(idx[d])
			}
			counts[id]++
		}
		if !raster.Increment(idx, shape) {
			break
		}
	}
	ids := make([]int64, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	pts := make([][]float64, len(ids))
	for i, id := range ids {
		p := make([]float64, len(shape))
		for d := range p {
			p[d] = sums[id][d] / float64(counts[id])
		}
		pts[i] = p
	}
	mapped, err := t.Apply(pts, e.axes)
	if err != nil {
		return nil, err
	}
	return centroidPoints(mapped, e.axes, "label", ids, system)
}

func shapeCentroids(e *Shapes, t transform.Transform, system string) (*Points, error) {
	set := e.data
	pts := make([][]float64, set.Len())
	for i := 0; i < set.Len(); i++ {
		pts[i] = set.Geometry(i).Centroid()
	}
	mapped, err := t.Apply(pts, e.axes)
	if err != nil {
		return nil, err
	}
	return centroidPoints(mapped, e.axes, "id", set.IDs(), system)
}

func pointCentroids(ctx context.Context, e *Points, t transform.Transform, system string) (*Points, error) {
	f, err := e.data.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	n := f.Len()
	pts := make([][]float64, n)
	cols := make([][]float64, len(e.axes))
	for j, a := range e.axes {
		vals, err := f.Floats(a)
		if err != nil {
			return nil, err
		}
		cols[j] = vals
	}
	for i := 0; i < n; i++ {
		p := make([]float64, len(e.axes))
		for j := range e.axes {
			p[j] = cols[j][i]
		}
		pts[i] = p
	}
	mapped, err := t.Apply(pts, e.axes)
	if err != nil {
		return nil, err
	}
	return centroidPoints(mapped, e.axes, "", nil, system)
}

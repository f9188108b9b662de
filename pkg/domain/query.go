package domain

import (
	"context"
	"fmt"
	"math"

	"spatialcore/pkg/geom"
	"spatialcore/pkg/raster"
	"spatialcore/pkg/transform"
)

// FilterByCoordinateSystem returns a new container keeping the
// elements that map into at least one of the given systems. Kept
// elements share payloads with the originals but carry independent
// transform mappings. When filterTables is set, tables are cut down
// to rows annotating surviving elements; otherwise they pass through
// whole. Unknown system names simply match nothing.
func (c *Container) FilterByCoordinateSystem(ctx context.Context, systems []string, filterTables bool) (*Container, error) {
	want := make(map[string]bool, len(systems))
	for _, s := range systems {
		want[s] = true
	}
	out := NewContainer()
	var kept []string
	for _, ref := range c.Refs() {
		el, _ := c.Element(ref)
		match := false
		for _, s := range el.Transforms().Systems() {
			if want[s] {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		if err := out.addSpatial(ref.Kind, ref.Name, cloneShallowElement(el)); err != nil {
			return nil, err
		}
		kept = append(kept, ref.Name)
	}
	for _, name := range c.tables.names() {
		t, _ := c.tables.get(name)
		if !filterTables {
			out.tables.put(name, t.shallowClone())
			continue
		}
		filtered, err := t.FilterByElements(ctx, kept)
		if err != nil {
			return nil, fmt.Errorf("filter table %q: %w", name, err)
		}
		out.tables.put(name, filtered)
	}
	return out, nil
}

// BoundingBoxQuery clips the container to an axis-aligned box given
// in the target system's frame. Bounds are inclusive on both ends.
// Points keep rows falling inside the box, shapes keep geometries
// whose extent overlaps it, and rasters are cropped to the window
// covering the box, with their transforms shifted to account for the
// new origin. Elements without a transform into the target system,
// and elements left empty by the clip, are omitted. Query axes absent
// from an element leave that element unconstrained along them.
func (c *Container) BoundingBoxQuery(ctx context.Context, axes []string, minC, maxC []float64, system string, filterTables bool) (*Container, error) {
	const op = "bounding_box_query"
	if len(axes) == 0 {
		return nil, ErrValidation{Op: op, Reason: "no query axes"}
	}
	if len(minC) != len(axes) || len(maxC) != len(axes) {
		return nil, ErrValidation{Op: op, Reason: "axes and bounds lengths differ"}
	}
	seen := make(map[string]int, len(axes))
	for i, a := range axes {
		if !spatialAxisNames[a] {
			return nil, ErrValidation{Op: op, Reason: fmt.Sprintf("%q is not a spatial axis", a)}
		}
		if _, dup := seen[a]; dup {
			return nil, ErrValidation{Op: op, Reason: fmt.Sprintf("axis %q given twice", a)}
		}
		seen[a] = i
		if minC[i] > maxC[i] {
			return nil, ErrValidation{Op: op, Reason: fmt.Sprintf("axis %q has min above max", a)}
		}
	}

	out := NewContainer()
	var kept []string
	for _, ref := range c.Refs() {
		el, _ := c.Element(ref)
		t, ok := el.Transforms().Get(system)
		if !ok {
			continue
		}
		clipped, err := clipElement(ctx, el, t, seen, minC, maxC)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, ref.Path(), err)
		}
		if clipped == nil {
			continue
		}
		if err := out.addSpatial(ref.Kind, ref.Name, clipped); err != nil {
			return nil, err
		}
		kept = append(kept, ref.Name)
	}
	for _, name := range c.tables.names() {
		t, _ := c.tables.get(name)
		if !filterTables {
			out.tables.put(name, t.shallowClone())
			continue
		}
		filtered, err := t.FilterByElements(ctx, kept)
		if err != nil {
			return nil, fmt.Errorf("filter table %q: %w", name, err)
		}
		out.tables.put(name, filtered)
	}
	return out, nil
}

// elementBox aligns the query box to an element's axes. Unqueried
// axes get infinite bounds.
func elementBox(elAxes []string, queried map[string]int, minC, maxC []float64) (lo, hi []float64) {
	lo = make([]float64, len(elAxes))
	hi = make([]float64, len(elAxes))
	for j, a := range elAxes {
		if q, ok := queried[a]; ok {
			lo[j] = minC[q]
			hi[j] = maxC[q]
		} else {
			lo[j] = math.Inf(-1)
			hi[j] = math.Inf(1)
		}
	}
	return lo, hi
}

// clipElement applies the box to one element. A nil element return
// with nil error means the element has no overlap and is omitted.
func clipElement(ctx context.Context, el Element, t transform.Transform, queried map[string]int, minC, maxC []float64) (Element, error) {
	switch e := el.(type) {
	case *Points:
		return clipPoints(ctx, e, t, queried, minC, maxC)
	case *Shapes:
		return clipShapes(e, t, queried, minC, maxC)
	case *Image:
		data, window, err := clipRaster(ctx, e.data, e.axes, t, queried, minC, maxC)
		if err != nil || data == nil {
			return nil, err
		}
		out, err := NewImage(data, e.axes)
		if err != nil {
			return nil, err
		}
		out.transforms, err = shiftedTransforms(e.transforms, e.axes, window)
		if err != nil {
			return nil, err
		}
		return out, nil
	case *Labels:
		data, window, err := clipRaster(ctx, e.data, e.axes, t, queried, minC, maxC)
		if err != nil || data == nil {
			return nil, err
		}
		out, err := NewLabels(data, e.axes)
		if err != nil {
			return nil, err
		}
		out.transforms, err = shiftedTransforms(e.transforms, e.axes, window)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrValidation{Op: "bounding_box_query", Reason: fmt.Sprintf("unsupported element type %T", el)}
}

func clipPoints(ctx context.Context, e *Points, t transform.Transform, queried map[string]int, minC, maxC []float64) (Element, error) {
	f, err := e.data.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	n := f.Len()
	if n == 0 {
		return nil, nil
	}
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
	lo, hi := elementBox(e.axes, queried, minC, maxC)
	mask := make([]bool, n)
	any := false
	for i, p := range mapped {
		inside := true
		for j := range p {
			if p[j] < lo[j] || p[j] > hi[j] {
				inside = false
				break
			}
		}
		mask[i] = inside
		any = any || inside
	}
	if !any {
		return nil, nil
	}
	filtered, err := f.Mask(mask)
	if err != nil {
		return nil, err
	}
	out, err := NewPoints(filtered, e.axes)
	if err != nil {
		return nil, err
	}
	out.transforms = e.transforms.Clone()
	return out, nil
}

func clipShapes(e *Shapes, t transform.Transform, queried map[string]int, minC, maxC []float64) (Element, error) {
	scale, err := isotropicScale(t, e.axes)
	if err != nil {
		return nil, err
	}
	mapped, err := e.data.Transform(func(pts [][]float64) ([][]float64, error) {
		return t.Apply(pts, e.axes)
	}, scale)
	if err != nil {
		return nil, err
	}
	lo, hi := elementBox(e.axes, queried, minC, maxC)
	mask := make([]bool, e.data.Len())
	any := false
	for i := 0; i < mapped.Len(); i++ {
		mask[i] = geom.Overlaps(mapped.Geometry(i), lo, hi)
		any = any || mask[i]
	}
	if !any {
		return nil, nil
	}
	filtered, err := e.data.Mask(mask)
	if err != nil {
		return nil, err
	}
	out, err := NewShapes(filtered, e.axes)
	if err != nil {
		return nil, err
	}
	out.transforms = e.transforms.Clone()
	return out, nil
}

// clipRaster crops the payload to the intrinsic window whose image
// covers the box, rounding outward. The returned window is the crop's
// low corner per payload dimension, for transform adjustment. A nil
// array means no overlap.
func clipRaster(ctx context.Context, arr raster.Array, axes []string, t transform.Transform, queried map[string]int, minC, maxC []float64) (*raster.Dense, []int, error) {
	dense, err := arr.Materialize(ctx)
	if err != nil {
		return nil, nil, err
	}
	spAxes := spatialAxes(axes)
	aff, err := t.ToAffine(spAxes)
	if err != nil {
		return nil, nil, err
	}
	inv, err := aff.Inverse()
	if err != nil {
		return nil, nil, err
	}
	shape := dense.Shape()
	spDims := make([]int, 0, len(spAxes))
	for i, a := range axes {
		if spatialAxisNames[a] {
			spDims = append(spDims, i)
		}
	}

	// Transformed extent of the payload, to bound unqueried axes.
	mapped, err := aff.Apply(spatialCorners(shape, spDims), spAxes)
	if err != nil {
		return nil, nil, err
	}
	boxLo := make([]float64, len(spAxes))
	boxHi := make([]float64, len(spAxes))
	for k := range spAxes {
		tmin, tmax := math.Inf(1), math.Inf(-1)
		for _, p := range mapped {
			tmin = math.Min(tmin, p[k])
			tmax = math.Max(tmax, p[k])
		}
		if q, ok := queried[spAxes[k]]; ok {
			boxLo[k] = minC[q]
			boxHi[k] = maxC[q]
		} else {
			boxLo[k] = tmin
			boxHi[k] = tmax
		}
	}

	back, err := inv.Apply(boxCorners(boxLo, boxHi), spAxes)
	if err != nil {
		return nil, nil, err
	}
	cropLo := make([]int, len(shape))
	cropHi := make([]int, len(shape))
	for d := range shape {
		cropHi[d] = shape[d]
	}
	for k, d := range spDims {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range back {
			lo = math.Min(lo, p[k])
			hi = math.Max(hi, p[k])
		}
		l := int(math.Floor(lo))
		h := int(math.Ceil(hi))
		if l < 0 {
			l = 0
		}
		if h > shape[d]-1 {
			h = shape[d] - 1
		}
		if l > h {
			return nil, nil, nil
		}
		cropLo[d] = l
		cropHi[d] = h + 1
	}
	cropped, err := dense.Crop(cropLo, cropHi)
	if err != nil {
		return nil, nil, err
	}
	return cropped, cropLo, nil
}

// boxCorners enumerates the corners of an axis-aligned box.
func boxCorners(lo, hi []float64) [][]float64 {
	n := 1 << len(lo)
	out := make([][]float64, n)
	for mask := 0; mask < n; mask++ {
		p := make([]float64, len(lo))
		for k := range lo {
			if mask&(1<<k) != 0 {
				p[k] = hi[k]
			} else {
				p[k] = lo[k]
			}
		}
		out[mask] = p
	}
	return out
}

// shiftedTransforms rebuilds a transform map after a crop re-origined
// the payload at window. Each mapping is composed with a translation
// putting cropped indices back where the original payload had them.
func shiftedTransforms(tm *TransformMap, axes []string, window []int) (*TransformMap, error) {
	spAxes := spatialAxes(axes)
	offsets := make([]float64, 0, len(spAxes))
	zero := true
	for i, a := range axes {
		if spatialAxisNames[a] {
			offsets = append(offsets, float64(window[i]))
			if window[i] != 0 {
				zero = false
			}
		}
	}
	if zero {
		return tm.Clone(), nil
	}
	shift, err := transform.NewTranslation(offsets, spAxes)
	if err != nil {
		return nil, err
	}
	out := NewTransformMap()
	for _, s := range tm.Systems() {
		t, _ := tm.Get(s)
		if err := out.Set(s, transform.Compose(shift, t)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

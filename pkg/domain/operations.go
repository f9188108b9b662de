package domain

import (
	"context"
	"fmt"
	"math"

	"spatialcore/pkg/frame"
	"spatialcore/pkg/raster"
	"spatialcore/pkg/transform"
)

// Transformation returns the referenced element's transform into the
// named coordinate system. The element must map into that system
// directly; use TransformationBetween to route through intermediate
// systems.
func (c *Container) Transformation(ref ElementRef, system string) (transform.Transform, error) {
	el, err := c.Element(ref)
	if err != nil {
		return nil, err
	}
	t, ok := el.Transforms().Get(system)
	if !ok {
		return nil, ErrNotFound{What: "coordinate system", Name: system}
	}
	return t, nil
}

// SetTransformation installs the element's transform into a system.
func (c *Container) SetTransformation(ref ElementRef, system string, t transform.Transform) error {
	el, err := c.Element(ref)
	if err != nil {
		return err
	}
	return el.Transforms().Set(system, t)
}

// SetAllTransformations replaces the element's whole transform map
// with the supplied mapping.
func (c *Container) SetAllTransformations(ref ElementRef, transforms map[string]transform.Transform) error {
	el, err := c.Element(ref)
	if err != nil {
		return err
	}
	if len(transforms) == 0 {
		return ErrValidation{Op: "set_all_transformations", Reason: "empty transform map"}
	}
	replacement := NewTransformMap()
	for system, t := range transforms {
		if err := replacement.Set(system, t); err != nil {
			return err
		}
	}
	tm := el.Transforms()
	tm.Clear()
	for _, system := range replacement.Systems() {
		t, _ := replacement.Get(system)
		if err := tm.Set(system, t); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTransformation drops the element's transform into a system.
// Removing a mapping that does not exist is an error.
func (c *Container) RemoveTransformation(ref ElementRef, system string) error {
	el, err := c.Element(ref)
	if err != nil {
		return err
	}
	if !el.Transforms().Remove(system) {
		return ErrNotFound{What: "coordinate system", Name: system}
	}
	return nil
}

// RemoveAllTransformations clears the element's transform map, leaving
// it mapped into no coordinate system.
func (c *Container) RemoveAllTransformations(ref ElementRef) error {
	el, err := c.Element(ref)
	if err != nil {
		return err
	}
	el.Transforms().Clear()
	return nil
}

// TransformationBetween returns a transform taking the referenced
// element's intrinsic coordinates into the target system. A direct
// mapping is returned as stored. Otherwise the element graph is
// searched breadth-first: elements connect to the systems they map
// into, and a system connects back to an element when that element's
// transform is invertible. The composed chain over the shortest such
// path is returned.
func (c *Container) TransformationBetween(ref ElementRef, target string) (transform.Transform, error) {
	el, err := c.Element(ref)
	if err != nil {
		return nil, err
	}
	if t, ok := el.Transforms().Get(target); ok {
		return t, nil
	}

	type node struct {
		ref      ElementRef
		system   string
		isSystem bool
		chain    []transform.Transform
	}
	extend := func(chain []transform.Transform, t transform.Transform) []transform.Transform {
		out := make([]transform.Transform, len(chain)+1)
		copy(out, chain)
		out[len(chain)] = t
		return out
	}

	visited := map[string]bool{"el:" + ref.Path(): true}
	queue := []node{{ref: ref}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.isSystem {
			for _, next := range c.ElementsInSystem(cur.system) {
				key := "el:" + next.Path()
				if visited[key] {
					continue
				}
				visited[key] = true
				nextEl, _ := c.Element(next)
				t, _ := nextEl.Transforms().Get(cur.system)
				inv, err := t.Inverse()
				if err != nil {
					continue
				}
				queue = append(queue, node{ref: next, chain: extend(cur.chain, inv)})
			}
			continue
		}
		curEl, _ := c.Element(cur.ref)
		for _, s := range curEl.Transforms().Systems() {
			t, _ := curEl.Transforms().Get(s)
			chain := extend(cur.chain, t)
			if s == target {
				return transform.Compose(chain...), nil
			}
			key := "cs:" + s
			if visited[key] {
				continue
			}
			visited[key] = true
			queue = append(queue, node{system: s, isSystem: true, chain: chain})
		}
	}
	return nil, ErrNotFound{What: "transformation path to coordinate system", Name: target}
}

// ApplyTransform materializes the element's payload expressed in the
// transform's output frame and returns it as a new element of the
// same kind. Coordinate data (points, shapes) is mapped directly;
// raster data is resampled by nearest neighbor onto a grid anchored
// at the output frame's origin. Raster payload mapping to negative
// output coordinates is clipped away; a transform placing the whole
// extent below the origin is an error. The input element is not
// modified and the result keeps a copy of its transform mappings.
func ApplyTransform(ctx context.Context, el Element, t transform.Transform) (Element, error) {
	if el == nil {
		return nil, ErrValidation{Op: "apply_transform", Reason: "nil element"}
	}
	if t == nil {
		return nil, ErrValidation{Op: "apply_transform", Reason: "nil transform"}
	}
	switch e := el.(type) {
	case *Image:
		data, err := resampleRaster(ctx, e.data, e.axes, t)
		if err != nil {
			return nil, err
		}
		out, err := NewImage(data, e.axes)
		if err != nil {
			return nil, err
		}
		out.transforms = e.transforms.Clone()
		return out, nil
	case *Labels:
		data, err := resampleRaster(ctx, e.data, e.axes, t)
		if err != nil {
			return nil, err
		}
		out, err := NewLabels(data, e.axes)
		if err != nil {
			return nil, err
		}
		out.transforms = e.transforms.Clone()
		return out, nil
	case *Points:
		data, err := transformPoints(ctx, e.data, e.axes, t)
		if err != nil {
			return nil, err
		}
		out, err := NewPoints(data, e.axes)
		if err != nil {
			return nil, err
		}
		out.transforms = e.transforms.Clone()
		return out, nil
	case *Shapes:
		scale, err := isotropicScale(t, e.axes)
		if err != nil {
			return nil, err
		}
		data, err := e.data.Transform(func(pts [][]float64) ([][]float64, error) {
			return t.Apply(pts, e.axes)
		}, scale)
		if err != nil {
			return nil, err
		}
		out, err := NewShapes(data, e.axes)
		if err != nil {
			return nil, err
		}
		out.transforms = e.transforms.Clone()
		return out, nil
	}
	return nil, ErrValidation{Op: "apply_transform", Reason: fmt.Sprintf("unsupported element type %T", el)}
}

// TransformToCoordinateSystem returns a new container holding every
// element that participates in the target system, with payloads
// re-expressed in that system's frame. Each result element carries a
// single identity mapping keyed by the target system; all other
// mappings are dropped. Tables pass through untouched. The receiver
// is not modified.
func (c *Container) TransformToCoordinateSystem(ctx context.Context, target string) (*Container, error) {
	found := false
	for _, s := range c.CoordinateSystems() {
		if s == target {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNotFound{What: "coordinate system", Name: target}
	}
	out, err := c.FilterByCoordinateSystem(ctx, []string{target}, false)
	if err != nil {
		return nil, err
	}
	for _, ref := range out.Refs() {
		el, _ := out.Element(ref)
		t, ok := el.Transforms().Get(target)
		if !ok {
			return nil, ErrNotFound{What: "coordinate system", Name: target}
		}
		applied, err := ApplyTransform(ctx, el, t)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", ref.Path(), err)
		}
		applied.Transforms().Clear()
		if err := applied.Transforms().Set(target, transform.NewIdentity()); err != nil {
			return nil, err
		}
		out.spatialSet(ref.Kind).items[ref.Name] = applied
	}
	return out, nil
}

// resampleRaster maps a raster payload through t by nearest neighbor.
// The output grid is anchored at the output frame's origin and spans
// up to the transformed extent of the input, so an identity mapping
// keyed by the output frame positions it correctly. Payload mapping
// below the origin falls outside the grid and is dropped. Non-spatial
// axes (channels) are carried through unchanged.
func resampleRaster(ctx context.Context, arr raster.Array, axes []string, t transform.Transform) (*raster.Dense, error) {
	dense, err := arr.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	spAxes := spatialAxes(axes)
	aff, err := t.ToAffine(spAxes)
	if err != nil {
		return nil, err
	}
	inv, err := aff.Inverse()
	if err != nil {
		return nil, err
	}

	shape := dense.Shape()
	spDims := make([]int, 0, len(spAxes))
	for i, a := range axes {
		if spatialAxisNames[a] {
			spDims = append(spDims, i)
		}
	}

	corners := spatialCorners(shape, spDims)
	mapped, err := aff.Apply(corners, spAxes)
	if err != nil {
		return nil, err
	}
	outShape := copyInts(shape)
	for k, d := range spDims {
		hi := math.Inf(-1)
		for _, p := range mapped {
			if p[k] > hi {
				hi = p[k]
			}
		}
		n := int(math.Ceil(hi)) + 1
		if n < 1 {
			return nil, ErrValidation{Op: "apply_transform", Reason: "transformed extent lies entirely outside the output frame"}
		}
		outShape[d] = n
	}

	out, err := raster.NewDense(dense.DType(), outShape)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(outShape))
	src := make([]int, len(outShape))
	pt := [][]float64{make([]float64, len(spDims))}
	for {
		for k, d := range spDims {
			pt[0][k] = float64(idx[d])
		}
		back, err := inv.Apply(pt, spAxes)
		if err != nil {
			return nil, err
		}
		copy(src, idx)
		inBounds := true
		for k, d := range spDims {
			j := int(math.Round(back[0][k]))
			if j < 0 || j >= shape[d] {
				inBounds = false
				break
			}
			src[d] = j
		}
		if inBounds {
			v, err := dense.At(src...)
			if err != nil {
				return nil, err
			}
			if err := out.Set(v, idx...); err != nil {
				return nil, err
			}
		}
		if !raster.Increment(idx, outShape) {
			break
		}
	}
	return out, nil
}

// spatialCorners returns every corner of the input index extent over
// the spatial dimensions, as points ordered like spDims.
func spatialCorners(shape, spDims []int) [][]float64 {
	n := 1 << len(spDims)
	out := make([][]float64, n)
	for mask := 0; mask < n; mask++ {
		p := make([]float64, len(spDims))
		for k, d := range spDims {
			if mask&(1<<k) != 0 {
				p[k] = float64(shape[d] - 1)
			}
		}
		out[mask] = p
	}
	return out
}

func transformPoints(ctx context.Context, src frame.Source, axes []string, t transform.Transform) (*frame.Frame, error) {
	f, err := src.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	coords := make([][]float64, len(axes))
	for i, a := range axes {
		vals, err := f.Floats(a)
		if err != nil {
			return nil, err
		}
		coords[i] = vals
	}
	n := f.Len()
	pts := make([][]float64, n)
	for i := 0; i < n; i++ {
		p := make([]float64, len(axes))
		for j := range axes {
			p[j] = coords[j][i]
		}
		pts[i] = p
	}
	mapped, err := t.Apply(pts, axes)
	if err != nil {
		return nil, err
	}

	axisCol := make(map[string]int, len(axes))
	for j, a := range axes {
		axisCol[a] = j
	}
	out := frame.New()
	for _, name := range f.Columns() {
		if j, ok := axisCol[name]; ok {
			vals := make([]float64, n)
			for i := 0; i < n; i++ {
				vals[i] = mapped[i][j]
			}
			if err := out.AddFloats(name, vals); err != nil {
				return nil, err
			}
			continue
		}
		if err := copyColumn(out, f, name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func copyColumn(dst *frame.Frame, src *frame.Frame, name string) error {
	typ, _ := src.ColumnType(name)
	switch typ {
	case frame.TypeFloat:
		vals, err := src.Floats(name)
		if err != nil {
			return err
		}
		return dst.AddFloats(name, vals)
	case frame.TypeInt:
		vals, err := src.Ints(name)
		if err != nil {
			return err
		}
		return dst.AddInts(name, vals)
	case frame.TypeString:
		vals, err := src.Strings(name)
		if err != nil {
			return err
		}
		return dst.AddStrings(name, vals)
	}
	return ErrValidation{Op: "copy_column", Reason: fmt.Sprintf("column %q has unknown type", name)}
}

// isotropicScale derives the radius scale factor a transform applies
// to circles: the square root of the absolute determinant of the
// planar linear part.
func isotropicScale(t transform.Transform, axes []string) (float64, error) {
	aff, err := t.ToAffine(axes)
	if err != nil {
		return 0, err
	}
	m := aff.Matrix()
	if len(axes) != 2 {
		return 0, ErrValidation{Op: "apply_transform", Reason: "circle scaling needs a planar transform"}
	}
	det := m[0][0]*m[1][1] - m[0][1]*m[1][0]
	s := math.Sqrt(math.Abs(det))
	if s == 0 {
		return 0, fmt.Errorf("apply_transform: %w", transform.ErrNotInvertible)
	}
	return s, nil
}

func copyInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}

package domain

import (
	"context"
	"fmt"

	"spatialcore/pkg/raster"
)

// cloneShallowElement copies an element's identity (axes, transform
// mappings) while sharing its payload. Query results use this so the
// originals' mappings stay isolated from the result's.
func cloneShallowElement(el Element) Element {
	switch e := el.(type) {
	case *Image:
		return &Image{data: e.data, axes: copyStrings(e.axes), transforms: e.transforms.Clone()}
	case *Labels:
		return &Labels{data: e.data, axes: copyStrings(e.axes), transforms: e.transforms.Clone()}
	case *Points:
		return &Points{data: e.data, axes: copyStrings(e.axes), transforms: e.transforms.Clone()}
	case *Shapes:
		return &Shapes{data: e.data, axes: copyStrings(e.axes), transforms: e.transforms.Clone()}
	}
	return nil
}

func (t *Table) shallowClone() *Table {
	out := &Table{rows: t.rows}
	out.setAnnotation(t.annotation)
	return out
}

// Clone returns a fully independent copy of the container. Lazy
// payloads are materialized, so the clone no longer depends on the
// backing store, and the clone starts unbound.
func (c *Container) Clone(ctx context.Context) (*Container, error) {
	out := NewContainer()
	for _, ref := range c.Refs() {
		el, _ := c.Element(ref)
		cloned, err := cloneDeepElement(ctx, el)
		if err != nil {
			return nil, fmt.Errorf("clone %s: %w", ref.Path(), err)
		}
		if err := out.addSpatial(ref.Kind, ref.Name, cloned); err != nil {
			return nil, err
		}
	}
	for _, name := range c.tables.names() {
		t, _ := c.tables.get(name)
		f, err := t.rows.Materialize(ctx)
		if err != nil {
			return nil, fmt.Errorf("clone tables/%s: %w", name, err)
		}
		ct := &Table{rows: f.Clone()}
		ct.setAnnotation(t.annotation)
		out.tables.put(name, ct)
	}
	return out, nil
}

func cloneDeepElement(ctx context.Context, el Element) (Element, error) {
	switch e := el.(type) {
	case *Image:
		dense, err := e.data.Materialize(ctx)
		if err != nil {
			return nil, err
		}
		return &Image{data: dense.Clone(), axes: copyStrings(e.axes), transforms: e.transforms.Clone()}, nil
	case *Labels:
		dense, err := e.data.Materialize(ctx)
		if err != nil {
			return nil, err
		}
		return &Labels{data: dense.Clone(), axes: copyStrings(e.axes), transforms: e.transforms.Clone()}, nil
	case *Points:
		f, err := e.data.Materialize(ctx)
		if err != nil {
			return nil, err
		}
		return &Points{data: f.Clone(), axes: copyStrings(e.axes), transforms: e.transforms.Clone()}, nil
	case *Shapes:
		return &Shapes{data: e.data.Clone(), axes: copyStrings(e.axes), transforms: e.transforms.Clone()}, nil
	}
	return nil, ErrValidation{Op: "clone", Reason: fmt.Sprintf("unsupported element type %T", el)}
}

// ElementsEqual compares two elements by kind, axes, transform
// mappings and payload contents. Lazy payloads are materialized.
func ElementsEqual(ctx context.Context, a, b Element) (bool, error) {
	if a == nil || b == nil {
		return a == b, nil
	}
	if a.Kind() != b.Kind() {
		return false, nil
	}
	if !equalStringSlices(a.Axes(), b.Axes()) {
		return false, nil
	}
	if !a.Transforms().Equal(b.Transforms()) {
		return false, nil
	}
	switch ea := a.(type) {
	case *Image:
		return rastersEqual(ctx, ea.data, b.(*Image).data)
	case *Labels:
		return rastersEqual(ctx, ea.data, b.(*Labels).data)
	case *Points:
		fa, err := ea.data.Materialize(ctx)
		if err != nil {
			return false, err
		}
		fb, err := b.(*Points).data.Materialize(ctx)
		if err != nil {
			return false, err
		}
		return fa.Equal(fb), nil
	case *Shapes:
		return ea.data.Equal(b.(*Shapes).data), nil
	}
	return false, nil
}

func rastersEqual(ctx context.Context, a, b raster.Array) (bool, error) {
	da, err := a.Materialize(ctx)
	if err != nil {
		return false, err
	}
	db, err := b.Materialize(ctx)
	if err != nil {
		return false, err
	}
	return da.Equal(db), nil
}

// TablesEqual compares two tables by annotation target and row
// contents.
func TablesEqual(ctx context.Context, a, b *Table) (bool, error) {
	if a == nil || b == nil {
		return a == b, nil
	}
	aa, ba := a.annotation, b.annotation
	if (aa == nil) != (ba == nil) {
		return false, nil
	}
	if aa != nil {
		if aa.RegionKey != ba.RegionKey || aa.InstanceKey != ba.InstanceKey || !equalStringSlices(aa.Region, ba.Region) {
			return false, nil
		}
	}
	fa, err := a.rows.Materialize(ctx)
	if err != nil {
		return false, err
	}
	fb, err := b.rows.Materialize(ctx)
	if err != nil {
		return false, err
	}
	return fa.Equal(fb), nil
}

// Equal reports whether two containers hold the same entries with
// equal contents. Entry order and store bindings are ignored.
func (c *Container) Equal(ctx context.Context, other *Container) (bool, error) {
	if other == nil {
		return false, nil
	}
	for _, kind := range SpatialKinds() {
		an := c.spatialSet(kind).names()
		bn := other.spatialSet(kind).names()
		if len(an) != len(bn) {
			return false, nil
		}
		for _, name := range an {
			ae, _ := c.spatialSet(kind).get(name)
			be, ok := other.spatialSet(kind).get(name)
			if !ok {
				return false, nil
			}
			eq, err := ElementsEqual(ctx, ae, be)
			if err != nil || !eq {
				return eq, err
			}
		}
	}
	if len(c.tables.order) != len(other.tables.order) {
		return false, nil
	}
	for _, name := range c.tables.names() {
		at, _ := c.tables.get(name)
		bt, ok := other.tables.get(name)
		if !ok {
			return false, nil
		}
		eq, err := TablesEqual(ctx, at, bt)
		if err != nil || !eq {
			return eq, err
		}
	}
	return true, nil
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

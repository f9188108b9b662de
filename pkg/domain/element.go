// Package domain defines the spatial container model: the element kinds,
// their payloads, coordinate transform mappings, and the container that
// owns them. The container is the unit of consistency; every mutation
// and query entry point lives on it or on the element types it holds.
package domain

import (
	"fmt"
	"sort"
	"strings"

	"spatialcore/pkg/frame"
	"spatialcore/pkg/geom"
	"spatialcore/pkg/raster"
	"spatialcore/pkg/transform"
)

// Kind names one of the five element collections a container manages.
type Kind string

const (
	KindImages Kind = "images"
	KindLabels Kind = "labels"
	KindPoints Kind = "points"
	KindShapes Kind = "shapes"
	KindTables Kind = "tables"
)

// SpatialKinds lists the kinds that carry spatial payloads and
// coordinate transforms, in canonical iteration order. Tables are
// relational and are not part of this set.
func SpatialKinds() []Kind {
	return []Kind{KindImages, KindLabels, KindPoints, KindShapes}
}

// ElementRef addresses one entry of a container by collection and name.
type ElementRef struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

// Path renders the reference as "<kind>/<name>", the form used in
// reports, warnings, and the persisted layout.
func (r ElementRef) Path() string {
	return string(r.Kind) + "/" + r.Name
}

// ParseElementPath parses a "<kind>/<name>" path into a reference.
func ParseElementPath(path string) (ElementRef, error) {
	kind, name, ok := strings.Cut(path, "/")
	if !ok || name == "" {
		return ElementRef{}, ErrValidation{Op: "parse_element_path", Reason: fmt.Sprintf("malformed element path %q", path)}
	}
	switch Kind(kind) {
	case KindImages, KindLabels, KindPoints, KindShapes, KindTables:
		return ElementRef{Kind: Kind(kind), Name: name}, nil
	}
	return ElementRef{}, ErrValidation{Op: "parse_element_path", Reason: fmt.Sprintf("unknown element kind %q", kind)}
}

// spatialAxisNames are the axis names that position data in space.
// Any other axis (channels, bands) rides along untransformed.
var spatialAxisNames = map[string]bool{"x": true, "y": true, "z": true}

// spatialAxes filters axes down to the spatial ones, preserving order.
func spatialAxes(axes []string) []string {
	out := make([]string, 0, len(axes))
	for _, a := range axes {
		if spatialAxisNames[a] {
			out = append(out, a)
		}
	}
	return out
}

func checkElementAxes(op string, axes []string) error {
	if len(axes) == 0 {
		return ErrValidation{Op: op, Reason: "element needs at least one axis"}
	}
	seen := make(map[string]bool, len(axes))
	spatial := 0
	for _, a := range axes {
		if a == "" {
			return ErrValidation{Op: op, Reason: "empty axis name"}
		}
		if seen[a] {
			return ErrValidation{Op: op, Reason: fmt.Sprintf("duplicate axis %q", a)}
		}
		seen[a] = true
		if spatialAxisNames[a] {
			spatial++
		}
	}
	if spatial == 0 {
		return ErrValidation{Op: op, Reason: "element needs at least one spatial axis (x, y or z)"}
	}
	return nil
}

// Element is the capability surface shared by the four spatial kinds.
// Tables do not implement it; they carry no axes or transforms.
type Element interface {
	Kind() Kind
	// Axes returns the element's axis names in payload order.
	Axes() []string
	// Transforms is the element's live coordinate-system mapping.
	// Mutating it changes which systems the element participates in.
	Transforms() *TransformMap
}

// Image is a raster intensity element. Axes follow the payload
// dimension order, typically (c, y, x) or (c, z, y, x).
type Image struct {
	data       raster.Array
	axes       []string
	transforms *TransformMap
}

// NewImage wraps a raster payload as an image element. The axis list
// must match the payload rank and contain at least one spatial axis.
func NewImage(data raster.Array, axes []string) (*Image, error) {
	if data == nil {
		return nil, ErrValidation{Op: "new_image", Reason: "nil raster payload"}
	}
	if err := checkElementAxes("new_image", axes); err != nil {
		return nil, err
	}
	if got, want := len(data.Shape()), len(axes); got != want {
		return nil, ErrValidation{Op: "new_image", Reason: fmt.Sprintf("payload rank %d does not match %d axes", got, want)}
	}
	return &Image{data: data, axes: copyStrings(axes), transforms: NewTransformMap()}, nil
}

func (im *Image) Kind() Kind                { return KindImages }
func (im *Image) Axes() []string            { return copyStrings(im.axes) }
func (im *Image) Transforms() *TransformMap { return im.transforms }

// Data returns the raster payload. Payloads may be lazy; call
// Materialize to obtain decoded pixels.
func (im *Image) Data() raster.Array { return im.data }

// Labels is a raster segmentation mask. Pixel values are instance
// identifiers, so only integer dtypes are accepted; zero is background.
type Labels struct {
	data       raster.Array
	axes       []string
	transforms *TransformMap
}

// NewLabels wraps an integer raster payload as a labels element.
func NewLabels(data raster.Array, axes []string) (*Labels, error) {
	if data == nil {
		return nil, ErrValidation{Op: "new_labels", Reason: "nil raster payload"}
	}
	if err := checkElementAxes("new_labels", axes); err != nil {
		return nil, err
	}
	if got, want := len(data.Shape()), len(axes); got != want {
		return nil, ErrValidation{Op: "new_labels", Reason: fmt.Sprintf("payload rank %d does not match %d axes", got, want)}
	}
	switch data.DType() {
	case raster.Float32, raster.Float64:
		return nil, ErrValidation{Op: "new_labels", Reason: fmt.Sprintf("labels need an integer dtype, got %s", data.DType())}
	}
	for _, a := range axes {
		if !spatialAxisNames[a] {
			return nil, ErrValidation{Op: "new_labels", Reason: fmt.Sprintf("labels allow only spatial axes, got %q", a)}
		}
	}
	return &Labels{data: data, axes: copyStrings(axes), transforms: NewTransformMap()}, nil
}

func (lb *Labels) Kind() Kind                { return KindLabels }
func (lb *Labels) Axes() []string            { return copyStrings(lb.axes) }
func (lb *Labels) Transforms() *TransformMap { return lb.transforms }

// Data returns the raster payload.
func (lb *Labels) Data() raster.Array { return lb.data }

// Points is a tabular point-cloud element. Each axis names a coordinate
// column of the payload; remaining columns are per-point attributes.
type Points struct {
	data       frame.Source
	axes       []string
	transforms *TransformMap
}

// NewPoints wraps a columnar payload as a points element. Every axis
// must be spatial and name an existing payload column.
func NewPoints(data frame.Source, axes []string) (*Points, error) {
	if data == nil {
		return nil, ErrValidation{Op: "new_points", Reason: "nil frame payload"}
	}
	if err := checkElementAxes("new_points", axes); err != nil {
		return nil, err
	}
	cols := make(map[string]bool)
	for _, c := range data.Columns() {
		cols[c] = true
	}
	for _, a := range axes {
		if !spatialAxisNames[a] {
			return nil, ErrValidation{Op: "new_points", Reason: fmt.Sprintf("points allow only spatial axes, got %q", a)}
		}
		if !cols[a] {
			return nil, ErrValidation{Op: "new_points", Reason: fmt.Sprintf("payload has no %q coordinate column", a)}
		}
	}
	return &Points{data: data, axes: copyStrings(axes), transforms: NewTransformMap()}, nil
}

func (pt *Points) Kind() Kind                { return KindPoints }
func (pt *Points) Axes() []string            { return copyStrings(pt.axes) }
func (pt *Points) Transforms() *TransformMap { return pt.transforms }

// Data returns the columnar payload.
func (pt *Points) Data() frame.Source { return pt.data }

// Shapes is a geometry collection element (circles and polygons) with
// per-geometry instance identifiers.
type Shapes struct {
	data       *geom.Set
	axes       []string
	transforms *TransformMap
}

// NewShapes wraps a geometry set as a shapes element. Geometries are
// planar, so exactly two spatial axes are required.
func NewShapes(data *geom.Set, axes []string) (*Shapes, error) {
	if data == nil {
		return nil, ErrValidation{Op: "new_shapes", Reason: "nil geometry payload"}
	}
	if err := checkElementAxes("new_shapes", axes); err != nil {
		return nil, err
	}
	if len(axes) != 2 {
		return nil, ErrValidation{Op: "new_shapes", Reason: fmt.Sprintf("shapes need exactly two axes, got %d", len(axes))}
	}
	for _, a := range axes {
		if !spatialAxisNames[a] {
			return nil, ErrValidation{Op: "new_shapes", Reason: fmt.Sprintf("shapes allow only spatial axes, got %q", a)}
		}
	}
	for i := 0; i < data.Len(); i++ {
		if c, ok := data.Geometry(i).(geom.Circle); ok && len(c.Center()) != 2 {
			return nil, ErrValidation{Op: "new_shapes", Reason: fmt.Sprintf("geometry %d has a %d-dimensional center, want 2", i, len(c.Center()))}
		}
	}
	return &Shapes{data: data, axes: copyStrings(axes), transforms: NewTransformMap()}, nil
}

func (sh *Shapes) Kind() Kind                { return KindShapes }
func (sh *Shapes) Axes() []string            { return copyStrings(sh.axes) }
func (sh *Shapes) Transforms() *TransformMap { return sh.transforms }

// Data returns the geometry payload.
func (sh *Shapes) Data() *geom.Set { return sh.data }

// TransformMap holds an element's coordinate transforms keyed by
// coordinate system name. The set of systems a container knows is the
// union of the keys of all its elements' maps; there is no separate
// registry.
type TransformMap struct {
	bySystem map[string]transform.Transform
}

// NewTransformMap returns an empty mapping.
func NewTransformMap() *TransformMap {
	return &TransformMap{bySystem: make(map[string]transform.Transform)}
}

// Set installs or replaces the transform for a coordinate system.
func (tm *TransformMap) Set(system string, t transform.Transform) error {
	if system == "" {
		return ErrValidation{Op: "set_transformation", Reason: "empty coordinate system name"}
	}
	if t == nil {
		return ErrValidation{Op: "set_transformation", Reason: "nil transform"}
	}
	tm.bySystem[system] = t
	return nil
}

// Get returns the transform for a coordinate system, if present.
func (tm *TransformMap) Get(system string) (transform.Transform, bool) {
	t, ok := tm.bySystem[system]
	return t, ok
}

// Remove drops the mapping for a coordinate system and reports whether
// one was present.
func (tm *TransformMap) Remove(system string) bool {
	if _, ok := tm.bySystem[system]; !ok {
		return false
	}
	delete(tm.bySystem, system)
	return true
}

// Clear drops every mapping.
func (tm *TransformMap) Clear() {
	tm.bySystem = make(map[string]transform.Transform)
}

// Systems returns the mapped coordinate system names, sorted.
func (tm *TransformMap) Systems() []string {
	out := make([]string, 0, len(tm.bySystem))
	for s := range tm.bySystem {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of mapped systems.
func (tm *TransformMap) Len() int { return len(tm.bySystem) }

// Clone returns an independent copy of the mapping. Transforms are
// immutable values and are shared.
func (tm *TransformMap) Clone() *TransformMap {
	out := NewTransformMap()
	for s, t := range tm.bySystem {
		out.bySystem[s] = t
	}
	return out
}

// Equal reports whether two mappings cover the same systems with equal
// transforms.
func (tm *TransformMap) Equal(other *TransformMap) bool {
	if tm == nil || other == nil {
		return tm == other
	}
	if len(tm.bySystem) != len(other.bySystem) {
		return false
	}
	for s, t := range tm.bySystem {
		ot, ok := other.bySystem[s]
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	return true
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

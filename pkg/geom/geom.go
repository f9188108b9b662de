// Package geom provides the vector-geometry collaborator behind shape
// elements: circles and simple polygons with bounds, centroids and bulk
// coordinate mapping. Geometries are immutable values.
package geom

import "fmt"

// Type discriminates geometry variants.
type Type string

// Supported geometry types.
const (
	TypeCircle  Type = "circle"
	TypePolygon Type = "polygon"
)

// TransformFunc maps coordinate tuples in bulk, preserving order and count.
type TransformFunc func(points [][]float64) ([][]float64, error)

// Geometry is one shape in a set.
type Geometry interface {
	GeomType() Type
	// Bounds returns the axis-aligned extent as (min, max) corners.
	Bounds() (min, max []float64)
	// Centroid returns the representative center point.
	Centroid() []float64
	// Equal reports structural equality.
	Equal(other Geometry) bool
}

// Circle is a center point with a radius.
type Circle struct {
	center []float64
	radius float64
}

// NewCircle validates a circle. The radius must be positive.
func NewCircle(center []float64, radius float64) (Circle, error) {
	if len(center) == 0 {
		return Circle{}, fmt.Errorf("geom: circle has no center coordinates")
	}
	if radius <= 0 {
		return Circle{}, fmt.Errorf("geom: circle radius %v must be positive", radius)
	}
	c := make([]float64, len(center))
	copy(c, center)
	return Circle{center: c, radius: radius}, nil
}

// GeomType implements Geometry.
func (Circle) GeomType() Type { return TypeCircle }

// Center returns a copy of the center point.
func (c Circle) Center() []float64 {
	out := make([]float64, len(c.center))
	copy(out, c.center)
	return out
}

// Radius returns the circle radius.
func (c Circle) Radius() float64 { return c.radius }

// Bounds implements Geometry.
func (c Circle) Bounds() (min, max []float64) {
	min = make([]float64, len(c.center))
	max = make([]float64, len(c.center))
	for i, v := range c.center {
		min[i] = v - c.radius
		max[i] = v + c.radius
	}
	return min, max
}

// Centroid implements Geometry.
func (c Circle) Centroid() []float64 { return c.Center() }

// Transform maps the center and scales the radius.
func (c Circle) Transform(fn TransformFunc, radiusScale float64) (Circle, error) {
	mapped, err := fn([][]float64{c.Center()})
	if err != nil {
		return Circle{}, err
	}
	if len(mapped) != 1 {
		return Circle{}, fmt.Errorf("geom: transform returned %d points for 1", len(mapped))
	}
	return NewCircle(mapped[0], c.radius*radiusScale)
}

// Equal implements Geometry.
func (c Circle) Equal(other Geometry) bool {
	o, ok := other.(Circle)
	if !ok || c.radius != o.radius || len(c.center) != len(o.center) {
		return false
	}
	for i := range c.center {
		if c.center[i] != o.center[i] {
			return false
		}
	}
	return true
}

// Polygon is a simple planar polygon given by its exterior ring. Vertices
// are 2D; the ring is implicitly closed.
type Polygon struct {
	ring [][]float64
}

// NewPolygon validates a polygon ring of at least three 2D vertices.
func NewPolygon(ring [][]float64) (Polygon, error) {
	if len(ring) < 3 {
		return Polygon{}, fmt.Errorf("geom: polygon needs at least 3 vertices, got %d", len(ring))
	}
	r := make([][]float64, len(ring))
	for i, v := range ring {
		if len(v) != 2 {
			return Polygon{}, fmt.Errorf("geom: polygon vertex %d has %d coordinates, want 2", i, len(v))
		}
		r[i] = []float64{v[0], v[1]}
	}
	return Polygon{ring: r}, nil
}

// GeomType implements Geometry.
func (Polygon) GeomType() Type { return TypePolygon }

// Ring returns a copy of the exterior ring.
func (p Polygon) Ring() [][]float64 {
	out := make([][]float64, len(p.ring))
	for i, v := range p.ring {
		out[i] = []float64{v[0], v[1]}
	}
	return out
}

// Bounds implements Geometry.
func (p Polygon) Bounds() (min, max []float64) {
	min = []float64{p.ring[0][0], p.ring[0][1]}
	max = []float64{p.ring[0][0], p.ring[0][1]}
	for _, v := range p.ring[1:] {
		for i := 0; i < 2; i++ {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	return min, max
}

// Centroid implements Geometry using the shoelace area centroid, falling
// back to the vertex mean for degenerate (zero-area) rings.
func (p Polygon) Centroid() []float64 {
	var area, cx, cy float64
	n := len(p.ring)
	for i := 0; i < n; i++ {
		x0, y0 := p.ring[i][0], p.ring[i][1]
		x1, y1 := p.ring[(i+1)%n][0], p.ring[(i+1)%n][1]
		cross := x0*y1 - x1*y0
		area += cross
		cx += (x0 + x1) * cross
		cy += (y0 + y1) * cross
	}
	if area == 0 {
		var sx, sy float64
		for _, v := range p.ring {
			sx += v[0]
			sy += v[1]
		}
		return []float64{sx / float64(n), sy / float64(n)}
	}
	area /= 2
	return []float64{cx / (6 * area), cy / (6 * area)}
}

// Transform maps every vertex.
func (p Polygon) Transform(fn TransformFunc) (Polygon, error) {
	mapped, err := fn(p.Ring())
	if err != nil {
		return Polygon{}, err
	}
	return NewPolygon(mapped)
}

// Equal implements Geometry.
func (p Polygon) Equal(other Geometry) bool {
	o, ok := other.(Polygon)
	if !ok || len(p.ring) != len(o.ring) {
		return false
	}
	for i := range p.ring {
		if p.ring[i][0] != o.ring[i][0] || p.ring[i][1] != o.ring[i][1] {
			return false
		}
	}
	return true
}

// Overlaps reports whether a geometry's bounds intersect the closed box
// [min, max] on the box's leading axes.
func Overlaps(g Geometry, min, max []float64) bool {
	gmin, gmax := g.Bounds()
	n := len(min)
	if len(gmin) < n {
		n = len(gmin)
	}
	for i := 0; i < n; i++ {
		if gmax[i] < min[i] || gmin[i] > max[i] {
			return false
		}
	}
	return true
}

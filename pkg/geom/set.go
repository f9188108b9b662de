package geom

import "fmt"

// Set is an ordered collection of geometries with per-geometry instance ids.
type Set struct {
	geoms []Geometry
	ids   []int64
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{}
}

// Add appends a geometry under an instance id.
func (s *Set) Add(g Geometry, id int64) error {
	if g == nil {
		return fmt.Errorf("geom: nil geometry")
	}
	s.geoms = append(s.geoms, g)
	s.ids = append(s.ids, id)
	return nil
}

// Len returns the geometry count.
func (s *Set) Len() int { return len(s.geoms) }

// Geometry returns the i-th geometry.
func (s *Set) Geometry(i int) Geometry { return s.geoms[i] }

// ID returns the i-th instance id.
func (s *Set) ID(i int) int64 { return s.ids[i] }

// IDs returns a copy of the instance ids in order.
func (s *Set) IDs() []int64 {
	out := make([]int64, len(s.ids))
	copy(out, s.ids)
	return out
}

// Transform maps every geometry; circle radii scale by radiusScale.
func (s *Set) Transform(fn TransformFunc, radiusScale float64) (*Set, error) {
	out := NewSet()
	for i, g := range s.geoms {
		var (
			mapped Geometry
			err    error
		)
		switch v := g.(type) {
		case Circle:
			mapped, err = v.Transform(fn, radiusScale)
		case Polygon:
			mapped, err = v.Transform(fn)
		default:
			err = fmt.Errorf("geom: unsupported geometry %T", g)
		}
		if err != nil {
			return nil, fmt.Errorf("geom: geometry %d: %w", i, err)
		}
		if err := out.Add(mapped, s.ids[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Mask keeps geometries where keep is true.
func (s *Set) Mask(keep []bool) (*Set, error) {
	if len(keep) != len(s.geoms) {
		return nil, fmt.Errorf("geom: mask has %d entries for %d geometries", len(keep), len(s.geoms))
	}
	out := NewSet()
	for i, k := range keep {
		if !k {
			continue
		}
		if err := out.Add(s.geoms[i], s.ids[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clone copies the set. Geometries are immutable so they are shared.
func (s *Set) Clone() *Set {
	out := NewSet()
	out.geoms = append([]Geometry(nil), s.geoms...)
	out.ids = append([]int64(nil), s.ids...)
	return out
}

// Equal reports order-sensitive equality of ids and geometries.
func (s *Set) Equal(other *Set) bool {
	if other == nil || len(s.geoms) != len(other.geoms) {
		return false
	}
	for i := range s.geoms {
		if s.ids[i] != other.ids[i] || !s.geoms[i].Equal(other.geoms[i]) {
			return false
		}
	}
	return true
}

// Package transform models composable coordinate transformations between
// spatial reference frames. Transforms are immutable values: constructors
// copy their inputs and mutating a container's placement replaces whole
// entries rather than editing transforms in place.
//
// Every transform applies to coordinate tuples whose components are named by
// an ordered axis list. Alignment is by axis name: an axis the transform does
// not name passes through unchanged, which lets a transform declared on
// (x, y) operate on (c, y, x) payloads without special cases.
package transform

import (
	"errors"
	"fmt"
)

// Kind discriminates the concrete transform variants.
type Kind string

// Canonical transform kinds, also used as the on-disk record type tags.
const (
	KindIdentity    Kind = "identity"
	KindScale       Kind = "scale"
	KindTranslation Kind = "translation"
	KindAffine      Kind = "affine"
	KindSequence    Kind = "sequence"
)

// ErrNotInvertible reports that a transform has no inverse.
var ErrNotInvertible = errors.New("transform: not invertible")

// Transform maps coordinates from one reference frame into another.
type Transform interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Apply maps each coordinate tuple. axes names the tuple components in
	// order; tuples and axes must have matching lengths. The input is never
	// mutated.
	Apply(points [][]float64, axes []string) ([][]float64, error)
	// Inverse returns the reverse mapping or ErrNotInvertible.
	Inverse() (Transform, error)
	// ToAffine materializes the transform as a square homogeneous matrix
	// over the given ordered axis list.
	ToAffine(axes []string) (*Affine, error)
	// Equal reports structural equality with another transform.
	Equal(other Transform) bool
}

// Identity is the neutral transform: coordinates map to themselves.
type Identity struct{}

// NewIdentity returns the identity transform.
func NewIdentity() *Identity {
	return &Identity{}
}

// Kind implements Transform.
func (*Identity) Kind() Kind { return KindIdentity }

// Apply returns a copy of the input tuples.
func (*Identity) Apply(points [][]float64, axes []string) ([][]float64, error) {
	if err := checkTuples(points, axes); err != nil {
		return nil, err
	}
	return copyPoints(points), nil
}

// Inverse of identity is identity.
func (*Identity) Inverse() (Transform, error) {
	return &Identity{}, nil
}

// ToAffine returns the identity matrix over axes.
func (*Identity) ToAffine(axes []string) (*Affine, error) {
	return identityAffine(axes), nil
}

// Equal implements Transform.
func (*Identity) Equal(other Transform) bool {
	_, ok := other.(*Identity)
	return ok
}

// Scale multiplies named axes by per-axis factors.
type Scale struct {
	axes    []string
	factors []float64
}

// NewScale builds a scale over the named axes. Factor and axis counts must
// match.
func NewScale(factors []float64, axes []string) (*Scale, error) {
	if len(factors) != len(axes) {
		return nil, fmt.Errorf("transform: scale has %d factors for %d axes", len(factors), len(axes))
	}
	if err := checkAxes(axes); err != nil {
		return nil, err
	}
	return &Scale{axes: copyStrings(axes), factors: copyFloats(factors)}, nil
}

// Kind implements Transform.
func (*Scale) Kind() Kind { return KindScale }

// Axes returns the named axes in declaration order.
func (s *Scale) Axes() []string { return copyStrings(s.axes) }

// Factors returns the per-axis factors in declaration order.
func (s *Scale) Factors() []float64 { return copyFloats(s.factors) }

// Apply multiplies each named component; unnamed axes are untouched.
func (s *Scale) Apply(points [][]float64, axes []string) ([][]float64, error) {
	if err := checkTuples(points, axes); err != nil {
		return nil, err
	}
	out := copyPoints(points)
	for i, axis := range axes {
		j := indexOf(s.axes, axis)
		if j < 0 {
			continue
		}
		for _, p := range out {
			p[i] *= s.factors[j]
		}
	}
	return out, nil
}

// Inverse returns the reciprocal scale. A zero factor is not invertible.
func (s *Scale) Inverse() (Transform, error) {
	inv := make([]float64, len(s.factors))
	for i, f := range s.factors {
		if f == 0 {
			return nil, fmt.Errorf("transform: zero scale factor for axis %q: %w", s.axes[i], ErrNotInvertible)
		}
		inv[i] = 1 / f
	}
	return &Scale{axes: copyStrings(s.axes), factors: inv}, nil
}

// ToAffine returns a diagonal matrix over axes.
func (s *Scale) ToAffine(axes []string) (*Affine, error) {
	a := identityAffine(axes)
	for i, axis := range axes {
		if j := indexOf(s.axes, axis); j >= 0 {
			a.matrix[i][i] = s.factors[j]
		}
	}
	return a, nil
}

// Equal implements Transform.
func (s *Scale) Equal(other Transform) bool {
	o, ok := other.(*Scale)
	return ok && equalStrings(s.axes, o.axes) && equalFloats(s.factors, o.factors)
}

// Translation shifts named axes by per-axis offsets.
type Translation struct {
	axes    []string
	offsets []float64
}

// NewTranslation builds a translation over the named axes.
func NewTranslation(offsets []float64, axes []string) (*Translation, error) {
	if len(offsets) != len(axes) {
		return nil, fmt.Errorf("transform: translation has %d offsets for %d axes", len(offsets), len(axes))
	}
	if err := checkAxes(axes); err != nil {
		return nil, err
	}
	return &Translation{axes: copyStrings(axes), offsets: copyFloats(offsets)}, nil
}

// Kind implements Transform.
func (*Translation) Kind() Kind { return KindTranslation }

// Axes returns the named axes in declaration order.
func (t *Translation) Axes() []string { return copyStrings(t.axes) }

// Offsets returns the per-axis offsets in declaration order.
func (t *Translation) Offsets() []float64 { return copyFloats(t.offsets) }

// Apply shifts each named component; unnamed axes are untouched.
func (t *Translation) Apply(points [][]float64, axes []string) ([][]float64, error) {
	if err := checkTuples(points, axes); err != nil {
		return nil, err
	}
	out := copyPoints(points)
	for i, axis := range axes {
		j := indexOf(t.axes, axis)
		if j < 0 {
			continue
		}
		for _, p := range out {
			p[i] += t.offsets[j]
		}
	}
	return out, nil
}

// Inverse returns the negated translation.
func (t *Translation) Inverse() (Transform, error) {
	neg := make([]float64, len(t.offsets))
	for i, o := range t.offsets {
		neg[i] = -o
	}
	return &Translation{axes: copyStrings(t.axes), offsets: neg}, nil
}

// ToAffine returns an identity matrix with the translation column filled in.
func (t *Translation) ToAffine(axes []string) (*Affine, error) {
	a := identityAffine(axes)
	n := len(axes)
	for i, axis := range axes {
		if j := indexOf(t.axes, axis); j >= 0 {
			a.matrix[i][n] = t.offsets[j]
		}
	}
	return a, nil
}

// Equal implements Transform.
func (t *Translation) Equal(other Transform) bool {
	o, ok := other.(*Translation)
	return ok && equalStrings(t.axes, o.axes) && equalFloats(t.offsets, o.offsets)
}

func checkAxes(axes []string) error {
	seen := make(map[string]struct{}, len(axes))
	for _, a := range axes {
		if a == "" {
			return fmt.Errorf("transform: empty axis name")
		}
		if _, dup := seen[a]; dup {
			return fmt.Errorf("transform: duplicate axis %q", a)
		}
		seen[a] = struct{}{}
	}
	return nil
}

func checkTuples(points [][]float64, axes []string) error {
	if err := checkAxes(axes); err != nil {
		return err
	}
	for _, p := range points {
		if len(p) != len(axes) {
			return fmt.Errorf("transform: tuple has %d components for %d axes", len(p), len(axes))
		}
	}
	return nil
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyFloats(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	return out
}

func copyPoints(in [][]float64) [][]float64 {
	out := make([][]float64, len(in))
	for i, p := range in {
		out[i] = copyFloats(p)
	}
	return out
}

func equalStrings(a, b []string) bool {
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

func equalFloats(a, b []float64) bool {
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

package transform

import "fmt"

// Sequence applies member transforms in order: the first member maps the
// source frame, the last produces the target frame.
type Sequence struct {
	transforms []Transform
}

// NewSequence builds an ordered composition. Members must be non-nil.
func NewSequence(transforms ...Transform) (*Sequence, error) {
	ts := make([]Transform, 0, len(transforms))
	for i, t := range transforms {
		if t == nil {
			return nil, fmt.Errorf("transform: sequence member %d is nil", i)
		}
		ts = append(ts, t)
	}
	return &Sequence{transforms: ts}, nil
}

// Compose chains transforms left to right, flattening nested sequences and
// dropping identities. Zero useful members compose to Identity; a single
// member is returned as itself.
func Compose(transforms ...Transform) Transform {
	flat := make([]Transform, 0, len(transforms))
	var walk func(ts []Transform)
	walk = func(ts []Transform) {
		for _, t := range ts {
			switch v := t.(type) {
			case nil:
			case *Identity:
			case *Sequence:
				walk(v.transforms)
			default:
				flat = append(flat, t)
			}
		}
	}
	walk(transforms)
	switch len(flat) {
	case 0:
		return &Identity{}
	case 1:
		return flat[0]
	default:
		return &Sequence{transforms: flat}
	}
}

// Kind implements Transform.
func (*Sequence) Kind() Kind { return KindSequence }

// Transforms returns the members in application order.
func (s *Sequence) Transforms() []Transform {
	out := make([]Transform, len(s.transforms))
	copy(out, s.transforms)
	return out
}

// Apply maps tuples through each member in order.
func (s *Sequence) Apply(points [][]float64, axes []string) ([][]float64, error) {
	out := copyPoints(points)
	var err error
	for i, t := range s.transforms {
		out, err = t.Apply(out, axes)
		if err != nil {
			return nil, fmt.Errorf("transform: sequence member %d: %w", i, err)
		}
	}
	return out, nil
}

// Inverse reverses the order and inverts each member.
func (s *Sequence) Inverse() (Transform, error) {
	inv := make([]Transform, 0, len(s.transforms))
	for i := len(s.transforms) - 1; i >= 0; i-- {
		t, err := s.transforms[i].Inverse()
		if err != nil {
			return nil, fmt.Errorf("transform: sequence member %d: %w", i, err)
		}
		inv = append(inv, t)
	}
	return &Sequence{transforms: inv}, nil
}

// ToAffine fuses the members into one matrix product over axes.
func (s *Sequence) ToAffine(axes []string) (*Affine, error) {
	acc := identityAffine(axes)
	for i, t := range s.transforms {
		m, err := t.ToAffine(axes)
		if err != nil {
			return nil, fmt.Errorf("transform: sequence member %d: %w", i, err)
		}
		acc = mul(m, acc)
	}
	return acc, nil
}

// Equal implements Transform.
func (s *Sequence) Equal(other Transform) bool {
	o, ok := other.(*Sequence)
	if !ok || len(s.transforms) != len(o.transforms) {
		return false
	}
	for i := range s.transforms {
		if !s.transforms[i].Equal(o.transforms[i]) {
			return false
		}
	}
	return true
}

package transform

import "fmt"

// Affine maps coordinates through a homogeneous matrix. The matrix has
// len(outputAxes)+1 rows and len(inputAxes)+1 columns with a [0 ... 0 1]
// bottom row; input and output axis lists may differ, so an affine can drop
// or introduce axes.
type Affine struct {
	inputAxes  []string
	outputAxes []string
	matrix     [][]float64
}

// NewAffine validates and copies a homogeneous matrix. Row and column counts
// must match the axis lists plus the homogeneous row/column.
func NewAffine(matrix [][]float64, inputAxes, outputAxes []string) (*Affine, error) {
	if err := checkAxes(inputAxes); err != nil {
		return nil, err
	}
	if err := checkAxes(outputAxes); err != nil {
		return nil, err
	}
	rows, cols := len(outputAxes)+1, len(inputAxes)+1
	if len(matrix) != rows {
		return nil, fmt.Errorf("transform: affine has %d rows, want %d", len(matrix), rows)
	}
	m := make([][]float64, rows)
	for i, row := range matrix {
		if len(row) != cols {
			return nil, fmt.Errorf("transform: affine row %d has %d columns, want %d", i, len(row), cols)
		}
		m[i] = copyFloats(row)
	}
	for j := 0; j < cols-1; j++ {
		if m[rows-1][j] != 0 {
			return nil, fmt.Errorf("transform: affine bottom row must be homogeneous")
		}
	}
	if m[rows-1][cols-1] != 1 {
		return nil, fmt.Errorf("transform: affine bottom row must be homogeneous")
	}
	return &Affine{
		inputAxes:  copyStrings(inputAxes),
		outputAxes: copyStrings(outputAxes),
		matrix:     m,
	}, nil
}

func identityAffine(axes []string) *Affine {
	n := len(axes)
	m := make([][]float64, n+1)
	for i := range m {
		m[i] = make([]float64, n+1)
		m[i][i] = 1
	}
	return &Affine{
		inputAxes:  copyStrings(axes),
		outputAxes: copyStrings(axes),
		matrix:     m,
	}
}

// Kind implements Transform.
func (*Affine) Kind() Kind { return KindAffine }

// InputAxes returns the axes the matrix consumes, in column order.
func (a *Affine) InputAxes() []string { return copyStrings(a.inputAxes) }

// OutputAxes returns the axes the matrix produces, in row order.
func (a *Affine) OutputAxes() []string { return copyStrings(a.outputAxes) }

// Matrix returns a copy of the homogeneous matrix.
func (a *Affine) Matrix() [][]float64 {
	out := make([][]float64, len(a.matrix))
	for i, row := range a.matrix {
		out[i] = copyFloats(row)
	}
	return out
}

// Apply maps tuples through the matrix aligned onto axes.
func (a *Affine) Apply(points [][]float64, axes []string) ([][]float64, error) {
	if err := checkTuples(points, axes); err != nil {
		return nil, err
	}
	al, err := a.ToAffine(axes)
	if err != nil {
		return nil, err
	}
	n := len(axes)
	out := make([][]float64, len(points))
	for pi, p := range points {
		q := make([]float64, n)
		for i := 0; i < n; i++ {
			acc := al.matrix[i][n]
			for j := 0; j < n; j++ {
				acc += al.matrix[i][j] * p[j]
			}
			q[i] = acc
		}
		out[pi] = q
	}
	return out, nil
}

// ToAffine aligns the matrix onto the given ordered axes. Axes the affine
// does not declare behave as identity; output axes absent from the request
// are dropped. An input axis required by a kept output row but missing from
// the request is an error.
func (a *Affine) ToAffine(axes []string) (*Affine, error) {
	out := identityAffine(axes)
	n := len(axes)
	for i, axis := range axes {
		r := indexOf(a.outputAxes, axis)
		if r < 0 {
			continue
		}
		for j := range out.matrix[i] {
			out.matrix[i][j] = 0
		}
		for c, in := range a.inputAxes {
			v := a.matrix[r][c]
			if v == 0 {
				continue
			}
			j := indexOf(axes, in)
			if j < 0 {
				return nil, fmt.Errorf("transform: affine needs input axis %q absent from %v", in, axes)
			}
			out.matrix[i][j] = v
		}
		out.matrix[i][n] = a.matrix[r][len(a.inputAxes)]
	}
	return out, nil
}

// Inverse inverts a square affine via Gauss-Jordan elimination. Non-square
// matrices (axis-reducing or axis-expanding) are not invertible.
func (a *Affine) Inverse() (Transform, error) {
	if len(a.inputAxes) != len(a.outputAxes) {
		return nil, fmt.Errorf("transform: affine maps %d axes to %d: %w", len(a.inputAxes), len(a.outputAxes), ErrNotInvertible)
	}
	n := len(a.matrix)
	// Augmented [M | I] reduced in place.
	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], a.matrix[i])
		aug[i][n+i] = 1
	}
	for col := 0; col < n; col++ {
		pivot := -1
		best := 0.0
		for r := col; r < n; r++ {
			if v := abs(aug[r][col]); v > best {
				best, pivot = v, r
			}
		}
		if pivot < 0 || best == 0 {
			return nil, fmt.Errorf("transform: singular affine matrix: %w", ErrNotInvertible)
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]
		pv := aug[col][col]
		for j := range aug[col] {
			aug[col][j] /= pv
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := aug[r][col]
			if f == 0 {
				continue
			}
			for j := range aug[r] {
				aug[r][j] -= f * aug[col][j]
			}
		}
	}
	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = copyFloats(aug[i][n:])
	}
	// Clamp homogeneous row drift from elimination.
	for j := 0; j < n-1; j++ {
		inv[n-1][j] = 0
	}
	inv[n-1][n-1] = 1
	return &Affine{
		inputAxes:  copyStrings(a.outputAxes),
		outputAxes: copyStrings(a.inputAxes),
		matrix:     inv,
	}, nil
}

// Equal implements Transform.
func (a *Affine) Equal(other Transform) bool {
	o, ok := other.(*Affine)
	if !ok || !equalStrings(a.inputAxes, o.inputAxes) || !equalStrings(a.outputAxes, o.outputAxes) {
		return false
	}
	if len(a.matrix) != len(o.matrix) {
		return false
	}
	for i := range a.matrix {
		if !equalFloats(a.matrix[i], o.matrix[i]) {
			return false
		}
	}
	return true
}

// mul returns b∘a as matrices over a shared axis alignment: a applies first.
func mul(b, a *Affine) *Affine {
	n := len(a.matrix)
	m := make([][]float64, n)
	for i := 0; i < n; i++ {
		m[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			var acc float64
			for k := 0; k < n; k++ {
				acc += b.matrix[i][k] * a.matrix[k][j]
			}
			m[i][j] = acc
		}
	}
	return &Affine{
		inputAxes:  copyStrings(a.inputAxes),
		outputAxes: copyStrings(b.outputAxes),
		matrix:     m,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

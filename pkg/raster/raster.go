// Package raster provides the dense N-D array collaborator behind image and
// label elements. Arrays expose cheap structural metadata and an explicit
// materialization step so callers can inspect shape and dtype without paying
// for a full read.
package raster

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// DType names a sample type. Samples are stored little-endian.
type DType string

// Supported sample types.
const (
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// Size returns the per-sample byte width, or 0 for an unknown dtype.
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	default:
		return 0
	}
}

// ParseDType validates a dtype name.
func ParseDType(s string) (DType, error) {
	d := DType(s)
	if d.Size() == 0 {
		return "", fmt.Errorf("raster: unknown dtype %q", s)
	}
	return d, nil
}

// Array is the two-tier payload contract: structural metadata is always
// cheap, sample access requires Materialize.
type Array interface {
	DType() DType
	Shape() []int
	// SizeBytes is the materialized payload size. Implementations must
	// answer without reading sample data.
	SizeBytes() uint64
	// Materialize loads the full array into memory. Dense arrays return
	// themselves.
	Materialize(ctx context.Context) (*Dense, error)
}

// Dense is a fully materialized row-major array.
type Dense struct {
	dtype   DType
	shape   []int
	strides []int
	data    []byte
}

var _ Array = (*Dense)(nil)

// NewDense allocates a zero-filled array.
func NewDense(dtype DType, shape []int) (*Dense, error) {
	n, err := checkShape(dtype, shape)
	if err != nil {
		return nil, err
	}
	return &Dense{
		dtype:   dtype,
		shape:   copyInts(shape),
		strides: rowMajorStrides(shape),
		data:    make([]byte, n*dtype.Size()),
	}, nil
}

// FromBytes wraps raw little-endian sample data. The byte length must match
// the shape and dtype exactly.
func FromBytes(dtype DType, shape []int, data []byte) (*Dense, error) {
	n, err := checkShape(dtype, shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n*dtype.Size() {
		return nil, fmt.Errorf("raster: %d bytes for shape %v of %s (want %d)", len(data), shape, dtype, n*dtype.Size())
	}
	d := make([]byte, len(data))
	copy(d, data)
	return &Dense{
		dtype:   dtype,
		shape:   copyInts(shape),
		strides: rowMajorStrides(shape),
		data:    d,
	}, nil
}

func checkShape(dtype DType, shape []int) (int, error) {
	if dtype.Size() == 0 {
		return 0, fmt.Errorf("raster: unknown dtype %q", dtype)
	}
	if len(shape) == 0 {
		return 0, fmt.Errorf("raster: empty shape")
	}
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return 0, fmt.Errorf("raster: non-positive dimension in shape %v", shape)
		}
		n *= s
	}
	return n, nil
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// DType implements Array.
func (d *Dense) DType() DType { return d.dtype }

// Shape implements Array.
func (d *Dense) Shape() []int { return copyInts(d.shape) }

// SizeBytes implements Array.
func (d *Dense) SizeBytes() uint64 { return uint64(len(d.data)) }

// Materialize implements Array.
func (d *Dense) Materialize(context.Context) (*Dense, error) { return d, nil }

// Bytes returns a copy of the raw sample buffer.
func (d *Dense) Bytes() []byte {
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out
}

func (d *Dense) offset(idx []int) (int, error) {
	if len(idx) != len(d.shape) {
		return 0, fmt.Errorf("raster: index rank %d for shape %v", len(idx), d.shape)
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= d.shape[i] {
			return 0, fmt.Errorf("raster: index %v out of bounds for shape %v", idx, d.shape)
		}
		off += v * d.strides[i]
	}
	return off * d.dtype.Size(), nil
}

// At reads one sample, widened to float64.
func (d *Dense) At(idx ...int) (float64, error) {
	off, err := d.offset(idx)
	if err != nil {
		return 0, err
	}
	b := d.data[off:]
	switch d.dtype {
	case Uint8:
		return float64(b[0]), nil
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b)), nil
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b)), nil
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b)), nil
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(b))), nil
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	}
	return 0, fmt.Errorf("raster: unknown dtype %q", d.dtype)
}

// Set writes one sample, narrowing from float64.
func (d *Dense) Set(v float64, idx ...int) error {
	off, err := d.offset(idx)
	if err != nil {
		return err
	}
	b := d.data[off:]
	switch d.dtype {
	case Uint8:
		b[0] = uint8(v)
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Uint64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	default:
		return fmt.Errorf("raster: unknown dtype %q", d.dtype)
	}
	return nil
}

// Crop copies the half-open window [lo, hi) into a new array.
func (d *Dense) Crop(lo, hi []int) (*Dense, error) {
	if len(lo) != len(d.shape) || len(hi) != len(d.shape) {
		return nil, fmt.Errorf("raster: window rank %d/%d for shape %v", len(lo), len(hi), d.shape)
	}
	shape := make([]int, len(d.shape))
	for i := range d.shape {
		if lo[i] < 0 || hi[i] > d.shape[i] || lo[i] >= hi[i] {
			return nil, fmt.Errorf("raster: window [%v, %v) out of bounds for shape %v", lo, hi, d.shape)
		}
		shape[i] = hi[i] - lo[i]
	}
	out, err := NewDense(d.dtype, shape)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(shape))
	src := make([]int, len(shape))
	for {
		for i := range idx {
			src[i] = lo[i] + idx[i]
		}
		v, err := d.At(src...)
		if err != nil {
			return nil, err
		}
		if err := out.Set(v, idx...); err != nil {
			return nil, err
		}
		if !increment(idx, shape) {
			return out, nil
		}
	}
}

// Clone deep-copies the array.
func (d *Dense) Clone() *Dense {
	return &Dense{
		dtype:   d.dtype,
		shape:   copyInts(d.shape),
		strides: copyInts(d.strides),
		data:    d.Bytes(),
	}
}

// Equal reports byte-for-byte equality of dtype, shape and samples.
func (d *Dense) Equal(other *Dense) bool {
	if other == nil || d.dtype != other.dtype || len(d.shape) != len(other.shape) {
		return false
	}
	for i := range d.shape {
		if d.shape[i] != other.shape[i] {
			return false
		}
	}
	if len(d.data) != len(other.data) {
		return false
	}
	for i := range d.data {
		if d.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// increment advances a row-major index over shape, returning false at wrap.
func increment(idx, shape []int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return true
		}
		idx[i] = 0
	}
	return false
}

// Increment advances a row-major counter over shape for external iteration
// such as chunk-grid walks. It returns false once the counter wraps.
func Increment(idx, shape []int) bool {
	return increment(idx, shape)
}

func copyInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}

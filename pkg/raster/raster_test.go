package raster

import (
	"context"
	"testing"
)

func TestNewDenseAllocatesZeroed(t *testing.T) {
	d, err := NewDense(Uint16, []int{2, 3})
	if err != nil {
		t.Fatalf("new dense: %v", err)
	}
	if d.SizeBytes() != 12 {
		t.Fatalf("expected 12 bytes, got %d", d.SizeBytes())
	}
	v, err := d.At(1, 2)
	if err != nil {
		t.Fatalf("at: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected zeroed sample, got %v", v)
	}
}

func TestSetAtRoundTripAllDTypes(t *testing.T) {
	for _, dtype := range []DType{Uint8, Uint16, Uint32, Uint64, Int32, Int64, Float32, Float64} {
		d, err := NewDense(dtype, []int{2, 2})
		if err != nil {
			t.Fatalf("%s: new dense: %v", dtype, err)
		}
		if err := d.Set(7, 1, 0); err != nil {
			t.Fatalf("%s: set: %v", dtype, err)
		}
		v, err := d.At(1, 0)
		if err != nil {
			t.Fatalf("%s: at: %v", dtype, err)
		}
		if v != 7 {
			t.Fatalf("%s: expected 7, got %v", dtype, v)
		}
	}
}

func TestFromBytesValidatesLength(t *testing.T) {
	if _, err := FromBytes(Uint8, []int{2, 2}, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	d, err := FromBytes(Uint8, []int{2, 2}, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	v, err := d.At(0, 1)
	if err != nil {
		t.Fatalf("at: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected row-major layout, got %v", v)
	}
}

func TestAtRejectsOutOfBounds(t *testing.T) {
	d, err := NewDense(Uint8, []int{2})
	if err != nil {
		t.Fatalf("new dense: %v", err)
	}
	if _, err := d.At(2); err == nil {
		t.Fatalf("expected bounds error")
	}
	if _, err := d.At(0, 0); err == nil {
		t.Fatalf("expected rank error")
	}
}

func TestCropWindow(t *testing.T) {
	d, err := FromBytes(Uint8, []int{3, 3}, []byte{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	w, err := d.Crop([]int{1, 1}, []int{3, 3})
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	want, err := FromBytes(Uint8, []int{2, 2}, []byte{5, 6, 8, 9})
	if err != nil {
		t.Fatalf("want: %v", err)
	}
	if !w.Equal(want) {
		t.Fatalf("unexpected crop result")
	}
	if _, err := d.Crop([]int{0, 0}, []int{4, 1}); err == nil {
		t.Fatalf("expected out-of-bounds window error")
	}
}

func TestDenseMaterializeReturnsSelf(t *testing.T) {
	d, err := NewDense(Float32, []int{1})
	if err != nil {
		t.Fatalf("new dense: %v", err)
	}
	m, err := d.Materialize(context.Background())
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if m != d {
		t.Fatalf("dense materialize should return the receiver")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	d, err := NewDense(Uint8, []int{2})
	if err != nil {
		t.Fatalf("new dense: %v", err)
	}
	c := d.Clone()
	if err := c.Set(9, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := d.At(0)
	if err != nil {
		t.Fatalf("at: %v", err)
	}
	if v != 0 {
		t.Fatalf("clone mutation leaked into original")
	}
	if d.Equal(c) {
		t.Fatalf("diverged arrays should not be equal")
	}
}

func TestParseDType(t *testing.T) {
	if _, err := ParseDType("uint16"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ParseDType("complex128"); err == nil {
		t.Fatalf("expected unknown dtype error")
	}
}

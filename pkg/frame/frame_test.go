package frame

import (
	"context"
	"testing"
)

func TestAddAndReadColumns(t *testing.T) {
	f := New()
	if err := f.AddFloats("x", []float64{1, 2, 3}); err != nil {
		t.Fatalf("add floats: %v", err)
	}
	if err := f.AddInts("id", []int64{10, 20, 30}); err != nil {
		t.Fatalf("add ints: %v", err)
	}
	if err := f.AddStrings("region", []string{"a", "b", "a"}); err != nil {
		t.Fatalf("add strings: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", f.Len())
	}
	cols := f.Columns()
	if len(cols) != 3 || cols[0] != "x" || cols[1] != "id" || cols[2] != "region" {
		t.Fatalf("column order lost: %v", cols)
	}
	xs, err := f.Floats("x")
	if err != nil {
		t.Fatalf("floats: %v", err)
	}
	if xs[2] != 3 {
		t.Fatalf("unexpected values: %v", xs)
	}
}

func TestAddRejectsMismatchedLengthAndDuplicates(t *testing.T) {
	f := New()
	if err := f.AddFloats("x", []float64{1, 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.AddFloats("y", []float64{1}); err == nil {
		t.Fatalf("expected row count error")
	}
	if err := f.AddInts("x", []int64{1, 2}); err == nil {
		t.Fatalf("expected duplicate column error")
	}
}

func TestColumnTypeMismatch(t *testing.T) {
	f := New()
	if err := f.AddStrings("region", []string{"a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.Floats("region"); err == nil {
		t.Fatalf("expected type mismatch error")
	}
	if _, err := f.Floats("missing"); err == nil {
		t.Fatalf("expected missing column error")
	}
}

func TestDistinctStringsSortedUnique(t *testing.T) {
	f := New()
	if err := f.AddStrings("region", []string{"b", "a", "b", "c", "a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := f.DistinctStrings("region")
	if err != nil {
		t.Fatalf("distinct: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected distinct values %v", got)
	}
}

func TestMaskFiltersRows(t *testing.T) {
	f := New()
	if err := f.AddStrings("region", []string{"a", "b", "a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.AddInts("id", []int64{1, 2, 3}); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := f.Mask([]bool{true, false, true})
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Len())
	}
	ids, err := got.Ints("id")
	if err != nil {
		t.Fatalf("ints: %v", err)
	}
	if ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected surviving rows %v", ids)
	}
	if _, err := f.Mask([]bool{true}); err == nil {
		t.Fatalf("expected mask length error")
	}
	// Original untouched.
	if f.Len() != 3 {
		t.Fatalf("mask mutated the source frame")
	}
}

func TestCloneAndEqual(t *testing.T) {
	f := New()
	if err := f.AddFloats("x", []float64{1, 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	c := f.Clone()
	if !f.Equal(c) {
		t.Fatalf("clone should equal source")
	}
	if err := c.AddInts("id", []int64{1, 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if f.Equal(c) {
		t.Fatalf("diverged frames should differ")
	}
}

func TestFrameImplementsSource(t *testing.T) {
	f := New()
	if err := f.AddFloats("x", []float64{1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	var src Source = f
	got, err := src.Materialize(context.Background())
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if got != f {
		t.Fatalf("frame materialize should return the receiver")
	}
}

// Package frame provides the columnar table collaborator behind point
// elements and annotation tables: ordered, typed columns of equal length
// with row-mask filtering. Frames are value-semantic; accessors return
// copies so callers cannot alias internal buffers.
package frame

import (
	"context"
	"fmt"
	"sort"
)

// Type names a column type.
type Type string

// Supported column types.
const (
	TypeFloat  Type = "float64"
	TypeInt    Type = "int64"
	TypeString Type = "string"
)

// Source is the two-tier contract for row data: row count and column names
// are always cheap, sample access requires Materialize.
type Source interface {
	Len() int
	Columns() []string
	Materialize(ctx context.Context) (*Frame, error)
}

type column struct {
	name    string
	typ     Type
	floats  []float64
	ints    []int64
	strings []string
}

func (c column) len() int {
	switch c.typ {
	case TypeFloat:
		return len(c.floats)
	case TypeInt:
		return len(c.ints)
	default:
		return len(c.strings)
	}
}

// Frame is an ordered collection of equal-length typed columns.
type Frame struct {
	cols []column
}

var _ Source = (*Frame)(nil)

// New returns an empty frame.
func New() *Frame {
	return &Frame{}
}

func (f *Frame) add(c column) error {
	if c.name == "" {
		return fmt.Errorf("frame: empty column name")
	}
	if f.has(c.name) {
		return fmt.Errorf("frame: duplicate column %q", c.name)
	}
	if len(f.cols) > 0 && c.len() != f.Len() {
		return fmt.Errorf("frame: column %q has %d rows, frame has %d", c.name, c.len(), f.Len())
	}
	f.cols = append(f.cols, c)
	return nil
}

// AddFloats appends a float64 column.
func (f *Frame) AddFloats(name string, values []float64) error {
	v := make([]float64, len(values))
	copy(v, values)
	return f.add(column{name: name, typ: TypeFloat, floats: v})
}

// AddInts appends an int64 column.
func (f *Frame) AddInts(name string, values []int64) error {
	v := make([]int64, len(values))
	copy(v, values)
	return f.add(column{name: name, typ: TypeInt, ints: v})
}

// AddStrings appends a string column.
func (f *Frame) AddStrings(name string, values []string) error {
	v := make([]string, len(values))
	copy(v, values)
	return f.add(column{name: name, typ: TypeString, strings: v})
}

// Len implements Source.
func (f *Frame) Len() int {
	if len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].len()
}

// Columns implements Source, returning names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.name
	}
	return out
}

// Materialize implements Source.
func (f *Frame) Materialize(context.Context) (*Frame, error) { return f, nil }

func (f *Frame) has(name string) bool {
	for _, c := range f.cols {
		if c.name == name {
			return true
		}
	}
	return false
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool { return f.has(name) }

// ColumnType returns the type of the named column.
func (f *Frame) ColumnType(name string) (Type, bool) {
	for _, c := range f.cols {
		if c.name == name {
			return c.typ, true
		}
	}
	return "", false
}

func (f *Frame) column(name string, typ Type) (column, error) {
	for _, c := range f.cols {
		if c.name != name {
			continue
		}
		if c.typ != typ {
			return column{}, fmt.Errorf("frame: column %q is %s, not %s", name, c.typ, typ)
		}
		return c, nil
	}
	return column{}, fmt.Errorf("frame: no column %q", name)
}

// Floats returns a copy of a float64 column.
func (f *Frame) Floats(name string) ([]float64, error) {
	c, err := f.column(name, TypeFloat)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(c.floats))
	copy(out, c.floats)
	return out, nil
}

// Ints returns a copy of an int64 column.
func (f *Frame) Ints(name string) ([]int64, error) {
	c, err := f.column(name, TypeInt)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(c.ints))
	copy(out, c.ints)
	return out, nil
}

// Strings returns a copy of a string column.
func (f *Frame) Strings(name string) ([]string, error) {
	c, err := f.column(name, TypeString)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(c.strings))
	copy(out, c.strings)
	return out, nil
}

// DistinctStrings returns the sorted distinct values of a string column.
func (f *Frame) DistinctStrings(name string) ([]string, error) {
	vals, err := f.Strings(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// Mask keeps rows where keep is true, producing a new frame with the same
// column order and types.
func (f *Frame) Mask(keep []bool) (*Frame, error) {
	if len(keep) != f.Len() {
		return nil, fmt.Errorf("frame: mask has %d entries for %d rows", len(keep), f.Len())
	}
	out := New()
	for _, c := range f.cols {
		nc := column{name: c.name, typ: c.typ}
		switch c.typ {
		case TypeFloat:
			for i, k := range keep {
				if k {
					nc.floats = append(nc.floats, c.floats[i])
				}
			}
		case TypeInt:
			for i, k := range keep {
				if k {
					nc.ints = append(nc.ints, c.ints[i])
				}
			}
		default:
			for i, k := range keep {
				if k {
					nc.strings = append(nc.strings, c.strings[i])
				}
			}
		}
		out.cols = append(out.cols, nc)
	}
	return out, nil
}

// Clone deep-copies the frame.
func (f *Frame) Clone() *Frame {
	out := New()
	for _, c := range f.cols {
		nc := column{name: c.name, typ: c.typ}
		switch c.typ {
		case TypeFloat:
			nc.floats = append([]float64(nil), c.floats...)
		case TypeInt:
			nc.ints = append([]int64(nil), c.ints...)
		default:
			nc.strings = append([]string(nil), c.strings...)
		}
		out.cols = append(out.cols, nc)
	}
	return out
}

// Equal reports column-order, type and value equality.
func (f *Frame) Equal(other *Frame) bool {
	if other == nil || len(f.cols) != len(other.cols) {
		return false
	}
	for i, a := range f.cols {
		b := other.cols[i]
		if a.name != b.name || a.typ != b.typ || a.len() != b.len() {
			return false
		}
		switch a.typ {
		case TypeFloat:
			for j := range a.floats {
				if a.floats[j] != b.floats[j] {
					return false
				}
			}
		case TypeInt:
			for j := range a.ints {
				if a.ints[j] != b.ints[j] {
					return false
				}
			}
		default:
			for j := range a.strings {
				if a.strings[j] != b.strings[j] {
					return false
				}
			}
		}
	}
	return true
}

package persistence

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"spatialcore/internal/storage/core"
	"spatialcore/pkg/frame"
)

// columnDocs lists a frame's columns in their stored order.
func columnDocs(f *frame.Frame) []columnDoc {
	names := f.Columns()
	docs := make([]columnDoc, len(names))
	for i, name := range names {
		typ, _ := f.ColumnType(name)
		docs[i] = columnDoc{Name: name, Type: typ}
	}
	return docs
}

// encodeColumn serializes one column: numeric columns as little-endian
// fixed-width binary, string columns as a JSON array.
func encodeColumn(f *frame.Frame, doc columnDoc) ([]byte, error) {
	switch doc.Type {
	case frame.TypeFloat:
		vals, err := f.Floats(doc.Name)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 8*len(vals))
		for i, v := range vals {
			binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
		}
		return out, nil
	case frame.TypeInt:
		vals, err := f.Ints(doc.Name)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 8*len(vals))
		for i, v := range vals {
			binary.LittleEndian.PutUint64(out[8*i:], uint64(v))
		}
		return out, nil
	case frame.TypeString:
		vals, err := f.Strings(doc.Name)
		if err != nil {
			return nil, err
		}
		return json.Marshal(vals)
	}
	return nil, fmt.Errorf("column %q has unknown type %q", doc.Name, doc.Type)
}

// decodeColumn adds one stored column to the frame under construction.
func decodeColumn(f *frame.Frame, doc columnDoc, rows int, data []byte) error {
	switch doc.Type {
	case frame.TypeFloat:
		if len(data) != 8*rows {
			return fmt.Errorf("column %q holds %d bytes, want %d", doc.Name, len(data), 8*rows)
		}
		vals := make([]float64, rows)
		for i := range vals {
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		}
		return f.AddFloats(doc.Name, vals)
	case frame.TypeInt:
		if len(data) != 8*rows {
			return fmt.Errorf("column %q holds %d bytes, want %d", doc.Name, len(data), 8*rows)
		}
		vals := make([]int64, rows)
		for i := range vals {
			vals[i] = int64(binary.LittleEndian.Uint64(data[8*i:]))
		}
		return f.AddInts(doc.Name, vals)
	case frame.TypeString:
		var vals []string
		if err := json.Unmarshal(data, &vals); err != nil {
			return fmt.Errorf("column %q: %w", doc.Name, err)
		}
		if len(vals) != rows {
			return fmt.Errorf("column %q holds %d values, want %d", doc.Name, len(vals), rows)
		}
		return f.AddStrings(doc.Name, vals)
	}
	return fmt.Errorf("column %q has unknown type %q", doc.Name, doc.Type)
}

// writeFrameColumns persists every column under <base>/cols/.
func writeFrameColumns(ctx context.Context, store core.Store, base string, f *frame.Frame) error {
	for _, doc := range columnDocs(f) {
		data, err := encodeColumn(f, doc)
		if err != nil {
			return err
		}
		key := joinKey(base, colsGroup, doc.Name)
		if _, err := store.Put(ctx, key, data); err != nil {
			return fmt.Errorf("write column %s: %w", key, err)
		}
	}
	return nil
}

// readFrame loads every listed column eagerly.
func readFrame(ctx context.Context, store core.Store, base string, docs []columnDoc, rows int) (*frame.Frame, error) {
	f := frame.New()
	for _, doc := range docs {
		data, err := store.Get(ctx, joinKey(base, colsGroup, doc.Name))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", doc.Name, err)
		}
		if err := decodeColumn(f, doc, rows, data); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// lazyFrame is a store-backed point payload: row count and column names
// answer from metadata, sample access fetches the columns.
type lazyFrame struct {
	store core.Store
	base  string
	docs  []columnDoc
	rows  int
}

var _ frame.Source = (*lazyFrame)(nil)

func (l *lazyFrame) Len() int { return l.rows }

func (l *lazyFrame) Columns() []string {
	out := make([]string, len(l.docs))
	for i, d := range l.docs {
		out[i] = d.Name
	}
	return out
}

func (l *lazyFrame) Materialize(ctx context.Context) (*frame.Frame, error) {
	return readFrame(ctx, l.store, l.base, l.docs, l.rows)
}

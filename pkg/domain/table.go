package domain

import (
	"spatialcore/pkg/frame"
)

// AnnotationTarget links a table's rows to spatial elements. Region
// lists the annotated element names, RegionKey names the column whose
// values say which region each row belongs to, and InstanceKey names
// the column holding the per-row instance identifier within that
// region.
type AnnotationTarget struct {
	Region      []string `json:"region"`
	RegionKey   string   `json:"region_key"`
	InstanceKey string   `json:"instance_key"`
}

func (a AnnotationTarget) clone() AnnotationTarget {
	return AnnotationTarget{
		Region:      copyStrings(a.Region),
		RegionKey:   a.RegionKey,
		InstanceKey: a.InstanceKey,
	}
}

// Table is a relational element: rows of observations, optionally
// annotating spatial elements through an AnnotationTarget. Tables have
// no axes and no coordinate transforms.
type Table struct {
	rows       frame.Source
	annotation *AnnotationTarget
}

// NewTable wraps a columnar payload as a table with no annotation
// target. Use SetAnnotationTarget to link it to spatial elements.
func NewTable(rows frame.Source) (*Table, error) {
	if rows == nil {
		return nil, ErrValidation{Op: "new_table", Reason: "nil row payload"}
	}
	return &Table{rows: rows}, nil
}

func (t *Table) Kind() Kind { return KindTables }

// Rows returns the table's live payload.
func (t *Table) Rows() frame.Source { return t.rows }

// Annotation returns a copy of the table's annotation target, or nil
// when the table annotates nothing.
func (t *Table) Annotation() *AnnotationTarget {
	if t.annotation == nil {
		return nil
	}
	a := t.annotation.clone()
	return &a
}

// setAnnotation installs the target without validation. External
// callers go through SetAnnotationTarget, which validates first.
func (t *Table) setAnnotation(a *AnnotationTarget) {
	if a == nil {
		t.annotation = nil
		return
	}
	c := a.clone()
	t.annotation = &c
}

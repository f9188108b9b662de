package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// SetAnnotationTarget validates and installs the table's link to
// spatial elements. The region key column must exist, hold strings,
// and reference only names listed in region; the instance key column
// must exist. Validation failures leave the table unchanged.
func (t *Table) SetAnnotationTarget(ctx context.Context, region []string, regionKey, instanceKey string) error {
	const op = "set_annotation_target"
	if len(region) == 0 {
		return ErrValidation{Op: op, Reason: "empty region list"}
	}
	seen := make(map[string]bool, len(region))
	for _, r := range region {
		if r == "" {
			return ErrValidation{Op: op, Reason: "empty region name"}
		}
		if seen[r] {
			return ErrValidation{Op: op, Reason: fmt.Sprintf("region %q listed twice", r)}
		}
		seen[r] = true
	}
	if regionKey == "" || instanceKey == "" {
		return ErrValidation{Op: op, Reason: "region key and instance key are required"}
	}

	f, err := t.rows.Materialize(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !f.HasColumn(regionKey) {
		return ErrValidation{Op: op, Reason: fmt.Sprintf("region key column %q missing", regionKey)}
	}
	if !f.HasColumn(instanceKey) {
		return ErrValidation{Op: op, Reason: fmt.Sprintf("instance key column %q missing", instanceKey)}
	}
	values, err := f.DistinctStrings(regionKey)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	var stray []string
	for _, v := range values {
		if !seen[v] {
			stray = append(stray, v)
		}
	}
	if len(stray) > 0 {
		return ErrValidation{Op: op, Reason: fmt.Sprintf("column %q references regions outside the target: %s", regionKey, strings.Join(stray, ", "))}
	}

	t.setAnnotation(&AnnotationTarget{Region: region, RegionKey: regionKey, InstanceKey: instanceKey})
	return nil
}

// ChangeAnnotationTarget redirects an already annotating table to a
// new region set. Empty key arguments keep the current columns. The
// same validation as SetAnnotationTarget applies.
func (t *Table) ChangeAnnotationTarget(ctx context.Context, region []string, regionKey, instanceKey string) error {
	if t.annotation == nil {
		return ErrValidation{Op: "change_annotation_target", Reason: "table has no annotation target"}
	}
	if regionKey == "" {
		regionKey = t.annotation.RegionKey
	}
	if instanceKey == "" {
		instanceKey = t.annotation.InstanceKey
	}
	return t.SetAnnotationTarget(ctx, region, regionKey, instanceKey)
}

// AnnotatedRegions returns the element names the table annotates.
func (t *Table) AnnotatedRegions() ([]string, error) {
	if t.annotation == nil {
		return nil, ErrValidation{Op: "get_annotated_regions", Reason: "table has no annotation target"}
	}
	return copyStrings(t.annotation.Region), nil
}

// FilterByElements returns a new table keeping only rows whose region
// key value names one of the given elements. The annotation target's
// region list shrinks to the retained names; when none survive, the
// result carries no annotation target at all. Tables without an
// annotation target are returned as an unchanged copy.
func (t *Table) FilterByElements(ctx context.Context, names []string) (*Table, error) {
	if t.annotation == nil {
		f, err := t.rows.Materialize(ctx)
		if err != nil {
			return nil, err
		}
		return &Table{rows: f.Clone()}, nil
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	f, err := t.rows.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	regions, err := f.Strings(t.annotation.RegionKey)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(regions))
	for i, r := range regions {
		mask[i] = keep[r]
	}
	filtered, err := f.Mask(mask)
	if err != nil {
		return nil, err
	}
	var region []string
	for _, r := range t.annotation.Region {
		if keep[r] {
			region = append(region, r)
		}
	}
	out := &Table{rows: filtered}
	// When no annotated element survives the filter the result is a
	// plain table; an annotation target with an empty region list would
	// not round-trip through a store.
	if len(region) > 0 {
		out.setAnnotation(&AnnotationTarget{
			Region:      region,
			RegionKey:   t.annotation.RegionKey,
			InstanceKey: t.annotation.InstanceKey,
		})
	}
	return out, nil
}

// annotatableNames collects the names a table may annotate: labels
// and shapes elements.
func (c *Container) annotatableNames() map[string]bool {
	out := make(map[string]bool)
	for _, n := range c.labels.names() {
		out[n] = true
	}
	for _, n := range c.shapes.names() {
		out[n] = true
	}
	return out
}

// ValidateTable checks a table against the container. Structural
// problems, a region key or instance key column missing from the
// rows, fail with an error. An annotated element name absent from the
// container is reported as a warning: the table remains usable, the
// dangling rows simply match nothing.
func (c *Container) ValidateTable(t *Table) (Result, error) {
	if t == nil {
		return Result{}, ErrValidation{Op: "validate_table", Reason: "nil table"}
	}
	if t.annotation == nil {
		return Result{Violations: []Violation{{
			Check:    "annotation_target",
			Severity: SeverityLog,
			Message:  "table has no annotation target",
		}}}, nil
	}
	if len(t.annotation.Region) == 0 {
		return Result{}, ErrValidation{Op: "validate_table", Reason: "annotation target has an empty region list"}
	}
	cols := make(map[string]bool)
	for _, name := range t.rows.Columns() {
		cols[name] = true
	}
	if !cols[t.annotation.RegionKey] {
		return Result{}, ErrValidation{Op: "validate_table", Reason: fmt.Sprintf("region key column %q missing", t.annotation.RegionKey)}
	}
	if !cols[t.annotation.InstanceKey] {
		return Result{}, ErrValidation{Op: "validate_table", Reason: fmt.Sprintf("instance key column %q missing", t.annotation.InstanceKey)}
	}

	var res Result
	present := c.annotatableNames()
	missing := make([]string, 0)
	for _, r := range t.annotation.Region {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	sort.Strings(missing)
	for _, r := range missing {
		res.Violations = append(res.Violations, Violation{
			Check:    "annotation_reference",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("annotated element %q is not present in the container", r),
		})
	}
	return res, nil
}

// ValidateIntegrity runs ValidateTable over every table and collects
// the findings. Structural errors are downgraded to warnings here so
// a container loaded from a damaged store can still be inspected.
func (c *Container) ValidateIntegrity() Result {
	var out Result
	for _, name := range c.tables.names() {
		t, _ := c.tables.get(name)
		res, err := c.ValidateTable(t)
		path := "tables/" + name
		if err != nil {
			out.Violations = append(out.Violations, Violation{
				Check:    "table_schema",
				Severity: SeverityWarn,
				Path:     path,
				Message:  err.Error(),
			})
			continue
		}
		for _, v := range res.Violations {
			if v.Path == "" {
				v.Path = path
			}
			out.Violations = append(out.Violations, v)
		}
	}
	return out
}

package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"spatialcore/internal/storage/core"
	"spatialcore/pkg/domain"
	"spatialcore/pkg/raster"
)

// OnBadKeys selects how a read treats a damaged element.
type OnBadKeys string

const (
	// OnBadKeysError aborts the read on the first element failure.
	OnBadKeysError OnBadKeys = "error"
	// OnBadKeysWarn records the failure as a warning, excludes the
	// element, and keeps reading.
	OnBadKeysWarn OnBadKeys = "warn"
)

// ReadOptions tune a container read.
type ReadOptions struct {
	// Selection restricts the read to the listed kinds. Empty means all.
	Selection []domain.Kind
	// OnBadKeys defaults to OnBadKeysError.
	OnBadKeys OnBadKeys
}

// ReadError wraps the underlying storage or codec failure for one
// element, naming its path in the tree.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// ElementState tracks one element through a read.
type ElementState string

const (
	StatePending ElementState = "pending"
	StateReading ElementState = "reading"
	StateLoaded  ElementState = "loaded"
	StateFailed  ElementState = "failed"
)

// ElementStatus is the final state of one element after a read.
type ElementStatus struct {
	Path  string       `json:"path"`
	State ElementState `json:"state"`
	Error string       `json:"error,omitempty"`
}

// ReadReport summarizes a read: per-element outcomes plus the non-fatal
// warnings collected along the way (damaged elements in warn mode,
// tables annotating absent elements).
type ReadReport struct {
	Elements []ElementStatus `json:"elements"`
	Result   domain.Result   `json:"result"`
}

// Failed returns the statuses of elements that could not be loaded.
func (r *ReadReport) Failed() []ElementStatus {
	var out []ElementStatus
	for _, s := range r.Elements {
		if s.State == StateFailed {
			out = append(out, s)
		}
	}
	return out
}

// Read reconstructs a container from a persisted tree. Element failures
// are isolated per OnBadKeys: error mode aborts with a *ReadError, warn
// mode drops the element and records a warning. After a warn-mode pass
// the relational integrity check runs over the loaded tables so a table
// annotating a failed element surfaces as one more warning, never as a
// read failure.
func Read(ctx context.Context, store core.Store, prefix string, opts ReadOptions) (*domain.Container, *ReadReport, error) {
	mode := opts.OnBadKeys
	if mode == "" {
		mode = OnBadKeysError
	}
	if mode != OnBadKeysError && mode != OnBadKeysWarn {
		return nil, nil, domain.ErrValidation{Op: "read", Reason: fmt.Sprintf("unknown on-bad-keys mode %q", mode)}
	}
	kinds, err := selectedKinds(opts.Selection)
	if err != nil {
		return nil, nil, err
	}

	data, err := store.Get(ctx, rootMetaKey(prefix))
	if err != nil {
		return nil, nil, fmt.Errorf("read %q: %w", prefix, err)
	}
	var root rootDoc
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("read %q: %w", prefix, err)
	}
	if root.Marker != containerMarker {
		return nil, nil, domain.ErrValidation{Op: "read", Reason: fmt.Sprintf("%q is not a container tree", prefix)}
	}

	c := domain.NewContainer()
	report := &ReadReport{}
	for _, kind := range kinds {
		groupPrefix := joinKey(prefix, string(kind))
		infos, err := store.List(ctx, groupPrefix)
		if err != nil {
			return nil, report, err
		}
		for _, name := range elementNames(infos, groupPrefix) {
			ref := domain.ElementRef{Kind: kind, Name: name}
			status := ElementStatus{Path: ref.Path(), State: StateReading}
			if err := loadEntry(ctx, store, prefix, ref, c); err != nil {
				status.State = StateFailed
				status.Error = err.Error()
				report.Elements = append(report.Elements, status)
				if mode == OnBadKeysError {
					return nil, report, &ReadError{Path: ref.Path(), Err: err}
				}
				report.Result.Violations = append(report.Result.Violations, domain.Violation{
					Check:    "read_element",
					Severity: domain.SeverityWarn,
					Path:     ref.Path(),
					Message:  fmt.Sprintf("element skipped: %v", err),
				})
				continue
			}
			status.State = StateLoaded
			report.Elements = append(report.Elements, status)
		}
	}

	report.Result = report.Result.Merge(c.ValidateIntegrity())
	c.SetPath(boundPath(store, prefix))
	return c, report, nil
}

// selectedKinds normalizes a selection into canonical order, spatial
// kinds first so tables validate against already-loaded elements.
func selectedKinds(selection []domain.Kind) ([]domain.Kind, error) {
	all := append(domain.SpatialKinds(), domain.KindTables)
	if len(selection) == 0 {
		return all, nil
	}
	wanted := make(map[domain.Kind]bool, len(selection))
	for _, k := range selection {
		switch k {
		case domain.KindImages, domain.KindLabels, domain.KindPoints, domain.KindShapes, domain.KindTables:
			wanted[k] = true
		default:
			return nil, domain.ErrValidation{Op: "read", Reason: fmt.Sprintf("unknown kind %q in selection", k)}
		}
	}
	var out []domain.Kind
	for _, k := range all {
		if wanted[k] {
			out = append(out, k)
		}
	}
	return out, nil
}

// loadEntry reads one element or table into the container. Every
// failure inside here is subject to per-element isolation.
func loadEntry(ctx context.Context, store core.Store, prefix string, ref domain.ElementRef, c *domain.Container) error {
	base := elementKey(prefix, ref)
	data, err := store.Get(ctx, joinKey(base, metaKey))
	if err != nil {
		return err
	}
	meta, err := parseElementMeta(ref.Kind, data)
	if err != nil {
		return err
	}
	if ref.Kind == domain.KindTables {
		return loadTable(ctx, store, base, ref.Name, meta, c)
	}
	return loadSpatial(ctx, store, base, ref, meta, c)
}

func loadSpatial(ctx context.Context, store core.Store, base string, ref domain.ElementRef, meta elementMeta, c *domain.Container) error {
	var el domain.Element
	switch ref.Kind {
	case domain.KindImages, domain.KindLabels:
		dtype, err := raster.ParseDType(meta.DType)
		if err != nil {
			return err
		}
		if err := statAll(ctx, store, rasterKeys(base, meta)); err != nil {
			return err
		}
		arr, err := newLazyArray(store, base, dtype, meta.Shape, meta.Chunks)
		if err != nil {
			return err
		}
		if ref.Kind == domain.KindImages {
			el, err = domain.NewImage(arr, meta.Axes)
		} else {
			el, err = domain.NewLabels(arr, meta.Axes)
		}
		if err != nil {
			return err
		}
	case domain.KindPoints:
		keys := make([]string, len(meta.Columns))
		for i, doc := range meta.Columns {
			keys[i] = joinKey(base, colsGroup, doc.Name)
		}
		if err := statAll(ctx, store, keys); err != nil {
			return err
		}
		src := &lazyFrame{store: store, base: base, docs: meta.Columns, rows: meta.Rows}
		pts, err := domain.NewPoints(src, meta.Axes)
		if err != nil {
			return err
		}
		el = pts
	case domain.KindShapes:
		doc, err := store.Get(ctx, joinKey(base, geomsKey))
		if err != nil {
			return err
		}
		set, err := decodeGeoms(doc)
		if err != nil {
			return err
		}
		sh, err := domain.NewShapes(set, meta.Axes)
		if err != nil {
			return err
		}
		el = sh
	default:
		return fmt.Errorf("unsupported kind %q", ref.Kind)
	}

	if err := decodeTransforms(*meta.CoordinateTransformations, el.Transforms()); err != nil {
		return err
	}

	switch e := el.(type) {
	case *domain.Image:
		return c.SetImage(ref.Name, e)
	case *domain.Labels:
		return c.SetLabels(ref.Name, e)
	case *domain.Points:
		return c.SetPoints(ref.Name, e)
	case *domain.Shapes:
		return c.SetShapes(ref.Name, e)
	}
	return fmt.Errorf("unsupported element type %T", el)
}

func loadTable(ctx context.Context, store core.Store, base, name string, meta elementMeta, c *domain.Container) error {
	f, err := readFrame(ctx, store, base, meta.Columns, meta.Rows)
	if err != nil {
		return err
	}
	tbl, err := domain.NewTable(f)
	if err != nil {
		return err
	}
	if a := meta.Annotation; a != nil {
		if err := tbl.SetAnnotationTarget(ctx, a.Region, a.RegionKey, a.InstanceKey); err != nil {
			return err
		}
	}
	_, err = c.SetTable(name, tbl)
	return err
}

// rasterKeys lists every chunk key a raster element must provide.
func rasterKeys(base string, meta elementMeta) []string {
	segs := chunkKeys(meta.Shape, meta.Chunks)
	keys := make([]string, len(segs))
	for i, s := range segs {
		keys[i] = joinKey(base, chunksGroup, s)
	}
	return keys
}

// statAll verifies payload keys exist before the element is accepted,
// so a missing or renamed chunk fails the element at read time even
// though decoding stays lazy.
func statAll(ctx context.Context, store core.Store, keys []string) error {
	for _, key := range keys {
		if _, err := store.Stat(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

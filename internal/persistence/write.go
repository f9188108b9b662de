package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"spatialcore/internal/storage/core"
	"spatialcore/pkg/domain"
)

// WriteOptions tune a container write.
type WriteOptions struct {
	// Overwrite permits replacing an existing container tree at the
	// target prefix. Non-container keys at the prefix are never
	// overwritten, Overwrite or not.
	Overwrite bool
}

// Write persists a container under prefix. On success the container is
// bound to the target path; on any mid-write failure the binding rolls
// back to unbound and the error propagates, leaving no visible
// half-backed state on the container.
func Write(ctx context.Context, store core.Store, prefix string, c *domain.Container, opts WriteOptions) error {
	path := boundPath(store, prefix)
	if c.Path() == path {
		return domain.ErrValidation{Op: "write", Reason: fmt.Sprintf("container is already backed by %q; in-place overwrite is unsupported", path)}
	}
	if err := prepareTarget(ctx, store, prefix, opts); err != nil {
		return err
	}

	c.SetPath(path)
	if err := writeTree(ctx, store, prefix, c); err != nil {
		c.SetPath("")
		return err
	}
	return nil
}

// prepareTarget enforces the target-state contract: an occupied prefix
// needs Overwrite and must already hold a recognizable container.
func prepareTarget(ctx context.Context, store core.Store, prefix string, opts WriteOptions) error {
	existing, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}
	if !opts.Overwrite {
		return domain.ErrValidation{Op: "write", Reason: fmt.Sprintf("target %q is not empty", prefix)}
	}
	data, err := store.Get(ctx, rootMetaKey(prefix))
	if err != nil {
		return domain.ErrValidation{Op: "write", Reason: fmt.Sprintf("target %q holds data that is not a container; refusing to overwrite", prefix)}
	}
	var root rootDoc
	if err := json.Unmarshal(data, &root); err != nil || root.Marker != containerMarker {
		return domain.ErrValidation{Op: "write", Reason: fmt.Sprintf("target %q holds data that is not a container; refusing to overwrite", prefix)}
	}
	for _, info := range existing {
		if _, err := store.Delete(ctx, info.Key); err != nil {
			return err
		}
	}
	return nil
}

func writeTree(ctx context.Context, store core.Store, prefix string, c *domain.Container) error {
	root := rootDoc{Marker: containerMarker, FormatVersion: formatVersion}
	rootRaw, err := json.Marshal(root)
	if err != nil {
		return err
	}
	if _, err := store.Put(ctx, rootMetaKey(prefix), rootRaw); err != nil {
		return err
	}

	metas := make(map[string]json.RawMessage)
	for _, ref := range c.Refs() {
		el, err := c.Element(ref)
		if err != nil {
			return err
		}
		raw, err := writeElement(ctx, store, prefix, ref, el)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.Path(), err)
		}
		metas[ref.Path()] = raw
	}
	for _, name := range c.Names(domain.KindTables) {
		tbl, err := c.Table(name)
		if err != nil {
			return err
		}
		ref := domain.ElementRef{Kind: domain.KindTables, Name: name}
		raw, err := writeTable(ctx, store, prefix, ref, tbl)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.Path(), err)
		}
		metas[ref.Path()] = raw
	}

	consolidated, err := buildConsolidated(root, metas)
	if err != nil {
		return err
	}
	_, err = store.Put(ctx, joinKey(prefix, consolidatedKey), consolidated)
	return err
}

// writeElement persists one spatial element and returns its metadata
// document for the consolidated index.
func writeElement(ctx context.Context, store core.Store, prefix string, ref domain.ElementRef, el domain.Element) (json.RawMessage, error) {
	base := elementKey(prefix, ref)
	entries, err := encodeTransforms(el.Transforms())
	if err != nil {
		return nil, err
	}
	meta := elementMeta{
		Kind:                      ref.Kind,
		Axes:                      el.Axes(),
		CoordinateTransformations: &entries,
	}

	switch e := el.(type) {
	case *domain.Image:
		arr, err := e.Data().Materialize(ctx)
		if err != nil {
			return nil, err
		}
		meta.DType = string(arr.DType())
		meta.Shape = arr.Shape()
		meta.Chunks = chunkShapeFor(meta.Shape)
		if err := writeRasterChunks(ctx, store, base, arr, meta.Chunks); err != nil {
			return nil, err
		}
	case *domain.Labels:
		arr, err := e.Data().Materialize(ctx)
		if err != nil {
			return nil, err
		}
		meta.DType = string(arr.DType())
		meta.Shape = arr.Shape()
		meta.Chunks = chunkShapeFor(meta.Shape)
		if err := writeRasterChunks(ctx, store, base, arr, meta.Chunks); err != nil {
			return nil, err
		}
	case *domain.Points:
		f, err := e.Data().Materialize(ctx)
		if err != nil {
			return nil, err
		}
		meta.Columns = columnDocs(f)
		meta.Rows = f.Len()
		if err := writeFrameColumns(ctx, store, base, f); err != nil {
			return nil, err
		}
	case *domain.Shapes:
		doc, err := encodeGeoms(e.Data())
		if err != nil {
			return nil, err
		}
		meta.Geometries = e.Data().Len()
		if _, err := store.Put(ctx, joinKey(base, geomsKey), doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported element type %T", el)
	}

	return putElementMeta(ctx, store, base, meta)
}

func writeTable(ctx context.Context, store core.Store, prefix string, ref domain.ElementRef, tbl *domain.Table) (json.RawMessage, error) {
	base := elementKey(prefix, ref)
	f, err := tbl.Rows().Materialize(ctx)
	if err != nil {
		return nil, err
	}
	meta := elementMeta{
		Kind:    domain.KindTables,
		Columns: columnDocs(f),
		Rows:    f.Len(),
	}
	if a := tbl.Annotation(); a != nil {
		meta.Annotation = &annotationDoc{Region: a.Region, RegionKey: a.RegionKey, InstanceKey: a.InstanceKey}
	}
	if err := writeFrameColumns(ctx, store, base, f); err != nil {
		return nil, err
	}
	return putElementMeta(ctx, store, base, meta)
}

func putElementMeta(ctx context.Context, store core.Store, base string, meta elementMeta) (json.RawMessage, error) {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if _, err := store.Put(ctx, joinKey(base, metaKey), raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// WriteTransformations rewrites one element's transformation records on
// an already-written store without touching payload keys. The container
// must be bound to the supplied store.
func WriteTransformations(ctx context.Context, store core.Store, c *domain.Container, ref domain.ElementRef) error {
	prefix, ok := splitBoundPath(store, c.Path())
	if !ok {
		return domain.ErrValidation{Op: "write_transformations", Reason: fmt.Sprintf("container binding %q does not match this store", c.Path())}
	}
	el, err := c.Element(ref)
	if err != nil {
		return err
	}
	base := elementKey(prefix, ref)
	data, err := store.Get(ctx, joinKey(base, metaKey))
	if err != nil {
		return fmt.Errorf("%s: %w", ref.Path(), err)
	}
	meta, err := parseElementMeta(ref.Kind, data)
	if err != nil {
		return fmt.Errorf("%s: %w", ref.Path(), err)
	}
	entries, err := encodeTransforms(el.Transforms())
	if err != nil {
		return err
	}
	meta.CoordinateTransformations = &entries
	raw, err := putElementMeta(ctx, store, base, meta)
	if err != nil {
		return err
	}
	return patchConsolidated(ctx, store, prefix, ref.Path(), raw)
}

// patchConsolidated replaces one element entry in the consolidated
// metadata document.
func patchConsolidated(ctx context.Context, store core.Store, prefix, path string, raw json.RawMessage) error {
	key := joinKey(prefix, consolidatedKey)
	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	var doc consolidatedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Elements == nil {
		doc.Elements = make(map[string]json.RawMessage)
	}
	doc.Elements[path] = raw
	updated, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = store.Put(ctx, key, updated)
	return err
}

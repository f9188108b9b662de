package persistence

import (
	"encoding/json"
	"fmt"
	"sort"

	"spatialcore/pkg/domain"
	"spatialcore/pkg/frame"
	"spatialcore/pkg/transform"
)

// rootDoc is the marker document at <prefix>/meta.json. Its presence
// (with the right marker) is what distinguishes a container tree from
// arbitrary keys sharing the prefix.
type rootDoc struct {
	Marker        string `json:"spatialcore"`
	FormatVersion int    `json:"formatVersion"`
}

// ctEntry records one coordinate transform, tagged with the coordinate
// system it maps into.
type ctEntry struct {
	Output         string          `json:"output"`
	Transformation json.RawMessage `json:"transformation"`
}

// columnDoc describes one persisted frame column.
type columnDoc struct {
	Name string     `json:"name"`
	Type frame.Type `json:"type"`
}

// annotationDoc is the persisted annotation-target block on tables.
type annotationDoc struct {
	Region      []string `json:"region"`
	RegionKey   string   `json:"region_key"`
	InstanceKey string   `json:"instance_key"`
}

// elementMeta is the per-element metadata document. Field presence
// depends on the element kind: rasters carry dtype/shape/chunks,
// frame-backed elements carry columns/rows, shapes carry geometries.
// Spatial elements require the coordinateTransformations key even when
// the list is empty; a document without it is schema-invalid.
type elementMeta struct {
	Kind                      domain.Kind    `json:"kind"`
	Axes                      []string       `json:"axes,omitempty"`
	DType                     string         `json:"dtype,omitempty"`
	Shape                     []int          `json:"shape,omitempty"`
	Chunks                    []int          `json:"chunks,omitempty"`
	Columns                   []columnDoc    `json:"columns,omitempty"`
	Rows                      int            `json:"rows"`
	Geometries                int            `json:"geometries"`
	CoordinateTransformations *[]ctEntry     `json:"coordinateTransformations,omitempty"`
	Annotation                *annotationDoc `json:"annotation,omitempty"`
}

// encodeTransforms renders an element's transform map as tagged
// records with a deterministic (sorted) system order.
func encodeTransforms(tm *domain.TransformMap) ([]ctEntry, error) {
	systems := tm.Systems()
	entries := make([]ctEntry, 0, len(systems))
	for _, system := range systems {
		t, _ := tm.Get(system)
		raw, err := transform.Marshal(t)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ctEntry{Output: system, Transformation: raw})
	}
	return entries, nil
}

// decodeTransforms rebuilds a transform map from tagged records.
func decodeTransforms(entries []ctEntry, tm *domain.TransformMap) error {
	for i, e := range entries {
		if e.Output == "" {
			return fmt.Errorf("transformation %d has no output system", i)
		}
		t, err := transform.Unmarshal(e.Transformation)
		if err != nil {
			return fmt.Errorf("transformation %d (%q): %w", i, e.Output, err)
		}
		if err := tm.Set(e.Output, t); err != nil {
			return err
		}
	}
	return nil
}

// parseElementMeta decodes and structurally validates one metadata
// document. Corruption funnels into the per-element isolation boundary:
// syntax errors, missing required fields, and unusable values all
// surface here as plain errors.
func parseElementMeta(kind domain.Kind, data []byte) (elementMeta, error) {
	var meta elementMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return elementMeta{}, err
	}
	if meta.Kind != kind {
		return elementMeta{}, fmt.Errorf("metadata kind %q does not match group %q", meta.Kind, kind)
	}
	if kind != domain.KindTables {
		if meta.CoordinateTransformations == nil {
			return elementMeta{}, fmt.Errorf("metadata is missing the coordinateTransformations key")
		}
		if len(meta.Axes) == 0 {
			return elementMeta{}, fmt.Errorf("metadata is missing axes")
		}
	}
	switch kind {
	case domain.KindImages, domain.KindLabels:
		if meta.DType == "" || len(meta.Shape) == 0 || len(meta.Chunks) == 0 {
			return elementMeta{}, fmt.Errorf("raster metadata needs dtype, shape and chunks")
		}
		if len(meta.Shape) != len(meta.Chunks) {
			return elementMeta{}, fmt.Errorf("chunk rank %d does not match shape rank %d", len(meta.Chunks), len(meta.Shape))
		}
	case domain.KindPoints, domain.KindTables:
		if len(meta.Columns) == 0 {
			return elementMeta{}, fmt.Errorf("frame metadata lists no columns")
		}
	}
	return meta, nil
}

// consolidatedDoc aggregates every metadata document in the tree so a
// reader can inspect the whole layout from one key.
type consolidatedDoc struct {
	Root     rootDoc                    `json:"root"`
	Elements map[string]json.RawMessage `json:"elements"`
}

func buildConsolidated(root rootDoc, metas map[string]json.RawMessage) ([]byte, error) {
	doc := consolidatedDoc{Root: root, Elements: make(map[string]json.RawMessage, len(metas))}
	paths := make([]string, 0, len(metas))
	for p := range metas {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		doc.Elements[p] = metas[p]
	}
	return json.MarshalIndent(doc, "", "  ")
}

package persistence

import (
	"encoding/json"
	"fmt"

	"spatialcore/pkg/geom"
)

// geomRecord is the persisted form of one geometry. The "type" tag
// selects the variant: circles carry center+radius, polygons a ring.
type geomRecord struct {
	Type   geom.Type   `json:"type"`
	ID     int64       `json:"id"`
	Center []float64   `json:"center,omitempty"`
	Radius float64     `json:"radius,omitempty"`
	Ring   [][]float64 `json:"ring,omitempty"`
}

type geomsDoc struct {
	Geometries []geomRecord `json:"geometries"`
}

// encodeGeoms renders a geometry set as the geoms.json document.
func encodeGeoms(set *geom.Set) ([]byte, error) {
	doc := geomsDoc{Geometries: make([]geomRecord, 0, set.Len())}
	for i := 0; i < set.Len(); i++ {
		switch g := set.Geometry(i).(type) {
		case geom.Circle:
			doc.Geometries = append(doc.Geometries, geomRecord{
				Type: geom.TypeCircle, ID: set.ID(i), Center: g.Center(), Radius: g.Radius(),
			})
		case geom.Polygon:
			doc.Geometries = append(doc.Geometries, geomRecord{
				Type: geom.TypePolygon, ID: set.ID(i), Ring: g.Ring(),
			})
		default:
			return nil, fmt.Errorf("cannot encode geometry %d of type %T", i, g)
		}
	}
	return json.Marshal(doc)
}

// decodeGeoms rebuilds a geometry set from the geoms.json document.
func decodeGeoms(data []byte) (*geom.Set, error) {
	var doc geomsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	set := geom.NewSet()
	for i, rec := range doc.Geometries {
		var g geom.Geometry
		var err error
		switch rec.Type {
		case geom.TypeCircle:
			g, err = geom.NewCircle(rec.Center, rec.Radius)
		case geom.TypePolygon:
			g, err = geom.NewPolygon(rec.Ring)
		default:
			err = fmt.Errorf("unknown geometry type %q", rec.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("geometry %d: %w", i, err)
		}
		if err := set.Add(g, rec.ID); err != nil {
			return nil, fmt.Errorf("geometry %d: %w", i, err)
		}
	}
	return set, nil
}

package transform

import (
	"encoding/json"
	"fmt"
)

// record is the persisted JSON shape for a single transform. The "type" tag
// selects the variant; remaining fields are variant-specific.
type record struct {
	Type            Kind              `json:"type"`
	Scale           []float64         `json:"scale,omitempty"`
	Translation     []float64         `json:"translation,omitempty"`
	Axes            []string          `json:"axes,omitempty"`
	Matrix          [][]float64       `json:"matrix,omitempty"`
	InputAxes       []string          `json:"inputAxes,omitempty"`
	OutputAxes      []string          `json:"outputAxes,omitempty"`
	Transformations []json.RawMessage `json:"transformations,omitempty"`
}

// Marshal encodes a transform as its JSON record.
func Marshal(t Transform) ([]byte, error) {
	rec, err := toRecord(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

func toRecord(t Transform) (record, error) {
	switch v := t.(type) {
	case *Identity:
		return record{Type: KindIdentity}, nil
	case *Scale:
		return record{Type: KindScale, Scale: v.Factors(), Axes: v.Axes()}, nil
	case *Translation:
		return record{Type: KindTranslation, Translation: v.Offsets(), Axes: v.Axes()}, nil
	case *Affine:
		return record{Type: KindAffine, Matrix: v.Matrix(), InputAxes: v.InputAxes(), OutputAxes: v.OutputAxes()}, nil
	case *Sequence:
		members := make([]json.RawMessage, 0, len(v.transforms))
		for _, m := range v.transforms {
			raw, err := Marshal(m)
			if err != nil {
				return record{}, err
			}
			members = append(members, raw)
		}
		return record{Type: KindSequence, Transformations: members}, nil
	default:
		return record{}, fmt.Errorf("transform: cannot encode kind %T", t)
	}
}

// Unmarshal decodes a JSON record into the transform it describes.
func Unmarshal(data []byte) (Transform, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Type {
	case KindIdentity:
		return &Identity{}, nil
	case KindScale:
		return NewScale(rec.Scale, rec.Axes)
	case KindTranslation:
		return NewTranslation(rec.Translation, rec.Axes)
	case KindAffine:
		return NewAffine(rec.Matrix, rec.InputAxes, rec.OutputAxes)
	case KindSequence:
		members := make([]Transform, 0, len(rec.Transformations))
		for i, raw := range rec.Transformations {
			m, err := Unmarshal(raw)
			if err != nil {
				return nil, fmt.Errorf("transform: sequence member %d: %w", i, err)
			}
			members = append(members, m)
		}
		return NewSequence(members...)
	case "":
		return nil, fmt.Errorf("transform: record missing type tag")
	default:
		return nil, fmt.Errorf("transform: unknown record type %q", rec.Type)
	}
}

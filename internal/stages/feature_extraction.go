package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
)

// FeatureExtractionStage extracts named features out of a record's raw
// JSON body, applying each feature's optional transform, grounded on
// flywheel-core/src/feature.rs's FeatureTransform::apply semantics
// (Normalize clamps to [0,1], Bucketize counts boundaries <= value,
// OneHot yields a float vector).
type FeatureExtractionStage struct {
	id     string
	config dsl.FeatureExtractionConfig
}

// NewFeatureExtractionStage builds a stage for one feature-extraction DSL
// block.
func NewFeatureExtractionStage(id string, config dsl.FeatureExtractionConfig) *FeatureExtractionStage {
	return &FeatureExtractionStage{id: id, config: config}
}

func (s *FeatureExtractionStage) ID() string { return s.id }

// Process reads rec.RawJSON as a JSON object, extracts each configured
// feature by dotted field path, transforms it if configured, and writes
// the result as rec.FeaturesJSON.
func (s *FeatureExtractionStage) Process(ctx context.Context, rec *Record) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(rec.RawJSON, &raw); err != nil {
		return domain.NewError("stages.FeatureExtraction", "config", fmt.Errorf("%w: %v", domain.ErrFeatureNotFound, err)).WithID(s.id)
	}

	features := make(map[string]interface{}, len(s.config.Features))
	if s.config.IncludeRaw {
		for k, v := range raw {
			features[k] = v
		}
	}

	for _, def := range s.config.Features {
		val, ok := lookupField(raw, def.SourceField)
		if !ok {
			return domain.NewError("stages.FeatureExtraction", "not_found",
				fmt.Errorf("%w: field %q", domain.ErrFeatureNotFound, def.SourceField)).WithID(s.id)
		}
		if def.Transform != nil {
			transformed, err := applyTransform(*def.Transform, val)
			if err != nil {
				return domain.NewError("stages.FeatureExtraction", "config",
					fmt.Errorf("%w: feature %q: %v", domain.ErrConfig, def.Name, err)).WithID(s.id)
			}
			val = transformed
		}
		features[def.Name] = val
	}

	out, err := json.Marshal(features)
	if err != nil {
		return domain.NewError("stages.FeatureExtraction", "serialization", fmt.Errorf("%w: %v", domain.ErrSerialization, err)).WithID(s.id)
	}
	rec.FeaturesJSON = out
	return nil
}

// lookupField walks a dotted path ("a.b.c") through a decoded JSON object.
func lookupField(raw map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = raw
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func applyTransform(t dsl.FeatureTransform, val interface{}) (interface{}, error) {
	switch t.Kind {
	case "normalize":
		f, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		if t.Max == t.Min {
			return 0.0, nil
		}
		n := (f - t.Min) / (t.Max - t.Min)
		return clamp(n, 0, 1), nil
	case "log1p":
		f, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		return math.Log1p(f), nil
	case "clip":
		f, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		return clamp(f, t.Min, t.Max), nil
	case "bucketize":
		f, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		bucket := 0
		for _, b := range t.Boundaries {
			if f >= b {
				bucket++
			}
		}
		return bucket, nil
	case "one_hot":
		s := fmt.Sprintf("%v", val)
		vec := make([]float64, len(t.Categories))
		for i, c := range t.Categories {
			if c == s {
				vec[i] = 1
			}
		}
		return vec, nil
	case "standard_scale":
		f, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		return (f - t.Mean) / t.Std, nil
	case "min_max_scale":
		f, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		if t.Max == t.Min {
			return 0.0, nil
		}
		return (f - t.Min) / (t.Max - t.Min), nil
	default:
		return nil, fmt.Errorf("unknown transform kind %q", t.Kind)
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func toFloat(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", val)
	}
}

var _ Stage = (*FeatureExtractionStage)(nil)

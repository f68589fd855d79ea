package stages_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/stages"
)

func TestFeatureExtractionExtractsAndTransforms(t *testing.T) {
	cfg := dsl.FeatureExtractionConfig{
		Features: []dsl.FeatureDef{
			{Name: "cpu_norm", SourceField: "metrics.cpu", Transform: &dsl.FeatureTransform{Kind: "normalize", Min: 0, Max: 200}},
			{Name: "status", SourceField: "status"},
		},
	}
	stage := stages.NewFeatureExtractionStage("extract", cfg)

	rec := stages.Record{RawJSON: json.RawMessage(`{"metrics":{"cpu":100},"status":"ok"}`)}
	err := stage.Process(context.Background(), &rec)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.FeaturesJSON, &out))
	assert.InDelta(t, 0.5, out["cpu_norm"], 0.0001)
	assert.Equal(t, "ok", out["status"])
}

func TestFeatureExtractionMissingFieldFails(t *testing.T) {
	cfg := dsl.FeatureExtractionConfig{Features: []dsl.FeatureDef{{Name: "x", SourceField: "missing"}}}
	stage := stages.NewFeatureExtractionStage("extract", cfg)

	rec := stages.Record{RawJSON: json.RawMessage(`{}`)}
	err := stage.Process(context.Background(), &rec)
	assert.Error(t, err)
}

func TestFeatureExtractionBucketize(t *testing.T) {
	cfg := dsl.FeatureExtractionConfig{
		Features: []dsl.FeatureDef{
			{Name: "bucket", SourceField: "v", Transform: &dsl.FeatureTransform{Kind: "bucketize", Boundaries: []float64{10, 20, 30}}},
		},
	}
	stage := stages.NewFeatureExtractionStage("extract", cfg)

	rec := stages.Record{RawJSON: json.RawMessage(`{"v":25}`)}
	require.NoError(t, stage.Process(context.Background(), &rec))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.FeaturesJSON, &out))
	assert.EqualValues(t, 2, out["bucket"])
}

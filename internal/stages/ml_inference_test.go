package stages_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/stages"
)

type fakeModel struct {
	version string
	fail    bool
	result  domain.PredictionResult
}

func (m *fakeModel) Version() string { return m.version }

func (m *fakeModel) Predict(ctx context.Context, features json.RawMessage) (domain.PredictionResult, error) {
	if m.fail {
		return nil, errors.New("model unreachable")
	}
	return m.result, nil
}

func newTestBreaker() *breaker.Breaker {
	return breaker.New(breaker.Config{Name: "test-model", FailureThreshold: 3, SuccessThreshold: 1})
}

func TestMLInferenceSuccess(t *testing.T) {
	model := &fakeModel{version: "v1", result: domain.NewAnomalyResult(0.9, 0.5, nil)}
	cfg := dsl.MLInferenceConfig{ModelEndpoint: "http://model", ModelID: "m1", InputFeatures: []string{"cpu"}, OutputField: "result"}
	stage := stages.NewMLInferenceStage("infer", cfg, model, newTestBreaker())

	rec := stages.Record{FeaturesJSON: json.RawMessage(`{"cpu":0.9}`)}
	require.NoError(t, stage.Process(context.Background(), &rec))

	result, ok := rec.Prediction.(domain.AnomalyResult)
	require.True(t, ok)
	assert.True(t, result.IsAnomaly)
	assert.Equal(t, "v1", rec.ModelVersion)
}

func TestMLInferencePassthroughFallback(t *testing.T) {
	model := &fakeModel{version: "v1", fail: true}
	cfg := dsl.MLInferenceConfig{ModelEndpoint: "http://model", ModelID: "m1", InputFeatures: []string{"cpu"}, OutputField: "result", Fallback: dsl.FallbackPassthrough}
	stage := stages.NewMLInferenceStage("infer", cfg, model, newTestBreaker())

	rec := stages.Record{FeaturesJSON: json.RawMessage(`{"cpu":0.9}`)}
	require.NoError(t, stage.Process(context.Background(), &rec))
	assert.Nil(t, rec.Prediction)
}

func TestMLInferenceErrorFallbackPropagates(t *testing.T) {
	model := &fakeModel{version: "v1", fail: true}
	cfg := dsl.MLInferenceConfig{ModelEndpoint: "http://model", ModelID: "m1", InputFeatures: []string{"cpu"}, OutputField: "result", Fallback: dsl.FallbackError}
	stage := stages.NewMLInferenceStage("infer", cfg, model, newTestBreaker())

	rec := stages.Record{FeaturesJSON: json.RawMessage(`{"cpu":0.9}`)}
	err := stage.Process(context.Background(), &rec)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestMLInferenceMissingInputFeatureFails(t *testing.T) {
	model := &fakeModel{version: "v1", result: domain.NewAnomalyResult(0.9, 0.5, nil)}
	cfg := dsl.MLInferenceConfig{ModelEndpoint: "http://model", ModelID: "m1", InputFeatures: []string{"missing"}, OutputField: "result"}
	stage := stages.NewMLInferenceStage("infer", cfg, model, newTestBreaker())

	rec := stages.Record{FeaturesJSON: json.RawMessage(`{"cpu":0.9}`)}
	err := stage.Process(context.Background(), &rec)
	assert.Error(t, err)
}

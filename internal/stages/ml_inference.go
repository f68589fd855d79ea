package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
)

// MLInferenceStage selects a record's model input features, calls a
// domain.Model guarded by a circuit breaker, and applies the configured
// fallback strategy when the call fails or the breaker is open, grounded
// on flywheel-ml-inference/src/circuit_breaker.rs's can_execute/record_*
// state machine (already adapted into internal/breaker) and spec §4.2's
// fallback strategy table.
type MLInferenceStage struct {
	id      string
	config  dsl.MLInferenceConfig
	model   domain.Model
	breaker *breaker.Breaker
}

// NewMLInferenceStage builds a stage for one ml-inference DSL block. model
// and br are constructed once by the runner and shared across cycles.
func NewMLInferenceStage(id string, config dsl.MLInferenceConfig, model domain.Model, br *breaker.Breaker) *MLInferenceStage {
	return &MLInferenceStage{id: id, config: config, model: model, breaker: br}
}

func (s *MLInferenceStage) ID() string { return s.id }

// Process selects the configured input features out of rec.FeaturesJSON,
// invokes the model through the breaker, and stamps rec.Prediction on
// success or applies the fallback strategy on failure.
func (s *MLInferenceStage) Process(ctx context.Context, rec *Record) error {
	in, err := selectInputFeatures(rec.FeaturesJSON, s.config.InputFeatures)
	if err != nil {
		return domain.NewError("stages.MLInference", "config", err).WithID(s.id)
	}

	callCtx := ctx
	if s.config.TimeoutMs > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(s.config.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	started := time.Now()
	raw, err := s.breaker.ExecuteWithTimeout(callCtx, func(ctx context.Context) (interface{}, error) {
		return s.model.Predict(ctx, in)
	})
	if err != nil {
		return s.applyFallback(rec, err)
	}

	result, ok := raw.(domain.PredictionResult)
	if !ok {
		return domain.NewError("stages.MLInference", "invalid_input",
			fmt.Errorf("%w: model returned %T", domain.ErrModelInvalidInput, raw)).WithID(s.id)
	}

	rec.Prediction = result
	rec.ModelID = s.config.ModelID
	rec.ModelVersion = s.model.Version()
	rec.LatencyUs = time.Since(started).Microseconds()
	return nil
}

// applyFallback implements the configured FallbackStrategy. Passthrough
// and ReturnNull both leave the record without a prediction and report
// success, so a fallback never counts against the cycle's failed count —
// only FallbackError propagates the underlying cause.
func (s *MLInferenceStage) applyFallback(rec *Record, cause error) error {
	switch s.config.Fallback {
	case dsl.FallbackPassthrough, dsl.FallbackReturnNull, "":
		rec.Prediction = nil
		return nil
	case dsl.FallbackError:
		return domain.NewError("stages.MLInference", "unavailable", fmt.Errorf("%w: %v", domain.ErrModelUnavailable, cause)).WithID(s.id)
	default:
		return domain.NewError("stages.MLInference", "config",
			fmt.Errorf("%w: unknown fallback %q", domain.ErrConfig, s.config.Fallback)).WithID(s.id)
	}
}

// selectInputFeatures projects the named top-level fields out of a feature
// JSON object into the payload sent to the model.
func selectInputFeatures(featuresJSON json.RawMessage, names []string) (json.RawMessage, error) {
	var all map[string]interface{}
	if err := json.Unmarshal(featuresJSON, &all); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeatureNotFound, err)
	}
	selected := make(map[string]interface{}, len(names))
	for _, n := range names {
		v, ok := all[n]
		if !ok {
			return nil, fmt.Errorf("%w: feature %q", domain.ErrFeatureNotFound, n)
		}
		selected[n] = v
	}
	out, err := json.Marshal(selected)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	return out, nil
}

var _ Stage = (*MLInferenceStage)(nil)

package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/metrics"
	"github.com/flywheel-ml/flywheel/internal/persistence"
)

// DriftDetectionStage feeds each record's prediction signal into a
// metrics.Detector and periodically evaluates it, grounded on
// flywheel-transform/src/drift_transform.rs's thin DriftDetector wrapper.
// In Shadow mode it only records DriftEvents; in Blocking mode a drifted
// check fails the record (spec §4.2).
type DriftDetectionStage struct {
	id         string
	config     dsl.DriftDetectionConfig
	pipelineID string
	detector   *metrics.Detector
	store      persistence.DriftStore
	notifier   DriftNotifier

	mu          sync.Mutex
	lastChecked time.Time
	checkEvery  time.Duration
}

// NewDriftDetectionStage builds a stage for one drift-detection DSL block.
// detector is constructed by the runner with thresholds resolved from the
// DSL config falling back to the global defaults (see internal/config).
// CheckIntervalSec == 0 means evaluate CheckDrift on every record. The
// runner's buildDriftStage replaces a DSL-unset (zero) interval with a
// 30-second default before calling this constructor, so zero only arrives
// from direct callers such as tests.
func NewDriftDetectionStage(id, pipelineID string, config dsl.DriftDetectionConfig, detector *metrics.Detector, store persistence.DriftStore, notifier DriftNotifier) *DriftDetectionStage {
	checkEvery := time.Duration(config.CheckIntervalSec) * time.Second
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &DriftDetectionStage{
		id:         id,
		config:     config,
		pipelineID: pipelineID,
		detector:   detector,
		store:      store,
		notifier:   notifier,
		checkEvery: checkEvery,
	}
}

func (s *DriftDetectionStage) ID() string { return s.id }

// Process adds the record's statistical signal to the detector's sliding
// window, then — at most once per CheckIntervalSec — evaluates CheckDrift
// and persists/alerts/blocks accordingly.
func (s *DriftDetectionStage) Process(ctx context.Context, rec *Record) error {
	if rec.Prediction == nil {
		return nil
	}
	value, ok := extractSignal(rec.Prediction)
	if ok {
		s.detector.AddValue(value)
	}

	s.mu.Lock()
	due := time.Since(s.lastChecked) >= s.checkEvery
	if due {
		s.lastChecked = time.Now()
	}
	s.mu.Unlock()
	if !due {
		return nil
	}

	result := s.detector.CheckDrift()
	if err := s.reconcileEvent(ctx, rec.ModelID, result); err != nil {
		return err
	}

	if result.IsDrifted && s.config.Mode == dsl.DriftModeBlocking {
		return domain.NewError("stages.DriftDetection", "invalid_state",
			fmt.Errorf("%w: pipeline %s model %s severity %s", domain.ErrDriftDetectionFailed, s.pipelineID, rec.ModelID, result.Severity)).WithID(s.id)
	}
	return nil
}

// reconcileEvent opens a DriftEvent on a fresh drift, resolves it once the
// signal recovers, and fires the configured OnDrift policy the first time
// an event opens.
func (s *DriftDetectionStage) reconcileEvent(ctx context.Context, modelID string, result metrics.Result) error {
	open, err := s.store.GetOpenDriftEvent(ctx, s.pipelineID, modelID)
	if err != nil && !domain.IsNotFound(err) {
		return domain.NewError("stages.DriftDetection", "io", fmt.Errorf("%w: %v", domain.ErrIO, err)).WithID(s.id)
	}

	switch {
	case result.IsDrifted && open == nil:
		event := &domain.DriftEvent{
			PipelineID:    s.pipelineID,
			ModelID:       modelID,
			DriftType:     result.DriftType,
			Severity:      result.Severity,
			PSIScore:      result.PSIScore,
			KLDivergence:  result.KLDivergence,
			AccuracyDelta: result.AccuracyDelta,
			Policy:        domain.OnDriftPolicy{Action: domain.OnDriftAction(s.config.OnDrift.Action), OtherModel: s.config.OnDrift.ToModel},
			DetectedAt:    time.Now(),
		}
		if err := s.store.CreateDriftEvent(ctx, event); err != nil {
			return domain.NewError("stages.DriftDetection", "io", fmt.Errorf("%w: %v", domain.ErrIO, err)).WithID(s.id)
		}
		if event.Policy.Action == domain.OnDriftAlert {
			if err := s.notifier.NotifyDrift(ctx, s.pipelineID, *event); err != nil {
				return err
			}
		}
	case !result.IsDrifted && open != nil:
		if err := s.store.ResolveDriftEvent(ctx, open.ID, time.Now()); err != nil {
			return domain.NewError("stages.DriftDetection", "io", fmt.Errorf("%w: %v", domain.ErrIO, err)).WithID(s.id)
		}
	}
	return nil
}

// extractSignal pulls a single numeric statistic out of a prediction to
// feed the drift detector's distribution: an anomaly score, a regression
// value, or a classification's winning-class probability.
func extractSignal(result domain.PredictionResult) (float64, bool) {
	body, err := domain.MarshalPredictionResult(result)
	if err != nil {
		return 0, false
	}
	var probe struct {
		Score float64 `json:"score"`
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return 0, false
	}
	switch r := result.(type) {
	case domain.AnomalyResult:
		return probe.Score, true
	case domain.RegressionResult:
		return probe.Value, true
	case domain.ClassificationResult:
		prob, ok := r.Probabilities[r.Class]
		return prob, ok
	}
	return 0, false
}

var _ Stage = (*DriftDetectionStage)(nil)

package stages_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/metrics"
	"github.com/flywheel-ml/flywheel/internal/persistence"
	"github.com/flywheel-ml/flywheel/internal/stages"
)

func TestDriftDetectionOpensEventOnDrift(t *testing.T) {
	store := persistence.NewMemoryStore()
	detector := metrics.NewDetector(metrics.DetectorConfig{PSIThreshold: 0.25, AccuracyThreshold: 0.85, WindowSize: 10000, Bins: 10})

	reference := make([]float64, 1000)
	for i := range reference {
		reference[i] = float64(i) / 1000.0
	}
	detector.SetReference(reference)

	cfg := dsl.DriftDetectionConfig{Mode: dsl.DriftModeShadow, BaselineURI: "s3://baseline", CheckIntervalSec: 0}
	stage := stages.NewDriftDetectionStage("drift", "pipeline-1", cfg, detector, store, stages.NoopNotifier{})

	var rec stages.Record
	for i := 0; i < 1000; i++ {
		rec = stages.Record{ModelID: "fraud-v3", Prediction: domain.RegressionResult{Value: float64(i)/1000.0 + 0.5}}
		require.NoError(t, stage.Process(context.Background(), &rec))
	}

	event, err := store.GetOpenDriftEvent(context.Background(), "pipeline-1", "fraud-v3")
	require.NoError(t, err)
	assert.Equal(t, domain.DriftTypeStatistical, event.DriftType)
}

func TestDriftDetectionBlockingModeFailsRecord(t *testing.T) {
	store := persistence.NewMemoryStore()
	detector := metrics.NewDetector(metrics.DetectorConfig{PSIThreshold: 0.25, AccuracyThreshold: 0.85, WindowSize: 10000, Bins: 10})

	reference := make([]float64, 1000)
	for i := range reference {
		reference[i] = float64(i) / 1000.0
	}
	detector.SetReference(reference)

	cfg := dsl.DriftDetectionConfig{Mode: dsl.DriftModeBlocking, BaselineURI: "s3://baseline", CheckIntervalSec: 0}
	stage := stages.NewDriftDetectionStage("drift", "pipeline-1", cfg, detector, store, stages.NoopNotifier{})

	var err error
	var rec stages.Record
	for i := 0; i < 1000; i++ {
		rec = stages.Record{ModelID: "fraud-v3", Prediction: domain.RegressionResult{Value: float64(i)/1000.0 + 0.5}}
		err = stage.Process(context.Background(), &rec)
	}
	assert.ErrorIs(t, err, domain.ErrDriftDetectionFailed)
}

func TestDriftDetectionSkipsRecordsWithoutPrediction(t *testing.T) {
	store := persistence.NewMemoryStore()
	detector := metrics.NewDetector(metrics.DetectorConfig{WindowSize: 100, Bins: 10})
	cfg := dsl.DriftDetectionConfig{Mode: dsl.DriftModeShadow, BaselineURI: "s3://baseline"}
	stage := stages.NewDriftDetectionStage("drift", "pipeline-1", cfg, detector, store, stages.NoopNotifier{})

	rec := stages.Record{}
	require.NoError(t, stage.Process(context.Background(), &rec))
}

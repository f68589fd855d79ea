package stages_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/persistence"
	"github.com/flywheel-ml/flywheel/internal/stages"
)

func newTestPrediction(t *testing.T, store *persistence.MemoryStore, createdAt time.Time) *domain.Prediction {
	t.Helper()
	p := &domain.Prediction{
		ModelID:      "fraud-v3",
		ModelVersion: "1",
		FeaturesJSON: json.RawMessage(`{"amount":42}`),
		Result:       domain.NewAnomalyResult(0.9, 0.5, nil),
		FeaturesHash: "hash-1",
		CreatedAt:    createdAt,
	}
	require.NoError(t, store.CreatePrediction(context.Background(), p))
	return p
}

func TestFeedbackJoinBuildsLabeledExample(t *testing.T) {
	store := persistence.NewMemoryStore()
	pred := newTestPrediction(t, store, time.Now().Add(-time.Hour))

	stage := stages.NewFeedbackJoinStage("join", dsl.FeedbackSpec{Source: "events", JoinKey: "prediction_id", MaxDelayHours: 24}, store, store, nil)

	rec := stages.Record{Feedback: &domain.Feedback{
		PredictionID: pred.ID,
		GroundTruth:  domain.GroundTruthBinary(true),
		Source:       domain.FeedbackSourceExplicit,
		Confidence:   1.0,
		ReceivedAt:   time.Now(),
	}}

	require.NoError(t, stage.Process(context.Background(), &rec))
	require.NotNil(t, rec.LabeledExample)
	assert.Equal(t, pred.ID, rec.LabeledExample.PredictionID)
	require.NotNil(t, rec.LabeledExample.IsCorrect)
	assert.True(t, *rec.LabeledExample.IsCorrect)

	linked, err := store.GetPrediction(context.Background(), pred.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.FeedbackID)
}

func TestFeedbackJoinDropsExpiredFeedback(t *testing.T) {
	store := persistence.NewMemoryStore()
	pred := newTestPrediction(t, store, time.Now().Add(-48*time.Hour))

	stage := stages.NewFeedbackJoinStage("join", dsl.FeedbackSpec{Source: "events", JoinKey: "prediction_id", MaxDelayHours: 24}, store, store, nil)

	rec := stages.Record{Feedback: &domain.Feedback{
		PredictionID: pred.ID,
		GroundTruth:  domain.GroundTruthBinary(true),
		Source:       domain.FeedbackSourceExplicit,
		ReceivedAt:   time.Now(),
	}}

	require.NoError(t, stage.Process(context.Background(), &rec))
	assert.Nil(t, rec.LabeledExample)
}

func TestFeedbackJoinUnknownPredictionFails(t *testing.T) {
	store := persistence.NewMemoryStore()
	stage := stages.NewFeedbackJoinStage("join", dsl.FeedbackSpec{Source: "events", JoinKey: "prediction_id"}, store, store, nil)

	rec := stages.Record{Feedback: &domain.Feedback{PredictionID: "does-not-exist", GroundTruth: domain.GroundTruthBinary(true)}}
	err := stage.Process(context.Background(), &rec)
	assert.ErrorIs(t, err, domain.ErrFeedbackPredictionNotFound)
}

package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/flywheel-ml/flywheel/internal/cache"
	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/persistence"
)

// FeedbackJoinStage joins a late-arriving feedback event (rec.Feedback,
// populated upstream by a domain.FeedbackCollector) to its original
// Prediction and emits a LabeledExample, grounded on
// flywheel-ml-transform/src/feedback_transform.rs's FeedbackJoinTransform
// (lookup prediction, drop if past the join window, compute correctness).
type FeedbackJoinStage struct {
	id          string
	config      dsl.FeedbackSpec
	predictions persistence.PredictionStore
	feedback    persistence.FeedbackStore
	cache       *cache.Client // optional fingerprint dedup; nil disables it
	maxDelay    time.Duration
}

// NewFeedbackJoinStage builds a stage for one feedback-join DSL block.
// cache may be nil to skip duplicate-delivery suppression.
func NewFeedbackJoinStage(id string, config dsl.FeedbackSpec, predictions persistence.PredictionStore, feedback persistence.FeedbackStore, c *cache.Client) *FeedbackJoinStage {
	maxDelay := time.Duration(config.MaxDelayHours) * time.Hour
	if maxDelay <= 0 {
		maxDelay = 24 * time.Hour
	}
	return &FeedbackJoinStage{id: id, config: config, predictions: predictions, feedback: feedback, cache: c, maxDelay: maxDelay}
}

func (s *FeedbackJoinStage) ID() string { return s.id }

// Process looks up rec.Feedback's prediction, drops the join silently if
// it arrived past MaxDelayHours (per spec, an expired join is not an
// error), and otherwise persists the feedback, links it to the prediction,
// and builds the LabeledExample a downstream training-export stage reads.
func (s *FeedbackJoinStage) Process(ctx context.Context, rec *Record) error {
	if rec.Feedback == nil {
		return domain.NewError("stages.FeedbackJoin", "config",
			fmt.Errorf("%w: record carries no feedback", domain.ErrFeedbackMissingPredictionID)).WithID(s.id)
	}
	fb := rec.Feedback

	pred, err := s.predictions.GetPrediction(ctx, fb.PredictionID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewError("stages.FeedbackJoin", "not_found",
				fmt.Errorf("%w: %s", domain.ErrFeedbackPredictionNotFound, fb.PredictionID)).WithID(s.id)
		}
		return domain.NewError("stages.FeedbackJoin", "io", fmt.Errorf("%w: %v", domain.ErrIO, err)).WithID(s.id)
	}

	delay := fb.ReceivedAt.Sub(pred.CreatedAt)
	if delay > s.maxDelay {
		return nil
	}

	if s.cache != nil {
		if seen, err := s.cache.SeenFeatureHash(ctx, pred.FeaturesHash, s.maxDelay); err == nil && seen {
			return nil
		}
	}

	if err := s.feedback.CreateFeedback(ctx, fb); err != nil {
		return domain.NewError("stages.FeedbackJoin", "io", fmt.Errorf("%w: %v", domain.ErrFeedbackStorageFailed, err)).WithID(s.id)
	}
	if err := s.predictions.LinkFeedback(ctx, pred.ID, fb.ID); err != nil {
		return domain.NewError("stages.FeedbackJoin", "conflict", fmt.Errorf("%w: %v", domain.ErrFeedbackJoinFailed, err)).WithID(s.id)
	}

	predJSON, err := domain.MarshalPredictionResult(pred.Result)
	if err != nil {
		return domain.NewError("stages.FeedbackJoin", "serialization", fmt.Errorf("%w: %v", domain.ErrSerialization, err)).WithID(s.id)
	}

	rec.LabeledExample = &domain.LabeledExample{
		ExampleID:           fb.ID,
		PredictionID:        pred.ID,
		ModelID:             pred.ModelID,
		ModelVersion:        pred.ModelVersion,
		FeaturesJSON:        pred.FeaturesJSON,
		PredictionJSON:      predJSON,
		GroundTruth:         fb.GroundTruth,
		PredictionTimestamp: pred.CreatedAt,
		FeedbackTimestamp:   fb.ReceivedAt,
		DelayMs:             delay.Milliseconds(),
		FeedbackConfidence:  fb.Confidence,
		IsCorrect:           domain.ComputeCorrectness(pred.Result, fb.GroundTruth),
	}
	return nil
}

var _ Stage = (*FeedbackJoinStage)(nil)

package domain

import (
	"context"
	"encoding/json"
)

// Model is the inference-time capability every stage's ML step depends on.
// Concrete implementations wrap an HTTP model server or a hosted model
// provider (see internal/model); the pipeline layer only ever sees this
// interface, the way the teacher's ai.Provider boundary hides its transport.
type Model interface {
	// Predict runs inference over a single feature vector and returns the
	// tagged-union result appropriate to the model's ModelType.
	Predict(ctx context.Context, features json.RawMessage) (PredictionResult, error)
	// Version reports the currently loaded model version string, used to
	// stamp Prediction.ModelVersion without a second round trip.
	Version() string
}

// FeatureExtractor turns a raw input record into the feature JSON stored
// alongside a prediction and replayed into training export.
type FeatureExtractor interface {
	Extract(ctx context.Context, raw json.RawMessage) (json.RawMessage, error)
}

// FeedbackCollector delivers ground truth observed after the fact, matched
// back to a prediction by PredictionID.
type FeedbackCollector interface {
	Collect(ctx context.Context) ([]Feedback, error)
}

// TrainingExporter writes a batch of labeled examples to durable storage in
// one of the supported export formats, returning the location written.
type TrainingExporter interface {
	Export(ctx context.Context, examples []LabeledExample) (location string, err error)
}

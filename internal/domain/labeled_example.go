package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// LabeledExample is a prediction joined with its later ground truth, ready
// for export to training storage. It is derived, not persisted in the
// core relational store.
type LabeledExample struct {
	ExampleID           string
	PredictionID        string
	ModelID             string
	ModelVersion        string
	FeaturesJSON        json.RawMessage
	PredictionJSON      json.RawMessage
	GroundTruth         GroundTruth
	PredictionTimestamp time.Time
	FeedbackTimestamp   time.Time
	DelayMs             int64
	FeedbackConfidence  float64
	IsCorrect           *bool
	Metadata            map[string]string
}

// ComputeCorrectness implements the §4.3 correctness table:
//   - Anomaly vs Binary: is_anomaly == truth
//   - Anomaly vs Label("anomaly"/"true"/"yes"/"positive"/"1"): treated as positive
//   - Classification vs Label: case-insensitive equality
//   - Regression vs Value: |predicted - truth| <= 0.1 * |truth|
//   - otherwise: unknown (nil)
func ComputeCorrectness(result PredictionResult, gt GroundTruth) *bool {
	b := func(v bool) *bool { return &v }

	switch r := result.(type) {
	case AnomalyResult:
		switch truth := gt.(type) {
		case GroundTruthBinary:
			return b(r.IsAnomaly == bool(truth))
		case GroundTruthLabel:
			return b(r.IsAnomaly == positiveLabels[strings.ToLower(string(truth))])
		}
	case ClassificationResult:
		if truth, ok := gt.(GroundTruthLabel); ok {
			return b(strings.EqualFold(r.Class, string(truth)))
		}
	case RegressionResult:
		if truth, ok := gt.(GroundTruthValue); ok {
			tv := float64(truth)
			tolerance := tv
			if tolerance < 0 {
				tolerance = -tolerance
			}
			tolerance *= 0.1
			diff := r.Value - tv
			if diff < 0 {
				diff = -diff
			}
			return b(diff <= tolerance)
		}
	}
	return nil
}

// IsPositive reports whether the ground truth represents the positive
// class, used by the Stratified and HardNegative samplers.
func (e LabeledExample) IsPositive() bool {
	positive, _ := AsBinary(e.GroundTruth)
	return positive
}

// IsFalsePositive reports whether this example is a negative ground truth
// that the model incorrectly called positive (used by HardNegative
// sampling).
func (e LabeledExample) IsFalsePositive() bool {
	return !e.IsPositive() && e.IsCorrect != nil && !*e.IsCorrect
}

// IsFalseNegative reports whether this example is a positive ground truth
// that the model incorrectly missed.
func (e LabeledExample) IsFalseNegative() bool {
	return e.IsPositive() && e.IsCorrect != nil && !*e.IsCorrect
}

// Confidence extracts a numeric confidence from the prediction JSON, used
// by HardNegative sampling's threshold comparison. Returns false if absent.
func (e LabeledExample) Confidence() (float64, bool) {
	var withConfidence struct {
		Confidence *float64 `json:"confidence"`
		Score      *float64 `json:"score"`
	}
	if err := json.Unmarshal(e.PredictionJSON, &withConfidence); err != nil {
		return 0, false
	}
	if withConfidence.Confidence != nil {
		return *withConfidence.Confidence, true
	}
	if withConfidence.Score != nil {
		return *withConfidence.Score, true
	}
	return 0, false
}

package domain

import "time"

// DriftType classifies which signal(s) triggered a DriftEvent.
type DriftType string

const (
	DriftTypeStatistical DriftType = "statistical"
	DriftTypePerformance DriftType = "performance"
	DriftTypeBoth        DriftType = "both"
)

// DriftSeverity buckets PSI magnitude per spec §4.3:
// <0.1 None, <0.25 Low, <0.5 Medium, <1.0 High, else Critical.
type DriftSeverity string

const (
	DriftSeverityNone     DriftSeverity = "none"
	DriftSeverityLow      DriftSeverity = "low"
	DriftSeverityMedium   DriftSeverity = "medium"
	DriftSeverityHigh     DriftSeverity = "high"
	DriftSeverityCritical DriftSeverity = "critical"
)

// SeverityFromPSI classifies a PSI score into a DriftSeverity bucket.
func SeverityFromPSI(psi float64) DriftSeverity {
	switch {
	case psi < 0.1:
		return DriftSeverityNone
	case psi < 0.25:
		return DriftSeverityLow
	case psi < 0.5:
		return DriftSeverityMedium
	case psi < 1.0:
		return DriftSeverityHigh
	default:
		return DriftSeverityCritical
	}
}

// OnDriftPolicy records what should happen when a DriftEvent fires.
// Retrain and Fallback are recorded but trigger no external action — no
// training or alternate-model-routing subsystem is in scope (spec §1).
type OnDriftPolicy struct {
	Action      OnDriftAction `json:"action"`
	OtherModel  string        `json:"other_model,omitempty"` // for Fallback
}

type OnDriftAction string

const (
	OnDriftAlert    OnDriftAction = "alert"
	OnDriftRetrain  OnDriftAction = "retrain"
	OnDriftFallback OnDriftAction = "fallback"
)

// DriftEvent records one detected drift episode for (PipelineID, ModelID).
// An event is "open" while ResolvedAt is nil; at most one open event exists
// per (pipeline, model) by construction of the detector.
type DriftEvent struct {
	ID             string
	PipelineID     string
	ModelID        string
	DriftType      DriftType
	Severity       DriftSeverity
	PSIScore       *float64
	KLDivergence   *float64
	AccuracyDelta  *float64
	Policy         OnDriftPolicy
	DetectedAt     time.Time
	ResolvedAt     *time.Time
}

// IsOpen reports whether the event has not yet been resolved.
func (e DriftEvent) IsOpen() bool {
	return e.ResolvedAt == nil
}

package metrics

import (
	"sync"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// DetectorConfig mirrors internal/config.DriftConfig but is scoped to one
// detector instance, so a per-pipeline DSL override doesn't have to mutate
// the global Config.
type DetectorConfig struct {
	PSIThreshold      float64
	KLThreshold       float64
	AccuracyThreshold float64
	WindowSize        int
	Bins              int
}

// Result is the outcome of one check_drift call: whether drift fired, and
// which signal(s) contributed.
type Result struct {
	IsDrifted     bool
	DriftType     domain.DriftType
	Severity      domain.DriftSeverity
	PSIScore      *float64
	KLDivergence  *float64
	AccuracyDelta *float64
}

// Detector holds a reference distribution, a bounded sliding window of
// current values, and a PerformanceTracker, and decides whether either
// signal has drifted past configured thresholds. Safe for concurrent use;
// one Detector is shared per (pipeline, model) across concurrent stage
// invocations.
type Detector struct {
	mu sync.Mutex

	cfg              DetectorConfig
	referenceValues  []float64
	currentWindow    []float64
	tracker          *PerformanceTracker
	baselineAccuracy float64
}

// NewDetector returns a Detector with the given config and a default
// baseline accuracy of 0.9, matching the original's bootstrap default until
// SetBaselineAccuracy is called with a real measurement.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{
		cfg:              cfg,
		tracker:          NewPerformanceTracker(),
		baselineAccuracy: 0.9,
	}
}

// SetReference replaces the reference (baseline) distribution.
func (d *Detector) SetReference(values []float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.referenceValues = append([]float64(nil), values...)
}

// SetBaselineAccuracy replaces the accuracy the performance signal compares
// against.
func (d *Detector) SetBaselineAccuracy(accuracy float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baselineAccuracy = accuracy
}

// AddValue appends one statistical sample to the current sliding window,
// evicting the oldest sample once the window exceeds the configured size.
func (d *Detector) AddValue(value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentWindow = append(d.currentWindow, value)
	if len(d.currentWindow) > d.cfg.WindowSize {
		d.currentWindow = d.currentWindow[1:]
	}
}

// RecordPrediction feeds one labeled prediction outcome into the
// performance-signal tracker.
func (d *Detector) RecordPrediction(predicted, actual bool, latencyUs int64, isError bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracker.RecordPrediction(predicted, actual, latencyUs, isError)
}

// Tracker returns the underlying PerformanceTracker for read-only reporting
// (precision/recall/f1/latency), e.g. to stamp rpc health/stats responses.
func (d *Detector) Tracker() *PerformanceTracker {
	return d.tracker
}

// CheckDrift evaluates both signals against the current state. Per spec,
// fewer than 100 samples in the current window (or no reference set at all)
// yields a no-decision result rather than a false negative. The
// performance signal only fires once at least one outcome has been
// recorded through RecordPrediction.
func (d *Detector) CheckDrift() Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.referenceValues) == 0 || len(d.currentWindow) < 100 {
		return Result{Severity: domain.DriftSeverityNone}
	}

	bins := d.cfg.Bins
	if bins < 2 {
		bins = 10
	}
	psi := ComputePSI(d.referenceValues, d.currentWindow, bins)
	statisticalDrifted := psi > d.cfg.PSIThreshold

	currentAccuracy := d.tracker.Accuracy()
	accuracyDelta := d.baselineAccuracy - currentAccuracy
	performanceDrifted := d.tracker.Total() > 0 && currentAccuracy < d.cfg.AccuracyThreshold

	var isDrifted bool
	var driftType domain.DriftType
	switch {
	case statisticalDrifted && performanceDrifted:
		isDrifted, driftType = true, domain.DriftTypeBoth
	case statisticalDrifted:
		isDrifted, driftType = true, domain.DriftTypeStatistical
	case performanceDrifted:
		isDrifted, driftType = true, domain.DriftTypePerformance
	}

	return Result{
		IsDrifted:     isDrifted,
		DriftType:     driftType,
		Severity:      domain.SeverityFromPSI(psi),
		PSIScore:      &psi,
		AccuracyDelta: &accuracyDelta,
	}
}

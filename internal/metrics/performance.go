package metrics

import "sort"

// PerformanceTracker accumulates a confusion matrix and latency samples
// until Reset is called (nothing ages out on its own), used by the
// drift-detection stage's
// performance signal. Not safe for concurrent use; callers serialize access
// per pipeline runner.
type PerformanceTracker struct {
	truePositives  uint64
	trueNegatives  uint64
	falsePositives uint64
	falseNegatives uint64
	latenciesUs    []int64
	errors         uint64
	total          uint64
}

// NewPerformanceTracker returns an empty tracker.
func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{}
}

// RecordPrediction folds one labeled prediction outcome into the tracker.
// When isError is true, the outcome is counted toward the error rate only
// and does not affect the confusion matrix.
func (t *PerformanceTracker) RecordPrediction(predicted, actual bool, latencyUs int64, isError bool) {
	t.total++
	if isError {
		t.errors++
	} else {
		switch {
		case predicted && actual:
			t.truePositives++
		case predicted && !actual:
			t.falsePositives++
		case !predicted && actual:
			t.falseNegatives++
		default:
			t.trueNegatives++
		}
	}
	t.latenciesUs = append(t.latenciesUs, latencyUs)
}

// Accuracy returns (TP+TN)/(TP+TN+FP+FN), or 0 if the confusion matrix is
// empty.
func (t *PerformanceTracker) Accuracy() float64 {
	correct := t.truePositives + t.trueNegatives
	total := t.truePositives + t.trueNegatives + t.falsePositives + t.falseNegatives
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// Precision returns TP/(TP+FP), or 0 if the denominator is 0.
func (t *PerformanceTracker) Precision() float64 {
	denom := t.truePositives + t.falsePositives
	if denom == 0 {
		return 0
	}
	return float64(t.truePositives) / float64(denom)
}

// Recall returns TP/(TP+FN), or 0 if the denominator is 0.
func (t *PerformanceTracker) Recall() float64 {
	denom := t.truePositives + t.falseNegatives
	if denom == 0 {
		return 0
	}
	return float64(t.truePositives) / float64(denom)
}

// F1Score returns the harmonic mean of Precision and Recall, or 0 if both
// are 0.
func (t *PerformanceTracker) F1Score() float64 {
	p, r := t.Precision(), t.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ErrorRate returns errors/total, or 0 if total is 0.
func (t *PerformanceTracker) ErrorRate() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.errors) / float64(t.total)
}

// LatencyP99 returns the 99th-percentile latency in microseconds over all
// recorded samples, or 0 if none have been recorded.
func (t *PerformanceTracker) LatencyP99() int64 {
	if len(t.latenciesUs) == 0 {
		return 0
	}
	sorted := make([]int64, len(t.latenciesUs))
	copy(sorted, t.latenciesUs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := len(sorted) * 99 / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Total reports the number of predictions recorded.
func (t *PerformanceTracker) Total() uint64 { return t.total }

// Reset clears all accumulated state, starting a fresh evaluation window.
func (t *PerformanceTracker) Reset() {
	t.truePositives = 0
	t.trueNegatives = 0
	t.falsePositives = 0
	t.falseNegatives = 0
	t.latenciesUs = t.latenciesUs[:0]
	t.errors = 0
	t.total = 0
}

// Package metrics implements the statistical and performance signals the
// drift-detection stage runs over a feature or prediction stream: PSI and
// KL-divergence histogram comparisons, and a confusion-matrix-based
// PerformanceTracker.
package metrics

import "math"

const (
	psiFloor = 1e-4
	klFloor  = 1e-10
)

// ComputePSI computes the Population Stability Index between reference and
// current samples. Both are binned into `bins` equal-width buckets over
// reference's min/max, so a pure distribution shift in current (values
// falling outside reference's range) shows up as mass piling into
// current's edge buckets rather than normalizing away. Proportions are
// floored at 1e-4 before the log-ratio term to avoid log(0)/div-by-0 for
// empty bins.
func ComputePSI(reference, current []float64, bins int) float64 {
	min, max := minMax(reference)
	refHist := histogramOver(reference, bins, min, max)
	curHist := histogramOver(current, bins, min, max)

	var psi float64
	for i := range refHist {
		refPct := math.Max(refHist[i], psiFloor)
		curPct := math.Max(curHist[i], psiFloor)
		psi += (curPct - refPct) * math.Log(curPct/refPct)
	}
	return psi
}

// ComputeKLDivergence computes the Kullback-Leibler divergence D(p||q) over
// two equal-length proportion vectors (e.g. two histograms), flooring each
// term at 1e-10.
func ComputeKLDivergence(p, q []float64) float64 {
	var sum float64
	n := len(p)
	if len(q) < n {
		n = len(q)
	}
	for i := 0; i < n; i++ {
		pi := math.Max(p[i], klFloor)
		qi := math.Max(q[i], klFloor)
		sum += pi * math.Log(pi/qi)
	}
	return sum
}

// minMax returns the min and max of values, both 0 for an empty input.
func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// histogramOver bins values into `bins` equal-width buckets over the given
// [min, max] range, returning per-bucket proportions. Values outside the
// range clamp into the nearest edge bucket, so a shifted distribution piles
// up at the edges instead of silently renormalizing. A degenerate
// (zero-range) range places all mass in bucket 0; an empty input returns
// all zeros.
func histogramOver(values []float64, bins int, min, max float64) []float64 {
	hist := make([]float64, bins)
	if len(values) == 0 {
		return hist
	}

	if math.Abs(max-min) < 1e-12 {
		hist[0] = 1.0
		return hist
	}

	binWidth := (max - min) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		bin := int((v - min) / binWidth)
		if bin >= bins {
			bin = bins - 1
		}
		if bin < 0 {
			bin = 0
		}
		counts[bin]++
	}

	total := float64(len(values))
	for i, c := range counts {
		hist[i] = float64(c) / total
	}
	return hist
}

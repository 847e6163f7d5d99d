package feesuggest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// madScale makes the median absolute deviation a consistent estimator of the
// standard deviation for normally distributed samples.
const madScale = 1.4826

// PercentileSeries holds one reward percentile across a window's blocks, in
// gwei, index-aligned with the window.
type PercentileSeries []float64

// OutlierMask flags block indices excluded from every tier of one window.
type OutlierMask []bool

// Contains reports whether block i is flagged.
func (m OutlierMask) Contains(i int) bool {
	return i >= 0 && i < len(m) && m[i]
}

// Count returns the number of flagged blocks.
func (m OutlierMask) Count() int {
	n := 0
	for _, flagged := range m {
		if flagged {
			n++
		}
	}
	return n
}

// OutlierBlocks flags the blocks whose reference-tier value lies further than
// threshold robust standard deviations from the median. The mask never covers
// every block: if it would, nothing is flagged.
func OutlierBlocks(series []PercentileSeries, ref int, threshold float64) (OutlierMask, error) {
	if ref < 0 || ref >= len(series) {
		return nil, invalidInput("reference tier %d out of range [0, %d)", ref, len(series))
	}
	if threshold <= 0 {
		return nil, invalidInput("outlier threshold %v must be positive", threshold)
	}
	values := series[ref]
	if len(values) == 0 {
		return nil, invalidInput("reference tier %d is empty", ref)
	}
	for tier, s := range series {
		if len(s) != len(values) {
			return nil, invalidInput("tier %d has %d blocks, reference has %d", tier, len(s), len(values))
		}
	}

	median := quantile(0.5, values)
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - median)
	}
	mad := quantile(0.5, deviations)

	mask := make(OutlierMask, len(values))
	// With MAD of zero at least half the samples share the median; no
	// dispersion to measure against.
	if mad == 0 || math.IsNaN(mad) {
		return mask, nil
	}
	limit := threshold * madScale * mad
	for i, d := range deviations {
		mask[i] = d > limit
	}
	if mask.Count() == len(mask) {
		return make(OutlierMask, len(values)), nil
	}
	return mask, nil
}

// FilterOutliers returns tier's series without the masked blocks, in the
// original order.
func FilterOutliers(series []PercentileSeries, mask OutlierMask, tier int) (PercentileSeries, error) {
	if tier < 0 || tier >= len(series) {
		return nil, invalidInput("tier %d out of range [0, %d)", tier, len(series))
	}
	values := series[tier]
	if len(mask) != len(values) {
		return nil, invalidInput("mask covers %d blocks, tier %d has %d", len(mask), tier, len(values))
	}
	out := make(PercentileSeries, 0, len(values))
	for i, v := range values {
		if !mask.Contains(i) {
			out = append(out, v)
		}
	}
	return out, nil
}

func quantile(p float64, values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

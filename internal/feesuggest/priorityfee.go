package feesuggest

import (
	"math"

	"feesuggest/internal/units"
)

// Tier indices into the four requested reward percentiles.
const (
	tierLowest = iota
	tierNormal
	tierFast
	tierUrgent
	tierCount
)

// referenceTier is the tier the outlier mask is computed from.
const referenceTier = tierLowest

// SuggestMaxPriorityFee derives the bounded tier suggestions and the two
// unbounded confirmation mappings from a priority-fee window.
func SuggestMaxPriorityFee(w *FeeHistoryWindow, p Params) (*MaxPriorityFeeSuggestions, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	estimates, err := priorityEstimates(w, p)
	if err != nil {
		return nil, err
	}

	bounded := map[string]float64{
		TierNormal: p.NormalBand.Clamp(estimates[tierNormal]),
		TierFast:   p.FastBand.Clamp(estimates[tierFast]),
		TierUrgent: p.UrgentBand.Clamp(estimates[tierUrgent]),
	}
	out := &MaxPriorityFeeSuggestions{
		MaxPriorityFeeSuggestions:         make(map[string]string, len(bounded)),
		BlocksToConfirmationByPriorityFee: make(map[int]string, tierCount),
		ConfirmationTimeByPriorityFee:     make(map[int]string, tierCount),
	}
	for tier, gwei := range bounded {
		wei, err := units.GweiToWei(gwei)
		if err != nil {
			return nil, undefinedResult("%s priority fee: %v", tier, err)
		}
		out.MaxPriorityFeeSuggestions[tier] = wei
	}

	// The confirmation mappings deliberately skip the bands.
	blocks := map[int]int{1: tierUrgent, 2: tierFast, 3: tierNormal, 4: tierLowest}
	for k, tier := range blocks {
		wei, err := units.GweiToWei(estimates[tier])
		if err != nil {
			return nil, undefinedResult("priority fee for %d blocks: %v", k, err)
		}
		out.BlocksToConfirmationByPriorityFee[k] = wei
	}
	seconds := map[int]int{15: tierUrgent, 30: tierFast, 45: tierNormal, 60: tierLowest}
	for k, tier := range seconds {
		wei, err := units.GweiToWei(estimates[tier])
		if err != nil {
			return nil, undefinedResult("priority fee for %ds: %v", k, err)
		}
		out.ConfirmationTimeByPriorityFee[k] = wei
	}
	return out, nil
}

// priorityEstimates returns the smoothed gwei estimate of every tier. One
// outlier mask, computed on the reference tier, filters all of them.
func priorityEstimates(w *FeeHistoryWindow, p Params) ([tierCount]float64, error) {
	var estimates [tierCount]float64
	series, err := rewardSeries(w, p.RewardSource)
	if err != nil {
		return estimates, err
	}
	mask, err := OutlierBlocks(series, referenceTier, p.OutlierThreshold)
	if err != nil {
		return estimates, err
	}
	for tier := range series {
		filtered, err := FilterOutliers(series, mask, tier)
		if err != nil {
			return estimates, err
		}
		if len(filtered) == 0 {
			return estimates, undefinedResult("tier %d has no samples after filtering", tier)
		}
		v, err := LastEMA(filtered, len(filtered))
		if err != nil {
			return estimates, undefinedResult("tier %d: %v", tier, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return estimates, undefinedResult("tier %d smoothed to %v", tier, v)
		}
		estimates[tier] = v
	}
	return estimates, nil
}

// rewardSeries builds one gwei series per tier. The proxy source weights each
// block's base fee by its gas utilization and uses that for every tier.
func rewardSeries(w *FeeHistoryWindow, source string) ([]PercentileSeries, error) {
	if w == nil {
		return nil, missingData("fee history window is nil")
	}
	if len(w.BaseFeePerGas) == 0 {
		return nil, missingData("baseFeePerGas is empty")
	}
	if len(w.GasUsedRatio) == 0 {
		return nil, missingData("gasUsedRatio is empty")
	}
	n := len(w.GasUsedRatio)
	if len(w.BaseFeePerGas) < n {
		return nil, missingData("%d base fees for %d blocks", len(w.BaseFeePerGas), n)
	}
	if source == RewardSourceNode && len(w.Reward) < n {
		return nil, missingData("%d reward rows for %d blocks", len(w.Reward), n)
	}

	if err := checkGasUsedRatios(w.GasUsedRatio); err != nil {
		return nil, err
	}

	samples := w.Samples()
	series := make([]PercentileSeries, tierCount)
	for tier := range series {
		series[tier] = make(PercentileSeries, n)
	}
	for i, sample := range samples {
		if source == RewardSourceNode {
			if len(sample.Rewards) < tierCount {
				return nil, missingData("reward[%d] has %d percentiles, need %d", i, len(sample.Rewards), tierCount)
			}
			for tier := range series {
				gwei, err := units.WeiToGwei(sample.Rewards[tier])
				if err != nil {
					return nil, invalidInput("reward[%d][%d]: %v", i, tier, err)
				}
				series[tier][i] = gwei
			}
			continue
		}
		gwei, err := units.WeiToGwei(sample.BaseFeePerGas)
		if err != nil {
			return nil, invalidInput("baseFeePerGas[%d]: %v", i, err)
		}
		for tier := range series {
			series[tier][i] = gwei * sample.GasUsedRatio
		}
	}
	return series, nil
}

package feesuggest

import "sort"

// Reward sources for the priority-fee estimator.
const (
	// RewardSourceProxy derives each block's reward from its base fee
	// weighted by gas utilization, ignoring the node's percentile rewards.
	RewardSourceProxy = "proxy"
	// RewardSourceNode reads the node-reported percentile rewards.
	RewardSourceNode = "node"
)

// Band is an inclusive gwei range.
type Band struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Clamp returns v limited to the band.
func (b Band) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Params tunes the estimators. The zero value is not usable; start from
// DefaultParams.
type Params struct {
	// MaxHistoryBlocks bounds how many of the newest blocks the base-fee
	// estimator ranks.
	MaxHistoryBlocks int
	// BaseFeePadding scales the highest horizon estimate.
	BaseFeePadding float64
	// ConfirmationMultipliers maps a target confirmation-block count to the
	// multiple of the base-fee suggestion bid for it.
	ConfirmationMultipliers map[int]float64
	// TrendBlocks is how many historical blocks the trend compares against.
	TrendBlocks int
	// TrendTolerance is the relative deviation from the recent mean below
	// which the trend is stable.
	TrendTolerance float64

	// PriorityBlocks is the size of the priority-fee window.
	PriorityBlocks int
	// RewardPercentiles are requested from the node, ascending. The
	// estimator needs exactly four.
	RewardPercentiles []float64
	RewardSource      string
	// OutlierThreshold is the robust z-score above which a block is an outlier.
	OutlierThreshold float64

	NormalBand Band
	FastBand   Band
	UrgentBand Band
}

// DefaultParams returns the production tuning.
func DefaultParams() Params {
	return Params{
		MaxHistoryBlocks: 100,
		BaseFeePadding:   1.1,
		ConfirmationMultipliers: map[int]float64{
			4:   1.53,
			8:   1.395,
			40:  1.245,
			120: 1.065,
			240: 0.975,
		},
		TrendBlocks:       10,
		TrendTolerance:    0.05,
		PriorityBlocks:    10,
		RewardPercentiles: []float64{10, 15, 30, 45},
		RewardSource:      RewardSourceProxy,
		OutlierThreshold:  3,
		NormalBand:        Band{Min: 1, Max: 1.8},
		FastBand:          Band{Min: 1.5, Max: 3},
		UrgentBand:        Band{Min: 2, Max: 9},
	}
}

// Validate checks that p can drive both estimators.
func (p Params) Validate() error {
	if p.MaxHistoryBlocks < 1 {
		return invalidInput("max history blocks %d must be positive", p.MaxHistoryBlocks)
	}
	if p.BaseFeePadding < 1 {
		return invalidInput("base fee padding %v must be at least 1", p.BaseFeePadding)
	}
	if len(p.ConfirmationMultipliers) == 0 {
		return invalidInput("confirmation multipliers are empty")
	}
	for blocks, m := range p.ConfirmationMultipliers {
		if blocks <= 0 || m <= 0 {
			return invalidInput("confirmation multiplier %d: %v must be positive", blocks, m)
		}
	}
	if p.TrendBlocks < 1 {
		return invalidInput("trend blocks %d must be positive", p.TrendBlocks)
	}
	if p.TrendTolerance < 0 {
		return invalidInput("trend tolerance %v is negative", p.TrendTolerance)
	}
	if p.PriorityBlocks < 1 {
		return invalidInput("priority blocks %d must be positive", p.PriorityBlocks)
	}
	if len(p.RewardPercentiles) != tierCount {
		return invalidInput("need %d reward percentiles, got %d", tierCount, len(p.RewardPercentiles))
	}
	if !sort.Float64sAreSorted(p.RewardPercentiles) {
		return invalidInput("reward percentiles %v are not ascending", p.RewardPercentiles)
	}
	for _, pct := range p.RewardPercentiles {
		if pct < 0 || pct > 100 {
			return invalidInput("reward percentile %v out of range", pct)
		}
	}
	switch p.RewardSource {
	case RewardSourceProxy, RewardSourceNode:
	default:
		return invalidInput("unknown reward source %q", p.RewardSource)
	}
	if p.OutlierThreshold <= 0 {
		return invalidInput("outlier threshold %v must be positive", p.OutlierThreshold)
	}
	for name, b := range map[string]Band{TierNormal: p.NormalBand, TierFast: p.FastBand, TierUrgent: p.UrgentBand} {
		if b.Min < 0 || b.Max < b.Min {
			return invalidInput("%s band [%v, %v] is invalid", name, b.Min, b.Max)
		}
	}
	return nil
}

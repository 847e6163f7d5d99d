package feesuggest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"feesuggest/internal/units"
)

const (
	// MaxHorizon is the most patient horizon index; 0 is the most urgent.
	MaxHorizon   = 15
	horizonCount = MaxHorizon + 1

	// congestionRatio is the utilization above which the next block's base
	// fee is forced up.
	congestionRatio = 0.9
	// maxBaseFeeIncrease is the largest single-block base fee change, 12.5%.
	maxBaseFeeIncrease = 9.0 / 8.0

	// The sampling window over recency-weighted history: weight below
	// sampleCertainty is ignored, weight above samplePrecision is not needed.
	sampleCertainty = 0.1
	samplePrecision = 0.3
)

// HorizonEstimate maps a horizon index to a suggested base fee in gwei.
type HorizonEstimate [horizonCount]float64

// Monotonic reports whether no horizon is cheaper than a more patient one.
func (h HorizonEstimate) Monotonic() bool {
	for t := 1; t < len(h); t++ {
		if h[t-1] < h[t] {
			return false
		}
	}
	return true
}

// Max returns the highest estimate across horizons.
func (h HorizonEstimate) Max() float64 {
	return floats.Max(h[:])
}

// SuggestMaxBaseFee derives the max base fee suggestion, its trend and the
// per-confirmation-target bids from a window that ends with a pending block.
func SuggestMaxBaseFee(w *FeeHistoryWindow, p Params) (*MaxFeeSuggestions, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkBaseFeeWindow(w); err != nil {
		return nil, err
	}
	window := w.Newest(p.MaxHistoryBlocks)

	fees, err := gweiBaseFees(window.BaseFeePerGas)
	if err != nil {
		return nil, err
	}
	currentBaseFee := window.BaseFeePerGas[len(window.BaseFeePerGas)-1]
	trend := baseFeeTrend(fees, p.TrendBlocks, p.TrendTolerance)

	adjusted := adjustForCongestion(fees, window.GasUsedRatio)
	horizons := EstimateHorizons(adjusted, ascendingOrder(adjusted))

	suggestion, err := units.GweiToWei(horizons.Max() * p.BaseFeePadding)
	if err != nil {
		return nil, undefinedResult("base fee suggestion: %v", err)
	}
	if _, err := units.ParseWei(suggestion); err != nil {
		return nil, undefinedResult("base fee suggestion out of range: %v", err)
	}
	confirmations := make(map[int]string, len(p.ConfirmationMultipliers))
	for blocks, m := range p.ConfirmationMultipliers {
		bid, err := units.MultiplyWei(suggestion, m)
		if err != nil {
			return nil, invalidInput("confirmation multiplier %d: %v", blocks, err)
		}
		if _, err := units.ParseWei(bid); err != nil {
			return nil, undefinedResult("bid for %d blocks out of range: %v", blocks, err)
		}
		confirmations[blocks] = bid
	}
	return &MaxFeeSuggestions{
		BaseFeeSuggestion:             suggestion,
		BaseFeeTrend:                  trend,
		CurrentBaseFee:                currentBaseFee,
		BlocksToConfirmationByBaseFee: confirmations,
	}, nil
}

func checkBaseFeeWindow(w *FeeHistoryWindow) error {
	if w == nil {
		return missingData("fee history window is nil")
	}
	if len(w.BaseFeePerGas) == 0 {
		return missingData("baseFeePerGas is empty")
	}
	if len(w.GasUsedRatio) == 0 {
		return missingData("gasUsedRatio is empty")
	}
	if !w.HasPending() {
		return invalidInput("base fee window needs a pending block: %d base fees for %d ratios",
			len(w.BaseFeePerGas), len(w.GasUsedRatio))
	}
	return checkGasUsedRatios(w.GasUsedRatio)
}

func checkGasUsedRatios(ratios []float64) error {
	for i, r := range ratios {
		if math.IsNaN(r) || r < 0 || r > 1 {
			return invalidInput("gasUsedRatio[%d] = %v outside [0, 1]", i, r)
		}
	}
	return nil
}

func gweiBaseFees(wei []string) ([]float64, error) {
	out := make([]float64, len(wei))
	for i, v := range wei {
		gwei, err := units.WeiToGwei(v)
		if err != nil {
			return nil, invalidInput("baseFeePerGas[%d]: %v", i, err)
		}
		out[i] = gwei
	}
	return out, nil
}

// baseFeeTrend compares the pending base fee, the last element of fees,
// against the mean of the preceding blocks.
func baseFeeTrend(fees []float64, blocks int, tolerance float64) Trend {
	current := fees[len(fees)-1]
	history := fees[:len(fees)-1]
	if len(history) > blocks {
		history = history[len(history)-blocks:]
	}
	if len(history) == 0 {
		return TrendStable
	}
	mean := stat.Mean(history, nil)
	if mean <= 0 {
		if current > 0 {
			return TrendRising
		}
		return TrendStable
	}
	switch deviation := (current - mean) / mean; {
	case deviation > tolerance:
		return TrendRising
	case deviation < -tolerance:
		return TrendFalling
	default:
		return TrendStable
	}
}

// adjustForCongestion bumps the pending fee by the maximum single-block
// increase, then walks back from the newest block copying the following
// block's fee over every block built above congestionRatio.
func adjustForCongestion(fees, ratios []float64) []float64 {
	out := append([]float64(nil), fees...)
	out[len(out)-1] *= maxBaseFeeIncrease
	for i := len(ratios) - 1; i >= 0; i-- {
		if ratios[i] > congestionRatio {
			out[i] = out[i+1]
		}
	}
	return out
}

// ascendingOrder returns block indices sorted by fee, stable on ties.
func ascendingOrder(fees []float64) []int {
	order := make([]int, len(fees))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fees[order[a]] < fees[order[b]]
	})
	return order
}

// EstimateHorizons folds the per-horizon estimates from the most patient to
// the most urgent, carrying the running maximum so that the result is
// non-increasing in the horizon index.
func EstimateHorizons(fees []float64, order []int) HorizonEstimate {
	var h HorizonEstimate
	running := 0.0
	for t := MaxHorizon; t >= 0; t-- {
		running = math.Max(running, horizonEstimate(fees, order, float64(t)))
		h[t] = running
	}
	return h
}

// horizonEstimate weights block i by exp((i-n+1)/timeFactor), normalised to
// sum to one, and averages the sorted fees whose cumulative weight falls in
// the sampling window. Small time factors concentrate weight on the newest
// blocks; timeFactor 0 is the pending fee itself.
func horizonEstimate(fees []float64, order []int, timeFactor float64) float64 {
	if timeFactor < 1e-6 {
		return fees[len(fees)-1]
	}
	n := float64(len(fees))
	pendingWeight := (1 - math.Exp(-1/timeFactor)) / (1 - math.Exp(-n/timeFactor))
	var sumWeight, result, last float64
	for _, i := range order {
		sumWeight += pendingWeight * math.Exp((float64(i)-n+1)/timeFactor)
		curve := samplingCurve(sumWeight)
		result += (curve - last) * fees[i]
		if curve >= 1 {
			return result
		}
		last = curve
	}
	return result
}

// samplingCurve is a smooth step from 0 at sampleCertainty to 1 at samplePrecision.
func samplingCurve(sumWeight float64) float64 {
	if sumWeight <= sampleCertainty {
		return 0
	}
	if sumWeight >= samplePrecision {
		return 1
	}
	return (1 - math.Cos((sumWeight-sampleCertainty)*math.Pi/(samplePrecision-sampleCertainty))) / 2
}

package feesuggest

// FeeHistoryWindow is the eth_feeHistory payload for consecutive blocks,
// oldest first. Wei amounts are decimal-string integers.
//
// A base-fee window carries one trailing pending-block estimate, so
// len(BaseFeePerGas) == len(GasUsedRatio)+1. A priority window has one base
// fee per block.
type FeeHistoryWindow struct {
	OldestBlock   uint64     `json:"oldestBlock"`
	BaseFeePerGas []string   `json:"baseFeePerGas"`
	GasUsedRatio  []float64  `json:"gasUsedRatio"`
	Reward        [][]string `json:"reward,omitempty"`
}

// FeeHistorySample is one block of a window.
type FeeHistorySample struct {
	BaseFeePerGas string
	GasUsedRatio  float64
	Rewards       []string
}

// HasPending reports whether the window ends with a pending-block base fee.
func (w *FeeHistoryWindow) HasPending() bool {
	return len(w.BaseFeePerGas) > 0 && len(w.BaseFeePerGas) == len(w.GasUsedRatio)+1
}

// Blocks returns the number of mined blocks in the window.
func (w *FeeHistoryWindow) Blocks() int {
	return len(w.GasUsedRatio)
}

// Samples returns the mined blocks of the window. The pending estimate, if
// any, is not a sample.
func (w *FeeHistoryWindow) Samples() []FeeHistorySample {
	n := len(w.GasUsedRatio)
	if len(w.BaseFeePerGas) < n {
		n = len(w.BaseFeePerGas)
	}
	out := make([]FeeHistorySample, n)
	for i := 0; i < n; i++ {
		out[i] = FeeHistorySample{
			BaseFeePerGas: w.BaseFeePerGas[i],
			GasUsedRatio:  w.GasUsedRatio[i],
		}
		if i < len(w.Reward) {
			out[i].Rewards = w.Reward[i]
		}
	}
	return out
}

// WithoutPending returns a copy of the window with the pending base fee dropped.
func (w *FeeHistoryWindow) WithoutPending() *FeeHistoryWindow {
	out := *w
	if w.HasPending() {
		out.BaseFeePerGas = w.BaseFeePerGas[:len(w.BaseFeePerGas)-1]
	}
	return &out
}

// Newest returns a copy of the window reduced to its newest n blocks. The
// pending estimate is kept.
func (w *FeeHistoryWindow) Newest(n int) *FeeHistoryWindow {
	blocks := w.Blocks()
	if n <= 0 || n >= blocks {
		out := *w
		return &out
	}
	drop := blocks - n
	out := FeeHistoryWindow{
		OldestBlock:  w.OldestBlock + uint64(drop),
		GasUsedRatio: w.GasUsedRatio[drop:],
	}
	if len(w.BaseFeePerGas) >= drop {
		out.BaseFeePerGas = w.BaseFeePerGas[drop:]
	}
	if len(w.Reward) >= drop {
		out.Reward = w.Reward[drop:]
	}
	return &out
}

// Trend describes where the current base fee sits against the recent window.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// Priority fee tiers.
const (
	TierNormal = "normal"
	TierFast   = "fast"
	TierUrgent = "urgent"
)

// MaxFeeSuggestions is the base-fee half of Suggestions.
type MaxFeeSuggestions struct {
	BaseFeeSuggestion             string         `json:"baseFeeSuggestion"`
	BaseFeeTrend                  Trend          `json:"baseFeeTrend"`
	CurrentBaseFee                string         `json:"currentBaseFee"`
	BlocksToConfirmationByBaseFee map[int]string `json:"blocksToConfirmationByBaseFee"`
}

// MaxPriorityFeeSuggestions is the priority-fee half of Suggestions.
//
// MaxPriorityFeeSuggestions is clamped into fixed bands; the two
// confirmation mappings carry the unclamped estimates.
type MaxPriorityFeeSuggestions struct {
	MaxPriorityFeeSuggestions         map[string]string `json:"maxPriorityFeeSuggestions"`
	BlocksToConfirmationByPriorityFee map[int]string    `json:"blocksToConfirmationByPriorityFee"`
	ConfirmationTimeByPriorityFee     map[int]string    `json:"confirmationTimeByPriorityFee"`
}

// Suggestions merges both estimators' output.
type Suggestions struct {
	BaseFeeSuggestion                 string            `json:"baseFeeSuggestion"`
	BaseFeeTrend                      Trend             `json:"baseFeeTrend"`
	CurrentBaseFee                    string            `json:"currentBaseFee"`
	BlocksToConfirmationByBaseFee     map[int]string    `json:"blocksToConfirmationByBaseFee"`
	MaxPriorityFeeSuggestions         map[string]string `json:"maxPriorityFeeSuggestions"`
	BlocksToConfirmationByPriorityFee map[int]string    `json:"blocksToConfirmationByPriorityFee"`
	ConfirmationTimeByPriorityFee     map[int]string    `json:"confirmationTimeByPriorityFee"`
}

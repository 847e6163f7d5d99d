// Package feesuggest derives EIP-1559 fee suggestions from fee-history
// windows. Every function is a pure transformation of its arguments.
package feesuggest

// SuggestFees runs both estimators on their own windows and merges the
// results. Either failure aborts the whole suggestion.
func SuggestFees(baseWindow, priorityWindow *FeeHistoryWindow, p Params) (*Suggestions, error) {
	base, err := SuggestMaxBaseFee(baseWindow, p)
	if err != nil {
		return nil, err
	}
	priority, err := SuggestMaxPriorityFee(priorityWindow, p)
	if err != nil {
		return nil, err
	}
	return Merge(base, priority), nil
}

// Merge combines the two halves of a suggestion.
func Merge(base *MaxFeeSuggestions, priority *MaxPriorityFeeSuggestions) *Suggestions {
	return &Suggestions{
		BaseFeeSuggestion:                 base.BaseFeeSuggestion,
		BaseFeeTrend:                      base.BaseFeeTrend,
		CurrentBaseFee:                    base.CurrentBaseFee,
		BlocksToConfirmationByBaseFee:     base.BlocksToConfirmationByBaseFee,
		MaxPriorityFeeSuggestions:         priority.MaxPriorityFeeSuggestions,
		BlocksToConfirmationByPriorityFee: priority.BlocksToConfirmationByPriorityFee,
		ConfirmationTimeByPriorityFee:     priority.ConfirmationTimeByPriorityFee,
	}
}

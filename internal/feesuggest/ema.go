package feesuggest

// EMA returns the exponential moving average of values with smoothing factor
// 2/(length+1). The first output equals the first input.
func EMA(values []float64, length int) ([]float64, error) {
	if len(values) == 0 {
		return nil, invalidInput("ema of empty series")
	}
	if length <= 0 {
		return nil, invalidInput("ema length %d must be positive", length)
	}
	k := 2 / (float64(length) + 1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out, nil
}

// LastEMA returns only the final value of EMA(values, length), in O(1) space.
func LastEMA(values []float64, length int) (float64, error) {
	if len(values) == 0 {
		return 0, invalidInput("ema of empty series")
	}
	if length <= 0 {
		return 0, invalidInput("ema length %d must be positive", length)
	}
	k := 2 / (float64(length) + 1)
	last := values[0]
	for _, v := range values[1:] {
		last = v*k + last*(1-k)
	}
	return last, nil
}

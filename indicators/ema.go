package indicators

// EMASeries computes the exponential moving average of period over closes,
// using the standard recurrence EMA_t = alpha*P_t + (1-alpha)*EMA_{t-1}
// with alpha = 2/(period+1). The series is seeded with an SMA of the first
// `period` values. If there are fewer than `period` closes, every entry of
// the returned slice (one per close) is nil.
func EMASeries(closes []float64, period int) []*float64 {
	if period <= 0 || len(closes) < period {
		return make([]*float64, len(closes))
	}
	out := make([]*float64, len(closes))
	alpha := 2.0 / (float64(period) + 1.0)

	var sum float64
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	ema := sum / float64(period)
	out[period-1] = ptr(ema)

	for i := period; i < len(closes); i++ {
		ema = alpha*closes[i] + (1-alpha)*ema
		out[i] = ptr(ema)
	}
	return out
}

// EMA returns the final EMA(period) value over closes, or nil if history
// is insufficient.
func EMA(closes []float64, period int) *float64 {
	series := EMASeries(closes, period)
	if len(series) == 0 {
		return nil
	}
	return series[len(series)-1]
}

// SMA is the simple arithmetic mean of the last `period` values, or nil if
// fewer than `period` values are available.
func SMA(values []float64, period int) *float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	window := values[len(values)-period:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	avg := sum / float64(period)
	return &avg
}

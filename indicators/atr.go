package indicators

import "math"

// TrueRanges computes the True Range series for bars[1:], where
// TR_i = max(H-L, |H-PrevC|, |L-PrevC|). len(result) == len(bars)-1.
func TrueRanges(bars Bars) []float64 {
	if len(bars) < 2 {
		return nil
	}
	tr := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		high, low, prevClose := bars[i].High, bars[i].Low, bars[i-1].Close
		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)
		tr[i-1] = math.Max(tr1, math.Max(tr2, tr3))
	}
	return tr
}

// ATR computes the Average True Range over `period` bars using Wilder's
// smoothing: seeded with a simple average of the first `period` true
// ranges, then smoothed as ATR = (prevATR*(period-1) + TR) / period.
// Returns nil when fewer than period+1 bars are available.
func ATR(bars Bars, period int) *float64 {
	if period <= 0 || len(bars) < period+1 {
		return nil
	}
	tr := TrueRanges(bars)
	if len(tr) < period {
		return nil
	}

	var atr float64
	for i := 0; i < period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)

	for i := period; i < len(tr); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
	}
	return &atr
}

// ATRSeries computes a trailing ATR(period) value for every bar once
// enough history accumulates, one-to-one with bars (nil before that).
func ATRSeries(bars Bars, period int) []*float64 {
	out := make([]*float64, len(bars))
	if period <= 0 || len(bars) < period+1 {
		return out
	}
	tr := TrueRanges(bars)

	var atr float64
	for i := 0; i < period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)
	out[period] = ptr(atr)

	for i := period; i < len(tr); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i+1] = ptr(atr)
	}
	return out
}

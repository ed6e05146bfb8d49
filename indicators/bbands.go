package indicators

import "math"

// BollingerWidth computes Bollinger Band width = (upper - lower) / middle
// over the last `period` closes with `sigma` standard deviations. Returns
// nil when fewer than `period` closes are available or middle is zero.
func BollingerWidth(closes []float64, period int, sigma float64) *float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	window := closes[len(closes)-period:]

	var sum float64
	for _, c := range window {
		sum += c
	}
	middle := sum / float64(period)
	if middle == 0 {
		return nil
	}

	var variance float64
	for _, c := range window {
		d := c - middle
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(period))

	upper := middle + sigma*stddev
	lower := middle - sigma*stddev
	width := (upper - lower) / middle
	return &width
}

// BollingerWidthSeries computes a trailing BollingerWidth for every index
// once `period` closes have accumulated (nil before that).
func BollingerWidthSeries(closes []float64, period int, sigma float64) []*float64 {
	out := make([]*float64, len(closes))
	for i := period - 1; i < len(closes); i++ {
		if i < 0 {
			continue
		}
		out[i] = BollingerWidth(closes[:i+1], period, sigma)
	}
	return out
}

// BollingerWidthPercentile returns the percentile rank (0-100) of the most
// recent width within a trailing `window`-sample deque of widths, or nil
// if there are fewer than 2 samples to rank against.
func BollingerWidthPercentile(widths []float64, window int) *float64 {
	if len(widths) < 2 {
		return nil
	}
	sample := widths
	if len(sample) > window {
		sample = sample[len(sample)-window:]
	}
	current := sample[len(sample)-1]

	below := 0
	for _, w := range sample {
		if w <= current {
			below++
		}
	}
	pct := float64(below) / float64(len(sample)) * 100
	return &pct
}

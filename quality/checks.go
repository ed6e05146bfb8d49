package quality

import (
	"fmt"
	"math"
	"time"

	"signalengine/marketdata"
)

// minHistoryCheck: gating, at least N bars required.
type minHistoryCheck struct{ min int }

func (c minHistoryCheck) Name() string    { return "minimum_history" }
func (c minHistoryCheck) Gating() bool    { return true }
func (c minHistoryCheck) Points() float64 { return 0 }
func (c minHistoryCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	if len(bars) < c.min {
		return false, 0, fmt.Sprintf("insufficient history: %d bars, need %d", len(bars), c.min)
	}
	return true, 1, ""
}

// recencyCheck: gating, last bar must be within maxDays of now.
type recencyCheck struct{ maxDays int }

func (c recencyCheck) Name() string    { return "recency" }
func (c recencyCheck) Gating() bool    { return true }
func (c recencyCheck) Points() float64 { return 0 }
func (c recencyCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	if len(bars) == 0 {
		return false, 0, "no bars to check recency"
	}
	last := bars[len(bars)-1].Timestamp
	age := time.Since(last)
	if age > time.Duration(c.maxDays)*24*time.Hour {
		return false, 0, fmt.Sprintf("stale data: last bar %.1f days old", age.Hours()/24)
	}
	return true, 1, ""
}

// avgVolumeCheck: gating, average daily volume must clear a floor.
type avgVolumeCheck struct{ min float64 }

func (c avgVolumeCheck) Name() string    { return "average_volume" }
func (c avgVolumeCheck) Gating() bool    { return true }
func (c avgVolumeCheck) Points() float64 { return 0 }
func (c avgVolumeCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	if len(bars) == 0 {
		return false, 0, "no bars"
	}
	var sum float64
	for _, b := range bars {
		sum += b.Volume
	}
	avg := sum / float64(len(bars))
	if avg < c.min {
		return false, 0, fmt.Sprintf("average volume %.0f below floor %.0f", avg, c.min)
	}
	return true, 1, ""
}

// priceRangeCheck: gating, last close must fall within [min,max].
type priceRangeCheck struct{ min, max float64 }

func (c priceRangeCheck) Name() string    { return "price_range" }
func (c priceRangeCheck) Gating() bool    { return true }
func (c priceRangeCheck) Points() float64 { return 0 }
func (c priceRangeCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	if len(bars) == 0 {
		return false, 0, "no bars"
	}
	price := bars[len(bars)-1].Close
	if price < c.min || price > c.max {
		return false, 0, fmt.Sprintf("price %.4f outside [%.2f, %.2f]", price, c.min, c.max)
	}
	return true, 1, ""
}

// completenessCheck: weighted 20pts, fraction of bars with all fields
// non-zero/non-null must clear minPct.
type completenessCheck struct{ minPct float64 }

func (c completenessCheck) Name() string    { return "completeness" }
func (c completenessCheck) Gating() bool    { return false }
func (c completenessCheck) Points() float64 { return 20 }
func (c completenessCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	if len(bars) == 0 {
		return false, 0, "no bars"
	}
	complete := 0
	for _, b := range bars {
		if b.Open != 0 && b.High != 0 && b.Low != 0 && b.Close != 0 {
			complete++
		}
	}
	pct := float64(complete) / float64(len(bars))
	if pct < c.minPct {
		return false, pct, fmt.Sprintf("completeness %.1f%% below %.1f%%", pct*100, c.minPct*100)
	}
	return true, 1, ""
}

// ohlcValidityCheck: weighted 15pts; validity is enforced 100% post
// auto-correction (Validator.Validate corrects before running checks), so
// this always scores full points — it exists to document the contract
// and surface a reason if bars remain invalid after correction.
type ohlcValidityCheck struct{}

func (c ohlcValidityCheck) Name() string    { return "ohlc_validity" }
func (c ohlcValidityCheck) Gating() bool    { return false }
func (c ohlcValidityCheck) Points() float64 { return 15 }
func (c ohlcValidityCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	for _, b := range bars {
		if b.Low > math.Min(b.Open, b.Close) || math.Max(b.Open, b.Close) > b.High {
			return false, 0, "OHLC invariant violated after correction"
		}
	}
	return true, 1, ""
}

// correctOHLC auto-corrects bars where the fix is unambiguous: widen High
// to cover max(open,close) and Low to cover min(open,close). It never
// invents a value, only relaxes the bound that's violated.
func correctOHLC(bars []marketdata.OHLCVBar) []marketdata.OHLCVBar {
	out := make([]marketdata.OHLCVBar, len(bars))
	for i, b := range bars {
		hi, lo := math.Max(b.Open, b.Close), math.Min(b.Open, b.Close)
		if b.High < hi {
			b.High = hi
		}
		if b.Low > lo {
			b.Low = lo
		}
		out[i] = b
	}
	return out
}

// gapRatioCheck: gating, fraction of calendar trading days missing a bar
// must stay under maxRatio. Approximated by comparing observed bar count
// to the number of weekday gaps between consecutive bars.
type gapRatioCheck struct{ maxRatio float64 }

func (c gapRatioCheck) Name() string    { return "trading_day_gaps" }
func (c gapRatioCheck) Gating() bool    { return true }
func (c gapRatioCheck) Points() float64 { return 0 }
func (c gapRatioCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	if len(bars) < 2 {
		return true, 1, ""
	}
	var gaps, expected int
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Timestamp
		days := int(bars[i].Timestamp.Sub(prev).Hours() / 24)
		if days <= 0 {
			days = 1
		}
		missing := 0
		for k := 1; k < days; k++ {
			if wd := prev.AddDate(0, 0, k).Weekday(); wd != time.Saturday && wd != time.Sunday {
				missing++
			}
		}
		expected += 1 + missing
		gaps += missing
	}
	if expected == 0 {
		return true, 1, ""
	}
	ratio := float64(gaps) / float64(expected)
	if ratio > c.maxRatio {
		return false, 0, fmt.Sprintf("gap ratio %.1f%% exceeds %.1f%%", ratio*100, c.maxRatio*100)
	}
	return true, 1, ""
}

// priceStabilityCheck: weighted 25pts, 1 - stddev(returns)/0.1 clamped [0,1].
type priceStabilityCheck struct{ min float64 }

func (c priceStabilityCheck) Name() string    { return "price_stability" }
func (c priceStabilityCheck) Gating() bool    { return false }
func (c priceStabilityCheck) Points() float64 { return 25 }
func (c priceStabilityCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	returns := dailyReturns(bars)
	if len(returns) < 2 {
		return true, 1, ""
	}
	stddev := stddevOf(returns)
	score := clamp01(1 - stddev/0.1)
	if score < c.min {
		return false, score, fmt.Sprintf("price stability %.2f below %.2f", score, c.min)
	}
	return true, score, ""
}

// volumeConsistencyCheck: weighted 25pts, 1 - CV/3 (coefficient of
// variation of volume) clamped [0,1].
type volumeConsistencyCheck struct{ min float64 }

func (c volumeConsistencyCheck) Name() string    { return "volume_consistency" }
func (c volumeConsistencyCheck) Gating() bool    { return false }
func (c volumeConsistencyCheck) Points() float64 { return 25 }
func (c volumeConsistencyCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	if len(bars) == 0 {
		return true, 1, ""
	}
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}
	mean := meanOf(volumes)
	if mean == 0 {
		return false, 0, "zero mean volume"
	}
	cv := stddevOf(volumes) / mean
	score := clamp01(1 - cv/3)
	if score < c.min {
		return false, score, fmt.Sprintf("volume consistency %.2f below %.2f", score, c.min)
	}
	return true, score, ""
}

// suspiciousMovementCheck: gating, flags single-day |return|>0.5 or
// paired return>0.2 with a 5x volume change, must stay under maxRatio of bars.
type suspiciousMovementCheck struct{ maxRatio float64 }

func (c suspiciousMovementCheck) Name() string    { return "suspicious_movements" }
func (c suspiciousMovementCheck) Gating() bool    { return true }
func (c suspiciousMovementCheck) Points() float64 { return 0 }
func (c suspiciousMovementCheck) Evaluate(bars []marketdata.OHLCVBar) (bool, float64, string) {
	if len(bars) < 2 {
		return true, 1, ""
	}
	suspicious := 0
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		if prevClose == 0 {
			continue
		}
		r := (bars[i].Close - prevClose) / prevClose
		volChange := math.Inf(1)
		if bars[i-1].Volume > 0 {
			volChange = bars[i].Volume / bars[i-1].Volume
		}
		if math.Abs(r) > 0.5 || (r > 0.2 && volChange > 5) {
			suspicious++
		}
	}
	ratio := float64(suspicious) / float64(len(bars)-1)
	if ratio >= c.maxRatio {
		return false, 0, fmt.Sprintf("suspicious movement ratio %.2f%% exceeds %.2f%%", ratio*100, c.maxRatio*100)
	}
	return true, 1, ""
}

func dailyReturns(bars []marketdata.OHLCVBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close == 0 {
			continue
		}
		returns = append(returns, (bars[i].Close-bars[i-1].Close)/bars[i-1].Close)
	}
	return returns
}

func meanOf(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func stddevOf(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	mean := meanOf(vs)
	var variance float64
	for _, v := range vs {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(vs)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

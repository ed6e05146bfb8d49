// Package quality implements the per-symbol data-quality gate (spec C4):
// an ordered pipeline of checks, each either gating (reject outright) or
// weighted (contributes points to data_quality_score), mirroring the
// teacher's SignalFilter pipeline shape (app/signal_filter.go) generalized
// from signal-level filtering to raw OHLCV validation.
package quality

import (
	"signalengine/marketdata"
)

// Check is one data-quality rule. Gating checks reject the symbol
// outright on failure; weighted checks contribute Points (out of 100,
// pro-rated by Score) toward data_quality_score regardless of pass/fail.
type Check interface {
	Name() string
	Gating() bool
	Points() float64
	Evaluate(bars []marketdata.OHLCVBar) (pass bool, score float64, reason string)
}

// Config controls thresholds for the default check set (spec §4.4 table).
type Config struct {
	MinHistoryBars      int
	MaxRecencyDays       int
	MinAvgDailyVolume    float64
	MinPrice             float64
	MaxPrice             float64
	MinCompletenessPct   float64
	MaxGapRatio          float64
	MinPriceStability    float64
	MinVolumeConsistency float64
	MaxSuspiciousRatio   float64
}

// DefaultConfig matches the spec's example thresholds.
func DefaultConfig() Config {
	return Config{
		MinHistoryBars:       90,
		MaxRecencyDays:       5,
		MinAvgDailyVolume:    10_000,
		MinPrice:             0.5,
		MaxPrice:             10_000,
		MinCompletenessPct:   0.85,
		MaxGapRatio:          0.10,
		MinPriceStability:    0.2,
		MinVolumeConsistency: 0.3,
		MaxSuspiciousRatio:   0.01,
	}
}

// Result is the outcome of running the Validator over one symbol's bars.
type Result struct {
	Pass             bool
	DataQualityScore float64 // [0,1]
	FailedReasons    []string
	CorrectedBars    []marketdata.OHLCVBar
}

// Validator runs an ordered list of Checks over a symbol's bar history.
type Validator struct {
	checks []Check
}

// New builds a Validator from cfg's default check set, in spec §4.4's
// table order.
func New(cfg Config) *Validator {
	return &Validator{
		checks: []Check{
			minHistoryCheck{cfg.MinHistoryBars},
			recencyCheck{cfg.MaxRecencyDays},
			avgVolumeCheck{cfg.MinAvgDailyVolume},
			priceRangeCheck{cfg.MinPrice, cfg.MaxPrice},
			completenessCheck{cfg.MinCompletenessPct},
			ohlcValidityCheck{},
			gapRatioCheck{cfg.MaxGapRatio},
			priceStabilityCheck{cfg.MinPriceStability},
			volumeConsistencyCheck{cfg.MinVolumeConsistency},
			suspiciousMovementCheck{cfg.MaxSuspiciousRatio},
		},
	}
}

// Validate runs every check in order. A failing gating check rejects the
// series outright (Pass=false, DataQualityScore 0) but does not stop the
// remaining checks, so every failing reason is collected; weighted checks
// always run and accumulate points
// regardless of pass/fail, and OHLC validity auto-corrects where safe.
func (v *Validator) Validate(bars []marketdata.OHLCVBar) Result {
	result := Result{Pass: true, CorrectedBars: correctOHLC(bars)}

	var earnedPoints, totalWeighted float64
	for _, c := range v.checks {
		pass, score, reason := c.Evaluate(result.CorrectedBars)

		if c.Gating() {
			if !pass {
				result.Pass = false
				result.FailedReasons = append(result.FailedReasons, reason)
			}
			continue
		}

		totalWeighted += c.Points()
		earnedPoints += c.Points() * score
		if reason != "" && !pass {
			result.FailedReasons = append(result.FailedReasons, reason)
		}
	}

	if totalWeighted > 0 {
		result.DataQualityScore = earnedPoints / totalWeighted
	} else {
		result.DataQualityScore = 1.0
	}
	if !result.Pass {
		result.DataQualityScore = 0
	}
	return result
}

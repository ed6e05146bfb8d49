// Package scoring implements the composite scorer (spec C5): a weighted
// sum of per-component scores plus risk adjustments, grade, and
// recommendation mapping. Directly generalizes the teacher's weighted,
// capped, breakdown-logging SignalScorecard (app/scorecard.go) from a
// fixed four-category/100-point card to the spec's per-strategy
// configurable weight map over [0,1] component scores.
package scoring

import "signalengine/config"

// Components holds the component scores a detector produced for one
// candidate, in [0,1]. A missing component (nil) has its weight
// redistributed pro-rata across the present ones (spec §4.5).
type Components struct {
	Volume            *float64
	Momentum          *float64
	RelativeStrength  *float64
	RiskLiquidity     *float64
	Fundamental       *float64
}

// RiskInputs carries the signal's risk-adjustment inputs.
type RiskInputs struct {
	Country        string
	Price          float64
	VolumeRatio    float64 // current volume / baseline average volume
	SpreadConfidence float64
}

// RiskConfig controls the penalty factors spec §4.5 names as defaults.
type RiskConfig struct {
	HighRiskCountries    map[string]bool
	HighRiskPenalty      float64 // default 0.9
	VolumeCeiling        float64 // default 10.0
	PumpDumpPriceCeiling float64 // default 0.5
	PumpDumpPenalty      float64 // default 0.8
	SpreadConfidenceMin  float64 // default 0.8
	SpreadPenalty        float64 // default 1.0 (no reduction unless configured)
}

// DefaultRiskConfig matches spec §4.5's stated defaults.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		HighRiskCountries:    map[string]bool{},
		HighRiskPenalty:      0.9,
		VolumeCeiling:        10.0,
		PumpDumpPriceCeiling: 0.5,
		PumpDumpPenalty:      0.8,
		SpreadConfidenceMin:  0.8,
		SpreadPenalty:        1.0,
	}
}

// Result is the Scorer's output for one candidate.
type Result struct {
	OverallScore     float64
	Grade            string // S, A, B, C, D, F
	Recommendation   string // STRONG_BUY, BUY, WATCH, HOLD, SKIP
	Breakdown        map[string]float64
	PumpDumpWarning  bool
	HighRiskCountry  bool
	SpreadTagged     bool
}

// Scorer computes the composite score, grade, and recommendation for a
// strategy's candidates using that strategy's weight map.
type Scorer struct {
	weights config.StrategyWeights
	risk    RiskConfig
}

func New(weights config.StrategyWeights, risk RiskConfig) *Scorer {
	return &Scorer{weights: weights, risk: risk}
}

// Score computes the composite for one candidate under `strategy`'s
// weights (spec §4.5: weights supplied per strategy).
func (s *Scorer) Score(strategy string, comps Components, risk RiskInputs) Result {
	weights := s.weights[strategy]
	breakdown := make(map[string]float64)

	present := map[string]*float64{
		"volume":            comps.Volume,
		"momentum":          comps.Momentum,
		"relative_strength": comps.RelativeStrength,
		"risk_liquidity":    comps.RiskLiquidity,
		"fundamental":       comps.Fundamental,
	}

	var totalWeight float64
	for name, score := range present {
		if score == nil {
			continue
		}
		if w, ok := weights[name]; ok {
			totalWeight += w
		}
	}

	var overall float64
	if totalWeight > 0 {
		for name, score := range present {
			if score == nil {
				continue
			}
			w, ok := weights[name]
			if !ok {
				continue
			}
			redistributed := w / totalWeight
			contribution := redistributed * *score
			breakdown[name] = contribution
			overall += contribution
		}
	}

	result := Result{Breakdown: breakdown}

	highRisk := s.risk.HighRiskCountries[risk.Country]
	result.HighRiskCountry = highRisk
	if highRisk {
		overall *= s.risk.HighRiskPenalty
	}

	if risk.VolumeRatio >= s.risk.VolumeCeiling && risk.Price < s.risk.PumpDumpPriceCeiling && highRisk {
		result.PumpDumpWarning = true
		overall *= s.risk.PumpDumpPenalty
	}

	if risk.SpreadConfidence >= s.risk.SpreadConfidenceMin {
		result.SpreadTagged = true
		overall *= s.risk.SpreadPenalty
	}

	overall = clamp01(overall)
	result.OverallScore = overall
	result.Grade = grade(overall)
	result.Recommendation = recommendation(overall, result.PumpDumpWarning)
	return result
}

// grade maps overall score to a letter grade per spec I5.
func grade(score float64) string {
	switch {
	case score >= 0.90:
		return "S"
	case score >= 0.80:
		return "A"
	case score >= 0.70:
		return "B"
	case score >= 0.60:
		return "C"
	case score >= 0.50:
		return "D"
	default:
		return "F"
	}
}

// recommendation maps overall score and the pump/dump flag to a
// recommendation per spec §4.5's default table.
func recommendation(score float64, pumpDump bool) string {
	if pumpDump {
		return "SKIP"
	}
	switch {
	case score >= 0.85:
		return "STRONG_BUY"
	case score >= 0.70:
		return "BUY"
	case score >= 0.55:
		return "WATCH"
	default:
		return "HOLD"
	}
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

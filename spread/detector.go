// Package spread annotates unusual-options candidates within a scan
// batch as likely multi-leg spreads (spec C11). Grounded on the
// teacher's CorrelationAnalyzer (app/correlation_analyzer.go): same
// "group candidates, examine all pairs, score by correlation" shape,
// generalized from cross-stock price-return correlation to cross-leg
// volume/premium correlation within one underlying's options chain.
package spread

import (
	"math"

	"signalengine/detect"
)

const (
	DefaultMinSpreadConfidence = 0.80
	DefaultMinIndicators       = 3
)

// Config controls the confidence/indicator thresholds spec §4.11 names.
type Config struct {
	MinSpreadConfidence float64
	MinIndicators       int
}

func DefaultConfig() Config {
	return Config{MinSpreadConfidence: DefaultMinSpreadConfidence, MinIndicators: DefaultMinIndicators}
}

// Annotation is the spread-flag result for one leg. The orchestrator uses
// only the presence of a leg's annotation, to set that candidate's
// SpreadTagged flag; the annotation's fields are not copied onto the
// CandidateSignal or its OptionsPayload.
type Annotation struct {
	IsLikelySpread     bool
	SpreadType         string // vertical, calendar
	MatchedLegSymbols  []string
	SpreadStrikeWidth  float64
	SpreadNetPremium   float64
	Reason             string
}

// Detector groups a batch of unusual-options candidates by underlying
// and flags likely spread legs.
type Detector struct {
	cfg Config
}

func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect returns a map from a candidate's option symbol to its
// Annotation, for every leg that was flagged as a likely spread.
func (d *Detector) Detect(candidates []detect.CandidateSignal) map[string]Annotation {
	byUnderlying := make(map[string][]detect.CandidateSignal)
	for _, c := range candidates {
		if c.Strategy != "unusual_options" {
			continue
		}
		byUnderlying[c.Symbol] = append(byUnderlying[c.Symbol], c)
	}

	out := make(map[string]Annotation)
	for _, legs := range byUnderlying {
		d.detectWithinUnderlying(legs, out)
	}
	return out
}

func (d *Detector) detectWithinUnderlying(legs []detect.CandidateSignal, out map[string]Annotation) {
	for i := 0; i < len(legs); i++ {
		pi, ok := legs[i].Payload.(detect.OptionsPayload)
		if !ok {
			continue
		}
		for j := i + 1; j < len(legs); j++ {
			pj, ok := legs[j].Payload.(detect.OptionsPayload)
			if !ok {
				continue
			}

			spreadType, strikeWidth, matched := classify(pi, pj)
			if !matched {
				continue
			}

			volumeCorr := closenessScore(pi.VolumeToOIRatio, pj.VolumeToOIRatio)
			premiumCorr := closenessScore(pi.PremiumFlow, pj.PremiumFlow)
			indicators := 0
			if volumeCorr >= 0.7 {
				indicators++
			}
			if premiumCorr >= 0.7 {
				indicators++
			}
			if spreadType == "vertical" {
				indicators++
			}
			if pi.DaysToExpiry == pj.DaysToExpiry {
				indicators++
			}

			confidence := (volumeCorr + premiumCorr) / 2
			if confidence < d.cfg.MinSpreadConfidence || indicators < d.cfg.MinIndicators {
				continue
			}

			netPremium := math.Abs(pi.PremiumFlow - pj.PremiumFlow)
			reason := "volume and premium flow closely matched across legs"

			out[pi.OptionSymbol] = Annotation{
				IsLikelySpread:    true,
				SpreadType:        spreadType,
				MatchedLegSymbols: []string{pj.OptionSymbol},
				SpreadStrikeWidth: strikeWidth,
				SpreadNetPremium:  netPremium,
				Reason:            reason,
			}
			out[pj.OptionSymbol] = Annotation{
				IsLikelySpread:    true,
				SpreadType:        spreadType,
				MatchedLegSymbols: []string{pi.OptionSymbol},
				SpreadStrikeWidth: strikeWidth,
				SpreadNetPremium:  netPremium,
				Reason:            reason,
			}
		}
	}
}

// classify reports whether two legs form a recognizable spread shape:
// vertical (same expiry, different strikes) or calendar (same strike,
// different expiries).
func classify(a, b detect.OptionsPayload) (spreadType string, strikeWidth float64, matched bool) {
	sameExpiry := a.Expiry.Equal(b.Expiry)
	sameStrike := a.Strike == b.Strike
	switch {
	case sameExpiry && !sameStrike:
		return "vertical", math.Abs(a.Strike - b.Strike), true
	case sameStrike && !sameExpiry:
		return "calendar", 0, true
	default:
		return "", 0, false
	}
}

// closenessScore turns two magnitudes into a [0,1] similarity: 1.0 when
// equal, decaying as their relative gap grows.
func closenessScore(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	maxV := math.Max(math.Abs(a), math.Abs(b))
	if maxV == 0 {
		return 1
	}
	diff := math.Abs(a-b) / maxV
	score := 1 - diff
	if score < 0 {
		return 0
	}
	return score
}

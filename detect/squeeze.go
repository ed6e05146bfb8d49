package detect

import (
	"log"
	"time"

	"signalengine/indicators"
	"signalengine/marketdata"
	"signalengine/scoring"
)

// SqueezeDetector flags symbols whose Bollinger Band width has compressed
// into a low percentile for several consecutive bars — a classic
// pre-breakout setup (spec §4.6).
type SqueezeDetector struct {
	PercentileThreshold float64 // e.g. 20: width percentile must be <= this
	MinConsecutiveBars  int
}

// NewSqueezeDetector returns a detector using spec §4.6's example
// thresholds (percentile <= 20 for >= 3 consecutive bars).
func NewSqueezeDetector() *SqueezeDetector {
	return &SqueezeDetector{PercentileThreshold: 20, MinConsecutiveBars: 3}
}

func (d *SqueezeDetector) Strategy() string { return "squeeze" }

func (d *SqueezeDetector) Detect(ticker marketdata.TickerInfo, bars []marketdata.OHLCVBar, snapshots []indicators.Snapshot, _ Ancillary) []CandidateSignal {
	if len(bars) == 0 || len(snapshots) != len(bars) {
		log.Printf("🔍 squeeze: skipping %s, mismatched bars/snapshots", ticker.Symbol)
		return nil
	}

	days := 0
	for i := len(snapshots) - 1; i >= 0; i-- {
		pct := snapshots[i].BBWidthPercentile
		if pct == nil || *pct > d.PercentileThreshold {
			break
		}
		days++
	}
	if days < d.MinConsecutiveBars {
		return nil
	}

	last := snapshots[len(snapshots)-1]
	if last.BBWidthPercentile == nil {
		return nil
	}
	percentile := *last.BBWidthPercentile
	squeezeDepth := 100 - percentile

	close := bars[len(bars)-1].Close
	var breakoutProximity float64
	if last.BBWidth != nil && *last.BBWidth > 0 {
		breakoutProximity = *last.BBWidth
	}

	tightness := clamp01(squeezeDepth / 100)

	var trendAlignment float64
	if last.EMA20 != nil && last.EMA50 != nil {
		if *last.EMA20 > *last.EMA50 {
			trendAlignment = 1.0
		} else {
			trendAlignment = 0.3
		}
	}

	volConfirmation := clamp01(indicators.VolumeConsistencyScore(bars, 10, 1.2))

	candidate := CandidateSignal{
		Symbol:     ticker.Symbol,
		Strategy:   d.Strategy(),
		ClosePrice: close,
		Components: scoring.Components{
			Volume:           ptr(volConfirmation),
			Momentum:         ptr(trendAlignment),
			RelativeStrength: ptr(tightness),
		},
		Risk: scoring.RiskInputs{
			Country: ticker.Country,
			Price:   close,
		},
		Payload: SqueezePayload{
			BBWidthPercentile: percentile,
			SqueezeDepth:      squeezeDepth,
			DaysInSqueeze:     days,
			BreakoutProximity: breakoutProximity,
		},
		DetectedAt: time.Now(),
	}
	return []CandidateSignal{candidate}
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

func ptr(f float64) *float64 { return &f }

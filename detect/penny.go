package detect

import (
	"log"
	"time"

	"signalengine/indicators"
	"signalengine/marketdata"
	"signalengine/scoring"
)

// PennyDetector flags penny-stock explosions: a low-priced symbol
// breaking out on unusually heavy volume (spec §4.6).
type PennyDetector struct {
	MinPrice          float64
	MaxPrice          float64
	MinDollarVolume   float64
	MinVolumeRatio    float64
}

// NewPennyDetector returns a detector using spec §4.6's example bounds.
func NewPennyDetector() *PennyDetector {
	return &PennyDetector{MinPrice: 0.1, MaxPrice: 5, MinDollarVolume: 500_000, MinVolumeRatio: 2.0}
}

func (d *PennyDetector) Strategy() string { return "penny_explosion" }

func (d *PennyDetector) Detect(ticker marketdata.TickerInfo, bars []marketdata.OHLCVBar, snapshots []indicators.Snapshot, anc Ancillary) []CandidateSignal {
	if len(bars) < 20 {
		log.Printf("🔍 penny_explosion: skipping %s, insufficient history", ticker.Symbol)
		return nil
	}

	last := bars[len(bars)-1]
	if last.Close < d.MinPrice || last.Close > d.MaxPrice {
		return nil
	}
	dollarVolume := last.Close * last.Volume
	if dollarVolume < d.MinDollarVolume {
		return nil
	}

	volumeRatio := volumeRatio(bars, 20)
	consolidation := indicators.DetectConsolidation(bars, 5, 20, 8.0)
	higherLows := indicators.DetectHigherLows(bars, 20)

	if volumeRatio < d.MinVolumeRatio && !consolidation.InConsolidation && !higherLows {
		return nil
	}

	volumeScore := clamp01(volumeRatio / (d.MinVolumeRatio * 2))

	closes := closesOf(bars)
	chg5 := priceChange(closes, 5)
	chg10 := priceChange(closes, 10)
	chg20 := priceChange(closes, 20)
	momentumScore := clamp01((chg5*0.5 + chg10*0.3 + chg20*0.2) / 50)

	relStrength := relativeStrength(closes, closesOf(anc.BenchmarkBars))

	candidate := CandidateSignal{
		Symbol:     ticker.Symbol,
		Strategy:   d.Strategy(),
		ClosePrice: last.Close,
		Components: scoring.Components{
			Volume:           ptr(volumeScore),
			Momentum:         ptr(momentumScore),
			RelativeStrength: ptr(relStrength),
			RiskLiquidity:    ptr(clamp01(dollarVolume / (d.MinDollarVolume * 5))),
		},
		Risk: scoring.RiskInputs{
			Country:     ticker.Country,
			Price:       last.Close,
			VolumeRatio: volumeRatio,
		},
		Payload: PennyPayload{
			VolumeRatio:     volumeRatio,
			InConsolidation: consolidation.InConsolidation,
			HigherLows:      higherLows,
			PriceChange5d:   chg5,
			PriceChange10d:  chg10,
			PriceChange20d:  chg20,
		},
		DetectedAt: time.Now(),
	}
	return []CandidateSignal{candidate}
}

func volumeRatio(bars []marketdata.OHLCVBar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}
	current := bars[len(bars)-1].Volume
	baseline := bars[len(bars)-1-period : len(bars)-1]
	var sum float64
	for _, b := range baseline {
		sum += b.Volume
	}
	avg := sum / float64(len(baseline))
	if avg == 0 {
		return 0
	}
	return current / avg
}

func closesOf(bars []marketdata.OHLCVBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func priceChange(closes []float64, lookback int) float64 {
	if len(closes) <= lookback {
		return 0
	}
	prev := closes[len(closes)-1-lookback]
	if prev == 0 {
		return 0
	}
	return (closes[len(closes)-1] - prev) / prev * 100
}

// relativeStrength compares a symbol's return to a benchmark's return
// over the last 20 bars, scaled into [0,1] where 0.5 is "matches the
// benchmark". Either history shorter than 21 closes yields 0.5.
func relativeStrength(closes, benchmarkCloses []float64) float64 {
	window := 20
	if len(closes) < window+1 || len(benchmarkCloses) < window+1 {
		return 0.5
	}
	symbolReturn := priceChange(closes, window)
	benchmarkReturn := priceChange(benchmarkCloses, window)
	diff := symbolReturn - benchmarkReturn
	return clamp01(0.5 + diff/100)
}

package detect

import (
	"log"
	"time"

	"signalengine/indicators"
	"signalengine/marketdata"
	"signalengine/scoring"
)

// OptionsDetector flags unusual options flow: contracts trading at many
// multiples of open interest, with urgency suggested by time-to-expiry
// and aggressive order flow (spec §4.6).
type OptionsDetector struct {
	MinVolumeToOIRatio    float64
	MinPremiumFlow        float64
	MinDaysToExpiry       int
	MaxDaysToExpiry       int
	MinAggressiveOrderPct float64
}

// NewOptionsDetector returns a detector using spec §4.6's example bounds.
func NewOptionsDetector() *OptionsDetector {
	return &OptionsDetector{
		MinVolumeToOIRatio:    3.0,
		MinPremiumFlow:        50_000,
		MinDaysToExpiry:       7,
		MaxDaysToExpiry:       45,
		MinAggressiveOrderPct: 0.65,
	}
}

func (d *OptionsDetector) Strategy() string { return "unusual_options" }

func (d *OptionsDetector) Detect(ticker marketdata.TickerInfo, bars []marketdata.OHLCVBar, snapshots []indicators.Snapshot, anc Ancillary) []CandidateSignal {
	if len(anc.OptionsChain) == 0 {
		return nil
	}
	if len(bars) == 0 {
		log.Printf("🔍 unusual_options: skipping %s, no bars", ticker.Symbol)
		return nil
	}
	close := bars[len(bars)-1].Close

	var candidates []CandidateSignal
	now := time.Now()
	for _, contract := range anc.OptionsChain {
		if contract.OpenInterest <= 0 {
			continue
		}
		volToOI := float64(contract.Volume) / float64(contract.OpenInterest)
		if volToOI < d.MinVolumeToOIRatio {
			continue
		}
		premiumFlow := contract.PremiumFlow
		if premiumFlow == 0 {
			premiumFlow = float64(contract.Volume) * contract.LastPrice * 100
		}
		if premiumFlow < d.MinPremiumFlow {
			continue
		}
		daysToExpiry := contract.DaysToExpiry
		if daysToExpiry == 0 {
			daysToExpiry = int(contract.Expiry.Sub(now).Hours() / 24)
		}
		if daysToExpiry < d.MinDaysToExpiry || daysToExpiry > d.MaxDaysToExpiry {
			continue
		}
		aggressivePct := contract.AggressiveOrderPct
		if aggressivePct < d.MinAggressiveOrderPct {
			continue
		}

		premiumScore := clamp01(premiumFlow / (d.MinPremiumFlow * 4))
		urgencyScore := clamp01(1 - float64(daysToExpiry-d.MinDaysToExpiry)/float64(d.MaxDaysToExpiry-d.MinDaysToExpiry))
		aggressionScore := clamp01(aggressivePct)
		suspicion := clamp01(premiumScore*0.4 + urgencyScore*0.3 + aggressionScore*0.3)

		candidates = append(candidates, CandidateSignal{
			Symbol:     ticker.Symbol,
			Strategy:   d.Strategy(),
			ClosePrice: close,
			Components: scoring.Components{
				Volume:        ptr(clamp01(volToOI / (d.MinVolumeToOIRatio * 3))),
				Momentum:      ptr(urgencyScore),
				RiskLiquidity: ptr(aggressionScore),
			},
			Risk: scoring.RiskInputs{
				Country: ticker.Country,
				Price:   close,
			},
			Payload: OptionsPayload{
				OptionSymbol:       contract.OptionSymbol,
				Strike:             contract.Strike,
				Expiry:             contract.Expiry,
				DaysToExpiry:       daysToExpiry,
				VolumeToOIRatio:    volToOI,
				PremiumFlow:        premiumFlow,
				AggressiveOrderPct: aggressivePct,
				SuspicionScore:     suspicion,
			},
			DetectedAt: now,
		})
	}
	return candidates
}

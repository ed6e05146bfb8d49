package detect

import (
	"time"

	"signalengine/indicators"
	"signalengine/marketdata"
	"signalengine/scoring"
)

// RedditDetector flags tickers accumulating heavy, positively-skewed
// mention volume over a short window — a retail-attention signal (spec
// §4.6). It never inspects bars/snapshots directly; everything it needs
// arrives via Ancillary.RedditMentions.
type RedditDetector struct {
	MinMentions        int
	MinAvgSentiment    float64
	MinQualityMentions int
	Window             time.Duration
}

// NewRedditDetector returns a detector using spec §4.6's example
// thresholds: at least 20 mentions in the window, average sentiment
// positive, at least 5 quality-filtered mentions.
func NewRedditDetector() *RedditDetector {
	return &RedditDetector{
		MinMentions:        20,
		MinAvgSentiment:    0.1,
		MinQualityMentions: 5,
		Window:             24 * time.Hour,
	}
}

func (d *RedditDetector) Strategy() string { return "reddit_opportunity" }

func (d *RedditDetector) Detect(ticker marketdata.TickerInfo, bars []marketdata.OHLCVBar, snapshots []indicators.Snapshot, anc Ancillary) []CandidateSignal {
	if len(anc.RedditMentions) == 0 {
		return nil
	}

	cutoff := time.Now().Add(-d.Window)
	var (
		count          int
		qualityCount   int
		sentimentTotal float64
	)
	for _, m := range anc.RedditMentions {
		if m.Timestamp.Before(cutoff) {
			continue
		}
		count++
		sentimentTotal += m.Sentiment
		if m.Sentiment > 0.3 {
			qualityCount++
		}
	}
	if count < d.MinMentions || qualityCount < d.MinQualityMentions {
		return nil
	}
	avgSentiment := sentimentTotal / float64(count)
	if avgSentiment < d.MinAvgSentiment {
		return nil
	}

	var close float64
	if len(bars) > 0 {
		close = bars[len(bars)-1].Close
	}

	volumeScore := clamp01(float64(count) / float64(d.MinMentions*3))
	sentimentScore := clamp01((avgSentiment + 1) / 2)
	qualityScore := clamp01(float64(qualityCount) / float64(d.MinQualityMentions*3))
	composite := clamp01(volumeScore*0.4 + sentimentScore*0.35 + qualityScore*0.25)

	candidate := CandidateSignal{
		Symbol:     ticker.Symbol,
		Strategy:   d.Strategy(),
		ClosePrice: close,
		Components: scoring.Components{
			Volume:   ptr(volumeScore),
			Momentum: ptr(sentimentScore),
		},
		Risk: scoring.RiskInputs{
			Country: ticker.Country,
			Price:   close,
		},
		Payload: RedditPayload{
			MentionVolume:     count,
			SentimentPolarity: avgSentiment,
			QualityMentions:   qualityCount,
			CompositeScore:    composite,
		},
		DetectedAt: time.Now(),
	}
	return []CandidateSignal{candidate}
}

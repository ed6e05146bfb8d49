package detect

import (
	"testing"
	"time"

	"signalengine/indicators"
	"signalengine/marketdata"
)

func makeBars(n int, start, step float64) []marketdata.OHLCVBar {
	bars := make([]marketdata.OHLCVBar, n)
	price := start
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price += step
		bars[i] = marketdata.OHLCVBar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    100000,
		}
	}
	return bars
}

func TestPennyDetector_SkipsOutOfPriceBand(t *testing.T) {
	bars := makeBars(30, 50, 0.1) // well above $5
	ticker := marketdata.TickerInfo{Symbol: "AAPL"}
	snaps := indicators.Snapshots(bars)

	d := NewPennyDetector()
	got := d.Detect(ticker, bars, snaps, Ancillary{})
	if len(got) != 0 {
		t.Fatalf("expected no candidates for out-of-band price, got %d", len(got))
	}
}

func TestPennyDetector_DetectsVolumeSpikeWithinBand(t *testing.T) {
	bars := makeBars(30, 1, 0.02)
	// Spike the last bar's volume well above the 20-bar baseline.
	bars[len(bars)-1].Volume = 1_000_000
	bars[len(bars)-1].Close = 2.0
	bars[len(bars)-1].Open = 1.8
	bars[len(bars)-1].High = 2.1
	bars[len(bars)-1].Low = 1.75

	ticker := marketdata.TickerInfo{Symbol: "PENY"}
	snaps := indicators.Snapshots(bars)

	d := NewPennyDetector()
	got := d.Detect(ticker, bars, snaps, Ancillary{})
	if len(got) != 1 {
		t.Fatalf("expected one candidate for volume-spike setup, got %d", len(got))
	}
	payload, ok := got[0].Payload.(PennyPayload)
	if !ok {
		t.Fatalf("expected PennyPayload, got %T", got[0].Payload)
	}
	if payload.VolumeRatio < 2.0 {
		t.Fatalf("expected volume ratio >= 2.0, got %v", payload.VolumeRatio)
	}
}

func TestOptionsDetector_RequiresAllThresholds(t *testing.T) {
	bars := makeBars(5, 100, 0.5)
	ticker := marketdata.TickerInfo{Symbol: "MSFT"}

	chain := []marketdata.OptionsContract{
		{
			OptionSymbol:       "MSFT260101C00200000",
			Strike:             200,
			Expiry:             time.Now().Add(20 * 24 * time.Hour),
			Volume:             1000,
			OpenInterest:       100, // 10x ratio
			LastPrice:          5,
			DaysToExpiry:       20,
			AggressiveOrderPct: 0.8,
			PremiumFlow:        500_000,
		},
		{
			// Fails the aggressive-order threshold.
			OptionSymbol:       "MSFT260101P00190000",
			Strike:             190,
			Expiry:             time.Now().Add(20 * 24 * time.Hour),
			Volume:             1000,
			OpenInterest:       100,
			LastPrice:          5,
			DaysToExpiry:       20,
			AggressiveOrderPct: 0.2,
			PremiumFlow:        500_000,
		},
	}

	d := NewOptionsDetector()
	got := d.Detect(ticker, bars, nil, Ancillary{OptionsChain: chain})
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate to pass thresholds, got %d", len(got))
	}
	payload := got[0].Payload.(OptionsPayload)
	if payload.OptionSymbol != "MSFT260101C00200000" {
		t.Fatalf("expected the aggressive contract to survive, got %s", payload.OptionSymbol)
	}
}

func TestOptionsDetector_NoChainYieldsNoCandidates(t *testing.T) {
	bars := makeBars(5, 100, 0.5)
	d := NewOptionsDetector()
	got := d.Detect(marketdata.TickerInfo{Symbol: "MSFT"}, bars, nil, Ancillary{})
	if got != nil {
		t.Fatalf("expected nil candidates with no options chain, got %v", got)
	}
}

func TestRedditDetector_RequiresMinimumMentionsAndSentiment(t *testing.T) {
	bars := makeBars(5, 10, 0.1)
	ticker := marketdata.TickerInfo{Symbol: "GME"}

	var mentions []RedditMention
	for i := 0; i < 25; i++ {
		mentions = append(mentions, RedditMention{Timestamp: time.Now(), Sentiment: 0.5})
	}

	d := NewRedditDetector()
	got := d.Detect(ticker, bars, nil, Ancillary{RedditMentions: mentions})
	if len(got) != 1 {
		t.Fatalf("expected one candidate when mention/sentiment thresholds are met, got %d", len(got))
	}
	payload := got[0].Payload.(RedditPayload)
	if payload.MentionVolume != 25 {
		t.Fatalf("expected mention volume 25, got %d", payload.MentionVolume)
	}
}

func TestRedditDetector_IgnoresStaleMentions(t *testing.T) {
	bars := makeBars(5, 10, 0.1)
	ticker := marketdata.TickerInfo{Symbol: "GME"}

	var mentions []RedditMention
	for i := 0; i < 25; i++ {
		mentions = append(mentions, RedditMention{Timestamp: time.Now().Add(-48 * time.Hour), Sentiment: 0.5})
	}

	d := NewRedditDetector()
	got := d.Detect(ticker, bars, nil, Ancillary{RedditMentions: mentions})
	if len(got) != 0 {
		t.Fatalf("expected no candidates when all mentions are outside the window, got %d", len(got))
	}
}

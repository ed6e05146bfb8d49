// Package detect implements the pluggable per-strategy detectors (spec
// C6): each consumes a symbol's ticker info, bars, and indicator
// snapshots and emits zero or more CandidateSignal values carrying
// component scores for the Scorer. Grounded on the teacher's
// PatternDetector/RegimeDetector/BaselineCalculator shape
// (app/pattern_detector.go, app/regime_detector.go,
// app/baseline_calculator.go): "fetch history, compute stats, emit
// candidates with a breakdown," generalized from a ticker-driven
// background loop to pure, CPU-only, side-effect-free functions (spec
// §4.6: "calls to the fetcher happen upstream").
package detect

import (
	"time"

	"signalengine/indicators"
	"signalengine/marketdata"
	"signalengine/scoring"
)

// CandidateSignal is one detector's output for one symbol: a strategy
// match plus the component scores the Scorer will combine.
type CandidateSignal struct {
	Symbol     string
	Strategy   string
	ClosePrice float64
	Components scoring.Components
	Risk       scoring.RiskInputs

	// Strategy-specific payload, one of SqueezePayload/PennyPayload/
	// OptionsPayload/RedditPayload, discriminated by Strategy.
	Payload any

	DetectedAt time.Time
}

// SqueezePayload carries the volatility-squeeze detector's fields.
type SqueezePayload struct {
	BBWidthPercentile float64
	SqueezeDepth      float64
	DaysInSqueeze     int
	BreakoutProximity float64
}

// PennyPayload carries the penny-stock explosion detector's fields.
type PennyPayload struct {
	VolumeRatio    float64
	InConsolidation bool
	HigherLows     bool
	PriceChange5d  float64
	PriceChange10d float64
	PriceChange20d float64
}

// OptionsPayload carries the unusual-options-flow detector's fields.
type OptionsPayload struct {
	OptionSymbol       string
	Strike             float64
	Expiry             time.Time
	DaysToExpiry       int
	VolumeToOIRatio    float64
	PremiumFlow        float64
	AggressiveOrderPct float64
	SuspicionScore     float64
}

// RedditPayload carries the Reddit-opportunity detector's fields.
type RedditPayload struct {
	MentionVolume    int
	SentimentPolarity float64
	QualityMentions  int
	CompositeScore   float64
}

// Detector is one pluggable strategy. Implementations must not panic or
// return an error for individual bad inputs — spec §4.6: "unprocessable
// symbols yield zero candidates with a debug log line."
type Detector interface {
	Strategy() string
	Detect(ticker marketdata.TickerInfo, bars []marketdata.OHLCVBar, snapshots []indicators.Snapshot, ancillary Ancillary) []CandidateSignal
}

// Ancillary carries strategy-specific inputs a detector needs beyond
// bars/snapshots: the options chain for the unusual-options detector,
// benchmark bars for the penny-explosion detector's relative-strength
// component, and Reddit mention aggregates for the Reddit detector.
type Ancillary struct {
	BenchmarkBars  []marketdata.OHLCVBar
	OptionsChain   []marketdata.OptionsContract
	RedditMentions []RedditMention
}

// RedditMention is one quality-filtered mention of a ticker within the
// aggregation window the Reddit-opportunity detector consumes.
type RedditMention struct {
	Timestamp time.Time
	Sentiment float64 // polarity, [-1, 1]
}

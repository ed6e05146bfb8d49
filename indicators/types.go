// Package indicators implements pure-function technical analysis (spec
// C3): one-to-one bar-to-snapshot indicator math plus the higher-level
// pattern detectors DetectorSet composes. Every function is deterministic
// for fixed inputs and returns nil/zero rather than erroring when history
// is insufficient, grounded on the teacher's Wilder-smoothed ATR idiom in
// app/exit_strategy.go, generalized from a fixed 14-period intraday
// calculation to the spec's configurable, bar-indexed model.
package indicators

import (
	"time"

	"signalengine/marketdata"
)

// Snapshot is the per-bar derived indicator set (spec §3
// IndicatorSnapshot). Pointer fields are nil when there isn't enough
// history to compute them.
type Snapshot struct {
	Timestamp           time.Time
	EMA20               *float64
	EMA50               *float64
	ATR20               *float64
	RSI14               *float64
	MACD                *float64
	MACDSignal          *float64
	BBWidth             *float64
	BBWidthPercentile   *float64
	VolumeSMA20         *float64
	DistanceFrom52wHigh *float64
	DistanceFrom52wLow  *float64
}

// Bars is the shared input type across this package: a chronologically
// sorted OHLCV series.
type Bars = []marketdata.OHLCVBar

func ptr(f float64) *float64 { return &f }

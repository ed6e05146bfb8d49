// Package performance implements the paper-trading outcome tracker
// (spec C9): target/stop computation on a NEW signal, intraday
// stop-vs-target resolution on a terminal (ENDED/EXPIRED) transition.
// Grounded on the teacher's exit-strategy ATR-derived level calculator
// (app/exit_strategy.go GetExitLevels) generalized from intraday ATR
// multiples to a percentage target table scaled for breakouts and volume
// spikes (OpenInputs.Grade does not affect the targets), and
// app/signal_tracker.go's open/close position bookkeeping generalized
// from live positions to PerformanceRecord rows.
package performance

import (
	"context"
	"time"

	"signalengine/continuity"
	"signalengine/marketdata"
	"signalengine/store/models"
)

const (
	baseTarget1Pct = 10.0
	baseTarget2Pct = 20.0
	baseTarget3Pct = 30.0

	breakoutTargetMultiplier    = 1.1
	volumeSpikeTargetMultiplier = 1.2
	volumeSpikeThreshold        = 5.0
)

const (
	ExitStopLoss     = "STOP_LOSS"
	ExitProfitTarget = "PROFIT_TARGET"
	ExitSignalEnded  = "SIGNAL_ENDED"
	ExitExpired      = "EXPIRED"

	StatusActive = "ACTIVE"
	StatusClosed = "CLOSED"
)

// HistoryFetcher is the tracker's sole collaborator: daily bars between
// entry and exit for the intraday stop/target scan.
type HistoryFetcher interface {
	GetOHLCV(ctx context.Context, symbol string, period marketdata.Period) ([]marketdata.OHLCVBar, error)
}

// Tracker computes ATR-derived exit levels on open and resolves
// stop/target/signal-end outcomes on close.
type Tracker struct {
	history HistoryFetcher
	atrMult float64 // multiplier applied to ATR for the stop-loss distance
}

func New(history HistoryFetcher, atrMultiplier float64) *Tracker {
	if atrMultiplier <= 0 {
		atrMultiplier = 2.0
	}
	return &Tracker{history: history, atrMult: atrMultiplier}
}

// OpenInputs carries what Open needs beyond the new Signal row.
type OpenInputs struct {
	ATR            float64 // 0 means "unavailable", falls back to a percentage stop
	Grade          string
	IsBreakout     bool
	VolumeRatio    float64
}

// Open builds a new ACTIVE PerformanceRecord for a just-created NEW
// signal (spec §4.9 "On NEW signal"). signalID is the Signal's stable
// logical identity (models.Signal.SignalID), not its per-day storage PK:
// a PerformanceRecord follows one signal's whole lifecycle across scan
// dates, so it must key off the identity that survives day to day.
func (t *Tracker) Open(signalID string, entryDate time.Time, entryPrice float64, in OpenInputs) *models.PerformanceRecord {
	stopDistance := in.ATR * t.atrMult
	if stopDistance <= 0 {
		stopDistance = entryPrice * 0.05 // 5% fallback when ATR is unavailable
	}
	stopLoss := entryPrice - stopDistance

	mult := 1.0
	if in.IsBreakout {
		mult *= breakoutTargetMultiplier
	}
	if in.VolumeRatio >= volumeSpikeThreshold {
		mult *= volumeSpikeTargetMultiplier
	}

	return &models.PerformanceRecord{
		SignalID:      signalID,
		EntryDate:     models.NewCivilDate(entryDate).Time,
		EntryPrice:    entryPrice,
		Status:        StatusActive,
		StopLossLevel: stopLoss,
		Target1:       entryPrice * (1 + baseTarget1Pct*mult/100),
		Target2:       entryPrice * (1 + baseTarget2Pct*mult/100),
		Target3:       entryPrice * (1 + baseTarget3Pct*mult/100),
	}
}

// Close resolves a terminal (ENDED/EXPIRED) transition: it fetches the
// daily intraday history between entry and exit dates and applies the
// stop-wins-over-target precedence from spec §4.9 steps 1-4.
func (t *Tracker) Close(ctx context.Context, symbol string, rec *models.PerformanceRecord, exitDate time.Time, terminalReason string, fallbackClose float64) error {
	exitDate = models.NewCivilDate(exitDate).Time

	bars, err := t.history.GetOHLCV(ctx, symbol, marketdata.Period{Start: rec.EntryDate, End: exitDate})
	if err != nil {
		bars = nil
	}

	resolvedDate := exitDate
	resolvedPrice := fallbackClose
	resolvedReason := terminalReason

	for _, b := range bars {
		if b.Close > rec.MaxPriceReached {
			rec.MaxPriceReached = b.Close
		}
		if b.Low <= rec.StopLossLevel {
			resolvedDate = b.Timestamp
			resolvedPrice = rec.StopLossLevel
			resolvedReason = ExitStopLoss
			break
		}
		if !rec.Target3Hit && b.High >= rec.Target3 {
			rec.Target3Hit = true
		}
		if !rec.Target2Hit && b.High >= rec.Target2 {
			rec.Target2Hit = true
		}
		if !rec.Target1Hit && b.High >= rec.Target1 {
			rec.Target1Hit = true
		}
	}

	rec.Status = StatusClosed
	rec.ExitDate = &resolvedDate
	rec.ExitPrice = &resolvedPrice
	rec.ExitReason = resolvedReason

	returnPct := (resolvedPrice - rec.EntryPrice) / rec.EntryPrice * 100
	rec.ReturnPct = &returnPct
	isWinner := returnPct > 0
	rec.IsWinner = &isWinner
	daysHeld := int(resolvedDate.Sub(rec.EntryDate).Hours() / 24)
	rec.DaysHeld = &daysHeld

	return nil
}

// TerminalReasonFor maps a continuity status to the exit_reason spec
// §4.9 step 4 uses when no stop was hit.
func TerminalReasonFor(status string) string {
	switch status {
	case continuity.StatusEnded:
		return ExitSignalEnded
	case continuity.StatusExpired:
		return ExitExpired
	default:
		return ExitSignalEnded
	}
}

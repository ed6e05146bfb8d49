package alerts

import (
	"context"
	"fmt"
	"time"

	"signalengine/notifications"
	"signalengine/store/models"
)

// Thresholds maps a strategy to the minimum overall score required to
// fire an alert at each tier. Tiers are evaluated in descending order
// so a signal is only tagged with its highest-qualifying tier.
type Thresholds map[string]map[string]float64

// DefaultThresholds mirrors the Scorer's recommendation bands: a signal
// need only clear STRONG_BUY/BUY to be alert-worthy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		"*": {
			"STRONG_BUY": 0.85,
			"BUY":        0.70,
		},
	}
}

type dedupKey struct {
	symbol   string
	strategy string
	tier     string
	date     string
}

// Emitter builds AlertRecords from scored, persisted signals and
// deduplicates per (symbol, strategy, tier, day). It optionally
// persists records and fans them out over a Stream, and always has the
// option of delivering through a Notifier.
type Emitter struct {
	thresholds Thresholds
	store      AlertStore
	stream     *Stream
	notifier   notifications.Notifier
	seen       map[dedupKey]bool
}

// AlertStore is the subset of store.SignalStore the emitter needs.
type AlertStore interface {
	SaveAlert(ctx context.Context, alert *models.AlertRecord) error
}

func New(thresholds Thresholds, store AlertStore, stream *Stream, notifier notifications.Notifier) *Emitter {
	return &Emitter{
		thresholds: thresholds,
		store:      store,
		stream:     stream,
		notifier:   notifier,
		seen:       make(map[dedupKey]bool),
	}
}

// Emit inspects one scored signal and, if it clears a threshold tier
// not already alerted today, persists and dispatches an AlertRecord.
func (e *Emitter) Emit(ctx context.Context, signal models.Signal) (*models.AlertRecord, error) {
	tier, ok := e.matchTier(signal.Strategy, signal.OverallScore)
	if !ok {
		return nil, nil
	}

	scanDate := signal.ScanDate.Format("2006-01-02")
	key := dedupKey{symbol: signal.Symbol, strategy: signal.Strategy, tier: tier, date: scanDate}
	if e.seen[key] {
		return nil, nil
	}
	e.seen[key] = true

	alert := &models.AlertRecord{
		SignalID:  signal.ID,
		Symbol:    signal.Symbol,
		Strategy:  signal.Strategy,
		Tier:      tier,
		Grade:     signal.Grade,
		Message:   fmt.Sprintf("%s %s scored %.2f (%s) — %s", signal.Symbol, signal.Strategy, signal.OverallScore, signal.Grade, tier),
		AlertDate: signal.ScanDate,
	}

	if e.store != nil {
		if err := e.store.SaveAlert(ctx, alert); err != nil {
			return nil, fmt.Errorf("Emit: %w", err)
		}
	}

	if e.stream != nil {
		e.stream.Broadcast("alert", alert)
	}
	if e.notifier != nil {
		e.notifier.Notify(ctx, notifications.Alert{
			SignalID:  alert.SignalID,
			Symbol:    alert.Symbol,
			Strategy:  alert.Strategy,
			Tier:      alert.Tier,
			Grade:     alert.Grade,
			Message:   alert.Message,
			Timestamp: time.Now(),
		})
	}

	alert.Dispatched = true
	return alert, nil
}

func (e *Emitter) matchTier(strategy string, score float64) (string, bool) {
	tiers := e.thresholds[strategy]
	if tiers == nil {
		tiers = e.thresholds["*"]
	}
	best := ""
	bestThreshold := -1.0
	for tier, threshold := range tiers {
		if score >= threshold && threshold > bestThreshold {
			best = tier
			bestThreshold = threshold
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

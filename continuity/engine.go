// Package continuity implements the NEW/CONTINUING/ENDED/EXPIRED join
// (spec C7): today's detector candidates against yesterday's live
// signals. Grounded on the teacher's app/signal_tracker.go duplicate/
// position bookkeeping ("is this symbol already open, extend or close
// it") generalized from an intraday position ledger into a day-over-day
// lifecycle join against calendar.Oracle.PreviousTradingDay.
package continuity

import (
	"time"

	"signalengine/detect"
	"signalengine/store/models"
)

const (
	StatusNew        = "NEW"
	StatusContinuing = "CONTINUING"
	StatusEnded      = "ENDED"
	StatusExpired    = "EXPIRED"

	maxLookbackDays = 10
)

// PrevSignal is the subset of yesterday's Signal row the join needs.
// SignalID is the stable logical identity (spec §3) carried forward onto
// today's row; yesterday's storage PK is deliberately not part of this
// shape — today's row gets its own autoincrement PK on insert.
type PrevSignal struct {
	SignalID          string
	Symbol            string
	Strategy          string
	DaysActive        int
	FirstDetectedDate time.Time
	LastActiveDate    time.Time
	Expiry            *time.Time
}

// TradingCalendar is the continuity engine's sole collaborator outside
// its own inputs: previous_trading_day with a bounded backward walk.
type TradingCalendar interface {
	PreviousTradingDay(d time.Time, maxLookback int) (time.Time, bool)
}

// Engine computes the day's Signal rows from today's candidates and
// yesterday's live set.
type Engine struct {
	calendar TradingCalendar
}

func New(calendar TradingCalendar) *Engine {
	return &Engine{calendar: calendar}
}

type key struct {
	symbol   string
	strategy string
}

// Run executes spec §4.7's algorithm for one strategy's candidates
// against that strategy's yesterday-live set. today and the dates
// embedded in prevLive/candidates are compared as civil dates (time-of-
// day is ignored by the caller's construction).
func (e *Engine) Run(today time.Time, candidates []detect.CandidateSignal, prevLive []PrevSignal) []models.Signal {
	today = models.NewCivilDate(today).Time

	prevByKey := make(map[key]PrevSignal, len(prevLive))
	for _, p := range prevLive {
		prevByKey[key{p.Symbol, p.Strategy}] = p
	}

	matched := make(map[key]bool, len(candidates))
	var out []models.Signal

	for _, c := range candidates {
		k := key{c.Symbol, c.Strategy}
		matched[k] = true

		if prev, ok := prevByKey[k]; ok {
			if expired(prev.Expiry, today) {
				out = append(out, expiredRow(c, today, prev))
				continue
			}
			out = append(out, continuingRow(c, today, prev))
			continue
		}

		out = append(out, newRow(c, today))
	}

	for k, prev := range prevByKey {
		if matched[k] {
			continue
		}
		if expired(prev.Expiry, today) {
			out = append(out, expiredRowNoCandidate(k, today, prev))
			continue
		}
		out = append(out, endedRow(k, today, prev))
	}

	return out
}

// PreviousTradingDate resolves yesterday's civil date for `today`,
// walking back through weekends/holidays per spec §4.7 step 1.
func (e *Engine) PreviousTradingDate(today time.Time) (time.Time, bool) {
	return e.calendar.PreviousTradingDay(models.NewCivilDate(today).Time, maxLookbackDays)
}

func expired(expiry *time.Time, today time.Time) bool {
	return expiry != nil && expiry.Before(today)
}

func continuingRow(c detect.CandidateSignal, today time.Time, prev PrevSignal) models.Signal {
	s := baseRow(c, today)
	s.SignalStatus = StatusContinuing
	s.DaysActive = prev.DaysActive + 1
	s.FirstDetectedDate = prev.FirstDetectedDate
	s.LastActiveDate = today
	s.IsActive = true
	s.SignalID = prev.SignalID
	return s
}

func newRow(c detect.CandidateSignal, today time.Time) models.Signal {
	s := baseRow(c, today)
	s.SignalStatus = StatusNew
	s.DaysActive = 1
	s.FirstDetectedDate = today
	s.LastActiveDate = today
	s.IsActive = true
	s.SignalID = newSignalID(c.Symbol, c.Strategy, today)
	return s
}

func expiredRow(c detect.CandidateSignal, today time.Time, prev PrevSignal) models.Signal {
	s := baseRow(c, today)
	s.SignalStatus = StatusExpired
	s.DaysActive = prev.DaysActive + 1
	s.FirstDetectedDate = prev.FirstDetectedDate
	s.LastActiveDate = today
	s.IsActive = false
	s.SignalID = prev.SignalID
	return s
}

func expiredRowNoCandidate(k key, today time.Time, prev PrevSignal) models.Signal {
	return models.Signal{
		SignalID:          prev.SignalID,
		Symbol:            k.symbol,
		Strategy:          k.strategy,
		ScanDate:          today,
		SignalStatus:      StatusExpired,
		DaysActive:        prev.DaysActive,
		FirstDetectedDate: prev.FirstDetectedDate,
		LastActiveDate:    prev.LastActiveDate,
		IsActive:          false,
		Expiry:            prev.Expiry,
	}
}

func endedRow(k key, today time.Time, prev PrevSignal) models.Signal {
	return models.Signal{
		SignalID:          prev.SignalID,
		Symbol:            k.symbol,
		Strategy:          k.strategy,
		ScanDate:          today,
		SignalStatus:      StatusEnded,
		DaysActive:        prev.DaysActive,
		FirstDetectedDate: prev.FirstDetectedDate,
		LastActiveDate:    prev.LastActiveDate, // spec §4.7 step 4: ENDED carries last_active_date = yesterday
		IsActive:          false,
		Expiry:            prev.Expiry,
	}
}

func baseRow(c detect.CandidateSignal, today time.Time) models.Signal {
	return models.Signal{
		Symbol:     c.Symbol,
		Strategy:   c.Strategy,
		ScanDate:   today,
		ClosePrice: c.ClosePrice,
	}
}

// newSignalID derives the spec's stable identity for a freshly-opened
// signal (spec §3: "signal_id ... stable per (symbol, strategy,
// first_detected_date)"). Every row in the lifecycle can thus be
// inserted with its own fresh autoincrement PK while still sharing one
// logical identity — no DB round-trip needed to mint it, and re-running
// continuity against the same inputs reproduces the same id (spec R2).
func newSignalID(symbol, strategy string, firstDetected time.Time) string {
	return symbol + "|" + strategy + "|" + firstDetected.Format("2006-01-02")
}

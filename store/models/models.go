// Package models holds the GORM-mapped persistence types for the engine:
// Ticker, Signal (with its per-strategy JSON payload), PerformanceRecord,
// and AlertRecord. Shaped after the teacher's database/models_pkg
// (gorm struct tags, TableName overrides, nullable columns as pointers)
// but generalized from tick/trade data to the engine's signal lifecycle.
package models

import (
	"encoding/json"
	"time"
)

// CivilDate wraps a UTC-midnight time.Time so date-only columns
// (scan_date, first_detected_date, ...) never carry a stray
// time-of-day component into comparisons.
type CivilDate struct {
	time.Time
}

// NewCivilDate truncates t to a UTC midnight value.
func NewCivilDate(t time.Time) CivilDate {
	t = t.UTC()
	return CivilDate{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d CivilDate) Before(o CivilDate) bool { return d.Time.Before(o.Time) }
func (d CivilDate) After(o CivilDate) bool  { return d.Time.After(o.Time) }
func (d CivilDate) Equal(o CivilDate) bool  { return d.Time.Equal(o.Time) }

// Ticker is a symbol's fundamental/metadata record.
type Ticker struct {
	Symbol     string  `gorm:"primaryKey;size:20" json:"symbol"`
	Name       string  `gorm:"size:255" json:"name"`
	Exchange   string  `gorm:"size:20;index" json:"exchange"`
	Country    string  `gorm:"size:2;index" json:"country"`
	Currency   string  `gorm:"size:3" json:"currency"`
	Sector     string  `gorm:"size:100" json:"sector"`
	Industry   string  `gorm:"size:100" json:"industry"`
	MarketCap  float64 `gorm:"type:decimal(20,2)" json:"market_cap"`
	TickerType string  `gorm:"size:20" json:"ticker_type"`
	IsActive   bool    `gorm:"index" json:"is_active"`
}

// Signal is one day's row for a (symbol, strategy) lifecycle. I1: unique
// on (symbol, strategy, scan_date). I2/I4 enforced by ContinuityEngine,
// not by the schema.
type Signal struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	// SignalID is the spec's logical identity, stable across every daily
	// row belonging to the same lifecycle (spec §3: "stable per (symbol,
	// strategy, first_detected_date)"). ID above is just this row's
	// storage PK and is never reused across scan dates; SignalID is what
	// PerformanceRecord and ContinuityEngine key off of.
	SignalID          string    `gorm:"size:80;index" json:"signal_id"`
	Symbol            string    `gorm:"size:20;index;uniqueIndex:idx_signal_unique" json:"symbol"`
	Strategy          string    `gorm:"size:30;index;uniqueIndex:idx_signal_unique" json:"strategy"`
	ScanDate          time.Time `gorm:"type:date;index;uniqueIndex:idx_signal_unique" json:"scan_date"`
	SignalStatus      string    `gorm:"size:15;index" json:"signal_status"` // NEW, CONTINUING, ENDED, EXPIRED
	DaysActive        int       `json:"days_active"`
	FirstDetectedDate time.Time `gorm:"type:date" json:"first_detected_date"`
	LastActiveDate    time.Time `gorm:"type:date" json:"last_active_date"`
	IsActive          bool      `gorm:"index" json:"is_active"`

	ClosePrice      float64 `gorm:"type:decimal(15,4)" json:"close_price"`
	OverallScore    float64 `gorm:"type:decimal(6,4)" json:"overall_score"`
	Grade           string  `gorm:"size:2" json:"grade"`
	Recommendation  string  `gorm:"size:15" json:"recommendation"`
	PumpDumpWarning bool    `json:"pump_dump_warning"`
	HighRiskCountry bool    `json:"high_risk_country"`
	SpreadTagged    bool    `json:"spread_tagged"`

	// StrategyPayload is one of detect.SqueezePayload/PennyPayload/
	// OptionsPayload/RedditPayload, discriminated by Strategy.
	StrategyPayload json.RawMessage `gorm:"type:jsonb" json:"strategy_payload"`

	Expiry *time.Time `gorm:"type:date" json:"expiry,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (Signal) TableName() string { return "signals" }

// PerformanceRecord is one paper-trading outcome attached to a Signal.
type PerformanceRecord struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	// SignalID is Signal.SignalID (the logical identity), not Signal.ID:
	// a record follows a signal's whole NEW->...->terminal lifecycle
	// across scan dates, so it cannot key off a single day's storage PK.
	SignalID        string     `gorm:"size:80;index;not null;uniqueIndex:idx_perf_signal_id" json:"signal_id"`
	EntryDate       time.Time  `gorm:"type:date" json:"entry_date"`
	EntryPrice      float64    `gorm:"type:decimal(15,4)" json:"entry_price"`
	ExitDate        *time.Time `gorm:"type:date" json:"exit_date,omitempty"`
	ExitPrice       *float64   `gorm:"type:decimal(15,4)" json:"exit_price,omitempty"`
	ExitReason      string     `gorm:"size:15" json:"exit_reason,omitempty"` // STOP_LOSS, PROFIT_TARGET, SIGNAL_ENDED, EXPIRED
	Status          string     `gorm:"size:10;index" json:"status"`         // ACTIVE, CLOSED
	StopLossLevel   float64    `gorm:"type:decimal(15,4)" json:"stop_loss_level"`
	Target1         float64    `gorm:"type:decimal(15,4)" json:"target1"`
	Target2         float64    `gorm:"type:decimal(15,4)" json:"target2"`
	Target3         float64    `gorm:"type:decimal(15,4)" json:"target3"`
	Target1Hit      bool       `json:"target1_hit"`
	Target2Hit      bool       `json:"target2_hit"`
	Target3Hit      bool       `json:"target3_hit"`
	MaxPriceReached float64    `gorm:"type:decimal(15,4)" json:"max_price_reached"`
	ReturnPct       *float64   `gorm:"type:decimal(8,4)" json:"return_pct,omitempty"`
	DaysHeld        *int       `json:"days_held,omitempty"`
	IsWinner        *bool      `json:"is_winner,omitempty"`
}

func (PerformanceRecord) TableName() string { return "performance_records" }

// AlertRecord is an operator-facing notification derived from a scored
// signal crossing a configured threshold.
type AlertRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SignalID   int64     `gorm:"index;not null" json:"signal_id"`
	Symbol     string    `gorm:"size:20;index" json:"symbol"`
	Strategy   string    `gorm:"size:30;index" json:"strategy"`
	Tier       string    `gorm:"size:15" json:"tier"` // e.g. STRONG_BUY, BUY
	Grade      string    `gorm:"size:2" json:"grade"`
	Message    string    `gorm:"type:text" json:"message"`
	AlertDate  time.Time `gorm:"type:date;index" json:"alert_date"`
	Dispatched bool      `json:"dispatched"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AlertRecord) TableName() string { return "alert_records" }

package marketdata

import "time"

// OHLCVBar is one price/volume observation. Invariant (spec §3):
// low <= min(open, close) <= max(open, close) <= high; volume >= 0.
type OHLCVBar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// TickerInfo carries the fundamental fields QualityValidator and Scorer
// consult (country risk, market cap tier). Optional: providers may return
// a zero-value TickerInfo on 404 rather than erroring.
type TickerInfo struct {
	Symbol     string
	Name       string
	Exchange   string
	Country    string
	Currency   string
	Sector     string
	Industry   string
	MarketCap  float64
	TickerType string // stock, etf, option_underlying
	IsActive   bool
}

// OptionsContract is one leg of a symbol's options chain.
type OptionsContract struct {
	Underlying        string
	OptionSymbol      string
	Strike            float64
	Expiry             time.Time
	OptionType        string // call, put
	Volume            int64
	OpenInterest      int64
	LastPrice         float64
	ImpliedVolatility float64
	DaysToExpiry      int
	AggressiveOrderPct float64
	PremiumFlow       float64
	DetectedAt        time.Time
}

// Period bounds a history request. A zero End means "through now".
type Period struct {
	Start time.Time
	End   time.Time
}

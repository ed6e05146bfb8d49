package quality

import (
	"testing"
	"time"

	"signalengine/marketdata"
)

func makeHealthyBars(n int) []marketdata.OHLCVBar {
	bars := make([]marketdata.OHLCVBar, n)
	start := time.Now().AddDate(0, 0, -n)
	price := 50.0
	for i := 0; i < n; i++ {
		bars[i] = marketdata.OHLCVBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    50_000,
		}
	}
	return bars
}

func TestValidate_RejectsInsufficientHistory(t *testing.T) {
	v := New(DefaultConfig())
	result := v.Validate(makeHealthyBars(10))
	if result.Pass {
		t.Fatalf("expected rejection for insufficient history")
	}
}

func TestValidate_PassesHealthyHistory(t *testing.T) {
	v := New(DefaultConfig())
	result := v.Validate(makeHealthyBars(120))
	if !result.Pass {
		t.Fatalf("expected pass for healthy history, reasons=%v", result.FailedReasons)
	}
	if result.DataQualityScore <= 0 {
		t.Fatalf("expected positive data quality score, got %v", result.DataQualityScore)
	}
}

func TestValidate_RejectsLowVolume(t *testing.T) {
	bars := makeHealthyBars(120)
	for i := range bars {
		bars[i].Volume = 100
	}
	v := New(DefaultConfig())
	result := v.Validate(bars)
	if result.Pass {
		t.Fatalf("expected rejection for low average volume")
	}
}

func TestValidate_CorrectsOHLCViolation(t *testing.T) {
	bars := makeHealthyBars(120)
	bars[50].High = bars[50].Open - 1 // violates high >= max(open, close)
	v := New(DefaultConfig())
	result := v.Validate(bars)
	corrected := result.CorrectedBars[50]
	if corrected.High < corrected.Open {
		t.Fatalf("expected High auto-corrected to at least Open, got %+v", corrected)
	}
}

func TestValidate_RejectsOutOfPriceBand(t *testing.T) {
	bars := makeHealthyBars(120)
	for i := range bars {
		bars[i].Close = 50_000
		bars[i].Open = 50_000
		bars[i].High = 50_500
		bars[i].Low = 49_500
	}
	v := New(DefaultConfig())
	result := v.Validate(bars)
	if result.Pass {
		t.Fatalf("expected rejection for price above band")
	}
}

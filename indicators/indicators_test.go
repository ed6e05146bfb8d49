package indicators

import (
	"testing"
	"time"

	"signalengine/marketdata"
)

func makeBars(closes []float64) Bars {
	bars := make(Bars, len(closes))
	for i, c := range closes {
		bars[i] = marketdata.OHLCVBar{
			Timestamp: time.Now().AddDate(0, 0, i-len(closes)),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestEMA_InsufficientHistoryReturnsNil(t *testing.T) {
	if got := EMA([]float64{1, 2, 3}, 20); got != nil {
		t.Fatalf("expected nil EMA for insufficient history, got %v", *got)
	}
}

func TestEMA_ConstantSeriesConvergesToValue(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	got := EMA(closes, 20)
	if got == nil {
		t.Fatalf("expected non-nil EMA")
	}
	if *got != 100 {
		t.Fatalf("EMA of constant series = %v, want 100", *got)
	}
}

func TestATR_InsufficientBarsReturnsNil(t *testing.T) {
	bars := makeBars([]float64{10, 11, 12})
	if got := ATR(bars, 14); got != nil {
		t.Fatalf("expected nil ATR for insufficient bars, got %v", *got)
	}
}

func TestATR_ConstantRangeMatchesExpected(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	bars := makeBars(closes)
	got := ATR(bars, 14)
	if got == nil {
		t.Fatalf("expected non-nil ATR")
	}
	// High-Low = 2.0 for every bar in makeBars (1.01x - 0.99x of 100).
	if *got < 1.9 || *got > 2.1 {
		t.Fatalf("ATR = %v, want ~2.0", *got)
	}
}

func TestDetectConsolidation_TightRangeDetected(t *testing.T) {
	closes := []float64{100, 100.5, 99.8, 100.2, 100.1, 99.9, 100.3, 100.0, 99.7, 100.4}
	bars := makeBars(closes)
	result := DetectConsolidation(bars, 5, 10, 3.0)
	if !result.InConsolidation {
		t.Fatalf("expected consolidation for tight range, got %+v", result)
	}
}

func TestDetectConsolidation_WideRangeNotDetected(t *testing.T) {
	closes := []float64{100, 120, 80, 130, 70, 125, 75, 128, 72, 129}
	bars := makeBars(closes)
	result := DetectConsolidation(bars, 5, 10, 5.0)
	if result.InConsolidation {
		t.Fatalf("expected no consolidation for wide range, got %+v", result)
	}
}

func TestDetectHigherLows_StrictlyIncreasing(t *testing.T) {
	// lows: 10, 8(min), 11, 9(min), 12 -> minima 8, 9 strictly increasing
	closes := []float64{10, 8, 11, 9, 12}
	bars := makeBars(closes)
	if !DetectHigherLows(bars, 5) {
		t.Fatalf("expected higher lows detected")
	}
}

func TestConsecutiveGreenDays_CountsTrailingRun(t *testing.T) {
	bars := Bars{
		{Open: 10, Close: 9},  // red
		{Open: 10, Close: 11}, // green
		{Open: 10, Close: 12}, // green
		{Open: 10, Close: 13}, // green
	}
	if got := ConsecutiveGreenDays(bars, 10); got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}

func TestVolumeAcceleration_DetectsIncrease(t *testing.T) {
	bars := Bars{}
	for i := 0; i < 5; i++ {
		bars = append(bars, marketdata.OHLCVBar{Volume: 1000})
	}
	for i := 0; i < 5; i++ {
		bars = append(bars, marketdata.OHLCVBar{Volume: 2000})
	}
	got := VolumeAcceleration(bars, 5)
	if got != 100 {
		t.Fatalf("got %v, want 100 (doubled volume)", got)
	}
}

func TestRSI_AllGainsIs100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	got := RSI(closes, 14)
	if got == nil || *got != 100 {
		t.Fatalf("expected RSI 100 for all-gains series, got %v", got)
	}
}

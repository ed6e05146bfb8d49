package performance

import (
	"context"
	"math"
	"testing"
	"time"

	"signalengine/marketdata"
)

type fakeHistory struct {
	bars []marketdata.OHLCVBar
}

func (f *fakeHistory) GetOHLCV(ctx context.Context, symbol string, period marketdata.Period) ([]marketdata.OHLCVBar, error) {
	return f.bars, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOpen_ComputesATRDerivedStopAndTargets(t *testing.T) {
	tr := New(&fakeHistory{}, 2.0)
	rec := tr.Open("sig-1", day(2026, 1, 5), 100, OpenInputs{ATR: 2.0, Grade: "A"})

	if rec.Status != StatusActive {
		t.Fatalf("expected ACTIVE status, got %s", rec.Status)
	}
	wantStop := 100 - 2.0*2.0
	if rec.StopLossLevel != wantStop {
		t.Fatalf("expected stop %v, got %v", wantStop, rec.StopLossLevel)
	}
	if math.Abs(rec.Target1-110) > 1e-9 || math.Abs(rec.Target2-120) > 1e-9 || math.Abs(rec.Target3-130) > 1e-9 {
		t.Fatalf("expected unscaled 10/20/30%% targets, got %v/%v/%v", rec.Target1, rec.Target2, rec.Target3)
	}
}

func TestOpen_ScalesTargetsForBreakoutAndVolumeSpike(t *testing.T) {
	tr := New(&fakeHistory{}, 2.0)
	rec := tr.Open("sig-1", day(2026, 1, 5), 100, OpenInputs{ATR: 2.0, IsBreakout: true, VolumeRatio: 6})

	wantMult := breakoutTargetMultiplier * volumeSpikeTargetMultiplier
	wantT1 := 100 * (1 + baseTarget1Pct*wantMult/100)
	if rec.Target1 != wantT1 {
		t.Fatalf("expected scaled target1 %v, got %v", wantT1, rec.Target1)
	}
}

func TestClose_StopWinsOverTargetWhenHitFirst(t *testing.T) {
	tr := New(&fakeHistory{bars: []marketdata.OHLCVBar{
		{Timestamp: day(2026, 1, 6), Open: 100, High: 105, Low: 95, Close: 98},  // dips to the stop
		{Timestamp: day(2026, 1, 7), Open: 98, High: 115, Low: 97, Close: 112}, // would have hit target1 later
	}}, 2.0)

	rec := tr.Open("sig-1", day(2026, 1, 5), 100, OpenInputs{ATR: 2.0})
	// Stop at 100 - 4 = 96; first bar's low of 95 breaches it.
	err := tr.Close(context.Background(), "AAA", rec, day(2026, 1, 8), ExitSignalEnded, 112)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ExitReason != ExitStopLoss {
		t.Fatalf("expected stop to win over later target, got %s", rec.ExitReason)
	}
	if *rec.ExitPrice != rec.StopLossLevel {
		t.Fatalf("expected exit price at stop level, got %v", *rec.ExitPrice)
	}
	if *rec.IsWinner {
		t.Fatalf("expected a stop-out to not be a winner")
	}
}

func TestClose_NoStopHitUsesTerminalReasonAndFallbackClose(t *testing.T) {
	tr := New(&fakeHistory{bars: []marketdata.OHLCVBar{
		{Timestamp: day(2026, 1, 6), Open: 100, High: 103, Low: 99, Close: 102},
	}}, 2.0)

	rec := tr.Open("sig-1", day(2026, 1, 5), 100, OpenInputs{ATR: 2.0})
	err := tr.Close(context.Background(), "AAA", rec, day(2026, 1, 7), ExitSignalEnded, 102)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ExitReason != ExitSignalEnded {
		t.Fatalf("expected SIGNAL_ENDED reason, got %s", rec.ExitReason)
	}
	if *rec.ExitPrice != 102 {
		t.Fatalf("expected fallback close price 102, got %v", *rec.ExitPrice)
	}
	if !*rec.IsWinner {
		t.Fatalf("expected a positive return to be a winner")
	}
}

func TestTerminalReasonFor_MapsContinuityStatus(t *testing.T) {
	if got := TerminalReasonFor("ENDED"); got != ExitSignalEnded {
		t.Fatalf("expected SIGNAL_ENDED, got %s", got)
	}
	if got := TerminalReasonFor("EXPIRED"); got != ExitExpired {
		t.Fatalf("expected EXPIRED, got %s", got)
	}
}

package calendar

import (
	"testing"
	"time"
)

func TestIsTradingDay_Weekend(t *testing.T) {
	o := New()
	sat := time.Date(2026, time.July, 25, 0, 0, 0, 0, time.UTC)
	if o.IsTradingDay(sat) {
		t.Fatalf("expected Saturday to not be a trading day")
	}
}

func TestPreviousTradingDay_SkipsWeekendAndHoliday(t *testing.T) {
	// B2: a holiday immediately following a weekend: previous_trading_day
	// skips both. 2026-01-19 (Mon) is MLK Day; 2026-01-17/18 is the weekend.
	o := New()
	monday := time.Date(2026, time.January, 19, 0, 0, 0, 0, time.UTC)
	if !o.IsHoliday(monday) {
		t.Fatalf("expected 2026-01-19 to be a holiday in the fixture set")
	}

	tuesday := monday.AddDate(0, 0, 1)
	prev, ok := o.PreviousTradingDay(tuesday, 10)
	if !ok {
		t.Fatalf("expected a previous trading day within lookback")
	}
	want := time.Date(2026, time.January, 16, 0, 0, 0, 0, time.UTC) // Friday
	if !prev.Equal(want) {
		t.Fatalf("got %v, want %v", prev, want)
	}
}

func TestPreviousTradingDay_NoDataWithinLookback(t *testing.T) {
	o := &Oracle{holidays: map[string]struct{}{}}
	// No holidays, and a tiny lookback starting on a Monday -
	// Sunday/Saturday are the only non-trading days, so a lookback of 1
	// from Monday lands on Sunday, not ok.
	monday := time.Date(2026, time.July, 27, 0, 0, 0, 0, time.UTC)
	_, ok := o.PreviousTradingDay(monday, 1)
	if ok {
		t.Fatalf("expected lookback of 1 from Monday to fail (lands on Sunday)")
	}
}

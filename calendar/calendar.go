// Package calendar provides the trading-day oracle: weekend plus a
// data-driven holiday set, and a bounded backward walk to the previous
// trading day. Holiday data is hard-coded for 2024-2026; renewing it for
// later years is a separate operator responsibility (spec §9).
package calendar

import "time"

// Oracle answers trading-day questions against a fixed holiday set.
type Oracle struct {
	holidays map[string]struct{} // "YYYY-MM-DD" -> present
}

// New builds an Oracle from the built-in 2024-2026 holiday set merged with
// any extra dates the caller supplies (e.g. a per-exchange calendar).
func New(extraHolidays ...time.Time) *Oracle {
	o := &Oracle{holidays: make(map[string]struct{}, len(defaultHolidays))}
	for _, d := range defaultHolidays {
		o.holidays[key(d)] = struct{}{}
	}
	for _, d := range extraHolidays {
		o.holidays[key(d)] = struct{}{}
	}
	return o
}

func key(t time.Time) string {
	t = t.UTC()
	return t.Format("2006-01-02")
}

// IsHoliday reports whether d falls in the configured holiday set
// (the time-of-day component is ignored).
func (o *Oracle) IsHoliday(d time.Time) bool {
	_, ok := o.holidays[key(d)]
	return ok
}

// IsTradingDay reports whether d is a weekday and not a holiday.
func (o *Oracle) IsTradingDay(d time.Time) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !o.IsHoliday(d)
}

// PreviousTradingDay walks backward from d (exclusive) up to maxLookback
// days, returning the first trading day found. It returns ok=false if none
// is found within the lookback window (e.g. the calendar data doesn't
// cover that far back).
func (o *Oracle) PreviousTradingDay(d time.Time, maxLookback int) (prev time.Time, ok bool) {
	cur := civilDate(d)
	for i := 0; i < maxLookback; i++ {
		cur = cur.AddDate(0, 0, -1)
		if o.IsTradingDay(cur) {
			return cur, true
		}
	}
	return time.Time{}, false
}

// civilDate truncates t to a UTC midnight "date-only" value, used
// throughout the engine so date equality never depends on time-of-day.
func civilDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CivilDate exposes civilDate for other packages that need the same
// date-only normalization (store, continuity).
func CivilDate(t time.Time) time.Time { return civilDate(t) }

func mustDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// defaultHolidays is the hard-coded 2024-2026 US-equity-style holiday set
// (New Year's Day, MLK Day, Presidents' Day, Good Friday, Memorial Day,
// Juneteenth, Independence Day, Labor Day, Thanksgiving, Christmas).
// Renewal for 2027+ is an operator responsibility, per spec §9.
var defaultHolidays = []time.Time{
	// 2024
	mustDate(2024, time.January, 1),
	mustDate(2024, time.January, 15),
	mustDate(2024, time.February, 19),
	mustDate(2024, time.March, 29),
	mustDate(2024, time.May, 27),
	mustDate(2024, time.June, 19),
	mustDate(2024, time.July, 4),
	mustDate(2024, time.September, 2),
	mustDate(2024, time.November, 28),
	mustDate(2024, time.December, 25),
	// 2025
	mustDate(2025, time.January, 1),
	mustDate(2025, time.January, 20),
	mustDate(2025, time.February, 17),
	mustDate(2025, time.April, 18),
	mustDate(2025, time.May, 26),
	mustDate(2025, time.June, 19),
	mustDate(2025, time.July, 4),
	mustDate(2025, time.September, 1),
	mustDate(2025, time.November, 27),
	mustDate(2025, time.December, 25),
	// 2026
	mustDate(2026, time.January, 1),
	mustDate(2026, time.January, 19),
	mustDate(2026, time.February, 16),
	mustDate(2026, time.April, 3),
	mustDate(2026, time.May, 25),
	mustDate(2026, time.June, 19),
	mustDate(2026, time.July, 3),
	mustDate(2026, time.September, 7),
	mustDate(2026, time.November, 26),
	mustDate(2026, time.December, 25),
}

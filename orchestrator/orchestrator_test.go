package orchestrator

import (
	"context"
	"testing"
	"time"

	"signalengine/alerts"
	"signalengine/cache"
	"signalengine/continuity"
	"signalengine/detect"
	"signalengine/marketdata"
	"signalengine/notifications"
	"signalengine/performance"
	"signalengine/quality"
	"signalengine/ratelimit"
	"signalengine/scoring"
	"signalengine/spread"
	"signalengine/store"
	"signalengine/store/models"
)

// fakeProvider serves the same flat-then-spiking bar series for every
// symbol it's asked about, via the Fetcher's per-symbol fan-out path
// (it deliberately doesn't implement SupportsBatch).
type fakeProvider struct {
	bars []marketdata.OHLCVBar
}

func (p *fakeProvider) FetchHistory(_ context.Context, _ string, _ marketdata.Period) ([]marketdata.OHLCVBar, error) {
	return p.bars, nil
}

func (p *fakeProvider) FetchBatchHistory(_ context.Context, symbols []string, _ marketdata.Period) (map[string][]marketdata.OHLCVBar, error) {
	out := make(map[string][]marketdata.OHLCVBar, len(symbols))
	for _, s := range symbols {
		out[s] = p.bars
	}
	return out, nil
}

func (p *fakeProvider) FetchOptions(_ context.Context, _ string) ([]marketdata.OptionsContract, error) {
	return nil, nil
}

func (p *fakeProvider) FetchInfo(_ context.Context, _ string) (marketdata.TickerInfo, error) {
	return marketdata.TickerInfo{}, nil
}

func (p *fakeProvider) ValidateSymbol(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// pennyBreakoutBars builds 95 days of flat $2 closes on 100k volume
// (95 clears quality.DefaultConfig's 90-bar minimum history gate),
// spiking to 300k volume (3x) on the last bar — clears PennyDetector's
// price band, dollar-volume floor, and volume-ratio gate.
func pennyBreakoutBars() []marketdata.OHLCVBar {
	const n = 95
	now := time.Now()
	bars := make([]marketdata.OHLCVBar, n)
	for i := range bars {
		bars[i] = marketdata.OHLCVBar{
			Timestamp: now.AddDate(0, 0, -(n - 1 - i)),
			Open:      2.0, High: 2.0, Low: 2.0, Close: 2.0,
			Volume: 100_000,
		}
	}
	bars[len(bars)-1].Volume = 300_000
	return bars
}

type fakeUniverse struct{ tickers []models.Ticker }

func (f *fakeUniverse) ActiveUniverse(_ context.Context, _ store.UniverseFilter) ([]models.Ticker, error) {
	return f.tickers, nil
}

// fakeSignalRepo is an in-memory stand-in for *store.SignalStore,
// sufficient to exercise RunScan's persistence and tracker phases
// without a live database. rows simulates the signals table's
// (symbol, strategy, scan_date) unique key plus its autoincrement PK;
// perf simulates performance_records keyed by the stable signal_id,
// mirroring SignalStore.PerformanceRecordFor's lookup.
type fakeSignalRepo struct {
	rows       map[string]*models.Signal
	upserted   []models.Signal
	perf       map[string]*models.PerformanceRecord
	nextRowID  int64
	nextPerfID int64
}

func newFakeSignalRepo() *fakeSignalRepo {
	return &fakeSignalRepo{
		rows: make(map[string]*models.Signal),
		perf: make(map[string]*models.PerformanceRecord),
	}
}

func signalRowKey(symbol, strategy string, scanDate time.Time) string {
	civil := models.NewCivilDate(scanDate).Time
	return symbol + "|" + strategy + "|" + civil.Format("2006-01-02")
}

func (f *fakeSignalRepo) SignalsOn(_ context.Context, date time.Time, strategy string) ([]models.Signal, error) {
	civil := models.NewCivilDate(date).Time
	var out []models.Signal
	for _, r := range f.rows {
		if !r.ScanDate.Equal(civil) {
			continue
		}
		if strategy != "" && r.Strategy != strategy {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

// UpsertSignals mirrors SignalStore's ON CONFLICT (symbol, strategy,
// scan_date) semantics: a row already on file for that key keeps its
// storage PK, anything new gets the next one, and the generated/
// existing PK is written back onto the caller's slice in place, the
// way GORM's RETURNING clause does.
func (f *fakeSignalRepo) UpsertSignals(_ context.Context, signals []models.Signal) (store.BatchResult, error) {
	for i := range signals {
		k := signalRowKey(signals[i].Symbol, signals[i].Strategy, signals[i].ScanDate)
		if existing, ok := f.rows[k]; ok {
			signals[i].ID = existing.ID
		} else {
			f.nextRowID++
			signals[i].ID = f.nextRowID
		}
		stored := signals[i]
		f.rows[k] = &stored
	}
	f.upserted = append(f.upserted, signals...)
	return store.BatchResult{Attempted: len(signals), Succeeded: len(signals)}, nil
}

func (f *fakeSignalRepo) SavePerformanceRecord(_ context.Context, rec *models.PerformanceRecord) error {
	if rec.ID == 0 {
		f.nextPerfID++
		rec.ID = f.nextPerfID
	}
	f.perf[rec.SignalID] = rec
	return nil
}

func (f *fakeSignalRepo) PerformanceRecordFor(_ context.Context, signalID string) (*models.PerformanceRecord, error) {
	if rec, ok := f.perf[signalID]; ok {
		return rec, nil
	}
	return nil, nil
}

func (f *fakeSignalRepo) OpenPerformanceRecords(_ context.Context, signalIDs []string) ([]models.PerformanceRecord, error) {
	want := make(map[string]bool, len(signalIDs))
	for _, id := range signalIDs {
		want[id] = true
	}
	var out []models.PerformanceRecord
	for _, rec := range f.perf {
		if rec.Status == performance.StatusActive && want[rec.SignalID] {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type fakeCalendar struct{}

func (fakeCalendar) PreviousTradingDay(d time.Time, _ int) (time.Time, bool) {
	return d.AddDate(0, 0, -1), true
}

type fakeHistory struct{}

func (fakeHistory) GetOHLCV(_ context.Context, _ string, _ marketdata.Period) ([]marketdata.OHLCVBar, error) {
	return nil, nil
}

func buildTestOrchestrator(t *testing.T, repo SignalRepository) *Orchestrator {
	t.Helper()

	fetcher := marketdata.New(&fakeProvider{bars: pennyBreakoutBars()}, ratelimit.New(ratelimit.DefaultConfig()), cache.NewTTLCache(nil), marketdata.DefaultConfig())
	validator := quality.New(quality.DefaultConfig())

	weights := map[string]map[string]float64{
		"penny_explosion": {"volume": 0.5, "momentum": 0.3, "relative_strength": 0.15, "risk_liquidity": 0.05},
	}
	scorer := scoring.New(weights, scoring.DefaultRiskConfig())

	return New(
		DefaultConfig(),
		&fakeUniverse{tickers: []models.Ticker{{Symbol: "PENY", Country: "US", IsActive: true}}},
		fetcher,
		validator,
		[]detect.Detector{detect.NewPennyDetector()},
		scorer,
		spread.New(spread.DefaultConfig()),
		continuity.New(fakeCalendar{}),
		repo,
		performance.New(fakeHistory{}, 2.0),
		alerts.New(alerts.DefaultThresholds(), nil, nil, notifications.LogNotifier{}),
		nil, // ancillary
		nil, // analyzer
		nil, // predictor
	)
}

func TestRunScan_FirstScanProducesNewSignalAndOpensPerformanceRecord(t *testing.T) {
	repo := newFakeSignalRepo()
	o := buildTestOrchestrator(t, repo)

	report, err := o.RunScan(context.Background(), "penny_explosion", store.UniverseFilter{}, time.Now())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	if report.PhaseCounts["universe"] != 1 {
		t.Fatalf("universe count = %d, want 1", report.PhaseCounts["universe"])
	}
	if report.PhaseCounts["detect_score"] != 1 {
		t.Fatalf("detect_score count = %d, want 1 (PENY should clear every gate)", report.PhaseCounts["detect_score"])
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("upserted = %d rows, want 1", len(repo.upserted))
	}

	row := repo.upserted[0]
	if row.SignalStatus != continuity.StatusNew {
		t.Fatalf("SignalStatus = %q, want NEW", row.SignalStatus)
	}
	if row.Symbol != "PENY" || row.Strategy != "penny_explosion" {
		t.Fatalf("unexpected row identity: %+v", row)
	}
	if row.OverallScore <= 0 {
		t.Fatalf("OverallScore = %v, want > 0", row.OverallScore)
	}
	if len(row.StrategyPayload) == 0 {
		t.Fatal("StrategyPayload was not populated")
	}

	if report.PhaseCounts["tracker_opened"] != 1 {
		t.Fatalf("tracker_opened = %d, want 1", report.PhaseCounts["tracker_opened"])
	}
	if len(repo.perf) != 1 {
		t.Fatalf("performance records = %d, want 1", len(repo.perf))
	}
	for _, rec := range repo.perf {
		if rec.Status != performance.StatusActive {
			t.Fatalf("performance record status = %q, want ACTIVE", rec.Status)
		}
		if rec.EntryPrice != row.ClosePrice {
			t.Fatalf("EntryPrice = %v, want %v", rec.EntryPrice, row.ClosePrice)
		}
	}
}

// TestRunScan_SecondDayContinuesSignalWithoutDuplicatingPerformanceRecord
// covers spec §4.9's exactly-once guarantee across the day boundary: a
// signal that's still detected tomorrow becomes CONTINUING under the same
// signal_id, and the tracker must not open a second performance record for
// it.
func TestRunScan_SecondDayContinuesSignalWithoutDuplicatingPerformanceRecord(t *testing.T) {
	repo := newFakeSignalRepo()
	o := buildTestOrchestrator(t, repo)

	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	if _, err := o.RunScan(context.Background(), "penny_explosion", store.UniverseFilter{}, day1); err != nil {
		t.Fatalf("day1 RunScan: %v", err)
	}
	if len(repo.upserted) != 1 || repo.upserted[0].SignalStatus != continuity.StatusNew {
		t.Fatalf("day1: expected a single NEW row, got %+v", repo.upserted)
	}
	if len(repo.perf) != 1 {
		t.Fatalf("day1: expected one performance record opened, got %d", len(repo.perf))
	}
	signalID := repo.upserted[0].SignalID

	report2, err := o.RunScan(context.Background(), "penny_explosion", store.UniverseFilter{}, day2)
	if err != nil {
		t.Fatalf("day2 RunScan: %v", err)
	}
	if len(repo.upserted) != 2 {
		t.Fatalf("day2: expected a second upserted row, got %d total", len(repo.upserted))
	}
	row2 := repo.upserted[1]
	if row2.SignalStatus != continuity.StatusContinuing {
		t.Fatalf("day2: expected CONTINUING, got %q", row2.SignalStatus)
	}
	if row2.SignalID != signalID {
		t.Fatalf("day2: expected signal_id to carry forward, day1=%q day2=%q", signalID, row2.SignalID)
	}
	if report2.PhaseCounts["tracker_opened"] != 0 {
		t.Fatalf("day2: tracker_opened = %d, want 0 (already open from day1)", report2.PhaseCounts["tracker_opened"])
	}
	if len(repo.perf) != 1 {
		t.Fatalf("day2: expected still exactly one performance record, got %d", len(repo.perf))
	}
}

// TestRunScan_SameDayRescanDoesNotDuplicatePerformanceRecord covers spec
// §4.9's "re-invocation is a no-op": re-running the same scan_date (the
// row is still NEW, since there's no new prior-day state) must not open a
// second performance record.
func TestRunScan_SameDayRescanDoesNotDuplicatePerformanceRecord(t *testing.T) {
	repo := newFakeSignalRepo()
	o := buildTestOrchestrator(t, repo)
	asOf := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	report1, err := o.RunScan(context.Background(), "penny_explosion", store.UniverseFilter{}, asOf)
	if err != nil {
		t.Fatalf("first RunScan: %v", err)
	}
	if report1.PhaseCounts["tracker_opened"] != 1 {
		t.Fatalf("first scan: tracker_opened = %d, want 1", report1.PhaseCounts["tracker_opened"])
	}

	report2, err := o.RunScan(context.Background(), "penny_explosion", store.UniverseFilter{}, asOf)
	if err != nil {
		t.Fatalf("second RunScan: %v", err)
	}
	if report2.PhaseCounts["tracker_opened"] != 0 {
		t.Fatalf("re-scan: tracker_opened = %d, want 0 (already open)", report2.PhaseCounts["tracker_opened"])
	}
	if len(repo.perf) != 1 {
		t.Fatalf("re-scan: expected exactly one performance record, got %d", len(repo.perf))
	}
}

func TestRunScan_UnknownStrategyErrors(t *testing.T) {
	o := buildTestOrchestrator(t, newFakeSignalRepo())
	if _, err := o.RunScan(context.Background(), "not_a_strategy", store.UniverseFilter{}, time.Now()); err == nil {
		t.Fatal("expected an error for an unregistered strategy")
	}
}

func TestMeetsGradeFloor(t *testing.T) {
	cases := []struct {
		grade, floor string
		want         bool
	}{
		{"S", "B", true},
		{"A", "B", true},
		{"C", "B", false},
		{"F", "F", true},
	}
	for _, c := range cases {
		if got := meetsGradeFloor(c.grade, c.floor); got != c.want {
			t.Errorf("meetsGradeFloor(%q, %q) = %v, want %v", c.grade, c.floor, got, c.want)
		}
	}
}

func TestTopByGrade_FiltersInactiveAndTruncates(t *testing.T) {
	rows := []models.Signal{
		{Symbol: "A", OverallScore: 0.9, IsActive: true},
		{Symbol: "B", OverallScore: 0.95, IsActive: false},
		{Symbol: "C", OverallScore: 0.5, IsActive: true},
	}
	top := topByGrade(rows, 1)
	if len(top) != 1 || top[0].Symbol != "A" {
		t.Fatalf("topByGrade = %+v, want [A]", top)
	}
}

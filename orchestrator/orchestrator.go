// Package orchestrator implements ScanOrchestrator (spec C10):
// end-to-end per-scan coordination across every other component.
// Grounded on the teacher's app.App (app/app.go): a struct wired with
// one field per collaborator, built once at startup, whose phased
// Start loop is generalized here into RunScan's ordered, bounded-
// concurrency phases over a symbol universe instead of a single
// long-lived websocket stream.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"signalengine/alerts"
	"signalengine/continuity"
	"signalengine/detect"
	"signalengine/indicators"
	"signalengine/marketdata"
	"signalengine/narrative"
	"signalengine/performance"
	"signalengine/predict"
	"signalengine/quality"
	"signalengine/scoring"
	"signalengine/spread"
	"signalengine/store"
	"signalengine/store/models"

	"golang.org/x/sync/errgroup"
)

// UniverseStore resolves the tradeable symbol universe for a scan.
type UniverseStore interface {
	ActiveUniverse(ctx context.Context, filter store.UniverseFilter) ([]models.Ticker, error)
}

// AncillaryProvider supplies the per-detector inputs beyond bars/
// snapshots. Any method may return a zero value with a nil error when
// the corresponding data source isn't wired up; an empty Ancillary field
// is not an error: the options and Reddit detectors emit nothing without
// their field, and the penny detector scores relative strength as a
// neutral 0.5 without benchmark bars.
type AncillaryProvider interface {
	BenchmarkBars(ctx context.Context, period marketdata.Period) ([]marketdata.OHLCVBar, error)
	OptionsChain(ctx context.Context, symbol string) ([]marketdata.OptionsContract, error)
	RedditMentions(ctx context.Context, symbol string) ([]detect.RedditMention, error)
}

// SignalRepository is the subset of *store.SignalStore RunScan needs,
// kept as an interface so the pipeline can be exercised against a fake
// in tests without a live database.
type SignalRepository interface {
	SignalsOn(ctx context.Context, date time.Time, strategy string) ([]models.Signal, error)
	UpsertSignals(ctx context.Context, signals []models.Signal) (store.BatchResult, error)
	SavePerformanceRecord(ctx context.Context, rec *models.PerformanceRecord) error
	OpenPerformanceRecords(ctx context.Context, signalIDs []string) ([]models.PerformanceRecord, error)
	PerformanceRecordFor(ctx context.Context, signalID string) (*models.PerformanceRecord, error)
}

// Config controls phase concurrency and batching.
type Config struct {
	FetchParallelism    int
	AnalysisParallelism int
	MaxUniverseSize     int
	HistoryLookbackDays int
	AlertGradeFloor     string // e.g. "A": rows below this grade never reach the emitter
}

func DefaultConfig() Config {
	return Config{FetchParallelism: 8, AnalysisParallelism: 8, MaxUniverseSize: 5000, HistoryLookbackDays: 400, AlertGradeFloor: "B"}
}

// Orchestrator wires every component into the phased RunScan pipeline.
type Orchestrator struct {
	cfg Config

	universe   UniverseStore
	fetcher    *marketdata.Fetcher
	validator  *quality.Validator
	detectors  map[string]detect.Detector
	scorer     *scoring.Scorer
	spreadDet  *spread.Detector
	continuity *continuity.Engine
	store      SignalRepository
	tracker    *performance.Tracker
	emitter    *alerts.Emitter
	ancillary  AncillaryProvider
	analyzer   narrative.Analyzer // optional
	predictor  predict.Predictor  // optional
}

// New builds an Orchestrator. analyzer and predictor may be nil;
// ancillary may be nil (an orchestrator with no AncillaryProvider just
// runs every detector with an empty Ancillary).
func New(
	cfg Config,
	universe UniverseStore,
	fetcher *marketdata.Fetcher,
	validator *quality.Validator,
	detectors []detect.Detector,
	scorer *scoring.Scorer,
	spreadDet *spread.Detector,
	continuityEngine *continuity.Engine,
	signalStore SignalRepository,
	tracker *performance.Tracker,
	emitter *alerts.Emitter,
	ancillary AncillaryProvider,
	analyzer narrative.Analyzer,
	predictor predict.Predictor,
) *Orchestrator {
	byStrategy := make(map[string]detect.Detector, len(detectors))
	for _, d := range detectors {
		byStrategy[d.Strategy()] = d
	}
	return &Orchestrator{
		cfg:        cfg,
		universe:   universe,
		fetcher:    fetcher,
		validator:  validator,
		detectors:  byStrategy,
		scorer:     scorer,
		spreadDet:  spreadDet,
		continuity: continuityEngine,
		store:      signalStore,
		tracker:    tracker,
		emitter:    emitter,
		ancillary:  ancillary,
		analyzer:   analyzer,
		predictor:  predictor,
	}
}

type scoredCandidate struct {
	candidate detect.CandidateSignal
	score     scoring.Result
	ticker    models.Ticker
}

// RunScan executes all eleven phases for one strategy over its
// universe, as of asOf (spec §4.10).
func (o *Orchestrator) RunScan(ctx context.Context, strategyName string, filter store.UniverseFilter, asOf time.Time) (*ScanReport, error) {
	start := time.Now()
	report := newReport(strategyName, models.NewCivilDate(asOf).Time)

	detector, ok := o.detectors[strategyName]
	if !ok {
		return nil, fmt.Errorf("RunScan: unknown strategy %q", strategyName)
	}

	// Phase 1: universe resolution.
	phaseStart := time.Now()
	if filter.MaxSize == 0 {
		filter.MaxSize = o.cfg.MaxUniverseSize
	}
	tickers, err := o.universe.ActiveUniverse(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("RunScan: universe resolution: %w", err)
	}
	report.recordPhase("universe", len(tickers), time.Since(phaseStart))

	symbols := make([]string, len(tickers))
	tickerBySymbol := make(map[string]models.Ticker, len(tickers))
	for i, tk := range tickers {
		symbols[i] = tk.Symbol
		tickerBySymbol[tk.Symbol] = tk
	}

	// Phase 2: fetch.
	phaseStart = time.Now()
	period := marketdata.Period{Start: asOf.AddDate(0, 0, -o.cfg.HistoryLookbackDays), End: asOf}
	barsBySymbol, err := o.fetcher.GetBatchOHLCV(ctx, symbols, period)
	if err != nil {
		return nil, fmt.Errorf("RunScan: fetch: %w", err)
	}
	report.recordPhase("fetch", len(barsBySymbol), time.Since(phaseStart))
	report.recordFailure("fetch_missing", len(symbols)-len(barsBySymbol))

	var benchmarkBars []marketdata.OHLCVBar
	if o.ancillary != nil {
		benchmarkBars, _ = o.ancillary.BenchmarkBars(ctx, period)
	}

	// Phases 3-6: validate, indicators, detect, score — bounded
	// concurrency per symbol via errgroup + semaphore (spec §5).
	phaseStart = time.Now()
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, max(1, o.cfg.AnalysisParallelism))

	var (
		mu          sync.Mutex
		scored      []scoredCandidate
		validated   int
		rejected    int
		detectCount int
	)

	for symbol, bars := range barsBySymbol {
		symbol, bars := symbol, bars
		ticker := tickerBySymbol[symbol]
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			result := o.validator.Validate(bars)
			if !result.Pass {
				mu.Lock()
				rejected++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			validated++
			mu.Unlock()

			snapshots := indicators.Snapshots(result.CorrectedBars)

			anc := detect.Ancillary{BenchmarkBars: benchmarkBars}
			if o.ancillary != nil {
				if strategyName == "unusual_options" {
					anc.OptionsChain, _ = o.ancillary.OptionsChain(gctx, symbol)
				}
				if strategyName == "reddit_opportunity" {
					anc.RedditMentions, _ = o.ancillary.RedditMentions(gctx, symbol)
				}
			}

			candidates := detector.Detect(tickerInfo(ticker), result.CorrectedBars, snapshots, anc)
			if len(candidates) == 0 {
				return nil
			}

			if o.predictor != nil {
				for _, c := range candidates {
					if prob, err := o.predictor.Predict(gctx, c); err == nil && prob >= 0 {
						log.Printf("predictor: %s/%s probability=%.3f", c.Symbol, c.Strategy, prob)
					}
				}
			}

			mu.Lock()
			for _, c := range candidates {
				detectCount++
				score := o.scorer.Score(c.Strategy, c.Components, c.Risk)
				scored = append(scored, scoredCandidate{candidate: c, score: score, ticker: ticker})
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		return nil, fmt.Errorf("RunScan: analysis phase: %w", err)
	}
	report.recordPhase("validate", validated, time.Since(phaseStart))
	report.recordFailure("quality_rejected", rejected)
	report.recordPhase("detect_score", detectCount, time.Since(phaseStart))

	// Phase 7: spread analysis (options only).
	if strategyName == "unusual_options" && o.spreadDet != nil {
		phaseStart = time.Now()
		candidatesOnly := make([]detect.CandidateSignal, len(scored))
		for i, sc := range scored {
			candidatesOnly[i] = sc.candidate
		}
		annotations := o.spreadDet.Detect(candidatesOnly)
		for i := range scored {
			payload, ok := scored[i].candidate.Payload.(detect.OptionsPayload)
			if !ok {
				continue
			}
			if _, ok := annotations[payload.OptionSymbol]; ok {
				scored[i].score.SpreadTagged = true
			}
		}
		report.recordPhase("spread", len(annotations), time.Since(phaseStart))
	}

	// Phase 8: continuity.
	phaseStart = time.Now()
	yesterday, hasYesterday := o.continuity.PreviousTradingDate(asOf)
	var prevLive []continuity.PrevSignal
	if hasYesterday {
		prevRows, err := o.store.SignalsOn(ctx, yesterday, strategyName)
		if err != nil {
			return nil, fmt.Errorf("RunScan: continuity lookup: %w", err)
		}
		prevLive = make([]continuity.PrevSignal, len(prevRows))
		for i, r := range prevRows {
			prevLive[i] = continuity.PrevSignal{
				SignalID: r.SignalID, Symbol: r.Symbol, Strategy: r.Strategy,
				DaysActive: r.DaysActive, FirstDetectedDate: r.FirstDetectedDate,
				LastActiveDate: r.LastActiveDate, Expiry: r.Expiry,
			}
		}
	}

	candidatesOnly := make([]detect.CandidateSignal, len(scored))
	byKey := make(map[string]scoredCandidate, len(scored))
	for i, sc := range scored {
		candidatesOnly[i] = sc.candidate
		byKey[sc.candidate.Symbol+"|"+sc.candidate.Strategy] = sc
	}

	rows := o.continuity.Run(asOf, candidatesOnly, prevLive)
	for i := range rows {
		sc, ok := byKey[rows[i].Symbol+"|"+rows[i].Strategy]
		if !ok {
			continue
		}
		rows[i].OverallScore = sc.score.OverallScore
		rows[i].Grade = sc.score.Grade
		rows[i].Recommendation = sc.score.Recommendation
		rows[i].PumpDumpWarning = sc.score.PumpDumpWarning
		rows[i].HighRiskCountry = sc.score.HighRiskCountry
		rows[i].SpreadTagged = sc.score.SpreadTagged

		if payloadBytes, err := json.Marshal(sc.candidate.Payload); err == nil {
			rows[i].StrategyPayload = payloadBytes
		}
		if opt, ok := sc.candidate.Payload.(detect.OptionsPayload); ok {
			expiry := opt.Expiry
			rows[i].Expiry = &expiry
		}

		if o.analyzer != nil {
			if rationale, err := o.analyzer.Narrate(ctx, sc.candidate, sc.score.OverallScore, sc.score.Grade); err == nil {
				log.Printf("narrative for %s/%s: %s", rows[i].Symbol, rows[i].Strategy, rationale)
			}
		}
	}
	report.recordPhase("continuity", len(rows), time.Since(phaseStart))

	// Phase 9: persist.
	phaseStart = time.Now()
	batchResult, err := o.store.UpsertSignals(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("RunScan: persist: %w", err)
	}
	report.recordPhase("persist", batchResult.Succeeded, time.Since(phaseStart))
	report.recordFailure("persist_failed", batchResult.Failed)

	// Phase 10: tracker.
	phaseStart = time.Now()
	o.runTracker(ctx, rows, byKey, report)
	report.Durations["tracker"] = time.Since(phaseStart)

	// Phase 11: alerts.
	phaseStart = time.Now()
	alertCount := 0
	for _, row := range rows {
		if !row.IsActive {
			continue
		}
		if !meetsGradeFloor(row.Grade, o.cfg.AlertGradeFloor) {
			continue
		}
		alert, err := o.emitter.Emit(ctx, row)
		if err != nil {
			log.Printf("RunScan: alert emission failed for %s/%s: %v", row.Symbol, row.Strategy, err)
			continue
		}
		if alert != nil {
			alertCount++
		}
	}
	report.recordPhase("alerts", alertCount, time.Since(phaseStart))

	report.TopSignals = topByGrade(rows, 20)
	report.TotalElapsed = time.Since(start)
	return report, nil
}

func (o *Orchestrator) runTracker(ctx context.Context, rows []models.Signal, byKey map[string]scoredCandidate, report *ScanReport) {
	var opened, closed int
	var terminalIDs []string
	for _, row := range rows {
		if row.SignalStatus == continuity.StatusNew {
			existing, err := o.store.PerformanceRecordFor(ctx, row.SignalID)
			if err != nil {
				log.Printf("RunScan: checking existing performance record failed for %s: %v", row.Symbol, err)
				continue
			}
			if existing != nil {
				// Re-invocation on the same scan_date: already opened, no-op (spec §4.9).
				continue
			}
			sc := byKey[row.Symbol+"|"+row.Strategy]
			in := performance.OpenInputs{
				Grade:       row.Grade,
				VolumeRatio: sc.candidate.Risk.VolumeRatio,
			}
			if penny, ok := sc.candidate.Payload.(detect.PennyPayload); ok {
				in.IsBreakout = penny.InConsolidation
			}
			rec := o.tracker.Open(row.SignalID, row.ScanDate, row.ClosePrice, in)
			if err := o.store.SavePerformanceRecord(ctx, rec); err != nil {
				log.Printf("RunScan: open performance record failed for %s: %v", row.Symbol, err)
				continue
			}
			opened++
		}
		if row.SignalStatus == continuity.StatusEnded || row.SignalStatus == continuity.StatusExpired {
			terminalIDs = append(terminalIDs, row.SignalID)
		}
	}

	if len(terminalIDs) > 0 {
		open, err := o.store.OpenPerformanceRecords(ctx, terminalIDs)
		if err != nil {
			log.Printf("RunScan: loading open performance records failed: %v", err)
		} else {
			rowByID := make(map[string]models.Signal, len(rows))
			for _, row := range rows {
				rowByID[row.SignalID] = row
			}
			for i := range open {
				row, ok := rowByID[open[i].SignalID]
				if !ok {
					continue
				}
				reason := performance.TerminalReasonFor(row.SignalStatus)
				if err := o.tracker.Close(ctx, row.Symbol, &open[i], row.ScanDate, reason, row.ClosePrice); err != nil {
					log.Printf("RunScan: close performance record failed for %s: %v", row.Symbol, err)
					continue
				}
				if err := o.store.SavePerformanceRecord(ctx, &open[i]); err != nil {
					log.Printf("RunScan: saving closed performance record failed for %s: %v", row.Symbol, err)
					continue
				}
				closed++
			}
		}
	}
	report.recordPhase("tracker_opened", opened, 0)
	report.PhaseCounts["tracker_closed"] = closed
}

func meetsGradeFloor(grade, floor string) bool {
	order := map[string]int{"S": 5, "A": 4, "B": 3, "C": 2, "D": 1, "F": 0}
	return order[grade] >= order[floor]
}

func topByGrade(rows []models.Signal, n int) []models.Signal {
	active := make([]models.Signal, 0, len(rows))
	for _, r := range rows {
		if r.IsActive {
			active = append(active, r)
		}
	}
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if active[j].OverallScore > active[i].OverallScore {
				active[i], active[j] = active[j], active[i]
			}
		}
	}
	if len(active) > n {
		active = active[:n]
	}
	return active
}

func tickerInfo(t models.Ticker) marketdata.TickerInfo {
	return marketdata.TickerInfo{
		Symbol:     t.Symbol,
		Name:       t.Name,
		Exchange:   t.Exchange,
		Country:    t.Country,
		Currency:   t.Currency,
		Sector:     t.Sector,
		Industry:   t.Industry,
		MarketCap:  t.MarketCap,
		TickerType: t.TickerType,
		IsActive:   t.IsActive,
	}
}

package orchestrator

import (
	"time"

	"signalengine/store/models"
)

// ScanReport summarizes one RunScan invocation: per-phase counts,
// durations, a failure taxonomy, and the highest-graded signals (spec
// §4.10 "Produces a ScanReport").
type ScanReport struct {
	Strategy     string
	ScanDate     time.Time
	PhaseCounts  map[string]int
	Durations    map[string]time.Duration
	Failures     map[string]int
	TopSignals   []models.Signal
	TotalElapsed time.Duration
}

func newReport(strategy string, scanDate time.Time) *ScanReport {
	return &ScanReport{
		Strategy:    strategy,
		ScanDate:    scanDate,
		PhaseCounts: make(map[string]int),
		Durations:   make(map[string]time.Duration),
		Failures:    make(map[string]int),
	}
}

func (r *ScanReport) recordPhase(name string, count int, elapsed time.Duration) {
	r.PhaseCounts[name] = count
	r.Durations[name] = elapsed
}

func (r *ScanReport) recordFailure(reason string, n int) {
	r.Failures[reason] += n
}

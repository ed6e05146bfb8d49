// Package store wraps *gorm.DB for the engine's Signal/AlertRecord
// persistence (spec C8). Grounded on the teacher's
// database/trades/repository.go BatchSaveTrades (fixed-size batches,
// per-row duplicate tolerance, continue past a failed batch) and
// database/signals/repository.go's filtered-query shape, generalized
// from append-only trade ingestion to idempotent upsert-on-conflict.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"signalengine/store/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultBatchSize = 100
	batchYieldDelay  = 50 * time.Millisecond
	pageSize         = 1000
)

// SignalStore is the Signal/AlertRecord repository.
type SignalStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *SignalStore {
	return &SignalStore{db: db}
}

// BatchResult reports best-effort batch-write outcomes (spec §4.8
// failure semantics: "the caller receives the counts").
type BatchResult struct {
	Attempted int
	Succeeded int
	Failed    int
}

// UpsertSignals writes rows idempotently on the (symbol, strategy,
// scan_date) unique key, batched into defaultBatchSize-row groups with a
// yield delay between batches to stay under DB RPS. One failed row does
// not block the batch (spec §4.8 "Guarantees").
//
// Each row is created in place at its slot in the caller's slice
// (&signals[j], never a loop-local copy): on insert or on an ON CONFLICT
// DO UPDATE, Postgres returns the row's id and GORM writes it back onto
// that struct, so the caller observes the generated/existing autoincrement
// PK afterward. ContinuityEngine never sets this PK itself (it leaves every
// fresh-scan-day row's ID at zero, new or carried-forward signal_id alike),
// so a CONTINUING/ENDED/EXPIRED row for a key that didn't exist on today's
// scan_date always takes the plain-INSERT path instead of colliding with
// yesterday's still-present row on signals_pkey.
func (s *SignalStore) UpsertSignals(ctx context.Context, signals []models.Signal) (BatchResult, error) {
	result := BatchResult{Attempted: len(signals)}
	if len(signals) == 0 {
		return result, nil
	}

	for i := 0; i < len(signals); i += defaultBatchSize {
		end := i + defaultBatchSize
		if end > len(signals) {
			end = len(signals)
		}

		for j := i; j < end; j++ {
			err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "symbol"}, {Name: "strategy"}, {Name: "scan_date"}},
				UpdateAll: true,
			}).Create(&signals[j]).Error
			if err != nil {
				result.Failed++
				log.Printf("⚠️ UpsertSignals: row %s/%s/%s failed: %v", signals[j].Symbol, signals[j].Strategy, signals[j].ScanDate, err)
				continue
			}
			result.Succeeded++
		}

		if end < len(signals) {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(batchYieldDelay):
			}
		}
	}

	return result, nil
}

// SignalsOn returns the active rows for `date`, optionally filtered by
// strategy, paginated via range queries of pageSize.
func (s *SignalStore) SignalsOn(ctx context.Context, date time.Time, strategy string) ([]models.Signal, error) {
	civil := models.NewCivilDate(date).Time
	var out []models.Signal

	var lastID int64
	for {
		var page []models.Signal
		q := s.db.WithContext(ctx).Where("scan_date = ? AND is_active = ?", civil, true).Where("id > ?", lastID).Order("id ASC").Limit(pageSize)
		if strategy != "" {
			q = q.Where("strategy = ?", strategy)
		}
		if err := q.Find(&page).Error; err != nil {
			return nil, fmt.Errorf("SignalsOn: %w", err)
		}
		out = append(out, page...)
		if len(page) < pageSize {
			break
		}
		lastID = page[len(page)-1].ID
	}
	return out, nil
}

// ExpirePast flips is_active=false for rows whose expiry has passed.
func (s *SignalStore) ExpirePast(ctx context.Context, today time.Time) (int64, error) {
	civil := models.NewCivilDate(today).Time
	tx := s.db.WithContext(ctx).Model(&models.Signal{}).
		Where("expiry < ? AND is_active = ?", civil, true).
		Update("is_active", false)
	return tx.RowsAffected, tx.Error
}

// NoiseRule is one disqualifying predicate for CleanupNoise: a raw SQL
// WHERE fragment plus its bind args (e.g. "grade = ?", "F").
type NoiseRule struct {
	Where string
	Args  []any
}

// CleanupNoise marks inactive any active row matching any configured
// disqualifying rule.
func (s *SignalStore) CleanupNoise(ctx context.Context, rules []NoiseRule) (int64, error) {
	var total int64
	for _, rule := range rules {
		tx := s.db.WithContext(ctx).Model(&models.Signal{}).
			Where("is_active = ?", true).
			Where(rule.Where, rule.Args...).
			Update("is_active", false)
		if tx.Error != nil {
			return total, fmt.Errorf("CleanupNoise: %w", tx.Error)
		}
		total += tx.RowsAffected
	}
	return total, nil
}

// ReconcileDuplicates keeps the latest-updated active row per
// (symbol, strategy, scan_date) and marks the rest inactive.
func (s *SignalStore) ReconcileDuplicates(ctx context.Context, date time.Time, strategy string) (int64, error) {
	rows, err := s.SignalsOn(ctx, date, strategy)
	if err != nil {
		return 0, err
	}

	latest := make(map[string]models.Signal, len(rows))
	for _, r := range rows {
		k := r.Symbol + "|" + r.Strategy
		if cur, ok := latest[k]; !ok || r.UpdatedAt.After(cur.UpdatedAt) {
			latest[k] = r
		}
	}

	var demoted int64
	for _, r := range rows {
		k := r.Symbol + "|" + r.Strategy
		if latest[k].ID == r.ID {
			continue
		}
		tx := s.db.WithContext(ctx).Model(&models.Signal{}).Where("id = ?", r.ID).Update("is_active", false)
		if tx.Error != nil {
			return demoted, fmt.Errorf("ReconcileDuplicates: %w", tx.Error)
		}
		demoted += tx.RowsAffected
	}
	return demoted, nil
}

// SaveAlert persists one AlertRecord.
func (s *SignalStore) SaveAlert(ctx context.Context, alert *models.AlertRecord) error {
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("SaveAlert: %w", err)
	}
	return nil
}

// SavePerformanceRecord upserts one performance record by ID (create if
// zero, save otherwise).
func (s *SignalStore) SavePerformanceRecord(ctx context.Context, rec *models.PerformanceRecord) error {
	if rec.ID == 0 {
		if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
			return fmt.Errorf("SavePerformanceRecord: %w", err)
		}
		return nil
	}
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("SavePerformanceRecord: %w", err)
	}
	return nil
}

// OpenPerformanceRecords returns ACTIVE records for the given stable
// signal_ids, used by PerformanceTracker to find records needing a
// terminal-transition check.
func (s *SignalStore) OpenPerformanceRecords(ctx context.Context, signalIDs []string) ([]models.PerformanceRecord, error) {
	if len(signalIDs) == 0 {
		return nil, nil
	}
	var recs []models.PerformanceRecord
	err := s.db.WithContext(ctx).Where("signal_id IN ? AND status = ?", signalIDs, "ACTIVE").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("OpenPerformanceRecords: %w", err)
	}
	return recs, nil
}

// PerformanceRecordFor returns the existing record for a signal's stable
// signal_id, or nil if none has been opened yet. The tracker calls this
// before opening a NEW signal so a same-day re-scan (still NEW, since
// yesterday's state hasn't changed) is a no-op rather than a duplicate
// open (spec §4.9: "Exactly-once open/close per signal ... re-invocation
// is a no-op").
func (s *SignalStore) PerformanceRecordFor(ctx context.Context, signalID string) (*models.PerformanceRecord, error) {
	var rec models.PerformanceRecord
	err := s.db.WithContext(ctx).Where("signal_id = ?", signalID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("PerformanceRecordFor: %w", err)
	}
	return &rec, nil
}

package store

import (
	"context"
	"fmt"

	"signalengine/store/models"

	"gorm.io/gorm"
)

// UniverseFilter narrows TickerStore.ActiveUniverse to a strategy's
// applicable symbols (spec §4.10 phase 1: "is_active + exchange/
// country/sector filters").
type UniverseFilter struct {
	Exchange string
	Country  string
	Sector   string
	MaxSize  int
}

// TickerStore is the read-only ticker-metadata repository backing
// universe resolution.
type TickerStore struct {
	db *gorm.DB
}

func NewTickerStore(db *gorm.DB) *TickerStore {
	return &TickerStore{db: db}
}

// ActiveUniverse returns up to filter.MaxSize active tickers matching
// the optional exchange/country/sector predicates.
func (t *TickerStore) ActiveUniverse(ctx context.Context, filter UniverseFilter) ([]models.Ticker, error) {
	q := t.db.WithContext(ctx).Where("is_active = ?", true)
	if filter.Exchange != "" {
		q = q.Where("exchange = ?", filter.Exchange)
	}
	if filter.Country != "" {
		q = q.Where("country = ?", filter.Country)
	}
	if filter.Sector != "" {
		q = q.Where("sector = ?", filter.Sector)
	}
	if filter.MaxSize > 0 {
		q = q.Limit(filter.MaxSize)
	}
	var tickers []models.Ticker
	if err := q.Find(&tickers).Error; err != nil {
		return nil, fmt.Errorf("ActiveUniverse: %w", err)
	}
	return tickers, nil
}

package adapters

import (
	"context"

	"valutatrade/internal/domain"
)

// RateProvider is an external source of exchange rates. Implementations
// return rates for every pair they could resolve; a failed fetch returns
// a *domain.ProviderError.
type RateProvider interface {
	Name() string
	FetchRates(ctx context.Context) (map[domain.Pair]float64, error)
}

// RateCache is the latest-rate-per-pair store with snapshot semantics:
// Replace atomically swaps the whole persisted snapshot.
type RateCache interface {
	Load() (*domain.CacheSnapshot, error)
	Get(pair domain.Pair) (domain.CacheEntry, bool, error)
	Replace(entries map[string]domain.CacheEntry) error
}

// HistoryStore is the append-only ledger of observed rate samples.
type HistoryStore interface {
	Append(record domain.HistoryRecord) error
	HistoryFor(pair domain.Pair, limit int) ([]domain.HistoryRecord, error)
}

// Updater triggers one fetch-all-providers cycle. The report is always
// non-nil; err is non-nil only when the run could not durably persist
// its results.
type Updater interface {
	RunUpdate(ctx context.Context, sources ...string) (*domain.UpdateReport, error)
}

package update

import (
	"context"
	"fmt"
	"sync"
	"time"

	"valutatrade/internal/adapters"
	"valutatrade/internal/domain"
	"valutatrade/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Coordinator orchestrates one fetch-all-providers cycle: it calls each
// requested provider, folds failures into the report, appends history
// records and replaces the cache snapshot with the rates of this run.
//
// Runs are serialized behind a mutex, so a scheduler tick racing a
// manual refresh cannot interleave cache and history writes.
type Coordinator struct {
	mu        sync.Mutex
	providers map[string]adapters.RateProvider
	order     []string
	cache     adapters.RateCache
	history   adapters.HistoryStore
	rawIDs    map[string]string
	metrics   *metrics.Metrics
}

// NewCoordinator wires the coordinator. rawIDs maps ticker codes to
// provider-native asset identifiers for record provenance; m may be nil.
func NewCoordinator(cache adapters.RateCache, history adapters.HistoryStore, providers []adapters.RateProvider, rawIDs map[string]string, m *metrics.Metrics) *Coordinator {
	byName := make(map[string]adapters.RateProvider, len(providers))
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
		order = append(order, p.Name())
	}
	return &Coordinator{
		providers: byName,
		order:     order,
		cache:     cache,
		history:   history,
		rawIDs:    rawIDs,
		metrics:   m,
	}
}

// Sources returns the configured provider names in wiring order.
func (c *Coordinator) Sources() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// RunUpdate fetches rates from the requested sources (all configured
// ones when none are named). Provider failures are contained: they mark
// the per-source outcome and the report but never abort the remaining
// sources. The report is always non-nil; the error return is non-nil
// only when persisting the results failed.
//
// The cache write is a full snapshot replacement: pairs owned by a
// provider that failed this run are absent from the new snapshot.
func (c *Coordinator) RunUpdate(ctx context.Context, sources ...string) (*domain.UpdateReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	started := time.Now()
	report := &domain.UpdateReport{
		RunID:     uuid.NewString(),
		Timestamp: started.UTC(),
		Errors:    []string{},
		Success:   true,
	}
	logrus.Infof("Rates update %s started", report.RunID)

	if len(sources) == 0 {
		sources = c.order
	}

	pending := make(map[string]domain.CacheEntry)
	var records []domain.HistoryRecord

	for _, source := range sources {
		p, ok := c.providers[source]
		if !ok {
			msg := fmt.Sprintf("unknown source: %s", source)
			logrus.Error(msg)
			report.Errors = append(report.Errors, msg)
			report.Sources = append(report.Sources, domain.SourceOutcome{
				Source: source,
				Status: domain.OutcomeError,
				Error:  msg,
			})
			report.Success = false
			continue
		}

		rates, err := p.FetchRates(ctx)
		if err != nil {
			logrus.WithError(err).Errorf("Fetching rates from %s failed", source)
			report.Errors = append(report.Errors, fmt.Sprintf("fetch from %s: %v", source, err))
			report.Sources = append(report.Sources, domain.SourceOutcome{
				Source: source,
				Status: domain.OutcomeError,
				Error:  err.Error(),
			})
			report.Success = false
			c.metrics.ObserveProviderError(source, err)
			continue
		}

		fetchedAt := time.Now().UTC()
		for pair, rate := range rates {
			sample := domain.RateSample{Pair: pair, Rate: rate, Source: source, Timestamp: fetchedAt}
			records = append(records, domain.NewHistoryRecord(sample, domain.RecordMeta{
				RawID:      c.rawID(pair.From),
				StatusCode: 200,
			}))
			pending[pair.String()] = domain.CacheEntry{Rate: rate, UpdatedAt: fetchedAt, Source: source}
		}

		report.TotalRatesFetched += len(rates)
		report.Sources = append(report.Sources, domain.SourceOutcome{
			Source:       source,
			FetchedCount: len(rates),
			Status:       domain.OutcomeSuccess,
		})
		c.metrics.ObserveRatesFetched(source, len(rates))
		logrus.Infof("%s: %d rates fetched", source, len(rates))
	}

	var persistErr error
	if len(pending) > 0 {
		persistErr = c.persist(report, pending, records)
	}

	c.metrics.ObserveRun(report.Success, time.Since(started))
	if report.Success {
		logrus.Infof("Rates update %s finished: %d sources, %d rates", report.RunID, len(report.Sources), report.TotalRatesFetched)
	} else {
		logrus.Warnf("Rates update %s finished with errors: %v", report.RunID, report.Errors)
	}
	return report, persistErr
}

// persist appends history records (best-effort per record) and replaces
// the cache snapshot once. Any write failure fails the run.
func (c *Coordinator) persist(report *domain.UpdateReport, pending map[string]domain.CacheEntry, records []domain.HistoryRecord) error {
	var firstErr error

	for _, rec := range records {
		if err := c.history.Append(rec); err != nil {
			logrus.WithError(err).Errorf("Storing history record %s failed", rec.ID)
			report.Errors = append(report.Errors, fmt.Sprintf("store history record %s: %v", rec.ID, err))
			report.Success = false
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if prior, err := c.cache.Load(); err == nil && len(prior.Pairs) > len(pending) {
		logrus.Warnf("New snapshot has %d pairs, prior had %d: pairs from failed sources are dropped", len(pending), len(prior.Pairs))
	}

	if err := c.cache.Replace(pending); err != nil {
		logrus.WithError(err).Error("Replacing rates cache failed")
		report.Errors = append(report.Errors, fmt.Sprintf("replace rates cache: %v", err))
		report.Success = false
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Coordinator) rawID(code string) string {
	if id, ok := c.rawIDs[code]; ok {
		return id
	}
	return code
}

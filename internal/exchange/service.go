package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"valutatrade/internal/adapters"
	"valutatrade/internal/domain"

	"github.com/dgraph-io/ristretto"
	"github.com/sirupsen/logrus"
)

// RateInfo is a resolved exchange rate with its provenance.
type RateInfo struct {
	Pair      domain.Pair `json:"pair"`
	Rate      float64     `json:"rate"`
	UpdatedAt time.Time   `json:"updated_at"`
	Source    string      `json:"source"`
}

// Service resolves rates for consumers on top of the snapshot cache:
// direct pair first, then the inverse, then a cross rate through the
// base currency. A stale or missing pair triggers a coordinator refresh
// before giving up. Resolved lookups are kept in a small TTL hot cache.
type Service struct {
	cache    adapters.RateCache
	updater  adapters.Updater
	registry *domain.Registry
	base     string
	ttl      time.Duration
	hot      *ristretto.Cache
}

func NewService(cache adapters.RateCache, updater adapters.Updater, registry *domain.Registry, base string, ttl time.Duration, hotSize int64) (*Service, error) {
	if hotSize <= 0 {
		hotSize = 1024
	}
	hot, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * hotSize,
		MaxCost:     hotSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create rate hot cache failed: %w", err)
	}
	return &Service{
		cache:    cache,
		updater:  updater,
		registry: registry,
		base:     strings.ToUpper(base),
		ttl:      ttl,
		hot:      hot,
	}, nil
}

// GetRate resolves from->to. Both codes must be registered currencies.
func (s *Service) GetRate(ctx context.Context, from, to string) (RateInfo, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	for _, code := range []string{from, to} {
		if err := domain.ValidateCode(code); err != nil {
			return RateInfo{}, err
		}
		if !s.registry.Supported(code) {
			return RateInfo{}, &domain.ValidationError{Reason: fmt.Sprintf("unknown currency %q", code)}
		}
	}

	pair := domain.Pair{From: from, To: to}
	if from == to {
		return RateInfo{Pair: pair, Rate: 1.0, UpdatedAt: time.Now().UTC(), Source: "identity"}, nil
	}

	if v, ok := s.hot.Get(pair.String()); ok {
		if info, ok := v.(RateInfo); ok {
			return info, nil
		}
	}

	info, ok, err := s.resolve(pair)
	if err != nil {
		return RateInfo{}, err
	}
	if !ok {
		logrus.Infof("Rate %s is stale or missing, refreshing", pair)
		if _, updErr := s.updater.RunUpdate(ctx); updErr != nil {
			logrus.WithError(updErr).Warn("Refresh triggered by stale rate could not persist")
		}
		info, ok, err = s.resolve(pair)
		if err != nil {
			return RateInfo{}, err
		}
		if !ok {
			return RateInfo{}, fmt.Errorf("%w: %s", domain.ErrRateNotFound, pair)
		}
	}

	// The hot entry must expire when the underlying rate goes stale, not
	// a full ttl after resolve time, so cache only the remaining
	// freshness window.
	if remaining := time.Until(info.UpdatedAt.Add(s.ttl)); remaining > 0 {
		s.hot.SetWithTTL(pair.String(), info, 1, remaining)
	}
	return info, nil
}

// resolve tries direct, inverse and base-cross resolution against fresh
// cache entries only.
func (s *Service) resolve(pair domain.Pair) (RateInfo, bool, error) {
	now := time.Now()

	entry, ok, err := s.cache.Get(pair)
	if err != nil {
		return RateInfo{}, false, err
	}
	if ok && entry.Fresh(now, s.ttl) {
		return RateInfo{Pair: pair, Rate: entry.Rate, UpdatedAt: entry.UpdatedAt, Source: entry.Source}, true, nil
	}

	inv, ok, err := s.cache.Get(pair.Reversed())
	if err != nil {
		return RateInfo{}, false, err
	}
	if ok && inv.Fresh(now, s.ttl) && inv.Rate > 0 {
		return RateInfo{Pair: pair, Rate: 1 / inv.Rate, UpdatedAt: inv.UpdatedAt, Source: inv.Source}, true, nil
	}

	if pair.From != s.base && pair.To != s.base {
		fromLeg, okFrom, err := s.cache.Get(domain.Pair{From: pair.From, To: s.base})
		if err != nil {
			return RateInfo{}, false, err
		}
		toLeg, okTo, err := s.cache.Get(domain.Pair{From: pair.To, To: s.base})
		if err != nil {
			return RateInfo{}, false, err
		}
		if okFrom && okTo && fromLeg.Fresh(now, s.ttl) && toLeg.Fresh(now, s.ttl) && toLeg.Rate > 0 {
			updated := fromLeg.UpdatedAt
			if toLeg.UpdatedAt.Before(updated) {
				updated = toLeg.UpdatedAt
			}
			return RateInfo{
				Pair:      pair,
				Rate:      fromLeg.Rate / toLeg.Rate,
				UpdatedAt: updated,
				Source:    "derived",
			}, true, nil
		}
	}

	return RateInfo{}, false, nil
}

// Close releases the hot cache.
func (s *Service) Close() { s.hot.Close() }

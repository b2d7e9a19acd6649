package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheEntry_Fresh(t *testing.T) {
	now := time.Now()
	ttl := 300 * time.Second

	fresh := CacheEntry{UpdatedAt: now.Add(-299 * time.Second)}
	require.True(t, fresh.Fresh(now, ttl))

	exactlyTTL := CacheEntry{UpdatedAt: now.Add(-300 * time.Second)}
	require.False(t, exactlyTTL.Fresh(now, ttl))

	stale := CacheEntry{UpdatedAt: now.Add(-301 * time.Second)}
	require.False(t, stale.Fresh(now, ttl))
}

func TestNewHistoryRecord_ID(t *testing.T) {
	ts := time.Date(2025, 10, 1, 12, 30, 0, 0, time.UTC)
	sample := RateSample{
		Pair:      Pair{From: "BTC", To: "USD"},
		Rate:      59337.21,
		Source:    "coingecko",
		Timestamp: ts,
	}
	rec := NewHistoryRecord(sample, RecordMeta{RawID: "bitcoin", StatusCode: 200})

	require.Equal(t, "BTC_USD_coingecko_2025-10-01T12:30:00Z", rec.ID)
	require.Equal(t, "BTC", rec.FromCurrency)
	require.Equal(t, "USD", rec.ToCurrency)
	require.Equal(t, 59337.21, rec.Rate)
	require.Equal(t, ts, rec.Timestamp)
	require.Equal(t, "bitcoin", rec.Meta.RawID)
}

func TestNewHistoryRecord_DistinctIDsPerSource(t *testing.T) {
	ts := time.Now()
	sample := RateSample{Pair: Pair{From: "EUR", To: "USD"}, Rate: 1.08, Timestamp: ts}

	sample.Source = "coingecko"
	a := NewHistoryRecord(sample, RecordMeta{})
	sample.Source = "exchangerate"
	b := NewHistoryRecord(sample, RecordMeta{})

	require.NotEqual(t, a.ID, b.ID)
}

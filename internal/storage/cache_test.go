package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"valutatrade/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestCache_Load_MissingFileYieldsEmptySnapshot(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "rates.json"))

	snap, err := c.Load()
	require.NoError(t, err)
	require.NotNil(t, snap.Pairs)
	require.Empty(t, snap.Pairs)
	require.Nil(t, snap.LastRefresh)
}

func TestCache_ReplaceAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.json")
	c := NewCache(path)

	now := time.Now().UTC()
	entries := map[string]domain.CacheEntry{
		"BTC_USD": {Rate: 59337.21, UpdatedAt: now, Source: "coingecko"},
		"EUR_USD": {Rate: 1.0786, UpdatedAt: now, Source: "exchangerate"},
	}
	require.NoError(t, c.Replace(entries))

	entry, ok, err := c.Get(domain.Pair{From: "BTC", To: "USD"})
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 59337.21, entry.Rate, 1e-9)
	require.Equal(t, "coingecko", entry.Source)

	_, ok, err = c.Get(domain.Pair{From: "GBP", To: "USD"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCache_ReplaceIsFullOverwrite(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "rates.json"))
	now := time.Now().UTC()

	require.NoError(t, c.Replace(map[string]domain.CacheEntry{
		"BTC_USD": {Rate: 1, UpdatedAt: now},
		"ETH_USD": {Rate: 2, UpdatedAt: now},
	}))
	require.NoError(t, c.Replace(map[string]domain.CacheEntry{
		"BTC_USD": {Rate: 3, UpdatedAt: now},
	}))

	snap, err := c.Load()
	require.NoError(t, err)
	require.Len(t, snap.Pairs, 1)
	require.NotContains(t, snap.Pairs, "ETH_USD")
	require.Equal(t, 1, snap.Metadata.TotalPairs)
	require.Equal(t, "ParserService", snap.Metadata.Source)
	require.NotNil(t, snap.LastRefresh)
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.json")
	now := time.Now().UTC().Truncate(time.Second)

	first := NewCache(path)
	require.NoError(t, first.Replace(map[string]domain.CacheEntry{
		"EUR_USD": {Rate: 1.0786, UpdatedAt: now, Source: "exchangerate"},
	}))

	second := NewCache(path)
	entry, ok, err := second.Get(domain.Pair{From: "EUR", To: "USD"})
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 1.0786, entry.Rate, 1e-9)
	require.True(t, entry.UpdatedAt.Equal(now))
}

func TestCache_CorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	c := NewCache(path)
	snap, err := c.Load()
	require.NoError(t, err)
	require.Empty(t, snap.Pairs)
}

func TestCache_Invalidate_RereadsDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.json")
	now := time.Now().UTC()

	c := NewCache(path)
	require.NoError(t, c.Replace(map[string]domain.CacheEntry{
		"BTC_USD": {Rate: 1, UpdatedAt: now},
	}))

	// Another writer replaces the file behind our back.
	other := NewCache(path)
	require.NoError(t, other.Replace(map[string]domain.CacheEntry{
		"BTC_USD": {Rate: 2, UpdatedAt: now},
	}))

	entry, _, err := c.Get(domain.Pair{From: "BTC", To: "USD"})
	require.NoError(t, err)
	require.InDelta(t, 1, entry.Rate, 1e-9)

	c.Invalidate()
	entry, _, err = c.Get(domain.Pair{From: "BTC", To: "USD"})
	require.NoError(t, err)
	require.InDelta(t, 2, entry.Rate, 1e-9)
}

func TestCache_LoadReturnsACopy(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "rates.json"))
	require.NoError(t, c.Replace(map[string]domain.CacheEntry{
		"BTC_USD": {Rate: 1, UpdatedAt: time.Now().UTC()},
	}))

	snap, err := c.Load()
	require.NoError(t, err)
	delete(snap.Pairs, "BTC_USD")

	again, err := c.Load()
	require.NoError(t, err)
	require.Contains(t, again.Pairs, "BTC_USD")
}

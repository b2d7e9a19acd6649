package storage

import (
	"maps"
	"sync"
	"time"

	"valutatrade/internal/domain"

	"github.com/sirupsen/logrus"
)

// cacheWriterName is recorded in snapshot metadata as the source of the
// persisted file.
const cacheWriterName = "ParserService"

// Cache is the latest-rate-per-pair store. The snapshot is lazy-loaded
// from disk on first access and served from memory until replaced or
// invalidated. Replace persists a full new snapshot atomically; it is a
// complete overwrite, not a per-pair merge.
type Cache struct {
	path string

	mu   sync.RWMutex
	snap *domain.CacheSnapshot
}

func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Load returns a copy of the current snapshot, reading it from disk if
// no in-memory copy exists yet. A missing file yields an empty
// snapshot; a corrupt file is logged and treated as empty rather than
// blocking all reads.
func (c *Cache) Load() (*domain.CacheSnapshot, error) {
	c.mu.RLock()
	if c.snap != nil {
		snap := cloneSnapshot(c.snap)
		c.mu.RUnlock()
		return snap, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		snap, err := c.readDisk()
		if err != nil {
			return nil, err
		}
		c.snap = snap
	}
	return cloneSnapshot(c.snap), nil
}

func (c *Cache) readDisk() (*domain.CacheSnapshot, error) {
	var snap domain.CacheSnapshot
	existed, err := ReadJSON(c.path, &snap)
	if err != nil {
		if pe, ok := err.(*domain.PersistenceError); ok && pe.Op == "decode" {
			logrus.WithError(err).Errorf("Rates cache file %s is corrupt, starting from an empty snapshot", c.path)
			return emptySnapshot(), nil
		}
		return nil, err
	}
	if !existed {
		return emptySnapshot(), nil
	}
	if snap.Pairs == nil {
		snap.Pairs = map[string]domain.CacheEntry{}
	}
	return &snap, nil
}

// Get returns the cached entry for a pair, if any.
func (c *Cache) Get(pair domain.Pair) (domain.CacheEntry, bool, error) {
	snap, err := c.Load()
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	entry, ok := snap.Pairs[pair.String()]
	return entry, ok, nil
}

// Replace atomically persists a full new snapshot built from entries
// and swaps the in-memory copy. Pairs absent from entries are gone from
// the new snapshot.
func (c *Cache) Replace(entries map[string]domain.CacheEntry) error {
	now := time.Now().UTC()
	snap := &domain.CacheSnapshot{
		Pairs:       maps.Clone(entries),
		LastRefresh: &now,
		Metadata: domain.SnapshotMetadata{
			TotalPairs: len(entries),
			Source:     cacheWriterName,
		},
	}
	if snap.Pairs == nil {
		snap.Pairs = map[string]domain.CacheEntry{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := WriteJSONAtomic(c.path, snap); err != nil {
		return err
	}
	c.snap = snap
	logrus.Infof("Rates cache refreshed: %d pairs", len(snap.Pairs))
	return nil
}

// Invalidate drops the in-memory copy; the next Load re-reads disk.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

func emptySnapshot() *domain.CacheSnapshot {
	return &domain.CacheSnapshot{Pairs: map[string]domain.CacheEntry{}}
}

func cloneSnapshot(s *domain.CacheSnapshot) *domain.CacheSnapshot {
	out := *s
	out.Pairs = maps.Clone(s.Pairs)
	return &out
}

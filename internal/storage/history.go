package storage

import (
	"sort"
	"sync"
	"time"

	"valutatrade/internal/domain"

	"github.com/sirupsen/logrus"
)

const historyVersion = "1.0"

// History is the append-only ledger of observed rate samples. Appends
// are logically monotonic (ids are never reused) but physically a
// read-modify-atomic-write of the whole file.
type History struct {
	path string
	mu   sync.Mutex
}

func NewHistory(path string) *History {
	return &History{path: path}
}

func (h *History) load() (*domain.HistoryData, error) {
	var data domain.HistoryData
	existed, err := ReadJSON(h.path, &data)
	if err != nil {
		if pe, ok := err.(*domain.PersistenceError); ok && pe.Op == "decode" {
			logrus.WithError(err).Errorf("History ledger %s is corrupt, starting a fresh ledger", h.path)
			return &domain.HistoryData{History: map[string]domain.HistoryRecord{}, Metadata: domain.HistoryMetadata{Version: historyVersion}}, nil
		}
		return nil, err
	}
	if !existed || data.History == nil {
		data.History = map[string]domain.HistoryRecord{}
	}
	return &data, nil
}

// Append inserts the record by its unique id, rewrites the ledger
// metadata and persists the whole file atomically.
func (h *History) Append(record domain.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := h.load()
	if err != nil {
		return err
	}
	data.History[record.ID] = record

	now := time.Now().UTC()
	data.Metadata = domain.HistoryMetadata{
		LastUpdate:   &now,
		TotalRecords: len(data.History),
		Version:      historyVersion,
	}
	if err := WriteJSONAtomic(h.path, data); err != nil {
		return err
	}
	logrus.Debugf("History record stored: %s", record.ID)
	return nil
}

// Totals returns the current ledger metadata.
func (h *History) Totals() (domain.HistoryMetadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	data, err := h.load()
	if err != nil {
		return domain.HistoryMetadata{}, err
	}
	meta := data.Metadata
	meta.TotalRecords = len(data.History)
	return meta, nil
}

// HistoryFor returns records for the pair, most recent first. limit <= 0
// returns all of them.
func (h *History) HistoryFor(pair domain.Pair, limit int) ([]domain.HistoryRecord, error) {
	h.mu.Lock()
	data, err := h.load()
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	records := make([]domain.HistoryRecord, 0, len(data.History))
	for _, rec := range data.History {
		if rec.FromCurrency == pair.From && rec.ToCurrency == pair.To {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

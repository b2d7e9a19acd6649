package domain

import (
	"fmt"
	"time"
)

// RateSample is one successfully fetched rate from one provider.
type RateSample struct {
	Pair      Pair
	Rate      float64
	Source    string
	Timestamp time.Time
}

// CacheEntry is the latest known rate for a pair.
type CacheEntry struct {
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

// Fresh reports whether the entry is younger than ttl at the given
// moment. An entry exactly ttl old is stale.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.UpdatedAt) < ttl
}

// CacheSnapshot is the full persisted cache state. It is replaced
// atomically as a unit: readers always observe a complete prior or new
// snapshot, never a mixture.
type CacheSnapshot struct {
	Pairs       map[string]CacheEntry `json:"pairs"`
	LastRefresh *time.Time            `json:"last_refresh"`
	Metadata    SnapshotMetadata      `json:"metadata"`
}

type SnapshotMetadata struct {
	TotalPairs int    `json:"total_pairs"`
	Source     string `json:"source"`
}

// RecordMeta carries provenance for a history record.
type RecordMeta struct {
	RawID      string `json:"raw_id"`
	RequestMS  int64  `json:"request_ms"`
	StatusCode int    `json:"status_code"`
	ETag       string `json:"etag"`
}

// HistoryRecord is one immutable ledger entry. Records are never
// mutated or deleted once appended.
type HistoryRecord struct {
	ID           string     `json:"id"`
	FromCurrency string     `json:"from_currency"`
	ToCurrency   string     `json:"to_currency"`
	Rate         float64    `json:"rate"`
	Timestamp    time.Time  `json:"timestamp"`
	Source       string     `json:"source"`
	Meta         RecordMeta `json:"meta"`
}

// NewHistoryRecord builds a record for one sample. The id derives from
// pair, source and timestamp, so two sources reporting the same pair in
// the same second still get distinct ids.
func NewHistoryRecord(sample RateSample, meta RecordMeta) HistoryRecord {
	id := fmt.Sprintf("%s_%s_%s", sample.Pair.String(), sample.Source, sample.Timestamp.UTC().Format(time.RFC3339))
	return HistoryRecord{
		ID:           id,
		FromCurrency: sample.Pair.From,
		ToCurrency:   sample.Pair.To,
		Rate:         sample.Rate,
		Timestamp:    sample.Timestamp.UTC(),
		Source:       sample.Source,
		Meta:         meta,
	}
}

// HistoryData is the persisted ledger file: records keyed by id plus
// rewrite-on-append metadata.
type HistoryData struct {
	History  map[string]HistoryRecord `json:"history"`
	Metadata HistoryMetadata          `json:"metadata"`
}

type HistoryMetadata struct {
	LastUpdate   *time.Time `json:"last_update"`
	TotalRecords int        `json:"total_records"`
	Version      string     `json:"version"`
}

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

// SourceOutcome is the per-provider result inside an UpdateReport.
type SourceOutcome struct {
	Source       string        `json:"source"`
	FetchedCount int           `json:"fetched_count"`
	Status       OutcomeStatus `json:"status"`
	Error        string        `json:"error,omitempty"`
}

// UpdateReport summarizes one coordinator run. It is built fresh per
// run, returned to the caller and logged, never persisted.
type UpdateReport struct {
	RunID             string          `json:"run_id"`
	Timestamp         time.Time       `json:"timestamp"`
	Sources           []SourceOutcome `json:"sources"`
	TotalRatesFetched int             `json:"total_rates_fetched"`
	Errors            []string        `json:"errors"`
	Success           bool            `json:"success"`
}

// Package article defines the stored article row, the per-day cache
// verdicts, and the collaborator interfaces the fetch coordinator consumes.
package article

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Row is a stored article keyed by its globally unique GKG record ID.
// DateAdded is the warehouse YYYYMMDDHHMMSS encoding; Payload is the
// opaque document blob (entities, tone, themes) the core never inspects.
type Row struct {
	GKGRecordID string
	CountryCode string
	DateAdded   int64
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// DayKey is the canonical cache granularity: one country on one calendar day.
type DayKey struct {
	CountryCode string
	Date        time.Time
}

// String renders the key in the form used by the single-flight registry.
func (k DayKey) String() string {
	return fmt.Sprintf("%s:%s", k.CountryCode, k.Date.Format("2006-01-02"))
}

// CoverageVerdict is the result of a cache-completeness check for a DayKey.
type CoverageVerdict struct {
	Sufficient bool
	Count      int64
}

// FreshnessState classifies the current day's cache.
type FreshnessState int

const (
	// FreshnessEmpty means no rows exist for today; fetch [day start, now].
	FreshnessEmpty FreshnessState = iota
	// FreshnessStale means the latest ingest is older than the TTL; fetch
	// [last ingest, now].
	FreshnessStale
	// FreshnessFresh means the latest ingest is within the TTL; no action.
	FreshnessFresh
)

func (s FreshnessState) String() string {
	switch s {
	case FreshnessEmpty:
		return "empty"
	case FreshnessStale:
		return "stale"
	case FreshnessFresh:
		return "fresh"
	default:
		return "unknown"
	}
}

// FreshnessVerdict is the result of a current-day freshness check. WindowLo
// and WindowHi bound the incremental fetch for the Empty and Stale states.
type FreshnessVerdict struct {
	State      FreshnessState
	LastIngest int64
	WindowLo   int64
	WindowHi   int64
}

// StorageStats is the store snapshot exposed on the stats endpoint and
// logged around retention runs.
type StorageStats struct {
	TotalRows       int64            `json:"total_rows"`
	RowsByCountry   map[string]int64 `json:"rows_by_country"`
	OldestCreatedAt *time.Time       `json:"oldest_created_at,omitempty"`
	NewestCreatedAt *time.Time       `json:"newest_created_at,omitempty"`
}

// Store is the durable keyed article store. Implementations serialize
// concurrent upserts by key; standard relational semantics suffice.
type Store interface {
	// CountInDay returns the number of rows for the country with DateAdded
	// in [lo, hi].
	CountInDay(ctx context.Context, country string, lo, hi int64) (int64, error)
	// MaxDateAdded returns the largest DateAdded for the country in
	// [lo, hi]; ok is false when no row matches.
	MaxDateAdded(ctx context.Context, country string, lo, hi int64) (max int64, ok bool, err error)
	// UpsertMany inserts rows, overwriting on GKGRecordID conflict, and
	// returns the count actually written. CreatedAt is set once on first
	// insert and never updated.
	UpsertMany(ctx context.Context, rows []Row) (int64, error)
	// DeleteOlderThan deletes rows whose CreatedAt is older than the given
	// number of days before now and returns the count deleted. It cuts by
	// CreatedAt, not DateAdded, so backfilled history is not immediately
	// evicted.
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
	// SelectRange returns rows for the country with DateAdded in [lo, hi],
	// ordered by DateAdded descending.
	SelectRange(ctx context.Context, country string, lo, hi int64) ([]Row, error)
	// Stats returns a storage snapshot.
	Stats(ctx context.Context) (StorageStats, error)
}

// FetchResult is the outcome of one warehouse scan.
type FetchResult struct {
	Rows         []Row
	BytesScanned int64
}

// Warehouse executes parameterized scans over the remote analytical store.
// Calls are long-lived and honor ctx cancellation.
type Warehouse interface {
	// FetchDay scans one full calendar day for the country.
	FetchDay(ctx context.Context, country string, day time.Time, limit int) (FetchResult, error)
	// FetchRange scans the [lo, hi] YYYYMMDDHHMMSS window for the country.
	FetchRange(ctx context.Context, country string, lo, hi int64, limit int) (FetchResult, error)
}

// UsageRecorder accounts warehouse bytes scanned against the monthly budget.
type UsageRecorder interface {
	Record(ctx context.Context, kind string, bytes int64) error
}

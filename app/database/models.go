package database

import (
	"time"
)

// Collection mirrors one collection config registered in the store, so
// operators can inspect collection state alongside its records.
type Collection struct {
	Name        string
	MaxItems    int
	SourceCount int
	Enabled     bool
	LastCycleAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecordStats aggregates per-collection moderation counts for /stats.
type RecordStats struct {
	Total       int
	Approved    int
	Pending     int
	Quarantined int
	Rejected    int
}

package database

import (
	"time"

	"github.com/pattayaone/tidal/app/content"
)

// RecordRepository is the Store surface the ingestion pipeline depends on.
// All lookups return empty results, not errors, when nothing matches.
type RecordRepository interface {
	FindByDedupKey(collection, dedupKey string) (*content.Record, error)
	Insert(record *content.Record) error

	CountApproved(collection string) (int, error)
	FindOldestApproved(collection string, limit int) ([]content.Record, error)
	Delete(collection, id string) error

	FindModeratedBefore(collection string, statuses []content.ModerationStatus, cutoff time.Time) ([]content.Record, error)

	GetRecords(collection string, status content.ModerationStatus, limit int) ([]content.Record, error)
	GetStats(collection string) (RecordStats, error)
}

// RuleRepository reads the operator-managed ingestion rules. The pipeline
// snapshots these once per cycle; writes happen through the admin surface.
type RuleRepository interface {
	GetBannedEntities() ([]content.BannedEntity, error)
	GetTrustedEntities() ([]content.TrustedEntity, error)
	GetSafetyKeywords() ([]content.SafetyKeyword, error)

	AddBannedEntity(platform, handle string) error
	AddTrustedEntity(platform, handle string, trustLevel int) error
	AddSafetyKeyword(term string, caseSensitive bool, severity string) error
}

// CollectionRepository registers collection configs in the store.
type CollectionRepository interface {
	UpsertCollection(name string, maxItems, sourceCount int, enabled bool) error
	UpdateLastCycle(name string, at time.Time) error
	GetCollection(name string) (*Collection, error)
	GetCollections() ([]Collection, error)
	GetCollectionCount() (int, error)
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/database"
	"github.com/pattayaone/tidal/app/metrics"
	"github.com/pattayaone/tidal/app/search"
)

// EnforceResult reports what one enforcement pass did.
type EnforceResult struct {
	Deleted        int
	FinalCount     int
	AvailableSlots int
}

// Enforcer maintains the rolling window: the newest maxItems approved
// records, ordered by ingestion time, are retained; older approved records
// are deleted. Safe to call at any time; a pass with nothing to delete is
// a no-op.
type Enforcer struct {
	records database.RecordRepository
	indexer search.Indexer
}

func NewEnforcer(records database.RecordRepository, indexer search.Indexer) *Enforcer {
	return &Enforcer{records: records, indexer: indexer}
}

func (e *Enforcer) Run(ctx context.Context, collection string, maxItems int) (EnforceResult, error) {
	count, err := e.records.CountApproved(collection)
	if err != nil {
		return EnforceResult{}, fmt.Errorf("failed to count approved records: %w", err)
	}

	if count <= maxItems {
		return EnforceResult{
			FinalCount:     count,
			AvailableSlots: maxItems - count,
		}, nil
	}

	excess := count - maxItems
	victims, err := e.records.FindOldestApproved(collection, excess)
	if err != nil {
		return EnforceResult{}, fmt.Errorf("failed to find eviction candidates: %w", err)
	}

	deleted := 0
	for _, victim := range victims {
		// Individual delete failures (e.g. already gone) are skipped,
		// not retried; the batch continues.
		if err := e.records.Delete(collection, victim.ID); err != nil {
			slog.Warn("Failed to delete record during window enforcement",
				"collection", collection, "id", victim.ID, "error", err)
			continue
		}
		deleted++
		metrics.WindowDeletions.WithLabelValues(collection).Inc()

		if err := e.indexer.Remove(ctx, collection, victim.ID); err != nil {
			slog.Warn("Failed to remove evicted record from search index",
				"collection", collection, "id", victim.ID, "error", err)
		}
	}

	finalCount, err := e.records.CountApproved(collection)
	if err != nil {
		return EnforceResult{}, fmt.Errorf("failed to recount approved records: %w", err)
	}

	availableSlots := maxItems - finalCount
	if availableSlots < 0 {
		availableSlots = 0
	}

	if deleted > 0 {
		slog.Info("Rolling window enforced", "collection", collection,
			"max_items", maxItems, "deleted", deleted, "final_count", finalCount)
	}

	return EnforceResult{
		Deleted:        deleted,
		FinalCount:     finalCount,
		AvailableSlots: availableSlots,
	}, nil
}

// Purge deletes rejected and quarantined records older than cutoff. This
// is the moderation retention policy, deliberately independent of the
// rolling window.
func (e *Enforcer) Purge(ctx context.Context, collection string, cutoff time.Time) (int, error) {
	statuses := []content.ModerationStatus{content.StatusRejected, content.StatusQuarantined}

	expired, err := e.records.FindModeratedBefore(collection, statuses, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired moderated records: %w", err)
	}

	purged := 0
	for _, record := range expired {
		if err := e.records.Delete(collection, record.ID); err != nil {
			slog.Warn("Failed to purge record", "collection", collection,
				"id", record.ID, "error", err)
			continue
		}
		purged++
		metrics.PurgedRecords.WithLabelValues(collection).Inc()

		if err := e.indexer.Remove(ctx, collection, record.ID); err != nil {
			slog.Warn("Failed to remove purged record from search index",
				"collection", collection, "id", record.ID, "error", err)
		}
	}

	return purged, nil
}

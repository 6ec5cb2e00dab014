package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/database"
)

// SyncCollectionTask registers a collection configuration in the store so
// operators can inspect collection state alongside its records.
type SyncCollectionTask struct {
	Task
	Config      *content.Config
	collections database.CollectionRepository
}

func NewSyncCollectionTask(config *content.Config, collections database.CollectionRepository) *SyncCollectionTask {
	return &SyncCollectionTask{
		Task:        NewTask(TaskTypeSyncCollection, config.Collection),
		Config:      config,
		collections: collections,
	}
}

func (t *SyncCollectionTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.collections.UpsertCollection(t.Collection, t.Config.Settings.MaxItems,
		len(t.Config.Sources), t.Config.Settings.Enabled)
	if err != nil {
		return fmt.Errorf("failed to sync collection config: %w", err)
	}

	slog.Debug("Collection config synced", "collection", t.Collection,
		"max_items", t.Config.Settings.MaxItems, "sources", len(t.Config.Sources))

	return nil
}

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/pipeline"
)

// IngestCollectionTask runs one ingestion cycle for a collection. A
// trigger that races an in-flight cycle is a successful no-op; the
// re-entrancy guard lives in the pipeline, not the queue.
type IngestCollectionTask struct {
	Task
	configCache *content.ConfigCache
	runner      CycleRunner
}

func NewIngestCollectionTask(collection string, configCache *content.ConfigCache, runner CycleRunner) *IngestCollectionTask {
	return &IngestCollectionTask{
		Task:        NewTask(TaskTypeIngestCollection, collection),
		configCache: configCache,
		runner:      runner,
	}
}

func (t *IngestCollectionTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Re-read the collection config from disk so operator edits to
	// max_items or enabled take effect on the next cycle, not the next
	// restart.
	config, err := t.configCache.LoadConfig(t.Collection)
	if err != nil {
		return fmt.Errorf("failed to reload collection config: %w", err)
	}

	if !config.Settings.Enabled {
		slog.Debug("Collection disabled, skipping", "collection", t.Collection)
		return nil
	}

	summary, err := t.runner.RunCycle(ctx, config)
	if err != nil {
		if errors.Is(err, pipeline.ErrCycleRunning) {
			return nil
		}
		return fmt.Errorf("ingestion cycle failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "IngestCollection",
		"collection", t.Collection,
		"duration", t.GetDuration(),
		"fetched", summary.Fetched,
		"created", summary.Created,
		"duplicates", summary.Duplicates,
		"dropped", summary.Dropped,
		"quarantined", summary.Quarantined)

	return nil
}

package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pattayaone/tidal/app/pipeline"
)

// PurgeModerationTask deletes rejected and quarantined records past the
// retention cutoff. Independent of the rolling window by design: shrinking
// the window must not race moderation cleanup and vice versa.
type PurgeModerationTask struct {
	Task
	enforcer      *pipeline.Enforcer
	retentionDays int
}

func NewPurgeModerationTask(collection string, enforcer *pipeline.Enforcer, retentionDays int) *PurgeModerationTask {
	return &PurgeModerationTask{
		Task:          NewTask(TaskTypePurgeModeration, collection),
		enforcer:      enforcer,
		retentionDays: retentionDays,
	}
}

func (t *PurgeModerationTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -t.retentionDays)

	purged, err := t.enforcer.Purge(ctx, t.Collection, cutoff)
	if err != nil {
		return fmt.Errorf("moderation purge failed: %w", err)
	}

	if purged > 0 {
		slog.Info("Task completed",
			"type", "PurgeModeration",
			"collection", t.Collection,
			"duration", t.GetDuration(),
			"purged", purged,
			"retention_days", t.retentionDays)
	}

	return nil
}

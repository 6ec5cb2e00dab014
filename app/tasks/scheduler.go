package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/database"
	"github.com/pattayaone/tidal/app/pipeline"
)

const purgeInterval = time.Hour

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache   *content.ConfigCache
	collections   database.CollectionRepository
	runner        CycleRunner
	enforcer      *pipeline.Enforcer
	retentionDays int
	interval      time.Duration
	workerCount   int
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface
	lastPurge     time.Time
}

func NewScheduler(configCache *content.ConfigCache, collections database.CollectionRepository,
	runner CycleRunner, enforcer *pipeline.Enforcer,
	interval time.Duration, workerCount, retentionDays int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		configCache:   configCache,
		collections:   collections,
		runner:        runner,
		enforcer:      enforcer,
		retentionDays: retentionDays,
		interval:      interval,
		workerCount:   workerCount,
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

// Stop waits for workers and any pending retry goroutines. The queue is
// never closed; re-enqueueing after Stop just fails with ctx.Err().
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	configs := s.configCache.GetConfigs()
	if len(configs) == 0 {
		slog.Debug("No collection configurations found")
		return
	}

	slog.Debug("Processing collection configurations", "count", len(configs))

	for _, config := range configs {
		syncTask := NewSyncCollectionTask(config, s.collections)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncCollectionTask", "collection", config.Collection, "error", err)
			continue
		}

		if !config.Settings.Enabled {
			slog.Debug("Collection disabled, skipping IngestCollectionTask", "collection", config.Collection)
			continue
		}

		ingestTask := NewIngestCollectionTask(config.Collection, s.configCache, s.runner)
		if err := s.EnqueueTask(ingestTask); err != nil {
			slog.Warn("Failed to enqueue IngestCollectionTask", "collection", config.Collection, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	configs := s.configCache.GetEnabledConfigs()
	if len(configs) == 0 {
		slog.Debug("No enabled collection configurations found")
		return
	}

	purgeDue := time.Since(s.lastPurge) >= purgeInterval
	if purgeDue {
		s.lastPurge = time.Now()
	}

	for _, config := range configs {
		if s.ingestDue(config) {
			ingestTask := NewIngestCollectionTask(config.Collection, s.configCache, s.runner)
			if err := s.EnqueueTask(ingestTask); err != nil {
				slog.Warn("Failed to enqueue IngestCollectionTask", "collection", config.Collection, "error", err)
			}
		}

		if purgeDue {
			purgeTask := NewPurgeModerationTask(config.Collection, s.enforcer, s.retentionDays)
			if err := s.EnqueueTask(purgeTask); err != nil {
				slog.Warn("Failed to enqueue PurgeModerationTask", "collection", config.Collection, "error", err)
			}
		}
	}
}

// ingestDue reports whether the collection's refresh interval has elapsed
// since its last completed cycle. Unknown collections are due immediately.
func (s *Scheduler) ingestDue(config *content.Config) bool {
	record, err := s.collections.GetCollection(config.Collection)
	if err != nil {
		slog.Warn("Failed to read collection state, scheduling anyway",
			"collection", config.Collection, "error", err)
		return true
	}
	if record == nil || record.LastCycleAt == nil {
		return true
	}

	next := record.LastCycleAt.Add(time.Duration(config.Settings.RefreshInterval) * time.Second)
	return !next.After(time.Now().UTC())
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "collection", task.GetCollection(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// Tracked by the WaitGroup so Stop waits for pending
			// retries instead of racing their re-enqueue.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				timer := time.NewTimer(retryDelay)
				defer timer.Stop()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-timer.C:
				}

				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}

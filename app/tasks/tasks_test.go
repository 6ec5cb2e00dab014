package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/database"
	"github.com/pattayaone/tidal/app/pipeline"
)

// MockCollectionRepository implements a simple mock for testing
type MockCollectionRepository struct {
	upserts []string
	err     error
}

var _ database.CollectionRepository = (*MockCollectionRepository)(nil)

func (m *MockCollectionRepository) UpsertCollection(name string, maxItems, sourceCount int, enabled bool) error {
	if m.err != nil {
		return m.err
	}
	m.upserts = append(m.upserts, name)
	return nil
}

func (m *MockCollectionRepository) UpdateLastCycle(name string, at time.Time) error {
	return nil
}

func (m *MockCollectionRepository) GetCollection(name string) (*database.Collection, error) {
	return nil, nil
}

func (m *MockCollectionRepository) GetCollections() ([]database.Collection, error) {
	return nil, nil
}

func (m *MockCollectionRepository) GetCollectionCount() (int, error) {
	return 0, nil
}

// MockRecordRepository implements a simple mock for testing
type MockRecordRepository struct {
	moderated []content.Record
	deleted   []string
}

var _ database.RecordRepository = (*MockRecordRepository)(nil)

func (m *MockRecordRepository) FindByDedupKey(collection, dedupKey string) (*content.Record, error) {
	return nil, nil
}

func (m *MockRecordRepository) Insert(record *content.Record) error {
	return nil
}

func (m *MockRecordRepository) CountApproved(collection string) (int, error) {
	return 0, nil
}

func (m *MockRecordRepository) FindOldestApproved(collection string, limit int) ([]content.Record, error) {
	return nil, nil
}

func (m *MockRecordRepository) Delete(collection, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *MockRecordRepository) FindModeratedBefore(collection string, statuses []content.ModerationStatus, cutoff time.Time) ([]content.Record, error) {
	return m.moderated, nil
}

func (m *MockRecordRepository) GetRecords(collection string, status content.ModerationStatus, limit int) ([]content.Record, error) {
	return nil, nil
}

func (m *MockRecordRepository) GetStats(collection string) (database.RecordStats, error) {
	return database.RecordStats{}, nil
}

type noopIndexer struct{}

func (noopIndexer) Upsert(context.Context, *content.Record) error { return nil }
func (noopIndexer) Remove(context.Context, string, string) error  { return nil }

// stubRunner records the config passed to each cycle.
type stubRunner struct {
	configs []*content.Config
	err     error
}

var _ CycleRunner = (*stubRunner)(nil)

func (s *stubRunner) RunCycle(_ context.Context, config *content.Config) (pipeline.Summary, error) {
	s.configs = append(s.configs, config)
	return pipeline.Summary{Collection: config.Collection}, s.err
}

func writeCollectionConfig(t *testing.T, dir string, enabled bool, maxItems int) {
	t.Helper()
	body := fmt.Sprintf(`
settings:
  enabled: %t
  max_items: %d
sources:
  - name: "City Feed"
    type: rss
    url: "https://example.com/feed.xml"
`, enabled, maxItems)
	if err := os.WriteFile(filepath.Join(dir, "news.yml"), []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func enabledConfig(collection string) *content.Config {
	return &content.Config{
		Collection: collection,
		Settings:   content.ConfigSettings{Enabled: true, MaxItems: 50},
		Sources: []content.ConfigSource{
			{Name: "Feed", Type: "rss", URL: "https://example.com/feed.xml"},
		},
	}
}

func TestNewTask(t *testing.T) {
	task := NewTask(TaskTypeIngestCollection, "news")

	if task.ID == "" {
		t.Error("Expected task ID to be assigned")
	}
	if task.GetType() != TaskTypeIngestCollection {
		t.Errorf("Expected ingest task type, got %s", task.GetType())
	}
	if task.GetCollection() != "news" {
		t.Errorf("Expected collection 'news', got '%s'", task.GetCollection())
	}
	if task.GetMaxRetries() != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got %d", DefaultMaxRetries, task.GetMaxRetries())
	}

	other := NewTask(TaskTypeIngestCollection, "news")
	if task.ID == other.ID {
		t.Error("Expected unique task IDs")
	}
}

func TestTaskRetryBookkeeping(t *testing.T) {
	task := NewTask(TaskTypePurgeModeration, "news")

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}

	if task.CanRetry() {
		t.Error("Expected retries exhausted after max retries")
	}
	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("Expected retry count %d, got %d", DefaultMaxRetries, task.GetRetryCount())
	}
}

func TestTaskDuration(t *testing.T) {
	task := NewTask(TaskTypeSyncCollection, "news")

	if task.GetDuration() != 0 {
		t.Errorf("Expected zero duration before start, got %v", task.GetDuration())
	}

	task.Start()
	if task.GetDuration() < 0 {
		t.Errorf("Expected non-negative duration after start, got %v", task.GetDuration())
	}
}

func TestSyncCollectionTask_Execute(t *testing.T) {
	repo := &MockCollectionRepository{}
	task := NewSyncCollectionTask(enabledConfig("news"), repo)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(repo.upserts) != 1 || repo.upserts[0] != "news" {
		t.Errorf("Expected collection 'news' upserted, got %v", repo.upserts)
	}
}

func TestSyncCollectionTask_Execute_CanceledContext(t *testing.T) {
	repo := &MockCollectionRepository{}
	task := NewSyncCollectionTask(enabledConfig("news"), repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := task.Execute(ctx); err == nil {
		t.Error("Expected context error")
	}
	if len(repo.upserts) != 0 {
		t.Error("Expected no upsert with canceled context")
	}
}

func TestIngestCollectionTask_ReloadsConfigEachCycle(t *testing.T) {
	dir := t.TempDir()
	writeCollectionConfig(t, dir, true, 10)

	cache := content.NewConfigCache(dir, 50)
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}

	runner := &stubRunner{}
	if err := NewIngestCollectionTask("news", cache, runner).Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	writeCollectionConfig(t, dir, true, 15)
	if err := NewIngestCollectionTask("news", cache, runner).Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(runner.configs) != 2 {
		t.Fatalf("Expected 2 cycles, got %d", len(runner.configs))
	}
	if runner.configs[0].Settings.MaxItems != 10 {
		t.Errorf("Expected first cycle to see max_items 10, got %d", runner.configs[0].Settings.MaxItems)
	}
	if runner.configs[1].Settings.MaxItems != 15 {
		t.Errorf("Expected on-disk max_items change visible on the next cycle, got %d", runner.configs[1].Settings.MaxItems)
	}
}

func TestIngestCollectionTask_Execute_DisabledCollection(t *testing.T) {
	dir := t.TempDir()
	writeCollectionConfig(t, dir, false, 10)

	cache := content.NewConfigCache(dir, 50)
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}

	runner := &stubRunner{}
	task := NewIngestCollectionTask("news", cache, runner)

	if err := task.Execute(context.Background()); err != nil {
		t.Errorf("Expected disabled collection to be a no-op, got %v", err)
	}
	if len(runner.configs) != 0 {
		t.Error("Expected no cycle for a disabled collection")
	}
}

func TestIngestCollectionTask_Execute_MissingConfig(t *testing.T) {
	cache := content.NewConfigCache(t.TempDir(), 50)

	task := NewIngestCollectionTask("ghost", cache, &stubRunner{})
	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected error for a missing config file")
	}
}

func TestPurgeModerationTask_Execute(t *testing.T) {
	records := &MockRecordRepository{
		moderated: []content.Record{
			{ID: "r1", Collection: "news", ModerationStatus: content.StatusRejected},
			{ID: "r2", Collection: "news", ModerationStatus: content.StatusQuarantined},
		},
	}
	enforcer := pipeline.NewEnforcer(records, noopIndexer{})

	task := NewPurgeModerationTask("news", enforcer, 30)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(records.deleted) != 2 {
		t.Errorf("Expected 2 records purged, got %d", len(records.deleted))
	}
}

type recordingTask struct {
	Task
	done chan struct{}
}

func (r *recordingTask) Execute(context.Context) error {
	close(r.done)
	return nil
}

type failingTask struct {
	Task
	executions int
}

func (f *failingTask) Execute(context.Context) error {
	f.executions++
	return fmt.Errorf("upstream unavailable")
}

func newTestScheduler(t *testing.T, workerCount int) *Scheduler {
	t.Helper()
	cache := content.NewConfigCache(t.TempDir(), 50)
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}
	return NewScheduler(cache, &MockCollectionRepository{}, &stubRunner{}, nil,
		time.Hour, workerCount, 7)
}

func TestSchedulerExecutesEnqueuedTask(t *testing.T) {
	scheduler := newTestScheduler(t, 2)
	scheduler.Start()
	defer scheduler.Stop()

	task := &recordingTask{
		Task: NewTask(TaskTypeSyncCollection, "news"),
		done: make(chan struct{}),
	}
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatalf("Failed to enqueue task: %v", err)
	}

	select {
	case <-task.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for task execution")
	}
}

func TestSchedulerStopWithPendingRetry(t *testing.T) {
	scheduler := newTestScheduler(t, 1)
	scheduler.Start()

	task := &failingTask{Task: NewTask(TaskTypeSyncCollection, "news")}
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatalf("Failed to enqueue task: %v", err)
	}

	// Let the worker fail the task once so a retry is pending, then
	// stop while the retry goroutine is still sleeping.
	time.Sleep(100 * time.Millisecond)
	scheduler.Stop()

	if task.executions == 0 {
		t.Error("Expected the task to have run at least once")
	}
	if err := scheduler.EnqueueTask(&failingTask{Task: NewTask(TaskTypeSyncCollection, "news")}); err == nil {
		t.Error("Expected enqueue after Stop to fail")
	}
}

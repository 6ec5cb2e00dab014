package pipeline

// In-memory fakes shared by the window and cycle tests. They mimic the
// SQLite repositories closely enough to exercise pipeline semantics:
// insertion order stands in for created_at ordering, and Insert enforces
// the (collection, dedup_key) unique constraint with the same error text
// the driver produces.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/database"
	"github.com/pattayaone/tidal/app/sources"
)

type memRecords struct {
	mu      sync.Mutex
	records []*content.Record
	nextID  int
	clock   time.Time

	failDeleteIDs map[string]bool
}

func newMemRecords() *memRecords {
	return &memRecords{
		clock:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		failDeleteIDs: make(map[string]bool),
	}
}

func (m *memRecords) FindByDedupKey(collection, dedupKey string) (*content.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Collection == collection && r.DedupKey == dedupKey {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memRecords) Insert(record *content.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Collection == record.Collection && r.DedupKey == record.DedupKey {
			return fmt.Errorf("constraint failed: UNIQUE constraint failed: records.collection, records.dedup_key")
		}
	}
	m.nextID++
	record.ID = fmt.Sprintf("rec-%d", m.nextID)
	m.clock = m.clock.Add(time.Second)
	record.CreatedAt = m.clock
	copied := *record
	m.records = append(m.records, &copied)
	return nil
}

func (m *memRecords) CountApproved(collection string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.records {
		if r.Collection == collection && r.ModerationStatus == content.StatusApproved {
			count++
		}
	}
	return count, nil
}

func (m *memRecords) FindOldestApproved(collection string, limit int) ([]content.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest []content.Record
	for _, r := range m.records {
		if r.Collection == collection && r.ModerationStatus == content.StatusApproved {
			oldest = append(oldest, *r)
			if len(oldest) == limit {
				break
			}
		}
	}
	return oldest, nil
}

func (m *memRecords) Delete(collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeleteIDs[id] {
		return fmt.Errorf("database is locked")
	}
	for i, r := range m.records {
		if r.Collection == collection && r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memRecords) FindModeratedBefore(collection string, statuses []content.ModerationStatus, cutoff time.Time) ([]content.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[content.ModerationStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	var expired []content.Record
	for _, r := range m.records {
		if r.Collection == collection && wanted[r.ModerationStatus] && r.CreatedAt.Before(cutoff) {
			expired = append(expired, *r)
		}
	}
	return expired, nil
}

func (m *memRecords) GetRecords(collection string, status content.ModerationStatus, limit int) ([]content.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []content.Record
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.Collection == collection && r.ModerationStatus == status {
			out = append(out, *r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memRecords) GetStats(collection string) (database.RecordStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats database.RecordStats
	for _, r := range m.records {
		if r.Collection != collection {
			continue
		}
		stats.Total++
		switch r.ModerationStatus {
		case content.StatusApproved:
			stats.Approved++
		case content.StatusPendingReview:
			stats.Pending++
		case content.StatusQuarantined:
			stats.Quarantined++
		case content.StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

// seedApproved inserts n approved records in ascending ingestion order and
// returns their IDs oldest first.
func (m *memRecords) seedApproved(collection string, n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		record := &content.Record{
			Collection:       collection,
			DedupKey:         fmt.Sprintf("seed-%s-%d", collection, i),
			Title:            fmt.Sprintf("Seed %d", i),
			ModerationStatus: content.StatusApproved,
			TrustTier:        content.TrustTierTrusted,
		}
		if err := m.Insert(record); err != nil {
			panic(err)
		}
		ids = append(ids, record.ID)
	}
	return ids
}

func (m *memRecords) byStatus(collection string, status content.ModerationStatus) []content.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []content.Record
	for _, r := range m.records {
		if r.Collection == collection && r.ModerationStatus == status {
			out = append(out, *r)
		}
	}
	return out
}

func (m *memRecords) total(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.records {
		if r.Collection == collection {
			count++
		}
	}
	return count
}

type memRules struct {
	banned   []content.BannedEntity
	trusted  []content.TrustedEntity
	keywords []content.SafetyKeyword
}

func (m *memRules) GetBannedEntities() ([]content.BannedEntity, error)   { return m.banned, nil }
func (m *memRules) GetTrustedEntities() ([]content.TrustedEntity, error) { return m.trusted, nil }
func (m *memRules) GetSafetyKeywords() ([]content.SafetyKeyword, error)  { return m.keywords, nil }

func (m *memRules) AddBannedEntity(platform, handle string) error {
	m.banned = append(m.banned, content.BannedEntity{Platform: platform, Handle: handle})
	return nil
}

func (m *memRules) AddTrustedEntity(platform, handle string, trustLevel int) error {
	m.trusted = append(m.trusted, content.TrustedEntity{Platform: platform, Handle: handle, TrustLevel: trustLevel})
	return nil
}

func (m *memRules) AddSafetyKeyword(term string, caseSensitive bool, severity string) error {
	m.keywords = append(m.keywords, content.SafetyKeyword{Term: term, CaseSensitive: caseSensitive, Severity: severity})
	return nil
}

type memCollections struct {
	mu         sync.Mutex
	lastCycles map[string]time.Time
}

func newMemCollections() *memCollections {
	return &memCollections{lastCycles: make(map[string]time.Time)}
}

func (m *memCollections) UpsertCollection(string, int, int, bool) error { return nil }

func (m *memCollections) UpdateLastCycle(name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCycles[name] = at
	return nil
}

func (m *memCollections) GetCollection(string) (*database.Collection, error) { return nil, nil }
func (m *memCollections) GetCollections() ([]database.Collection, error)     { return nil, nil }
func (m *memCollections) GetCollectionCount() (int, error)                   { return 0, nil }

type fakeIndexer struct {
	mu       sync.Mutex
	upserts  []string
	removals []string
}

func (f *fakeIndexer) Upsert(_ context.Context, record *content.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, record.ID)
	return nil
}

func (f *fakeIndexer) Remove(_ context.Context, _, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removals = append(f.removals, id)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	mentions []string
}

func (f *fakeNotifier) NotifyMention(entity string, _ *content.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mentions = append(f.mentions, entity)
	return nil
}

func (f *fakeNotifier) Close() {}

// fakeAdapter serves canned items or an error, counting Fetch calls. An
// optional onFetch hook lets tests observe or block mid-fetch.
type fakeAdapter struct {
	mu      sync.Mutex
	items   []content.RawItem
	err     error
	calls   int
	onFetch func()
}

func (f *fakeAdapter) Fetch(_ context.Context, _ content.ConfigSource, _ time.Duration) ([]content.RawItem, error) {
	f.mu.Lock()
	f.calls++
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeAdapter) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRegistry struct {
	adapters map[string]sources.Adapter
}

func (f *fakeRegistry) For(sourceType string) (sources.Adapter, bool) {
	adapter, ok := f.adapters[sourceType]
	return adapter, ok
}

type unsafeTitleClassifier struct {
	unsafeTitle string
	mention     string
}

func (c *unsafeTitleClassifier) Classify(_ context.Context, record *content.Record) (content.Classification, error) {
	result := content.Classification{Safe: true, Relevant: true, English: true}
	if c.unsafeTitle != "" && record.Title == c.unsafeTitle {
		result.Safe = false
	}
	result.Mention = c.mention
	return result, nil
}

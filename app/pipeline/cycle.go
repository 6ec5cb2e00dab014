package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/database"
	"github.com/pattayaone/tidal/app/metrics"
	"github.com/pattayaone/tidal/app/notify"
	"github.com/pattayaone/tidal/app/search"
	"github.com/pattayaone/tidal/app/sources"
)

// ErrCycleRunning is returned when a trigger races a cycle already in
// flight for the same collection. Callers treat it as a no-op, not a
// failure.
var ErrCycleRunning = errors.New("ingestion cycle already running for collection")

// Summary is the terminal per-cycle output used for observability.
type Summary struct {
	Collection     string
	Fetched        int
	Created        int
	Duplicates     int
	Dropped        int
	Quarantined    int
	SourceFailures int
	ItemFailures   int
	WindowDeleted  int
	Repopulated    bool
}

type fetchResult struct {
	source content.ConfigSource
	items  []content.RawItem
	err    error
}

// AdapterResolver resolves a source type to its adapter. Satisfied by
// sources.Registry.
type AdapterResolver interface {
	For(sourceType string) (sources.Adapter, bool)
}

// Runner drives one ingestion cycle per collection: fan-out fetch across
// the collection's sources, then sequential normalize/filter/dedup/persist
// per item, then rolling-window enforcement. Adapters fetch concurrently;
// persistence is serialized per collection so two items with the same
// dedup key in one batch cannot both pass the gate.
type Runner struct {
	registry    AdapterResolver
	normalizer  *content.Normalizer
	filterer    *content.Filterer
	records     database.RecordRepository
	rules       database.RuleRepository
	collections database.CollectionRepository
	enforcer    *Enforcer
	indexer     search.Indexer
	notifier    notify.Notifier

	guard      *cycleGuard
	rulesCache *content.TTLCache[*content.RuleSet]

	mu           sync.Mutex
	lastMaxItems map[string]int
}

func NewRunner(registry AdapterResolver, filterer *content.Filterer,
	records database.RecordRepository, rules database.RuleRepository,
	collections database.CollectionRepository, enforcer *Enforcer,
	indexer search.Indexer, notifier notify.Notifier,
	rulesTTL time.Duration, clock func() time.Time) *Runner {

	return &Runner{
		registry:     registry,
		normalizer:   content.NewNormalizer(),
		filterer:     filterer,
		records:      records,
		rules:        rules,
		collections:  collections,
		enforcer:     enforcer,
		indexer:      indexer,
		notifier:     notifier,
		guard:        newCycleGuard(),
		rulesCache:   content.NewTTLCache[*content.RuleSet](rulesTTL, clock),
		lastMaxItems: make(map[string]int),
	}
}

// RunCycle executes one full cycle for the collection. A second trigger
// while the cycle is mid-flight returns ErrCycleRunning and does nothing.
func (r *Runner) RunCycle(ctx context.Context, config *content.Config) (Summary, error) {
	collection := config.Collection

	if !r.guard.tryAcquire(collection) {
		slog.Info("Cycle trigger skipped, already running", "collection", collection)
		metrics.CyclesSkipped.WithLabelValues(collection).Inc()
		return Summary{Collection: collection}, ErrCycleRunning
	}
	defer r.guard.release(collection)

	started := time.Now()
	summary := Summary{Collection: collection}

	maxItems := config.Settings.MaxItems
	previousMax, seen := r.observeMaxItems(collection, maxItems)

	// A shrunken window is enforced before any fetch so the store never
	// holds more than the operator just asked for.
	if seen && maxItems < previousMax {
		result, err := r.enforcer.Run(ctx, collection, maxItems)
		if err != nil {
			slog.Warn("Window enforcement after limit decrease failed",
				"collection", collection, "error", err)
		} else {
			summary.WindowDeleted += result.Deleted
		}
	}

	ruleSet := r.loadRules()

	r.fetchAndProcess(ctx, config, ruleSet, &summary)

	result, err := r.enforcer.Run(ctx, collection, maxItems)
	if err != nil {
		slog.Warn("Window enforcement failed", "collection", collection, "error", err)
	} else {
		summary.WindowDeleted += result.Deleted
	}

	// A grown window frees capacity; one bounded extra fetch pass
	// repopulates it. Never more than one per detected increase.
	if seen && maxItems > previousMax && err == nil && result.AvailableSlots > 0 {
		summary.Repopulated = true
		r.fetchAndProcess(ctx, config, ruleSet, &summary)

		if _, err := r.enforcer.Run(ctx, collection, maxItems); err != nil {
			slog.Warn("Window enforcement after repopulation failed",
				"collection", collection, "error", err)
		}
	}

	if err := r.collections.UpdateLastCycle(collection, time.Now().UTC()); err != nil {
		slog.Warn("Failed to record cycle completion", "collection", collection, "error", err)
	}

	metrics.CycleDuration.WithLabelValues(collection).Observe(time.Since(started).Seconds())

	slog.Info("Ingestion cycle completed",
		"collection", collection,
		"duration", time.Since(started),
		"fetched", summary.Fetched,
		"created", summary.Created,
		"duplicates", summary.Duplicates,
		"dropped", summary.Dropped,
		"quarantined", summary.Quarantined,
		"source_failures", summary.SourceFailures,
		"window_deleted", summary.WindowDeleted,
		"repopulated", summary.Repopulated)

	return summary, nil
}

// observeMaxItems returns the previously observed limit for the collection
// and records the current one.
func (r *Runner) observeMaxItems(collection string, current int) (previous int, seen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, seen = r.lastMaxItems[collection]
	r.lastMaxItems[collection] = current
	return previous, seen
}

// loadRules snapshots the operator rules through a short-lived cache. A
// read failure degrades to an empty rule set with a warning rather than
// blocking ingestion.
func (r *Runner) loadRules() *content.RuleSet {
	ruleSet, err := r.rulesCache.Get(func() (*content.RuleSet, error) {
		banned, err := r.rules.GetBannedEntities()
		if err != nil {
			return nil, err
		}
		trusted, err := r.rules.GetTrustedEntities()
		if err != nil {
			return nil, err
		}
		keywords, err := r.rules.GetSafetyKeywords()
		if err != nil {
			return nil, err
		}
		return &content.RuleSet{Banned: banned, Trusted: trusted, Keywords: keywords}, nil
	})
	if err != nil {
		slog.Warn("Failed to load ingestion rules, proceeding without", "error", err)
		return &content.RuleSet{}
	}
	return ruleSet
}

// fetchAndProcess fans fetches out across the collection's sources and
// processes the results sequentially. One source's total failure never
// aborts the others.
func (r *Runner) fetchAndProcess(ctx context.Context, config *content.Config, ruleSet *content.RuleSet, summary *Summary) {
	timeout := time.Duration(config.Settings.Timeout) * time.Second

	results := make(chan fetchResult, len(config.Sources))
	var wg sync.WaitGroup

	for _, src := range config.Sources {
		adapter, ok := r.registry.For(src.Type)
		if !ok {
			slog.Warn("No adapter for source type", "collection", config.Collection,
				"source", src.Name, "type", src.Type)
			continue
		}

		wg.Add(1)
		go func(src content.ConfigSource, adapter sources.Adapter) {
			defer wg.Done()
			items, err := adapter.Fetch(ctx, src, timeout)
			results <- fetchResult{source: src, items: items, err: err}
		}(src, adapter)
	}

	wg.Wait()
	close(results)

	for result := range results {
		if result.err != nil {
			summary.SourceFailures++
			metrics.SourceFailures.WithLabelValues(config.Collection, result.source.Name).Inc()
			slog.Warn("Source fetch failed", "collection", config.Collection,
				"source", result.source.Name, "error", result.err)
			continue
		}

		summary.Fetched += len(result.items)
		metrics.ItemsFetched.WithLabelValues(config.Collection, result.source.Name).Add(float64(len(result.items)))

		for _, raw := range result.items {
			r.processItem(ctx, config, result.source, raw, ruleSet, summary)
		}
	}
}

// processItem runs one raw item through normalize, filter chain, dedup
// gate and persistence. No error from one item propagates past it.
func (r *Runner) processItem(ctx context.Context, config *content.Config, src content.ConfigSource,
	raw content.RawItem, ruleSet *content.RuleSet, summary *Summary) {

	record := r.normalizer.Run(raw, src, config.Collection)
	if record == nil {
		summary.Dropped++
		metrics.ItemsDropped.WithLabelValues(config.Collection).Inc()
		return
	}

	decision := r.filterer.Run(ctx, record, ruleSet, config.Settings.Language)

	switch decision.Verdict {
	case content.VerdictDrop:
		summary.Dropped++
		metrics.ItemsDropped.WithLabelValues(config.Collection).Inc()
		slog.Debug("Item dropped", "collection", config.Collection,
			"dedup_key", record.DedupKey, "reason", decision.Reason)
		return
	case content.VerdictQuarantine:
		summary.Quarantined++
		record.FilterReason = decision.Reason
	case content.VerdictPending:
		record.FilterReason = decision.Reason
	}

	existing, err := r.records.FindByDedupKey(config.Collection, record.DedupKey)
	if err != nil {
		summary.ItemFailures++
		slog.Warn("Dedup check failed", "collection", config.Collection,
			"dedup_key", record.DedupKey, "error", err)
		return
	}
	if existing != nil {
		summary.Duplicates++
		metrics.ItemsDuplicate.WithLabelValues(config.Collection).Inc()
		return
	}

	if err := r.records.Insert(record); err != nil {
		// The unique constraint closes the check-then-insert race:
		// a concurrent insert of the same key lands here as a duplicate.
		if isUniqueViolation(err) {
			summary.Duplicates++
			metrics.ItemsDuplicate.WithLabelValues(config.Collection).Inc()
			return
		}
		summary.ItemFailures++
		slog.Warn("Failed to persist record", "collection", config.Collection,
			"dedup_key", record.DedupKey, "error", err)
		return
	}

	summary.Created++
	metrics.ItemsCreated.WithLabelValues(config.Collection, string(record.ModerationStatus)).Inc()

	if record.ModerationStatus == content.StatusApproved {
		if err := r.indexer.Upsert(ctx, record); err != nil {
			slog.Warn("Search index upsert failed", "collection", config.Collection,
				"id", record.ID, "error", err)
		}
	}

	if record.Mention != "" {
		if err := r.notifier.NotifyMention(record.Mention, record); err != nil {
			slog.Warn("Mention notification failed", "collection", config.Collection,
				"id", record.ID, "entity", record.Mention, "error", err)
		}
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

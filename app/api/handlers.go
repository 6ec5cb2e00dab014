package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/database"
	"github.com/pattayaone/tidal/app/tasks"
)

type Handler struct {
	configCache *content.ConfigCache
	records     database.RecordRepository
	collections database.CollectionRepository
	scheduler   tasks.TaskSchedulerInterface
	runnerTask  func(collection string) tasks.TaskInterface
}

func NewHandler(configCache *content.ConfigCache, records database.RecordRepository,
	collections database.CollectionRepository, scheduler tasks.TaskSchedulerInterface,
	runnerTask func(collection string) tasks.TaskInterface) *Handler {
	return &Handler{
		configCache: configCache,
		records:     records,
		collections: collections,
		scheduler:   scheduler,
		runnerTask:  runnerTask,
	}
}

func (h *Handler) GetRecords(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	config, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Collection configuration not found", "collection", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"})
		return
	}

	status := content.StatusApproved
	if s := c.Query("status"); s != "" {
		status = content.ModerationStatus(s)
	}

	limit := config.Settings.MaxItems
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed < limit {
			limit = parsed
		}
	}

	records, err := h.records.GetRecords(name, status, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_records", "collection", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, record := range records {
		item := gin.H{
			"id":           record.ID,
			"title":        record.Title,
			"summary":      record.Summary,
			"link":         record.Link,
			"source_name":  record.SourceName,
			"platform":     record.Platform,
			"author":       record.Author,
			"category":     record.Category,
			"is_breaking":  record.IsBreaking,
			"published_at": record.PublishedAt.Format(time.RFC3339),
			"created_at":   record.CreatedAt.Format(time.RFC3339),
		}
		if record.Media != nil {
			item["media"] = gin.H{"url": record.Media.URL, "alt": record.Media.Alt}
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"collection": name,
		"status":     string(status),
		"records":    items,
		"total":      len(items),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if collectionCount, err := h.collections.GetCollectionCount(); err == nil {
		health["collections"] = collectionCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	stats := make([]map[string]interface{}, 0, len(configs))
	for _, config := range configs {
		entry := map[string]interface{}{
			"collection": config.Collection,
			"enabled":    config.Settings.Enabled,
			"max_items":  config.Settings.MaxItems,
			"sources":    len(config.Sources),
		}

		if recordStats, err := h.records.GetStats(config.Collection); err == nil {
			entry["records"] = map[string]int{
				"total":       recordStats.Total,
				"approved":    recordStats.Approved,
				"pending":     recordStats.Pending,
				"quarantined": recordStats.Quarantined,
				"rejected":    recordStats.Rejected,
			}
		}

		stats = append(stats, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"collections": stats,
		"total":       len(stats),
	})
}

func (h *Handler) APIListCollections(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	list := make([]map[string]interface{}, 0, len(configs))
	for _, config := range configs {
		info := map[string]interface{}{
			"name":             config.Collection,
			"enabled":          config.Settings.Enabled,
			"max_items":        config.Settings.MaxItems,
			"refresh_interval": (time.Duration(config.Settings.RefreshInterval) * time.Second).String(),
			"sources":          len(config.Sources),
		}

		if record, err := h.collections.GetCollection(config.Collection); err == nil && record != nil {
			info["last_cycle_at"] = record.LastCycleAt
			info["updated_at"] = record.UpdatedAt
		}

		list = append(list, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"collections": list,
		"total":       len(list),
	})
}

func (h *Handler) APIGetCollectionDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing collection name parameter"})
		return
	}

	config, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Collection configuration not found", "collection", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Collection configuration not found"})
		return
	}

	details := map[string]interface{}{
		"name":             name,
		"enabled":          config.Settings.Enabled,
		"max_items":        config.Settings.MaxItems,
		"refresh_interval": (time.Duration(config.Settings.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(config.Settings.Timeout) * time.Second).String(),
		"language":         config.Settings.Language,
		"sources":          config.Sources,
	}

	if record, err := h.collections.GetCollection(name); err == nil && record != nil {
		details["database"] = map[string]interface{}{
			"last_cycle_at": record.LastCycleAt,
			"created_at":    record.CreatedAt,
			"updated_at":    record.UpdatedAt,
		}
	}

	if recordStats, err := h.records.GetStats(name); err == nil {
		details["records"] = map[string]int{
			"total":       recordStats.Total,
			"approved":    recordStats.Approved,
			"pending":     recordStats.Pending,
			"quarantined": recordStats.Quarantined,
			"rejected":    recordStats.Rejected,
		}
	}

	c.JSON(http.StatusOK, details)
}

// APITriggerCollection enqueues one ingestion cycle for the collection,
// equivalent to a scheduler tick. The pipeline's re-entrancy guard makes
// a trigger racing a cron cycle a no-op.
func (h *Handler) APITriggerCollection(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing collection name parameter"})
		return
	}

	if _, err := h.configCache.LoadConfig(name); err != nil {
		slog.Error("Collection configuration not found", "collection", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Collection configuration not found"})
		return
	}

	if err := h.scheduler.EnqueueTask(h.runnerTask(name)); err != nil {
		slog.Error("Failed to enqueue trigger", "collection", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"collection": name,
		"status":     "triggered",
	})
}

package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neverbiasu/daily-news-rss/app/database"
	"github.com/neverbiasu/daily-news-rss/app/feed"
	"github.com/neverbiasu/daily-news-rss/app/sources"
	"github.com/neverbiasu/daily-news-rss/app/storage"
	"github.com/neverbiasu/daily-news-rss/app/tasks"
)

func NewHandler(store *storage.SnapshotStore, sourcesFile *sources.File,
	archive database.ArchiveRepository, scheduler tasks.TaskSchedulerInterface,
	version string) *Handler {
	return &Handler{
		store:       store,
		sourcesFile: sourcesFile,
		archive:     archive,
		retention:   feed.NewRetention(),
		scheduler:   scheduler,
		version:     version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"sources":   len(h.sourcesFile.All()),
		"groups":    h.sourcesFile.GroupNames(),
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"sources": len(h.sourcesFile.All()),
	}

	if snapshot, err := h.store.LoadLatestProcessed(); err == nil && snapshot != nil {
		stats["processed_at"] = snapshot.ProcessedAt
		stats["crawled_at"] = snapshot.CrawledAt
		stats["total_articles"] = snapshot.TotalArticles
		stats["categories"] = snapshot.Categories
		stats["processing_method"] = snapshot.ProcessingMethod
		stats["rolling_window_days"] = snapshot.RollingWindowDays
	}

	if h.archive != nil {
		if counts, err := h.archive.CountByStatus(); err == nil {
			stats["archive"] = counts
		}
	}

	c.JSON(http.StatusOK, stats)
}

// GetLatestArticles serves the full processed snapshot.
func (h *Handler) GetLatestArticles(c *gin.Context) {
	snapshot, err := h.store.LoadLatestProcessed()
	if err != nil {
		slog.Error("Failed to load processed snapshot", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load snapshot"})
		return
	}
	if snapshot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No processed snapshot yet"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetTodayArticles serves the current UTC day's subset of the processed
// snapshot.
func (h *Handler) GetTodayArticles(c *gin.Context) {
	snapshot, err := h.store.LoadLatestProcessed()
	if err != nil {
		slog.Error("Failed to load processed snapshot", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load snapshot"})
		return
	}
	if snapshot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No processed snapshot yet"})
		return
	}

	daily := *snapshot
	daily.Articles = h.retention.DailySubset(snapshot.Articles)
	daily.TotalArticles = len(daily.Articles)

	c.JSON(http.StatusOK, &daily)
}

// APIRefresh triggers an immediate crawl and processing cycle.
func (h *Handler) APIRefresh(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
		return
	}

	if err := h.scheduler.TriggerCycle(); err != nil {
		slog.Error("Failed to trigger crawl cycle", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule refresh"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Refresh scheduled"})
}

// APIGetPendingArchive lists articles awaiting PDF archival.
func (h *Handler) APIGetPendingArchive(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Archive index not configured"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	entries, err := h.archive.GetPending(limit)
	if err != nil {
		slog.Error("Failed to list pending archive entries", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if entries == nil {
		entries = []database.ArchiveEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// APIMarkArchiveUploaded records a completed PDF upload for an article.
func (h *Handler) APIMarkArchiveUploaded(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Archive index not configured"})
		return
	}

	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing article id parameter"})
		return
	}

	var body struct {
		PDFKey string `json:"pdf_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing pdf_key in request body"})
		return
	}

	if err := h.archive.MarkUploaded(id, body.PDFKey); err != nil {
		slog.Error("Failed to mark archive entry uploaded", "article_id", id, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Archive entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"article_id": id,
		"pdf_key":    body.PDFKey,
	})
}

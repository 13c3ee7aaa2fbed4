package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/neverbiasu/daily-news-rss/app/database"
	"github.com/neverbiasu/daily-news-rss/app/feed"
	"github.com/neverbiasu/daily-news-rss/app/storage"
)

// Stats summarizes one processing run.
type Stats struct {
	Candidates       int
	SkippedProcessed int
	SkippedRejected  int
	Classified       int
	Kept             int
	Rejected         int
	CleanedUp        int
	LimitReached     bool
}

// Processor runs the classification pass over a raw snapshot and maintains
// the processed snapshot, the daily partition, and the rejected cache.
type Processor struct {
	store     *storage.SnapshotStore
	filterer  *feed.Filterer
	retention *feed.Retention
	archive   database.ArchiveRepository

	windowDays   int
	rejectedDays int
	threshold    float64
	itemLimit    int
	now          func() time.Time
}

type Options struct {
	Store     *storage.SnapshotStore
	Filterer  *feed.Filterer
	Retention *feed.Retention
	// Archive may be nil; registration is then skipped.
	Archive database.ArchiveRepository

	WindowDays   int
	RejectedDays int
	Threshold    float64
	// ItemLimit caps how many articles are classified per run (0 = unlimited).
	ItemLimit int
	Now       func() time.Time
}

func NewProcessor(opts Options) *Processor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		store:        opts.Store,
		filterer:     opts.Filterer,
		retention:    opts.Retention,
		archive:      opts.Archive,
		windowDays:   opts.WindowDays,
		rejectedDays: opts.RejectedDays,
		threshold:    opts.Threshold,
		itemLimit:    opts.ItemLimit,
		now:          opts.Now,
	}
}

// Run classifies the raw snapshot incrementally: articles already processed
// or already in the rejected cache are skipped; the merged result is bounded
// by the rolling window before persisting. A persistence failure is returned
// to the caller and is fatal to the run.
func (p *Processor) Run(ctx context.Context, raw *feed.RawSnapshot) (*feed.ProcessedSnapshot, Stats, error) {
	var stats Stats

	previous, err := p.store.LoadLatestProcessed()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load processed snapshot: %w", err)
	}

	cache, err := p.store.LoadRejected()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load rejected cache: %w", err)
	}

	processedIDs := make(map[string]bool)
	var previousArticles []feed.Article
	if previous != nil {
		previousArticles = previous.Articles
		for _, a := range previousArticles {
			processedIDs[a.ID] = true
		}
	}
	rejectedIDs := cache.IDs()

	now := p.now().UTC()
	stats.Candidates = len(raw.Articles)

	var kept []feed.Article
	var newlyRejected []feed.RejectedArticle

	for _, article := range raw.Articles {
		if processedIDs[article.ID] {
			stats.SkippedProcessed++
			continue
		}
		if rejectedIDs[article.ID] {
			stats.SkippedRejected++
			continue
		}
		if p.itemLimit > 0 && stats.Classified >= p.itemLimit {
			stats.LimitReached = true
			break
		}

		outcome := p.filterer.Run(ctx, article.Title, article.MetaDescription, article.Source)
		stats.Classified++

		if outcome.Keep {
			article.Category = outcome.Result.Category
			article.Difficulty = outcome.Result.Difficulty
			confidence := outcome.Result.Confidence
			article.Confidence = &confidence
			kept = append(kept, article)
			continue
		}

		newlyRejected = append(newlyRejected, feed.RejectedArticle{
			Article:             article,
			RejectedReason:      outcome.Reason,
			RejectedConfidence:  outcome.Result.Confidence,
			ConfidenceThreshold: p.threshold,
			RejectedAt:          now,
		})
	}
	stats.Kept = len(kept)
	stats.Rejected = len(newlyRejected)

	merged := append(kept, previousArticles...)
	merged, cleanedUp := p.retention.Run(merged, p.windowDays)
	stats.CleanedUp = cleanedUp

	snapshot := &feed.ProcessedSnapshot{
		CrawledAt:         raw.CrawledAt,
		ProcessedAt:       now,
		TotalArticles:     len(merged),
		Categories:        collectCategories(merged),
		ProcessingMethod:  p.filterer.Method(),
		RollingWindowDays: p.windowDays,
		CleanupApplied:    cleanedUp > 0,
		CleanedUpCount:    cleanedUp,
		Articles:          merged,
	}

	if err := p.store.WriteLatestProcessed(snapshot); err != nil {
		return nil, stats, fmt.Errorf("failed to write processed snapshot: %w", err)
	}

	daily := *snapshot
	daily.Articles = p.retention.DailySubset(merged)
	daily.TotalArticles = len(daily.Articles)
	daily.Categories = collectCategories(daily.Articles)
	if err := p.store.WriteDailyProcessed(now, &daily); err != nil {
		return nil, stats, fmt.Errorf("failed to write daily snapshot: %w", err)
	}

	cache.Articles = append(cache.Articles, newlyRejected...)
	cache.Articles, _ = p.retention.CleanRejected(cache.Articles, p.rejectedDays)
	cache.UpdatedAt = now
	cache.TotalRejected = len(cache.Articles)
	cache.CleanupThresholdDays = p.rejectedDays
	if err := p.store.WriteRejected(cache); err != nil {
		return nil, stats, fmt.Errorf("failed to write rejected cache: %w", err)
	}

	if p.archive != nil {
		if err := p.registerForArchive(kept, now); err != nil {
			// Archive index is auxiliary; the snapshot run already succeeded.
			slog.Warn("Failed to register articles in archive index", "error", err)
		}
	}

	slog.Info("Processing run completed",
		"candidates", stats.Candidates,
		"skipped_processed", stats.SkippedProcessed,
		"skipped_rejected", stats.SkippedRejected,
		"classified", stats.Classified,
		"kept", stats.Kept,
		"rejected", stats.Rejected,
		"cleaned_up", stats.CleanedUp,
		"method", snapshot.ProcessingMethod)

	return snapshot, stats, nil
}

func (p *Processor) registerForArchive(articles []feed.Article, now time.Time) error {
	entries := make([]database.ArchiveEntry, 0, len(articles))
	for _, a := range articles {
		entries = append(entries, database.ArchiveEntry{
			ArticleID:    a.ID,
			URL:          a.URL,
			SourceDomain: a.SourceDomain,
			DateBucket:   now.Format("2006-01-02"),
		})
	}

	inserted, err := p.archive.Register(entries)
	if err != nil {
		return err
	}
	slog.Debug("Archive index updated", "registered", inserted, "total", len(entries))
	return nil
}

func collectCategories(articles []feed.Article) []string {
	set := make(map[string]bool)
	for _, a := range articles {
		if a.Category != "" {
			set[a.Category] = true
		}
	}

	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

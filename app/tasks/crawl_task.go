package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neverbiasu/daily-news-rss/app/crawler"
	"github.com/neverbiasu/daily-news-rss/app/sources"
	"github.com/neverbiasu/daily-news-rss/app/storage"
)

// CrawlTask runs one full crawl over all configured sources and persists the
// raw snapshots. On success it hands off to onComplete, which the scheduler
// uses to chain the processing task.
type CrawlTask struct {
	Task
	sourcesFile *sources.File
	crawler     *crawler.Crawler
	store       *storage.SnapshotStore
	onComplete  func()
}

func NewCrawlTask(sourcesFile *sources.File, c *crawler.Crawler, store *storage.SnapshotStore, onComplete func()) *CrawlTask {
	return &CrawlTask{
		Task:        NewTask(TaskTypeCrawl),
		sourcesFile: sourcesFile,
		crawler:     c,
		store:       store,
		onComplete:  onComplete,
	}
}

func (t *CrawlTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result := t.crawler.Run(ctx, t.sourcesFile)

	if err := t.store.WriteLatestRaw(result.Snapshot); err != nil {
		return fmt.Errorf("failed to persist raw snapshot: %w", err)
	}
	for group, snap := range result.GroupSnapshots {
		if err := t.store.WriteGroupRaw(group, snap.CrawledAt, snap); err != nil {
			return fmt.Errorf("failed to persist group snapshot %s: %w", group, err)
		}
	}

	slog.Info("Task completed",
		"type", "Crawl",
		"duration", t.GetDuration(),
		"sources", result.Stats.TotalSources,
		"failed_sources", result.Stats.FailedSources,
		"articles", result.Stats.TotalArticles,
		"duplicates", result.Stats.Duplicates)

	if t.onComplete != nil {
		t.onComplete()
	}

	return nil
}

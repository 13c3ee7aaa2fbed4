package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/neverbiasu/daily-news-rss/app/feed"
	"github.com/neverbiasu/daily-news-rss/app/sources"
)

// SourceStat records the per-source outcome of one crawl run.
type SourceStat struct {
	Source  string `json:"source"`
	Group   string `json:"group"`
	Fetched int    `json:"fetched"`
	Kept    int    `json:"kept"`
	Dropped int    `json:"dropped"`
	Failed  bool   `json:"failed"`
}

// Stats summarizes one crawl run.
type Stats struct {
	TotalSources  int
	FailedSources int
	TotalEntries  int
	TotalArticles int
	Duplicates    int
	PerSource     []SourceStat
}

// Result is the output of one crawl run: the deduplicated snapshot, one raw
// snapshot per source group, and run statistics.
type Result struct {
	Snapshot       *feed.RawSnapshot
	GroupSnapshots map[string]*feed.RawSnapshot
	Stats          Stats
}

// Crawler fetches all configured sources in fixed-size batches with an
// inter-batch delay. Each fetch writes into its own slot; slots are merged
// after the batch joins, so no shared state is touched concurrently.
type Crawler struct {
	fetcher    *feed.Fetcher
	normalizer *feed.Normalizer
	deduper    *feed.Deduper
	extractor  *feed.ContentExtractor
	httpClient *http.Client
	userAgent  string
	batchSize  int
	batchDelay time.Duration
	now        func() time.Time
}

type Options struct {
	Fetcher    *feed.Fetcher
	Normalizer *feed.Normalizer
	Extractor  *feed.ContentExtractor
	HTTPClient *http.Client
	UserAgent  string
	BatchSize  int
	BatchDelay time.Duration
	Now        func() time.Time
}

func New(opts Options) *Crawler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Crawler{
		fetcher:    opts.Fetcher,
		normalizer: opts.Normalizer,
		deduper:    feed.NewDeduper(),
		extractor:  opts.Extractor,
		httpClient: opts.HTTPClient,
		userAgent:  opts.UserAgent,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		now:        opts.Now,
	}
}

type sourceResult struct {
	src      sources.Source
	articles []feed.Article
	stat     SourceStat
}

// Run crawls every source in the file and returns the deduplicated raw
// snapshot plus per-group archives. A failed source contributes an empty
// result; it never aborts the batch or the run.
func (c *Crawler) Run(ctx context.Context, file *sources.File) *Result {
	all := file.All()
	results := make([]sourceResult, len(all))

	for start := 0; start < len(all); start += c.batchSize {
		end := start + c.batchSize
		if end > len(all) {
			end = len(all)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(slot int, src sources.Source) {
				defer wg.Done()
				results[slot] = c.crawlSource(ctx, src, file.SettingsFor(src.Category))
			}(i, all[i])
		}
		wg.Wait()

		if end < len(all) && c.batchDelay > 0 {
			select {
			case <-ctx.Done():
				slog.Warn("Crawl cancelled between batches", "completed", end, "total", len(all))
				return c.assemble(results[:end])
			case <-time.After(c.batchDelay):
			}
		}
	}

	return c.assemble(results)
}

func (c *Crawler) crawlSource(ctx context.Context, src sources.Source, settings sources.CategorySettings) sourceResult {
	result := sourceResult{
		src:  src,
		stat: SourceStat{Source: src.Name, Group: src.Group},
	}

	entries := c.fetcher.Run(ctx, src, settings.ItemLimit)
	if len(entries) == 0 {
		result.stat.Failed = true
		return result
	}
	result.stat.Fetched = len(entries)

	for _, entry := range entries {
		article := c.normalizer.Run(entry, src, settings.DayWindow)
		if article == nil {
			result.stat.Dropped++
			continue
		}
		if src.ExtractContent && article.MetaDescription == "" {
			article.MetaDescription = c.extractExcerpt(ctx, article.URL)
		}
		result.articles = append(result.articles, *article)
	}
	result.stat.Kept = len(result.articles)

	slog.Info("Source crawled",
		"source", src.Name,
		"group", src.Group,
		"fetched", result.stat.Fetched,
		"kept", result.stat.Kept,
		"dropped", result.stat.Dropped)

	return result
}

// extractExcerpt fetches the article page and derives a plain-text excerpt.
// Best-effort: any failure just leaves the description empty.
func (c *Crawler) extractExcerpt(ctx context.Context, url string) string {
	if c.extractor == nil || c.httpClient == nil {
		return ""
	}

	data, err := c.fetchPage(ctx, url)
	if err != nil {
		slog.Debug("Page fetch for excerpt failed", "url", url, "error", err)
		return ""
	}

	excerpt, err := c.extractor.Run(data)
	if err != nil {
		slog.Debug("Excerpt extraction failed", "url", url, "error", err)
		return ""
	}
	return excerpt
}

func (c *Crawler) fetchPage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func (c *Crawler) assemble(results []sourceResult) *Result {
	now := c.now().UTC()

	var merged []feed.Article
	perGroup := make(map[string][]feed.Article)
	stats := Stats{TotalSources: len(results)}

	for _, r := range results {
		stats.PerSource = append(stats.PerSource, r.stat)
		stats.TotalEntries += r.stat.Fetched
		if r.stat.Failed {
			stats.FailedSources++
		}
		merged = append(merged, r.articles...)
		perGroup[r.src.Group] = append(perGroup[r.src.Group], r.articles...)
	}

	deduped := c.deduper.Run(merged)
	stats.Duplicates = len(merged) - len(deduped)
	stats.TotalArticles = len(deduped)

	groupSnapshots := make(map[string]*feed.RawSnapshot, len(perGroup))
	for group, articles := range perGroup {
		groupArticles := c.deduper.Run(articles)
		groupSnapshots[group] = &feed.RawSnapshot{
			CrawledAt:     now,
			TotalSources:  countGroupSources(results, group),
			TotalArticles: len(groupArticles),
			Articles:      groupArticles,
		}
	}

	return &Result{
		Snapshot: &feed.RawSnapshot{
			CrawledAt:     now,
			TotalSources:  len(results),
			TotalArticles: len(deduped),
			Articles:      deduped,
		},
		GroupSnapshots: groupSnapshots,
		Stats:          stats,
	}
}

func countGroupSources(results []sourceResult, group string) int {
	count := 0
	for _, r := range results {
		if r.src.Group == group {
			count++
		}
	}
	return count
}

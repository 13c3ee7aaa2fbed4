package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neverbiasu/daily-news-rss/app/database"
	"github.com/neverbiasu/daily-news-rss/app/feed"
	"github.com/neverbiasu/daily-news-rss/app/sources"
	"github.com/neverbiasu/daily-news-rss/app/storage"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
}

type stubStrategy struct {
	result feed.FilterResult
	calls  int
}

func (s *stubStrategy) Name() string { return "classifier" }

func (s *stubStrategy) Score(_ context.Context, _, _, _ string) (feed.FilterResult, error) {
	s.calls++
	return s.result, nil
}

type fakeArchive struct {
	registered []database.ArchiveEntry
}

func (f *fakeArchive) Register(entries []database.ArchiveEntry) (int, error) {
	f.registered = append(f.registered, entries...)
	return len(entries), nil
}

func (f *fakeArchive) GetPending(int) ([]database.ArchiveEntry, error) { return nil, nil }
func (f *fakeArchive) MarkUploaded(string, string) error              { return nil }
func (f *fakeArchive) CountByStatus() (map[string]int, error)         { return nil, nil }

func testArticle(id, title string, pubDate time.Time) feed.Article {
	return feed.Article{
		ID:           id,
		Title:        title,
		URL:          "https://example.com/" + id,
		Source:       "Example",
		SourceDomain: "example.com",
		PubDate:      pubDate,
		CrawledAt:    fixedNow(),
	}
}

func rawSnapshot(articles ...feed.Article) *feed.RawSnapshot {
	return &feed.RawSnapshot{
		CrawledAt:     fixedNow(),
		TotalSources:  1,
		TotalArticles: len(articles),
		Articles:      articles,
	}
}

func testProcessor(t *testing.T, strategy feed.Strategy, opts Options) (*Processor, *storage.SnapshotStore, string) {
	t.Helper()

	dataDir := t.TempDir()
	store := storage.NewSnapshotStore(dataDir)
	keywords := feed.NewKeywordStrategy(sources.Relevance{})

	if opts.Threshold == 0 {
		opts.Threshold = 0.25
	}
	if opts.WindowDays == 0 {
		opts.WindowDays = 15
	}
	if opts.RejectedDays == 0 {
		opts.RejectedDays = 15
	}
	opts.Store = store
	opts.Filterer = feed.NewFilterer(strategy, keywords, opts.Threshold)
	opts.Retention = feed.NewRetentionAt(fixedNow)
	opts.Now = fixedNow

	return NewProcessor(opts), store, dataDir
}

func TestProcessor_KeepsRelevantArticles(t *testing.T) {
	strategy := &stubStrategy{result: feed.FilterResult{
		Relevant:   true,
		Confidence: 0.9,
		Category:   "ai",
		Difficulty: "intermediate",
	}}
	processor, store, _ := testProcessor(t, strategy, Options{})

	snapshot, stats, err := processor.Run(context.Background(),
		rawSnapshot(testArticle("a1", "Go 1.25 released", fixedNow())))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Kept != 1 || stats.Rejected != 0 {
		t.Errorf("Expected 1 kept / 0 rejected, got %d / %d", stats.Kept, stats.Rejected)
	}
	if snapshot.TotalArticles != 1 {
		t.Fatalf("Expected 1 article in snapshot, got %d", snapshot.TotalArticles)
	}

	article := snapshot.Articles[0]
	if article.Category != "ai" || article.Difficulty != "intermediate" {
		t.Errorf("Classification not applied: %+v", article)
	}
	if article.Confidence == nil || *article.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %v", article.Confidence)
	}
	if len(snapshot.Categories) != 1 || snapshot.Categories[0] != "ai" {
		t.Errorf("Unexpected categories: %v", snapshot.Categories)
	}
	if snapshot.ProcessingMethod != "classifier" {
		t.Errorf("Expected method classifier, got %q", snapshot.ProcessingMethod)
	}

	// Persisted and reloadable
	reloaded, err := store.LoadLatestProcessed()
	if err != nil || reloaded == nil || reloaded.TotalArticles != 1 {
		t.Errorf("Persisted snapshot not reloadable: %v %v", reloaded, err)
	}
}

func TestProcessor_SkipsAlreadyProcessedAndRejected(t *testing.T) {
	strategy := &stubStrategy{result: feed.FilterResult{Relevant: true, Confidence: 0.9}}
	processor, store, _ := testProcessor(t, strategy, Options{})

	seen := testArticle("seen", "Already processed headline", fixedNow())
	rejected := testArticle("rejected", "Previously rejected headline", fixedNow())
	fresh := testArticle("fresh", "Brand new headline", fixedNow())

	if err := store.WriteLatestProcessed(&feed.ProcessedSnapshot{
		ProcessedAt:   fixedNow().Add(-time.Hour),
		TotalArticles: 1,
		Articles:      []feed.Article{seen},
	}); err != nil {
		t.Fatalf("Failed to seed processed snapshot: %v", err)
	}
	if err := store.WriteRejected(&feed.RejectedCache{
		Articles: []feed.RejectedArticle{{
			Article:        rejected,
			RejectedReason: feed.ReasonIrrelevant,
			RejectedAt:     fixedNow().Add(-time.Hour),
		}},
	}); err != nil {
		t.Fatalf("Failed to seed rejected cache: %v", err)
	}

	snapshot, stats, err := processor.Run(context.Background(), rawSnapshot(seen, rejected, fresh))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if strategy.calls != 1 {
		t.Errorf("Expected exactly 1 classifier call, got %d", strategy.calls)
	}
	if stats.SkippedProcessed != 1 || stats.SkippedRejected != 1 {
		t.Errorf("Unexpected skip counts: %+v", stats)
	}
	// Previously seen article stays merged; rejected article stays out
	if snapshot.TotalArticles != 2 {
		t.Errorf("Expected 2 merged articles, got %d", snapshot.TotalArticles)
	}
	for _, a := range snapshot.Articles {
		if a.ID == "rejected" {
			t.Error("Rejected article must not enter the processed snapshot")
		}
	}
}

func TestProcessor_LowConfidenceGoesToRejectedCache(t *testing.T) {
	strategy := &stubStrategy{result: feed.FilterResult{Relevant: true, Confidence: 0.20}}
	processor, store, _ := testProcessor(t, strategy, Options{Threshold: 0.25})

	snapshot, stats, err := processor.Run(context.Background(),
		rawSnapshot(testArticle("weak", "Borderline headline", fixedNow())))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Rejected != 1 || snapshot.TotalArticles != 0 {
		t.Errorf("Expected rejection, got stats %+v, snapshot %d articles", stats, snapshot.TotalArticles)
	}

	cache, err := store.LoadRejected()
	if err != nil {
		t.Fatalf("Failed to load rejected cache: %v", err)
	}
	if cache.TotalRejected != 1 {
		t.Fatalf("Expected 1 cached rejection, got %d", cache.TotalRejected)
	}

	entry := cache.Articles[0]
	if entry.RejectedReason != feed.ReasonLowConfidence {
		t.Errorf("Expected reason %q, got %q", feed.ReasonLowConfidence, entry.RejectedReason)
	}
	if entry.RejectedConfidence != 0.20 || entry.ConfidenceThreshold != 0.25 {
		t.Errorf("Unexpected confidence fields: %+v", entry)
	}
	if !entry.RejectedAt.Equal(fixedNow()) {
		t.Errorf("Unexpected rejected_at: %v", entry.RejectedAt)
	}
}

func TestProcessor_IrrelevantReason(t *testing.T) {
	strategy := &stubStrategy{result: feed.FilterResult{Relevant: false, Confidence: 0.8}}
	processor, store, _ := testProcessor(t, strategy, Options{})

	if _, _, err := processor.Run(context.Background(),
		rawSnapshot(testArticle("off", "Off-topic headline", fixedNow()))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	cache, _ := store.LoadRejected()
	if len(cache.Articles) != 1 || cache.Articles[0].RejectedReason != feed.ReasonIrrelevant {
		t.Errorf("Expected irrelevant rejection, got %+v", cache.Articles)
	}
}

func TestProcessor_RollingWindowCleanup(t *testing.T) {
	strategy := &stubStrategy{result: feed.FilterResult{Relevant: true, Confidence: 0.9}}
	processor, store, _ := testProcessor(t, strategy, Options{WindowDays: 15})

	var previous []feed.Article
	for i := 0; i < 19; i++ {
		previous = append(previous, testArticle(
			string(rune('a'+i))+"-prev", "Recent headline", fixedNow().AddDate(0, 0, -i%10)))
	}
	previous = append(previous, testArticle("stale", "Stale headline", fixedNow().AddDate(0, 0, -16)))

	if err := store.WriteLatestProcessed(&feed.ProcessedSnapshot{
		TotalArticles: len(previous),
		Articles:      previous,
	}); err != nil {
		t.Fatalf("Failed to seed processed snapshot: %v", err)
	}

	snapshot, stats, err := processor.Run(context.Background(), rawSnapshot())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if snapshot.TotalArticles != 19 {
		t.Errorf("Expected 19 articles after cleanup, got %d", snapshot.TotalArticles)
	}
	if !snapshot.CleanupApplied || snapshot.CleanedUpCount != 1 {
		t.Errorf("Expected cleanupApplied with count 1, got %v / %d",
			snapshot.CleanupApplied, snapshot.CleanedUpCount)
	}
	if stats.CleanedUp != 1 {
		t.Errorf("Expected 1 cleaned up in stats, got %d", stats.CleanedUp)
	}
}

func TestProcessor_ItemLimit(t *testing.T) {
	strategy := &stubStrategy{result: feed.FilterResult{Relevant: true, Confidence: 0.9}}
	processor, _, _ := testProcessor(t, strategy, Options{ItemLimit: 2})

	_, stats, err := processor.Run(context.Background(), rawSnapshot(
		testArticle("a1", "Headline one", fixedNow()),
		testArticle("a2", "Headline two", fixedNow()),
		testArticle("a3", "Headline three", fixedNow()),
	))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if strategy.calls != 2 {
		t.Errorf("Expected 2 classifier calls with limit 2, got %d", strategy.calls)
	}
	if !stats.LimitReached {
		t.Error("Expected LimitReached flag")
	}
}

func TestProcessor_RegistersKeptArticlesInArchive(t *testing.T) {
	strategy := &stubStrategy{result: feed.FilterResult{Relevant: true, Confidence: 0.9}}
	archive := &fakeArchive{}
	processor, _, _ := testProcessor(t, strategy, Options{Archive: archive})

	if _, _, err := processor.Run(context.Background(),
		rawSnapshot(testArticle("a1", "Archive-worthy headline", fixedNow()))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(archive.registered) != 1 {
		t.Fatalf("Expected 1 archive registration, got %d", len(archive.registered))
	}
	entry := archive.registered[0]
	if entry.ArticleID != "a1" || entry.DateBucket != "2026-08-31" {
		t.Errorf("Unexpected archive entry: %+v", entry)
	}
}

func TestProcessor_DailySubsetWritten(t *testing.T) {
	strategy := &stubStrategy{result: feed.FilterResult{Relevant: true, Confidence: 0.9}}
	processor, _, dataDir := testProcessor(t, strategy, Options{})

	today := testArticle("today", "Today headline", fixedNow())
	older := testArticle("older", "Older headline", fixedNow().AddDate(0, 0, -3))
	older.CrawledAt = fixedNow().AddDate(0, 0, -3)

	if _, _, err := processor.Run(context.Background(), rawSnapshot(today, older)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "2026-08-31-processed.json"))
	if err != nil {
		t.Fatalf("Daily snapshot missing: %v", err)
	}
	var daily feed.ProcessedSnapshot
	if err := json.Unmarshal(data, &daily); err != nil {
		t.Fatalf("Failed to parse daily snapshot: %v", err)
	}
	if daily.TotalArticles != 1 || daily.Articles[0].ID != "today" {
		t.Errorf("Unexpected daily subset: %+v", daily.Articles)
	}
}

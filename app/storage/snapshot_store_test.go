package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neverbiasu/daily-news-rss/app/feed"
)

func testTime() time.Time {
	return time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
}

func TestSnapshotStore_RawRoundtrip(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())

	snap := &feed.RawSnapshot{
		CrawledAt:     testTime(),
		TotalSources:  2,
		TotalArticles: 1,
		Articles: []feed.Article{
			{ID: "abc", Title: "Hello", URL: "https://a.com/x", PubDate: testTime(), CrawledAt: testTime()},
		},
	}

	if err := store.WriteLatestRaw(snap); err != nil {
		t.Fatalf("WriteLatestRaw failed: %v", err)
	}

	loaded, err := store.LoadLatestRaw()
	if err != nil {
		t.Fatalf("LoadLatestRaw failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected snapshot, got nil")
	}
	if loaded.TotalArticles != 1 || len(loaded.Articles) != 1 {
		t.Errorf("Unexpected article counts: %d / %d", loaded.TotalArticles, len(loaded.Articles))
	}
	if loaded.Articles[0].ID != "abc" {
		t.Errorf("Expected article id 'abc', got %q", loaded.Articles[0].ID)
	}
}

func TestSnapshotStore_MissingFilesAreNil(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())

	raw, err := store.LoadLatestRaw()
	if err != nil || raw != nil {
		t.Errorf("Expected nil raw snapshot, got %v (err %v)", raw, err)
	}

	processed, err := store.LoadLatestProcessed()
	if err != nil || processed != nil {
		t.Errorf("Expected nil processed snapshot, got %v (err %v)", processed, err)
	}

	rejected, err := store.LoadRejected()
	if err != nil {
		t.Fatalf("LoadRejected failed: %v", err)
	}
	if rejected == nil || len(rejected.Articles) != 0 {
		t.Error("Expected empty rejected cache for missing file")
	}
}

func TestSnapshotStore_GroupRawPath(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(dir)

	snap := &feed.RawSnapshot{CrawledAt: testTime()}
	if err := store.WriteGroupRaw("devto", testTime(), snap); err != nil {
		t.Fatalf("WriteGroupRaw failed: %v", err)
	}

	expected := filepath.Join(dir, "devto", "2026-08-31-09-latest-raw.json")
	if _, err := os.Stat(expected); err != nil {
		t.Errorf("Expected group archive at %s: %v", expected, err)
	}
}

func TestSnapshotStore_DailyProcessedPath(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(dir)

	snap := &feed.ProcessedSnapshot{ProcessedAt: testTime()}
	if err := store.WriteDailyProcessed(testTime(), snap); err != nil {
		t.Fatalf("WriteDailyProcessed failed: %v", err)
	}

	expected := filepath.Join(dir, "2026-08-31-processed.json")
	if _, err := os.Stat(expected); err != nil {
		t.Errorf("Expected daily snapshot at %s: %v", expected, err)
	}
}

func TestSnapshotStore_WholeDocumentReplace(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(dir)

	first := &feed.RawSnapshot{TotalArticles: 5}
	second := &feed.RawSnapshot{TotalArticles: 2}

	if err := store.WriteLatestRaw(first); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := store.WriteLatestRaw(second); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	loaded, err := store.LoadLatestRaw()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.TotalArticles != 2 {
		t.Errorf("Expected replacement document, got totalArticles=%d", loaded.TotalArticles)
	}

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".snapshot-") {
			t.Errorf("Leftover temp file %s", e.Name())
		}
	}
}

func TestSnapshotStore_RejectedRoundtrip(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())

	cache := &feed.RejectedCache{
		Articles: []feed.RejectedArticle{
			{
				Article:             feed.Article{ID: "r1", Title: "Low confidence piece"},
				RejectedReason:      feed.ReasonLowConfidence,
				RejectedConfidence:  0.2,
				ConfidenceThreshold: 0.25,
				RejectedAt:          testTime(),
			},
		},
		UpdatedAt:            testTime(),
		TotalRejected:        1,
		CleanupThresholdDays: 15,
	}

	if err := store.WriteRejected(cache); err != nil {
		t.Fatalf("WriteRejected failed: %v", err)
	}

	loaded, err := store.LoadRejected()
	if err != nil {
		t.Fatalf("LoadRejected failed: %v", err)
	}
	if len(loaded.Articles) != 1 {
		t.Fatalf("Expected 1 rejected article, got %d", len(loaded.Articles))
	}
	if loaded.Articles[0].RejectedReason != feed.ReasonLowConfidence {
		t.Errorf("Expected reason %q, got %q", feed.ReasonLowConfidence, loaded.Articles[0].RejectedReason)
	}
	if !loaded.IDs()["r1"] {
		t.Error("IDs() should contain r1")
	}
}

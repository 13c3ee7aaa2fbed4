package feed

import (
	"testing"
	"time"
)

func articleDatedDaysAgo(id string, days int) Article {
	return Article{
		ID:        id,
		Title:     "Article " + id,
		PubDate:   fixedNow().AddDate(0, 0, -days),
		CrawledAt: fixedNow(),
	}
}

func TestRetention_RollingWindowBoundary(t *testing.T) {
	r := NewRetentionAt(fixedNow)

	articles := []Article{
		articleDatedDaysAgo("inside", 14),
		articleDatedDaysAgo("outside", 16),
	}

	kept, removed := r.Run(articles, 15)
	if removed != 1 {
		t.Errorf("Expected 1 article removed, got %d", removed)
	}
	if len(kept) != 1 || kept[0].ID != "inside" {
		t.Fatalf("Expected only the in-window article to survive, got %v", kept)
	}
}

func TestRetention_Idempotent(t *testing.T) {
	r := NewRetentionAt(fixedNow)

	articles := []Article{
		articleDatedDaysAgo("a", 1),
		articleDatedDaysAgo("b", 10),
		articleDatedDaysAgo("c", 20),
	}

	first, removedFirst := r.Run(articles, 15)
	if removedFirst != 1 {
		t.Errorf("First run should remove 1, removed %d", removedFirst)
	}

	second, removedSecond := r.Run(first, 15)
	if removedSecond != 0 {
		t.Errorf("Second run on a clean set must remove 0, removed %d", removedSecond)
	}
	if len(second) != len(first) {
		t.Errorf("Second run changed the article count: %d -> %d", len(first), len(second))
	}
	for i := range second {
		if second[i].ID != first[i].ID {
			t.Errorf("Second run reordered articles at %d", i)
		}
	}
}

func TestRetention_ZeroWindowDisablesCleanup(t *testing.T) {
	r := NewRetentionAt(fixedNow)

	articles := []Article{articleDatedDaysAgo("ancient", 1000)}
	kept, removed := r.Run(articles, 0)
	if removed != 0 || len(kept) != 1 {
		t.Error("Window of 0 should disable cleanup")
	}
}

func TestRetention_CleanRejected(t *testing.T) {
	r := NewRetentionAt(fixedNow)

	rejected := []RejectedArticle{
		{Article: Article{ID: "fresh"}, RejectedAt: fixedNow().AddDate(0, 0, -3)},
		{Article: Article{ID: "stale"}, RejectedAt: fixedNow().AddDate(0, 0, -16)},
	}

	kept, removed := r.CleanRejected(rejected, 15)
	if removed != 1 {
		t.Errorf("Expected 1 rejected entry removed, got %d", removed)
	}
	if len(kept) != 1 || kept[0].ID != "fresh" {
		t.Errorf("Expected only the fresh rejection to survive")
	}
}

func TestRetention_DailySubset(t *testing.T) {
	r := NewRetentionAt(fixedNow)

	today := fixedNow().Add(-2 * time.Hour)
	yesterday := fixedNow().AddDate(0, 0, -1)

	articles := []Article{
		{ID: "today-pub", PubDate: today, CrawledAt: yesterday},
		{ID: "today-crawl", PubDate: yesterday, CrawledAt: fixedNow()},
		{ID: "old", PubDate: yesterday, CrawledAt: yesterday},
	}

	subset := r.DailySubset(articles)
	if len(subset) != 2 {
		t.Fatalf("Expected 2 articles in daily subset, got %d", len(subset))
	}
	if subset[0].ID != "today-pub" || subset[1].ID != "today-crawl" {
		t.Errorf("Unexpected daily subset: [%s %s]", subset[0].ID, subset[1].ID)
	}
}

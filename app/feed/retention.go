package feed

import (
	"time"
)

// Retention bounds persisted state with a rolling time window and derives the
// UTC daily partition. Re-running it on an already-clean set is a no-op.
type Retention struct {
	now func() time.Time
}

func NewRetention() *Retention {
	return &Retention{now: time.Now}
}

func NewRetentionAt(now func() time.Time) *Retention {
	return &Retention{now: now}
}

// Run drops articles whose pubDate is older than now - windowDays. Returns
// the kept articles and the number removed.
func (r *Retention) Run(articles []Article, windowDays int) ([]Article, int) {
	if windowDays <= 0 {
		return articles, 0
	}

	cutoff := r.now().UTC().AddDate(0, 0, -windowDays)
	kept := make([]Article, 0, len(articles))
	removed := 0

	for _, article := range articles {
		if article.PubDate.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, article)
	}

	return kept, removed
}

// CleanRejected applies the rejected-cache window, keyed on rejected_at.
func (r *Retention) CleanRejected(articles []RejectedArticle, windowDays int) ([]RejectedArticle, int) {
	if windowDays <= 0 {
		return articles, 0
	}

	cutoff := r.now().UTC().AddDate(0, 0, -windowDays)
	kept := make([]RejectedArticle, 0, len(articles))
	removed := 0

	for _, article := range articles {
		if article.RejectedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, article)
	}

	return kept, removed
}

// DailySubset returns articles whose pubDate or crawledAt falls within the
// current UTC day.
func (r *Retention) DailySubset(articles []Article) []Article {
	now := r.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	subset := make([]Article, 0, len(articles))
	for _, article := range articles {
		if withinDay(article.PubDate, start, end) || withinDay(article.CrawledAt, start, end) {
			subset = append(subset, article)
		}
	}
	return subset
}

func withinDay(t, start, end time.Time) bool {
	u := t.UTC()
	return !u.Before(start) && u.Before(end)
}

package feed

import (
	"time"
)

// Article is the canonical unit of record. Created once during normalization,
// immutable afterwards except for the classification fields, which are filled
// by the processing pass.
type Article struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Source          string    `json:"source"`
	SourceDomain    string    `json:"source_domain"`
	SourceCategory  string    `json:"source_category"`
	SourcePriority  int       `json:"source_priority"`
	PubDate         time.Time `json:"pubDate"`
	MetaDescription string    `json:"metaDescription"`

	// Filled by the classification pass; zero until then.
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	CrawledAt time.Time `json:"crawledAt"`
}

// RejectedArticle is an article that was relevant-but-low-confidence or
// irrelevant, cached so it is not reprocessed on subsequent runs.
type RejectedArticle struct {
	Article
	RejectedReason      string    `json:"rejectedReason"`
	RejectedConfidence  float64   `json:"confidence"`
	ConfidenceThreshold float64   `json:"confidenceThreshold"`
	RejectedAt          time.Time `json:"rejected_at"`
}

// Rejection reasons.
const (
	ReasonLowConfidence = "low_confidence"
	ReasonIrrelevant    = "irrelevant"
)

// RawEntry is the transient per-feed-item representation returned by the
// fetch stage. It exists only between fetch and normalization.
type RawEntry struct {
	Title       string
	Link        string
	GUID        string
	Description string
	Content     string
	Published   string
	PublishedAt *time.Time
}

// RawSnapshot is the persisted result of one crawl run.
type RawSnapshot struct {
	CrawledAt     time.Time `json:"crawledAt"`
	TotalSources  int       `json:"totalSources"`
	TotalArticles int       `json:"totalArticles"`
	Articles      []Article `json:"articles"`
}

// ProcessedSnapshot is the persisted result of one processing run. Latest
// always reflects the most recent successful run; the daily flavor is a
// strict subset of it.
type ProcessedSnapshot struct {
	CrawledAt         time.Time `json:"crawledAt"`
	ProcessedAt       time.Time `json:"processedAt"`
	TotalArticles     int       `json:"totalArticles"`
	Categories        []string  `json:"categories"`
	ProcessingMethod  string    `json:"processingMethod"`
	RollingWindowDays int       `json:"rollingWindowDays"`
	CleanupApplied    bool      `json:"cleanupApplied"`
	CleanedUpCount    int       `json:"cleanedUpCount"`
	Articles          []Article `json:"articles"`
}

// RejectedCache is the persisted rejected-article cache.
type RejectedCache struct {
	Articles             []RejectedArticle `json:"articles"`
	UpdatedAt            time.Time         `json:"updatedAt"`
	TotalRejected        int               `json:"totalRejected"`
	CleanupThresholdDays int               `json:"cleanupThresholdDays"`
}

// IDs returns the set of article ids in the cache.
func (c *RejectedCache) IDs() map[string]bool {
	ids := make(map[string]bool, len(c.Articles))
	for _, a := range c.Articles {
		ids[a.ID] = true
	}
	return ids
}

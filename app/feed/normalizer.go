package feed

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/neverbiasu/daily-news-rss/app/sources"
)

const descriptionLimit = 200

var (
	bracketRe    = regexp.MustCompile(`\[[^\]]*\]`)
	parenRe      = regexp.MustCompile(`\([^)]*\)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalizer converts raw feed entries into canonical articles. Pure aside
// from logging; the clock is injectable for tests.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerAt builds a normalizer with a fixed clock.
func NewNormalizerAt(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Run converts a raw entry into an Article, or nil when the entry must be
// dropped (empty title/URL, unparseable date, or older than the look-back
// window). Future-dated entries are clamped to "now", not dropped.
func (n *Normalizer) Run(entry RawEntry, src sources.Source, dayWindow int) *Article {
	title := CleanTitle(entry.Title)
	link := strings.TrimSpace(entry.Link)
	if title == "" || link == "" {
		return nil
	}

	now := n.now().UTC()

	pubDate, ok := n.resolveDate(entry, now)
	if !ok {
		return nil
	}
	if pubDate.After(now) {
		slog.Warn("Future publish date clamped", "source", src.Name, "title", title, "pub_date", pubDate)
		pubDate = now
	}
	if dayWindow > 0 && pubDate.Before(now.AddDate(0, 0, -dayWindow)) {
		return nil
	}

	return &Article{
		ID:              StableID(title, link),
		Title:           title,
		URL:             link,
		Source:          src.Name,
		SourceDomain:    ExtractDomain(link),
		SourceCategory:  src.Category,
		SourcePriority:  src.Priority,
		PubDate:         pubDate,
		MetaDescription: n.extractDescription(entry),
		CrawledAt:       now,
	}
}

// resolveDate picks the entry's publish date. A present-but-unparseable date
// string rejects the entry; a missing date falls back to "now".
func (n *Normalizer) resolveDate(entry RawEntry, now time.Time) (time.Time, bool) {
	if entry.PublishedAt != nil {
		return entry.PublishedAt.UTC(), true
	}
	if strings.TrimSpace(entry.Published) != "" {
		return time.Time{}, false
	}
	return now, true
}

func (n *Normalizer) extractDescription(entry RawEntry) string {
	for _, candidate := range []string{entry.Description, entry.Content} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		text := StripHTML(candidate)
		if text != "" {
			return Truncate(text, descriptionLimit)
		}
	}
	return ""
}

// CleanTitle strips bracketed and parenthetical annotations and collapses
// whitespace.
func CleanTitle(title string) string {
	title = bracketRe.ReplaceAllString(title, "")
	title = parenRe.ReplaceAllString(title, "")
	title = whitespaceRe.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

// ExtractDomain returns the URL host with any leading "www." stripped, or
// "unknown" when the URL cannot be parsed.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// StripHTML converts an HTML fragment to collapsed plain text. Falls back to
// the raw input on parse failure, which goquery only reports for broken
// readers, not malformed markup.
func StripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(fragment, " "))
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(doc.Text(), " "))
}

// Truncate cuts a string to at most limit characters (runes).
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

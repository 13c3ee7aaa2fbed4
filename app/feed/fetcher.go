package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/neverbiasu/daily-news-rss/app/sources"
)

const (
	fetchMaxAttempts   = 3
	fetchRetryBaseWait = 500 * time.Millisecond
	maxRedirects       = 5
)

// Fetcher retrieves and parses one feed into raw entries. Failures never
// propagate to the caller: after retries are exhausted the result is an
// empty slice.
type Fetcher struct {
	httpClient   *http.Client
	gofeedParser *gofeed.Parser
	userAgent    string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		httpClient:   client,
		gofeedParser: gofeed.NewParser(),
		userAgent:    userAgent,
	}
}

// NewFetcherWithClient builds a fetcher around an existing HTTP client.
func NewFetcherWithClient(client *http.Client, userAgent string) *Fetcher {
	return &Fetcher{
		httpClient:   client,
		gofeedParser: gofeed.NewParser(),
		userAgent:    userAgent,
	}
}

// Run fetches a source's feed and returns up to itemLimit raw entries.
// Retries with linear backoff (base * attempt) before giving up.
func (f *Fetcher) Run(ctx context.Context, src sources.Source, itemLimit int) []RawEntry {
	var lastErr error

	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		entries, err := f.fetchOnce(ctx, src, itemLimit)
		if err == nil {
			return entries
		}
		lastErr = err

		if attempt < fetchMaxAttempts {
			delay := fetchRetryBaseWait * time.Duration(attempt)
			slog.Debug("Feed fetch failed, retrying", "source", src.Name, "attempt", attempt, "delay", delay.String(), "error", err)
			select {
			case <-ctx.Done():
				slog.Warn("Feed fetch cancelled", "source", src.Name, "error", ctx.Err())
				return nil
			case <-time.After(delay):
			}
		}
	}

	slog.Warn("Feed fetch failed, skipping source for this run", "source", src.Name, "url", src.URL, "error", lastErr)
	return nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, src sources.Source, itemLimit int) ([]RawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	parsed, err := f.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := parsed.Items
	if itemLimit > 0 && len(items) > itemLimit {
		items = items[:itemLimit]
	}

	entries := make([]RawEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, rawEntryFromItem(item))
	}

	return entries, nil
}

func rawEntryFromItem(item *gofeed.Item) RawEntry {
	entry := RawEntry{
		Title:       item.Title,
		Link:        item.Link,
		GUID:        item.GUID,
		Description: item.Description,
		Content:     item.Content,
		Published:   item.Published,
	}
	if entry.GUID == "" {
		entry.GUID = item.Link
	}
	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		entry.PublishedAt = item.UpdatedParsed
	}
	return entry
}

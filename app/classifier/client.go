package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/neverbiasu/daily-news-rss/app/feed"
)

// Default zero-shot label sets. Stage 1 decides relevance; stage 2 refines
// the category and difficulty of relevant articles for snapshot metadata.
var (
	defaultStageOneLabels = []string{"technology news", "not relevant", "general news"}

	defaultCategoryLabels = []string{
		"artificial intelligence",
		"web development",
		"programming languages",
		"security",
		"cloud and infrastructure",
		"open source",
	}

	defaultDifficultyLabels = []string{"beginner", "intermediate", "advanced"}
)

const relevantLabel = "technology news"

var _ feed.Strategy = (*Client)(nil)

// Client talks to an external zero-shot classification service.
type Client struct {
	endpoint         string
	http             *http.Client
	stageOneLabels   []string
	categoryLabels   []string
	difficultyLabels []string
}

// NewClient creates a reusable HTTP client for the classifier service.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:         endpoint,
		http:             &http.Client{Timeout: 15 * time.Second},
		stageOneLabels:   defaultStageOneLabels,
		categoryLabels:   defaultCategoryLabels,
		difficultyLabels: defaultDifficultyLabels,
	}
}

func (c *Client) Name() string { return "classifier" }

// Score runs the two-stage classification. Stage 1 picks among
// relevant/not-relevant/general; stage 2 runs only when stage 1 chose the
// relevant label and refines category and difficulty. Confidence is the
// stage-1 top score.
func (c *Client) Score(ctx context.Context, title, description, sourceName string) (feed.FilterResult, error) {
	text := title
	if description != "" {
		text = title + ". " + description
	}

	topLabel, topScore, err := c.classify(ctx, text, c.stageOneLabels)
	if err != nil {
		return feed.FilterResult{}, fmt.Errorf("stage 1 classification: %w", err)
	}

	result := feed.FilterResult{
		Relevant:   topLabel == relevantLabel,
		Confidence: topScore,
	}

	if !result.Relevant {
		return result, nil
	}

	category, _, err := c.classify(ctx, text, c.categoryLabels)
	if err != nil {
		return feed.FilterResult{}, fmt.Errorf("stage 2 category classification: %w", err)
	}
	result.Category = category

	difficulty, _, err := c.classify(ctx, text, c.difficultyLabels)
	if err != nil {
		return feed.FilterResult{}, fmt.Errorf("stage 2 difficulty classification: %w", err)
	}
	result.Difficulty = difficulty

	return result, nil
}

type classifyRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

type classifyResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// classify posts one zero-shot request and returns the top label and score.
// The service returns labels sorted by descending score.
func (c *Client) classify(ctx context.Context, text string, labels []string) (string, float64, error) {
	body, err := json.Marshal(classifyRequest{Text: text, Labels: labels})
	if err != nil {
		return "", 0, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/classify", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var parsed classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", 0, fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Labels) == 0 || len(parsed.Scores) == 0 {
		return "", 0, fmt.Errorf("empty classification response")
	}

	return parsed.Labels[0], parsed.Scores[0], nil
}

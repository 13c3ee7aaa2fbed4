package feed

import (
	"context"
	"log/slog"
	"strings"

	"github.com/neverbiasu/daily-news-rss/app/sources"
)

// FilterResult is the outcome of scoring one article for relevance.
type FilterResult struct {
	Relevant   bool
	Confidence float64
	Category   string
	Difficulty string
}

// Strategy scores an article. Implementations: KeywordStrategy and the
// classifier client.
type Strategy interface {
	Name() string
	Score(ctx context.Context, title, description, sourceName string) (FilterResult, error)
}

// Outcome is a filter decision for one article.
type Outcome struct {
	Keep   bool
	Result FilterResult
	// Reason is set when Keep is false: ReasonLowConfidence or ReasonIrrelevant.
	Reason string
}

// Filterer applies the relevance filter with a configurable confidence
// threshold. When the primary (classifier) strategy errors, it degrades to
// the keyword strategy for the remainder of the run, logging once.
type Filterer struct {
	primary   Strategy
	keywords  *KeywordStrategy
	threshold float64
	degraded  bool
}

func NewFilterer(primary Strategy, keywords *KeywordStrategy, threshold float64) *Filterer {
	return &Filterer{
		primary:   primary,
		keywords:  keywords,
		threshold: threshold,
	}
}

// Method reports which strategy is currently in effect.
func (f *Filterer) Method() string {
	if f.primary != nil && !f.degraded {
		return f.primary.Name()
	}
	return f.keywords.Name()
}

// Run scores one article and decides whether it is kept.
func (f *Filterer) Run(ctx context.Context, title, description, sourceName string) Outcome {
	result := f.score(ctx, title, description, sourceName)

	if !result.Relevant {
		return Outcome{Result: result, Reason: ReasonIrrelevant}
	}
	if result.Confidence < f.threshold {
		return Outcome{Result: result, Reason: ReasonLowConfidence}
	}
	return Outcome{Keep: true, Result: result}
}

func (f *Filterer) score(ctx context.Context, title, description, sourceName string) FilterResult {
	if f.primary != nil && !f.degraded {
		result, err := f.primary.Score(ctx, title, description, sourceName)
		if err == nil {
			return result
		}
		f.degraded = true
		slog.Warn("Classifier strategy unavailable, falling back to keywords for this run", "error", err)
	}

	result, _ := f.keywords.Score(ctx, title, description, sourceName)
	return result
}

// KeywordStrategy is the deterministic relevance strategy: a curated keyword
// list, a source allowlist, and an exclude-term denylist that forces
// rejection regardless of keyword hits. Matches score 1.0.
type KeywordStrategy struct {
	keywords     []string
	allowSources map[string]bool
	excludeTerms []string
}

func NewKeywordStrategy(cfg sources.Relevance) *KeywordStrategy {
	allow := make(map[string]bool, len(cfg.AllowSources))
	for _, name := range cfg.AllowSources {
		allow[strings.ToLower(name)] = true
	}
	return &KeywordStrategy{
		keywords:     lowerAll(cfg.Keywords),
		allowSources: allow,
		excludeTerms: lowerAll(cfg.ExcludeTerms),
	}
}

func (s *KeywordStrategy) Name() string { return "keywords" }

func (s *KeywordStrategy) Score(_ context.Context, title, description, sourceName string) (FilterResult, error) {
	text := strings.ToLower(title + " " + description)

	for _, term := range s.excludeTerms {
		if strings.Contains(text, term) {
			return FilterResult{}, nil
		}
	}

	if s.allowSources[strings.ToLower(sourceName)] {
		return FilterResult{Relevant: true, Confidence: 1.0}, nil
	}

	for _, keyword := range s.keywords {
		if strings.Contains(text, keyword) {
			return FilterResult{Relevant: true, Confidence: 1.0}, nil
		}
	}

	// No keywords configured means everything passes; an empty list is a
	// deployment that does not want keyword gating.
	if len(s.keywords) == 0 {
		return FilterResult{Relevant: true, Confidence: 1.0}, nil
	}

	return FilterResult{}, nil
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

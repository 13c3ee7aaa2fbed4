package feed

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const dedupeKeyWords = 8

// foldTransformer strips diacritics so "Café" and "Cafe" share a key.
var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Deduper collapses near-duplicate titles across sources. The key is the
// lowercased, punctuation-stripped first 8 words of the title; first
// occurrence wins, input order preserved. Exact-prefix only, no fuzzy match.
type Deduper struct{}

func NewDeduper() *Deduper {
	return &Deduper{}
}

func (d *Deduper) Run(articles []Article) []Article {
	seen := make(map[string]bool, len(articles))
	kept := make([]Article, 0, len(articles))

	for _, article := range articles {
		key := DedupeKey(article.Title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, article)
	}

	return kept
}

// DedupeKey normalizes a title into its comparison key.
func DedupeKey(title string) string {
	folded, _, err := transform.String(foldTransformer, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	if len(words) > dedupeKeyWords {
		words = words[:dedupeKeyWords]
	}
	return strings.Join(words, " ")
}

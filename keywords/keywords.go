package keywords

import (
	"sort"
	"strings"
)

// Terms shorter than this never make it into the lexical index.
const minTermLength = 3

// domainTermBoost is added to the frequency of a configured domain term
// found anywhere in the text, so corpus-specific vocabulary survives the
// per-chunk cap even at low frequency.
const domainTermBoost = 5

// Common words excluded from the lexical index.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "were": true, "been": true, "being": true, "am": true,
	"to": true, "of": true, "and": true, "or": true, "in": true, "that": true,
	"have": true, "has": true, "had": true, "having": true, "it": true,
	"its": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "does": true, "did": true,
	"at": true, "this": true, "but": true, "by": true, "from": true,
	"they": true, "them": true, "their": true, "there": true, "these": true,
	"those": true, "then": true, "than": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"can": true, "shall": true, "what": true, "when": true, "where": true,
	"which": true, "who": true, "whom": true, "whose": true, "why": true,
	"how": true, "all": true, "each": true, "both": true, "some": true,
	"such": true, "more": true, "most": true, "other": true, "into": true,
	"over": true, "under": true, "about": true, "between": true,
	"through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "out": true, "off": true, "only": true,
	"own": true, "same": true, "very": true, "just": true, "also": true,
	"any": true, "because": true, "while": true, "against": true,
	"our": true, "your": true, "his": true, "her": true, "she": true,
	"him": true, "we": true, "us": true, "i": true, "my": true, "me": true,
}

// Extractor derives salient terms from chunk text for lexical indexing.
// The zero-configuration extractor is fully usable; domain terms are an
// optional tuning knob.
type Extractor struct {
	domainTerms map[string]bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDomainTerms registers corpus-specific vocabulary that receives a
// frequency boost during extraction. Terms are normalized the same way as
// indexed terms; entries that normalize to nothing are ignored.
func WithDomainTerms(terms ...string) Option {
	return func(e *Extractor) {
		for _, term := range terms {
			cleaned := normalizeTerm(term)
			if cleaned != "" {
				e.domainTerms[cleaned] = true
			}
		}
	}
}

// NewExtractor creates a keyword extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		domainTerms: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns up to max salient terms from text, ranked by term
// frequency with ties broken alphabetically. Terms are lowercased,
// punctuation-trimmed, deduplicated, and filtered of stop words, numerics,
// and anything shorter than three characters, so case and punctuation
// variants of the same text extract the same set.
func (e *Extractor) Extract(text string, max int) []string {
	if max <= 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, term := range tokenize(text) {
		counts[term]++
	}

	if len(e.domainTerms) > 0 {
		lower := strings.ToLower(text)
		for term := range e.domainTerms {
			if strings.Contains(lower, term) {
				counts[term] += domainTermBoost
			}
		}
	}

	if len(counts) == 0 {
		return nil
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > max {
		terms = terms[:max]
	}
	return terms
}

// QueryTerms normalizes query text into deduplicated lookup terms using the
// same pipeline as Extract, preserving first-appearance order and applying
// no cap. Query terms and indexed terms must normalize identically or
// lexical lookups silently miss.
func QueryTerms(text string) []string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, term := range tokens {
		if !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}
	return terms
}

// tokenize splits text into normalized index terms.
func tokenize(text string) []string {
	words := strings.Fields(text)
	terms := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := normalizeTerm(word)
		if cleaned != "" {
			terms = append(terms, cleaned)
		}
	}

	return terms
}

// normalizeTerm lowercases and trims punctuation from a single word,
// returning "" when the result is too short, numeric, or a stop word.
func normalizeTerm(word string) string {
	cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

	if len(cleaned) < minTermLength || stopWords[cleaned] || isNumeric(cleaned) {
		return ""
	}
	return cleaned
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

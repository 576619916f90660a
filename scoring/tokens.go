package scoring

import (
	"math"
	"strings"
	"unicode"
)

// stopwords excluded from keyword matching. Short function words carry
// no retrieval signal in role-play summaries.
var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"that": true, "this": true, "from": true, "they": true, "them": true,
	"their": true, "was": true, "were": true, "has": true, "have": true,
	"had": true, "are": true, "not": true, "you": true, "your": true,
	"she": true, "her": true, "his": true, "him": true, "its": true,
	"about": true, "into": true, "then": true, "than": true, "what": true,
	"when": true, "where": true, "who": true, "will": true, "would": true,
	"could": true, "should": true, "there": true, "been": true, "being": true,
}

// Tokenize lowercases text and splits it into content terms, dropping
// punctuation, stopwords, and terms shorter than three characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// KeywordOverlap returns the fraction of query terms present in the
// candidate term set, in [0,1].
func KeywordOverlap(queryTerms []string, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	candidate := make(map[string]bool)
	for _, t := range Tokenize(text) {
		candidate[t] = true
	}
	hits := 0
	for _, t := range queryTerms {
		if candidate[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

// Cosine computes cosine similarity between two vectors. Returns 0 for
// mismatched or empty vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

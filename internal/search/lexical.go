package search

import (
	"regexp"
	"strings"
)

// Lexical score weights.
const (
	exactMatchWeight   = 3.0
	partialMatchWeight = 1.0
	bigramBonus        = 5.0
	fullPhraseBonus    = 10.0

	// minTokenLen is exclusive: tokens must be longer than this.
	minTokenLen = 2
	// minFullPhraseLen is exclusive.
	minFullPhraseLen = 5
)

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

// NormalizeQuery lowercases a query, strips punctuation, drops short tokens
// and stop words, then appends each surviving token's synonyms after it.
// The result is deduplicated in first-occurrence order.
func NormalizeQuery(query string) []string {
	seen := make(map[string]struct{})
	terms := []string{}
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, word := range splitWords(query) {
		if IsStopWord(word) {
			continue
		}
		add(word)
		for _, syn := range planSynonyms[word] {
			add(syn)
		}
	}
	return terms
}

// splitWords lowercases text, turns punctuation into spaces and keeps words
// longer than minTokenLen. Stop words are kept.
func splitWords(text string) []string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)
	words := fields[:0]
	for _, f := range fields {
		if len(f) > minTokenLen {
			words = append(words, f)
		}
	}
	return words
}

// LexicalQuery is a query prepared once for scoring many chunks.
type LexicalQuery struct {
	Terms   []string
	exact   []*regexp.Regexp
	bigrams []string
	phrase  string
}

// PrepareLexicalQuery expands the query and compiles its term patterns.
func PrepareLexicalQuery(query string) *LexicalQuery {
	q := &LexicalQuery{Terms: NormalizeQuery(query)}
	q.exact = make([]*regexp.Regexp, len(q.Terms))
	for i, term := range q.Terms {
		q.exact[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
	}

	words := splitWords(query)
	for i := 0; i+1 < len(words); i++ {
		q.bigrams = append(q.bigrams, words[i]+" "+words[i+1])
	}
	q.phrase = strings.Join(words, " ")
	return q
}

// Empty reports whether normalization left no terms to match.
func (q *LexicalQuery) Empty() bool {
	return len(q.Terms) == 0
}

// Score returns the lexical score of a chunk's text. It is unbounded and
// never negative; an empty query scores 0.
func (q *LexicalQuery) Score(chunkText string) float64 {
	if q.Empty() {
		return 0
	}
	text := strings.ToLower(chunkText)

	var score float64
	for i, term := range q.Terms {
		exact := len(q.exact[i].FindAllStringIndex(text, -1))
		partial := strings.Count(text, term) - exact
		score += float64(exact) * exactMatchWeight
		if partial > 0 {
			score += float64(partial) * partialMatchWeight
		}
	}

	for _, bigram := range q.bigrams {
		if strings.Contains(text, bigram) {
			score += bigramBonus
		}
	}
	if len(q.phrase) > minFullPhraseLen && strings.Contains(text, q.phrase) {
		score += fullPhraseBonus
	}
	return score
}

// LexicalScore scores one chunk's text against a raw query.
// Prefer PrepareLexicalQuery when scoring many chunks.
func LexicalScore(chunkText, query string) float64 {
	return PrepareLexicalQuery(query).Score(chunkText)
}

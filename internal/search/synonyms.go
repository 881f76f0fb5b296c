package search

// Insurance vocabulary for query expansion.
//
// Plan documents say "preventative services" where members ask about
// "preventive visits"; the table bridges those vocabularies for the lexical
// scorer. Vector search uses the raw query.
//
// The maps are package-private and never mutated after init; accessors hand
// out copies.

var planSynonyms = map[string][]string{
	// Preventive care
	"preventive":   {"preventative", "prevention", "prevent"},
	"preventative": {"preventive", "prevention", "prevent"},

	// Visits and services
	"visit":   {"visits", "appointment", "appointments", "care", "service", "services"},
	"visits":  {"visit", "appointment", "appointments", "care", "service", "services"},
	"primary": {"primary", "general", "family"},
	"care":    {"service", "services", "visit", "visits", "treatment"},

	// Coverage
	"covered":  {"cover", "coverage", "includes", "include", "provided"},
	"coverage": {"cover", "covered", "includes", "include"},

	// Cost sharing
	"copay":      {"copayment", "co-pay", "co-payment"},
	"deductible": {"deductibles"},

	// Providers
	"specialist": {"specialists", "specialty"},
}

var stopWords = buildStopWords(
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
	"to", "was", "will", "with", "i", "my", "me", "do", "does", "what",
	"how", "when", "where", "why", "can", "could", "should", "would",
)

func buildStopWords(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// GetSynonyms returns a copy of the synonyms for a lowercase term, or nil.
func GetSynonyms(term string) []string {
	syns, ok := planSynonyms[term]
	if !ok {
		return nil
	}
	out := make([]string, len(syns))
	copy(out, syns)
	return out
}

// Synonyms returns a copy of the full synonym table.
func Synonyms() map[string][]string {
	out := make(map[string][]string, len(planSynonyms))
	for k := range planSynonyms {
		out[k] = GetSynonyms(k)
	}
	return out
}

// IsStopWord reports whether a lowercase word is ignored by normalization.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// StopWords returns the stop words in no particular order.
func StopWords() []string {
	out := make([]string, 0, len(stopWords))
	for w := range stopWords {
		out = append(out, w)
	}
	return out
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "expands synonyms after each word",
			query: "preventive visits",
			want: []string{
				"preventive", "preventative", "prevention", "prevent",
				"visits", "visit", "appointment", "appointments", "care", "service", "services",
			},
		},
		{
			name:  "drops stop words and short tokens",
			query: "What is my copay?",
			want:  []string{"copay", "copayment", "co-pay", "co-payment"},
		},
		{
			name:  "punctuation becomes whitespace",
			query: "deductible,specialist!",
			want:  []string{"deductible", "deductibles", "specialist", "specialists", "specialty"},
		},
		{
			name:  "dedupes keeping first occurrence",
			query: "care visit care",
			want:  []string{"care", "service", "services", "visit", "visits", "treatment", "appointment", "appointments"},
		},
		{
			name:  "self synonym is not repeated",
			query: "primary",
			want:  []string{"primary", "general", "family"},
		},
		{
			name:  "only stop words",
			query: "how do I?",
			want:  []string{},
		},
		{
			name:  "empty query",
			query: "",
			want:  []string{},
		},
		{
			name:  "lowercases input",
			query: "EMERGENCY Room",
			want:  []string{"emergency", "room"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuery(tt.query))
		})
	}
}

func TestLexicalScore_ExactAndPartialMatches(t *testing.T) {
	// Given: "prevent" appears only inside "preventive"
	text := "Preventive care is free."

	// When: scoring the single-term query "prevent" (no synonyms)
	score := LexicalScore(text, "prevent")

	// Then: one partial match (1) plus the full-phrase substring bonus (10)
	assert.Equal(t, 11.0, score)

	// And: an exact match is worth three
	assert.Equal(t, 13.0, LexicalScore("we prevent it", "prevent"))

	// And: short phrases get no full-phrase bonus
	assert.Equal(t, 3.0, LexicalScore("pay your copay", "copay"))
}

func TestLexicalScore_PreventiveExample(t *testing.T) {
	relevant := "Preventive care visits are covered at 100% with no copay."
	other := "Emergency room services require a deductible."
	query := "preventive visits covered"

	// preventive 3, prevent 1, visits 3, visit 1, care 3, covered 3, cover 1
	assert.Equal(t, 15.0, LexicalScore(relevant, query))
	// services 3, service 1
	assert.Equal(t, 4.0, LexicalScore(other, query))
}

func TestLexicalScore_PhraseBonuses(t *testing.T) {
	query := "primary doctor"

	// Terms: primary, general, family, doctor
	// exact primary 3 + exact doctor 3 + bigram 5 + full phrase 10
	assert.Equal(t, 21.0, LexicalScore("See your primary doctor first.", query))

	// Without adjacency only the term matches count
	assert.Equal(t, 6.0, LexicalScore("A doctor, primary.", query))
}

func TestLexicalScore_PhraseKeepsStopWords(t *testing.T) {
	// Stop words longer than two characters stay in phrase tokens, so
	// "the deductible" must appear verbatim for the bigram bonus.
	query := "the deductible"

	withPhrase := LexicalScore("Meet the deductible first.", query)
	withoutPhrase := LexicalScore("Meet your deductible first.", query)

	// deductible exact 3, deductibles 0; bigram 5; full phrase "the deductible" 10
	assert.Equal(t, 18.0, withPhrase)
	assert.Equal(t, 3.0, withoutPhrase)
}

func TestLexicalScore_EmptyTerms(t *testing.T) {
	assert.Equal(t, 0.0, LexicalScore("is it the one", "is it the"))
	assert.Equal(t, 0.0, LexicalScore("anything", ""))
}

func TestLexicalScore_NeverNegative(t *testing.T) {
	for _, text := range []string{"", "no matches here", "copay co-pay copayment"} {
		assert.GreaterOrEqual(t, LexicalScore(text, "copay coverage"), 0.0)
	}
}

func TestLexicalScore_HyphenatedSynonym(t *testing.T) {
	// Terms: copay, copayment, co-pay, co-payment
	// copay: exact 1, substring 2 (also inside copayment) -> 3 + 1
	// copayment: exact 1 -> 3
	// co-pay: exact 1, substring 2 (also inside co-payment) -> 3 + 1
	// co-payment: exact 1 -> 3
	score := LexicalScore("copay copayment co-pay co-payment", "copay")
	assert.Equal(t, 14.0, score)
}

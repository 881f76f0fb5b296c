package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSynonyms(t *testing.T) {
	assert.Equal(t, []string{"deductibles"}, GetSynonyms("deductible"))
	assert.Equal(t, []string{"copayment", "co-pay", "co-payment"}, GetSynonyms("copay"))
	assert.Nil(t, GetSynonyms("emergency"))
}

func TestGetSynonyms_ReturnsCopy(t *testing.T) {
	// Given: a caller that mutates the returned slice
	syns := GetSynonyms("coverage")
	require.NotEmpty(t, syns)
	syns[0] = "tampered"

	// Then: the table is unchanged
	assert.Equal(t, "cover", GetSynonyms("coverage")[0])
}

func TestSynonyms_ReturnsCopy(t *testing.T) {
	table := Synonyms()
	assert.Len(t, table, 11)

	table["copay"] = nil
	delete(table, "care")

	fresh := Synonyms()
	assert.NotEmpty(t, fresh["copay"])
	assert.Contains(t, fresh, "care")
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"the", "what", "would", "i", "does"} {
		assert.True(t, IsStopWord(w), w)
	}
	for _, w := range []string{"copay", "plan", "The"} {
		assert.False(t, IsStopWord(w), w)
	}
	assert.Len(t, StopWords(), 38)
}

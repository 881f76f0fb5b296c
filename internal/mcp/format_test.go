package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/planqa/internal/answer"
	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
)

func TestFormatSearchResults(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, `No results found for "copay"`, FormatSearchResults("copay", nil))
	})

	t.Run("skips nil chunks", func(t *testing.T) {
		results := []search.ScoredChunk{
			{Chunk: &store.Chunk{PageNumber: 4, Text: "Copay:\n$20"}, FusedScore: 0.9, SemanticScore: 0.8, LexicalScore: 1},
			{Chunk: nil},
		}

		out := FormatSearchResults("copay", results)

		assert.Contains(t, out, "Found 1 result\n")
		assert.Contains(t, out, "### 1. Page 4 (score 0.900)")
		assert.Contains(t, out, "> Copay: $20")
	})
}

func TestFormatAnswer(t *testing.T) {
	out := FormatAnswer(&answer.Answer{
		Text:       "Your deductible is $1,500.",
		Citations:  []store.Citation{{PageNumber: 1, Snippet: "Deductible: $1,500"}},
		Confidence: answer.ConfidenceHigh,
	})

	assert.Contains(t, out, "Your deductible is $1,500.")
	assert.Contains(t, out, `- Page 1: "Deductible: $1,500"`)
	assert.Contains(t, out, "Confidence: **high**")
}

func TestFormatDocuments(t *testing.T) {
	assert.Equal(t, "No documents have been ingested yet.", FormatDocuments(nil))

	out := FormatDocuments([]*store.Document{{
		ID:         "abc",
		Filename:   "plan.pdf",
		UploadedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		PageCount:  12,
		ChunkCount: 30,
	}})
	assert.Contains(t, out, "| `abc` | plan.pdf | 12 | 30 | 2026-03-01 09:30 |")
}

func TestFormatSummary(t *testing.T) {
	out := FormatSummary(&answer.PlanSummary{
		Deductible:    "$500",
		UnknownFields: []string{"drugTierOverview"},
	})

	assert.Contains(t, out, "- **Deductible:** $500")
	assert.NotContains(t, out, "Specialist")
	assert.Contains(t, out, "Not found in document: drugTierOverview")
}

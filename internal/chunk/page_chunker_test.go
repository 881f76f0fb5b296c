package chunk

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TS01: Empty text
func TestPageChunker_Chunk_EmptyText(t *testing.T) {
	// Given: a default chunker
	chunker := NewPageChunker()

	// When: chunking empty text
	drafts := chunker.Chunk("", 1)

	// Then: no drafts are produced
	assert.Empty(t, drafts)
}

// TS02: Short text becomes one trimmed draft
func TestPageChunker_Chunk_ShortText(t *testing.T) {
	chunker := NewPageChunker()

	drafts := chunker.Chunk("  Short text  ", 1)

	require.Len(t, drafts, 1)
	assert.Equal(t, "Short text", drafts[0].Text)
	assert.Equal(t, 1, drafts[0].PageNumber)
	assert.Equal(t, "1-0", drafts[0].SequenceID)
}

// TS03: Whitespace-only text
func TestPageChunker_Chunk_WhitespaceOnly(t *testing.T) {
	chunker := NewPageChunker()

	drafts := chunker.Chunk(" \n\t \n", 2)

	assert.Empty(t, drafts)
}

// TS04: Long text splits into several drafts
func TestPageChunker_Chunk_LongTextSplits(t *testing.T) {
	// Given: 5000 characters without any break points
	chunker := NewPageChunker()
	text := strings.Repeat("A", 5000)

	// When: chunking
	drafts := chunker.Chunk(text, 1)

	// Then: more than one draft, all tagged with page 1
	require.Greater(t, len(drafts), 1)
	for i, d := range drafts {
		assert.True(t, strings.HasPrefix(d.SequenceID, "1-"), "draft %d: %s", i, d.SequenceID)
		assert.LessOrEqual(t, len([]rune(d.Text)), DefaultTargetChars)
	}
	assert.Len(t, []rune(drafts[0].Text), DefaultTargetChars)
}

// TS05: Page number is preserved on every draft
func TestPageChunker_Chunk_PreservesPageNumber(t *testing.T) {
	chunker := NewPageChunker(WithTargetChars(100), WithOverlapChars(20))
	text := strings.Repeat("word ", 200)

	drafts := chunker.Chunk(text, 7)

	require.NotEmpty(t, drafts)
	for i, d := range drafts {
		assert.Equal(t, 7, d.PageNumber)
		assert.True(t, strings.HasPrefix(d.SequenceID, "7-"))
		assert.Equal(t, "7-"+strconv.Itoa(i), d.SequenceID)
	}
}

// TS06: Cuts snap back to a sentence end inside the snap window
func TestPageChunker_Chunk_SnapsToSentenceEnd(t *testing.T) {
	// Given: a period 50 characters before the target boundary
	chunker := NewPageChunker(WithTargetChars(300), WithOverlapChars(50))
	first := strings.Repeat("a", 249) + "."
	text := first + strings.Repeat("b", 400)

	// When: chunking
	drafts := chunker.Chunk(text, 1)

	// Then: the first draft ends at the period
	require.NotEmpty(t, drafts)
	assert.Equal(t, first, drafts[0].Text)
}

// TS07: Break points outside the snap window are ignored
func TestPageChunker_Chunk_IgnoresDistantBreak(t *testing.T) {
	chunker := NewPageChunker(WithTargetChars(1000), WithOverlapChars(100))
	text := "a." + strings.Repeat("c", 1500)

	drafts := chunker.Chunk(text, 1)

	require.NotEmpty(t, drafts)
	assert.Len(t, []rune(drafts[0].Text), 1000)
}

// TS08: Consecutive drafts overlap and together cover the text
func TestPageChunker_Chunk_CoverageAndOverlap(t *testing.T) {
	chunker := NewPageChunker(WithTargetChars(100), WithOverlapChars(20))
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("token")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(" ")
	}
	text := strings.TrimSpace(sb.String())

	drafts := chunker.Chunk(text, 1)

	require.Greater(t, len(drafts), 2)
	assert.True(t, strings.HasPrefix(text, drafts[0].Text))
	assert.True(t, strings.HasSuffix(text, drafts[len(drafts)-1].Text))
	for i := 1; i < len(drafts); i++ {
		prevTail := drafts[i-1].Text[len(drafts[i-1].Text)-10:]
		assert.Contains(t, drafts[i].Text, prevTail, "draft %d should overlap the previous one", i)
	}
	for i := 0; i < 60; i++ {
		word := "token" + strconv.Itoa(i)
		found := false
		for _, d := range drafts {
			if strings.Contains(d.Text, word) {
				found = true
				break
			}
		}
		assert.True(t, found, "%s not covered", word)
	}
}

// TS09: Multi-byte characters are counted as runes
func TestPageChunker_Chunk_MultiByte(t *testing.T) {
	chunker := NewPageChunker(WithTargetChars(50), WithOverlapChars(10))
	text := strings.Repeat("é", 120)

	drafts := chunker.Chunk(text, 1)

	require.NotEmpty(t, drafts)
	for _, d := range drafts {
		assert.LessOrEqual(t, len([]rune(d.Text)), 50)
		assert.True(t, strings.Trim(d.Text, "é") == "", "draft must not contain broken runes")
	}
}

// TS10: Deterministic output
func TestPageChunker_Chunk_Deterministic(t *testing.T) {
	chunker := NewPageChunker(WithTargetChars(120), WithOverlapChars(30))
	text := strings.Repeat("Preventive care is covered. Visits are free.\n", 20)

	assert.Equal(t, chunker.Chunk(text, 3), chunker.Chunk(text, 3))
}

func TestNewPageChunker_Options(t *testing.T) {
	tests := []struct {
		name        string
		opts        []Option
		wantTarget  int
		wantOverlap int
	}{
		{"defaults", nil, DefaultTargetChars, DefaultOverlapChars},
		{"custom", []Option{WithTargetChars(1000), WithOverlapChars(100)}, 1000, 100},
		{"overlap scales with target", []Option{WithTargetChars(400)}, 400, 70},
		{"overlap clamped", []Option{WithTargetChars(100), WithOverlapChars(500)}, 100, 99},
		{"invalid target", []Option{WithTargetChars(-1)}, DefaultTargetChars, DefaultOverlapChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPageChunker(tt.opts...).Options()
			assert.Equal(t, tt.wantTarget, got.TargetChars)
			assert.Equal(t, tt.wantOverlap, got.OverlapChars)
		})
	}
}

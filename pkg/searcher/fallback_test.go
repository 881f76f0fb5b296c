package searcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/internal/telemetry"
)

// stubSearcher returns canned results and counts calls.
type stubSearcher struct {
	hybrid, keyword, similar []search.ScoredChunk
	keywordErr               error
	keywordCalls             int
}

func (s *stubSearcher) SearchSimilar(context.Context, string, string, int) ([]search.ScoredChunk, error) {
	return s.similar, nil
}

func (s *stubSearcher) SearchByKeywords(context.Context, string, string, int) ([]search.ScoredChunk, error) {
	s.keywordCalls++
	return s.keyword, s.keywordErr
}

func (s *stubSearcher) SearchHybrid(context.Context, string, string, int, float64) ([]search.ScoredChunk, error) {
	return s.hybrid, nil
}

func scored(ids ...string) []search.ScoredChunk {
	out := make([]search.ScoredChunk, len(ids))
	for i, id := range ids {
		out[i] = search.ScoredChunk{Chunk: &store.Chunk{ID: id}}
	}
	return out
}

func resultIDs(rs []search.ScoredChunk) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Chunk.ID
	}
	return out
}

// TS01: Thin hybrid results are topped up
func TestFallbackSearcher_MergesKeywordResults(t *testing.T) {
	// Given: hybrid returns two chunks, keyword returns overlapping hits
	stub := &stubSearcher{
		hybrid:  scored("a", "b"),
		keyword: scored("b", "c", "d", "e", "f"),
	}
	m := telemetry.NewQueryMetrics()
	f := NewFallbackSearcher(stub, WithFallbackMetrics(m))

	// When: searching with a limit of 4
	results, err := f.SearchHybrid(context.Background(), "doc", "copay", 4, 0.5)

	// Then: hybrid order is kept, duplicates dropped, and the limit applied
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, resultIDs(results))
	assert.Equal(t, int64(1), m.Snapshot().FallbackCount)
}

func TestFallbackSearcher_EnoughResultsSkipsKeyword(t *testing.T) {
	stub := &stubSearcher{hybrid: scored("a", "b", "c", "d", "e")}
	f := NewFallbackSearcher(stub)

	results, err := f.SearchHybrid(context.Background(), "doc", "copay", 10, 0.5)

	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, 0, stub.keywordCalls)
}

func TestFallbackSearcher_ThresholdCappedByLimit(t *testing.T) {
	stub := &stubSearcher{hybrid: scored("a", "b")}
	f := NewFallbackSearcher(stub)

	results, err := f.SearchHybrid(context.Background(), "doc", "copay", 2, 0.5)

	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 0, stub.keywordCalls)
}

func TestFallbackSearcher_CustomMinResults(t *testing.T) {
	stub := &stubSearcher{hybrid: scored("a", "b", "c"), keyword: scored("z")}
	f := NewFallbackSearcher(stub, WithMinResults(2))

	results, err := f.SearchHybrid(context.Background(), "doc", "copay", 10, 0.5)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, resultIDs(results))
}

func TestFallbackSearcher_EmptyBoth(t *testing.T) {
	f := NewFallbackSearcher(&stubSearcher{})

	results, err := f.SearchHybrid(context.Background(), "doc", "copay", 10, 0.5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFallbackSearcher_KeywordError(t *testing.T) {
	boom := errors.New("boom")
	f := NewFallbackSearcher(&stubSearcher{hybrid: scored("a"), keywordErr: boom})

	_, err := f.SearchHybrid(context.Background(), "doc", "copay", 10, 0.5)

	assert.ErrorIs(t, err, boom)
}

func TestFallbackSearcher_PassThrough(t *testing.T) {
	stub := &stubSearcher{similar: scored("s"), keyword: scored("k")}
	f := NewFallbackSearcher(stub)

	sim, err := f.SearchSimilar(context.Background(), "doc", "q", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, resultIDs(sim))

	kw, err := f.SearchByKeywords(context.Background(), "doc", "q", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, resultIDs(kw))
}

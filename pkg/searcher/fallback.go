package searcher

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/telemetry"
)

// DefaultMinResults is the hybrid result count below which
// FallbackSearcher runs a keyword pass.
const DefaultMinResults = 5

// FallbackSearcher wraps a Searcher. When a hybrid search returns fewer than
// MinResults chunks it also runs a keyword search and appends the keyword
// hits not already present, capped at the limit. Single-family searches
// pass through unchanged.
type FallbackSearcher struct {
	inner      Searcher
	minResults int
	metrics    *telemetry.QueryMetrics
}

var _ Searcher = (*FallbackSearcher)(nil)

// FallbackOption configures FallbackSearcher.
type FallbackOption func(*FallbackSearcher)

// WithMinResults sets the threshold. n <= 0 keeps DefaultMinResults.
func WithMinResults(n int) FallbackOption {
	return func(f *FallbackSearcher) {
		if n > 0 {
			f.minResults = n
		}
	}
}

// WithFallbackMetrics counts fallback passes in m.
func WithFallbackMetrics(m *telemetry.QueryMetrics) FallbackOption {
	return func(f *FallbackSearcher) { f.metrics = m }
}

func NewFallbackSearcher(inner Searcher, opts ...FallbackOption) *FallbackSearcher {
	f := &FallbackSearcher{inner: inner, minResults: DefaultMinResults}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FallbackSearcher) SearchSimilar(ctx context.Context, documentID, query string, limit int) ([]search.ScoredChunk, error) {
	return f.inner.SearchSimilar(ctx, documentID, query, limit)
}

func (f *FallbackSearcher) SearchByKeywords(ctx context.Context, documentID, query string, limit int) ([]search.ScoredChunk, error) {
	return f.inner.SearchByKeywords(ctx, documentID, query, limit)
}

func (f *FallbackSearcher) SearchHybrid(ctx context.Context, documentID, query string, limit int, semanticWeight float64) ([]search.ScoredChunk, error) {
	results, err := f.inner.SearchHybrid(ctx, documentID, query, limit, semanticWeight)
	if err != nil {
		return nil, err
	}
	threshold := min(f.minResults, limit)
	if len(results) >= threshold {
		return results, nil
	}

	keyword, err := f.inner.SearchByKeywords(ctx, documentID, query, limit)
	if err != nil {
		return nil, err
	}
	merged := mergeByID(results, keyword, limit)
	f.metrics.RecordFallback()
	slog.Debug("search_fallback",
		slog.String("document_id", documentID),
		slog.Int("hybrid_results", len(results)),
		slog.Int("keyword_results", len(keyword)),
		slog.Int("merged", len(merged)))
	return merged, nil
}

// mergeByID keeps primary's order and appends unseen chunks from extra.
func mergeByID(primary, extra []search.ScoredChunk, limit int) []search.ScoredChunk {
	seen := make(map[string]struct{}, len(primary)+len(extra))
	out := make([]search.ScoredChunk, 0, min(limit, len(primary)+len(extra)))
	for _, group := range [][]search.ScoredChunk{primary, extra} {
		for _, sc := range group {
			if len(out) >= limit {
				return out
			}
			if _, dup := seen[sc.Chunk.ID]; dup {
				continue
			}
			seen[sc.Chunk.ID] = struct{}{}
			out = append(out, sc)
		}
	}
	return out
}

package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/planqa/internal/embed"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/internal/telemetry"
)

// ErrNilDependency is returned when a required collaborator is missing.
var ErrNilDependency = errors.New("required dependency is nil")

// Mode selects a ranking entry point.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
)

// ParseMode validates a mode name. Empty selects ModeHybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHybrid:
		return ModeHybrid, nil
	case ModeKeyword:
		return ModeKeyword, nil
	case ModeSemantic:
		return ModeSemantic, nil
	default:
		return "", planerrors.ValidationError(fmt.Sprintf("unknown search mode %q", s), nil).
			WithSuggestion("Use hybrid, keyword or semantic")
	}
}

// Searcher ranks one document's chunks against a query.
type Searcher interface {
	SearchSimilar(ctx context.Context, documentID, query string, limit int) ([]search.ScoredChunk, error)
	SearchByKeywords(ctx context.Context, documentID, query string, limit int) ([]search.ScoredChunk, error)
	SearchHybrid(ctx context.Context, documentID, query string, limit int, semanticWeight float64) ([]search.ScoredChunk, error)
}

// Search dispatches to the entry point for mode.
func Search(ctx context.Context, s Searcher, mode Mode, documentID, query string, limit int, semanticWeight float64) ([]search.ScoredChunk, error) {
	switch mode {
	case ModeKeyword:
		return s.SearchByKeywords(ctx, documentID, query, limit)
	case ModeSemantic:
		return s.SearchSimilar(ctx, documentID, query, limit)
	default:
		return s.SearchHybrid(ctx, documentID, query, limit, semanticWeight)
	}
}

// DocumentSearcher implements Searcher over a chunk store and an embedder.
type DocumentSearcher struct {
	chunks   store.ChunkLister
	embedder embed.Embedder
	ranker   *search.Ranker
	metrics  *telemetry.QueryMetrics
}

var _ Searcher = (*DocumentSearcher)(nil)

// Option configures DocumentSearcher.
type Option func(*DocumentSearcher)

func WithChunkLister(cl store.ChunkLister) Option {
	return func(s *DocumentSearcher) { s.chunks = cl }
}

func WithEmbedder(e embed.Embedder) Option {
	return func(s *DocumentSearcher) { s.embedder = e }
}

// WithRanker replaces the default ranker, for example to select RRF fusion.
func WithRanker(r *search.Ranker) Option {
	return func(s *DocumentSearcher) { s.ranker = r }
}

// WithMetrics records every search in m.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(s *DocumentSearcher) { s.metrics = m }
}

// NewDocumentSearcher requires WithChunkLister and WithEmbedder.
func NewDocumentSearcher(opts ...Option) (*DocumentSearcher, error) {
	s := &DocumentSearcher{}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunks == nil {
		return nil, fmt.Errorf("%w: chunk lister", ErrNilDependency)
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: embedder", ErrNilDependency)
	}
	if s.ranker == nil {
		s.ranker = search.NewRanker()
	}
	return s, nil
}

// SearchSimilar ranks by cosine similarity only.
func (s *DocumentSearcher) SearchSimilar(ctx context.Context, documentID, query string, limit int) ([]search.ScoredChunk, error) {
	start := time.Now()
	chunks, qv, err := s.load(ctx, documentID, query, true)
	if err != nil {
		return nil, err
	}
	results := s.ranker.SearchSimilar(chunks, qv, limit)
	s.record(documentID, query, ModeSemantic, len(results), start)
	return results, nil
}

// SearchByKeywords ranks by lexical score only and skips the embedder.
func (s *DocumentSearcher) SearchByKeywords(ctx context.Context, documentID, query string, limit int) ([]search.ScoredChunk, error) {
	start := time.Now()
	chunks, _, err := s.load(ctx, documentID, query, false)
	if err != nil {
		return nil, err
	}
	results := s.ranker.SearchByKeywords(chunks, query, limit)
	s.record(documentID, query, ModeKeyword, len(results), start)
	return results, nil
}

// SearchHybrid fuses semantic and lexical evidence.
func (s *DocumentSearcher) SearchHybrid(ctx context.Context, documentID, query string, limit int, semanticWeight float64) ([]search.ScoredChunk, error) {
	start := time.Now()
	chunks, qv, err := s.load(ctx, documentID, query, true)
	if err != nil {
		return nil, err
	}
	results := s.ranker.SearchHybrid(chunks, qv, query, limit, semanticWeight)
	s.record(documentID, query, ModeHybrid, len(results), start)
	return results, nil
}

func (s *DocumentSearcher) load(ctx context.Context, documentID, query string, needVector bool) ([]*store.Chunk, []float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, planerrors.New(planerrors.ErrCodeQueryEmpty, "query is empty", nil)
	}
	chunks, err := s.chunks.ListChunks(ctx, documentID)
	if err != nil {
		return nil, nil, planerrors.New(planerrors.ErrCodeSearchFailed, "list chunks", err).
			WithDetail("document_id", documentID)
	}
	if !needVector || len(chunks) == 0 {
		return chunks, nil, nil
	}
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}
	return chunks, qv, nil
}

func (s *DocumentSearcher) record(documentID, query string, mode Mode, n int, start time.Time) {
	elapsed := time.Since(start)
	slog.Debug("document_search",
		slog.String("document_id", documentID),
		slog.String("mode", string(mode)),
		slog.Int("results", n),
		slog.Duration("duration", elapsed))
	s.metrics.RecordQuery(telemetry.QueryEvent{
		DocumentID:  documentID,
		Query:       query,
		Mode:        string(mode),
		ResultCount: n,
		Latency:     elapsed,
	})
}

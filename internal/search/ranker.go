package search

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/planqa/internal/store"
)

const (
	// parallelThreshold is the collection size below which scoring stays
	// on the calling goroutine.
	parallelThreshold = 64

	debugTopN       = 5
	debugSnippetLen = 150
)

// Ranker scores and orders a document's chunks against a query.
// A Ranker holds no per-query state and is safe for concurrent use.
type Ranker struct {
	workers int
	fusion  Fusion
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithWorkers bounds the goroutines used to score large collections.
// Values <= 0 mean GOMAXPROCS.
func WithWorkers(n int) RankerOption {
	return func(r *Ranker) {
		r.workers = n
	}
}

// WithFusion replaces the default adaptive fusion.
func WithFusion(f Fusion) RankerOption {
	return func(r *Ranker) {
		if f != nil {
			r.fusion = f
		}
	}
}

// NewRanker creates a ranker using adaptive fusion.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{fusion: AdaptiveFusion{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	return r
}

// SearchSimilar ranks chunks by raw cosine similarity to queryVector.
func (r *Ranker) SearchSimilar(chunks []*store.Chunk, queryVector []float32, topK int) []ScoredChunk {
	scored := newScored(chunks)
	r.scoreAll(len(scored), func(i int) {
		s := CosineSimilarity(queryVector, scored[i].Chunk.Vector)
		scored[i].RawSemantic = s
		scored[i].SemanticScore = s
		scored[i].FusedScore = s
	})
	return sortAndTruncate(scored, AdaptiveFusion{}.Less, topK)
}

// SearchByKeywords ranks chunks by raw lexical score. A query that
// normalizes to no terms matches nothing.
func (r *Ranker) SearchByKeywords(chunks []*store.Chunk, query string, topK int) []ScoredChunk {
	lq := PrepareLexicalQuery(query)
	if lq.Empty() {
		return []ScoredChunk{}
	}

	scored := newScored(chunks)
	r.scoreAll(len(scored), func(i int) {
		s := lq.Score(scored[i].Chunk.Text)
		scored[i].RawLexical = s
		scored[i].LexicalScore = s
		scored[i].FusedScore = s
	})
	return sortAndTruncate(scored, AdaptiveFusion{}.Less, topK)
}

// SearchHybrid ranks chunks by fusing cosine similarity with the lexical
// score. semanticWeight is clamped to [0,1]; the lexical weight is its
// complement.
//
// Every chunk is scored, so with topK >= len(chunks) all chunks come back.
// Empty input yields an empty result.
func (r *Ranker) SearchHybrid(
	chunks []*store.Chunk,
	queryVector []float32,
	queryText string,
	topK int,
	semanticWeight float64,
) []ScoredChunk {
	if len(chunks) == 0 {
		return []ScoredChunk{}
	}

	lq := PrepareLexicalQuery(queryText)
	scored := newScored(chunks)
	r.scoreAll(len(scored), func(i int) {
		scored[i].RawSemantic = CosineSimilarity(queryVector, scored[i].Chunk.Vector)
		scored[i].RawLexical = lq.Score(scored[i].Chunk.Text)
	})

	r.fusion.Fuse(scored, WeightsFor(semanticWeight))
	sort.SliceStable(scored, func(i, j int) bool {
		return r.fusion.Less(&scored[i], &scored[j])
	})

	logHybridDiagnostics(queryText, lq.Terms, scored)

	return truncate(scored, topK)
}

// scoreAll calls fn for every index in [0,n). Large collections are split
// into contiguous blocks scored in parallel; each index is written by
// exactly one goroutine.
func (r *Ranker) scoreAll(n int, fn func(i int)) {
	if n < parallelThreshold || r.workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(r.workers)
	block := (n + r.workers - 1) / r.workers
	for start := 0; start < n; start += block {
		end := min(start+block, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func newScored(chunks []*store.Chunk) []ScoredChunk {
	scored := make([]ScoredChunk, len(chunks))
	for i, c := range chunks {
		scored[i].Chunk = c
	}
	return scored
}

func sortAndTruncate(scored []ScoredChunk, less func(a, b *ScoredChunk) bool, topK int) []ScoredChunk {
	sort.SliceStable(scored, func(i, j int) bool {
		return less(&scored[i], &scored[j])
	})
	return truncate(scored, topK)
}

// truncate keeps the first topK results. topK <= 0 keeps none.
func truncate(scored []ScoredChunk, topK int) []ScoredChunk {
	if topK <= 0 {
		return []ScoredChunk{}
	}
	if len(scored) > topK {
		return scored[:topK]
	}
	return scored
}

func logHybridDiagnostics(query string, terms []string, ranked []ScoredChunk) {
	logger := slog.Default()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	logger.Debug("hybrid_search",
		slog.String("query", query),
		slog.String("expanded_terms", strings.Join(terms, ", ")),
		slog.Int("chunks", len(ranked)))

	for i := 0; i < len(ranked) && i < debugTopN; i++ {
		sc := ranked[i]
		logger.Debug("hybrid_search_result",
			slog.Int("rank", i+1),
			slog.Float64("score", sc.FusedScore),
			slog.Float64("semantic", sc.SemanticScore),
			slog.Float64("lexical", sc.LexicalScore),
			slog.Int("page", sc.Chunk.PageNumber),
			slog.String("snippet", Snippet(sc.Chunk.Text, debugSnippetLen)))
	}
}

// Snippet returns at most n runes of text with newlines flattened to spaces.
func Snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.ReplaceAll(string(runes), "\n", " ")
}

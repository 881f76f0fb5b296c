package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/planqa/internal/store"
)

func rawScored(pairs ...[2]float64) []ScoredChunk {
	out := make([]ScoredChunk, len(pairs))
	for i, p := range pairs {
		out[i] = ScoredChunk{
			Chunk:       &store.Chunk{ID: string(rune('A' + i))},
			RawSemantic: p[0],
			RawLexical:  p[1],
		}
	}
	return out
}

// --- TS01: Per-family normalization ---

func TestAdaptiveFusion_NormalizesFamilies(t *testing.T) {
	// Given: raw semantic max 0.8 and raw lexical max 20
	scored := rawScored([2]float64{0.8, 20}, [2]float64{0.4, 5})

	// When: fusing with equal weights
	AdaptiveFusion{}.Fuse(scored, WeightsFor(0.5))

	// Then: each family is divided by its own maximum
	assert.InDelta(t, 1.0, scored[0].SemanticScore, 1e-9)
	assert.InDelta(t, 0.5, scored[1].SemanticScore, 1e-9)
	assert.InDelta(t, 1.0, scored[0].LexicalScore, 1e-9)
	assert.InDelta(t, 0.25, scored[1].LexicalScore, 1e-9)
}

// --- TS02: Strong lexical boost ---

func TestAdaptiveFusion_StrongLexicalBoost(t *testing.T) {
	scored := rawScored(
		[2]float64{0.5, 10}, // lex 1.0 -> boosted
		[2]float64{1.0, 5},  // lex 0.5 -> not boosted (strictly greater required)
	)

	AdaptiveFusion{}.Fuse(scored, WeightsFor(0.5))

	// (0.35*0.5 + 0.75*1.0) / 1.1
	assert.InDelta(t, (0.35*0.5+0.75*1.0)/1.1, scored[0].FusedScore, 1e-9)
	// (0.5*1.0 + 0.5*0.5) / 1.0
	assert.InDelta(t, 0.75, scored[1].FusedScore, 1e-9)
}

// --- TS03: Zero floors ---

func TestAdaptiveFusion_AllZero(t *testing.T) {
	scored := rawScored([2]float64{0, 0}, [2]float64{0, 0})

	AdaptiveFusion{}.Fuse(scored, WeightsFor(0.5))

	for _, sc := range scored {
		assert.Equal(t, 0.0, sc.FusedScore)
		assert.Equal(t, 0.0, sc.SemanticScore)
		assert.Equal(t, 0.0, sc.LexicalScore)
	}
}

func TestAdaptiveFusion_NegativeCosineCountsAsZero(t *testing.T) {
	// Given: one chunk pointing away from the query, one barely aligned
	scored := rawScored([2]float64{-0.5, 10}, [2]float64{0.0005, 0})

	// When: fusing with equal weights
	AdaptiveFusion{}.Fuse(scored, WeightsFor(0.5))

	// Then: the negative cosine normalizes to 0 while the raw value survives
	assert.Equal(t, 0.0, scored[0].SemanticScore)
	assert.Equal(t, -0.5, scored[0].RawSemantic)
	assert.InDelta(t, 0.5, scored[1].SemanticScore, 1e-9)
	assert.InDelta(t, 0.75/1.1, scored[0].FusedScore, 1e-9)
	assert.Greater(t, scored[0].FusedScore, scored[1].FusedScore)
}

func TestRRFFusion_NegativeCosineCountsAsZero(t *testing.T) {
	scored := rawScored([2]float64{-0.9, 2}, [2]float64{0.2, 1})

	NewRRFFusion().Fuse(scored, WeightsFor(0.5))

	assert.Equal(t, 0.0, scored[0].SemanticScore)
	assert.InDelta(t, 1.0, scored[1].SemanticScore, 1e-9)
}

func TestAdaptiveFusion_ExtremeWeights(t *testing.T) {
	scored := rawScored([2]float64{1, 0}, [2]float64{0, 1})

	AdaptiveFusion{}.Fuse(scored, WeightsFor(1))
	assert.InDelta(t, 1.0, scored[0].FusedScore, 1e-9)
	// lex boosted but kw is 0: only the damped semantic weight remains
	assert.InDelta(t, 0.0, scored[1].FusedScore, 1e-9)

	AdaptiveFusion{}.Fuse(scored, WeightsFor(0))
	assert.InDelta(t, 0.0, scored[0].FusedScore, 1e-9)
	assert.InDelta(t, 1.0, scored[1].FusedScore, 1e-9)
}

func TestWeightsFor_Clamps(t *testing.T) {
	assert.Equal(t, Weights{Lexical: 0, Semantic: 1}, WeightsFor(3))
	assert.Equal(t, Weights{Lexical: 1, Semantic: 0}, WeightsFor(-1))
	assert.Equal(t, Weights{Lexical: 0.5, Semantic: 0.5}, WeightsFor(DefaultSemanticWeight))
}

// --- TS04: RRF fusion ---

func TestRRFFusion_Basic(t *testing.T) {
	// Given: semantic ranks B, C, A and lexical ranks C, A (B has no match)
	scored := rawScored(
		[2]float64{0.0, 3}, // A
		[2]float64{1.0, 0}, // B
		[2]float64{0.7, 6}, // C
	)
	fusion := NewRRFFusion()

	// When: fusing with equal weights
	fusion.Fuse(scored, WeightsFor(0.5))

	// Then: C (rank 2 + rank 1) beats B (rank 1 + missing) beats A
	a := 0.5/63.0 + 0.5/62.0
	b := 0.5/61.0 + 0.5/64.0
	c := 0.5/62.0 + 0.5/61.0
	assert.InDelta(t, a/c, scored[0].FusedScore, 1e-9)
	assert.InDelta(t, b/c, scored[1].FusedScore, 1e-9)
	assert.InDelta(t, 1.0, scored[2].FusedScore, 1e-9)

	// And: normalized family scores are still filled in
	assert.InDelta(t, 1.0, scored[2].LexicalScore, 1e-9)
	assert.InDelta(t, 1.0, scored[1].SemanticScore, 1e-9)
}

func TestRRFFusion_Empty(t *testing.T) {
	var scored []ScoredChunk
	NewRRFFusion().Fuse(scored, WeightsFor(0.5))
	assert.Empty(t, scored)
}

func TestRRFFusion_TieBreaksOnRawLexical(t *testing.T) {
	f := NewRRFFusion()
	a := &ScoredChunk{FusedScore: 0.5, RawLexical: 2}
	b := &ScoredChunk{FusedScore: 0.5, RawLexical: 7}

	assert.True(t, f.Less(b, a))
	assert.False(t, f.Less(a, b))
	assert.False(t, f.Less(a, a), "equal chunks keep input order")
}

func TestNewRRFFusionWithK(t *testing.T) {
	assert.Equal(t, 10, NewRRFFusionWithK(10).K)
	assert.Equal(t, DefaultRRFConstant, NewRRFFusionWithK(0).K)
	assert.Equal(t, DefaultRRFConstant, NewRRFFusionWithK(-5).K)
}

func TestNewFusion(t *testing.T) {
	assert.IsType(t, AdaptiveFusion{}, NewFusion(FusionAdaptive, 60))
	assert.IsType(t, AdaptiveFusion{}, NewFusion("", 60))

	rrf, ok := NewFusion(FusionRRF, 30).(*RRFFusion)
	require.True(t, ok)
	assert.Equal(t, 30, rrf.K)
}

func TestParseFusionMode(t *testing.T) {
	mode, err := ParseFusionMode("")
	require.NoError(t, err)
	assert.Equal(t, FusionAdaptive, mode)

	mode, err = ParseFusionMode("rrf")
	require.NoError(t, err)
	assert.Equal(t, FusionRRF, mode)

	_, err = ParseFusionMode("bm25")
	assert.Error(t, err)
}

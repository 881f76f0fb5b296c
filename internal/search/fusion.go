package search

import "sort"

// Adaptive fusion constants.
const (
	// minNormalizer keeps per-family normalization away from division by zero.
	minNormalizer = 0.001

	// StrongLexicalThreshold is the normalized lexical score above which a
	// chunk's lexical weight is boosted and its semantic weight damped.
	StrongLexicalThreshold = 0.5
	lexicalBoost           = 1.5
	semanticDamping        = 0.7
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// Fusion turns raw per-chunk scores into normalized and fused scores.
//
// Fuse fills SemanticScore, LexicalScore and FusedScore of every element in
// place. Less orders two fused chunks; ranking applies it with a stable sort.
type Fusion interface {
	Fuse(scored []ScoredChunk, weights Weights)
	Less(a, b *ScoredChunk) bool
}

// normalizeFamilies scales each score family by its maximum, floored at
// minNormalizer. Negative cosine counts as zero so both families land in
// [0,1]; RawSemantic keeps the signed value.
func normalizeFamilies(scored []ScoredChunk) {
	maxSem, maxLex := minNormalizer, minNormalizer
	for i := range scored {
		maxSem = max(maxSem, scored[i].RawSemantic)
		maxLex = max(maxLex, scored[i].RawLexical)
	}
	for i := range scored {
		scored[i].SemanticScore = max(scored[i].RawSemantic, 0) / maxSem
		scored[i].LexicalScore = scored[i].RawLexical / maxLex
	}
}

// AdaptiveFusion is a weighted average of the normalized families that shifts
// weight toward the lexical score when a chunk matches strongly.
//
//	kw, sw = weights.Lexical, weights.Semantic
//	if lex > 0.5 { kw *= 1.5; sw *= 0.7 }
//	fused = (sw*sem + kw*lex) / (sw + kw)
type AdaptiveFusion struct{}

var _ Fusion = AdaptiveFusion{}

// Fuse implements Fusion.
func (AdaptiveFusion) Fuse(scored []ScoredChunk, weights Weights) {
	normalizeFamilies(scored)
	for i := range scored {
		sc := &scored[i]
		kw, sw := weights.Lexical, weights.Semantic
		if sc.LexicalScore > StrongLexicalThreshold {
			kw *= lexicalBoost
			sw *= semanticDamping
		}
		total := sw + kw
		if total == 0 {
			sc.FusedScore = 0
			continue
		}
		sc.FusedScore = (sw*sc.SemanticScore + kw*sc.LexicalScore) / total
	}
}

// Less implements Fusion. Equal scores keep their input order.
func (AdaptiveFusion) Less(a, b *ScoredChunk) bool {
	return a.FusedScore > b.FusedScore
}

// RRFFusion combines the semantic and lexical rank lists using Reciprocal
// Rank Fusion.
//
// Algorithm: RRF_score(d) = Σ weight_i / (k + rank_i)
//
// Ranks are 1-indexed. Every chunk has a semantic rank; only chunks with a
// positive lexical score are in the lexical list, the rest take
// missing_rank = len(chunks) + 1. Scores are normalized so the best is 1.
type RRFFusion struct {
	K int // RRF smoothing constant (default: 60)
}

var _ Fusion = (*RRFFusion)(nil)

// NewRRFFusion creates an RRF fusion with k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates an RRF fusion with a custom k.
// If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse implements Fusion.
func (f *RRFFusion) Fuse(scored []ScoredChunk, weights Weights) {
	if len(scored) == 0 {
		return
	}
	normalizeFamilies(scored)

	semRank := rankBy(scored, func(sc *ScoredChunk) float64 { return sc.RawSemantic }, false)
	lexRank := rankBy(scored, func(sc *ScoredChunk) float64 { return sc.RawLexical }, true)
	missingRank := len(scored) + 1

	best := 0.0
	for i := range scored {
		lr := lexRank[i]
		if lr == 0 {
			lr = missingRank
		}
		score := weights.Semantic/float64(f.K+semRank[i]) + weights.Lexical/float64(f.K+lr)
		scored[i].FusedScore = score
		best = max(best, score)
	}
	if best == 0 {
		return
	}
	for i := range scored {
		scored[i].FusedScore /= best
	}
}

// Less implements Fusion.
//
// Priority:
//  1. Higher RRF score
//  2. Higher raw lexical score (exact match indicator)
//  3. Input order (stable sort)
func (f *RRFFusion) Less(a, b *ScoredChunk) bool {
	if a.FusedScore != b.FusedScore {
		return a.FusedScore > b.FusedScore
	}
	return a.RawLexical > b.RawLexical
}

// rankBy returns the 1-indexed descending rank of each element by key.
// With positiveOnly, elements whose key is not positive get rank 0.
func rankBy(scored []ScoredChunk, key func(*ScoredChunk) float64, positiveOnly bool) []int {
	order := make([]int, 0, len(scored))
	for i := range scored {
		if positiveOnly && key(&scored[i]) <= 0 {
			continue
		}
		order = append(order, i)
	}
	sort.SliceStable(order, func(x, y int) bool {
		return key(&scored[order[x]]) > key(&scored[order[y]])
	})

	ranks := make([]int, len(scored))
	for rank, idx := range order {
		ranks[idx] = rank + 1
	}
	return ranks
}

// NewFusion returns the Fusion for a mode. Unknown modes fall back to
// adaptive fusion.
func NewFusion(mode FusionMode, rrfConstant int) Fusion {
	if mode == FusionRRF {
		return NewRRFFusionWithK(rrfConstant)
	}
	return AdaptiveFusion{}
}

// Package search ranks a document's chunks against a query by fusing cosine
// similarity with a synonym-aware lexical score.
//
// The ranking functions are pure: they take a chunk snapshot and return a new
// slice, never touching shared state, so concurrent queries need no locking.
package search

import (
	"fmt"

	"github.com/Aman-CERP/planqa/internal/store"
)

// DefaultSemanticWeight balances the two score families equally.
const DefaultSemanticWeight = 0.5

// ScoredChunk is a chunk together with the scores that ranked it.
type ScoredChunk struct {
	Chunk *store.Chunk

	// SemanticScore and LexicalScore are normalized to [0,1] by hybrid
	// ranking. Single-family rankings leave them equal to the raw values.
	SemanticScore float64
	LexicalScore  float64

	// FusedScore is the value results are sorted by.
	FusedScore float64

	// RawSemantic and RawLexical are the un-normalized scores.
	RawSemantic float64
	RawLexical  float64
}

// FusionMode selects how hybrid ranking combines the two score families.
type FusionMode string

const (
	// FusionAdaptive is the weighted average with the strong-lexical boost.
	FusionAdaptive FusionMode = "adaptive"

	// FusionRRF is Reciprocal Rank Fusion over the two rank lists.
	FusionRRF FusionMode = "rrf"
)

// ParseFusionMode validates a fusion mode name. Empty means adaptive.
func ParseFusionMode(s string) (FusionMode, error) {
	switch FusionMode(s) {
	case "", FusionAdaptive:
		return FusionAdaptive, nil
	case FusionRRF:
		return FusionRRF, nil
	default:
		return "", fmt.Errorf("unknown fusion mode %q (valid: adaptive, rrf)", s)
	}
}

// Weights configures the relative importance of lexical vs semantic scores.
type Weights struct {
	Lexical  float64
	Semantic float64
}

// WeightsFor derives weights from a semantic weight, clamped to [0,1].
func WeightsFor(semanticWeight float64) Weights {
	sw := min(max(semanticWeight, 0), 1)
	return Weights{Lexical: 1 - sw, Semantic: sw}
}

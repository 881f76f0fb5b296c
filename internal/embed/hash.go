package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
	lcgModulus    = 2147483647

	// HashModelName identifies hash vectors in the store and the query cache.
	HashModelName = "hash-lcg"
)

// HashEmbedder derives a deterministic pseudo-random unit vector from the
// sha256 of the text. It needs no model and never fails, which makes it the
// offline default and the embedder used in tests. Vectors carry no meaning:
// only identical texts are similar.
type HashEmbedder struct {
	dims int
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder returns a HashEmbedder producing dims-length vectors.
// dims <= 0 selects DefaultDimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Embed seeds a linear congruential generator with the first 32 bits of the
// text's sha256 and maps each successive state into [-1, 1].
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return hashVector(text, h.dims), nil
}

func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = hashVector(text, h.dims)
	}
	return out, nil
}

func (h *HashEmbedder) Dimensions() int                  { return h.dims }
func (h *HashEmbedder) ModelName() string                { return HashModelName }
func (h *HashEmbedder) Available(_ context.Context) bool { return true }
func (h *HashEmbedder) Close() error                     { return nil }

func hashVector(text string, dims int) []float32 {
	sum := sha256.Sum256([]byte(text))
	digest := hex.EncodeToString(sum[:])
	// 8 hex chars always parse into a uint64.
	x, _ := strconv.ParseUint(digest[:8], 16, 64)

	vec := make([]float32, dims)
	for i := range vec {
		x = (lcgMultiplier*x + lcgIncrement) % lcgModulus
		vec[i] = float32(float64(x)/lcgModulus*2 - 1)
	}
	return normalizeVector(vec)
}

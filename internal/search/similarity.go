package search

import "math"

// CosineSimilarity returns dot(a,b)/(|a||b|).
//
// Vectors of different length, and zero vectors, score 0 rather than
// erroring: a mismatched chunk simply ranks last.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

package embedder

import (
	"context"
	"errors"
	"math"
)

var (
	ErrEmptyText          = errors.New("text cannot be empty")
	ErrEmbeddingFailed    = errors.New("failed to generate embedding")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrMissingCredentials = errors.New("GEMINI_API_KEY not set")
)

// Embedder maps text to a fixed-dimension, unit-length vector.
// Vectors must follow the convention used when the vector index was built.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Normalize scales v to unit length in place. Zero vectors are left unchanged.
func Normalize(v []float64) {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] /= norm
	}
}

// toFloat32 converts an API vector into the index's element type
func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

package vectorindex

import (
	"context"
	"fmt"

	"legalrag-backend/models"
)

// EmbeddingSearcher runs a similarity query against a database that stores
// embeddings next to the chunks (e.g. Postgres with pgvector).
type EmbeddingSearcher interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]models.Neighbor, error)
}

// PgVectorIndex adapts an EmbeddingSearcher to the Index contract
type PgVectorIndex struct {
	searcher EmbeddingSearcher
	dim      int
}

// NewPgVectorIndex creates an index backed by the given searcher
func NewPgVectorIndex(searcher EmbeddingSearcher, dim int) *PgVectorIndex {
	return &PgVectorIndex{searcher: searcher, dim: dim}
}

// Dimension returns the embedding dimension of the table
func (p *PgVectorIndex) Dimension() int { return p.dim }

// Search queries the database and pads the result to k entries
func (p *PgVectorIndex) Search(ctx context.Context, vector []float32, k int) ([]models.Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(vector) != p.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), p.dim)
	}

	neighbors, err := p.searcher.SearchByEmbedding(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("pgvector search failed: %w", err)
	}
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return pad(neighbors, k), nil
}

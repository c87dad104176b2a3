// Package vectorindex provides nearest-neighbor search over chunk embeddings.
//
// Every Index returns exactly k neighbors ranked by decreasing inner-product
// similarity. When fewer than k vectors are available the tail is padded with
// NoMatchID, which callers must skip. Neighbor IDs are chunk-store keys.
package vectorindex

import (
	"context"
	"errors"
	"math"

	"legalrag-backend/models"
)

// NoMatchID marks a padding slot when fewer than k neighbors exist
const NoMatchID int64 = -1

var (
	ErrDimensionMismatch = errors.New("query vector dimension mismatch")
	ErrInvalidK          = errors.New("k must be positive")
)

// Index is a read-only nearest-neighbor search structure
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]models.Neighbor, error)
	Dimension() int
}

// noMatch is the neighbor used for padding
var noMatch = models.Neighbor{ID: NoMatchID, Score: float32(math.Inf(-1))}

// pad extends neighbors to length k with NoMatchID entries
func pad(neighbors []models.Neighbor, k int) []models.Neighbor {
	for len(neighbors) < k {
		neighbors = append(neighbors, noMatch)
	}
	return neighbors
}

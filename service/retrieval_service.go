package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"legalrag-backend/embedder"
	"legalrag-backend/models"
	"legalrag-backend/repository"
	"legalrag-backend/statute"
	"legalrag-backend/vectorindex"

	"golang.org/x/sync/errgroup"
)

// ResultSlack is how far a search may exceed k. Exact statute matches are placed
// ahead of the k semantic hits and the combined list is cut at k+ResultSlack, so
// a query citing more than two sections can push semantic hits out of the result.
const ResultSlack = 2

// DefaultMaxK is the largest k accepted by Search unless overridden with WithMaxK
const DefaultMaxK = 100

const defaultLookupConcurrency = 8

var (
	ErrEmptyQuery      = errors.New("query must not be empty")
	ErrInvalidLimit    = errors.New("k must be a positive integer")
	ErrRetrievalFailed = errors.New("failed to retrieve legal context")
	ErrNotConfigured   = errors.New("retriever is not fully configured")
)

// ChunkStore resolves vector index ids to chunks.
// It must return repository.ErrChunkNotFound for unknown ids.
type ChunkStore interface {
	GetChunk(ctx context.Context, id int64) (*models.Chunk, error)
}

// HybridRetriever merges exact statute lookups with semantic search over case law.
// All collaborators are read-only after construction; Search is safe for concurrent use.
type HybridRetriever struct {
	cache             *statute.Cache
	embedder          embedder.Embedder
	index             vectorindex.Index
	store             ChunkStore
	maxK              int
	lookupConcurrency int
}

// RetrieverOption is a functional option for HybridRetriever
type RetrieverOption func(*HybridRetriever)

// WithStatuteCache sets the statute cache
func WithStatuteCache(cache *statute.Cache) RetrieverOption {
	return func(r *HybridRetriever) {
		r.cache = cache
	}
}

// WithEmbedder sets the query embedder
func WithEmbedder(e embedder.Embedder) RetrieverOption {
	return func(r *HybridRetriever) {
		r.embedder = e
	}
}

// WithVectorIndex sets the vector index
func WithVectorIndex(index vectorindex.Index) RetrieverOption {
	return func(r *HybridRetriever) {
		r.index = index
	}
}

// WithChunkStore sets the chunk store
func WithChunkStore(store ChunkStore) RetrieverOption {
	return func(r *HybridRetriever) {
		r.store = store
	}
}

// WithMaxK sets the largest k a caller may request
func WithMaxK(n int) RetrieverOption {
	return func(r *HybridRetriever) {
		if n > 0 {
			r.maxK = n
		}
	}
}

// WithLookupConcurrency bounds parallel chunk lookups per search
func WithLookupConcurrency(n int) RetrieverOption {
	return func(r *HybridRetriever) {
		if n > 0 {
			r.lookupConcurrency = n
		}
	}
}

// NewHybridRetriever creates a new hybrid retriever
func NewHybridRetriever(opts ...RetrieverOption) *HybridRetriever {
	r := &HybridRetriever{
		maxK:              DefaultMaxK,
		lookupConcurrency: defaultLookupConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = statute.EmptyCache()
	}
	return r
}

// Ready reports whether the semantic path has everything it needs
func (r *HybridRetriever) Ready() bool {
	return r.embedder != nil && r.index != nil && r.store != nil
}

// Search returns exact statute matches (in order of appearance in the query)
// followed by semantic case-law matches (in index rank order), capped at k+ResultSlack.
func (r *HybridRetriever) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 || k > r.maxK {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrInvalidLimit, k, r.maxK)
	}
	if !r.Ready() {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, ErrNotConfigured)
	}

	// 1. Exact statute matches
	results := r.cache.Match(statute.Extract(query))

	// 2. Semantic matches
	semantic, err := r.semanticSearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
	}
	results = append(results, semantic...)

	// 3. Truncate
	if limit := k + ResultSlack; len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// semanticSearch embeds the query, searches the index and hydrates hits from the chunk store.
// Ids that are padding or cannot be resolved are dropped. A cancelled context fails the
// search rather than returning the hits that happened to resolve.
func (r *HybridRetriever) semanticSearch(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	neighbors, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	// One slot per rank so completion order cannot reorder results
	slots := make([]*models.SearchResult, len(neighbors))

	var g errgroup.Group
	g.SetLimit(r.lookupConcurrency)
	for i, neighbor := range neighbors {
		if neighbor.ID == vectorindex.NoMatchID {
			continue
		}
		g.Go(func() error {
			chunk, err := r.store.GetChunk(ctx, neighbor.ID)
			if err != nil {
				if !errors.Is(err, repository.ErrChunkNotFound) {
					log.Printf("Warning: Failed to load chunk %d: %v", neighbor.ID, err)
				}
				return nil
			}
			slots[i] = &models.SearchResult{
				Kind:       models.KindSemantic,
				Score:      float64(neighbor.Score),
				DocumentID: chunk.DocumentID,
				Text:       chunk.Text,
				Source:     models.SourceCaseLaw,
				Metadata:   chunk.Metadata,
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results, nil
}

package embedder

import (
	"context"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"
)

// CachedEmbedder memoizes embeddings of an inner Embedder in an LRU cache keyed by
// a content hash, so repeated queries skip the remote call.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU cache of the given size
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// ContentHash returns the hex blake2b-256 digest of text
func ContentHash(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns a cached vector when present, otherwise delegates and stores the result.
// Callers receive a copy and may mutate it freely.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := ContentHash(text)
	if v, ok := c.cache.Get(key); ok {
		return append([]float32(nil), v...), nil
	}

	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]float32(nil), v...))
	return v, nil
}

// Dimension returns the inner embedder's dimension
func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// Len returns the number of cached embeddings
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

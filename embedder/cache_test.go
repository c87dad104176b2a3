package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) Dimension() int { return 2 }

func TestCachedEmbedderMemoizes(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := c.Embed(ctx, "abc")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "abc")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Dimension())
}

func TestCachedEmbedderReturnsCopies(t *testing.T) {
	c, err := NewCachedEmbedder(&countingEmbedder{}, 8)
	require.NoError(t, err)

	ctx := context.Background()
	v, err := c.Embed(ctx, "abc")
	require.NoError(t, err)
	v[0] = 999

	again, err := c.Embed(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, float32(3), again[0])
}

func TestCachedEmbedderDoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("model unavailable")}
	c, err := NewCachedEmbedder(inner, 8)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "abc")
	assert.Error(t, err)
	_, err = c.Embed(context.Background(), "abc")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, c.Len())
}

func TestContentHashStable(t *testing.T) {
	assert.Equal(t, ContentHash("Section 302 IPC"), ContentHash("Section 302 IPC"))
	assert.NotEqual(t, ContentHash("Section 302 IPC"), ContentHash("Section 303 IPC"))
	assert.Len(t, ContentHash(""), 64)
}

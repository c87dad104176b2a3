package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/models"
)

func newTestRepo(t *testing.T) *SQLiteChunkRepository {
	t.Helper()
	repo, err := NewSQLiteChunkRepository(context.Background(), filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteChunkRepository_InsertAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	chunks := []models.Chunk{
		{ID: 0, DocumentID: "State_v_Sharma", Text: "The accused was convicted.", Metadata: models.ChunkMetadata{"court": "Delhi HC"}},
		{ID: 1, DocumentID: "State_v_Rao", Text: "Appeal dismissed."},
	}
	require.NoError(t, repo.InsertChunks(ctx, chunks))

	got, err := repo.GetChunk(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ID)
	assert.Equal(t, "State_v_Sharma", got.DocumentID)
	assert.Equal(t, "The accused was convicted.", got.Text)
	assert.Equal(t, "Delhi HC", got.Metadata["court"])

	got, err = repo.GetChunk(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, got.Metadata)
	assert.Empty(t, got.Metadata)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteChunkRepository_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetChunk(context.Background(), 42)
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestSQLiteChunkRepository_ReplaceAndReset(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertChunks(ctx, []models.Chunk{{ID: 5, DocumentID: "a", Text: "old"}}))
	require.NoError(t, repo.InsertChunks(ctx, []models.Chunk{{ID: 5, DocumentID: "a", Text: "new"}}))

	got, err := repo.GetChunk(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)

	require.NoError(t, repo.Reset(ctx))
	_, err = repo.GetChunk(ctx, 5)
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestSQLiteChunkRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	ctx := context.Background()

	repo, err := NewSQLiteChunkRepository(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.InsertChunks(ctx, []models.Chunk{{ID: 3, DocumentID: "d", Text: "t"}}))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteChunkRepository(ctx, path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetChunk(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "d", got.DocumentID)
}

func TestFormatVector(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want string
	}{
		{"empty", nil, "[]"},
		{"single", []float32{0.5}, "[0.500000]"},
		{"several", []float32{1, -0.25, 0}, "[1.000000,-0.250000,0.000000]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVector(tt.in))
		})
	}
}

func TestPostgresSchema_UsesDimension(t *testing.T) {
	stmts := PostgresSchema(768)
	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[1], "vector(768)")
}

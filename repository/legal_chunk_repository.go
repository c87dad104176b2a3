package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"legalrag-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LegalChunkRepository stores chunks and their embeddings in Postgres (pgvector).
// It serves as both the chunk store and the vector index when VECTOR_INDEX=pgvector.
type LegalChunkRepository struct {
	db  *pgxpool.Pool
	dim int
}

// NewLegalChunkRepository creates a new legal chunk repository
func NewLegalChunkRepository(db *pgxpool.Pool, dim int) *LegalChunkRepository {
	return &LegalChunkRepository{db: db, dim: dim}
}

// PostgresSchema returns the DDL for the legal_chunks table with a vector column of dim
func PostgresSchema(dim int) []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS legal_chunks (
    id BIGINT PRIMARY KEY,
    doc_id TEXT NOT NULL,
    chunk_text TEXT NOT NULL,
    metadata JSONB DEFAULT '{}'::jsonb,
    embedding vector(%d),
    created_at TIMESTAMP DEFAULT NOW()
)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_legal_chunks_embedding_hnsw ON legal_chunks
USING hnsw (embedding vector_ip_ops)
WITH (m = 16, ef_construction = 64)`,
		"CREATE INDEX IF NOT EXISTS idx_legal_chunks_doc_id ON legal_chunks(doc_id)",
	}
}

// formatVector formats an embedding vector as a pgvector literal
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// GetChunk retrieves a chunk by id
func (r *LegalChunkRepository) GetChunk(ctx context.Context, id int64) (*models.Chunk, error) {
	chunk := &models.Chunk{}
	query := `
		SELECT id, doc_id, chunk_text, metadata
		FROM legal_chunks
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.Text,
		&chunk.Metadata,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrChunkNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get legal chunk %d: %w", id, err)
	}

	return chunk, nil
}

// InsertChunks upserts chunks together with their embeddings in one batch
func (r *LegalChunkRepository) InsertChunks(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("got %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	query := `
		INSERT INTO legal_chunks (id, doc_id, chunk_text, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5::vector)
		ON CONFLICT (id) DO UPDATE SET
			doc_id = EXCLUDED.doc_id,
			chunk_text = EXCLUDED.chunk_text,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		if len(embeddings[i]) != r.dim {
			return fmt.Errorf("embedding for chunk %d must be %d dimensions, got %d", chunk.ID, r.dim, len(embeddings[i]))
		}
		batch.Queue(query, chunk.ID, chunk.DocumentID, chunk.Text, chunk.Metadata, formatVector(embeddings[i]))
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, chunk := range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert legal chunk %d: %w", chunk.ID, err)
		}
	}
	return nil
}

// Reset removes all chunks, used before a full index rebuild
func (r *LegalChunkRepository) Reset(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, "TRUNCATE legal_chunks"); err != nil {
		return fmt.Errorf("failed to truncate legal_chunks: %w", err)
	}
	return nil
}

// SearchByEmbedding returns up to limit chunk ids ranked by inner product.
// pgvector's <#> operator yields the negative inner product, so it is negated back.
func (r *LegalChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]models.Neighbor, error) {
	if len(embedding) != r.dim {
		return nil, fmt.Errorf("embedding must be %d dimensions, got %d", r.dim, len(embedding))
	}

	query := `
		SELECT id, (embedding <#> $1::vector) * -1 AS score
		FROM legal_chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <#> $1::vector, id
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, formatVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query legal chunks: %w", err)
	}
	defer rows.Close()

	var neighbors []models.Neighbor
	for rows.Next() {
		var n models.Neighbor
		var score float64
		if err := rows.Scan(&n.ID, &score); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		n.Score = float32(score)
		neighbors = append(neighbors, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating neighbors: %w", err)
	}

	return neighbors, nil
}

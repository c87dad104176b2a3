package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"legalrag-backend/models"
)

var (
	// ErrChunkNotFound is returned when no chunk exists for an id
	ErrChunkNotFound = errors.New("chunk not found")
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY,
	doc_id TEXT NOT NULL,
	text TEXT NOT NULL,
	meta TEXT NOT NULL DEFAULT '{}'
)`

// SQLiteChunkRepository is the chunk store used alongside the flat vector index.
// Chunk ids are the vector index ids.
type SQLiteChunkRepository struct {
	db *sql.DB
}

// openSQLite opens a SQLite database with the settings used for the chunk store
func openSQLite(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Chunk lookups for one search run in parallel
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteChunkRepository opens the database at dbPath and makes sure the chunks table exists
func NewSQLiteChunkRepository(ctx context.Context, dbPath string) (*SQLiteChunkRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chunk database directory: %w", err)
	}

	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk database: %w", err)
	}

	repo := &SQLiteChunkRepository{db: db}
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// EnsureSchema creates the chunks table if needed
func (r *SQLiteChunkRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *SQLiteChunkRepository) Close() error {
	return r.db.Close()
}

// GetChunk retrieves a chunk by id
func (r *SQLiteChunkRepository) GetChunk(ctx context.Context, id int64) (*models.Chunk, error) {
	chunk := &models.Chunk{}
	query := `SELECT id, doc_id, text, meta FROM chunks WHERE id = ?`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.Text,
		&chunk.Metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrChunkNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk %d: %w", id, err)
	}

	return chunk, nil
}

// InsertChunks writes chunks in a single transaction, replacing existing ids
func (r *SQLiteChunkRepository) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks (id, doc_id, text, meta) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Text, chunk.Metadata); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// Count returns the number of stored chunks
func (r *SQLiteChunkRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Reset removes all chunks, used before a full index rebuild
func (r *SQLiteChunkRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	return nil
}

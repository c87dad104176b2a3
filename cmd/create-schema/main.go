package main

import (
	"context"
	"fmt"
	"log"

	"legalrag-backend/config"
	"legalrag-backend/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// SQLite chunk store
	repo, err := repository.NewSQLiteChunkRepository(ctx, cfg.ChunkDBPath())
	if err != nil {
		log.Fatalf("Failed to create SQLite chunk store: %v", err)
	}
	if err := repo.Close(); err != nil {
		log.Printf("Warning: Failed to close SQLite chunk store: %v", err)
	}
	log.Printf("✓ Created chunks table in %s", cfg.ChunkDBPath())

	if cfg.DatabaseURL == "" {
		fmt.Println("\n✅ Schema created (DATABASE_URL not set, skipped Postgres)")
		return
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	for _, stmt := range repository.PostgresSchema(cfg.EmbeddingDimensions) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Printf("Warning: Failed to execute schema statement: %v", err)
			continue
		}
	}
	log.Println("✓ Created legal_chunks table")

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Printf("   SQLite: %s (chunks)\n", cfg.ChunkDBPath())
	fmt.Printf("   Postgres: legal_chunks (vector(%d))\n", cfg.EmbeddingDimensions)
}

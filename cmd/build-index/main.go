package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"legalrag-backend/config"
	"legalrag-backend/embedder"
	"legalrag-backend/ingest"
	"legalrag-backend/repository"
	"legalrag-backend/storage"
	"legalrag-backend/vectorindex"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	flagSource      string
	flagReset       bool
	flagConcurrency int
	flagBatchSize   int
	flagMaxTokens   int
	flagOverlap     int
)

var rootCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Chunk, embed and index a directory of judgments",
	Long: `build-index extracts text from PDF and TXT judgments, splits it into
overlapping chunks, embeds each chunk with Gemini and writes the chunk store
and vector index used by the retrieval server. Chunk ids start at 0 and are
shared between the store and the index.`,
	SilenceUsage: true,
	RunE:         runBuild,
}

func init() {
	rootCmd.Flags().StringVarP(&flagSource, "source", "s", "./raw_data", "directory of .pdf/.txt documents")
	rootCmd.Flags().BoolVar(&flagReset, "reset", true, "clear existing chunks before indexing")
	rootCmd.Flags().IntVar(&flagConcurrency, "concurrency", 4, "parallel embedding requests")
	rootCmd.Flags().IntVar(&flagBatchSize, "batch-size", 256, "chunks per embed/write batch")
	rootCmd.Flags().IntVar(&flagMaxTokens, "max-tokens", ingest.DefaultMaxTokens, "tokens per chunk")
	rootCmd.Flags().IntVar(&flagOverlap, "overlap", ingest.DefaultOverlap, "tokens shared by consecutive chunks")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	chunker, err := ingest.NewChunker(flagMaxTokens, flagOverlap)
	if err != nil {
		return err
	}

	store, err := storage.NewStorage(cfg.StorageConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewGeminiEmbedder(cfg.GeminiAPIKey,
		embedder.WithModel(cfg.EmbeddingModel),
		embedder.WithDimensions(cfg.EmbeddingDimensions),
		embedder.WithTaskType(embedder.TaskRetrievalDocument),
		embedder.WithRateLimit(cfg.EmbedRateLimit),
	)
	if err != nil {
		return err
	}

	opts := []ingest.PipelineOption{
		ingest.WithChunker(chunker),
		ingest.WithConcurrency(flagConcurrency),
		ingest.WithBatchSize(flagBatchSize),
	}

	switch cfg.ChunkStore {
	case config.ChunkStorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		repo := repository.NewLegalChunkRepository(pool, cfg.EmbeddingDimensions)
		if flagReset {
			if err := repo.Reset(ctx); err != nil {
				return err
			}
		}
		opts = append(opts, ingest.WithEmbeddingWriter(repo))
	default:
		repo, err := repository.NewSQLiteChunkRepository(ctx, cfg.ChunkDBPath())
		if err != nil {
			return err
		}
		defer repo.Close()

		if flagReset {
			if err := repo.Reset(ctx); err != nil {
				return err
			}
		}
		opts = append(opts, ingest.WithChunkWriter(repo))
	}

	log.Printf("📂 Ingesting %s", flagSource)
	result, err := ingest.NewPipeline(emb, opts...).Run(ctx, flagSource)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if cfg.VectorIndex == config.VectorIndexFlat {
		if err := vectorindex.SaveFlatIndex(ctx, store, cfg.IndexPath, result.Index); err != nil {
			return err
		}
		log.Printf("💾 Saved vector index to %s", cfg.IndexPath)
	}

	log.Printf("✅ Run %s complete: %d documents, %d skipped, %d chunks, %d duplicates dropped",
		result.RunID, result.Documents, result.Skipped, result.Chunks, result.Duplicates)
	return nil
}

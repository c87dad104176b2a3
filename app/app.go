// Package app builds the long-lived, read-only resources shared by all requests.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"legalrag-backend/config"
	"legalrag-backend/embedder"
	"legalrag-backend/models"
	"legalrag-backend/repository"
	"legalrag-backend/service"
	"legalrag-backend/statute"
	"legalrag-backend/storage"
	"legalrag-backend/vectorindex"

	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"
)

// Resources holds everything loaded once at startup. Nothing in it is mutated
// after New returns; handlers receive it by reference.
type Resources struct {
	Config    *config.Config
	Storage   storage.Storage
	Cache     *statute.Cache
	Store     service.ChunkStore
	Index     vectorindex.Index
	Embedder  embedder.Embedder
	Retriever *service.HybridRetriever
	Answers   *service.AnswerService

	closers []func() error
}

// New loads artifacts and connects collaborators according to cfg.
// A missing statute snapshot or API key degrades the service; a missing index is fatal.
func New(ctx context.Context, cfg *config.Config) (*Resources, error) {
	r := &Resources{Config: cfg}

	store, err := storage.NewStorage(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	r.Storage = store
	log.Println("Storage initialized")

	r.Cache = statute.LoadCacheOrEmpty(ctx, store, cfg.CachePath)

	if err := r.initChunkStore(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}

	if err := r.initIndex(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}

	if err := r.initEmbedder(); err != nil {
		_ = r.Close()
		return nil, err
	}

	retrieverOpts := []service.RetrieverOption{
		service.WithStatuteCache(r.Cache),
		service.WithVectorIndex(r.Index),
		service.WithChunkStore(r.Store),
		service.WithMaxK(cfg.MaxK),
		service.WithLookupConcurrency(cfg.LookupConcurrency),
	}
	if r.Embedder != nil {
		retrieverOpts = append(retrieverOpts, service.WithEmbedder(r.Embedder))
	}
	r.Retriever = service.NewHybridRetriever(retrieverOpts...)

	answerOpts := []service.AnswerServiceOption{
		service.AnswerWithRetriever(r.Retriever),
		service.AnswerWithLimit(cfg.AskK),
	}
	generator, err := r.initGenerator(ctx)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	if generator != nil {
		answerOpts = append(answerOpts, service.AnswerWithGenerator(generator))
	}
	r.Answers = service.NewAnswerService(answerOpts...)

	log.Printf("%s %s ready (model loaded: %v)", cfg.AppName, cfg.Version, r.Retriever.Ready())
	return r, nil
}

func (r *Resources) initChunkStore(ctx context.Context) error {
	switch r.Config.ChunkStore {
	case config.ChunkStorePostgres:
		pool, err := initPostgres(ctx, r.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		r.closers = append(r.closers, func() error { pool.Close(); return nil })

		repo := repository.NewLegalChunkRepository(pool, r.Config.EmbeddingDimensions)
		r.Store = repo
		if r.Config.VectorIndex == config.VectorIndexPgVector {
			r.Index = vectorindex.NewPgVectorIndex(repo, r.Config.EmbeddingDimensions)
			log.Println("Using pgvector for semantic search")
		}
	default:
		repo, err := repository.NewSQLiteChunkRepository(ctx, r.Config.ChunkDBPath())
		if err != nil {
			return fmt.Errorf("failed to open chunk store: %w", err)
		}
		r.closers = append(r.closers, repo.Close)
		r.Store = repo
	}
	log.Printf("Chunk store initialized (%s)", r.Config.ChunkStore)
	return nil
}

func (r *Resources) initIndex(ctx context.Context) error {
	if r.Index != nil {
		return nil
	}

	index, err := vectorindex.LoadFlatIndex(ctx, r.Storage, r.Config.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to load vector index %s: %w", r.Config.IndexPath, err)
	}
	if index.Dimension() != r.Config.EmbeddingDimensions {
		return fmt.Errorf("%w: index has %d dimensions, embedder produces %d",
			vectorindex.ErrDimensionMismatch, index.Dimension(), r.Config.EmbeddingDimensions)
	}
	r.Index = index
	log.Printf("Vector index loaded: %d vectors", index.Len())
	return nil
}

func (r *Resources) initEmbedder() error {
	if r.Config.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set, semantic search disabled")
		return nil
	}

	gemini, err := embedder.NewGeminiEmbedder(r.Config.GeminiAPIKey,
		embedder.WithModel(r.Config.EmbeddingModel),
		embedder.WithDimensions(r.Config.EmbeddingDimensions),
		embedder.WithTaskType(embedder.TaskRetrievalQuery),
		embedder.WithRateLimit(r.Config.EmbedRateLimit),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	if r.Config.EmbedCacheSize <= 0 {
		r.Embedder = gemini
		return nil
	}

	cached, err := embedder.NewCachedEmbedder(gemini, r.Config.EmbedCacheSize)
	if err != nil {
		return fmt.Errorf("failed to initialize embedding cache: %w", err)
	}
	r.Embedder = cached
	return nil
}

func (r *Resources) initGenerator(ctx context.Context) (service.Generator, error) {
	if r.Config.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set, /ask disabled")
		return nil, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(r.Config.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini: %w", err)
	}
	r.closers = append(r.closers, client.Close)

	log.Println("Gemini client initialized")
	return service.NewGeminiGenerator(client, r.Config.GenerationModel), nil
}

func initPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("Postgres connection established with pgvector support")
	return pool, nil
}

// Close releases database handles and clients in reverse order of creation
func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// LookupStatute returns the cached text of a statute section
func (r *Resources) LookupStatute(code models.StatuteCode, section string) (string, bool) {
	return r.Cache.Lookup(models.StatuteReference{Code: code, Section: section})
}

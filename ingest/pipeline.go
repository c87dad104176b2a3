package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"legalrag-backend/embedder"
	"legalrag-backend/models"
	"legalrag-backend/vectorindex"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 256
	defaultConcurrency = 4
)

// ChunkWriter persists chunk rows (SQLite chunk store)
type ChunkWriter interface {
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
}

// EmbeddingWriter persists chunk rows together with their embeddings (Postgres + pgvector)
type EmbeddingWriter interface {
	InsertChunks(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error
}

// Pipeline builds the chunk store and vector index from source documents
type Pipeline struct {
	embedder    embedder.Embedder
	chunker     *Chunker
	chunks      ChunkWriter
	vectors     EmbeddingWriter
	batchSize   int
	concurrency int
}

// PipelineOption is a functional option for Pipeline
type PipelineOption func(*Pipeline)

// WithChunker overrides the default 1000/200 token chunker
func WithChunker(c *Chunker) PipelineOption {
	return func(p *Pipeline) {
		p.chunker = c
	}
}

// WithChunkWriter writes chunks to a store without embeddings
func WithChunkWriter(w ChunkWriter) PipelineOption {
	return func(p *Pipeline) {
		p.chunks = w
	}
}

// WithEmbeddingWriter writes chunks and embeddings to a vector-capable store
func WithEmbeddingWriter(w EmbeddingWriter) PipelineOption {
	return func(p *Pipeline) {
		p.vectors = w
	}
}

// WithBatchSize sets how many chunks are embedded and written per batch
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithConcurrency sets the number of parallel embedding requests
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPipeline creates an ingestion pipeline. The embedder should embed with the
// document task type; queries are embedded with the query task type.
func NewPipeline(e embedder.Embedder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		embedder:    e,
		chunker:     &Chunker{MaxTokens: DefaultMaxTokens, Overlap: DefaultOverlap},
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result summarizes an ingestion run
type Result struct {
	RunID      uuid.UUID
	Documents  int
	Skipped    int
	Chunks     int
	Duplicates int
	Index      *vectorindex.FlatIndex
}

// Run ingests every supported document under dir. Chunk ids are assigned
// sequentially from 0 and used as both the chunk-store key and the vector id.
func (p *Pipeline) Run(ctx context.Context, dir string) (*Result, error) {
	if p.embedder == nil {
		return nil, errors.New("embedder not set")
	}

	paths, err := collectDocuments(dir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID: uuid.New(),
		Index: vectorindex.NewFlatIndex(p.embedder.Dimension()),
	}

	pending := make([]models.Chunk, 0, p.batchSize)
	seen := make(map[string]struct{})
	var nextID int64

	for _, path := range paths {
		chunks, err := p.chunkDocument(path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			result.Skipped++
			continue
		}
		result.Documents++

		for i, text := range chunks {
			hash := embedder.ContentHash(text)
			if _, dup := seen[hash]; dup {
				result.Duplicates++
				continue
			}
			seen[hash] = struct{}{}

			docID := DocumentID(path)
			pending = append(pending, models.Chunk{
				ID:         nextID,
				DocumentID: docID,
				Text:       text,
				Metadata: models.ChunkMetadata{
					"source_file":  filepath.Base(path),
					"chunk_index":  i,
					"content_hash": hash,
					"run_id":       result.RunID.String(),
				},
			})
			nextID++

			if len(pending) == p.batchSize {
				if err := p.flush(ctx, pending, result); err != nil {
					return nil, err
				}
				pending = pending[:0]
			}
		}
	}

	if len(pending) > 0 {
		if err := p.flush(ctx, pending, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (p *Pipeline) chunkDocument(path string) ([]string, error) {
	raw, err := ExtractText(path)
	if err != nil {
		return nil, err
	}
	text := CleanText(raw)
	if text == "" {
		return nil, errors.New("no extractable text")
	}
	return p.chunker.Split(text), nil
}

// flush embeds a batch, adds it to the index and writes it to the configured stores
func (p *Pipeline) flush(ctx context.Context, batch []models.Chunk, result *Result) error {
	embeddings := make([][]float32, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range batch {
		g.Go(func() error {
			vec, err := p.embedder.Embed(gctx, batch[i].Text)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d (%s): %w", batch[i].ID, batch[i].DocumentID, err)
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, chunk := range batch {
		if err := result.Index.Add(chunk.ID, embeddings[i]); err != nil {
			return fmt.Errorf("failed to index chunk %d: %w", chunk.ID, err)
		}
	}

	if p.chunks != nil {
		if err := p.chunks.InsertChunks(ctx, batch); err != nil {
			return err
		}
	}
	if p.vectors != nil {
		if err := p.vectors.InsertChunks(ctx, batch, embeddings); err != nil {
			return err
		}
	}

	result.Chunks += len(batch)
	log.Printf("Indexed %d chunks", result.Chunks)
	return nil
}

// collectDocuments lists supported files under dir in lexical order
func collectDocuments(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory %s: %w", dir, err)
	}
	return paths, nil
}

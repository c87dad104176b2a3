package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CONFIG_FILE", "APP_NAME", "VERSION", "GEMINI_API_KEY", "EMBEDDING_MODEL",
		"EMBEDDING_DIMENSIONS", "GENERATION_MODEL", "ARTIFACT_DIR", "DB_PATH", "INDEX_PATH",
		"CACHE_PATH", "CHUNK_STORE", "VECTOR_INDEX", "DATABASE_URL", "STORAGE_TYPE",
		"AWS_S3_BUCKET", "AWS_REGION", "AWS_S3_PREFIX", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"PORT", "DEFAULT_K", "MAX_K", "ASK_K", "EMBED_CACHE_SIZE", "EMBED_RATE_LIMIT", "LOOKUP_CONCURRENCY",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "Legal RAG API", cfg.AppName)
	assert.Equal(t, "models/gemini-embedding-001", cfg.EmbeddingModel)
	assert.Equal(t, 768, cfg.EmbeddingDimensions)
	assert.Equal(t, "faiss_index.bin", cfg.IndexPath)
	assert.Equal(t, "statute_cache.json", cfg.CachePath)
	assert.Equal(t, ChunkStoreSQLite, cfg.ChunkStore)
	assert.Equal(t, VectorIndexFlat, cfg.VectorIndex)
	assert.Equal(t, 100, cfg.MaxK)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 5, cfg.DefaultK)
	assert.Equal(t, 10, cfg.AskK)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}

func TestFromEnv_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("DEFAULT_K", "7")
	t.Setenv("EMBED_RATE_LIMIT", "2.5")
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("AWS_S3_BUCKET", "legal-artifacts")
	t.Setenv("PORT", "9000")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7, cfg.DefaultK)
	assert.Equal(t, 2.5, cfg.EmbedRateLimit)
	assert.Equal(t, "9000", cfg.Port)

	sc := cfg.StorageConfig()
	assert.Equal(t, storage.StorageTypeS3, sc.Type)
	assert.Equal(t, "legal-artifacts", sc.S3Bucket)
}

func TestFromEnv_YAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: Statute Search
default_k: 3
vector_index: pgvector
chunk_store: postgres
storage:
  type: local
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DEFAULT_K", "4")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "Statute Search", cfg.AppName)
	assert.Equal(t, 4, cfg.DefaultK, "environment wins over the file")
	assert.Equal(t, VectorIndexPgVector, cfg.VectorIndex)
	assert.Equal(t, 10, cfg.AskK, "unset keys keep defaults")
}

func TestFromEnv_Errors(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_K", "five")
	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults with key", func(c *Config) {}, true},
		{"unknown chunk store", func(c *Config) { c.ChunkStore = "redis" }, false},
		{"unknown vector index", func(c *Config) { c.VectorIndex = "hnsw" }, false},
		{"pgvector needs postgres", func(c *Config) { c.VectorIndex = VectorIndexPgVector }, false},
		{"postgres needs url", func(c *Config) { c.ChunkStore = ChunkStorePostgres }, false},
		{"postgres with url", func(c *Config) {
			c.ChunkStore = ChunkStorePostgres
			c.VectorIndex = VectorIndexPgVector
			c.DatabaseURL = "postgres://localhost/legal"
		}, true},
		{"s3 needs bucket", func(c *Config) { c.Storage.Type = "s3" }, false},
		{"unknown storage", func(c *Config) { c.Storage.Type = "gcs" }, false},
		{"zero k", func(c *Config) { c.DefaultK = 0 }, false},
		{"default k above max", func(c *Config) { c.MaxK = 4 }, false},
		{"ask k above max", func(c *Config) { c.MaxK = 8 }, false},
		{"zero max k", func(c *Config) { c.MaxK = 0 }, false},
		{"zero dimensions", func(c *Config) { c.EmbeddingDimensions = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.GeminiAPIKey = "key"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestChunkDBPath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "./artifacts/chunks.db", cfg.ChunkDBPath())

	cfg.DBPath = "chunks.db"
	assert.Equal(t, filepath.Join("./artifacts", "chunks.db"), cfg.ChunkDBPath())
}

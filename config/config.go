// Package config loads service settings from .env files, an optional YAML file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"legalrag-backend/storage"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingAPIKey = errors.New("GEMINI_API_KEY is required")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Chunk store backends
const (
	ChunkStoreSQLite   = "sqlite"
	ChunkStorePostgres = "postgres"
)

// Vector index backends
const (
	VectorIndexFlat     = "flat"
	VectorIndexPgVector = "pgvector"
)

// StorageConfig selects where artifacts (statute snapshot, index file) live
type StorageConfig struct {
	Type      string `yaml:"type"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// Config is the root settings structure
type Config struct {
	AppName string `yaml:"app_name"`
	Version string `yaml:"version"`

	GeminiAPIKey        string `yaml:"-"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	GenerationModel     string `yaml:"generation_model"`

	ArtifactDir string `yaml:"artifact_dir"`
	DBPath      string `yaml:"db_path"`
	IndexPath   string `yaml:"index_path"`
	CachePath   string `yaml:"cache_path"`

	ChunkStore  string `yaml:"chunk_store"`
	VectorIndex string `yaml:"vector_index"`
	DatabaseURL string `yaml:"-"`

	Storage StorageConfig `yaml:"storage"`

	Port              string  `yaml:"port"`
	DefaultK          int     `yaml:"default_k"`
	MaxK              int     `yaml:"max_k"`
	AskK              int     `yaml:"ask_k"`
	EmbedCacheSize    int     `yaml:"embed_cache_size"`
	EmbedRateLimit    float64 `yaml:"embed_rate_limit"`
	LookupConcurrency int     `yaml:"lookup_concurrency"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		AppName:             "Legal RAG API",
		Version:             "1.0.0",
		EmbeddingModel:      "models/gemini-embedding-001",
		EmbeddingDimensions: 768,
		GenerationModel:     "gemini-2.5-flash",
		ArtifactDir:         "./artifacts",
		DBPath:              "./artifacts/chunks.db",
		IndexPath:           "faiss_index.bin",
		CachePath:           "statute_cache.json",
		ChunkStore:          ChunkStoreSQLite,
		VectorIndex:         VectorIndexFlat,
		Storage:             StorageConfig{Type: string(storage.StorageTypeLocal)},
		Port:                "8000",
		DefaultK:            5,
		MaxK:                100,
		AskK:                10,
		EmbedCacheSize:      1024,
		EmbedRateLimit:      10,
		LookupConcurrency:   8,
	}
}

// Load reads .env (current directory, then the project root relative to cmd/<tool>/)
// and builds the configuration from the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from defaults, the YAML file named by CONFIG_FILE
// (if any) and environment variables
func FromEnv() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.AppName, "APP_NAME")
	setString(&c.Version, "VERSION")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.EmbeddingModel, "EMBEDDING_MODEL")
	setString(&c.GenerationModel, "GENERATION_MODEL")
	setString(&c.ArtifactDir, "ARTIFACT_DIR")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.IndexPath, "INDEX_PATH")
	setString(&c.CachePath, "CACHE_PATH")
	setString(&c.ChunkStore, "CHUNK_STORE")
	setString(&c.VectorIndex, "VECTOR_INDEX")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.Storage.Type, "STORAGE_TYPE")
	setString(&c.Storage.Bucket, "AWS_S3_BUCKET")
	setString(&c.Storage.Region, "AWS_REGION")
	setString(&c.Storage.Prefix, "AWS_S3_PREFIX")
	setString(&c.Storage.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.Storage.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.Port, "PORT")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.EmbeddingDimensions, "EMBEDDING_DIMENSIONS"},
		{&c.DefaultK, "DEFAULT_K"},
		{&c.MaxK, "MAX_K"},
		{&c.AskK, "ASK_K"},
		{&c.EmbedCacheSize, "EMBED_CACHE_SIZE"},
		{&c.LookupConcurrency, "LOOKUP_CONCURRENCY"},
	}
	for _, v := range ints {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}

	if raw := os.Getenv("EMBED_RATE_LIMIT"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: EMBED_RATE_LIMIT=%q is not a number", ErrInvalidConfig, raw)
		}
		c.EmbedRateLimit = f
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, raw)
	}
	*dst = n
	return nil
}

// Validate checks settings needed to serve queries. A missing API key is reported
// last, so callers that tolerate it can still rely on every other check.
func (c *Config) Validate() error {
	switch c.ChunkStore {
	case ChunkStoreSQLite, ChunkStorePostgres:
	default:
		return fmt.Errorf("%w: unknown CHUNK_STORE %q", ErrInvalidConfig, c.ChunkStore)
	}

	switch c.VectorIndex {
	case VectorIndexFlat:
	case VectorIndexPgVector:
		if c.ChunkStore != ChunkStorePostgres {
			return fmt.Errorf("%w: VECTOR_INDEX=pgvector requires CHUNK_STORE=postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown VECTOR_INDEX %q", ErrInvalidConfig, c.VectorIndex)
	}

	if c.ChunkStore == ChunkStorePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required for CHUNK_STORE=postgres", ErrInvalidConfig)
	}

	switch storage.StorageType(c.Storage.Type) {
	case storage.StorageTypeLocal:
	case storage.StorageTypeS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("%w: AWS_S3_BUCKET is required for STORAGE_TYPE=s3", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORAGE_TYPE %q", ErrInvalidConfig, c.Storage.Type)
	}

	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIMENSIONS must be positive", ErrInvalidConfig)
	}
	if c.DefaultK <= 0 || c.AskK <= 0 {
		return fmt.Errorf("%w: DEFAULT_K and ASK_K must be positive", ErrInvalidConfig)
	}
	if c.DefaultK > c.MaxK || c.AskK > c.MaxK {
		return fmt.Errorf("%w: DEFAULT_K and ASK_K must not exceed MAX_K=%d", ErrInvalidConfig, c.MaxK)
	}

	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// StorageConfig returns the artifact storage settings. Local storage is rooted at ArtifactDir.
func (c *Config) StorageConfig() storage.StorageConfig {
	return storage.StorageConfig{
		Type:         storage.StorageType(c.Storage.Type),
		LocalPath:    c.ArtifactDir,
		S3Bucket:     c.Storage.Bucket,
		S3Region:     c.Storage.Region,
		S3Prefix:     c.Storage.Prefix,
		AWSAccessKey: c.Storage.AccessKey,
		AWSSecretKey: c.Storage.SecretKey,
	}
}

// ChunkDBPath returns DBPath, resolving a relative path that has no directory
// component against ArtifactDir
func (c *Config) ChunkDBPath() string {
	if filepath.IsAbs(c.DBPath) || filepath.Dir(c.DBPath) != "." {
		return c.DBPath
	}
	return filepath.Join(c.ArtifactDir, c.DBPath)
}

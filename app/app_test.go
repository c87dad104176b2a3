package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/config"
	"legalrag-backend/models"
	"legalrag-backend/service"
	"legalrag-backend/storage"
	"legalrag-backend/vectorindex"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ArtifactDir = dir
	cfg.DBPath = filepath.Join(dir, "chunks.db")
	cfg.EmbeddingDimensions = 2
	return cfg
}

func writeIndex(t *testing.T, cfg *config.Config, dim int) {
	t.Helper()
	store, err := storage.NewLocalStorage(cfg.ArtifactDir)
	require.NoError(t, err)

	index := vectorindex.NewFlatIndex(dim)
	require.NoError(t, index.Add(0, make([]float32, dim)))
	require.NoError(t, vectorindex.SaveFlatIndex(context.Background(), store, cfg.IndexPath, index))
}

func TestNew_WithoutAPIKeyDegrades(t *testing.T) {
	cfg := testConfig(t)
	writeIndex(t, cfg, 2)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ArtifactDir, cfg.CachePath),
		[]byte(`{"IPC": {"302": "Whoever commits murder..."}}`), 0o644))

	res, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer res.Close()

	assert.Nil(t, res.Embedder)
	assert.False(t, res.Retriever.Ready())
	assert.False(t, res.Answers.Available())

	text, ok := res.LookupStatute(models.StatuteIPC, "302")
	assert.True(t, ok)
	assert.Equal(t, "Whoever commits murder...", text)

	_, err = res.Retriever.Search(context.Background(), "Section 302 IPC", 5)
	assert.ErrorIs(t, err, service.ErrNotConfigured)

	_, err = res.Answers.Ask(context.Background(), "Section 302 IPC")
	assert.ErrorIs(t, err, service.ErrLLMNotConfigured)
}

func TestNew_MissingSnapshotGivesEmptyCache(t *testing.T) {
	cfg := testConfig(t)
	writeIndex(t, cfg, 2)

	res, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, 0, res.Cache.Sections(models.StatuteIPC))
}

func TestNew_MissingIndexFails(t *testing.T) {
	cfg := testConfig(t)

	_, err := New(context.Background(), cfg)
	assert.ErrorIs(t, err, vectorindex.ErrIndexNotFound)
}

func TestNew_IndexDimensionMismatchFails(t *testing.T) {
	cfg := testConfig(t)
	writeIndex(t, cfg, 3)

	_, err := New(context.Background(), cfg)
	assert.ErrorIs(t, err, vectorindex.ErrDimensionMismatch)
}

func TestClose_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	writeIndex(t, cfg, 2)

	res, err := New(context.Background(), cfg)
	require.NoError(t, err)

	assert.NoError(t, res.Close())
	assert.NoError(t, res.Close())
}

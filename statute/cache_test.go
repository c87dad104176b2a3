package statute

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/models"
	"legalrag-backend/storage"
)

const snapshot = `{
	"IPC": {"302": "Whoever commits murder shall be punished with death, or imprisonment for life."},
	"BNS": {"103": "Whoever commits murder shall be punished with death or imprisonment for life."}
}`

func TestDecode(t *testing.T) {
	c, err := Decode(strings.NewReader(snapshot))
	require.NoError(t, err)

	text, ok := c.Lookup(ref(models.StatuteIPC, "302"))
	assert.True(t, ok)
	assert.Contains(t, text, "Whoever commits murder")

	_, ok = c.Lookup(ref(models.StatuteIPC, "103"))
	assert.False(t, ok)

	assert.Equal(t, 1, c.Sections(models.StatuteIPC))
	assert.Equal(t, 1, c.Sections(models.StatuteBNS))
}

func TestDecodeRejectsUnknownCode(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"IPC": {"1": "x"}, "CrPC": {"125": "y"}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStatuteCode)
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"IPC": [1, 2]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
}

func TestLoadCacheMissingSnapshot(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = LoadCache(context.Background(), store, "statute_cache.json")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	c := LoadCacheOrEmpty(context.Background(), store, "statute_cache.json")
	require.NotNil(t, c)
	assert.Equal(t, 0, c.Sections(models.StatuteIPC))
}

func TestLoadCacheFromStorage(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Upload(ctx, "statute_cache.json", strings.NewReader(snapshot))
	require.NoError(t, err)

	c := LoadCacheOrEmpty(ctx, store, "statute_cache.json")
	_, ok := c.Lookup(ref(models.StatuteBNS, "103"))
	assert.True(t, ok)
}

func TestCacheIsolatedFromInput(t *testing.T) {
	raw := map[string]map[string]string{"IPC": {"302": "original"}}
	c, err := NewCache(raw)
	require.NoError(t, err)

	raw["IPC"]["302"] = "mutated"
	text, _ := c.Lookup(ref(models.StatuteIPC, "302"))
	assert.Equal(t, "original", text)
}

func TestMatch(t *testing.T) {
	c, err := Decode(strings.NewReader(snapshot))
	require.NoError(t, err)

	refs := []models.StatuteReference{
		ref(models.StatuteIPC, "302"),
		ref(models.StatuteIPC, "999"), // miss
		ref(models.StatuteBNS, "103"),
		ref(models.StatuteIPC, "302"), // duplicate kept
	}

	results := c.Match(refs)
	require.Len(t, results, 3)

	assert.Equal(t, "IPC Section 302", results[0].DocumentID)
	assert.Equal(t, "BNS Section 103", results[1].DocumentID)
	assert.Equal(t, "IPC Section 302", results[2].DocumentID)
	for _, r := range results {
		assert.Equal(t, models.KindExactMatch, r.Kind)
		assert.Equal(t, 1.0, r.Score)
		assert.Equal(t, models.SourceStatuteBook, r.Source)
		assert.Nil(t, r.Metadata)
	}
}

func TestNilCacheLookup(t *testing.T) {
	var c *Cache
	_, ok := c.Lookup(ref(models.StatuteIPC, "302"))
	assert.False(t, ok)
	assert.Empty(t, c.Match([]models.StatuteReference{ref(models.StatuteIPC, "302")}))
}

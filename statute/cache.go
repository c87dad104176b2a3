package statute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"legalrag-backend/models"
	"legalrag-backend/storage"
)

var (
	ErrSnapshotNotFound   = errors.New("statute cache snapshot not found")
	ErrSnapshotCorrupt    = errors.New("statute cache snapshot is corrupt")
	ErrUnknownStatuteCode = errors.New("unknown statute code in snapshot")
)

// Cache maps statute code -> section number -> canonical legal text.
// It is immutable once built and safe for concurrent readers.
type Cache struct {
	sections map[models.StatuteCode]map[string]string
}

// EmptyCache returns a cache with no sections
func EmptyCache() *Cache {
	return &Cache{sections: make(map[models.StatuteCode]map[string]string)}
}

// NewCache builds a cache from a raw snapshot mapping. Unknown statute codes are rejected.
// The input maps are copied.
func NewCache(raw map[string]map[string]string) (*Cache, error) {
	c := EmptyCache()
	for rawCode, sections := range raw {
		code, err := models.ParseStatuteCode(rawCode)
		if err != nil || string(code) != rawCode {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStatuteCode, rawCode)
		}
		copied := make(map[string]string, len(sections))
		for section, text := range sections {
			copied[section] = text
		}
		c.sections[code] = copied
	}
	return c, nil
}

// Decode reads a JSON snapshot of the form {"IPC": {"302": "..."}, "BNS": {...}}
func Decode(r io.Reader) (*Cache, error) {
	var raw map[string]map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	return NewCache(raw)
}

// LoadCache downloads and decodes the snapshot stored under name
func LoadCache(ctx context.Context, store storage.Storage, name string) (*Cache, error) {
	rc, err := store.Download(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("failed to open statute cache snapshot: %w", err)
	}
	defer rc.Close()

	return Decode(rc)
}

// LoadCacheOrEmpty loads the snapshot and falls back to an empty cache on any error.
// A missing or unreadable snapshot is never fatal to startup.
func LoadCacheOrEmpty(ctx context.Context, store storage.Storage, name string) *Cache {
	c, err := LoadCache(ctx, store, name)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			log.Printf("Warning: statute cache not found (%s), starting with empty cache", name)
		} else {
			log.Printf("Warning: failed to load statute cache, starting with empty cache: %v", err)
		}
		return EmptyCache()
	}

	log.Printf("Statute cache loaded: %d IPC sections, %d BNS sections",
		c.Sections(models.StatuteIPC), c.Sections(models.StatuteBNS))
	return c
}

// Lookup returns the cached text for a reference
func (c *Cache) Lookup(ref models.StatuteReference) (string, bool) {
	if c == nil {
		return "", false
	}
	sections, ok := c.sections[ref.Code]
	if !ok {
		return "", false
	}
	text, ok := sections[ref.Section]
	return text, ok
}

// Sections returns the number of cached sections for a statute code
func (c *Cache) Sections(code models.StatuteCode) int {
	if c == nil {
		return 0
	}
	return len(c.sections[code])
}

// Match resolves every reference against the cache and returns one exact-match result
// per hit, in reference order. Misses are skipped.
func (c *Cache) Match(refs []models.StatuteReference) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(refs))
	for _, ref := range refs {
		text, ok := c.Lookup(ref)
		if !ok {
			continue
		}
		results = append(results, models.SearchResult{
			Kind:       models.KindExactMatch,
			Score:      models.ExactMatchScore,
			DocumentID: ref.DocumentID(),
			Text:       text,
			Source:     models.SourceStatuteBook,
		})
	}
	return results
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ChunkMetadata holds free-form metadata attached to a chunk at ingestion time
type ChunkMetadata map[string]interface{}

// Value implements driver.Valuer for JSON columns
func (m ChunkMetadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON columns
func (m *ChunkMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(ChunkMetadata)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}

	if len(bytes) == 0 {
		*m = make(ChunkMetadata)
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Chunk is a bounded span of case-law text stored in the chunk store.
// ID is shared with the vector index: the index returns it and the store is keyed by it.
type Chunk struct {
	ID         int64         `json:"id"`
	DocumentID string        `json:"doc_id"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"meta"`
}

// Neighbor is one nearest-neighbor hit returned by a vector index
type Neighbor struct {
	ID    int64   `json:"id"`
	Score float32 `json:"score"` // inner-product similarity, higher is closer
}

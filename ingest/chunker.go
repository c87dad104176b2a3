package ingest

import (
	"fmt"
	"strings"
)

// Default window sizes, in whitespace-separated tokens
const (
	DefaultMaxTokens = 1000
	DefaultOverlap   = 200
)

// Chunker splits text into overlapping windows of tokens
type Chunker struct {
	MaxTokens int
	Overlap   int
}

// NewChunker validates the window sizes
func NewChunker(maxTokens, overlap int) (*Chunker, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	if overlap < 0 || overlap >= maxTokens {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", maxTokens, overlap)
	}
	return &Chunker{MaxTokens: maxTokens, Overlap: overlap}, nil
}

// Split returns windows starting every MaxTokens-Overlap tokens. A window is
// emitted for every start position, so the last one may lie entirely inside
// the overlap of its predecessor.
func (c *Chunker) Split(text string) []string {
	tokens := strings.Fields(text)
	step := c.MaxTokens - c.Overlap

	var chunks []string
	for i := 0; i < len(tokens); i += step {
		end := i + c.MaxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[i:end], " "))
	}
	return chunks
}

package models

// ResultKind tells how a search result was found
type ResultKind string

const (
	// KindExactMatch results come from the statute cache (CAG layer)
	KindExactMatch ResultKind = "EXACT_MATCH"
	// KindSemantic results come from vector search over case-law chunks (RAG layer)
	KindSemantic ResultKind = "SEMANTIC"
)

const (
	// SourceStatuteBook labels exact statute matches
	SourceStatuteBook = "Statute Book"
	// SourceCaseLaw labels semantic case-law matches
	SourceCaseLaw = "Case Law"

	// ExactMatchScore is reported for every exact statute match.
	// It is not comparable with semantic similarity scores.
	ExactMatchScore = 1.0
)

// SearchResult is a single retrieved passage
type SearchResult struct {
	Kind       ResultKind    `json:"type"`
	Score      float64       `json:"score"`
	DocumentID string        `json:"doc_id"`
	Text       string        `json:"text"`
	Source     string        `json:"source"`
	Metadata   ChunkMetadata `json:"meta,omitempty"`
}

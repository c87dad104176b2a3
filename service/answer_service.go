package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legalrag-backend/models"
)

var (
	ErrLLMNotConfigured = errors.New("LLM service not configured")
	ErrGenerationFailed = errors.New("failed to generate answer")
)

// DefaultAskLimit is how many results are retrieved as context for an answer
const DefaultAskLimit = 10

// Retriever is the search operation the answer service depends on
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

// Generator produces text from a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnswerService answers legal questions from retrieved context
type AnswerService struct {
	retriever Retriever
	generator Generator
	k         int
}

// AnswerServiceOption is a functional option for AnswerService
type AnswerServiceOption func(*AnswerService)

// AnswerWithRetriever sets the retriever
func AnswerWithRetriever(r Retriever) AnswerServiceOption {
	return func(s *AnswerService) {
		s.retriever = r
	}
}

// AnswerWithGenerator sets the text generator. Without one, Ask returns ErrLLMNotConfigured.
func AnswerWithGenerator(g Generator) AnswerServiceOption {
	return func(s *AnswerService) {
		s.generator = g
	}
}

// AnswerWithLimit sets how many results to retrieve per question
func AnswerWithLimit(k int) AnswerServiceOption {
	return func(s *AnswerService) {
		if k > 0 {
			s.k = k
		}
	}
}

// NewAnswerService creates a new answer service
func NewAnswerService(opts ...AnswerServiceOption) *AnswerService {
	s := &AnswerService{k: DefaultAskLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a generator is configured
func (s *AnswerService) Available() bool {
	return s.generator != nil && s.retriever != nil
}

// Ask retrieves context for the query and asks the LLM to answer from it
func (s *AnswerService) Ask(ctx context.Context, query string) (*models.Answer, error) {
	if !s.Available() {
		return nil, ErrLLMNotConfigured
	}

	docs, err := s.retriever.Search(ctx, query, s.k)
	if err != nil {
		return nil, err
	}

	citations := make([]string, 0, len(docs))
	for _, d := range docs {
		citations = append(citations, d.DocumentID)
	}

	text, err := s.generator.Generate(ctx, BuildPrompt(query, docs))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	return &models.Answer{
		Answer:      text,
		Citations:   citations,
		ContextUsed: len(docs),
	}, nil
}

// BuildPrompt formats retrieved results and the question into a grounded prompt
func BuildPrompt(query string, docs []models.SearchResult) string {
	var b strings.Builder

	b.WriteString("You are an Indian legal research assistant. Answer the question using only the references below.\n")
	b.WriteString("Cite every statement with its [DOCUMENT ID]. If the references do not cover the question, say so.\n\n")

	b.WriteString("REFERENCES\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "\nREFERENCE #%d\n", i+1)
		fmt.Fprintf(&b, "DOCUMENT ID: %s\n", d.DocumentID)
		fmt.Fprintf(&b, "SOURCE TYPE: %s\n", d.Source)
		fmt.Fprintf(&b, "RELEVANCE: %s (Score: %.4f)\n", d.Kind, d.Score)
		b.WriteString("CONTENT:\n")
		b.WriteString(d.Text)
		b.WriteString("\n")
	}

	b.WriteString("\nQUESTION\n")
	b.WriteString(query)
	b.WriteString("\n")

	return b.String()
}

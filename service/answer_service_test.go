package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/models"
)

type fakeRetriever struct {
	searchFunc func(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

func (f *fakeRetriever) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	return f.searchFunc(ctx, query, k)
}

type fakeGenerator struct {
	prompt string
	answer string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func sampleResults() []models.SearchResult {
	return []models.SearchResult{
		{Kind: models.KindExactMatch, Score: 1.0, DocumentID: "IPC Section 302", Text: "Whoever commits murder...", Source: models.SourceStatuteBook},
		{Kind: models.KindSemantic, Score: 0.82, DocumentID: "Bachan_Singh_v_State_of_Punjab", Text: "rarest of rare cases", Source: models.SourceCaseLaw},
	}
}

func TestAsk_BuildsAnswerWithCitations(t *testing.T) {
	var gotK int
	retriever := &fakeRetriever{searchFunc: func(_ context.Context, _ string, k int) ([]models.SearchResult, error) {
		gotK = k
		return sampleResults(), nil
	}}
	generator := &fakeGenerator{answer: "Murder is punishable with death or life imprisonment [DOCUMENT ID: IPC Section 302]."}

	s := NewAnswerService(AnswerWithRetriever(retriever), AnswerWithGenerator(generator))
	answer, err := s.Ask(context.Background(), "What is the punishment under Section 302 IPC?")
	require.NoError(t, err)

	assert.Equal(t, DefaultAskLimit, gotK)
	assert.Equal(t, generator.answer, answer.Answer)
	assert.Equal(t, []string{"IPC Section 302", "Bachan_Singh_v_State_of_Punjab"}, answer.Citations)
	assert.Equal(t, 2, answer.ContextUsed)

	assert.Contains(t, generator.prompt, "DOCUMENT ID: IPC Section 302")
	assert.Contains(t, generator.prompt, "SOURCE TYPE: Case Law")
	assert.Contains(t, generator.prompt, "RELEVANCE: EXACT_MATCH (Score: 1.0000)")
	assert.Contains(t, generator.prompt, "What is the punishment under Section 302 IPC?")
}

func TestAsk_CustomLimit(t *testing.T) {
	var gotK int
	retriever := &fakeRetriever{searchFunc: func(_ context.Context, _ string, k int) ([]models.SearchResult, error) {
		gotK = k
		return nil, nil
	}}

	s := NewAnswerService(
		AnswerWithRetriever(retriever),
		AnswerWithGenerator(&fakeGenerator{answer: "no information"}),
		AnswerWithLimit(4),
	)
	answer, err := s.Ask(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, 4, gotK)
	assert.Empty(t, answer.Citations)
	assert.Equal(t, 0, answer.ContextUsed)
}

func TestAsk_Errors(t *testing.T) {
	ok := &fakeRetriever{searchFunc: func(context.Context, string, int) ([]models.SearchResult, error) {
		return sampleResults(), nil
	}}

	t.Run("no generator", func(t *testing.T) {
		s := NewAnswerService(AnswerWithRetriever(ok))
		assert.False(t, s.Available())

		_, err := s.Ask(context.Background(), "q")
		assert.ErrorIs(t, err, ErrLLMNotConfigured)
	})

	t.Run("retrieval error passes through", func(t *testing.T) {
		failing := &fakeRetriever{searchFunc: func(context.Context, string, int) ([]models.SearchResult, error) {
			return nil, ErrEmptyQuery
		}}
		s := NewAnswerService(AnswerWithRetriever(failing), AnswerWithGenerator(&fakeGenerator{}))

		_, err := s.Ask(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("generation error", func(t *testing.T) {
		genErr := errors.New("quota exceeded")
		s := NewAnswerService(AnswerWithRetriever(ok), AnswerWithGenerator(&fakeGenerator{err: genErr}))

		_, err := s.Ask(context.Background(), "q")
		assert.ErrorIs(t, err, ErrGenerationFailed)
		assert.ErrorIs(t, err, genErr)
	})
}

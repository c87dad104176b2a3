package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// Generation settings for grounded legal answers
const (
	DefaultGenerationModel = "gemini-2.5-flash"
	generationTemperature  = 0.3
	generationTopP         = 0.95
	generationTopK         = 40
	generationMaxTokens    = 8192
)

// GeminiGenerator generates answers with a Gemini model
type GeminiGenerator struct {
	model *genai.GenerativeModel
}

// NewGeminiGenerator configures a model on an existing Gemini client
func NewGeminiGenerator(client *genai.Client, modelName string) *GeminiGenerator {
	if modelName == "" {
		modelName = DefaultGenerationModel
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(generationTemperature)
	model.SetTopP(generationTopP)
	model.SetTopK(generationTopK)
	model.SetMaxOutputTokens(generationMaxTokens)

	return &GeminiGenerator{model: model}
}

// Generate sends the prompt and concatenates the text parts of all candidates
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("API blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("API returned no candidates")
	}

	var responseText strings.Builder
	for i, candidate := range resp.Candidates {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			log.Printf("Warning: Candidate %d finished with reason: %s", i, candidate.FinishReason)
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				responseText.WriteString(string(text))
			}
		}
	}

	result := responseText.String()
	if result == "" {
		return "", errors.New("API returned empty content")
	}

	return result, nil
}

package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel      = "models/gemini-embedding-001"
	DefaultDimensions = 768

	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"

	maxRetries     = 3
	initialBackoff = time.Second
)

// EmbeddingRequest represents an embedding API request
type EmbeddingRequest struct {
	Model                string       `json:"model"`
	Content              ContentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

// ContentInput represents content for embedding
type ContentInput struct {
	Parts []PartInput `json:"parts"`
}

// PartInput represents a part of content
type PartInput struct {
	Text string `json:"text"`
}

// EmbeddingResponse represents an embedding API response
type EmbeddingResponse struct {
	Embedding EmbeddingData `json:"embedding"`
}

// EmbeddingData contains the embedding values
type EmbeddingData struct {
	Values []float64 `json:"values"`
}

// GeminiEmbedder calls the Gemini embedContent REST endpoint
type GeminiEmbedder struct {
	apiKey     string
	baseURL    string
	model      string
	taskType   string
	dimensions int
	backoff    time.Duration
	client     *http.Client
	limiter    *rate.Limiter
}

// GeminiOption configures a GeminiEmbedder
type GeminiOption func(*GeminiEmbedder)

// WithBaseURL sets the API base URL (for testing)
func WithBaseURL(url string) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel sets the embedding model, e.g. "models/gemini-embedding-001"
func WithModel(model string) GeminiOption {
	return func(e *GeminiEmbedder) {
		if !strings.HasPrefix(model, "models/") {
			model = "models/" + model
		}
		e.model = model
	}
}

// WithDimensions sets the requested output dimensionality
func WithDimensions(dims int) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.dimensions = dims
	}
}

// WithTaskType sets the task type; queries and documents use different ones
func WithTaskType(taskType string) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.taskType = taskType
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.client = hc
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) GeminiOption {
	return func(e *GeminiEmbedder) {
		if perSecond <= 0 {
			e.limiter = nil
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithBackoff sets the initial retry backoff
func WithBackoff(d time.Duration) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.backoff = d
	}
}

// NewGeminiEmbedder creates an embedder for the Gemini API
func NewGeminiEmbedder(apiKey string, opts ...GeminiOption) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, ErrMissingCredentials
	}

	e := &GeminiEmbedder{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		taskType:   TaskRetrievalQuery,
		dimensions: DefaultDimensions,
		backoff:    initialBackoff,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Dimension returns the vector length produced by this embedder
func (e *GeminiEmbedder) Dimension() int {
	return e.dimensions
}

// Embed generates a unit-length embedding for text.
// Transient failures are retried with exponential backoff; 400 and 401 are not retried.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	reqBody := EmbeddingRequest{
		Model: e.model,
		Content: ContentInput{
			Parts: []PartInput{{Text: text}},
		},
		TaskType:             e.taskType,
		OutputDimensionality: e.dimensions,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:embedContent", e.baseURL, e.model)
	backoff := e.backoff
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		values, retry, err := e.call(ctx, url, jsonData)
		if err == nil {
			if len(values) != e.dimensions {
				return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(values), e.dimensions)
			}
			Normalize(values)
			return toFloat32(values), nil
		}

		lastErr = err
		if !retry || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrEmbeddingFailed, maxRetries, lastErr)
}

// call performs one request. The boolean reports whether the failure is retryable.
func (e *GeminiEmbedder) call(ctx context.Context, url string, body []byte) ([]float64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := fmt.Errorf("API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		// Don't retry on 400 or 401 errors
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, false, apiErr
		}
		return nil, true, apiErr
	}

	var apiResp EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, true, fmt.Errorf("failed to decode response: %w", err)
	}

	return apiResp.Embedding.Values, false, nil
}

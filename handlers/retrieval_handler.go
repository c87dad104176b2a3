package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"legalrag-backend/models"
	"legalrag-backend/service"

	"github.com/gin-gonic/gin"
)

// Retriever is the search dependency of the HTTP layer
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
	Ready() bool
}

// Answerer is the question-answering dependency of the HTTP layer
type Answerer interface {
	Ask(ctx context.Context, query string) (*models.Answer, error)
}

// RetrievalHandler handles HTTP requests for retrieval and answers
type RetrievalHandler struct {
	retriever Retriever
	answerer  Answerer
	defaultK  int
}

// NewRetrievalHandler creates a new retrieval handler
func NewRetrievalHandler(retriever Retriever, answerer Answerer, defaultK int) *RetrievalHandler {
	if defaultK <= 0 {
		defaultK = 5
	}
	return &RetrievalHandler{
		retriever: retriever,
		answerer:  answerer,
		defaultK:  defaultK,
	}
}

// RegisterRoutes mounts the handler's endpoints on r
func (h *RetrievalHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.POST("/retrieve", h.Retrieve)
	r.POST("/ask", h.Ask)
}

// RetrieveRequest represents the request body for a search
type RetrieveRequest struct {
	Query string `json:"query" binding:"required"`
	K     *int   `json:"k"`
}

// RetrieveResponse is the data payload of a search
type RetrieveResponse struct {
	LatencyMS float64               `json:"latency_ms"`
	Results   []models.SearchResult `json:"results"`
}

// AskRequest represents the request body for a question
type AskRequest struct {
	Query string `json:"query" binding:"required"`
}

// Health handles GET /health
func (h *RetrievalHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": h.retriever != nil && h.retriever.Ready(),
	})
}

// Retrieve handles POST /retrieve
func (h *RetrievalHandler) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	k := h.defaultK
	if req.K != nil {
		k = *req.K
	}

	start := time.Now()
	results, err := h.retriever.Search(c.Request.Context(), req.Query, k)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": RetrieveResponse{
			LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
			Results:   results,
		},
	})
}

// Ask handles POST /ask
func (h *RetrievalHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if h.answerer == nil {
		respondError(c, http.StatusServiceUnavailable, "LLM_UNAVAILABLE", service.ErrLLMNotConfigured.Error())
		return
	}

	answer, err := h.answerer.Ask(c.Request.Context(), req.Query)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    answer,
	})
}

// respondServiceError maps service errors onto status codes and error codes
func (h *RetrievalHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyQuery), errors.Is(err, service.ErrInvalidLimit):
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
	case errors.Is(err, service.ErrLLMNotConfigured):
		respondError(c, http.StatusServiceUnavailable, "LLM_UNAVAILABLE", err.Error())
	case errors.Is(err, service.ErrNotConfigured):
		respondError(c, http.StatusServiceUnavailable, "RETRIEVAL_FAILED", err.Error())
	case errors.Is(err, service.ErrGenerationFailed):
		log.Printf("Answer generation failed: %v", err)
		respondError(c, http.StatusInternalServerError, "GENERATION_FAILED", err.Error())
	default:
		log.Printf("Retrieval failed: %v", err)
		respondError(c, http.StatusInternalServerError, "RETRIEVAL_FAILED", err.Error())
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

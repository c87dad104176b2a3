package models

// Answer is the synthesized response of the ask endpoint
type Answer struct {
	Answer      string   `json:"answer"`
	Citations   []string `json:"citations"`
	ContextUsed int      `json:"context_used"`
}

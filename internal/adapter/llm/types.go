package llm

import "github.com/bkyoung/eyeris/internal/domain"

// Response is the standardized result from any vision backend. Both
// provider clients (openai, ollama) return this type, so the orchestrator
// never sees backend-specific response schemas.
type Response struct {
	// Text is the analysis produced by the model.
	Text string
	// Usage is the backend-reported token accounting, zero-filled when the
	// backend reports nothing (ollama's generate API does not).
	Usage domain.TokenUsage
	// Model is the model name the backend says it served, when reported.
	Model string
}

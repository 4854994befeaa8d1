package domain

import "sync/atomic"

// TokenUsage captures the token accounting reported by a provider for a
// single request. Backends that do not report usage leave all fields zero.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// IsZero reports whether the backend reported no usage at all.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// Analysis is the final output of processing one image.
type Analysis struct {
	Text  string     `json:"analysis"`
	Usage TokenUsage `json:"token_usage"`
}

// TokenStats accumulates token usage across every request served by the
// process. It is the only shared mutable state in the pipeline; increments
// use atomics so concurrent requests never lose updates.
type TokenStats struct {
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	totalTokens      atomic.Int64
}

// NewTokenStats returns an empty counter set.
func NewTokenStats() *TokenStats {
	return &TokenStats{}
}

// Add folds one request's usage into the cumulative counters.
func (s *TokenStats) Add(usage TokenUsage) {
	s.promptTokens.Add(int64(usage.PromptTokens))
	s.completionTokens.Add(int64(usage.CompletionTokens))
	s.totalTokens.Add(int64(usage.TotalTokens))
}

// Snapshot returns a point-in-time copy of the counters.
func (s *TokenStats) Snapshot() TokenUsage {
	return TokenUsage{
		PromptTokens:     int(s.promptTokens.Load()),
		CompletionTokens: int(s.completionTokens.Load()),
		TotalTokens:      int(s.totalTokens.Load()),
	}
}

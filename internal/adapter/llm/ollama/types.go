package ollama

// GenerateRequest is the request body for Ollama's Generate API. Images
// are plain base64 strings, no data-URI prefix.
type GenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
}

// GenerateChunk is one newline-delimited partial response. Ollama streams
// these even over a single HTTP response body.
type GenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done,omitempty"`
}

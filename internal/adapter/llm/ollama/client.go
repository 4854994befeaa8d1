package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	imageadapter "github.com/bkyoung/eyeris/internal/adapter/image"
	"github.com/bkyoung/eyeris/internal/adapter/llm"
	llmhttp "github.com/bkyoung/eyeris/internal/adapter/llm/http"
)

const (
	providerName = "ollama"

	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "moondream"
	defaultTimeout = 120 * time.Second // Local models can be slower
)

// Client is an HTTP client for a local Ollama instance's Generate API.
// It is immutable after construction and safe for concurrent use.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	logger  llmhttp.Logger
}

// NewClient creates a new Ollama client. Empty arguments fall back to the
// local default endpoint and model.
func NewClient(baseURL, model string, logger llmhttp.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// Analyze sends the transcoded image and instruction text to the local
// model and concatenates its streamed partial responses.
//
// Ollama emits one JSON object per line even over a single response body.
// Every successfully parsed chunk's text is appended in arrival order;
// unparseable lines are skipped, not fatal. Token usage is not available
// from this API, so the returned usage is zero-filled.
func (c *Client) Analyze(ctx context.Context, img *imageadapter.Transcoded, prompt string) (llm.Response, error) {
	start := time.Now()

	reqBody := GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(img.Data)},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Response{}, llmhttp.NewTransportError(providerName, "marshal request: "+err.Error())
	}

	url := c.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return llm.Response{}, llmhttp.NewTransportError(providerName, "create request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:    providerName,
			Model:       c.model,
			Timestamp:   start,
			PromptChars: len(prompt),
			ImageBytes:  len(img.Data),
		})
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var callErr *llmhttp.Error
		if ctx.Err() == context.DeadlineExceeded {
			callErr = llmhttp.NewTimeoutError(providerName, "request timed out")
		} else if strings.Contains(err.Error(), "connection refused") {
			callErr = llmhttp.NewTransportError(providerName, "Ollama server not reachable. Is Ollama running? Try: ollama serve. Error: "+err.Error())
		} else {
			callErr = llmhttp.NewTransportError(providerName, err.Error())
		}
		c.logError(ctx, callErr, start)
		return llm.Response{}, callErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		rejErr := llmhttp.NewRequestRejectedError(providerName, resp.StatusCode, string(body))
		c.logError(ctx, rejErr, start)
		return llm.Response{}, rejErr
	}

	text, err := collectChunks(resp.Body)
	if err != nil {
		transportErr := llmhttp.NewTransportError(providerName, "read response: "+err.Error())
		c.logError(ctx, transportErr, start)
		return llm.Response{}, transportErr
	}

	if text == "" {
		emptyErr := llmhttp.NewEmptyResponseError(providerName)
		c.logError(ctx, emptyErr, start)
		return llm.Response{}, emptyErr
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:   providerName,
			Model:      c.model,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
			StatusCode: resp.StatusCode,
		})
	}

	return llm.Response{Text: text, Model: c.model}, nil
}

// collectChunks concatenates the text of every parseable NDJSON line in
// arrival order. Lines that fail to parse are skipped.
func collectChunks(body io.Reader) (string, error) {
	var sb strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk GenerateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		sb.WriteString(chunk.Response)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	return sb.String(), nil
}

func (c *Client) logError(ctx context.Context, err *llmhttp.Error, start time.Time) {
	if c.logger == nil {
		return
	}
	c.logger.LogError(ctx, llmhttp.ErrorLog{
		Provider:   providerName,
		Model:      c.model,
		Timestamp:  time.Now(),
		Duration:   time.Since(start),
		Error:      err,
		ErrorType:  err.Type,
		StatusCode: err.StatusCode,
		Retryable:  err.Retryable,
	})
}

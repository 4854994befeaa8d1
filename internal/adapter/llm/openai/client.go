package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	imageadapter "github.com/bkyoung/eyeris/internal/adapter/image"
	"github.com/bkyoung/eyeris/internal/adapter/llm"
	llmhttp "github.com/bkyoung/eyeris/internal/adapter/llm/http"
	"github.com/bkyoung/eyeris/internal/domain"
)

const (
	providerName = "openai"

	defaultBaseURL   = "https://api.openai.com"
	defaultModel     = "gpt-4o-mini"
	defaultAPIKeyEnv = "OPENAI_API_KEY"
	defaultTimeout   = 60 * time.Second

	systemInstruction = "You are an image analysis assistant. Follow the user's output format instructions exactly."

	temperature = 0.2
	maxTokens   = 1000
)

// Client is an HTTP client for a hosted chat-completions-style vision API.
// Immutable after construction except for the injected TokenStats, which
// only ever receives atomic adds.
type Client struct {
	baseURL   string
	model     string
	apiKeyEnv string
	client    *http.Client
	logger    llmhttp.Logger
	stats     *domain.TokenStats
}

// NewClient creates a new hosted backend client. The credential is NOT
// read here: it is lazily bound per request from the environment, so a
// missing key surfaces as a per-request configuration error rather than a
// startup failure. stats may be nil when cumulative accounting is not
// wanted.
func NewClient(model string, stats *domain.TokenStats, logger llmhttp.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL:   defaultBaseURL,
		model:     model,
		apiKeyEnv: defaultAPIKeyEnv,
		client:    &http.Client{Timeout: defaultTimeout},
		logger:    logger,
		stats:     stats,
	}
}

// SetBaseURL sets a custom base URL (for testing or proxies).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimSuffix(url, "/")
}

// SetAPIKeyEnv overrides the environment variable holding the credential.
func (c *Client) SetAPIKeyEnv(name string) {
	if name != "" {
		c.apiKeyEnv = name
	}
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// Analyze sends the transcoded image and instruction text to the hosted
// backend and returns the first candidate's text plus reported usage.
// Reported usage is additionally folded into the shared TokenStats.
func (c *Client) Analyze(ctx context.Context, img *imageadapter.Transcoded, prompt string) (llm.Response, error) {
	start := time.Now()

	apiKey := os.Getenv(c.apiKeyEnv)
	if apiKey == "" {
		return llm.Response{}, llmhttp.NewMissingCredentialError(providerName,
			fmt.Sprintf("%s is not set", c.apiKeyEnv))
	}

	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img.Data)

	reqBody := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: []ContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &ImageURL{URL: dataURI}},
			}},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Response{}, llmhttp.NewTransportError(providerName, "marshal request: "+err.Error())
	}

	url := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return llm.Response{}, llmhttp.NewTransportError(providerName, "create request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:    providerName,
			Model:       c.model,
			Timestamp:   start,
			PromptChars: len(prompt),
			ImageBytes:  len(img.Data),
			APIKey:      apiKey,
		})
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var callErr *llmhttp.Error
		if ctx.Err() == context.DeadlineExceeded {
			callErr = llmhttp.NewTimeoutError(providerName, "request timed out")
		} else {
			callErr = llmhttp.NewTransportError(providerName, err.Error())
		}
		c.logError(ctx, callErr, start)
		return llm.Response{}, callErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		readErr := llmhttp.NewTransportError(providerName, "read response: "+err.Error())
		c.logError(ctx, readErr, start)
		return llm.Response{}, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rejErr := llmhttp.NewRequestRejectedError(providerName, resp.StatusCode, string(body))
		c.logError(ctx, rejErr, start)
		return llm.Response{}, rejErr
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		malformedErr := llmhttp.NewMalformedResponseError(providerName,
			"parse response: "+err.Error(), string(body))
		c.logError(ctx, malformedErr, start)
		return llm.Response{}, malformedErr
	}

	if len(chatResp.Choices) == 0 {
		malformedErr := llmhttp.NewMalformedResponseError(providerName,
			"no choices in response", string(body))
		c.logError(ctx, malformedErr, start)
		return llm.Response{}, malformedErr
	}

	usage := mapUsage(chatResp.Usage)
	if c.stats != nil && !usage.IsZero() {
		c.stats.Add(usage)
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:   providerName,
			Model:      chatResp.Model,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
			TokensIn:   usage.PromptTokens,
			TokensOut:  usage.CompletionTokens,
			StatusCode: resp.StatusCode,
		})
	}

	model := chatResp.Model
	if model == "" {
		model = c.model
	}

	return llm.Response{
		Text:  chatResp.Choices[0].Message.Content,
		Usage: usage,
		Model: model,
	}, nil
}

// mapUsage converts the wire usage block into the domain type,
// zero-filling when the backend reported nothing.
func mapUsage(u *Usage) domain.TokenUsage {
	if u == nil {
		return domain.TokenUsage{}
	}
	return domain.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
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

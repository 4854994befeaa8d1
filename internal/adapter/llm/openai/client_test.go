package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	imageadapter "github.com/bkyoung/eyeris/internal/adapter/image"
	llmhttp "github.com/bkyoung/eyeris/internal/adapter/llm/http"
	"github.com/bkyoung/eyeris/internal/adapter/llm/openai"
	"github.com/bkyoung/eyeris/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyEnv = "EYERIS_TEST_OPENAI_KEY"

func testImage() *imageadapter.Transcoded {
	return &imageadapter.Transcoded{
		Data:          []byte("jpeg-payload"),
		OriginalBytes: 2048,
		Width:         200,
		Height:        100,
	}
}

func newTestClient(t *testing.T, serverURL string, stats *domain.TokenStats) *openai.Client {
	t.Helper()
	t.Setenv(testKeyEnv, "sk-test-key-1234")

	client := openai.NewClient("gpt-4o-mini", stats, nil)
	client.SetBaseURL(serverURL)
	client.SetAPIKeyEnv(testKeyEnv)
	return client
}

func successResponse(promptTokens, completionTokens int) openai.ChatCompletionResponse {
	resp := openai.ChatCompletionResponse{
		Model: "gpt-4o-mini",
		Usage: &openai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
	var choice openai.Choice
	choice.Message.Content = "a cat on a sofa"
	choice.FinishReason = "stop"
	resp.Choices = []openai.Choice{choice}
	return resp
}

func TestAnalyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test-key-1234", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, 1000, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		// The user message must carry the prompt text plus a
		// data-URI-embedded image.
		parts, ok := req.Messages[1].Content.([]interface{})
		require.True(t, ok)
		require.Len(t, parts, 2)
		imagePart := parts[1].(map[string]interface{})
		imageURL := imagePart["image_url"].(map[string]interface{})
		assert.True(t, strings.HasPrefix(imageURL["url"].(string), "data:image/jpeg;base64,"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(successResponse(100, 50))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	resp, err := client.Analyze(context.Background(), testImage(), "what is in this image?")

	require.NoError(t, err)
	assert.Equal(t, "a cat on a sofa", resp.Text)
	assert.Equal(t, 100, resp.Usage.PromptTokens)
	assert.Equal(t, 50, resp.Usage.CompletionTokens)
	assert.Equal(t, 150, resp.Usage.TotalTokens)
}

func TestAnalyze_MissingCredential(t *testing.T) {
	client := openai.NewClient("gpt-4o-mini", nil, nil)
	client.SetAPIKeyEnv("EYERIS_TEST_KEY_THAT_IS_NOT_SET")

	_, err := client.Analyze(context.Background(), testImage(), "prompt")

	var provErr *llmhttp.Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, llmhttp.ErrTypeMissingCredential, provErr.Type)
	assert.Contains(t, provErr.Message, "EYERIS_TEST_KEY_THAT_IS_NOT_SET")
}

func TestAnalyze_RequestRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	_, err := client.Analyze(context.Background(), testImage(), "prompt")

	var provErr *llmhttp.Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, llmhttp.ErrTypeRequestRejected, provErr.Type)
	assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)
	assert.Contains(t, provErr.Body, "Incorrect API key")
}

func TestAnalyze_MalformedResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>definitely not the JSON you wanted</html>`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	_, err := client.Analyze(context.Background(), testImage(), "prompt")

	var provErr *llmhttp.Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, llmhttp.ErrTypeMalformedResponse, provErr.Type)
	assert.Contains(t, provErr.Body, "<html>", "the raw body must be kept for diagnosis")
}

func TestAnalyze_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"gpt-4o-mini","choices":[]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	_, err := client.Analyze(context.Background(), testImage(), "prompt")

	var provErr *llmhttp.Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, llmhttp.ErrTypeMalformedResponse, provErr.Type)
	assert.Contains(t, provErr.Message, "no choices")
}

func TestAnalyze_NoUsageBlockZeroFilled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"gpt-4o-mini","choices":[{"message":{"content":"text"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	stats := domain.NewTokenStats()
	client := newTestClient(t, server.URL, stats)

	resp, err := client.Analyze(context.Background(), testImage(), "prompt")

	require.NoError(t, err)
	assert.True(t, resp.Usage.IsZero())
	assert.True(t, stats.Snapshot().IsZero(), "no reported usage means no stats contribution")
}

func TestAnalyze_UsageFoldedIntoStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(successResponse(10, 5))
	}))
	defer server.Close()

	stats := domain.NewTokenStats()
	client := newTestClient(t, server.URL, stats)

	const requests = 4
	for i := 0; i < requests; i++ {
		_, err := client.Analyze(context.Background(), testImage(), "prompt")
		require.NoError(t, err)
	}

	snapshot := stats.Snapshot()
	assert.Equal(t, 10*requests, snapshot.PromptTokens)
	assert.Equal(t, 5*requests, snapshot.CompletionTokens)
	assert.Equal(t, 15*requests, snapshot.TotalTokens, "cumulative stats must equal the component-wise sum of all usage records")
}

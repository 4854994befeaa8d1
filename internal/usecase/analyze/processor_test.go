package analyze_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	imageadapter "github.com/bkyoung/eyeris/internal/adapter/image"
	"github.com/bkyoung/eyeris/internal/adapter/llm"
	"github.com/bkyoung/eyeris/internal/domain"
	"github.com/bkyoung/eyeris/internal/prompt"
	"github.com/bkyoung/eyeris/internal/usecase/analyze"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranscoder struct {
	transcodeErr error
	thumbErr     error
	thumbDelay   time.Duration

	transcodeCalls atomic.Int64
	thumbCalls     atomic.Int64
}

func (s *stubTranscoder) Transcode(raw []byte) (*imageadapter.Transcoded, error) {
	s.transcodeCalls.Add(1)
	if s.transcodeErr != nil {
		return nil, s.transcodeErr
	}
	return &imageadapter.Transcoded{
		Data:          []byte("encoded"),
		OriginalBytes: len(raw),
		Width:         100,
		Height:        60,
	}, nil
}

func (s *stubTranscoder) Thumbnail(raw []byte) ([]byte, error) {
	s.thumbCalls.Add(1)
	if s.thumbDelay > 0 {
		time.Sleep(s.thumbDelay)
	}
	if s.thumbErr != nil {
		return nil, s.thumbErr
	}
	return []byte("thumb"), nil
}

type stubProvider struct {
	response llm.Response
	err      error
	stats    *domain.TokenStats

	calls atomic.Int64
}

func (s *stubProvider) Analyze(ctx context.Context, img *imageadapter.Transcoded, instructions string) (llm.Response, error) {
	s.calls.Add(1)
	if s.err != nil {
		return llm.Response{}, s.err
	}
	// Hosted backends fold reported usage into the shared counter.
	if s.stats != nil && !s.response.Usage.IsZero() {
		s.stats.Add(s.response.Usage)
	}
	return s.response, nil
}

func newProcessor(t *testing.T, transcoder *stubTranscoder, provider *stubProvider, stats *domain.TokenStats, opts analyze.Options) *analyze.Processor {
	t.Helper()
	return analyze.NewProcessor(transcoder, prompt.NewBuilder(), provider, stats, nil, opts)
}

func TestProcess_HappyPath(t *testing.T) {
	transcoder := &stubTranscoder{}
	provider := &stubProvider{response: llm.Response{
		Text:  "a bowl of fruit",
		Usage: domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}

	processor := newProcessor(t, transcoder, provider, nil, analyze.Options{})

	result, err := processor.Process(context.Background(), []byte("raw-image"), prompt.Spec{Format: prompt.FormatConcise})

	require.NoError(t, err)
	assert.Equal(t, "a bowl of fruit", result.Text)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Equal(t, int64(1), transcoder.transcodeCalls.Load())
	assert.Equal(t, int64(1), provider.calls.Load())
	assert.Equal(t, int64(0), transcoder.thumbCalls.Load(), "thumbnails are off by default")
}

func TestProcess_TranscodeFailureIsFatal(t *testing.T) {
	imgErr := &imageadapter.Error{Kind: imageadapter.ErrUnrecognized, OriginalBytes: 3}
	transcoder := &stubTranscoder{transcodeErr: imgErr}
	provider := &stubProvider{}

	processor := newProcessor(t, transcoder, provider, nil, analyze.Options{Thumbnails: true})

	_, err := processor.Process(context.Background(), []byte("abc"), prompt.Spec{Format: prompt.FormatConcise})

	require.Error(t, err)
	var unwrapped *imageadapter.Error
	assert.ErrorAs(t, err, &unwrapped, "the image error must stay inspectable through wrapping")
	assert.Equal(t, int64(0), provider.calls.Load(), "the provider must not be called after a transcode failure")
	assert.Equal(t, int64(0), transcoder.thumbCalls.Load())
}

func TestProcess_InvalidPromptSpecIsFatal(t *testing.T) {
	transcoder := &stubTranscoder{}
	provider := &stubProvider{}

	processor := newProcessor(t, transcoder, provider, nil, analyze.Options{})

	_, err := processor.Process(context.Background(), []byte("raw"), prompt.Spec{Format: "nonsense"})

	require.Error(t, err)
	assert.Equal(t, int64(0), provider.calls.Load())
}

func TestProcess_ProviderFailurePropagates(t *testing.T) {
	transcoder := &stubTranscoder{}
	provider := &stubProvider{err: errors.New("upstream exploded")}

	processor := newProcessor(t, transcoder, provider, nil, analyze.Options{})

	_, err := processor.Process(context.Background(), []byte("raw"), prompt.Spec{Format: prompt.FormatConcise})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.Equal(t, int64(1), provider.calls.Load(), "a provider failure is reported upward exactly once, no retries")
}

func TestProcess_ThumbnailFailureNeverFailsRequest(t *testing.T) {
	transcoder := &stubTranscoder{thumbErr: errors.New("thumbnail exploded")}
	provider := &stubProvider{response: llm.Response{Text: "still fine"}}

	processor := newProcessor(t, transcoder, provider, nil, analyze.Options{Thumbnails: true})

	result, err := processor.Process(context.Background(), []byte("raw"), prompt.Spec{Format: prompt.FormatConcise})

	require.NoError(t, err, "thumbnail errors must be swallowed")
	assert.Equal(t, "still fine", result.Text)
	assert.Equal(t, int64(1), transcoder.thumbCalls.Load())
}

func TestProcess_ThumbnailDeliveredToSink(t *testing.T) {
	transcoder := &stubTranscoder{}
	provider := &stubProvider{response: llm.Response{Text: "ok"}}

	var mu sync.Mutex
	var delivered [][]byte
	processor := newProcessor(t, transcoder, provider, nil, analyze.Options{
		Thumbnails: true,
		ThumbnailSink: func(data []byte) {
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, data)
		},
	})

	_, err := processor.Process(context.Background(), []byte("raw"), prompt.Spec{Format: prompt.FormatConcise})

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
	assert.Equal(t, []byte("thumb"), delivered[0])
}

func TestProcess_ThumbnailRunsAlongsideSlowProvider(t *testing.T) {
	// The thumbnail must finish even when the analysis path is slower:
	// Process joins both before returning.
	transcoder := &stubTranscoder{thumbDelay: 30 * time.Millisecond}
	provider := &stubProvider{response: llm.Response{Text: "ok"}}

	processor := newProcessor(t, transcoder, provider, nil, analyze.Options{Thumbnails: true, CPUWorkers: 4})

	_, err := processor.Process(context.Background(), []byte("raw"), prompt.Spec{Format: prompt.FormatConcise})

	require.NoError(t, err)
	assert.Equal(t, int64(1), transcoder.thumbCalls.Load())
}

func TestProcess_ConcurrentRequestsLoseNoTokenIncrements(t *testing.T) {
	stats := domain.NewTokenStats()
	transcoder := &stubTranscoder{}
	provider := &stubProvider{
		stats: stats,
		response: llm.Response{
			Text:  "ok",
			Usage: domain.TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
		},
	}

	processor := newProcessor(t, transcoder, provider, stats, analyze.Options{CPUWorkers: 4})

	const requests = 40
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := processor.Process(context.Background(), []byte("raw"), prompt.Spec{Format: prompt.FormatConcise})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snapshot := processor.Stats()
	assert.Equal(t, 7*requests, snapshot.PromptTokens)
	assert.Equal(t, 3*requests, snapshot.CompletionTokens)
	assert.Equal(t, 10*requests, snapshot.TotalTokens, "interleaved completions must never lose an increment")
}

func TestProcess_SequentialUsageAccumulates(t *testing.T) {
	stats := domain.NewTokenStats()
	transcoder := &stubTranscoder{}
	provider := &stubProvider{
		stats: stats,
		response: llm.Response{
			Text:  "ok",
			Usage: domain.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		},
	}

	processor := newProcessor(t, transcoder, provider, stats, analyze.Options{})

	for i := 1; i <= 3; i++ {
		_, err := processor.Process(context.Background(), []byte("raw"), prompt.Spec{Format: prompt.FormatConcise})
		require.NoError(t, err)
		assert.Equal(t, 120*i, processor.Stats().TotalTokens)
	}
}

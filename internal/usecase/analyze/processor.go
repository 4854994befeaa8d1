package analyze

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	imageadapter "github.com/bkyoung/eyeris/internal/adapter/image"
	"github.com/bkyoung/eyeris/internal/adapter/llm"
	"github.com/bkyoung/eyeris/internal/domain"
	"github.com/bkyoung/eyeris/internal/prompt"
)

// Provider is the outbound port for vision backends. One implementation
// exists per backend; the processor binds exactly one at construction.
type Provider interface {
	Analyze(ctx context.Context, img *imageadapter.Transcoded, prompt string) (llm.Response, error)
}

// Transcoder is the outbound port for image preparation.
type Transcoder interface {
	Transcode(raw []byte) (*imageadapter.Transcoded, error)
	Thumbnail(raw []byte) ([]byte, error)
}

// PromptBuilder constructs backend-agnostic instruction text.
type PromptBuilder interface {
	Build(spec prompt.Spec) (string, error)
}

// Logger is the structured logging port for the processor.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Options tunes the processor.
type Options struct {
	// Thumbnails enables the best-effort thumbnail side path.
	Thumbnails bool

	// ThumbnailSink, when set, receives each generated thumbnail. A nil
	// sink discards thumbnails after generation.
	ThumbnailSink func(data []byte)

	// CPUWorkers bounds concurrent CPU-bound image work across requests.
	// Defaults to GOMAXPROCS.
	CPUWorkers int
}

// Processor sequences the pipeline: transcode, build prompt, dispatch to
// the bound provider, and account tokens. It is safe for concurrent use;
// the only mutable state it shares is the TokenStats counter.
type Processor struct {
	transcoder Transcoder
	prompts    PromptBuilder
	provider   Provider
	stats      *domain.TokenStats
	logger     Logger

	// cpu gates decode/resize/encode work so CPU-bound transcoding cannot
	// starve concurrent request handling.
	cpu *semaphore.Weighted

	thumbnails    bool
	thumbnailSink func(data []byte)
}

// NewProcessor wires a processor. stats may be nil, in which case a fresh
// counter set is created and owned by the processor.
func NewProcessor(transcoder Transcoder, prompts PromptBuilder, provider Provider, stats *domain.TokenStats, logger Logger, opts Options) *Processor {
	if stats == nil {
		stats = domain.NewTokenStats()
	}
	workers := opts.CPUWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Processor{
		transcoder:    transcoder,
		prompts:       prompts,
		provider:      provider,
		stats:         stats,
		logger:        logger,
		cpu:           semaphore.NewWeighted(int64(workers)),
		thumbnails:    opts.Thumbnails,
		thumbnailSink: opts.ThumbnailSink,
	}
}

// Stats returns a snapshot of the cumulative token accounting.
func (p *Processor) Stats() domain.TokenUsage {
	return p.stats.Snapshot()
}

// Process runs one image through the pipeline and returns the analysis.
//
// Transcoding failures are fatal for the request. The thumbnail side path
// runs concurrently with the provider dispatch; its outcome never affects
// request success.
func (p *Processor) Process(ctx context.Context, raw []byte, spec prompt.Spec) (domain.Analysis, error) {
	start := time.Now()

	transcoded, err := p.transcode(ctx, raw)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("transcode: %w", err)
	}

	p.logInfo(ctx, "image transcoded", map[string]interface{}{
		"original_bytes":    transcoded.OriginalBytes,
		"encoded_bytes":     len(transcoded.Data),
		"reduction_percent": reductionPercent(transcoded.OriginalBytes, len(transcoded.Data)),
		"width":             transcoded.Width,
		"height":            transcoded.Height,
	})

	instructions, err := p.prompts.Build(spec)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("build prompt: %w", err)
	}

	// The provider dispatch and the thumbnail are independent; run them
	// concurrently and join. Only the analysis outcome decides success.
	var response llm.Response
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var analyzeErr error
		response, analyzeErr = p.provider.Analyze(gctx, transcoded, instructions)
		if analyzeErr != nil {
			return fmt.Errorf("provider: %w", analyzeErr)
		}
		return nil
	})

	if p.thumbnails {
		g.Go(func() error {
			p.makeThumbnail(ctx, raw)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Analysis{}, err
	}

	p.logInfo(ctx, "analysis completed", map[string]interface{}{
		"duration_ms":   time.Since(start).Milliseconds(),
		"model":         response.Model,
		"prompt_tokens": response.Usage.PromptTokens,
		"total_tokens":  response.Usage.TotalTokens,
	})

	return domain.Analysis{Text: response.Text, Usage: response.Usage}, nil
}

// transcode runs the CPU-bound analysis encoding under the worker gate.
func (p *Processor) transcode(ctx context.Context, raw []byte) (*imageadapter.Transcoded, error) {
	if err := p.cpu.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.cpu.Release(1)
	return p.transcoder.Transcode(raw)
}

// makeThumbnail runs the best-effort side path. Failures are logged and
// swallowed; they must never surface as request failures. The thumbnail
// deliberately ignores group cancellation: an analysis failure does not
// make the thumbnail less valid.
func (p *Processor) makeThumbnail(ctx context.Context, raw []byte) {
	if err := p.cpu.Acquire(ctx, 1); err != nil {
		return
	}
	defer p.cpu.Release(1)

	data, err := p.transcoder.Thumbnail(raw)
	if err != nil {
		p.logWarning(ctx, "thumbnail generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if p.thumbnailSink != nil {
		p.thumbnailSink(data)
	}
}

func reductionPercent(original, encoded int) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-encoded) / float64(original) * 100
}

func (p *Processor) logInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.LogInfo(ctx, message, fields)
	}
}

func (p *Processor) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.LogWarning(ctx, message, fields)
	}
}

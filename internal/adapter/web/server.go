// Package web is the HTTP front end: a gin engine exposing the analysis
// pipeline as a small JSON API. Transport concerns (multipart extraction,
// body limits, concurrency limits, status mapping) live here and nowhere
// else; the pipeline itself never sees HTTP.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/bkyoung/eyeris/internal/domain"
	"github.com/bkyoung/eyeris/internal/prompt"
)

const shutdownGracePeriod = 10 * time.Second

// Analyzer is the inbound port the front end drives.
type Analyzer interface {
	Process(ctx context.Context, raw []byte, spec prompt.Spec) (domain.Analysis, error)
	Stats() domain.TokenUsage
}

// Logger is the structured logging port for the front end.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Options configures the server.
type Options struct {
	Addr string

	// MaxBodyBytes caps the request body. Zero means the 100 MiB default.
	MaxBodyBytes int64

	// MaxConcurrent bounds in-flight analyses; requests beyond it are
	// rejected with 503 rather than queued. Zero means 10.
	MaxConcurrent int

	Logger Logger
}

// Server serves the analysis API.
type Server struct {
	engine   *gin.Engine
	analyzer Analyzer
	logger   Logger

	addr    string
	maxBody int64

	// inflight gates concurrent analyses. TryAcquire keeps saturation
	// visible to callers instead of building an unbounded queue.
	inflight *semaphore.Weighted
}

// NewServer wires the engine, middleware, and routes.
func NewServer(analyzer Analyzer, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 100 * 1024 * 1024
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:   engine,
		analyzer: analyzer,
		logger:   opts.Logger,
		addr:     opts.Addr,
		maxBody:  opts.MaxBodyBytes,
		inflight: semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}

	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	engine.Use(s.bodyLimit())

	api := engine.Group("/api/v1")
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)

	return s
}

// Handler exposes the engine for testing with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then drains with a grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	s.logInfo(ctx, "server listening", map[string]interface{}{"addr": s.addr})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// bodyLimit caps the request body so an oversized upload fails during
// the multipart read instead of buffering unbounded bytes.
func (s *Server) bodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
		c.Next()
	}
}

func (s *Server) logInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.LogInfo(ctx, message, fields)
	}
}

func (s *Server) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.LogWarning(ctx, message, fields)
	}
}

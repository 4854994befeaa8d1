package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/bkyoung/eyeris/internal/adapter/cli"
	imageadapter "github.com/bkyoung/eyeris/internal/adapter/image"
	llmhttp "github.com/bkyoung/eyeris/internal/adapter/llm/http"
	"github.com/bkyoung/eyeris/internal/adapter/llm/ollama"
	"github.com/bkyoung/eyeris/internal/adapter/llm/openai"
	"github.com/bkyoung/eyeris/internal/adapter/web"
	"github.com/bkyoung/eyeris/internal/config"
	"github.com/bkyoung/eyeris/internal/domain"
	"github.com/bkyoung/eyeris/internal/prompt"
	"github.com/bkyoung/eyeris/internal/usecase/analyze"
)

// version is stamped at build time via -ldflags.
var version = "v0.0.0"

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	// Create cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Best effort: a missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "eyeris",
		EnvPrefix:   "EYERIS",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	logger := buildLogger(cfg.Observability.Logging)

	stats := domain.NewTokenStats()
	provider, err := buildProvider(cfg, stats, logger)
	if err != nil {
		return err
	}

	transcoder := imageadapter.NewTranscoder(
		imageadapter.Options{
			MaxDimension: cfg.Image.MaxDimension,
			Quality:      cfg.Image.Quality,
		},
		imageadapter.ThumbnailOptions{
			Size:       cfg.Image.Thumbnail.Size,
			Quality:    cfg.Image.Thumbnail.Quality,
			Brightness: cfg.Image.Thumbnail.Brightness,
		},
	)

	processor := analyze.NewProcessor(transcoder, prompt.NewBuilder(), provider, stats, logger, analyze.Options{
		Thumbnails: cfg.Image.Thumbnail.Enabled,
	})

	server := web.NewServer(processor, web.Options{
		Addr:          cfg.Server.Addr,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		MaxConcurrent: cfg.Server.MaxConcurrent,
		Logger:        logger,
	})

	root := cli.NewRootCommand(cli.Dependencies{
		Analyzer: processor,
		Server:   server,
		Version:  version,
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// buildProvider constructs the single backend named by the config. The
// set of names is closed; Validate has already rejected anything else.
func buildProvider(cfg config.Config, stats *domain.TokenStats, logger llmhttp.Logger) (analyze.Provider, error) {
	switch cfg.Provider {
	case "ollama":
		client := ollama.NewClient(cfg.Providers.Ollama.BaseURL, cfg.Providers.Ollama.Model, logger)
		client.SetTimeout(cfg.OllamaTimeout())
		return client, nil
	case "openai":
		client := openai.NewClient(cfg.Providers.OpenAI.Model, stats, logger)
		if cfg.Providers.OpenAI.BaseURL != "" {
			client.SetBaseURL(cfg.Providers.OpenAI.BaseURL)
		}
		client.SetAPIKeyEnv(cfg.Providers.OpenAI.APIKeyEnv)
		client.SetTimeout(cfg.OpenAITimeout())
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// buildLogger creates the structured logger. With a non-TTY stdout the
// human format silently upgrades to JSON so log collectors get parseable
// lines.
func buildLogger(cfg config.LoggingConfig) llmhttp.Logger {
	if !cfg.Enabled {
		return nil
	}

	level := llmhttp.LogLevelInfo
	switch cfg.Level {
	case "debug":
		level = llmhttp.LogLevelDebug
	case "error":
		level = llmhttp.LogLevelError
	}

	format := llmhttp.LogFormatHuman
	if cfg.Format == "json" || (cfg.Format == "human" && !term.IsTerminal(int(os.Stdout.Fd()))) {
		format = llmhttp.LogFormatJSON
	}

	return llmhttp.NewDefaultLogger(level, format, cfg.RedactAPIKeys)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "eyeris"))
	}
	return paths
}

// Compile-time interface compliance checks
var _ analyze.Provider = (*ollama.Client)(nil)
var _ analyze.Provider = (*openai.Client)(nil)
var _ analyze.Transcoder = (*imageadapter.Transcoder)(nil)
var _ web.Analyzer = (*analyze.Processor)(nil)
var _ cli.Analyzer = (*analyze.Processor)(nil)

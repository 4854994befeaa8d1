package config

import (
	"fmt"
	"time"
)

// Config represents the full application configuration.
type Config struct {
	// Provider names the backend the service binds at startup. The set of
	// valid names is closed; Validate rejects anything else.
	Provider      string              `yaml:"provider"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Server        ServerConfig        `yaml:"server"`
	Image         ImageConfig         `yaml:"image"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ProvidersConfig holds per-backend settings. Every backend is always
// configurable; only the one named by Config.Provider is constructed.
type ProvidersConfig struct {
	Ollama OllamaConfig `yaml:"ollama"`
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OllamaConfig configures the local inference backend.
type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// OpenAIConfig configures the hosted backend. The credential itself is
// never stored in config; APIKeyEnv names the environment variable it is
// read from at request time.
type OpenAIConfig struct {
	BaseURL   string `yaml:"baseURL"`
	Model     string `yaml:"model"`
	Timeout   string `yaml:"timeout"`
	APIKeyEnv string `yaml:"apiKeyEnv"`
}

// ServerConfig holds HTTP front end settings.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	MaxBodyBytes  int64  `yaml:"maxBodyBytes"`
	MaxConcurrent int    `yaml:"maxConcurrent"`
}

// ImageConfig holds transcoding settings.
type ImageConfig struct {
	MaxDimension int             `yaml:"maxDimension"`
	Quality      int             `yaml:"quality"`
	Thumbnail    ThumbnailConfig `yaml:"thumbnail"`
}

// ThumbnailConfig holds the optional thumbnail side path settings.
type ThumbnailConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Size       int     `yaml:"size"`
	Quality    int     `yaml:"quality"`
	Brightness float64 `yaml:"brightness"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures request/response logging.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`         // debug, info, error
	Format        string `yaml:"format"`        // json, human
	RedactAPIKeys bool   `yaml:"redactAPIKeys"` // Redact API keys in logs
}

// KnownProviders lists the valid values for Config.Provider.
func KnownProviders() []string {
	return []string{"ollama", "openai"}
}

// Validate checks invariants that would otherwise only fail deep inside
// the wiring: an unknown provider name, unparseable timeouts, or
// nonsensical limits.
func (c Config) Validate() error {
	valid := false
	for _, name := range KnownProviders() {
		if c.Provider == name {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown provider %q (valid: %v)", c.Provider, KnownProviders())
	}

	if _, err := time.ParseDuration(c.Providers.Ollama.Timeout); err != nil {
		return fmt.Errorf("providers.ollama.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Providers.OpenAI.Timeout); err != nil {
		return fmt.Errorf("providers.openai.timeout: %w", err)
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.maxBodyBytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.MaxConcurrent <= 0 {
		return fmt.Errorf("server.maxConcurrent must be positive, got %d", c.Server.MaxConcurrent)
	}

	if c.Image.MaxDimension <= 0 {
		return fmt.Errorf("image.maxDimension must be positive, got %d", c.Image.MaxDimension)
	}
	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		return fmt.Errorf("image.quality must be in [1,100], got %d", c.Image.Quality)
	}
	if c.Image.Thumbnail.Quality < 1 || c.Image.Thumbnail.Quality > 100 {
		return fmt.Errorf("image.thumbnail.quality must be in [1,100], got %d", c.Image.Thumbnail.Quality)
	}

	return nil
}

// OllamaTimeout returns the parsed ollama HTTP timeout. Call Validate
// first; a malformed value falls back to zero here.
func (c Config) OllamaTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Providers.Ollama.Timeout)
	return d
}

// OpenAITimeout returns the parsed openai HTTP timeout.
func (c Config) OpenAITimeout() time.Duration {
	d, _ := time.ParseDuration(c.Providers.OpenAI.Timeout)
	return d
}

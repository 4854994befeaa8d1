package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "eyeris"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "EYERIS"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Expand environment variables in config values
	cfg = expandEnvVars(cfg)

	return cfg, nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.Provider = expandEnvString(cfg.Provider)

	cfg.Providers.Ollama.BaseURL = expandEnvString(cfg.Providers.Ollama.BaseURL)
	cfg.Providers.Ollama.Model = expandEnvString(cfg.Providers.Ollama.Model)
	cfg.Providers.Ollama.Timeout = expandEnvString(cfg.Providers.Ollama.Timeout)

	cfg.Providers.OpenAI.BaseURL = expandEnvString(cfg.Providers.OpenAI.BaseURL)
	cfg.Providers.OpenAI.Model = expandEnvString(cfg.Providers.OpenAI.Model)
	cfg.Providers.OpenAI.Timeout = expandEnvString(cfg.Providers.OpenAI.Timeout)
	cfg.Providers.OpenAI.APIKeyEnv = expandEnvString(cfg.Providers.OpenAI.APIKeyEnv)

	cfg.Server.Addr = expandEnvString(cfg.Server.Addr)

	cfg.Observability.Logging.Level = expandEnvString(cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = expandEnvString(cfg.Observability.Logging.Format)

	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable values.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	// Replace ${VAR} syntax
	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	// Replace $VAR syntax (without braces)
	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:] // Remove $
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	return s
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "ollama")

	// Provider defaults
	v.SetDefault("providers.ollama.baseURL", "http://localhost:11434")
	v.SetDefault("providers.ollama.model", "moondream")
	v.SetDefault("providers.ollama.timeout", "120s")
	v.SetDefault("providers.openai.baseURL", "https://api.openai.com")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.openai.timeout", "60s")
	v.SetDefault("providers.openai.apiKeyEnv", "OPENAI_API_KEY")

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.maxBodyBytes", int64(100*1024*1024))
	v.SetDefault("server.maxConcurrent", 10)

	// Image defaults
	v.SetDefault("image.maxDimension", 768)
	v.SetDefault("image.quality", 10)
	v.SetDefault("image.thumbnail.enabled", false)
	v.SetDefault("image.thumbnail.size", 300)
	v.SetDefault("image.thumbnail.quality", 85)
	v.SetDefault("image.thumbnail.brightness", 1.1)

	// Observability defaults
	v.SetDefault("observability.logging.enabled", true)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "human")
	v.SetDefault("observability.logging.redactAPIKeys", true)
}

// Package config loads runtime configuration from the environment, with an
// optional YAML file overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider selects the LLM backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

// Config holds all configuration values.
type Config struct {
	// HTTP API
	APIHost string
	APIPort int

	// GitHub
	GitHubToken string

	// Redis task store
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// LLM
	LLMProvider     Provider
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Worker pool
	Workers int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig mirrors the optional YAML configuration file. File values fill
// in only where the environment left the default.
type fileConfig struct {
	APIHost     string `yaml:"api_host"`
	APIPort     int    `yaml:"api_port"`
	GitHubToken string `yaml:"github_token"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     *int   `yaml:"redis_db"`
	LLMProvider string `yaml:"llm_provider"`
	LLMModel    string `yaml:"llm_model"`
	OllamaHost  string `yaml:"ollama_host"`
	Workers     int    `yaml:"workers"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
}

// Load reads configuration from environment variables. When PRREVIEW_CONFIG
// names a YAML file, its values apply beneath any explicitly set env vars.
func Load() (Config, error) {
	cfg := Config{
		APIHost: getEnv("API_HOST", "0.0.0.0"),
		APIPort: getEnvInt("API_PORT", 8000),

		GitHubToken: os.Getenv("GITHUB_TOKEN"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LLMProvider:     Provider(getEnv("LLM_PROVIDER", string(ProviderOpenAI))),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		Workers: getEnvInt("PRREVIEW_WORKERS", 4),

		LogFile:  getEnv("PRREVIEW_LOG_FILE", ""),
		LogLevel: parseLogLevel(getEnv("PRREVIEW_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("PRREVIEW_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// applyFile overlays values from a YAML file for settings still at their
// env defaults or empty.
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.APIHost != "" && os.Getenv("API_HOST") == "" {
		c.APIHost = fc.APIHost
	}
	if fc.APIPort != 0 && os.Getenv("API_PORT") == "" {
		c.APIPort = fc.APIPort
	}
	if fc.GitHubToken != "" && c.GitHubToken == "" {
		c.GitHubToken = fc.GitHubToken
	}
	if fc.RedisAddr != "" && os.Getenv("REDIS_ADDR") == "" {
		c.RedisAddr = fc.RedisAddr
	}
	if fc.RedisDB != nil && os.Getenv("REDIS_DB") == "" {
		c.RedisDB = *fc.RedisDB
	}
	if fc.LLMProvider != "" && os.Getenv("LLM_PROVIDER") == "" {
		c.LLMProvider = Provider(fc.LLMProvider)
	}
	if fc.LLMModel != "" && os.Getenv("LLM_MODEL") == "" {
		c.LLMModel = fc.LLMModel
	}
	if fc.OllamaHost != "" && os.Getenv("OLLAMA_HOST") == "" {
		c.OllamaHost = fc.OllamaHost
	}
	if fc.Workers != 0 && os.Getenv("PRREVIEW_WORKERS") == "" {
		c.Workers = fc.Workers
	}
	if fc.LogFile != "" && os.Getenv("PRREVIEW_LOG_FILE") == "" {
		c.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" && os.Getenv("PRREVIEW_LOG_LEVEL") == "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}
	return nil
}

// Validate checks the settings the server cannot run without.
func (c Config) Validate() error {
	if c.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %q", c.LLMProvider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", c.LLMProvider)
		}
	case ProviderOllama:
		// Local provider, no key required.
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLMProvider)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

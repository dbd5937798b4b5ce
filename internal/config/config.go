// Package config loads service configuration from an optional YAML file,
// the process environment, and built-in defaults, in ascending precedence
// of defaults < file < environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted for the vision/text model backend.
const (
	ProviderCerebras = "cerebras"
	ProviderGroq     = "groq"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Memory    MemoryConfig    `yaml:"memory"`
	Speech    SpeechConfig    `yaml:"speech"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	EnableCORS     bool   `yaml:"enable_cors"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	ReadTimeout    int    `yaml:"read_timeout_seconds"`
	WriteTimeout   int    `yaml:"write_timeout_seconds"`
}

// ProviderConfig selects and configures the chat model backend.
type ProviderConfig struct {
	Name       string `yaml:"name"` // "cerebras" or "groq"
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"max_retries"`
	Timeout    int    `yaml:"timeout_seconds"`
}

// EmbeddingConfig configures the embeddings backend for the memory store.
type EmbeddingConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// MemoryConfig configures the fragment store.
type MemoryConfig struct {
	PersistPath string `yaml:"persist_path"`
	Collection  string `yaml:"collection"`
	TopK        int    `yaml:"top_k"`
}

// SpeechConfig configures the Cartesia wrappers.
type SpeechConfig struct {
	APIKey string `yaml:"api_key"`
	Voice  string `yaml:"voice"`
	Mock   bool   `yaml:"mock"` // serve silent audio instead of calling Cartesia
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			EnableCORS:     true,
			MaxUploadBytes: 10 << 20,
			ReadTimeout:    30,
			WriteTimeout:   120,
		},
		Provider: ProviderConfig{
			Name:       ProviderCerebras,
			MaxRetries: 2,
		},
		Embedding: EmbeddingConfig{},
		Memory: MemoryConfig{
			PersistPath: "./data",
			Collection:  "visual-memory",
			TopK:        4,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty (no file). A .env file
// in the working directory is honored, matching the original deployment
// habit of this service.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "IRIS_HOST", "HOST")
	setInt(&cfg.Server.Port, "IRIS_PORT", "PORT")
	setInt64(&cfg.Server.MaxUploadBytes, "IRIS_MAX_UPLOAD_BYTES", "MAX_FILE_SIZE")

	setString(&cfg.Provider.Name, "AI_PROVIDER")
	setString(&cfg.Provider.BaseURL, "MODEL_API_URL")
	setString(&cfg.Provider.Model, "IRIS_MODEL")
	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(cfg.Provider.Name))

	// The provider key env depends on the selected provider; an explicit
	// file value still wins over nothing.
	switch cfg.Provider.Name {
	case ProviderGroq:
		setString(&cfg.Provider.APIKey, "GROQ_API_KEY")
	default:
		setString(&cfg.Provider.APIKey, "CEREBRAS_API_KEY")
	}

	setString(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Embedding.BaseURL, "IRIS_EMBEDDING_BASE_URL")
	setString(&cfg.Embedding.Model, "IRIS_EMBEDDING_MODEL")

	setString(&cfg.Memory.PersistPath, "IRIS_MEMORY_PATH")
	setString(&cfg.Memory.Collection, "IRIS_MEMORY_COLLECTION")
	setInt(&cfg.Memory.TopK, "IRIS_MEMORY_TOP_K")

	setString(&cfg.Speech.APIKey, "CARTESIA_API_KEY")
	setString(&cfg.Speech.Voice, "IRIS_VOICE")

	setString(&cfg.LogLevel, "IRIS_LOG_LEVEL")
}

// Validate rejects configurations the service cannot start with. Missing
// provider credentials are deliberately NOT a validation error: the service
// starts degraded and reports readiness via /health.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderCerebras, ProviderGroq:
	default:
		return fmt.Errorf("unknown provider %q (want %q or %q)", c.Provider.Name, ProviderCerebras, ProviderGroq)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid max upload size %d", c.Server.MaxUploadBytes)
	}
	if c.Memory.TopK <= 0 {
		return fmt.Errorf("invalid memory top_k %d", c.Memory.TopK)
	}
	return nil
}

func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
			return
		}
	}
}

func setInt(dst *int, keys ...string) {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = parsed
				return
			}
		}
	}
}

func setInt64(dst *int64, keys ...string) {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				*dst = parsed
				return
			}
		}
	}
}

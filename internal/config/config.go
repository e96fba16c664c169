// Package config loads application configuration from a YAML file,
// with API keys supplied through the environment (a .env file is
// honored by the entry point).
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Provider  string          `yaml:"provider"` // "gemini", "openai" or "ollama"
	Gemini    ProviderConfig  `yaml:"gemini"`
	OpenAI    ProviderConfig  `yaml:"openai"`
	Ollama    ProviderConfig  `yaml:"ollama"`
	Store     StoreConfig     `yaml:"store"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Generate  GenerateConfig  `yaml:"generate"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
	PDF       PDFConfig       `yaml:"pdf"`
	LogLevel  string          `yaml:"log_level"`
}

// ProviderConfig configures one model provider.
type ProviderConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	EmbedModel string `yaml:"embed_model"`
	ChatModel  string `yaml:"chat_model"`
}

// APIKey resolves the provider's API key from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Type string `yaml:"type"` // "sqlite" or "memory"
	Path string `yaml:"path"`
}

// ChunkerConfig configures document splitting.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrieverConfig configures similarity retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// GenerateConfig configures text generation calls.
type GenerateConfig struct {
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	TimeoutSecs     int     `yaml:"timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// WatchConfig configures watch-folder auto-ingestion.
type WatchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// PDFConfig configures the external PDF parse service.
type PDFConfig struct {
	ServiceURL string `yaml:"service_url"`
}

// Load reads the config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Provider: "gemini",
		Gemini: ProviderConfig{
			APIKeyEnv:  "GEMINI_API_KEY",
			EmbedModel: "embedding-001",
			ChatModel:  "gemini-2.5-flash",
		},
		OpenAI: ProviderConfig{
			APIKeyEnv:  "OPENAI_API_KEY",
			EmbedModel: "text-embedding-3-small",
			ChatModel:  "gpt-4o-mini",
		},
		Ollama: ProviderConfig{
			BaseURL:    "http://localhost:11434",
			EmbedModel: "nomic-embed-text",
			ChatModel:  "llama3.2",
		},
		Store:     StoreConfig{Type: "sqlite", Path: "./clinrag_db"},
		Chunker:   ChunkerConfig{Size: 1000, Overlap: 200},
		Retriever: RetrieverConfig{TopK: 5},
		Generate: GenerateConfig{
			Temperature:     0.3,
			MaxOutputTokens: 8192,
			TimeoutSecs:     60,
		},
		Server:   ServerConfig{Addr: ":8080"},
		Watch:    WatchConfig{Enabled: true, Dir: "./documents"},
		PDF:      PDFConfig{ServiceURL: "http://localhost:8081"},
		LogLevel: "info",
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case "gemini", "openai", "ollama":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.Store.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	return nil
}

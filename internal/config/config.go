// Package config provides configuration loading and structs for the
// CiteWise server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and the vector index.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	VectorIndexType string `yaml:"vector_index_type"`
}

// EmbeddingConfig holds embedding provider settings. Provider selects the
// default; both providers may be configured and chosen per request.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"` // "local" or "openai"
	ModelPath        string `yaml:"model_path"`
	Dimensions       int    `yaml:"dimensions"`
	MaxTokens        int    `yaml:"max_tokens"`
	CacheSize        int    `yaml:"cache_size"`
	OpenAIModel      string `yaml:"openai_model"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	OpenAIDimensions int    `yaml:"openai_dimensions"`
}

// LLMConfig holds answer-generation provider settings.
type LLMConfig struct {
	Provider      string `yaml:"provider"` // "ollama", "openai", or "groq"
	OllamaBaseURL string `yaml:"ollama_base_url"`
	OllamaModel   string `yaml:"ollama_model"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	GroqModel     string `yaml:"groq_model"`
	GroqAPIKey    string `yaml:"groq_api_key"`
}

// RetrievalConfig holds retrieval and chunking settings.
type RetrievalConfig struct {
	TopK           int `yaml:"top_k"`
	MaxTopK        int `yaml:"max_top_k"`
	MaxPerDocument int `yaml:"max_per_document"`
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
}

// WatchConfig holds directory-ingestion settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to
// true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, applies
// defaults, and resolves API keys from the environment when unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

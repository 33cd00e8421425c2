package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/citewise.db"
watch:
  directories: ["./dev/sample"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "citewise.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	wantWatch := filepath.Join(dir, "dev", "sample")
	if cfg.Watch.Directories[0] != wantWatch {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], wantWatch)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("default top_k: got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MaxPerDocument != 3 {
		t.Errorf("default max_per_document: got %d", cfg.Retrieval.MaxPerDocument)
	}
	if cfg.Retrieval.ChunkSize != 1000 || cfg.Retrieval.ChunkOverlap != 200 {
		t.Errorf("default chunking: size=%d overlap=%d", cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	}
	if cfg.Embedding.Provider != "local" {
		t.Errorf("default embedding provider: got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("default dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("default llm provider: got %s", cfg.LLM.Provider)
	}
	if cfg.Storage.VectorIndexType != "memory" {
		t.Errorf("default vector index type: got %s", cfg.Storage.VectorIndexType)
	}
}

func TestApplyDefaults_APIKeyFromEnv(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.LLM.GroqAPIKey != "gsk-test" {
		t.Errorf("groq key should come from env, got %q", cfg.LLM.GroqAPIKey)
	}

	cfg = &Config{LLM: LLMConfig{GroqAPIKey: "from-file"}}
	ApplyDefaults(cfg)
	if cfg.LLM.GroqAPIKey != "from-file" {
		t.Errorf("config file key should win over env, got %q", cfg.LLM.GroqAPIKey)
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	w := &WatchConfig{}
	if !w.RecursiveOrDefault() {
		t.Error("unset recursive should default to true")
	}
	f := false
	w = &WatchConfig{Recursive: &f}
	if w.RecursiveOrDefault() {
		t.Error("explicit false should be respected")
	}
}

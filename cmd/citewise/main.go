// Package main is the CiteWise CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/chunker"
	"github.com/citewise/citewise/internal/config"
	"github.com/citewise/citewise/internal/embedding"
	"github.com/citewise/citewise/internal/generation"
	"github.com/citewise/citewise/internal/ingest"
	"github.com/citewise/citewise/internal/llm"
	"github.com/citewise/citewise/internal/retrieval"
	"github.com/citewise/citewise/internal/server"
	"github.com/citewise/citewise/internal/storage"
	"github.com/citewise/citewise/internal/trace"
	"github.com/citewise/citewise/internal/vector"
	"github.com/citewise/citewise/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/citewise/config.yaml"

// loadConfig loads config from path. When path is the default, a
// config.yaml in the current directory takes precedence so running from
// the project dir uses the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "delete":
		runDelete()
	case "version", "--version", "-v":
		fmt.Printf("citewise version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: citewise <command> [flags]

Commands:
  server    Start the HTTP API server (and directory watcher, if configured)
  ingest    Ingest one or more .txt/.md files
  query     Ask a question against the indexed corpus
  delete    Delete a document by ID
  version   Print version`)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watcher *ingest.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watcher = ingest.NewWatcher(components.Processor, cfg.Watch.Directories, cfg.Watch.RecursiveOrDefault(), logger)
		if err := watcher.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go watcher.SyncExistingFiles(watchCtx)
	}

	srv := server.NewServer(
		components.Processor,
		components.Retriever,
		components.Generator,
		components.LLMs,
		components.Recorder,
		components.Storage,
		components.VectorIndex,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watcher != nil {
		watcher.Stop()
	}
	watchCancel()
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	provider := fs.String("embedding-provider", "", "embedding provider override")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: citewise ingest [flags] <file> [file ...]")
		os.Exit(1)
	}

	cfg, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	failed := 0
	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Failed to read %s: %v\n", path, err)
			failed++
			continue
		}
		result, err := components.Processor.Process(ctx, filepath.Base(path), content, *provider, nil)
		if err != nil {
			fmt.Printf("Failed to ingest %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("Ingested %s: %d chunks (document %s)\n", path, result.ChunkCount, result.DocumentID)
	}
	saveIndex(cfg, components, logger)
	if failed > 0 {
		os.Exit(1)
	}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("top-k", 0, "number of context chunks (0 = config default)")
	llmProvider := fs.String("llm-provider", "", "LLM provider override")
	embeddingProvider := fs.String("embedding-provider", "", "embedding provider override")
	asJSON := fs.Bool("json", false, "output JSON")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: citewise query [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: citewise query [flags] <question>")
		os.Exit(1)
	}

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	start := time.Now()

	provider, err := components.LLMs.Get(*llmProvider)
	if err != nil {
		fmt.Printf("Query failed: %v\n", err)
		os.Exit(1)
	}
	ranked, resolvedEmbedding, err := components.Retriever.Retrieve(ctx, question, *embeddingProvider, *topK)
	if err != nil {
		fmt.Printf("Query failed: %v\n", err)
		os.Exit(1)
	}
	result, err := components.Generator.Generate(ctx, provider, question, ranked)
	if err != nil {
		fmt.Printf("Query failed: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	traceResult := components.Recorder.Record(ctx, trace.Input{
		Query:             question,
		Ranked:            ranked,
		Answer:            result.Answer,
		Citations:         result.Citations,
		LLMProvider:       components.LLMs.ResolveName(*llmProvider),
		EmbeddingProvider: resolvedEmbedding,
		TopK:              *topK,
		ProcessingTime:    elapsed,
	})

	if *asJSON {
		out := map[string]interface{}{
			"answer":             result.Answer,
			"citations":          result.Citations,
			"context_used":       result.ContextUsed,
			"processing_time_ms": elapsed.Milliseconds(),
		}
		if traceResult.Recorded() {
			out["trace_id"] = traceResult.TraceID
		}
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return
	}

	fmt.Println(result.Answer)
	if len(result.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range result.Citations {
			fmt.Printf("  [%d] %s (chunk %d, score %.2f)\n",
				c.Number, c.DocumentName, c.ChunkIndex, c.SimilarityScore)
		}
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: citewise delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	if err := components.Processor.Delete(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	saveIndex(cfg, components, logger)
	fmt.Printf("Document deleted: %s\n", docID)
}

func mustInitialize(configPath string) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func saveIndex(cfg *config.Config, components *Components, logger *zap.Logger) {
	if cfg.Storage.VectorIndexPath == "" {
		return
	}
	if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
		logger.Warn("vector index save failed",
			zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}
}

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Embedders   *embedding.Registry
	LLMs        *llm.Registry
	VectorIndex vector.Index
	Processor   *ingest.Processor
	Retriever   *retrieval.Retriever
	Generator   *generation.Generator
	Recorder    *trace.Recorder
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedders != nil {
		_ = c.Embedders.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedders := embedding.NewRegistry(cfg.Embedding.Provider)

	var local embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX embedder unavailable, using mock embeddings", zap.Error(err))
		local = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		local = onnxEmbedder
	}
	embedders.Register("local", local)

	if cfg.Embedding.OpenAIAPIKey != "" {
		openaiEmbedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     cfg.Embedding.OpenAIAPIKey,
			Model:      cfg.Embedding.OpenAIModel,
			Dimensions: cfg.Embedding.OpenAIDimensions,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		embedders.Register("openai", openaiEmbedder)
	}

	defaultEmbedder, err := embedders.Get("")
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("default embedding provider %s is not configured: %w", cfg.Embedding.Provider, err)
	}

	vectorIndex, err := vector.New(cfg.Storage.VectorIndexType, defaultEmbedder.Dimensions())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if err := vectorIndex.Load(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index load failed, starting empty",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		} else if vectorIndex.Size() > 0 {
			logger.Info("vector index loaded",
				zap.String("path", cfg.Storage.VectorIndexPath),
				zap.Int("vectors", vectorIndex.Size()),
			)
		}
	}

	llms := llm.NewRegistry(cfg.LLM.Provider)
	llms.Register("ollama", llm.NewOllamaProvider(llm.OllamaConfig{
		BaseURL: cfg.LLM.OllamaBaseURL,
		Model:   cfg.LLM.OllamaModel,
	}))
	if cfg.LLM.OpenAIAPIKey != "" {
		openaiLLM, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey: cfg.LLM.OpenAIAPIKey,
			Model:  cfg.LLM.OpenAIModel,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize OpenAI provider: %w", err)
		}
		llms.Register("openai", openaiLLM)
	}
	if cfg.LLM.GroqAPIKey != "" {
		groqLLM, err := llm.NewGroqProvider(llm.GroqConfig{
			APIKey: cfg.LLM.GroqAPIKey,
			Model:  cfg.LLM.GroqModel,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize Groq provider: %w", err)
		}
		llms.Register("groq", groqLLM)
	}
	if _, err := llms.Get(""); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("default LLM provider %s is not configured: %w", cfg.LLM.Provider, err)
	}

	ch := chunker.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)

	logger.Info("components initialized",
		zap.String("embedding_provider", embedders.DefaultName()),
		zap.Strings("embedding_providers", embedders.Names()),
		zap.String("llm_provider", llms.DefaultName()),
		zap.Strings("llm_providers", llms.Names()),
		zap.Int("dimensions", vectorIndex.Dimensions()),
	)

	return &Components{
		Storage:     store,
		Embedders:   embedders,
		LLMs:        llms,
		VectorIndex: vectorIndex,
		Processor:   ingest.NewProcessor(store, vectorIndex, embedders, ch, logger),
		Retriever:   retrieval.NewRetriever(embedders, vectorIndex, cfg.Retrieval.TopK, cfg.Retrieval.MaxPerDocument, logger),
		Generator:   generation.NewGenerator(logger),
		Recorder:    trace.NewRecorder(store, logger, 0),
	}, nil
}

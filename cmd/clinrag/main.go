// Command clinrag runs the clinical literature assistant: a RAG
// pipeline over uploaded medical documents, exposed through a JSON API
// and an optional watch folder.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clinrag/clinrag-go/internal/adapters/embedding"
	"github.com/clinrag/clinrag-go/internal/adapters/filewatcher"
	"github.com/clinrag/clinrag-go/internal/adapters/llm"
	"github.com/clinrag/clinrag-go/internal/adapters/loader"
	"github.com/clinrag/clinrag-go/internal/adapters/parser"
	"github.com/clinrag/clinrag-go/internal/adapters/vectordb"
	"github.com/clinrag/clinrag-go/internal/config"
	"github.com/clinrag/clinrag-go/internal/domain/entities"
	"github.com/clinrag/clinrag-go/internal/domain/ports"
	"github.com/clinrag/clinrag-go/internal/domain/usecases"
	httpserver "github.com/clinrag/clinrag-go/internal/infrastructure/http"
	"github.com/clinrag/clinrag-go/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "clinrag:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel)

	embedder, generator, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(cfg, embedder)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := usecases.NewEngine(store, generator, usecases.Options{
		ChunkSize:        cfg.Chunker.Size,
		ChunkOverlap:     cfg.Chunker.Overlap,
		TopK:             cfg.Retriever.TopK,
		PersistDirectory: cfg.Store.Path,
		Logger:           log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pdfParser := parser.NewServicePDFParser(cfg.PDF.ServiceURL)

	if cfg.Watch.Enabled {
		if err := startWatcher(ctx, cfg, engine, pdfParser, log); err != nil {
			log.Warn("watch folder disabled", "error", err)
		}
	}

	server := httpserver.NewServer(engine, pdfParser, log, cfg.Server.Addr)
	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func buildProvider(cfg *config.Config) (ports.Embedder, ports.Generator, error) {
	genOpts := llm.GenerationOptions{
		Temperature:     cfg.Generate.Temperature,
		MaxOutputTokens: cfg.Generate.MaxOutputTokens,
		Timeout:         time.Duration(cfg.Generate.TimeoutSecs) * time.Second,
	}

	switch cfg.Provider {
	case "gemini":
		p := cfg.Gemini
		if p.APIKey() == "" {
			return nil, nil, fmt.Errorf("missing API key: set %s", p.APIKeyEnv)
		}
		return embedding.NewGeminiEmbedder(p.BaseURL, p.APIKey(), p.EmbedModel, genOpts.Timeout),
			llm.NewGeminiGenerator(p.BaseURL, p.APIKey(), p.ChatModel, genOpts), nil
	case "openai":
		p := cfg.OpenAI
		if p.APIKey() == "" {
			return nil, nil, fmt.Errorf("missing API key: set %s", p.APIKeyEnv)
		}
		return embedding.NewOpenAIEmbedder(p.APIKey(), p.BaseURL, p.EmbedModel),
			llm.NewOpenAIGenerator(p.APIKey(), p.BaseURL, p.ChatModel, genOpts), nil
	case "ollama":
		p := cfg.Ollama
		return embedding.NewOllamaEmbedder(p.BaseURL, p.EmbedModel, genOpts.Timeout),
			llm.NewOllamaGenerator(p.BaseURL, p.ChatModel, genOpts), nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func buildStore(cfg *config.Config, embedder ports.Embedder) (ports.VectorStore, func(), error) {
	switch cfg.Store.Type {
	case "memory":
		return vectordb.NewMemoryStore(embedder), func() {}, nil
	default:
		store, err := vectordb.NewSQLiteStore(cfg.Store.Path, embedder)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
}

// startWatcher ingests documents dropped into the watch folder.
func startWatcher(ctx context.Context, cfg *config.Config, engine *usecases.Engine, pdfParser ports.PDFParser, log *slog.Logger) error {
	if err := os.MkdirAll(cfg.Watch.Dir, 0755); err != nil {
		return err
	}

	watcher, err := filewatcher.NewFSNotifyWatcher(nil, 0)
	if err != nil {
		return err
	}

	events, err := watcher.Watch(ctx, cfg.Watch.Dir)
	if err != nil {
		watcher.Stop()
		return err
	}

	docs := loader.NewMultiLoader(pdfParser)

	go func() {
		defer watcher.Stop()
		for ev := range events {
			if ev.Operation == ports.FileDeleted {
				continue
			}
			doc, err := docs.Load(ctx, ev.Path)
			if err != nil {
				log.Error("loading watched file", "path", ev.Path, "error", err)
				continue
			}
			result := engine.Ingest(ctx, doc)
			if result.Status == entities.IngestError {
				log.Error("ingesting watched file", "path", ev.Path, "error", result.Err)
			}
		}
	}()

	log.Info("watching for documents", "dir", cfg.Watch.Dir)
	return nil
}

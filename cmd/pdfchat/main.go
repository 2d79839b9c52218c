// Command pdfchat serves the multi-PDF chat page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/0xcro3dile/pdfchat/internal/adapters/cache"
	"github.com/0xcro3dile/pdfchat/internal/adapters/chunker"
	"github.com/0xcro3dile/pdfchat/internal/adapters/embedding"
	"github.com/0xcro3dile/pdfchat/internal/adapters/filewatcher"
	"github.com/0xcro3dile/pdfchat/internal/adapters/llm"
	"github.com/0xcro3dile/pdfchat/internal/adapters/loader"
	"github.com/0xcro3dile/pdfchat/internal/adapters/parser"
	"github.com/0xcro3dile/pdfchat/internal/adapters/resilience"
	"github.com/0xcro3dile/pdfchat/internal/adapters/vectordb"
	"github.com/0xcro3dile/pdfchat/internal/config"
	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
	"github.com/0xcro3dile/pdfchat/internal/domain/ports"
	"github.com/0xcro3dile/pdfchat/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/pdfchat/internal/infrastructure/http"
	"github.com/0xcro3dile/pdfchat/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default ./config.yaml)")
	envPath := flag.String("env", ".env", "path to a .env file")
	flag.Parse()

	if err := run(*configPath, *envPath); err != nil {
		fmt.Fprintf(os.Stderr, "pdfchat: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	if err := config.LoadEnv(envPath); err != nil {
		return err
	}

	var (
		cfg *config.AppConfig
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Providers
	var models *genai.Models
	if cfg.UsesGemini() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Google.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return fmt.Errorf("creating gemini client: %w", err)
		}
		models = client.Models
	}

	guard := resilience.Settings{
		RequestsPerSecond: cfg.Resilience.RequestsPerSecond,
		Burst:             cfg.Resilience.Burst,
		MaxFailures:       cfg.Resilience.MaxFailures,
		OpenTimeout:       cfg.BreakerTimeout(),
	}
	embedder := resilience.NewEmbedder(newEmbedder(cfg, models, logger),
		resilience.NewGuard(cfg.Embedder.Type+"-embedder", guard, logger))
	generator := resilience.NewLLM(newLLM(cfg, models, logger),
		resilience.NewGuard(cfg.LLM.Type+"-llm", guard, logger))

	store, closeStore, err := newVectorStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	answers, closeCache, err := newAnswerCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache.Close()

	splitter, err := chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return err
	}

	// Use cases
	index := usecases.NewIndexUseCase(embedder, store, answers, cfg.Embedder.BatchSize, logger)
	answer := usecases.NewAnswerUseCase(embedder, store, generator, answers, index, cfg.Retrieval.TopK, logger)
	chat := usecases.NewChatUseCase(parser.NewPDFExtractor(logger), splitter, index, index, answer, logger)

	metrics := httpserver.NewMetrics()
	server, err := httpserver.NewServer(chat, metrics, httpserver.Config{
		Addr:           cfg.Server.Addr,
		ReadTimeout:    cfg.ReadTimeout(),
		WriteTimeout:   cfg.WriteTimeout(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("pdfchat configured",
		zap.String("embedder", cfg.Embedder.Type),
		zap.String("llm", cfg.LLM.Type),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("cache", cfg.Cache.Type),
		zap.Bool("watch", cfg.Watch.Enabled))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})

	if cfg.Watch.Enabled {
		watcher, err := filewatcher.NewFSNotifyWatcher(nil, cfg.WatchSettle(), logger)
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		defer watcher.Stop()

		inbox := usecases.NewInboxUseCase(
			watcher,
			loader.NewFileLoader(nil, cfg.MaxUploadBytes()),
			chat,
			cfg.Watch.Dir,
			func(report *entities.ProcessReport, err error) {
				var took time.Duration
				if report != nil {
					took = report.Duration
				}
				metrics.ObserveProcess(err, took)
			},
			logger,
		)
		g.Go(func() error {
			return inbox.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newEmbedder(cfg *config.AppConfig, models *genai.Models, logger *zap.Logger) ports.EmbeddingService {
	if cfg.Embedder.Type == "ollama" {
		return embedding.NewOllamaAdapter(cfg.Embedder.Ollama.BaseURL, cfg.EmbedderModel(), logger)
	}
	return embedding.NewGeminiAdapter(models, cfg.EmbedderModel(), logger)
}

func newLLM(cfg *config.AppConfig, models *genai.Models, logger *zap.Logger) ports.LLMService {
	if cfg.LLM.Type == "ollama" {
		return llm.NewOllamaLLMAdapter(cfg.LLM.Ollama.BaseURL, cfg.LLMModel(), cfg.LLM.Temperature, logger)
	}
	return llm.NewGeminiAdapter(models, cfg.LLMModel(), cfg.LLM.Temperature, logger)
}

func newVectorStore(cfg *config.AppConfig, logger *zap.Logger) (ports.VectorStore, io.Closer, error) {
	if cfg.VectorStore.Type == "memory" {
		return vectordb.NewInMemoryStore(), io.NopCloser(nil), nil
	}
	store, err := vectordb.NewSQLiteStore(cfg.VectorStore.Path, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening vector store: %w", err)
	}
	return store, store, nil
}

func newAnswerCache(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (ports.AnswerCache, io.Closer, error) {
	switch cfg.Cache.Type {
	case "none":
		return nil, io.NopCloser(nil), nil
	case "redis":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return cache.NewRedisCache(client, cfg.CacheTTL(), logger), client, nil
	default:
		return cache.NewMemoryCache(cfg.CacheTTL()), io.NopCloser(nil), nil
	}
}

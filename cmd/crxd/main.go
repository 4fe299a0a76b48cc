package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Ritesh-97/causal-rationale-extraction-system/causal"
	"github.com/Ritesh-97/causal-rationale-extraction-system/config"
	"github.com/Ritesh-97/causal-rationale-extraction-system/conversations"
	"github.com/Ritesh-97/causal-rationale-extraction-system/corpus"
	corpusollama "github.com/Ritesh-97/causal-rationale-extraction-system/corpus/ollama"
	corpusopenai "github.com/Ritesh-97/causal-rationale-extraction-system/corpus/openai"
	"github.com/Ritesh-97/causal-rationale-extraction-system/engine"
	"github.com/Ritesh-97/causal-rationale-extraction-system/explain"
	"github.com/Ritesh-97/causal-rationale-extraction-system/llm"
	llmanthropic "github.com/Ritesh-97/causal-rationale-extraction-system/llm/anthropic"
	llmollama "github.com/Ritesh-97/causal-rationale-extraction-system/llm/ollama"
	llmopenai "github.com/Ritesh-97/causal-rationale-extraction-system/llm/openai"
	crxlogger "github.com/Ritesh-97/causal-rationale-extraction-system/logger"
	"github.com/Ritesh-97/causal-rationale-extraction-system/migrations"
	"github.com/Ritesh-97/causal-rationale-extraction-system/retrieval"
	"github.com/Ritesh-97/causal-rationale-extraction-system/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", config.GetServerConfigPath(), "Path to config file")
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
		dbPath     = flag.String("db", "", "Path to SQLite database file (overrides config)")
		logFile    = flag.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty     = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	logger, err := crxlogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // closing on shutdown

	if err := migrations.RunMigrations(db, cfg.MigrationsPath, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return err
	}

	eng, store, convs, err := buildEngine(cfg, db, embedder, logger)
	if err != nil {
		return err
	}

	// Periodic TTL sweep for expired conversations.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 5m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := convs.EvictExpired(ctx); err != nil {
			logger.Error().Err(err).Msg("Conversation TTL sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule TTL sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.NewServer(eng, store, cfg.Analysis.WindowSize, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildEmbedder constructs the configured embedder, or nil for keyword-only
// retrieval.
func buildEmbedder(cfg *config.ServerConfig, logger zerolog.Logger) (corpus.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "", "none":
		logger.Info().Msg("No embedder configured; retrieval is keyword-only")
		return nil, nil
	case "ollama":
		model := corpusollama.Model(cfg.Embedding.Model)
		if model == "" {
			model = corpusollama.ModelMXBAI
		}
		return corpusollama.NewEmbedder(model)
	case "openai":
		return corpusopenai.NewEmbedder(cfg.OpenAI.APIKey, "")
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}

// buildEngine wires the full request path from configuration.
func buildEngine(cfg *config.ServerConfig, db *sql.DB, embedder corpus.Embedder, logger zerolog.Logger) (*engine.Engine, *corpus.Store, *conversations.Store, error) {
	store := corpus.NewStore(db, embedder, logger)

	detector, err := causal.NewDetector(causal.DetectorConfig{
		LookbackSeconds:     cfg.Analysis.LookbackSeconds,
		LookbackTurns:       cfg.Analysis.LookbackTurns,
		SequentialThreshold: cfg.Analysis.SequentialThreshold,
		SequentialBonus:     cfg.Analysis.SequentialBonus,
	}, cfg.Cues)
	if err != nil {
		return nil, nil, nil, err
	}

	weights := causal.Weights{
		Relevance:  cfg.Analysis.Weights.Relevance,
		Temporal:   cfg.Analysis.Weights.Temporal,
		Pattern:    cfg.Analysis.Weights.Pattern,
		Similarity: cfg.Analysis.Weights.Similarity,
	}
	scorer, err := causal.NewScorer(weights)
	if err != nil {
		return nil, nil, nil, err
	}
	analyzer, err := causal.NewAnalyzer(detector, scorer, cfg.Analysis.TopK, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	convs, err := conversations.NewStore(db, cfg.Conversations.HistoryDepth, cfg.ConversationTTL(), logger)
	if err != nil {
		return nil, nil, nil, err
	}

	client, model := buildLLMClient(cfg, logger)
	generator := explain.NewGenerator(client, model, logger)

	pipeline := retrieval.NewPipeline(store, embedder, retrieval.NewLexicalReranker(), 0, logger)
	eng := engine.New(pipeline, analyzer, generator, convs, nil, logger)
	return eng, store, convs, nil
}

// buildLLMClient resolves the first configured provider and wraps it with
// retries. Explanation falls back to a template when none is configured.
func buildLLMClient(cfg *config.ServerConfig, logger zerolog.Logger) (llm.Client, string) {
	registry := llm.NewProviderRegistry(&llm.ProviderConfig{
		AnthropicAPIKey: cfg.Anthropic.APIKey,
		AnthropicModel:  cfg.Anthropic.Model,
		OllamaHost:      cfg.Ollama.Host,
		OllamaModel:     cfg.Ollama.Model,
		OpenAIAPIKey:    cfg.OpenAI.APIKey,
		OpenAIBaseURL:   cfg.OpenAI.BaseURL,
		OpenAIModel:     cfg.OpenAI.Model,
	}, cfg.LLMProviders)

	key, err := registry.Resolve(cfg.LLMProviders)
	if err != nil {
		logger.Warn().Err(err).Msg("No LLM provider available; explanations use template fallback")
		return nil, ""
	}

	var client llm.Client
	switch key.Provider {
	case llm.ProviderAnthropic:
		client, err = llmanthropic.NewAnthropicClient(key.APIKey, logger)
	case llm.ProviderOllama:
		client, err = llmollama.NewOllamaClient(key.Host, key.Model)
	case llm.ProviderOpenAI:
		client, err = llmopenai.NewOpenAIClient(key.APIKey, key.BaseURL, key.Model)
	default:
		err = fmt.Errorf("unknown provider: %s", key.Provider)
	}
	if err != nil {
		logger.Warn().Err(err).Str("provider", key.Provider).Msg("Failed to create LLM client; explanations use template fallback")
		return nil, ""
	}

	logger.Info().Str("provider", key.Provider).Str("model", key.Model).Msg("LLM client ready")
	return llm.NewRetryClient(client, 0, logger), key.Model
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/xaenox/council-bot/internal/bot"
	"github.com/xaenox/council-bot/internal/classifier"
	"github.com/xaenox/council-bot/internal/metrics"
	"github.com/xaenox/council-bot/internal/search"
	"github.com/xaenox/council-bot/internal/storage"
	"github.com/xaenox/council-bot/internal/usecase"
	"github.com/xaenox/council-bot/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Bootstrap logger until the configured one is available
	bootLogger, _ := zap.NewProduction()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		bootLogger.Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		bootLogger.Fatal("Failed to create logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	clf, err := newClassifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize classifier", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg, logger.Named("metrics")); err != nil {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	uc := bot.UseCases{
		ProcessMessage:   usecase.NewProcessMessage(store, store, store, clf, m, logger),
		CreateProject:    usecase.NewCreateProject(store, logger),
		GetNextSteps:     usecase.NewGetNextSteps(store, store, clf, m, logger),
		SearchKnowledge:  usecase.NewSearchKnowledge(store),
		ListProjects:     usecase.NewListProjects(store),
		FindProject:      usecase.NewFindProject(store),
		SetProjectStatus: usecase.NewSetProjectStatus(store, logger),
		PendingMessages:  usecase.NewPendingMessages(store),
	}

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, uc, bot.Options{
		MinConfidence: cfg.Classifier.MinConfidence,
		Debug:         cfg.Telegram.Debug,
		Recorder:      m,
	}, logger.Named("bot"))
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Bot started",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("llm_provider", cfg.LLM.Provider))

	// Start the bot
	if err := b.Start(ctx); err != nil {
		logger.Error("Bot error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = level
	return zapConfig.Build()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	var (
		store storage.Storage
		err   error
	)

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	case config.BackendPostgres:
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewSQLStorage(ctx, storage.DatabaseConfig{
			Driver:   storage.DriverPostgres,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger.Named("postgres"))
	case config.BackendSQLite:
		logger.Info("Using SQLite storage", zap.String("path", cfg.SQLite.Path))
		store, err = storage.NewSQLStorage(ctx, storage.DatabaseConfig{
			Driver: storage.DriverSQLite,
			Path:   cfg.SQLite.Path,
		}, logger.Named("sqlite"))
	case config.BackendMongoDB:
		logger.Info("Using MongoDB storage", zap.String("database", cfg.MongoDB.Database))
		store, err = storage.NewMongoStorage(ctx, storage.MongoConfig{
			URI:      cfg.MongoDB.URI,
			Database: cfg.MongoDB.Database,
		}, logger.Named("mongodb"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Search.IndexPath == "" {
		return store, nil
	}

	index, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	logger.Info("Using full-text knowledge index", zap.String("path", cfg.Search.IndexPath))
	repo := search.NewKnowledgeRepository(store, index, logger.Named("search"))
	if _, err := repo.Backfill(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func newClassifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (classifier.Classifier, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		completer := classifier.NewOpenAICompleter(classifier.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     cfg.OpenAI.Timeout,
		}, logger)
		return classifier.NewLLMClassifier(completer, cfg.Classifier.MaxTags, cfg.Classifier.MaxKnowledgeContext, logger), nil
	case config.ProviderGemini:
		completer, err := classifier.NewGeminiCompleter(ctx, classifier.GeminiConfig{
			APIKey:      cfg.Gemini.APIKey,
			BaseURL:     cfg.Gemini.BaseURL,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
			Timeout:     cfg.Gemini.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return classifier.NewLLMClassifier(completer, cfg.Classifier.MaxTags, cfg.Classifier.MaxKnowledgeContext, logger), nil
	case config.ProviderKeyword:
		return classifier.NewKeywordClassifier(cfg.Classifier.MaxTags), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

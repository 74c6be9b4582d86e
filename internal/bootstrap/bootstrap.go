package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tshaffer/memorappy/internal/config"
	"github.com/tshaffer/memorappy/internal/core/ports"
	"github.com/tshaffer/memorappy/internal/core/usecase"
	"github.com/tshaffer/memorappy/internal/infrastructure/geo/google"
	"github.com/tshaffer/memorappy/internal/infrastructure/llm/ollama"
	"github.com/tshaffer/memorappy/internal/infrastructure/llm/openai"
	"github.com/tshaffer/memorappy/internal/infrastructure/queue/nats"
	"github.com/tshaffer/memorappy/internal/infrastructure/repository/memory"
	"github.com/tshaffer/memorappy/internal/infrastructure/repository/postgres"
	"github.com/tshaffer/memorappy/internal/infrastructure/resilience"
	"github.com/tshaffer/memorappy/internal/observability/metrics"
)

type Options struct {
	Service string
	Logger  *slog.Logger
	// Registerer receives retrieval and resilience collectors. Nil disables metrics.
	Registerer prometheus.Registerer
	// RequireEvents fails startup when NATS is not configured.
	RequireEvents bool
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Reviews ports.ReviewStore
	Places  ports.PlaceStore
	Queue   *nats.Queue

	QueryUC  *usecase.QueryUseCase
	SubmitUC *usecase.SubmitReviewUseCase
	PlaceUC  *usecase.PlaceResolver
	WarmUC   *usecase.WarmReviewUseCase

	closeFn func()
}

type languageProvider interface {
	ports.LanguageModel
	ports.Embeddings
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		observer        ports.RetrievalObserver
		executorOptions = []resilience.Option{resilience.WithLogger(logger)}
	)
	if opts.Registerer != nil {
		observer = metrics.NewRetrievalMetrics(opts.Service, opts.Registerer)
		executorOptions = append(executorOptions, resilience.WithObserver(metrics.NewResilienceMetrics(opts.Service, opts.Registerer)))
	}
	executor := resilience.NewExecutor(resilienceConfig(cfg), executorOptions...)

	var (
		closers    []func()
		reviews    ports.ReviewStore
		places     ports.PlaceStore
		persistent ports.EmbeddingCache
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		reviews, places = store, store
	default:
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		reviews = postgres.NewReviewRepository(db)
		places = postgres.NewPlaceRepository(db)
		if cfg.EmbeddingCachePersist {
			persistent = postgres.NewEmbeddingCacheRepository(db)
		}
	}

	var queue *nats.Queue
	var events ports.ReviewEvents
	if cfg.NATSURL != "" {
		q, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			HandlerTimeout:     time.Duration(cfg.WorkerWarmTimeoutSecs) * time.Second,
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		closers = append(closers, q.Close)
		queue, events = q, q
	} else if opts.RequireEvents {
		closeAll()
		return nil, fmt.Errorf("init message queue: NATS_URL is not configured")
	}

	llm := newLanguageProvider(cfg, executor)

	var (
		locations usecase.LocationResolver
		lookup    ports.PlaceLookup
	)
	if cfg.GoogleMapsAPIKey != "" {
		maps := google.New(cfg.GoogleMapsAPIKey, google.Options{
			BaseURL:            cfg.GoogleMapsBaseURL,
			ResilienceExecutor: executor,
		})
		locations = usecase.NewGeoResolver(maps, cfg.GeocodeCacheSize)
		lookup = maps
	} else {
		logger.Warn("google_maps_disabled", "reason", "GOOGLE_MAPS_API_KEY not set")
	}

	index := usecase.NewEmbeddingIndex(llm, usecase.EmbeddingIndexOptions{
		CacheSize:   cfg.EmbeddingCacheSize,
		DefaultTopK: cfg.RetrievalTopK,
		Persistent:  persistent,
		Observer:    observer,
		Logger:      logger,
	})
	filters := usecase.NewStructuredFilterBuilder(locations, cfg.RetrievalDefaultRadiusMeters, observer, logger)

	retrieverOpts := usecase.HybridRetrieverOptions{TopK: cfg.RetrievalTopK}
	if cfg.RetrievalLLMRerank {
		retrieverOpts.Reranker = usecase.NewLLMReranker(llm, logger)
	}
	retriever := usecase.NewHybridRetriever(
		usecase.NewQueryIntentClassifier(llm),
		filters,
		index,
		reviews,
		places,
		retrieverOpts,
	)

	placeUC := usecase.NewPlaceResolver(places, lookup)

	return &App{
		Config: cfg,
		Logger: logger,

		Reviews: reviews,
		Places:  places,
		Queue:   queue,

		QueryUC:  usecase.NewQueryUseCase(retriever, observer, logger),
		SubmitUC: usecase.NewSubmitReviewUseCase(placeUC, reviews, events, logger),
		PlaceUC:  placeUC,
		WarmUC:   usecase.NewWarmReviewUseCase(reviews, index),

		closeFn: closeAll,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func openPostgres(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db, cfg.EmbeddingCachePersist); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func newLanguageProvider(cfg config.Config, executor *resilience.Executor) languageProvider {
	if cfg.LLMProvider == config.LLMProviderOpenAI {
		return openai.NewClient(cfg.OpenAIAPIKey,
			openai.WithBaseURL(cfg.OpenAIBaseURL),
			openai.WithChatModel(cfg.OpenAIChatModel),
			openai.WithEmbeddingModel(cfg.OpenAIEmbedModel),
			openai.WithResilienceExecutor(executor),
		)
	}
	return ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		Retry: resilience.RetryPolicy{
			MaxAttempts:    cfg.ResilienceRetryMaxAttempts,
			InitialBackoff: time.Duration(cfg.ResilienceRetryInitialBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.ResilienceRetryMaxBackoffMS) * time.Millisecond,
		},
		Breaker: resilience.BreakerPolicy{
			Enabled:      cfg.ResilienceBreakerEnabled,
			MinRequests:  uint32(max(cfg.ResilienceBreakerMinRequests, 0)),
			FailureRatio: cfg.ResilienceBreakerFailureRatio,
			OpenTimeout:  time.Duration(cfg.ResilienceBreakerOpenTimeoutSecs) * time.Second,
		},
	}
}

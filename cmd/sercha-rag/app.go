package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/pgvector"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
	postgresqueue "github.com/custodia-labs/sercha-rag/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/sercha-rag/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sercha-rag/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/extractors"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
	"github.com/custodia-labs/sercha-rag/internal/worker"
)

// app is the wired object graph shared by the api and worker modes.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db    *postgres.DB
	index *pgvector.Index
	redis *redis.Client
	queue driven.TaskQueue
	lock  driven.DistributedLock

	// queueBackend is "redis" or "postgres".
	queueBackend string

	runtime *runtime.Services
	closers []func()

	auth      driving.AuthService
	documents driving.DocumentService
	queries   driving.QueryService
	feedback  driving.FeedbackService
	ingestion *services.IngestionCoordinator
	reaper    *services.StaleRevisionReaper
	scheduler *services.Scheduler
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}
	db := a.db

	index, err := pgvector.Connect(ctx, cfg.Database.URL, logger)
	if err != nil {
		return nil, err
	}
	a.index = index
	a.closers = append(a.closers, index.Close)

	// ===== Model providers =====
	a.runtime = runtime.NewServices(domain.NewRuntimeConfig(a.queueBackend, a.queueBackend))
	a.closers = append(a.closers, func() { _ = a.runtime.Close() })

	factory := ai.NewFactory(logger)
	embedding, err := factory.CreateEmbeddingService(&cfg.Embedding.EmbeddingSettings)
	if err != nil {
		return nil, fmt.Errorf("create embedding service: %w", err)
	}
	if err := a.runtime.ValidateAndSetEmbedding(ctx, embedding); err != nil {
		return nil, err
	}
	generation, err := factory.CreateGenerationService(&cfg.Generation.GenerationSettings)
	if err != nil {
		return nil, fmt.Errorf("create generation service: %w", err)
	}
	if err := a.runtime.ValidateAndSetGeneration(ctx, generation); err != nil {
		return nil, err
	}
	rc := a.runtime.Config()
	logger.Info("providers", "can_ingest", rc.CanIngest(), "can_answer", rc.CanAnswer())

	// ===== Core services =====
	documentStore := postgres.NewDocumentStore(db)
	revisionStore := postgres.NewRevisionStore(db)
	chunkStore := postgres.NewChunkStore(db)
	queryStore := postgres.NewQueryStore(db)
	registry := extractors.DefaultRegistry()

	a.auth = services.NewAuthService(auth.NewAdapter(cfg.Auth.JWTSecret))
	a.documents = services.NewDocumentService(services.DocumentServiceConfig{
		Documents:      documentStore,
		Revisions:      revisionStore,
		Chunks:         chunkStore,
		TaskQueue:      a.queue,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		MaxAttempts:    cfg.Ingestion.MaxAttempts,
		Logger:         logger,
		FileTypes:      registry.List(),
	})
	a.feedback = services.NewFeedbackService(services.FeedbackServiceConfig{
		Feedback: postgres.NewFeedbackStore(db),
		Queries:  queryStore,
		Logger:   logger,
	})

	embedder, err := services.NewEmbeddingClient(services.EmbeddingClientConfig{
		Service:         a.runtime.EmbeddingService(),
		BatchSize:       cfg.Embedding.BatchSize,
		Concurrency:     cfg.Embedding.Concurrency,
		Timeout:         cfg.Embedding.Timeout,
		IndexDimensions: cfg.Embedding.Dimensions,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, embedder.Close)

	chunker, err := postprocessors.NewChunker(postprocessors.ChunkConfig{
		Size:    cfg.Ingestion.ChunkSize,
		Overlap: cfg.Ingestion.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}

	a.ingestion = services.NewIngestionCoordinator(services.IngestionCoordinatorConfig{
		Revisions:        revisionStore,
		Chunks:           chunkStore,
		Extractors:       registry,
		Chunker:          chunker,
		Embedder:         embedder,
		MinContentLength: cfg.Ingestion.MinContentLength,
		Logger:           logger,
	})
	a.reaper = services.NewStaleRevisionReaper(services.ReaperConfig{
		Revisions:         revisionStore,
		UploadTimeout:     cfg.Ingestion.StaleUploadTimeout,
		ProcessingTimeout: cfg.Ingestion.StaleProcessingTimeout,
		Logger:            logger,
	})
	a.queries = services.NewQueryOrchestrator(services.QueryOrchestratorConfig{
		Embedder: embedder,
		Retriever: services.NewRetriever(services.RetrieverConfig{
			Index:     index,
			TopK:      cfg.Search.TopK,
			Threshold: cfg.Search.Threshold,
			Logger:    logger,
		}),
		Synthesizer: services.NewAnswerSynthesizer(services.SynthesizerConfig{
			Generator:   a.runtime.GenerationService(),
			Timeout:     cfg.Generation.Timeout,
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
			Logger:      logger,
		}),
		Store:  queryStore,
		Logger: logger,
	})

	if cfg.Scheduler.Enabled {
		a.scheduler = a.newScheduler()
	}

	ok = true
	return a, nil
}

// openStorage connects PostgreSQL, the optional Redis client, the task queue
// and the distributed lock. Redis backs the queue and lock when configured.
func (a *app) openStorage(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// ===== PostgreSQL =====
	logger.Info("connecting to postgres")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func() { _ = db.Close() })

	if err := db.InitSchema(ctx, cfg.Embedding.Dimensions); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	// ===== Redis (optional) =====
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("%w: redis url: %w", domain.ErrInvalidConfig, err)
		}
		a.redis = redis.NewClient(opts)
		a.closers = append(a.closers, func() { _ = a.redis.Close() })
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}

	// ===== Task queue and lock (Redis if available, otherwise PostgreSQL) =====
	queueBackend := "postgres"
	if a.redis != nil {
		hostname, _ := os.Hostname()
		q, err := redisqueue.NewQueue(ctx, a.redis, redisqueue.Config{
			ConsumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
			RetryBackoff: cfg.Ingestion.RetryBackoff,
			ClaimTimeout: cfg.Redis.ClaimTimeout,
			Logger:       logger,
		})
		if err != nil {
			return fmt.Errorf("create task queue: %w", err)
		}
		a.queue = q
		a.lock = redisadapter.NewLock(a.redis)
		queueBackend = "redis"
	} else {
		a.queue = postgresqueue.NewQueue(db.DB, cfg.Ingestion.RetryBackoff)
		a.lock = postgres.NewAdvisoryLock(db)
	}
	a.closers = append(a.closers, func() { _ = a.queue.Close() })
	a.queueBackend = queueBackend
	logger.Info("task queue ready", "backend", queueBackend)
	return nil
}

// server builds the HTTP server with readiness checks for every dependency.
func (a *app) server() *http.Server {
	checks := map[string]http.Pinger{
		"database":  a.db,
		"index":     a.index,
		"queue":     a.queue,
		"lock":      a.lock,
		"providers": a.runtime,
	}

	return http.NewServer(http.Config{
		Host:           a.cfg.Server.Host,
		Port:           a.cfg.Server.Port,
		Version:        version,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		Logger:         a.logger,
	}, http.Services{
		Auth:     a.auth,
		Document: a.documents,
		Query:    a.queries,
		Feedback: a.feedback,
	}, checks)
}

func (a *app) newScheduler() *services.Scheduler {
	return services.NewScheduler(services.SchedulerConfig{
		Store:        postgres.NewScheduleStore(a.db),
		TaskQueue:    a.queue,
		Lock:         a.lock,
		Logger:       a.logger,
		PollInterval: a.cfg.Scheduler.PollInterval,
		LockRequired: a.cfg.Scheduler.LockRequired,
	})
}

func (a *app) worker() *worker.Worker {
	return worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      a.queue,
		Ingestion:      a.ingestion,
		Maintenance:    a.reaper,
		Scheduler:      a.scheduler,
		Logger:         a.logger,
		Concurrency:    a.cfg.Worker.Concurrency,
		DequeueTimeout: a.cfg.Worker.DequeueTimeout,
		TaskRetention:  a.cfg.Worker.TaskRetention,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

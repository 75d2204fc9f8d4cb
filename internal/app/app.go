// Package app assembles the service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/adapter/ai"
	"github.com/arturoeanton/launchpad-match/internal/adapter/cache"
	"github.com/arturoeanton/launchpad-match/internal/adapter/store"
	"github.com/arturoeanton/launchpad-match/internal/embedding"
	"github.com/arturoeanton/launchpad-match/internal/handler"
	"github.com/arturoeanton/launchpad-match/internal/logger"
	"github.com/arturoeanton/launchpad-match/internal/mcp"
	"github.com/arturoeanton/launchpad-match/internal/middleware"
	"github.com/arturoeanton/launchpad-match/internal/port"
	"github.com/arturoeanton/launchpad-match/internal/scheduler"
	"github.com/arturoeanton/launchpad-match/internal/service"
	"github.com/arturoeanton/launchpad-match/internal/validation"
	"github.com/arturoeanton/launchpad-match/pkg/config"
)

// Version is reported by the health endpoints.
const Version = "1.0.0"

// App holds every wired component.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Store        port.Store
	Provider     *embedding.Provider
	Candidates   *service.CandidateService
	Jobs         *service.JobService
	Requirements *service.RequirementService
	Matches      *service.MatchService
	Backfill     *service.BackfillService

	checks map[string]handler.Pinger
	redis  *redis.Client
}

// New connects to the configured backends and builds the services.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: log, checks: make(map[string]handler.Pinger)}

	// 1. Storage
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.checks["store"] = st

	// 2. Embedding model
	model, err := a.openModel(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 3. Optional cache
	opts := []embedding.Option{
		embedding.WithDimension(cfg.EmbeddingDimension),
		embedding.WithTimeout(cfg.EmbedTimeout),
		embedding.WithLogger(logger.WithEmbedder(log, cfg.EmbedProvider, model.ModelName())),
	}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = rdb
		a.checks["cache"] = pingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		opts = append(opts, embedding.WithCache(cache.NewRedisCache(rdb, cfg.EmbedCacheTTL)))
	}
	a.Provider = embedding.NewProvider(model, opts...)

	// 4. Services
	validate := validation.New()
	a.Candidates = service.NewCandidateService(st, validate, log)
	a.Jobs = service.NewJobService(st, a.Provider, validate, log)
	a.Requirements = service.NewRequirementService(st, validate)
	matcher := service.NewMatcher(st, st, a.Provider, log)
	a.Matches = service.NewMatchService(st, matcher, cfg.AutoFallback, log)
	a.Backfill = service.NewBackfillService(st, a.Provider, service.NewRunTracker(service.WithRetention(cfg.BackfillRetention)),
		cfg.BackfillBatchSize, cfg.BackfillRatePerSec, log)

	log.Info("application wired",
		zap.String("store", cfg.StoreDriver),
		zap.String("embed_provider", cfg.EmbedProvider),
		zap.String("embed_model", model.ModelName()),
		zap.Bool("cache", a.redis != nil),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (port.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return store.NewMemoryStore(), nil
	}
	pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pg, nil
}

func (a *App) openModel(ctx context.Context) (port.Embedder, error) {
	cfg := a.Config
	switch cfg.EmbedProvider {
	case config.ProviderGemini:
		return ai.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GeminiEmbedModel, cfg.EmbeddingDimension)
	case config.ProviderHash:
		return ai.NewHashEmbedder(cfg.EmbeddingDimension), nil
	default:
		ollama := ai.NewOllamaEmbedder(ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaEmbedURL,
			Model:   cfg.OllamaEmbedModel,
			Token:   cfg.OllamaEmbedToken,
		})
		a.checks["embedder"] = ollama
		return ollama, nil
	}
}

// Migrate applies the database schema. The memory store needs none.
func (a *App) Migrate(ctx context.Context) error {
	m, ok := a.Store.(interface{ Migrate(context.Context) error })
	if !ok {
		return nil
	}
	return m.Migrate(ctx)
}

// Router builds the Fiber application with every route registered.
func (a *App) Router() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      a.Config.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: handler.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.AccessLog(a.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{a.Config.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	}))

	handler.NewHealthHandler(a.Config.AppName, Version, a.checks).Register(app)

	api := app.Group("/v1")
	handler.NewCandidateHandler(a.Candidates).Register(api)
	handler.NewJobHandler(a.Jobs).Register(api)
	handler.NewRequirementHandler(a.Requirements).Register(api)
	handler.NewMatchHandler(a.Matches).Register(api)
	handler.NewEmbeddingsHandler(a.Backfill, a.Logger).Register(api)
	return app
}

// Serve runs the HTTP server, the backfill scheduler and, when enabled, the
// MCP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	sched := scheduler.New(a.Backfill, a.Config.BackfillSchedule, a.Logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	errCh := make(chan error, 2)

	var mcpServer *mcp.Server
	if a.Config.MCPEnabled {
		mcpServer = mcp.NewServer(a.Matches, a.Candidates, a.Config.MCPPort, a.Logger)
		go func() {
			if err := mcpServer.Start(); err != nil {
				errCh <- fmt.Errorf("MCP server: %w", err)
			}
		}()
	}

	router := a.Router()
	go func() {
		a.Logger.Info("Fiber listening", zap.String("port", a.Config.Port))
		if err := router.Listen(":"+a.Config.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var errs []error
	errs = append(errs, runErr)
	if err := router.ShutdownWithContext(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if mcpServer != nil {
		if err := mcpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases every backend connection.
func (a *App) Close() error {
	var errs []error
	if a.Provider != nil {
		errs = append(errs, a.Provider.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

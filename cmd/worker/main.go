package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/config"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/enrich"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/handler"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/infra/postgresql"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/sourcecodeals/market-nexus-dispatch/internal/infra/redis"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/observability"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/queue"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/service"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.SearchRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter init failed", zap.Error(err))
	}

	finder, err := enrich.NewFinder(
		enrich.NewSerperClient(cfg.SerperAPIKey),
		enrich.NewExtractor(cfg.OpenRouterAPIKey),
		limiter,
		cfg.EnrichBatchSize,
		logger,
	)
	if err != nil {
		logger.Fatal("finder init failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	enrichments := repository.NewGormEnrichmentRepo(db)
	consumer := queue.NewRabbitMQConsumer(mq, cfg.WorkerConcurrency, logger)

	worker, err := service.NewEnrichmentWorker(enrichments, consumer, finder, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("enrichment worker init failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Small sidecar server so the worker's collectors are scrapeable.
	metricsApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	metricsApp.Get("/livez", handler.LivezHandler())
	metricsApp.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	go func() {
		if err := metricsApp.Listen(fmt.Sprintf(":%d", cfg.WorkerMetricsPort)); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	logger.Info("market-nexus worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Int("metricsPort", cfg.WorkerMetricsPort),
	)
	if err := worker.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("enrichment worker stopped", zap.Error(err))
	}

	if err := metricsApp.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Error("metrics server shutdown failed", zap.Error(err))
	}
	logger.Info("worker shut down")
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/config"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/dispatch"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/handler"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/infra/postgresql"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/sourcecodeals/market-nexus-dispatch/internal/infra/redis"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/observability"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/provider"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/queue"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/retry"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/service"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

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

	metrics := observability.NewMetrics()

	chain, err := buildProviderChain(cfg, logger)
	if err != nil {
		logger.Fatal("provider chain init failed", zap.Error(err))
	}
	chain.SetMetrics(metrics)

	deliveries := repository.NewGormDeliveryRepo(db)
	dispatcher, err := dispatch.NewDispatcher(deliveries, chain, logger)
	if err != nil {
		logger.Fatal("dispatcher init failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	enrichments := repository.NewGormEnrichmentRepo(db)
	enrichmentService, err := service.NewEnrichmentService(enrichments, queue.NewRabbitMQPublisher(mq), logger)
	if err != nil {
		logger.Fatal("enrichment service init failed", zap.Error(err))
	}

	reaper, err := service.NewPendingReaper(deliveries, 0, 0, logger)
	if err != nil {
		logger.Fatal("pending reaper init failed", zap.Error(err))
	}
	reaper.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterDispatchRoutes(app, dispatcher, deliveries); err != nil {
		logger.Fatal("dispatch routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterEnrichmentRoutes(app, enrichmentService); err != nil {
		logger.Fatal("enrichment routes registration failed", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := reaper.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("pending reaper stopped", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("market-nexus api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Error("api server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}

// buildProviderChain assembles the ordered email provider chain. Providers
// without credentials are still placed in the chain; the executor skips them
// at send time so an operator can add a key without redeploying config logic.
func buildProviderChain(cfg *config.Config, logger *zap.Logger) (*dispatch.ChainExecutor, error) {
	identity := provider.Identity{
		SenderName:    cfg.SenderName,
		SenderAddress: cfg.SenderAddress,
		ReplyTo:       cfg.ReplyTo,
	}

	providers := []provider.Provider{
		provider.NewResendProvider(cfg.ResendAPIKey, identity),
		provider.NewSendGridProvider(cfg.SendGridAPIKey, identity),
		provider.NewSMTPProvider(provider.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}, identity),
	}

	policy := retry.Policy{
		MaxAttempts: cfg.RetryCeiling,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMS) * time.Millisecond,
	}

	return dispatch.NewChainExecutor(providers, policy, logger)
}

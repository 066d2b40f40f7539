package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-platform/internal/api/http"
	"github.com/spec-kit/incident-platform/internal/api/http/handlers"
	"github.com/spec-kit/incident-platform/internal/auth"
	"github.com/spec-kit/incident-platform/internal/config"
	"github.com/spec-kit/incident-platform/internal/events"
	"github.com/spec-kit/incident-platform/internal/feed"
	"github.com/spec-kit/incident-platform/internal/observability"
	"github.com/spec-kit/incident-platform/internal/persistence"
	"github.com/spec-kit/incident-platform/internal/repository"
	"github.com/spec-kit/incident-platform/internal/service"
	"github.com/spec-kit/incident-platform/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	vendorRepo := repository.NewVendorRepository(pool)
	integrationRepo := repository.NewIntegrationRepository(pool)
	escalationState := repository.NewRedisEscalationState(redis.Client)

	dispatcher := events.NewInMemoryDispatcher()
	changeFeed := feed.NewRedisFeed(redis.Client, logger)
	metrics := observability.NewMetrics()

	policy := service.NewPolicyRegistry(vendorRepo)
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo: ticketRepo,
		Policy:     policy,
		State:      escalationState,
		Dispatcher: dispatcher,
		Feed:       changeFeed,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Policy:     policy,
		Escalation: escalationService,
		Dispatcher: dispatcher,
		Feed:       changeFeed,
		Logger:     logger,
	})
	ingestionService := service.NewIngestionService(service.IngestionDependencies{
		TicketRepo:      ticketRepo,
		IntegrationRepo: integrationRepo,
		Policy:          policy,
		Dispatcher:      dispatcher,
		Feed:            changeFeed,
		Logger:          logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification, cfg.App.Version)

	worker.StartNotificationWorker(notificationService)
	sweep := worker.NewSweepWorker(ticketRepo, escalationService, logger, cfg.SLA)
	if err := sweep.Start(); err != nil {
		logger.Fatal("failed to schedule sla sweep", zap.Error(err))
	}
	defer sweep.Stop()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Ingestion:      handlers.NewIngestionHandler(ingestionService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Vendors:        handlers.NewVendorsHandler(policy),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

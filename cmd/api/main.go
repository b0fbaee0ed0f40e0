package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/fitting-request/internal/cache"
	"github.com/kursadbilgin/fitting-request/internal/config"
	"github.com/kursadbilgin/fitting-request/internal/handler"
	"github.com/kursadbilgin/fitting-request/internal/incident"
	"github.com/kursadbilgin/fitting-request/internal/infra/database"
	"github.com/kursadbilgin/fitting-request/internal/infra/database/migrations"
	infraredis "github.com/kursadbilgin/fitting-request/internal/infra/redis"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/provider"
	"github.com/kursadbilgin/fitting-request/internal/ratelimit"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"github.com/kursadbilgin/fitting-request/internal/service"
	"github.com/kursadbilgin/fitting-request/internal/transport"
	"github.com/kursadbilgin/fitting-request/internal/validator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("fitting-request api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	requests := repository.NewGormRequestRepo(db)
	quotes := repository.NewGormQuoteRepo(db)
	notifications := repository.NewGormNotificationQueueRepo(db)
	errorLogs := repository.NewGormErrorLogRepo(db)
	catalog := repository.NewGormCatalogRepo(db)
	options := repository.NewGormOptionRepo(db)
	maintenanceRepo := repository.NewGormMaintenanceRepo(db, migrations.CoreTables, logger)

	if err := service.SeedReferenceData(ctx, catalog, logger); err != nil {
		return err
	}

	cacheStore, err := infraredis.NewCacheStore(rdb, cfg.CacheGroup)
	if err != nil {
		return err
	}

	var limiter ratelimit.Limiter = repository.NewGormRateLimitRepo(db)
	if cfg.RateLimitBackend == "redis" {
		limiter, err = infraredis.NewRedisRateLimiter(rdb, cfg.CacheGroup)
		if err != nil {
			return err
		}
	}

	sec, err := security.NewService(cfg.SiteSecret, limiter, cacheStore, options, nil, logger)
	if err != nil {
		return err
	}
	sec.SetMetrics(metrics)

	var mailer provider.Mailer = provider.NewLogMailer(logger)
	if cfg.AlertWebhookURL != "" {
		mailer, err = provider.NewWebhookMailer(cfg.AlertWebhookURL, resty.New())
		if err != nil {
			return err
		}
	}
	reporter, err := incident.NewReporter(errorLogs, mailer, cfg.AdminEmail, cfg.SiteName, logger)
	if err != nil {
		return err
	}
	reporter.SetMetrics(metrics)
	sec.SetIncidentLogger(reporter)

	referenceCache, err := cache.NewService(cacheStore, catalog, maintenanceRepo, cfg.CacheGroup, logger)
	if err != nil {
		return err
	}
	referenceCache.SetMetrics(metrics)

	v, err := validator.New(referenceCache, catalog, sec, reporter, logger)
	if err != nil {
		return err
	}

	settingsService, err := service.NewSettingsService(options, v, cfg.AdminEmail, logger)
	if err != nil {
		return err
	}
	requestService, err := service.NewRequestService(requests, quotes, notifications, v, v, sec, referenceCache, settingsService, logger)
	if err != nil {
		return err
	}
	requestService.SetMetrics(metrics)
	quoteService, err := service.NewQuoteService(requests, quotes, v, sec, referenceCache, settingsService, logger)
	if err != nil {
		return err
	}
	garageService, err := service.NewGarageService(catalog, v, sec, referenceCache, logger)
	if err != nil {
		return err
	}

	var sender provider.Sender = provider.NewLogSender(logger)
	if cfg.NotificationWebhookURL != "" {
		sender, err = provider.NewWebhookSender(cfg.NotificationWebhookURL, resty.New())
		if err != nil {
			return err
		}
	}
	dispatcher, err := service.NewDispatcher(notifications, sender, cfg.SiteName, cfg.DispatchBatchSize, logger)
	if err != nil {
		return err
	}
	dispatcher.SetMetrics(metrics)
	dispatcher.SetFailureReporter(reporter)

	maintenance, err := service.NewMaintenance(maintenanceRepo, options, referenceCache, reporter, logger)
	if err != nil {
		return err
	}
	scheduler := service.NewScheduler(logger)
	if err := maintenance.Register(scheduler, dispatcher.RunOnce, cfg.DispatchInterval); err != nil {
		return err
	}

	trustedProxies, err := security.ParseTrustedProxies(cfg.TrustedProxyList())
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.SiteName,
		DisableStartupMessage: true,
		BodyLimit:             int(2 * validator.DefaultMaxUploadSize),
		ErrorHandler:          transport.ErrorHandler(logger, reporter),
	})
	if err := handler.RegisterRoutes(app, handler.Dependencies{
		Requests:       requestService,
		Quotes:         quoteService,
		Garages:        garageService,
		Settings:       settingsService,
		Statistics:     referenceCache,
		Errors:         reporter,
		Performance:    reporter,
		Reference:      referenceCache,
		CSRF:           sec,
		Inspector:      sec,
		Logins:         sec,
		Health:         maintenanceRepo,
		Incidents:      reporter,
		AdminKeyHash:   cfg.AdminAPIKeyHash,
		TrustedProxies: trustedProxies,
		Metrics:        metrics,
		SQLDB:          sqlDB,
		Redis:          rdb,
	}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("fitting-request api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

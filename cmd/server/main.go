package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailroom/internal/caching"
	"mailroom/internal/config"
	"mailroom/internal/handlers"
	"mailroom/internal/jobs"
	"mailroom/internal/jobs/background"
	"mailroom/internal/logging"
	"mailroom/internal/middleware"
	"mailroom/internal/repositories"
	"mailroom/internal/services"
	"mailroom/pkg/database"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const version = "1.0.0"

const (
	bodyLimit       = "4M"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns:         cfg.DBMaxConns,
		ConnectTimeout:   cfg.DBConnectTimeout,
		StatementTimeout: cfg.DBStatementTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	variant, err := database.ResolveSchema(ctx, pool, database.SchemaVariant(cfg.SchemaVariant), logger)
	if err != nil {
		return err
	}

	pickupStore, err := repositories.NewPickupStore(pool, variant)
	if err != nil {
		return err
	}
	mailboxRepo := repositories.NewMailboxRepo(pool)
	tenantRepo := repositories.NewTenantRepo(pool)
	packageRepo := repositories.NewPackageRepo(pool)
	reportRepo := repositories.NewReportRepo(pool, variant)

	cacheSvc := caching.NewNopCacheService()
	if cfg.Redis.Addr != "" {
		client, err := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		cacheSvc = caching.NewRedisCacheService(client)
	} else {
		logger.Warn("REDIS_ADDR empty, caching disabled")
	}

	var minioSvc services.MinioService
	if cfg.Minio.Enabled {
		minioSvc, err = services.NewMinioService(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Region, cfg.Minio.UseSSL)
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		if err := minioSvc.EnsureBucketExists(ctx, cfg.Minio.Bucket); err != nil {
			return fmt.Errorf("minio bucket: %w", err)
		}
		logger.Info("signature offload enabled", zap.String("bucket", cfg.Minio.Bucket))
	}

	signatureSvc := services.NewSignatureService(pickupStore, minioSvc, services.OffloadConfig{
		Enabled:       cfg.Minio.Enabled,
		Bucket:        cfg.Minio.Bucket,
		PresignExpiry: cfg.Minio.PresignExpiry,
	}, logger)
	mailboxSvc := services.NewMailboxService(mailboxRepo, tenantRepo, cacheSvc, cfg.MailboxDeletePolicy, logger)
	tenantSvc := services.NewTenantService(tenantRepo, mailboxRepo, cacheSvc, logger)
	packageSvc := services.NewPackageService(packageRepo, mailboxRepo, tenantRepo, cacheSvc, logger)
	pickupSvc := services.NewPickupService(pickupStore, tenantRepo, packageRepo, signatureSvc, cacheSvc, logger)
	reportSvc := services.NewReportService(reportRepo, cacheSvc, cfg.Redis.ReportCacheTTL, logger)

	auth := middleware.AuthConfig{Disabled: cfg.Auth.Disabled}
	switch {
	case cfg.Auth.Disabled:
		logger.Warn("authentication disabled, every request runs as admin")
	case cfg.Auth.JWKSURL != "":
		keyFunc, stopJWKS, err := middleware.NewJWKSKeyfunc(cfg.Auth.JWKSURL, logger)
		if err != nil {
			return err
		}
		defer stopJWKS()
		auth.Keyfunc = keyFunc
	default:
		auth.Secret = middleware.DevSecret(cfg.Auth.JWTSecret, logger)
	}

	routes := routeHandlers{
		health:     handlers.NewHealthHandlers(pool, cacheSvc, minioSvc, cfg.Minio.Bucket, variant, version),
		mailboxes:  handlers.NewMailboxHandlers(mailboxSvc, packageSvc),
		tenants:    handlers.NewTenantHandlers(tenantSvc),
		packages:   handlers.NewPackageHandlers(packageSvc),
		pickups:    handlers.NewPickupHandlers(pickupSvc),
		signatures: handlers.NewSignatureHandlers(signatureSvc),
		reports:    handlers.NewReportHandlers(reportSvc, cfg.Jobs.AgingThresholdDays),
	}

	if cfg.Jobs.Enabled {
		scheduler, err := background.NewJobScheduler(
			background.Intervals{ReportWarm: cfg.Jobs.ReportWarmInterval, AgingScan: cfg.Jobs.AgingScanInterval},
			jobs.NewReportWarmer(reportSvc, logger.Named("jobs")),
			jobs.NewAgingScanner(reportSvc, cfg.Jobs.AgingThresholdDays, logger.Named("jobs")),
			logger,
		)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("job scheduler shutdown", zap.Error(err))
			}
		}()
		routes.jobs = handlers.NewJobHandlers(scheduler)
	}

	e := newEcho(cfg, logger)
	registerRoutes(e, routes, apiVersions(cfg.API), auth, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mailroom server starting",
			zap.String("version", version),
			zap.Int("port", cfg.Port),
			zap.String("schema_variant", string(variant)),
		)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newEcho(cfg *config.Config, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
	}))
	e.Use(echoMiddleware.BodyLimit(bodyLimit))
	e.Use(echoMiddleware.ContextTimeoutWithConfig(echoMiddleware.ContextTimeoutConfig{
		Timeout: cfg.RequestTimeout,
	}))
	return e
}

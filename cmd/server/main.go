package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/circletel/backend/internal/application/sync"
	"github.com/circletel/backend/internal/infrastructure/cache"
	"github.com/circletel/backend/internal/infrastructure/config"
	"github.com/circletel/backend/internal/infrastructure/logger"
	"github.com/circletel/backend/internal/infrastructure/persistence"
	"github.com/circletel/backend/internal/infrastructure/scheduler"
	"github.com/circletel/backend/internal/infrastructure/zoho"
	"github.com/circletel/backend/internal/interfaces/http/handler"
	"github.com/circletel/backend/internal/interfaces/http/middleware"
	"github.com/circletel/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CircleTel sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	recordRepo := persistence.NewGormIntegrationRecordRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	packageRepo := persistence.NewGormServicePackageRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	serviceRepo := persistence.NewGormCustomerServiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentTransactionRepository(db.DB)
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)

	// Token store: Redis with in-memory fallback outside production
	storeFactory := cache.NewTokenStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	tokenStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create token store", zap.Error(err))
	}

	// ZOHO provider clients
	zohoCfg := &zoho.Config{
		Region:         zoho.Region(cfg.Zoho.Region),
		ClientID:       cfg.Zoho.ClientID,
		ClientSecret:   cfg.Zoho.ClientSecret,
		RefreshToken:   cfg.Zoho.RefreshToken,
		OrganizationID: cfg.Zoho.OrganizationID,
		TimeoutSeconds: cfg.Zoho.TimeoutSeconds,
		AccountsURL:    cfg.Zoho.AccountsURL,
		CRMURL:         cfg.Zoho.CRMURL,
		BillingURL:     cfg.Zoho.BillingURL,
	}
	if err := zohoCfg.Validate(); err != nil {
		log.Fatal("Invalid ZOHO configuration", zap.Error(err))
	}
	limiter := zoho.NewRateLimiter(zoho.DefaultClassLimits())
	tokens := zoho.NewTokenManager(zohoCfg, limiter, tokenStore, log)
	crmClient := zoho.NewCRMClient(zohoCfg, limiter, tokens, log)
	billingClient := zoho.NewBillingClient(zohoCfg, limiter, tokens, log)

	// Application services
	entities := appsync.NewEntitySyncService(
		recordRepo, syncLogRepo,
		packageRepo, customerRepo, serviceRepo, paymentRepo, quoteRepo,
		crmClient, billingClient, log,
	)
	retrySvc := appsync.NewRetryService(recordRepo, entities, log)
	retrySvc.Tune(cfg.Sync.RetryQueueLimit, cfg.Sync.RetryPacing)
	dailySvc := appsync.NewDailySyncService(recordRepo, entities, log)
	dailySvc.Tune(cfg.Sync.DailyCap, cfg.Sync.BatchSize, cfg.Sync.ItemDelay, cfg.Sync.BatchDelay, cfg.Sync.StaleAge)
	backfillSvc := appsync.NewBackfillService(packageRepo, entities, log)
	backfillSvc.Tune(cfg.Sync.BatchSize, cfg.Sync.ItemDelay, cfg.Sync.BatchDelay)
	activationSvc := appsync.NewActivationService(
		recordRepo, customerRepo, serviceRepo, packageRepo, entities, billingClient, log,
	)
	healthSvc := appsync.NewHealthService(tokens, billingClient, remainingQuota(limiter), recordRepo, log)

	// Scheduler for the nightly run and the retry ticker
	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultConfig()
		if cfg.Scheduler.DailyCronSchedule != "" {
			schedCfg.CronSchedule = cfg.Scheduler.DailyCronSchedule
		}
		if cfg.Scheduler.JobTimeout > 0 {
			schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
		}
		sched, err := scheduler.New(schedCfg, &syncJobRunner{daily: dailySvc, retry: retrySvc}, log)
		if err != nil {
			log.Fatal("Invalid scheduler configuration", zap.Error(err))
		}
		if err := sched.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()
		log.Info("Scheduler started", zap.String("cron", schedCfg.CronSchedule))
	}

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	// Routes
	syncHandler := handler.NewSyncHandler(
		dailySvc, backfillSvc, retrySvc, entities, activationSvc, healthSvc, syncLogRepo, log,
	)
	r := router.NewRouter(engine)
	r.Register(syncHandler)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// syncJobRunner adapts the application services to the scheduler contract.
type syncJobRunner struct {
	daily *appsync.DailySyncService
	retry *appsync.RetryService
}

func (r *syncJobRunner) RunDailySync(ctx context.Context) error {
	_, err := r.daily.Run(ctx, appsync.DailySyncOptions{})
	return err
}

func (r *syncJobRunner) ProcessRetryQueue(ctx context.Context) error {
	_, err := r.retry.ProcessRetryQueue(ctx)
	return err
}

// remainingQuota exposes the rate limiter budget to the health service.
func remainingQuota(limiter *zoho.RateLimiter) appsync.QuotaFunc {
	return func() map[string]int {
		stats := limiter.Stats()
		quota := make(map[string]int, len(stats))
		for class, s := range stats {
			quota[string(class)] = s.Remaining
		}
		return quota
	}
}

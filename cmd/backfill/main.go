package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appsync "github.com/circletel/backend/internal/application/sync"
	"github.com/circletel/backend/internal/infrastructure/cache"
	"github.com/circletel/backend/internal/infrastructure/config"
	"github.com/circletel/backend/internal/infrastructure/logger"
	"github.com/circletel/backend/internal/infrastructure/persistence"
	"github.com/circletel/backend/internal/infrastructure/zoho"
)

func main() {
	var (
		dryRun     bool
		activeOnly bool
		force      bool
		limit      int
		batchSize  int
		logLevel   string
	)

	flag.BoolVar(&dryRun, "dry-run", false, "List what would be synced without making provider calls")
	flag.BoolVar(&activeOnly, "active-only", false, "Restrict the backfill to sellable packages")
	flag.BoolVar(&force, "force", false, "Re-sync packages that are already in ok state")
	flag.IntVar(&limit, "limit", 0, "Cap the number of packages, 0 for all")
	flag.IntVar(&batchSize, "batch-size", 0, "Packages per paced batch, 0 for the configured default")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	storeFactory := cache.NewTokenStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	tokenStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create token store", zap.Error(err))
	}

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

	recordRepo := persistence.NewGormIntegrationRecordRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	packageRepo := persistence.NewGormServicePackageRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	serviceRepo := persistence.NewGormCustomerServiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentTransactionRepository(db.DB)
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)

	entities := appsync.NewEntitySyncService(
		recordRepo, syncLogRepo,
		packageRepo, customerRepo, serviceRepo, paymentRepo, quoteRepo,
		crmClient, billingClient, log,
	)
	backfillSvc := appsync.NewBackfillService(packageRepo, entities, log)
	backfillSvc.Tune(cfg.Sync.BatchSize, cfg.Sync.ItemDelay, cfg.Sync.BatchDelay)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	started := time.Now()
	summary, err := backfillSvc.Run(ctx, appsync.BackfillOptions{
		DryRun:     dryRun,
		ActiveOnly: activeOnly,
		Force:      force,
		Limit:      limit,
		BatchSize:  batchSize,
	})
	if err != nil {
		log.Fatal("Backfill failed", zap.Error(err))
	}

	log.Info("Backfill finished",
		zap.Bool("dry_run", summary.DryRun),
		zap.Int("candidates", summary.TotalCandidates),
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("took", time.Since(started)),
	)

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

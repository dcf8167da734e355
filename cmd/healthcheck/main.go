package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	appsync "github.com/circletel/backend/internal/application/sync"
	"github.com/circletel/backend/internal/infrastructure/cache"
	"github.com/circletel/backend/internal/infrastructure/config"
	"github.com/circletel/backend/internal/infrastructure/logger"
	"github.com/circletel/backend/internal/infrastructure/persistence"
	"github.com/circletel/backend/internal/infrastructure/zoho"
)

// Probes the provider connection end to end: token refresh, organization
// visibility and the local retry backlog. Exits 0 when healthy, 1 otherwise.
func main() {
	var (
		timeout  time.Duration
		logLevel string
	)

	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall check timeout")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
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
		fmt.Println("UNHEALTHY: database unreachable:", err)
		os.Exit(1)
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
		fmt.Println("UNHEALTHY: token store unavailable:", err)
		os.Exit(1)
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
		fmt.Println("UNHEALTHY: invalid ZOHO configuration:", err)
		os.Exit(1)
	}
	limiter := zoho.NewRateLimiter(zoho.DefaultClassLimits())
	tokens := zoho.NewTokenManager(zohoCfg, limiter, tokenStore, log)
	billingClient := zoho.NewBillingClient(zohoCfg, limiter, tokens, log)

	recordRepo := persistence.NewGormIntegrationRecordRepository(db.DB)

	quota := func() map[string]int {
		stats := limiter.Stats()
		q := make(map[string]int, len(stats))
		for class, s := range stats {
			q[string(class)] = s.Remaining
		}
		return q
	}
	healthSvc := appsync.NewHealthService(tokens, billingClient, quota, recordRepo, log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := healthSvc.Check(ctx)
	if err != nil {
		fmt.Println("UNHEALTHY: check failed:", err)
		os.Exit(1)
	}

	for _, check := range report.Checks {
		status := "ok"
		if !check.Healthy {
			status = "FAIL"
		}
		fmt.Printf("%-14s %-4s %s (%s)\n", check.Name, status, check.Detail, check.Duration.Round(time.Millisecond))
	}
	fmt.Printf("pending retries: %d, terminal failures: %d\n", report.PendingRetries, report.TerminalFailures)

	if !report.Healthy {
		fmt.Println("UNHEALTHY")
		os.Exit(1)
	}
	fmt.Println("HEALTHY")
}

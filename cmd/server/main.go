// Package main is the entry point for the ledger API server.
// All distributions share one database; rows carry tenant_id.
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

	"github.com/redis/go-redis/v9"

	"distledger/internal/core/tenant"
	"distledger/internal/domain/audit"
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
	"distledger/internal/domain/reports"
	"distledger/internal/domain/snapshot"
	"distledger/internal/domain/stock"
	"distledger/internal/infrastructure/cache"
	"distledger/internal/infrastructure/config"
	v1 "distledger/internal/infrastructure/http/v1"
	"distledger/internal/infrastructure/http/v1/handlers"
	"distledger/internal/infrastructure/numerator"
	"distledger/internal/infrastructure/storage/postgres"
	"distledger/internal/infrastructure/storage/postgres/catalog_repo"
	"distledger/internal/infrastructure/storage/postgres/document_repo"
	"distledger/internal/infrastructure/storage/postgres/report_repo"
	"distledger/internal/infrastructure/storage/postgres/snapshot_repo"
	"distledger/internal/infrastructure/storage/postgres/stock_repo"
	"distledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting distledger server", "env", cfg.App.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)
	txManager.SetStatementTimeout(cfg.Database.StatementTimeout)

	registry := tenant.NewPostgresRegistry(pool.Pool)

	// --- Product cache ---
	var (
		store  cache.Store
		rdb    *redis.Client
		locker snapshot.Locker = snapshot.NoopLocker{}
	)
	if cfg.Redis.Enabled() {
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err, "addr", cfg.Redis.Addr)
		}
		defer func() { _ = rdb.Close() }()
		store = cache.NewRedisStore(rdb)
		locker = cache.NewRedisLocker(rdb, cfg.Redis.LockTTL)
		log.Infow("redis connection established", "addr", cfg.Redis.Addr)
	} else {
		store = cache.NewMemoryStore()
		log.Warn("redis not configured, using in-process product cache and no conversion lock")
	}

	products := cache.NewCachedReader(catalog_repo.NewProductRepo(txManager), store, cfg.Redis.ProductTTL)
	listener := cache.NewProductListener(pool.Pool, products)
	listener.Start(ctx)
	defer listener.Stop()

	// --- Services ---
	numbers := numerator.New(pool.Pool)

	stockService := stock.NewService(stock_repo.NewStockRepo(txManager), products, txManager)
	receiptService := receipt.NewService(document_repo.NewReceiptRepo(txManager), stockService, products, numbers, txManager)
	issueService := issue.NewService(document_repo.NewIssueRepo(txManager), stockService, products, numbers, txManager)
	snapshotService := snapshot.NewService(snapshot_repo.NewSnapshotRepo(txManager), products, txManager)
	converter := snapshot.NewConverter(stockService, snapshotService, locker)
	reportService := reports.NewService(report_repo.NewReportRepo(txManager), products, registry)

	auditLog, err := postgres.NewAuditLog(txManager, cfg.Report.AuditCompressThreshold)
	if err != nil {
		log.Fatalw("failed to create audit log", "error", err)
	}
	audit.AttachAll(auditLog, audit.Services{
		Stock:     stockService,
		Receipts:  receiptService,
		Issues:    issueService,
		Snapshots: snapshotService,
	})

	// --- Router ---
	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error { return pool.Ping(ctx) },
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	router := v1.NewRouter(v1.RouterConfig{
		Logger:        log,
		Tenants:       registry,
		Stock:         stockService,
		Receipts:      receiptService,
		Issues:        issueService,
		Snapshots:     snapshotService,
		Converter:     converter,
		Reports:       reportService,
		AllowShortage: cfg.Report.AllowUnderflow,
		HealthChecks:  checks,
		HealthStats:   func() any { return postgres.GetPoolStats(pool.Pool) },
		Debug:         cfg.App.IsDevelopment(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	go logPoolStats(ctx, pool)

	// --- Graceful shutdown ---
	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func logPoolStats(ctx context.Context, pool *postgres.Pool) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			postgres.LogPoolStats(ctx, pool.Pool)
		}
	}
}

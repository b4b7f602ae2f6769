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

	apppossync "github.com/posledger/backend/internal/application/possync"
	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/infrastructure/auth"
	"github.com/posledger/backend/internal/infrastructure/cache"
	"github.com/posledger/backend/internal/infrastructure/config"
	"github.com/posledger/backend/internal/infrastructure/logger"
	"github.com/posledger/backend/internal/infrastructure/persistence"
	"github.com/posledger/backend/internal/infrastructure/pos"
	"github.com/posledger/backend/internal/infrastructure/scheduler"
	"github.com/posledger/backend/internal/interfaces/http/handler"
	"github.com/posledger/backend/internal/interfaces/http/middleware"
	"github.com/posledger/backend/internal/interfaces/http/router"
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

	log.Info("Starting POS Ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
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

	// Repositories
	connectionRepo := persistence.NewGormPOSConnectionRepository(db.DB)
	saleRecordRepo := persistence.NewGormSaleRecordRepository(db.DB)
	categoryRuleRepo := persistence.NewGormCategoryRuleRepository(db.DB)
	dailyAggregateRepo := persistence.NewGormDailyAggregateRepository(db.DB)

	// Tenant sync leases: Redis when reachable, in-memory otherwise
	leaseFactory := cache.NewTenantLeaseFactory(cfg.Redis, cfg.POS.LeaseTTL, cache.WithLogger(log))
	tenantLocks, err := leaseFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create tenant lease store", zap.Error(err))
	}

	// POS gateway registry
	registry, err := buildGatewayRegistry(&cfg.POS, log)
	if err != nil {
		log.Fatal("Failed to configure POS gateways", zap.Error(err))
	}

	// Application services
	syncService := apppossync.NewSyncService(connectionRepo, saleRecordRepo, registry, log)
	categorizationService := apppossync.NewCategorizationService(categoryRuleRepo, saleRecordRepo, log)
	aggregationService := apppossync.NewAggregationService(saleRecordRepo, dailyAggregateRepo, log)
	orchestrator := apppossync.NewOrchestrator(
		connectionRepo,
		syncService,
		categorizationService,
		aggregationService,
		tenantLocks,
		log,
	)

	// Job queue for administrative resyncs and window repairs
	executor := scheduler.NewPipelineExecutor(
		connectionRepo,
		syncService,
		categorizationService,
		aggregationService,
		tenantLocks,
		log,
	)
	syncScheduler, err := scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
		Enabled:           cfg.Scheduler.Enabled,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		RetryAttempts:     cfg.Scheduler.RetryAttempts,
		RetryDelay:        cfg.Scheduler.RetryDelay,
	}, executor, log)
	if err != nil {
		log.Fatal("Failed to create sync scheduler", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := syncScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}

	// Periodic incremental passes over all active connections
	var trigger *scheduler.SyncTrigger
	if cfg.Scheduler.Enabled {
		trigger, err = scheduler.NewSyncTrigger(scheduler.SyncTriggerConfig{
			Interval: cfg.Scheduler.SyncInterval,
		}, orchestrator, log)
		if err != nil {
			log.Fatal("Failed to create sync trigger", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
		log.Info("Incremental sync trigger started",
			zap.Duration("interval", cfg.Scheduler.SyncInterval))
	} else {
		log.Warn("Scheduler disabled, incremental syncs will not run")
	}

	// HTTP server
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(1 << 20))
	engine.Use(middleware.RateLimit(middleware.NewRateLimiter(300, time.Minute)))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))

	if cfg.JWT.Secret != "" {
		jwtService := auth.NewJWTService(cfg.JWT)
		engine.Use(middleware.JWTAuthMiddleware(jwtService))
	} else {
		log.Warn("JWT secret not configured, API authentication is disabled")
	}

	systemHandler := handler.NewSystemHandler(db)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/healthz", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	router.NewRouter(engine).
		Register(systemHandler).
		Register(handler.NewConnectionHandler(connectionRepo)).
		Register(handler.NewRuleHandler(categoryRuleRepo)).
		Register(handler.NewSyncHandler(syncScheduler)).
		Register(handler.NewAggregateHandler(dailyAggregateRepo)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Error("Sync trigger stop failed", zap.Error(err))
		}
	}
	if err := syncScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Sync scheduler stop failed", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	log.Info("Server stopped")
}

// buildGatewayRegistry wires one gateway per POS system. With stubs enabled
// every system serves deterministic generated data; otherwise only systems
// with configured credentials are registered.
func buildGatewayRegistry(cfg *config.POSConfig, log *zap.Logger) (*pos.Registry, error) {
	registry := pos.NewRegistry()

	if cfg.StubEnabled {
		stub := pos.NewStubAdapter(0)
		for _, system := range []possync.POSSystem{
			possync.POSSystemSquare,
			possync.POSSystemClover,
			possync.POSSystemToast,
			possync.POSSystemGeneric,
		} {
			registry.Register(system, stub)
		}
		log.Warn("POS stub mode enabled, all gateways serve generated data")
		return registry, nil
	}

	if cfg.SquareAccessToken != "" {
		square, err := pos.NewSquareAdapter(&pos.SquareConfig{
			APIBaseURL:  cfg.SquareBaseURL,
			AccessToken: cfg.SquareAccessToken,
			Timeout:     cfg.RequestTimeout,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(possync.POSSystemSquare, square)
		log.Info("Square gateway registered", zap.String("base_url", cfg.SquareBaseURL))
	}

	if cfg.CloverAPIToken != "" {
		clover, err := pos.NewCloverAdapter(&pos.CloverConfig{
			APIBaseURL: cfg.CloverBaseURL,
			APIToken:   cfg.CloverAPIToken,
			Timeout:    cfg.RequestTimeout,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(possync.POSSystemClover, clover)
		log.Info("Clover gateway registered", zap.String("base_url", cfg.CloverBaseURL))
	}

	if len(registry.Systems()) == 0 {
		log.Warn("No POS gateways configured, sync runs will fail until one is registered")
	}

	return registry, nil
}

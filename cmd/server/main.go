package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/agentchat/backend/internal/application/billing"
	appusage "github.com/agentchat/backend/internal/application/usage"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/infrastructure/cache"
	"github.com/agentchat/backend/internal/infrastructure/config"
	"github.com/agentchat/backend/internal/infrastructure/livekit"
	"github.com/agentchat/backend/internal/infrastructure/logger"
	"github.com/agentchat/backend/internal/infrastructure/persistence"
	"github.com/agentchat/backend/internal/infrastructure/scheduler"
	"github.com/agentchat/backend/internal/interfaces/http/handler"
	"github.com/agentchat/backend/internal/interfaces/http/middleware"
	"github.com/agentchat/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
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

	log.Info("Starting AgentChat billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Idempotency store: Redis when configured, in-memory otherwise.
	// The in-memory store is per-instance; run Redis when deploying more
	// than one replica.
	var idempotencyStore shared.IdempotencyStore
	if cfg.Redis.Enabled {
		store, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		idempotencyStore = store
		log.Info("Redis idempotency store connected")
	} else {
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
		log.Info("Using in-memory idempotency store")
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Repositories
	profileRepo := persistence.NewUserProfileRepository(db.DB)
	counterRepo := persistence.NewUsageCounterRepository(db.DB)
	invoiceRepo := persistence.NewInvoiceRepository(db.DB)
	historyRepo := persistence.NewBillingHistoryRepository(db.DB)
	paymentRepo := persistence.NewPaymentRepository(db.DB)
	webhookRepo := persistence.NewWebhookEventRepository(db.DB)

	// Application services
	trialService := appbilling.NewTrialService(appbilling.TrialServiceConfig{
		ProfileRepo:   profileRepo,
		HistoryRepo:   historyRepo,
		TrialDuration: cfg.Billing.TrialDuration,
		Logger:        log,
	})
	invoiceService := appbilling.NewInvoiceService(appbilling.InvoiceServiceConfig{
		ProfileRepo: profileRepo,
		CounterRepo: counterRepo,
		InvoiceRepo: invoiceRepo,
		HistoryRepo: historyRepo,
		Logger:      log,
	})
	triggerEvaluator := appbilling.NewTriggerEvaluator(appbilling.TriggerEvaluatorConfig{
		ProfileRepo: profileRepo,
		InvoiceRepo: invoiceRepo,
		Invoices:    invoiceService,
		Threshold:   cfg.Billing.OverageThreshold,
		Logger:      log,
	})
	billingService := appbilling.NewBillingService(appbilling.BillingServiceConfig{
		ProfileRepo:  profileRepo,
		CounterRepo:  counterRepo,
		InvoiceRepo:  invoiceRepo,
		HistoryRepo:  historyRepo,
		PaymentRepo:  paymentRepo,
		Trials:       trialService,
		Invoices:     invoiceService,
		HistoryLimit: cfg.Billing.InvoiceHistoryLimit,
		Logger:       log,
	})
	trackingService := appusage.NewTrackingService(counterRepo, log)
	webhookProcessor := appusage.NewWebhookProcessor(appusage.WebhookProcessorConfig{
		Config:           livekit.Config{WebhookSecret: cfg.Livekit.WebhookSecret},
		IdempotencyStore: idempotencyStore,
		IdempotencyConfig: shared.IdempotencyConfig{
			TTL:     cfg.Livekit.IdempotencyTTL,
			Enabled: true,
		},
		RecordRepo: webhookRepo,
		Tracking:   trackingService,
		Trigger:    triggerEvaluator,
		Logger:     log,
	})

	// Billing cycle scheduler
	cycleScheduler := scheduler.NewBillingCycleScheduler(
		invoiceService,
		trialService,
		log,
		scheduler.BillingCycleSchedulerConfig{
			Enabled:       cfg.Scheduler.Enabled,
			CheckInterval: cfg.Scheduler.CheckInterval,
			JobTimeout:    cfg.Scheduler.JobTimeout,
		},
	)
	if err := cycleScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start billing cycle scheduler", zap.Error(err))
	}
	if cycleScheduler.IsRunning() {
		// Catch up on cycles that ended and trials that expired while the
		// service was down, instead of waiting for the first tick.
		if err := cycleScheduler.TriggerImmediateSweep(context.Background()); err != nil {
			log.Warn("Startup billing sweep failed to start", zap.Error(err))
		}
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := cycleScheduler.Stop(stopCtx); err != nil {
			log.Error("Error stopping billing cycle scheduler", zap.Error(err))
		}
	}()

	// HTTP engine and middleware stack
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Handlers
	systemHandler := handler.NewSystemHandler(db)
	billingHandler := handler.NewBillingHandler(billingService)
	webhookHandler := handler.NewLivekitWebhookHandler(webhookProcessor)

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(systemHandler)
	r.Register(billingHandler)
	r.Register(webhookHandler)
	r.Setup()

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

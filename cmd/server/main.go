package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/cache"
	"github.com/SAP-F-2025/session-engine/internal/config"
	"github.com/SAP-F-2025/session-engine/internal/events"
	"github.com/SAP-F-2025/session-engine/internal/handlers"
	"github.com/SAP-F-2025/session-engine/internal/repositories/postgres"
	"github.com/SAP-F-2025/session-engine/internal/services"
	"github.com/SAP-F-2025/session-engine/internal/utils"
	"github.com/SAP-F-2025/session-engine/internal/worker"
	"github.com/SAP-F-2025/session-engine/pkg"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	logger := utils.LoggerForEnvironment(cfg.Environment)
	logger.Info("starting session engine",
		"port", cfg.Port,
		"environment", cfg.Environment)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := pkg.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		logger.Error("failed to create event publisher", "error", err)
		publisher = events.NewMockEventPublisher(logger)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	cacheService := cache.NewRedisCache(redisClient, logger)
	validator := utils.NewValidator()

	mediaService, err := services.NewMediaService(cfg.MediaDir, cfg.MediaBaseURL, logger)
	if err != nil {
		logger.Error("failed to init media storage", "error", err)
		os.Exit(1)
	}
	proctoringService := services.NewProctoringService(redisClient, repo, logger)
	exportService := services.NewExportService(repo, logger, validator)
	sessionManager := services.NewSessionManager(services.SessionManagerConfig{
		Repo:            repo,
		Cache:           cacheService,
		Proctoring:      proctoringService,
		Media:           mediaService,
		Publisher:       publisher,
		Validator:       validator,
		Logger:          logger,
		AutosaveQuiet:   cfg.AutosaveQuiet,
		AutosavePeriod:  cfg.AutosavePeriod,
		ViolationMaxAge: cfg.ViolationMaxAge,
		TickInterval:    cfg.TimerTickInterval,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	violationWorker := worker.NewViolationWorker(repo, redisClient, logger)
	go violationWorker.Start(workerCtx)

	var auth gin.HandlerFunc
	if cfg.CasdoorClientID != "" {
		casdoorClient := casdoorsdk.NewClient(
			cfg.CasdoorEndpoint,
			cfg.CasdoorClientID,
			cfg.CasdoorClientSecret,
			cfg.CasdoorCertificate,
			cfg.CasdoorOrganization,
			cfg.CasdoorApplication,
		)
		auth = handlers.AuthMiddleware(casdoorClient, logger)
	} else {
		logger.Warn("casdoor not configured, using development auth")
		auth = handlers.DevAuthMiddleware()
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.RequestLogger(logger))

	handlerManager := handlers.NewHandlerManager(
		sessionManager,
		proctoringService,
		exportService,
		validator,
		auth,
		cfg.MediaDir,
		logger,
	)
	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Active sessions flush their drafts and violation queues first, then
	// the worker drains what they spooled, then the listener closes.
	sessionManager.Shutdown(shutdownCtx)
	workerCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	logger.Info("server stopped")
}

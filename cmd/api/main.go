package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/health-assistant/cmd/mainconfig"
	"github.com/wolfman30/health-assistant/internal/api/router"
	"github.com/wolfman30/health-assistant/internal/app/bootstrap"
	"github.com/wolfman30/health-assistant/internal/assistant"
	"github.com/wolfman30/health-assistant/internal/compliance"
	appconfig "github.com/wolfman30/health-assistant/internal/config"
	"github.com/wolfman30/health-assistant/internal/healthapi"
	httpmiddleware "github.com/wolfman30/health-assistant/internal/http/middleware"
	"github.com/wolfman30/health-assistant/internal/webchat"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting health-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"session_backend", cfg.SessionBackend,
	)

	ctx := context.Background()

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("aws config unavailable; aws-backed sinks disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	// Stores
	var redisClient *redis.Client
	if cfg.SessionBackend == "redis" {
		redisClient = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	sessionStore := bootstrap.BuildSessionStore(cfg, redisClient, logger)
	defer sessionStore.Close()

	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	history := bootstrap.BuildHistoryStore(pool, logger)

	var auditor *compliance.AuditService
	if db, err := bootstrap.OpenSQLDB(ctx, cfg.DatabaseURL); err != nil {
		logger.Warn("safety audit trail disabled", "error", err)
	} else if db != nil {
		defer db.Close()
		auditor = compliance.NewAuditService(db)
	}

	// Model-backed collaborators
	metricsHandler, chatMetrics := setupChatMetrics()
	collaborators, err := bootstrap.BuildCollaborators(ctx, cfg, awsCfg, chatMetrics, logger)
	if err != nil {
		logger.Error("failed to build llm collaborators", "error", err)
		os.Exit(1)
	}
	defer func() { _ = collaborators.Close() }()

	queryLog := bootstrap.BuildQueryRecorder(cfg, awsCfg, logger)
	alerter := bootstrap.BuildSafetyAlerter(cfg, bootstrap.BuildEmailSender(cfg, awsCfg, logger), logger)
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPerMinute)
	defer limiter.Stop()

	service := buildHealthBot(cfg, healthBotDeps{
		Store:         sessionStore,
		History:       history,
		Collaborators: collaborators,
		Domain:        healthapi.NewClient(cfg.DomainAPIBaseURL, logger, healthapi.WithTimeout(cfg.DomainAPITimeout)),
		Metrics:       chatMetrics,
		QueryLog:      queryLog,
		Auditor:       auditor,
		Alerter:       alerter,
		Transcriber:   bootstrap.BuildTranscriber(cfg, awsCfg, logger),
		Limiter:       limiter,
	}, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		HealthBot:          assistant.NewHandler(service, logger),
		WebChat:            webchat.NewHandler(service, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		UserAuthSecret:     cfg.JWTSecret,
		Checks:             readinessChecks(redisClient, pool),
	}
	r := router.New(routerCfg)

	// Create HTTP server. Chat turns can chain several model calls, so the
	// write timeout is longer than the read timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := queryLog.Close(shutdownCtx); err != nil {
		logger.Warn("query log did not drain", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

/**
 * @description
 * This is the main entry point for the ErinGPT billing service.
 * It initializes and wires together all the components of the application:
 * configuration, the database pool, the Stripe and OpenAI clients, the
 * optional RabbitMQ producer and Redis limiter, the application services,
 * and the HTTP router. Finally, it starts the HTTP server and shuts it down
 * gracefully on SIGINT/SIGTERM.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ejacques1/ErinGPT-Builder/internal/api"
	"github.com/ejacques1/ErinGPT-Builder/internal/app"
	"github.com/ejacques1/ErinGPT-Builder/internal/config"
	"github.com/ejacques1/ErinGPT-Builder/internal/store"
	"github.com/ejacques1/ErinGPT-Builder/pkg/openaiclient"
	"github.com/ejacques1/ErinGPT-Builder/pkg/rabbitmq"
	"github.com/ejacques1/ErinGPT-Builder/pkg/stripeclient"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.StripeSecretKey == "" {
		logger.Error("STRIPE_SECRET_KEY is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to PostgreSQL with connection pool configuration
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Supabase pools connections through PgBouncer in transaction mode;
	// simple protocol avoids prepared-statement cache errors (SQLSTATE 42P05).
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// External collaborator clients live for the whole process.
	billing := stripeclient.NewClient(cfg.StripeSecretKey)
	completions := openaiclient.NewClient(cfg.OpenAIAPIKey, "")

	// Lifecycle event fan-out is optional; the service runs without it.
	var publisher app.EventPublisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = producer
		logger.Info("lifecycle event fan-out enabled")
	}

	// The chat rate limiter is optional as well.
	var limiter api.RateLimiter
	if cfg.RedisURL != "" && cfg.ChatRateLimit > 0 {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("unable to parse Redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		limiter = app.NewChatRateLimiter(redisClient, "")
		logger.Info("chat rate limiting enabled", "limit", cfg.ChatRateLimit)
	}

	// Initialize application layers
	repository := store.NewPostgresRepository(dbpool)
	service := app.NewService(repository, billing, app.Options{
		AppBaseURL:         cfg.AppBaseURL,
		CreatorPriceCents:  cfg.CreatorPriceCents,
		PlatformFeePercent: cfg.PlatformFeePercent,
	})
	reconciler := app.NewReconciler(repository, publisher)
	completionService := app.NewCompletionService(completions, cfg.OpenAIModel)

	handler := api.NewHandler(service)
	webhookHandler := api.NewWebhookHandler(cfg.StripeWebhookSecret, reconciler)
	completionHandler := api.NewCompletionHandler(
		completionService,
		cfg.OpenAIAPIKey != "",
		limiter,
		cfg.ChatRateLimit,
		time.Duration(cfg.ChatRateWindowSeconds)*time.Second,
	)
	router := api.NewRouter(handler, webhookHandler, completionHandler, cfg.SupabaseJWTSecret)

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}

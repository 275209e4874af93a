// Package main is the entry point for the VerifyHire API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/verifyhire/backend/internal/api"
	"github.com/verifyhire/backend/internal/auth"
	"github.com/verifyhire/backend/internal/config"
	"github.com/verifyhire/backend/internal/db"
	"github.com/verifyhire/backend/internal/health"
	"github.com/verifyhire/backend/internal/middleware"
	"github.com/verifyhire/backend/internal/notify"
	"github.com/verifyhire/backend/internal/payment"
	"github.com/verifyhire/backend/internal/tracing"
	"github.com/verifyhire/backend/internal/waitlist"
)

const (
	serviceName    = "verifyhire-api"
	serviceVersion = "0.1.0"
)

// appDeps bundles everything the HTTP route table needs, so the full
// handler chain can be assembled the same way in tests as in main.
type appDeps struct {
	cfg            *config.Config
	logger         *slog.Logger
	metrics        *middleware.Metrics
	registry       *prometheus.Registry
	repo           waitlist.Repository
	webhookRepo    payment.WebhookRepository
	stripeClient   payment.Client
	notifier       notify.Notifier
	rateLimitStore middleware.RateLimitStore
	healthConfig   api.HealthHandlersConfig
}

// buildHandler assembles the route table and middleware chain.
func buildHandler(d appDeps) http.Handler {
	jwtService := auth.NewJWTService(d.cfg.JWTSecret)
	waitlistService := waitlist.NewService(d.repo, d.notifier, d.logger)

	waitlistHandlers := api.NewWaitlistHandlers(waitlistService)
	depositHandlers := api.NewDepositHandlers(
		d.repo,
		d.stripeClient,
		d.cfg.DepositAmountCents,
		d.cfg.CheckoutSuccessURL(),
		d.cfg.CheckoutCancelURL(),
	)
	webhookHandlers := api.NewWebhookHandlers(d.cfg.StripeWebhookSecret, d.repo, d.webhookRepo, d.stripeClient, d.metrics)
	contactHandlers := api.NewContactHandlers(d.notifier)
	healthHandlers := api.NewHealthHandlers(d.healthConfig)
	infoHandlers := api.NewInfoHandlers(serviceName, serviceVersion, d.cfg.ComingSoonMode)

	keyFunc := middleware.IPKeyFunc()
	joinLimiter := middleware.RateLimiter(d.rateLimitStore, middleware.DefaultJoinLimit(), keyFunc, "join", d.metrics)
	checkoutLimiter := middleware.RateLimiter(d.rateLimitStore, middleware.DefaultCheckoutLimit(), keyFunc, "checkout", d.metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	mux.Handle("POST /waitlist/join", joinLimiter(http.HandlerFunc(waitlistHandlers.Join)))
	mux.Handle("POST /deposits/checkout", checkoutLimiter(http.HandlerFunc(depositHandlers.CreateCheckout)))
	mux.HandleFunc("GET /deposits/status", depositHandlers.GetStatus)
	mux.Handle("POST /deposits/status", middleware.OperatorAuth(jwtService)(http.HandlerFunc(depositHandlers.PostAction)))
	mux.HandleFunc("POST /internal/stripe", webhookHandlers.HandleStripeWebhook)
	mux.HandleFunc("POST /contact", contactHandlers.Submit)
	mux.HandleFunc("/", infoHandlers.Root)

	// Middleware chain: RequestID -> Tracing -> Logging -> HTTPMetrics -> GlobalRateLimit
	var handler http.Handler = mux
	handler = middleware.RateLimiter(d.rateLimitStore, middleware.DefaultGlobalLimit(), keyFunc, "global", d.metrics)(handler)
	handler = middleware.HTTPMetrics(d.metrics)(handler)
	handler = middleware.Logging(d.logger)(handler)
	if d.cfg.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.RequestID(handler)
	return handler
}

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to YAML config file (environment variables take precedence)")
	flag.Parse()

	if *help {
		fmt.Println("VerifyHire API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx := context.Background()

	// Tracing (no-op provider when disabled)
	samplingRate := 1.0
	if cfg.IsProduction() {
		samplingRate = 0.1
	}
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: "otlp-grpc",
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: samplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracer provider", "error", err)
		}
	}()

	// Database: required in production, in-memory fallback for local development
	var (
		repo          waitlist.Repository
		webhookRepo   payment.WebhookRepository
		healthConfig  api.HealthHandlersConfig
		closeDatabase func()
	)
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	switch {
	case err == nil:
		repo = waitlist.NewPostgresRepository(conn, logger)
		webhookRepo = payment.NewPostgresWebhookRepository(conn)
		healthConfig.DBChecker = health.NewDBChecker(conn)
		closeDatabase = func() {
			if err := conn.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}
		logger.Info("connected to database")
	case cfg.IsProduction():
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	default:
		logger.Warn("database unavailable, using in-memory storage", "error", err)
		repo = waitlist.NewInMemoryRepository()
		webhookRepo = payment.NewInMemoryWebhookRepository()
		closeDatabase = func() {}
	}
	defer closeDatabase()

	// Metrics
	metrics := middleware.NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Redis backs rate limiting when configured; in-memory otherwise
	var rateLimitStore middleware.RateLimitStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("failed to close redis client", "error", err)
			}
		}()
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient, metrics, logger)
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
		logger.Info("rate limiting backed by redis")
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memStore.Cleanup()
			}
		}()
		rateLimitStore = memStore
		logger.Info("rate limiting backed by in-memory store")
	}

	// Email: Resend when configured, in-memory sink otherwise
	var notifier notify.Notifier
	if cfg.ResendAPIKey != "" {
		notifier = notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom, cfg.ContactInbox)
	} else {
		logger.Warn("RESEND_API_KEY not set, emails will not be delivered")
		notifier = notify.NewInMemoryNotifier()
	}

	handler := buildHandler(appDeps{
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics,
		registry:       registry,
		repo:           repo,
		webhookRepo:    webhookRepo,
		stripeClient:   payment.NewStripeClient(cfg.StripeAPIKey),
		notifier:       notifier,
		rateLimitStore: rateLimitStore,
		healthConfig:   healthConfig,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

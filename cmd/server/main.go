package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-todo-app/internal/adapter/api/rest"
	"go-todo-app/internal/config"
	"go-todo-app/internal/core/ports"
	"go-todo-app/internal/core/service"
	"go-todo-app/internal/observability"
)

// -- MAIN --

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on environment variables")
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init Tracing
	tpShutdown, err := observability.InitTracerProvider(ctx, "todo-api", cfg.OtelExporterEndpoint)
	if err != nil {
		logger.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}

	// Init Storage
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	// Init Rate Limiter
	authLimiter, limiterPinger := openLimiter(cfg, logger)

	// Service Init
	authSvc := observability.NewInstrumentedAuthService(service.NewAuthService(store.users, cfg.JWTSecret))
	todoSvc := service.NewTodoService(store.todos, logger)

	// Init Handlers
	todoHandler := rest.NewTodoHandler(todoSvc, logger)
	authHandler := rest.NewAuthHandler(authSvc, logger)
	healthHandler := rest.NewHealthHandler(map[string]ports.Pinger{
		"storage":   store.pinger,
		"ratelimit": limiterPinger,
	}, logger)

	// Init Router
	router := rest.NewRouter(todoHandler, authHandler, healthHandler,
		rest.AuthMiddleware(authSvc, logger),
		rest.RateLimit(observability.NewInstrumentedLimiter(authLimiter), logger),
		rest.RequestID, rest.Logger(logger), rest.Recoverer(logger), observability.Middleware,
	)

	// Note: Usually /metrics is on a separate admin port or protected, adding to main mux for simplicity
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", srv.Addr, "env", cfg.AppEnv, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := authLimiter.Close(); err != nil {
		logger.Error("failed to close rate limiter", "error", err)
	}
	if err := store.close(shutdownCtx); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
	if err := tpShutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", "error", err)
	}

	logger.Info("Server exited")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

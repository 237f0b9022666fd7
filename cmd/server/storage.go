package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-todo-app/internal/adapter/ratelimit/local"
	"go-todo-app/internal/adapter/ratelimit/redis"
	"go-todo-app/internal/adapter/storage/memory"
	"go-todo-app/internal/adapter/storage/mongodb"
	"go-todo-app/internal/adapter/storage/postgres"
	"go-todo-app/internal/config"
	"go-todo-app/internal/core/ports"
	"go-todo-app/internal/observability"
)

// backend bundles the repositories of one storage driver with its health
// check and teardown.
type backend struct {
	users  ports.UserRepository
	todos  ports.TodoRepository
	pinger ports.Pinger
	close  func(context.Context) error
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return backend{}, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		logger.Info("connected to mongo", "database", cfg.MongoDatabase)
		return backend{
			users:  client.Users(),
			todos:  client.Todos(),
			pinger: client,
			close:  client.Close,
		}, nil

	case config.DriverPostgres:
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return backend{}, fmt.Errorf("unable to connect to database: %w", err)
		}
		if err := postgres.RunMigrations(ctx, dbPool, logger); err != nil {
			dbPool.Close()
			return backend{}, err
		}
		observability.StartDBStatsCollector(ctx, dbPool)
		return backend{
			users:  postgres.NewUserRepository(dbPool),
			todos:  postgres.NewTodoRepository(dbPool),
			pinger: dbPool,
			close: func(context.Context) error {
				dbPool.Close()
				return nil
			},
		}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return backend{
			users:  store.Users(),
			todos:  store.Todos(),
			pinger: store,
			close:  func(context.Context) error { return nil },
		}, nil
	}
	return backend{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

type limiter interface {
	ports.RateLimiter
	Close() error
}

// openLimiter returns the signup/login limiter and, for Redis, the pinger
// readiness should check.
func openLimiter(cfg config.Config, logger *slog.Logger) (limiter, ports.Pinger) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, rate limiting per instance")
		return local.NewLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst), nil
	}
	l := redis.NewLimiter(cfg.RedisAddr, cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	return l, l
}

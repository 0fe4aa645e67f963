package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/vladyslavplus/orderly/internal/broker"
	"github.com/vladyslavplus/orderly/internal/config"
	"github.com/vladyslavplus/orderly/internal/event"
	httptransport "github.com/vladyslavplus/orderly/internal/http"
	"github.com/vladyslavplus/orderly/internal/http/handler"
	httpmiddleware "github.com/vladyslavplus/orderly/internal/http/middleware"
	"github.com/vladyslavplus/orderly/internal/inventory"
	"github.com/vladyslavplus/orderly/internal/jwt"
	"github.com/vladyslavplus/orderly/internal/repository"
	"github.com/vladyslavplus/orderly/internal/server"
	"github.com/vladyslavplus/orderly/internal/service"
	"github.com/vladyslavplus/orderly/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newProductRepository,
			newPublisher,
			service.NewProductService,
			handler.NewCatalogHandler,
			newSigner,
			newAuthMiddleware,
			newRateLimiter,
			newRouter,
			newDedupGuard,
			newReconciler,
		),
		fx.Invoke(useTelemetry, startConsumers, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if cfg.JWTSecret == "" {
		return config.Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(2)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newProductRepository(pool *pgxpool.Pool) repository.ProductRepository {
	return repository.NewPostgresProductRepo(pool)
}

func newPublisher(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) broker.Publisher {
	publisher := broker.NewKafkaPublisher(cfg.KafkaBrokers, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher
}

func newSigner(cfg config.Config) (*jwt.Signer, error) {
	return jwt.NewSigner([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL)
}

func newAuthMiddleware(signer *jwt.Signer) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Signer: signer}
}

func newRateLimiter(cfg config.Config) *httpmiddleware.RateLimiter {
	return httpmiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newRouter(cfg config.Config, catalogHandler *handler.CatalogHandler, authMiddleware *httpmiddleware.Auth, rateLimiter *httpmiddleware.RateLimiter) *server.HTTPServer {
	return server.NewHTTPServer(httptransport.NewCatalogRouter(cfg, catalogHandler, authMiddleware, rateLimiter), cfg.ShutdownTimeout)
}

// newDedupGuard returns a nil guard unless duplicate suppression is enabled.
// The consumers are idempotent against over-delivery only through the clamp,
// so the guard is an optional hardening layer, not a correctness requirement.
func newDedupGuard(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) inventory.Guard {
	if !cfg.InventoryDedup {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	logger.Info("inventory dedup enabled", zap.String("redis_addr", cfg.RedisAddr))
	return inventory.NewRedisGuard(client, cfg.InventoryDedupTTL)
}

func newReconciler(products repository.ProductRepository, guard inventory.Guard, logger *zap.Logger) *inventory.Reconciler {
	return inventory.NewReconciler(products, guard, logger)
}

func startConsumers(lc fx.Lifecycle, cfg config.Config, reconciler *inventory.Reconciler, logger *zap.Logger) {
	topics := []string{event.TopicOrderCreated, event.TopicOrderDeleted}

	var (
		cancel    context.CancelFunc
		consumers []*broker.Consumer
		done      []chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop

			for _, topic := range topics {
				consumer := broker.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, topic, logger)
				consumers = append(consumers, consumer)

				finished := make(chan struct{})
				done = append(done, finished)

				go func() {
					defer close(finished)
					if err := consumer.Run(runCtx, reconciler.Handle); err != nil {
						logger.Error("consumer stopped",
							zap.String("topic", consumer.Topic()),
							zap.Error(err),
						)
					}
				}()
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			for _, consumer := range consumers {
				if err := consumer.Close(); err != nil {
					logger.Warn("close consumer", zap.Error(err))
				}
			}
			for _, finished := range done {
				select {
				case <-finished:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}

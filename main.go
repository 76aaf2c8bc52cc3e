// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cheapflightsfrom/backend/cache"
	"github.com/cheapflightsfrom/backend/config"
	"github.com/cheapflightsfrom/backend/database"
	"github.com/cheapflightsfrom/backend/handlers"
	"github.com/cheapflightsfrom/backend/logging"
	"github.com/cheapflightsfrom/backend/models"
	"github.com/cheapflightsfrom/backend/services"
	"github.com/cheapflightsfrom/backend/utils"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logging.Fatal().Err(err).Msg("error loading configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.Info().
		Str("port", cfg.Server.Port).
		Str("driver", cfg.Database.Driver).
		Str("cache", cfg.Cache.Backend).
		Msg("starting price insight backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := database.NewManager(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("error creating connection manager")
	}
	defer mgr.Close()
	store := database.NewStore(database.NewExecutor(mgr, cfg.Database, cfg.Breaker), cfg.Database.AuxiliaryPriceTable)

	cacheStore, closeCache, err := newCacheStore(ctx, cfg.Cache)
	if err != nil {
		logging.Fatal().Err(err).Msg("error initializing cache")
	}
	defer closeCache()

	metros, err := utils.DefaultMetros()
	if err != nil {
		logging.Fatal().Err(err).Msg("error loading metro table")
	}
	regions := utils.NewRegionClassifier(metros.IsDomestic, models.Region(cfg.Regions.Default))

	insights := services.NewInsightService(store, cache.New(cacheStore, cache.WithComputeTimeout(cfg.Cache.ComputeTimeout)), metros, regions, cfg.Cache.TTL)
	h := handlers.NewHandler(insights, services.NewWarmer(insights), mgr, cfg.Server.CronSecret, cfg.Warm.Metros)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newCacheStore builds the configured cache backend. The memory store gets a janitor
// tied to ctx; the redis client is pinged before use.
func newCacheStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, func(), error) {
	if cfg.Backend != "redis" {
		mem := cache.NewMemoryStore()
		mem.StartJanitor(ctx, cfg.SweepInterval)
		return mem, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return cache.NewRedisStore(client, cfg.KeyPrefix), func() { client.Close() }, nil
}

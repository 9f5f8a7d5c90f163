// Package main is the entry point for the log analyzer HTTP service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/henrilopes1/log-analyzer/internal/api"
	"github.com/henrilopes1/log-analyzer/internal/cache"
	"github.com/henrilopes1/log-analyzer/internal/config"
	apperrors "github.com/henrilopes1/log-analyzer/internal/errors"
	"github.com/henrilopes1/log-analyzer/internal/export"
	"github.com/henrilopes1/log-analyzer/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	apperrors.SetProductionMode(cfg.Server.Environment == "production")

	logger.Info("configuration loaded",
		"environment", cfg.Server.Environment,
		"http_port", cfg.Server.HTTPPort,
		"auth_enabled", cfg.Auth.Enabled,
		"cache_enabled", cfg.Cache.Enabled,
		"kafka_enabled", cfg.Kafka.Enabled,
	)

	// Result cache: memory tier always, Redis tier only when configured.
	var resultCache *cache.TwoTier
	if cfg.Cache.Enabled {
		var redisClient cache.RedisClient
		if cfg.Cache.Redis.Enabled {
			redisClient, err = cache.NewGoRedisClient(cache.RedisConfig{
				Addr:         cfg.Cache.Redis.Addr,
				Password:     cfg.Cache.Redis.Password,
				DB:           cfg.Cache.Redis.DB,
				DialTimeout:  cfg.Cache.Redis.DialTimeout,
				ReadTimeout:  cfg.Cache.Redis.ReadTimeout,
				WriteTimeout: cfg.Cache.Redis.WriteTimeout,
				PoolSize:     cfg.Cache.Redis.PoolSize,
				TLSEnabled:   cfg.Cache.Redis.TLSEnabled,
			})
			if err != nil {
				logger.Error("failed to connect to redis", "error", err)
				os.Exit(1)
			}
			logger.Info("redis cache tier connected", "addr", cfg.Cache.Redis.Addr)
		}
		resultCache = cache.NewTwoTier(cache.Config{
			TTL:        cfg.Cache.TTL,
			MemorySize: cfg.Cache.MemorySize,
		}, redisClient, logger)
	}

	var publisher api.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := export.NewPublisher(cfg.Kafka, logger)
		if err != nil {
			logger.Error("failed to create findings publisher", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	metrics := api.NewMetrics()
	handler := api.NewHandler(cfg, resultCache, publisher, metrics, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting analysis server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if resultCache != nil {
		if err := resultCache.Close(); err != nil {
			logger.Error("cache close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

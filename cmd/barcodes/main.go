package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/stocktrack/barcodes/internal/app"
	"github.com/stocktrack/barcodes/internal/barcodes"
	"github.com/stocktrack/barcodes/internal/observability"
	"github.com/stocktrack/barcodes/internal/platform/cache"
	"github.com/stocktrack/barcodes/internal/platform/db"
	"github.com/stocktrack/barcodes/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("connected to postgres")

	var redisClient *redis.Client
	if cfg.CacheEnabled() {
		redisClient, err = cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.Warn("redis unavailable, product cache disabled", slog.Any("error", err))
			redisClient = nil
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	metrics := observability.NewMetrics()
	metrics.RegisterPool(dbpool)

	barcodeRepo := barcodes.NewRepository(dbpool)
	barcodeCache := barcodes.NewCache(redisClient, cfg.CacheTTL, logger)
	if err := barcodeCache.Instrument(metrics.Registerer()); err != nil {
		logger.Warn("register cache metrics", slog.Any("error", err))
	}
	barcodeService := barcodes.NewService(barcodeRepo, barcodeCache)
	barcodeHandler := barcodes.NewHandler(logger, barcodeService)

	var (
		inspector jobs.QueueInspector
		enqueuer  jobs.Enqueuer
	)
	if cfg.CacheEnabled() {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		asynqInspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := asynqInspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		inspector, enqueuer = asynqInspector, jobClient
	}
	jobHandler := jobs.NewHandler(inspector, enqueuer, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		BarcodeHandler: barcodeHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
		DB:             dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
	"fintrack/internal/transfer"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	st, err := cli.InitStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	result, err := cli.InitBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	saver := services.NewSaver(st, result.Persister, logger)
	defer saver.Close()
	if err := saver.Restore(ctx); err != nil {
		logger.Error("Failed to restore saved state", log.FieldError, err)
		os.Exit(1)
	}

	var publisher services.Publisher
	if result.Publisher != nil {
		publisher = result.Publisher
	}
	alerts := services.NewAlertService(st, publisher, logger)
	recurring := services.NewRecurringProcessor(st, alerts, logger)

	previews := cache.NewLRUCache[[]transfer.ImportRow](cfg.ImportPreviewCapacity, cfg.ImportPreviewTTL)
	var limiter *ratelimit.Limiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	}
	caches := cache.NewManager(logger)
	caches.Register(previews)
	if limiter != nil {
		caches.Register(limiter)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:    st,
		Saver:    saver,
		Previews: previews,
		Limiter:  limiter,
		Logger:   logger,

		TrustedProxies: cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return saver.Run(gctx, cfg.AutosaveInterval)
	})
	g.Go(func() error {
		return alerts.Run(gctx, services.AlertConfig{
			CheckInterval:      cfg.AlertCheckInterval,
			GoalReminderWindow: cfg.GoalReminderWindow,
		}, recurring)
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

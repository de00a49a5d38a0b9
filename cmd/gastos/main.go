package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gastos/internal/backend"
	"gastos/internal/cli"
	"gastos/internal/config"
	apphttp "gastos/internal/http"
	"gastos/internal/log"
	"gastos/internal/manager"
	"gastos/internal/metrics"
)

func main() {
	envErr := cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	if envErr != nil {
		logger.Warn("Ignoring unreadable .env file", log.FieldError, envErr)
	}
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	m := metrics.New()
	api, err := backend.FromAppConfig(cfg, logger, m)
	if err != nil {
		logger.Error("Failed to build backend client", log.FieldError, err)
		os.Exit(1)
	}

	mgr := manager.New(api, manager.WithLogger(logger), manager.WithMetrics(m))

	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	if err := mgr.Init(initCtx); err != nil {
		// The page still renders; the next month change retries the reads.
		logger.Warn("Initial load failed", log.FieldError, err, log.FieldURL, cfg.APIBaseURL)
	}
	cancelInit()

	srv := apphttp.NewServer(":"+cfg.Port, mgr, api,
		apphttp.WithLogger(logger),
		apphttp.WithMetrics(m),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
	)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting gastos server",
		"port", cfg.Port,
		"backend", cfg.APIBaseURL,
		"breaker", api.BreakerState(),
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/api"
	"gastos/internal/cli"
	"gastos/internal/config"
	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"
	"gastos/internal/storage"
)

func main() {
	envErr := cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentAPI)
	if envErr != nil {
		logger.Warn("Ignoring unreadable .env file", log.FieldError, envErr)
	}
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateBackend)

	repo, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err, "store", cfg.Store)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "", logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("Publishing change events", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	m := metrics.New()
	svc := services.NewGastoService(repo, publisher, logger)
	router := api.NewRouter(api.NewHandlers(svc, repo, logger), logger, m)

	srv := &http.Server{
		Addr:              ":" + cfg.BackendPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting gastos backend",
		"port", cfg.BackendPort,
		"store", cfg.Store,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.BackendPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Backend stopped gracefully")
}

type store interface {
	services.Store
	api.Pinger
	Close() error
}

func openStore(cfg *config.Config, logger *log.Logger) (store, error) {
	if cfg.Store == "memory" {
		logger.Info("Using in-memory store", "seed", cfg.SeedGroupsPath)
		return storage.NewMemoryStoreFromFile(cfg.SeedGroupsPath), nil
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Using SQLite store", "path", cfg.SQLiteDBPath)
	return repo, nil
}

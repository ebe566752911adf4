package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume ledger events")
		os.Exit(1)
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process, budgets will always be empty")
	}

	// the worker only consumes
	b := cli.InitStore(context.Background(), logger, cfg)

	svc, err := cli.NewServices(cfg, b, logger)
	if err != nil {
		logger.Error("Failed to initialize services", log.FieldError, err)
		_ = b.Cleanup()
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = b.Cleanup()
		os.Exit(1)
	}

	alerts := worker.NewBudgetAlertWorker(svc.Budgets, nil, logger)

	caches := cache.NewManager(logger)
	caches.Register(alerts.Notified())
	caches.StartCleanup(time.Hour)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func() {
		caches.Stop()
		if err := errors.Join(client.Close(), b.Cleanup()); err != nil {
			logger.Error("Cleanup error", log.FieldError, err)
		}
	})

	month := core.MonthOf(time.Now())
	for _, owner := range cfg.WorkerOwners {
		logger.Info("Performing startup budget check", log.FieldOwner, owner, log.FieldMonth, month)
		if err := alerts.CheckMonth(ctx, owner, month); err != nil {
			logger.Error("Startup budget check failed", log.FieldOwner, owner, log.FieldError, err)
		}
	}

	if err := client.Run(ctx, alerts.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

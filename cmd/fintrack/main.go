package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/middleware/security"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	b := cli.InitBackend(context.Background(), logger, cfg)
	svc, err := cli.NewServices(cfg, b, logger)
	if err != nil {
		logger.Error("Failed to initialize services", log.FieldError, err)
		_ = b.Cleanup()
		os.Exit(1)
	}

	proxies, err := security.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Error("Invalid trusted proxies", log.FieldError, err)
		_ = b.Cleanup()
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:   svc.Ledger,
		Debts:    svc.Debts,
		Budgets:  svc.Budgets,
		Importer: svc.Importer,
		Exporter: svc.Exporter,
	}, apphttp.Options{
		Logger:         logger,
		RateLimit:      cfg.RateLimit,
		TrustedProxies: proxies,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := b.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"events", b.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

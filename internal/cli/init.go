// Package cli provides the start-up steps shared by cmd/fintrack,
// cmd/fintrack-cli and cmd/fintrack-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/budget"
	"fintrack/internal/config"
	"fintrack/internal/csvimport"
	"fintrack/internal/debt"
	"fintrack/internal/export"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. It runs before the config is validated, so
// unknown values fall back to info and text.
func SetupLogger() *log.Logger {
	logger := log.New(os.Stdout, log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Format:    os.Getenv("LOG_FORMAT"),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured store and event publisher.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	return initBackend(ctx, logger, cfg, false)
}

// InitStore opens the configured store without a publisher.
// Exits the process on failure.
func InitStore(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	return initBackend(ctx, logger, cfg, true)
}

func initBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, storeOnly bool) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if storeOnly {
		backendCfg = backendCfg.WithoutEvents()
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// Services groups the engines every entry point works with.
type Services struct {
	Ledger   *ledger.Service
	Debts    *debt.Service
	Budgets  *budget.Service
	Importer *csvimport.Importer
	Exporter *export.Exporter
}

// NewServices wires the engines on top of an opened backend.
func NewServices(cfg *config.Config, b *backend.BackendResult, logger *log.Logger) (*Services, error) {
	opts := []ledger.Option{ledger.WithPublisher(b.Events), ledger.WithLogger(logger)}
	if cfg.CategoriesFile != "" {
		categories, err := config.LoadCategories(cfg.CategoriesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ledger.WithDefaultCategories(categories))
	}

	l := ledger.New(b.Store, opts...)
	d := debt.New(b.Store, b.Events, logger)
	bu := budget.New(b.Store, l, logger)

	importCfg := csvimport.DefaultConfig()
	importCfg.MaxBytes = cfg.ImportMaxBytes
	importCfg.PreviewTTL = cfg.ImportPreviewTTL

	return &Services{
		Ledger:   l,
		Debts:    d,
		Budgets:  bu,
		Importer: csvimport.NewImporter(l, importCfg, logger),
		Exporter: export.New(l, bu, d, logger),
	}, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

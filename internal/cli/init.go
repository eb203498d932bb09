// Package cli provides common CLI initialization utilities shared by
// cmd/cardtrend, cmd/cardtrend-worker and cmd/cardtrend-seed.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cardtrend/internal/analysis"
	"cardtrend/internal/backend"
	"cardtrend/internal/cache"
	"cardtrend/internal/config"
	"cardtrend/internal/log"
	"cardtrend/internal/metrics"
	"cardtrend/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level and makes
// it the process default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
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

// InitBackend builds the record source selected by DATA_BACKEND.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// NewAnalysisService wires the analysis service with the configured
// defaults, result cache and metrics. The returned janitor, when not nil,
// must be started by the caller.
func NewAnalysisService(cfg *config.Config, source backend.Backend, rec metrics.Recorder, logger *log.Logger) (*services.AnalysisService, *cache.Janitor) {
	opts := services.Options{
		Defaults: analysis.Params{
			ClusterCount: cfg.DefaultClusterCount,
			TopN:         cfg.DefaultTopN,
			Seed:         cfg.DefaultSeed,
			Restarts:     cfg.KMeansRestarts,
		},
		Concurrency: cfg.AnalysisConcurrency,
		Metrics:     rec,
		Logger:      logger,
	}

	var janitor *cache.Janitor
	if cfg.CacheSize > 0 {
		lru := cache.NewLRUCache[*analysis.Result](cfg.CacheSize, cfg.CacheTTL)
		opts.Cache = lru
		janitor = cache.NewJanitor(logger, lru)
	}
	return services.NewAnalysisService(source, opts), janitor
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
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

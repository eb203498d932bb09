package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cardtrend/internal/amqp"
	"cardtrend/internal/cli"
	apphttp "cardtrend/internal/http"
	"cardtrend/internal/log"
	"cardtrend/internal/metrics"
	"cardtrend/internal/middleware/ratelimit"
	"cardtrend/internal/sheets"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	source := cli.InitBackend(ctx, logger, cfg)

	prom := metrics.New()
	svc, janitor := cli.NewAnalysisService(cfg, source.Backend, prom, logger)

	opts := apphttp.Options{
		Addr:    ":" + cfg.Port,
		Service: svc,
		Metrics: prom,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
			CleanupInterval:   time.Minute,
			IdleTimeout:       10 * time.Minute,
		},
		Logger: logger,
	}
	var writer sheets.RecordWriter
	if w, ok := source.Writer(); ok {
		writer = w
		opts.Writer = w
	}

	// Job queue is optional for the API; jobs answer 501 without it.
	var jobs *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, analysis jobs disabled", log.FieldError, err)
		} else {
			c.OnStateChange(func(state int32) {
				prom.CircuitBreakerState("amqp", int(state))
			})
			jobs = c
			opts.Jobs = c
		}
	}

	srv := apphttp.NewServer(opts)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if jobs != nil {
			if err := jobs.Close(); err != nil {
				logger.Error("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := source.Close(); err != nil {
			logger.Error("Failed to close record source", log.FieldError, err)
		}
	})

	if janitor != nil {
		go janitor.Run(shutdownCtx, time.Minute)
	}

	logger.Info("Starting cardtrend server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"writable", writer != nil,
		"jobs", jobs != nil)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

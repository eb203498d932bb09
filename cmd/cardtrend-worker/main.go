package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cardtrend/internal/amqp"
	"cardtrend/internal/cli"
	"cardtrend/internal/log"
	"cardtrend/internal/metrics"
	"cardtrend/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting cardtrend-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	source := cli.InitBackend(context.Background(), logger, cfg)

	prom := metrics.New()
	svc, janitor := cli.NewAnalysisService(cfg, source.Backend, prom, logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	amqpClient.OnStateChange(func(state int32) {
		prom.CircuitBreakerState("amqp", int(state))
		logger.Warn("AMQP circuit breaker state changed", "state", state)
	})

	// Health and metrics only; analysis runs off the queue.
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", prom.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	health := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := health.Shutdown(ctx); err != nil {
			logger.Error("Health server shutdown error", log.FieldError, err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", log.FieldError, err)
		}
		if err := source.Close(); err != nil {
			logger.Error("Failed to close record source", log.FieldError, err)
		}
	})

	go func() {
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server error", log.FieldError, err, "port", cfg.Port)
		}
	}()
	if janitor != nil {
		go janitor.Run(ctx, time.Minute)
	}

	w := worker.NewAnalysisWorker(svc, amqpClient, prom, logger, cfg.AMQPPrefetch)
	logger.Info("Consuming analysis requests",
		"queue", cfg.AMQPQueue,
		"result_queue", cfg.AMQPResultQueue,
		"prefetch", cfg.AMQPPrefetch,
		log.FieldBackend, cfg.DataBackend)

	if err := w.Run(ctx, amqpClient); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}

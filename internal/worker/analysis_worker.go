package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardtrend/internal/amqp"
	"cardtrend/internal/analysis"
	"cardtrend/internal/log"
	"cardtrend/internal/metrics"
	"cardtrend/internal/services"
)

// Worker message outcomes reported to metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeRetried   = "retried"
)

// Runner executes analysis requests.
type Runner interface {
	Run(ctx context.Context, req services.Request) (*analysis.Result, error)
}

// ResultPublisher delivers finished jobs.
type ResultPublisher interface {
	PublishAnalysisResult(ctx context.Context, msg *amqp.AnalysisResultMessage) error
}

// Consumer feeds request messages to a handler until ctx ends.
type Consumer interface {
	ConsumeAnalysisRequests(ctx context.Context, prefetch int, handler amqp.RequestHandler) error
}

// AnalysisWorker runs analysis requests taken from the queue and publishes
// a compact result for each.
type AnalysisWorker struct {
	runner    Runner
	publisher ResultPublisher
	metrics   metrics.Recorder
	logger    *log.Logger
	prefetch  int
	retryWait time.Duration
}

func NewAnalysisWorker(runner Runner, publisher ResultPublisher, rec metrics.Recorder, logger *log.Logger, prefetch int) *AnalysisWorker {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	if prefetch < 1 {
		prefetch = 1
	}
	return &AnalysisWorker{
		runner:    runner,
		publisher: publisher,
		metrics:   rec,
		logger:    logger.WithComponent(log.ComponentWorker),
		prefetch:  prefetch,
		retryWait: 5 * time.Second,
	}
}

// HandleRequest processes a single analysis request from AMQP. Structural
// analysis failures are answered with a failed result and returned as
// permanent so the request is not redelivered; load and publish failures
// are returned as is and the request is requeued.
func (w *AnalysisWorker) HandleRequest(ctx context.Context, msg *amqp.AnalysisRequestMessage) error {
	start := time.Now()
	logger := w.logger.With(log.FieldJobID, msg.JobID)
	logger.InfoContext(ctx, "Processing analysis request", log.FieldYears, fmt.Sprint(msg.Years), log.FieldClusterCount, optional(msg.ClusterCount))

	res, err := w.runner.Run(log.IntoContext(ctx, logger), services.Request{
		Years:        msg.Years,
		ClusterCount: msg.ClusterCount,
		TopN:         msg.TopN,
		Seed:         msg.Seed,
		Restarts:     msg.Restarts,
	})
	if err != nil {
		code := services.Classify(err)
		if code == services.CodeInternal || code == services.CodeSourceUnavailable {
			w.metrics.WorkerMessage(OutcomeRetried)
			return fmt.Errorf("run analysis: %w", err)
		}
		fail := &amqp.AnalysisResultMessage{
			JobID:      msg.JobID,
			Status:     amqp.ResultFailed,
			Error:      err.Error(),
			Code:       string(code),
			DurationMs: time.Since(start).Milliseconds(),
			Timestamp:  time.Now(),
		}
		if perr := w.publisher.PublishAnalysisResult(ctx, fail); perr != nil {
			w.metrics.WorkerMessage(OutcomeRetried)
			return fmt.Errorf("publish failed result: %w", perr)
		}
		w.metrics.WorkerMessage(OutcomeRejected)
		return amqp.Permanent(err)
	}

	out := ResultMessage(msg.JobID, res)
	out.DurationMs = time.Since(start).Milliseconds()
	if err := w.publisher.PublishAnalysisResult(ctx, out); err != nil {
		w.metrics.WorkerMessage(OutcomeRetried)
		return fmt.Errorf("publish result: %w", err)
	}

	w.metrics.WorkerMessage(OutcomeCompleted)
	logger.InfoContext(ctx, "Analysis request completed", log.FieldDuration, out.DurationMs)
	return nil
}

// Run consumes requests until ctx is cancelled, resubscribing after the
// consumer fails.
func (w *AnalysisWorker) Run(ctx context.Context, consumer Consumer) error {
	for {
		err := consumer.ConsumeAnalysisRequests(ctx, w.prefetch, w.HandleRequest)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("consumer stopped")
		}
		w.logger.ErrorContext(ctx, "Consumer stopped, resubscribing", log.FieldError, err, "wait", w.retryWait)

		t := time.NewTimer(w.retryWait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// ResultMessage converts a result into its wire form.
func ResultMessage(jobID string, res *analysis.Result) *amqp.AnalysisResultMessage {
	msg := &amqp.AnalysisResultMessage{
		JobID:      jobID,
		Status:     amqp.ResultOK,
		Silhouette: res.Silhouette,
		Quality:    res.Quality,
		Warnings:   res.WarningText,
		Timestamp:  time.Now(),
	}
	for _, s := range res.Summaries {
		msg.Clusters = append(msg.Clusters, amqp.ClusterResult{
			ID:              s.ID,
			Members:         s.Members,
			Representative:  s.Representative,
			DominantQuarter: s.DominantQuarter,
			SeasonHint:      s.SeasonHint,
		})
	}
	msg.Risers = movers(res.Risers)
	msg.Fallers = movers(res.Fallers)
	return msg
}

func movers(recs []analysis.FluctuationRecord) []amqp.Mover {
	out := make([]amqp.Mover, len(recs))
	for i, r := range recs {
		out[i] = amqp.Mover{Period: r.Period.String(), Category: r.Category, DeltaPP: r.DeltaPP}
	}
	return out
}

// optional renders an unset parameter as "default" in logs.
func optional(v *int) any {
	if v == nil {
		return "default"
	}
	return *v
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cardtrend/internal/amqp"
	"cardtrend/internal/log"
	"cardtrend/internal/services"
)

const readyTimeout = 5 * time.Second

var (
	errNoWriter = fmt.Errorf("%w: record source is read-only", services.ErrUnsupported)
	errNoQueue  = fmt.Errorf("%w: job queue not configured", services.ErrUnsupported)
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the record source answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	switch _, err := s.svc.Years(ctx); {
	case err == nil, errors.Is(err, services.ErrYearsUnsupported):
		checks["record_source"] = "ok"
	default:
		checks["record_source"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	checks["rate_limiter"] = s.limiter.GetMetrics()
	checks["security"] = s.detector.GetMetrics()
	checks["requests"] = s.tracer.GetMetrics()

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := ParseAnalysisQuery(r.URL.Query())
	if err != nil {
		ErrorResponse(err).Write(w)
		return
	}
	res, err := s.svc.Run(r.Context(), req)
	if err != nil {
		ErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	req, err := ParseAnalysisQuery(r.URL.Query())
	if err != nil {
		ErrorResponse(err).Write(w)
		return
	}
	view, err := s.svc.Segments(r.Context(), req)
	if err != nil {
		ErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleFluctuations(w http.ResponseWriter, r *http.Request) {
	req, err := ParseAnalysisQuery(r.URL.Query())
	if err != nil {
		ErrorResponse(err).Write(w)
		return
	}
	view, err := s.svc.Fluctuations(r.Context(), req)
	if err != nil {
		ErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.svc.Years(r.Context())
	if err != nil {
		ErrorResponse(err).Write(w)
		return
	}
	if years == nil {
		years = []int{}
	}
	NewJSONResponse().Body(map[string]any{"years": years}).Write(w)
}

// maximum number of requests accepted in one batch
const maxBatch = 32

type batchItemBody struct {
	Params any        `json:"params"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchRequest
	if err := DecodeJSON(w, r, &body); err != nil {
		BadRequest(err.Error()).Write(w)
		return
	}
	if len(body.Requests) == 0 || len(body.Requests) > maxBatch {
		ErrorResponse(FieldErrors{"requests": "must hold between 1 and 32 requests"}).Write(w)
		return
	}

	items, err := s.svc.RunBatch(r.Context(), body.Requests)
	if err != nil {
		ErrorResponse(err).Write(w)
		return
	}

	out := make([]batchItemBody, len(items))
	for i, it := range items {
		out[i].Params = it.Params
		if it.Err != nil {
			eb := ErrorResponse(it.Err).body.(ErrorBody)
			out[i].Error = &eb
			continue
		}
		out[i].Result = it.Result
	}
	NewJSONResponse().Body(map[string]any{"items": out}).Write(w)
}

type rowErrorBody struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// handleImportRecords appends records to a writable source and drops
// cached results, which no longer reflect the data.
func (s *Server) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	if s.writer == nil {
		ErrorResponse(errNoWriter).Write(w)
		return
	}
	logger := log.FromContext(r.Context(), s.logger)

	records, bad, err := ParseRecords(w, r)
	switch {
	case errors.Is(err, ErrUnsupportedMediaType):
		NewJSONResponse().Status(http.StatusUnsupportedMediaType).Body(ErrorBody{
			Error: "Unsupported media type", Code: string(services.CodeInvalidParams), Detail: err.Error(),
		}).Write(w)
		return
	case err != nil:
		BadRequest(err.Error()).Write(w)
		return
	}

	n := 0
	if len(records) > 0 {
		n, err = s.writer.AppendRecords(r.Context(), records)
		if err != nil {
			log.NewStructuredLogger(logger).LogError(r.Context(), "Failed to import records", err,
				log.ErrorTypeDatabase, log.OpImport, nil)
			ErrorResponse(err).Write(w)
			return
		}
	}
	purged := s.svc.Invalidate()

	rejected := make([]rowErrorBody, len(bad))
	for i, b := range bad {
		rejected[i] = rowErrorBody{Row: b.Row, Error: b.Err.Error()}
	}
	logger.InfoContext(r.Context(), "Records imported",
		log.FieldOperation, log.OpImport, "imported", n, "rejected", len(bad), "cache_purged", purged)

	status := http.StatusCreated
	if n == 0 {
		status = http.StatusUnprocessableEntity
	}
	NewJSONResponse().Status(status).Body(map[string]any{
		"imported": n,
		"rejected": rejected,
	}).Write(w)
}

// handleEnqueueJob hands an analysis request to the worker over AMQP.
func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		ErrorResponse(errNoQueue).Write(w)
		return
	}
	var req services.Request
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequest(err.Error()).Write(w)
		return
	}
	if err := s.svc.Resolve(req).Validate(); err != nil {
		ErrorResponse(err).Write(w)
		return
	}

	msg := amqp.NewAnalysisRequestMessage(req.Years, req.ClusterCount, req.TopN)
	msg.Seed = req.Seed
	msg.Restarts = req.Restarts
	if err := s.jobs.PublishAnalysisRequest(r.Context(), msg); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context(), s.logger)).LogError(r.Context(),
			"Failed to enqueue analysis job", err, log.ErrorTypeNetwork, log.OpPublish, nil)
		NewJSONResponse().Status(http.StatusServiceUnavailable).Body(ErrorBody{
			Error: services.CodeSourceUnavailable.Message(), Code: string(services.CodeSourceUnavailable),
		}).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusAccepted).Body(map[string]any{"job_id": msg.JobID}).Write(w)
}

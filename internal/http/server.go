package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cardtrend/internal/amqp"
	"cardtrend/internal/analysis"
	"cardtrend/internal/log"
	"cardtrend/internal/metrics"
	"cardtrend/internal/middleware/ratelimit"
	"cardtrend/internal/middleware/security"
	"cardtrend/internal/middleware/trace"
	"cardtrend/internal/services"
	"cardtrend/internal/sheets"
)

// Analyzer is the service surface the handlers call.
type Analyzer interface {
	Resolve(req services.Request) analysis.Params
	Run(ctx context.Context, req services.Request) (*analysis.Result, error)
	RunBatch(ctx context.Context, reqs []services.Request) ([]services.BatchItem, error)
	Segments(ctx context.Context, req services.Request) (*services.SegmentView, error)
	Fluctuations(ctx context.Context, req services.Request) (*services.FluctuationView, error)
	Years(ctx context.Context) ([]int, error)
	Invalidate() int
}

// JobPublisher queues analysis requests for the worker.
type JobPublisher interface {
	PublishAnalysisRequest(ctx context.Context, msg *amqp.AnalysisRequestMessage) error
}

// Options configures a Server. Writer, Jobs and Metrics are optional; the
// routes that need them answer 501 when they are missing.
type Options struct {
	Addr      string
	Service   Analyzer
	Writer    sheets.RecordWriter
	Jobs      JobPublisher
	Metrics   *metrics.PrometheusMetrics
	RateLimit ratelimit.Config
	Logger    *log.Logger
}

type Server struct {
	http.Server

	svc      Analyzer
	writer   sheets.RecordWriter
	jobs     JobPublisher
	metrics  *metrics.PrometheusMetrics
	logger   *log.Logger
	started  time.Time
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		svc:      opts.Service,
		writer:   opts.Writer,
		jobs:     opts.Jobs,
		metrics:  opts.Metrics,
		logger:   logger.WithComponent(log.ComponentHTTP),
		started:  time.Now(),
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
	}

	var observe trace.Observer
	if s.metrics != nil {
		observe = s.metrics.HTTPRequest
	}
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ClientIP, observe)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/analysis", s.handleAnalysis)
	api.HandleFunc("POST /api/analysis/batch", s.handleBatch)
	api.HandleFunc("GET /api/segments", s.handleSegments)
	api.HandleFunc("GET /api/fluctuations", s.handleFluctuations)
	api.HandleFunc("GET /api/years", s.handleYears)
	api.HandleFunc("POST /api/records", s.handleImportRecords)
	api.HandleFunc("POST /api/jobs", s.handleEnqueueJob)

	limited := s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		RateLimited().Write(w)
	})(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metricsHandler())
	mux.Handle("/api/", limited)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.tracer.Middleware(s.detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) metricsHandler() http.Handler {
	if s.metrics == nil {
		return http.NotFoundHandler()
	}
	return s.metrics.Handler()
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

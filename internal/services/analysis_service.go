package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cardtrend/internal/analysis"
	"cardtrend/internal/cache"
	"cardtrend/internal/core"
	"cardtrend/internal/log"
	"cardtrend/internal/metrics"
	"cardtrend/internal/middleware/trace"
	"cardtrend/internal/sheets"
)

var ErrYearsUnsupported = errors.New("record source cannot list years")

// Request is an analysis request as it arrives from a client. Nil fields
// and a zero Restarts fall back to the service defaults; a present
// ClusterCount or TopN is used as given and validated.
type Request struct {
	Years        []int  `json:"years,omitempty"`
	ClusterCount *int   `json:"cluster_count,omitempty"`
	TopN         *int   `json:"top_n,omitempty"`
	Seed         *int64 `json:"seed,omitempty"`
	Restarts     int    `json:"restarts,omitempty"`
}

// AnalysisService loads records from a source and runs the analysis over
// them, caching results per parameter set.
type AnalysisService struct {
	source      sheets.RecordReader
	cache       cache.Cache[*analysis.Result]
	metrics     metrics.Recorder
	logger      *log.Logger
	defaults    analysis.Params
	concurrency int
}

// Options configures an AnalysisService. Nil Cache disables caching, nil
// Metrics and Logger discard.
type Options struct {
	Defaults    analysis.Params
	Concurrency int
	Cache       cache.Cache[*analysis.Result]
	Metrics     metrics.Recorder
	Logger      *log.Logger
}

func NewAnalysisService(source sheets.RecordReader, opts Options) *AnalysisService {
	if opts.Defaults.ClusterCount == 0 {
		opts.Defaults = analysis.DefaultParams()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	return &AnalysisService{
		source:      source,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		logger:      opts.Logger.WithComponent(log.ComponentAnalysis),
		defaults:    opts.Defaults,
		concurrency: opts.Concurrency,
	}
}

// Defaults returns the parameters used for omitted request fields.
func (s *AnalysisService) Defaults() analysis.Params { return s.defaults }

// Resolve fills omitted request fields from the defaults.
func (s *AnalysisService) Resolve(req Request) analysis.Params {
	p := s.defaults
	p.Years = req.Years
	if req.ClusterCount != nil {
		p.ClusterCount = *req.ClusterCount
	}
	if req.TopN != nil {
		p.TopN = *req.TopN
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if req.Restarts != 0 {
		p.Restarts = req.Restarts
	}
	return p
}

// Run executes one analysis.
func (s *AnalysisService) Run(ctx context.Context, req Request) (*analysis.Result, error) {
	return s.run(ctx, s.Resolve(req))
}

func (s *AnalysisService) run(ctx context.Context, params analysis.Params) (*analysis.Result, error) {
	start := time.Now()
	logger := log.FromContext(ctx, s.logger)
	structured := log.NewStructuredLogger(logger)
	fields := func() log.LogFields {
		return log.NewFields().WithRequest(params.Filter().String(), params.ClusterCount, params.TopN, params.Seed)
	}

	if err := params.Validate(); err != nil {
		s.metrics.AnalysisCompleted(metrics.StatusInvalid, time.Since(start), 0, nil)
		logger.WarnContext(ctx, "Rejected analysis request", fields().WithError(err).WithErrorType(log.ErrorTypeValidation).ToSlice()...)
		return nil, err
	}

	key := params.Key()
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			s.metrics.CacheLookup(true)
			structured.LogAnalysisCompleted(ctx, event(ctx, params, res, true, time.Since(start)))
			return res, nil
		}
		s.metrics.CacheLookup(false)
	}

	records, err := s.source.ListRecords(ctx, params.Filter())
	if err != nil {
		s.metrics.AnalysisCompleted(metrics.StatusError, time.Since(start), 0, nil)
		structured.LogError(ctx, "Failed to load records", err, log.ErrorTypeDatabase, log.OpList, fields())
		return nil, fmt.Errorf("load records: %w", sourceError{err})
	}

	res, err := analysis.Analyze(ctx, records, params)
	if err != nil {
		status, errType := metrics.StatusError, log.ErrorTypeInternal
		if analysis.IsStructural(err) {
			status, errType = metrics.StatusStructural, log.ErrorTypeInput
		}
		s.metrics.AnalysisCompleted(status, time.Since(start), len(records), nil)
		structured.LogError(ctx, "Analysis failed", err, errType, log.OpAnalyze,
			fields().WithShape(len(records), 0, 0))
		return nil, err
	}

	for _, w := range res.Warnings {
		logger.WarnContext(ctx, "Analysis warning", log.FieldError, w.Error())
	}
	if s.cache != nil {
		s.cache.Set(key, res)
	}

	d := time.Since(start)
	s.metrics.AnalysisCompleted(metrics.StatusOK, d, len(records), res.Silhouette)
	structured.LogAnalysisCompleted(ctx, event(ctx, params, res, false, d))
	return res, nil
}

func event(ctx context.Context, p analysis.Params, res *analysis.Result, hit bool, d time.Duration) log.AnalysisEvent {
	return log.AnalysisEvent{
		RequestID:    trace.GetRequestID(ctx),
		Years:        p.Filter().String(),
		ClusterCount: p.ClusterCount,
		TopN:         p.TopN,
		Seed:         p.Seed,
		Records:      res.RecordCount,
		Categories:   res.Matrix.Len(),
		Periods:      res.Matrix.Width(),
		Silhouette:   res.Silhouette,
		Warnings:     len(res.Warnings),
		CacheHit:     hit,
		Duration:     d,
	}
}

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Params analysis.Params
	Result *analysis.Result
	Err    error
}

// RunBatch runs independent requests in parallel, at most the configured
// concurrency at a time. A failing request does not stop the others; only
// cancellation of ctx does.
func (s *AnalysisService) RunBatch(ctx context.Context, reqs []Request) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, req := range reqs {
		params := s.Resolve(req)
		items[i].Params = params
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i].Result, items[i].Err = s.run(gctx, params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	s.logger.InfoContext(ctx, "Analysis batch completed",
		log.FieldOperation, log.OpBatch, "requests", len(reqs), "failed", failed)
	return items, nil
}

// SegmentView is the clustering half of a result.
type SegmentView struct {
	Params     analysis.Params           `json:"params"`
	Assignment *analysis.Assignment      `json:"assignment"`
	Clusters   []analysis.ClusterSummary `json:"clusters"`
	Silhouette *float64                  `json:"silhouette"`
	Quality    string                    `json:"quality,omitempty"`
	Warnings   []string                  `json:"warnings"`
}

// Segments runs the analysis and keeps the clustering output.
func (s *AnalysisService) Segments(ctx context.Context, req Request) (*SegmentView, error) {
	res, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return &SegmentView{
		Params:     res.Params,
		Assignment: res.Assignment,
		Clusters:   res.Summaries,
		Silhouette: res.Silhouette,
		Quality:    res.Quality,
		Warnings:   res.WarningText,
	}, nil
}

// FluctuationView is the share half of a result.
type FluctuationView struct {
	Params   analysis.Params              `json:"params"`
	Periods  []core.Period                `json:"periods"`
	Risers   []analysis.FluctuationRecord `json:"risers"`
	Fallers  []analysis.FluctuationRecord `json:"fallers"`
	Excluded []core.Period                `json:"excluded_periods"`
	TopRiser *analysis.RiserProfile       `json:"top_riser,omitempty"`
	Warnings []string                     `json:"warnings"`
}

// Fluctuations runs the analysis and keeps the share movers.
func (s *AnalysisService) Fluctuations(ctx context.Context, req Request) (*FluctuationView, error) {
	res, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	v := &FluctuationView{
		Params:   res.Params,
		Periods:  res.Periods,
		Risers:   res.Risers,
		Fallers:  res.Fallers,
		Excluded: res.Excluded,
		Warnings: res.WarningText,
	}
	if res.Insights != nil {
		v.TopRiser = res.Insights.TopRiser
	}
	return v, nil
}

// Years lists the years the source holds.
func (s *AnalysisService) Years(ctx context.Context) ([]int, error) {
	yl, ok := s.source.(sheets.YearLister)
	if !ok {
		return nil, ErrYearsUnsupported
	}
	years, err := yl.Years(ctx)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", sourceError{err})
	}
	return years, nil
}

// Invalidate drops every cached result, typically after new records arrive.
func (s *AnalysisService) Invalidate() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Purge()
}

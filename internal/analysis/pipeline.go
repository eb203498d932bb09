package analysis

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"cardtrend/internal/core"
)

// Result is everything one analysis request produces.
type Result struct {
	Params      Params              `json:"params"`
	Periods     []core.Period       `json:"periods"`
	Matrix      *Matrix             `json:"-"`
	Rows        []MatrixRow         `json:"matrix"`
	Profiles    Profile             `json:"profiles"`
	Assignment  *Assignment         `json:"assignment"`
	Silhouette  *float64            `json:"silhouette"` // nil when undefined for the assignment
	Quality     string              `json:"quality,omitempty"`
	Summaries   []ClusterSummary    `json:"clusters"`
	Shares      []ShareRecord       `json:"shares"`
	Risers      []FluctuationRecord `json:"risers"`
	Fallers     []FluctuationRecord `json:"fallers"`
	Excluded    []core.Period       `json:"excluded_periods"`
	Insights    *Insights           `json:"insights"`
	Warnings    []error             `json:"-"`
	WarningText []string            `json:"warnings"`
	RecordCount int                 `json:"record_count"`
}

// Analyze validates params, builds the matrix and runs segmentation and
// share detection over it concurrently. Empty input, an unusable cluster
// count and invalid params abort the request; zero-total periods and an
// undefined silhouette are reported as warnings.
func Analyze(ctx context.Context, records []core.Record, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	m, err := BuildMatrix(records, params.Filter())
	if err != nil {
		return nil, err
	}

	res := &Result{
		Params:      params,
		Periods:     m.Periods(),
		Matrix:      m,
		Rows:        m.Rows(),
		RecordCount: len(records),
	}
	var segWarnings []error
	var shares *ShareReport

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		w, err := segmentBranch(m, params, res)
		segWarnings = w
		return err
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		shares = DetectFluctuations(m)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Shares = shares.Shares
	res.Risers = shares.Risers(params.TopN)
	res.Fallers = shares.Fallers(params.TopN)
	res.Excluded = shares.Excluded
	res.Insights = BuildInsights(records, params.Filter(), res.Risers)

	res.Warnings = append(shares.Warnings, segWarnings...)
	res.WarningText = make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		res.WarningText = append(res.WarningText, w.Error())
	}
	return res, nil
}

// segmentBranch fills the clustering half of res. It only writes fields the
// share branch never touches.
func segmentBranch(m *Matrix, params Params, res *Result) ([]error, error) {
	profile := Normalize(m)
	a, err := Segment(profile, SegmentOptions{
		K:        params.ClusterCount,
		Seed:     params.Seed,
		Restarts: params.Restarts,
	})
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	res.Profiles = profile
	res.Assignment = a
	res.Summaries = Characterize(a, m)

	score, err := SilhouetteScore(profile, a)
	switch {
	case errors.Is(err, ErrInsufficientData):
		return []error{err}, nil
	case err != nil:
		return nil, fmt.Errorf("silhouette: %w", err)
	}
	res.Silhouette = &score
	res.Quality = QualityBand(score)
	return nil, nil
}

package analysis

import (
	"errors"
	"fmt"

	"cardtrend/internal/core"
)

var (
	ErrEmptyInput          = errors.New("no records after filtering")
	ErrInvalidClusterCount = errors.New("invalid cluster count")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrDegenerateShare     = errors.New("degenerate share period")
)

// EmptyInputError reports that the filter left nothing to aggregate.
type EmptyInputError struct {
	Filter      core.PeriodFilter
	RecordCount int // records supplied before filtering
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%v: filter years=%s matched 0 of %d records", ErrEmptyInput, e.Filter, e.RecordCount)
}

func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// InvalidClusterCountError reports a k that cannot partition the categories.
type InvalidClusterCountError struct {
	Requested  int
	Categories int
}

func (e *InvalidClusterCountError) Error() string {
	return fmt.Sprintf("%v: requested %d clusters for %d categories (need 2 <= k <= categories)",
		ErrInvalidClusterCount, e.Requested, e.Categories)
}

func (e *InvalidClusterCountError) Is(target error) bool { return target == ErrInvalidClusterCount }

// InsufficientDataError reports that a metric needs more samples than available.
type InsufficientDataError struct {
	Metric string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%v: %s needs more than %d samples, have %d", ErrInsufficientData, e.Metric, e.Need, e.Have)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// DegenerateShareError marks a period whose grand total is zero. It is a
// warning: the period is dropped from share output, the rest is unaffected.
type DegenerateShareError struct {
	Period core.Period
}

func (e *DegenerateShareError) Error() string {
	return fmt.Sprintf("%v: period %s has zero total spend", ErrDegenerateShare, e.Period)
}

func (e *DegenerateShareError) Is(target error) bool { return target == ErrDegenerateShare }

// IsStructural reports whether err aborts a whole analysis request.
func IsStructural(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrInvalidClusterCount) || errors.As(err, new(*ParamsError))
}

package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type (
	// Period is a calendar month used as the time axis of every aggregation.
	Period struct {
		Year  int
		Month int
	}

	// Record is one card consumption observation as delivered by a data source.
	Record struct {
		Period           Period
		Category         string // Online spending category
		Region           string // Customer district code
		AgeGroup         string
		Gender           string
		TransactionCount int
		Amount           float64
	}

	// PeriodFilter restricts records to a set of years. An empty filter matches everything.
	PeriodFilter struct {
		Years []int
	}
)

var (
	ErrInvalidPeriod        = errors.New("invalid period")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrEmptyCategory        = errors.New("empty category")
	ErrNegativeAmount       = errors.New("negative amount")
	ErrNegativeTransactions = errors.New("negative transaction count")
)

// NewPeriod creates a Period from year and month.
func NewPeriod(year, month int) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod accepts YYYYMM, YYYY-MM and YYYY/MM.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("-", "", "/", "", ".", "").Replace(s)
	if len(s) != 6 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	month, err := strconv.Atoi(s[4:])
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (p Period) Validate() error {
	if p.Year < 1 {
		return ErrInvalidPeriod
	}
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// String renders the period as YYYYMM.
func (p Period) String() string {
	return fmt.Sprintf("%04d%02d", p.Year, p.Month)
}

// Quarter returns the calendar quarter (1-4) of the period.
func (p Period) Quarter() int {
	return (p.Month-1)/3 + 1
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// IsZero returns true for the zero Period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// MarshalText implements encoding.TextMarshaler so periods serialize as YYYYMM.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (r Record) Validate() error {
	if err := r.Period.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if r.Amount < 0 {
		return ErrNegativeAmount
	}
	if r.TransactionCount < 0 {
		return ErrNegativeTransactions
	}
	return nil
}

// Match reports whether the period passes the filter.
func (f PeriodFilter) Match(p Period) bool {
	if len(f.Years) == 0 {
		return true
	}
	for _, y := range f.Years {
		if y == p.Year {
			return true
		}
	}
	return false
}

// IsEmpty returns true when the filter matches every period.
func (f PeriodFilter) IsEmpty() bool {
	return len(f.Years) == 0
}

func (f PeriodFilter) String() string {
	if len(f.Years) == 0 {
		return "all"
	}
	parts := make([]string, len(f.Years))
	for i, y := range f.Years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}

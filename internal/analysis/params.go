package analysis

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"cardtrend/internal/core"
)

// Params is one analysis request.
type Params struct {
	Years        []int `json:"years" validate:"dive,gte=1,lte=9999"`
	ClusterCount int   `json:"cluster_count" validate:"gte=2"`
	TopN         int   `json:"top_n" validate:"gte=1"`
	Seed         int64 `json:"seed"`
	Restarts     int   `json:"restarts" validate:"gte=0,lte=100"`
}

// DefaultParams mirrors the dashboard defaults: four clusters, top ten movers.
func DefaultParams() Params {
	return Params{ClusterCount: 4, TopN: 10, Seed: 42, Restarts: DefaultRestarts}
}

// Filter returns the period filter selected by Years.
func (p Params) Filter() core.PeriodFilter {
	return core.PeriodFilter{Years: p.Years}
}

// Key identifies the request for caching. Year order does not matter.
func (p Params) Key() string {
	years := slices.Clone(p.Years)
	slices.Sort(years)
	years = slices.Compact(years)
	return fmt.Sprintf("years=%s|k=%d|top=%d|seed=%d|restarts=%d",
		core.PeriodFilter{Years: years}, p.ClusterCount, p.TopN, p.Seed, p.Restarts)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func paramsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the request boundary: cluster_count >= 2, top_n >= 1.
func (p Params) Validate() error {
	err := paramsValidator().Struct(p)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		return &ParamsError{Errs: verrs}
	}
	return err
}

// ParamsError lists every invalid request field.
type ParamsError struct {
	Errs validator.ValidationErrors
}

func (e *ParamsError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, fe := range e.Errs {
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), describe(fe)))
	}
	return "invalid params: " + strings.Join(msgs, "; ")
}

func (e *ParamsError) Unwrap() error { return e.Errs }

// Fields maps each offending field to its message.
func (e *ParamsError) Fields() map[string]string {
	out := make(map[string]string, len(e.Errs))
	for _, fe := range e.Errs {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

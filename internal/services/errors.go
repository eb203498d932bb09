package services

import (
	"errors"

	"cardtrend/internal/analysis"
)

// ErrorCode is the stable code clients see for a failed request.
type ErrorCode string

const (
	CodeInvalidParams       ErrorCode = "VALIDATION_001"
	CodeInvalidClusterCount ErrorCode = "ANALYSIS_001"
	CodeEmptyInput          ErrorCode = "ANALYSIS_002"
	CodeInsufficientData    ErrorCode = "ANALYSIS_003"
	CodeInternal            ErrorCode = "SYSTEM_001"
	CodeSourceUnavailable   ErrorCode = "SYSTEM_002"
	CodeUnsupported         ErrorCode = "SYSTEM_003"
	CodeRateLimited         ErrorCode = "SYSTEM_006"
)

var errorMessages = map[ErrorCode]string{
	CodeInvalidParams:       "Invalid analysis parameters",
	CodeInvalidClusterCount: "Cluster count does not fit the number of categories",
	CodeEmptyInput:          "No records match the requested years",
	CodeInsufficientData:    "Not enough data for the requested metric",
	CodeInternal:            "An internal error occurred",
	CodeSourceUnavailable:   "The record source is unavailable",
	CodeUnsupported:         "Operation not supported by the record source",
	CodeRateLimited:         "Rate limit exceeded",
}

// Message returns the default human-readable message for c.
func (c ErrorCode) Message() string {
	if m, ok := errorMessages[c]; ok {
		return m
	}
	return errorMessages[CodeInternal]
}

// Classify maps an error returned by AnalysisService to its code.
func Classify(err error) ErrorCode {
	var perr *analysis.ParamsError
	switch {
	case errors.As(err, &perr):
		return CodeInvalidParams
	case errors.Is(err, analysis.ErrInvalidClusterCount):
		return CodeInvalidClusterCount
	case errors.Is(err, analysis.ErrEmptyInput):
		return CodeEmptyInput
	case errors.Is(err, analysis.ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, ErrYearsUnsupported), errors.Is(err, ErrUnsupported):
		return CodeUnsupported
	case errors.Is(err, errSourceFailure):
		return CodeSourceUnavailable
	default:
		return CodeInternal
	}
}

var (
	// ErrUnsupported marks an operation the configured deployment cannot serve.
	ErrUnsupported = errors.New("operation not supported")

	errSourceFailure = errors.New("record source failure")
)

// sourceError tags record loading failures for Classify while keeping the
// underlying error reachable.
type sourceError struct{ err error }

func (e sourceError) Error() string   { return e.err.Error() }
func (e sourceError) Unwrap() []error { return []error{e.err, errSourceFailure} }

// Package http provides the JSON API over the analysis service.
//
// This file implements a small builder for JSON responses and the mapping
// from service errors to status codes and error bodies.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cardtrend/internal/analysis"
	"cardtrend/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the response. Encoding failures after the header is out can
// only be logged.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps an error code to its HTTP status.
func statusFor(code services.ErrorCode) int {
	switch code {
	case services.CodeInvalidParams, services.CodeInvalidClusterCount:
		return http.StatusBadRequest
	case services.CodeEmptyInput, services.CodeInsufficientData:
		return http.StatusUnprocessableEntity
	case services.CodeUnsupported:
		return http.StatusNotImplemented
	case services.CodeSourceUnavailable:
		return http.StatusServiceUnavailable
	case services.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the response for a service error. Internal errors
// keep their detail out of the body.
func ErrorResponse(err error) *JSONResponseBuilder {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return NewJSONResponse().Status(http.StatusBadRequest).Body(ErrorBody{
			Error:  services.CodeInvalidParams.Message(),
			Code:   string(services.CodeInvalidParams),
			Fields: fe,
		})
	}

	code := services.Classify(err)
	body := ErrorBody{Error: code.Message(), Code: string(code)}
	var perr *analysis.ParamsError
	switch {
	case errors.As(err, &perr):
		body.Fields = perr.Fields()
	case code != services.CodeInternal && code != services.CodeSourceUnavailable:
		body.Detail = err.Error()
	}
	return NewJSONResponse().Status(statusFor(code)).Body(body)
}

// BadRequest builds a 400 for a malformed body.
func BadRequest(detail string) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusBadRequest).Body(ErrorBody{
		Error:  "Malformed request",
		Code:   string(services.CodeInvalidParams),
		Detail: detail,
	})
}

// RateLimited builds the 429 returned by the rate limiter.
func RateLimited() *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusTooManyRequests).Body(ErrorBody{
		Error: services.CodeRateLimited.Message(),
		Code:  string(services.CodeRateLimited),
	})
}

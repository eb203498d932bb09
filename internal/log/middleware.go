package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Middleware puts logger into every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), logger)))
		})
	}
}

// RequestIDMiddleware tags the request logger with the id extractRequestID returns.
func RequestIDMiddleware(fallback *Logger, extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context(), fallback)
			if id := extractRequestID(r); id != "" {
				logger = logger.With(FieldRequestID, id)
			}
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger logs the application's recurring events with a fixed field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a finished request; 4xx at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, duration time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, duration.Milliseconds()).
		WithClientIP(clientIP)
	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// AnalysisEvent summarizes a finished analysis for logging.
type AnalysisEvent struct {
	RequestID    string
	Years        string
	ClusterCount int
	TopN         int
	Seed         int64
	Records      int
	Categories   int
	Periods      int
	Silhouette   *float64
	Warnings     int
	CacheHit     bool
	Duration     time.Duration
}

func (sl *StructuredLogger) LogAnalysisCompleted(ctx context.Context, ev AnalysisEvent) {
	fields := NewFields().
		WithRequestID(ev.RequestID).
		WithOperation(OpAnalyze).
		WithRequest(ev.Years, ev.ClusterCount, ev.TopN, ev.Seed).
		WithShape(ev.Records, ev.Categories, ev.Periods)
	fields[FieldWarnings] = ev.Warnings
	fields[FieldCacheHit] = ev.CacheHit
	fields[FieldDuration] = ev.Duration.Milliseconds()
	if ev.Silhouette != nil {
		fields[FieldSilhouette] = *ev.Silhouette
	}
	sl.logger.InfoContext(ctx, "Analysis completed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errorType, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithErrorType(errorType).WithOperation(operation)
	sl.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}

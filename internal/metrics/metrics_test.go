package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisCompleted(t *testing.T) {
	m := New()
	score := 0.42
	m.AnalysisCompleted(StatusOK, 20*time.Millisecond, 120, &score)
	m.AnalysisCompleted(StatusInvalid, 0, 0, nil)
	m.AnalysisCompleted(StatusInvalid, 0, 0, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysisRuns.WithLabelValues(StatusOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.analysisRuns.WithLabelValues(StatusInvalid)))
	assert.Equal(t, 0.42, testutil.ToFloat64(m.lastSilhouette))
}

func TestCacheAndWorkerCounters(t *testing.T) {
	m := New()
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.WorkerMessage("acked")
	m.CircuitBreakerState("amqp", 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.workerMessages.WithLabelValues("acked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.circuitBreakerState.WithLabelValues("amqp")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.HTTPRequest("GET", "/api/analysis", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `cardtrend_http_requests_total{method="GET",route="/api/analysis",status="200"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}

package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hawkeye/internal/metrics"
	"hawkeye/internal/status"
	"hawkeye/pkg/models"
)

func newTestServer() *Server {
	m := metrics.New(prometheus.NewRegistry())
	st := status.New("test-run")
	return New(st, m)
}

func TestHealthcheck(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatus_ReflectsCurrentSnapshot(t *testing.T) {
	s := newTestServer()
	s.status.SetClassification(models.Slate("abc123"))
	s.status.Set(status.StateRunning, "")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"current":"slate"`)
	assert.Contains(t, rec.Body.String(), `"slate_id":"abc123"`)
	assert.Contains(t, rec.Body.String(), `"state":"running"`)
}

func TestStatus_DefaultsToReadyAndUnknown(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"ready"`)
	assert.Contains(t, rec.Body.String(), `"current":"unknown"`)
	assert.NotContains(t, rec.Body.String(), `"slate_id"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

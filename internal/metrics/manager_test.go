package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewManagerWithRegistry(reg, reg)
}

func TestManager_RecordsCounters(t *testing.T) {
	m := newTestManager(t)
	pm := m.GetPrometheusMetrics()

	pm.RecordReadingIngested("http", "accepted")
	pm.RecordReadingIngested("http", "accepted")
	pm.RecordReadingIngested("mqtt", "rejected")
	pm.RecordDatabaseOperation("insert", "leituras", "success", 5*time.Millisecond)
	pm.UpdateComponentHealth("storage", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.ReadingsIngestedTotal.WithLabelValues("http", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.ReadingsIngestedTotal.WithLabelValues("mqtt", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.DatabaseOperationsTotal.WithLabelValues("insert", "leituras", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.ComponentHealth.WithLabelValues("storage")))
}

func TestManager_HandlerExposesMetrics(t *testing.T) {
	m := newTestManager(t)
	m.GetPrometheusMetrics().RecordHTTPRequest("POST", "/leituras", "201", 10*time.Millisecond)
	m.UpdateSystemMetrics()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `iot_http_requests_total{method="POST",path="/leituras",status="201"} 1`)
	assert.Contains(t, rec.Body.String(), "iot_goroutines")
}

func TestManager_HandlerLogsGatherErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	failing := prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return nil, errors.New("collector exploded")
	})
	m := NewManagerWithRegistry(reg, failing)

	logger, hook := test.NewNullLogger()
	m.logger = logger.WithField("component", "metrics")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "collector exploded")
}

package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// Manager handles all application metrics
type Manager struct {
	prometheus *PrometheusMetrics
	gatherer   prometheus.Gatherer
	logger     *logrus.Entry
	startTime  time.Time
}

// NewManager creates a metrics manager backed by the default Prometheus
// registry.
func NewManager() *Manager {
	return NewManagerWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewManagerWithRegistry creates a metrics manager that registers with reg and
// exposes what gatherer collects. Tests pass a fresh prometheus.Registry for
// both.
func NewManagerWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Manager {
	return &Manager{
		prometheus: NewPrometheusMetrics(reg),
		gatherer:   gatherer,
		logger:     utils.GetLogger().WithField("component", "metrics"),
		startTime:  time.Now(),
	}
}

// GetPrometheusMetrics returns the Prometheus metrics instance
func (m *Manager) GetPrometheusMetrics() *PrometheusMetrics {
	return m.prometheus
}

// Handler serves the collected metrics in the Prometheus text format. Gather
// errors are logged and whatever was collected is still served.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{
		ErrorLog:      gatherErrorLog{m.logger},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// gatherErrorLog adapts promhttp's Println logger to logrus at error level
type gatherErrorLog struct {
	entry *logrus.Entry
}

func (l gatherErrorLog) Println(v ...interface{}) {
	l.entry.Error(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// UpdateSystemMetrics updates system-level metrics like memory and goroutines
func (m *Manager) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.prometheus.UpdateMemoryUsage(memStats.Alloc)
	m.prometheus.UpdateGoroutineCount(runtime.NumGoroutine())
	m.prometheus.UpdateApplicationUptime(m.startTime)
}

// File: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/iot-leituras-api/internal/metrics"
	"github.com/smartdevs17/iot-leituras-api/internal/processor"
	"github.com/smartdevs17/iot-leituras-api/internal/storage"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `json:"port"`
	Host            string        `json:"host"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	MaxBodyBytes    int64         `json:"max_body_bytes"`
	ListLimit       int           `json:"list_limit"`
	EnableMetrics   bool          `json:"enable_metrics"`
	EnableHealth    bool          `json:"enable_health"`
}

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config         *ServerConfig
	server         *http.Server
	router         *mux.Router
	storage        storage.Storage
	processor      *processor.ReadingProcessor
	metricsManager *metrics.Manager
	logger         *logrus.Logger
	now            func() time.Time

	stopUpdater chan struct{}
}

// NewHTTPServer creates a new HTTP server. metricsManager may be nil.
func NewHTTPServer(
	config *ServerConfig,
	storage storage.Storage,
	processor *processor.ReadingProcessor,
	metricsManager *metrics.Manager,
) (*HTTPServer, error) {
	if config == nil {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Server configuration is required")
	}
	if storage == nil || processor == nil {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Server requires a storage and a processor")
	}

	server := &HTTPServer{
		config:         config,
		storage:        storage,
		processor:      processor,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
		now:            time.Now,
		stopUpdater:    make(chan struct{}),
	}

	// Setup router
	server.setupRouter()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server, nil
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.notFoundHandler)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowedHandler)

	// Reading endpoints
	s.router.HandleFunc("/leituras", s.handle(s.createReadingHandler)).Methods(http.MethodPost)
	s.router.HandleFunc("/leituras", s.handle(s.listReadingsHandler)).Methods(http.MethodGet)

	// API log endpoints
	s.router.HandleFunc("/logs_api", s.handle(s.listLogsHandler)).Methods(http.MethodGet)

	// Health check endpoint
	if s.config.EnableHealth {
		s.router.HandleFunc("/health", s.handle(s.healthHandler)).Methods(http.MethodGet)
	}

	// Metrics endpoint
	if s.config.EnableMetrics && s.metricsManager != nil {
		s.router.Handle("/metrics", s.metricsManager.Handler()).Methods(http.MethodGet)
	}
}

// Handler returns the full middleware chain around the router
func (s *HTTPServer) Handler() http.Handler {
	return s.recoveryMiddleware(s.corsMiddleware(s.router))
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	// Update system and component metrics so they appear on first scrape
	if s.metricsManager != nil {
		s.updateHealthMetrics()
		go s.systemMetricsUpdater()
	}

	// Create a channel to receive startup errors
	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Give the server a moment to start and check for immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateHealthMetrics()
		case <-s.stopUpdater:
			return
		}
	}
}

func (s *HTTPServer) updateHealthMetrics() {
	s.metricsManager.UpdateSystemMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health := storage.CheckHealth(ctx, s.storage, "storage")
	s.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("storage", health.Healthy)
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	select {
	case <-s.stopUpdater:
	default:
		close(s.stopUpdater)
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) listLimit() int {
	if s.config.ListLimit <= 0 || s.config.ListLimit > storage.DefaultListLimit {
		return storage.DefaultListLimit
	}
	return s.config.ListLimit
}

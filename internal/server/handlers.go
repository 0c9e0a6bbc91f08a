package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/internal/processor"
	"github.com/smartdevs17/iot-leituras-api/internal/storage"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// apiHandler is a handler whose failures are rendered by handle
type apiHandler func(w http.ResponseWriter, r *http.Request) error

// handle adapts h to http.HandlerFunc, turning a returned error into an
// envelope response. Client errors keep their message; store and
// unclassified errors are logged and reported generically.
func (s *HTTPServer) handle(h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.writeFailure(w, r, err)
		}
	}
}

func (s *HTTPServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := utils.HTTPStatus(err)
	logger := s.logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})

	switch {
	case utils.IsClientError(err):
		var appErr *utils.AppError
		errors.As(err, &appErr)
		logger.Debug("Request rejected")
		s.writeResponse(w, status, false, nil, appErr.Message)
	case utils.IsStoreError(err):
		logger.Error("Storage error")
		s.writeResponse(w, status, false, nil, MsgDatabaseError)
	default:
		logger.Error("Unhandled error")
		s.writeResponse(w, http.StatusInternalServerError, false, nil, MsgInternalError)
	}
}

// createReadingHandler ingests one reading. Every call, accepted or not,
// leaves one entry in the API log.
func (s *HTTPServer) createReadingHandler(w http.ResponseWriter, r *http.Request) error {
	start := s.now()
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	body, err := processor.DecodeBody(r.Body)

	var id string
	if err == nil {
		id, err = s.processor.Ingest(r.Context(), body)
	}

	status := http.StatusCreated
	if err != nil {
		status = utils.HTTPStatus(err)
	}

	clientIP := ClientIP(r)
	elapsed := s.now().Sub(start).Milliseconds()
	entry := models.LogEntry{
		Endpoint:       "/leituras",
		Method:         http.MethodPost,
		AccessTime:     models.FormatTimestamp(start),
		ClientIP:       &clientIP,
		Payload:        processor.RedactPayload(body),
		Status:         status,
		ResponseTimeMs: &elapsed,
	}
	if err == nil {
		entry.ReadingID = &id
	}
	// The log write outlives a client that hangs up.
	s.storage.WriteLog(context.WithoutCancel(r.Context()), entry)
	s.recordIngest(err)

	if err != nil {
		return err
	}
	s.writeResponse(w, http.StatusCreated, true, map[string]string{"id": id}, MsgReadingCreated)
	return nil
}

func (s *HTTPServer) recordIngest(err error) {
	if s.metricsManager == nil {
		return
	}
	outcome := "accepted"
	switch {
	case err == nil:
	case utils.IsClientError(err):
		outcome = "rejected"
	default:
		outcome = "failed"
	}
	s.metricsManager.GetPrometheusMetrics().RecordReadingIngested("http", outcome)
}

// listReadingsHandler returns the newest readings with presenca and acesso
// coerced to booleans
func (s *HTTPServer) listReadingsHandler(w http.ResponseWriter, r *http.Request) error {
	docs, err := s.storage.ListReadings(r.Context(), s.listLimit())
	if err != nil {
		return err
	}

	for _, doc := range docs {
		doc[processor.FieldPresence] = processor.Truthy(doc[processor.FieldPresence])
		doc[processor.FieldAccess] = processor.Truthy(doc[processor.FieldAccess])
	}

	s.writeResponse(w, http.StatusOK, true, listData(docs), MsgOK)
	return nil
}

// listLogsHandler returns the newest API log entries
func (s *HTTPServer) listLogsHandler(w http.ResponseWriter, r *http.Request) error {
	docs, err := s.storage.ListLogs(r.Context(), s.listLimit())
	if err != nil {
		return err
	}

	s.writeResponse(w, http.StatusOK, true, listData(docs), MsgOK)
	return nil
}

func listData(docs []models.Document) ListData {
	if docs == nil {
		docs = []models.Document{}
	}
	return ListData{Total: len(docs), Data: docs}
}

// healthHandler reports store connectivity and ingestion counters
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := storage.CheckHealth(ctx, s.storage, "storage")
	data := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"storage":   health,
		"processor": s.processor.GetStats(),
	}

	if !health.Healthy {
		data["status"] = "unhealthy"
		s.writeResponse(w, http.StatusServiceUnavailable, false, data, MsgUnavailable)
		return nil
	}
	s.writeResponse(w, http.StatusOK, true, data, MsgOK)
	return nil
}

func (s *HTTPServer) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, http.StatusNotFound, false, nil, MsgNotFound)
}

func (s *HTTPServer) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, http.StatusMethodNotAllowed, false, nil, MsgMethodNotAllowed)
}

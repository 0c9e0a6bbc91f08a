package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/iot-leituras-api/internal/metrics"
	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// StorageWithMetrics wraps a storage implementation with metrics
type StorageWithMetrics struct {
	Storage
	metricsManager *metrics.Manager
}

// NewStorageWithMetrics creates a storage wrapper with metrics
func NewStorageWithMetrics(storage Storage, metricsManager *metrics.Manager) *StorageWithMetrics {
	return &StorageWithMetrics{
		Storage:        storage,
		metricsManager: metricsManager,
	}
}

func (s *StorageWithMetrics) record(operation, collection string, err error, start time.Time) {
	if s.metricsManager == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metricsManager.GetPrometheusMetrics().RecordDatabaseOperation(operation, collection, status, time.Since(start))
}

// Connect connects the wrapped storage and records the attempt
func (s *StorageWithMetrics) Connect(ctx context.Context) error {
	err := s.Storage.Connect(ctx)
	if s.metricsManager != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		pm := s.metricsManager.GetPrometheusMetrics()
		pm.RecordStoreConnectAttempt(outcome)
		pm.UpdateComponentHealth("storage", err == nil)
	}
	return err
}

// InsertReading saves a reading and records metrics
func (s *StorageWithMetrics) InsertReading(ctx context.Context, reading models.Reading) (string, error) {
	start := time.Now()
	id, err := s.Storage.InsertReading(ctx, reading)
	s.record("insert", CollectionReadings, err, start)
	return id, err
}

// ListReadings lists readings and records metrics
func (s *StorageWithMetrics) ListReadings(ctx context.Context, limit int) ([]models.Document, error) {
	start := time.Now()
	docs, err := s.Storage.ListReadings(ctx, limit)
	s.record("find", CollectionReadings, err, start)
	return docs, err
}

// InsertLog writes an API log entry and records the outcome of the write
func (s *StorageWithMetrics) InsertLog(ctx context.Context, entry models.LogEntry) error {
	start := time.Now()
	err := s.Storage.InsertLog(ctx, entry)
	s.record("insert", CollectionLogs, err, start)
	if s.metricsManager != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metricsManager.GetPrometheusMetrics().RecordAPILogWrite(status)
	}
	return err
}

// WriteLog is the best-effort form of InsertLog
func (s *StorageWithMetrics) WriteLog(ctx context.Context, entry models.LogEntry) {
	logWriteFailure(utils.GetLogger(), entry, s.InsertLog(ctx, entry))
}

// ListLogs lists API log entries and records metrics
func (s *StorageWithMetrics) ListLogs(ctx context.Context, limit int) ([]models.Document, error) {
	start := time.Now()
	docs, err := s.Storage.ListLogs(ctx, limit)
	s.record("find", CollectionLogs, err, start)
	return docs, err
}

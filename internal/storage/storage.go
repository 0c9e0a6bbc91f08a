// File: internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// Collection names shared by every backend
const (
	CollectionReadings = "leituras"
	CollectionLogs     = "logs_api"
)

// DefaultListLimit is both the default and the maximum size of a list
// operation
const DefaultListLimit = 100

// Storage defines the interface for reading and API log persistence
type Storage interface {
	// Connection management
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	// Reading operations
	InsertReading(ctx context.Context, reading models.Reading) (string, error)
	ListReadings(ctx context.Context, limit int) ([]models.Document, error)

	// API log operations. InsertLog reports the write result; WriteLog is the
	// best-effort form whose failures are logged and never surface.
	InsertLog(ctx context.Context, entry models.LogEntry) error
	WriteLog(ctx context.Context, entry models.LogEntry)
	ListLogs(ctx context.Context, limit int) ([]models.Document, error)
}

// StorageConfig holds backend connection settings
type StorageConfig struct {
	Type             string
	ConnectionString string
	Database         string
	ConnectTimeout   time.Duration
	MaxConnections   int
	MaxIdleTime      time.Duration
	ListLimit        int
}

// StorageHealth reports storage health status
type StorageHealth struct {
	Healthy   bool      `json:"healthy"`
	Backend   string    `json:"backend"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// CheckHealth pings s and reports the outcome
func CheckHealth(ctx context.Context, s Storage, backend string) *StorageHealth {
	health := &StorageHealth{Healthy: true, Backend: backend, CheckedAt: time.Now()}
	if err := s.Ping(ctx); err != nil {
		health.Healthy = false
		health.Error = err.Error()
	}
	return health
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}

// logWriteFailure reports an API log entry that InsertLog could not persist
func logWriteFailure(logger *logrus.Logger, entry models.LogEntry, err error) {
	if err == nil {
		return
	}
	fields := logger.WithField("endpoint", entry.Endpoint)
	if utils.HasCode(err, utils.ErrCodeStoreNotReady) {
		fields.Warn("Dropping API log, storage not connected")
		return
	}
	fields.WithError(err).Error("Failed to write API log")
}

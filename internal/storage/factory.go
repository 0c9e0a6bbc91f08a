// File: internal/storage/factory.go
package storage

import (
	"strings"

	"github.com/smartdevs17/iot-leituras-api/internal/config"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

var supportedTypes = []string{"mongo", "mongodb", "sqlite", "postgres", "postgresql", "memory"}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateStorageConfig(cfg); err != nil {
		return nil, err
	}

	storageConfig := &StorageConfig{
		Type:             cfg.Type,
		ConnectionString: cfg.URI,
		Database:         cfg.Database,
		ConnectTimeout:   cfg.ConnectTimeout,
		MaxConnections:   cfg.MaxConnections,
		MaxIdleTime:      cfg.MaxIdleTime,
		ListLimit:        cfg.ListLimit,
	}

	switch strings.ToLower(cfg.Type) {
	case "mongo", "mongodb":
		return NewMongoStorage(storageConfig), nil
	case "sqlite":
		return NewSQLiteStorage(storageConfig), nil
	case "postgres", "postgresql":
		return NewPostgreSQLStorage(storageConfig), nil
	default:
		return NewMemoryStorage(), nil
	}
}

// ValidateStorageConfig validates storage configuration
func ValidateStorageConfig(cfg *config.StorageConfig) error {
	if cfg == nil || cfg.Type == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Storage type is required")
	}

	supported := false
	for _, t := range supportedTypes {
		if strings.ToLower(cfg.Type) == t {
			supported = true
			break
		}
	}
	if !supported {
		return utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported storage type",
			"Supported types: "+strings.Join(supportedTypes, ", "))
	}

	if strings.ToLower(cfg.Type) != "memory" && cfg.URI == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Storage connection URI is required")
	}

	return nil
}

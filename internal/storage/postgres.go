package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// PostgreSQLStorage implements Storage interface using PostgreSQL
type PostgreSQLStorage struct {
	sqlStore
	config *StorageConfig
}

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
func NewPostgreSQLStorage(config *StorageConfig) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		sqlStore: sqlStore{
			name:       "PostgreSQL",
			numbered:   true,
			migrations: GetPostgresMigrations(),
			logger:     utils.GetLogger(),
		},
		config: config,
	}
}

// Connect establishes the connection pool, verifies it and applies migrations
func (p *PostgreSQLStorage) Connect(ctx context.Context) error {
	if p.connected() {
		return nil
	}

	db, err := sql.Open("postgres", p.config.ConnectionString)
	if err != nil {
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to open PostgreSQL database", err)
	}

	// Configure connection pool
	if p.config.MaxConnections > 0 {
		db.SetMaxOpenConns(p.config.MaxConnections)
		db.SetMaxIdleConns(p.config.MaxConnections / 2)
	}
	db.SetConnMaxIdleTime(p.config.MaxIdleTime)

	pingCtx := ctx
	if p.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, p.config.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to ping PostgreSQL database", err)
	}

	if err := p.migrate(ctx, db); err != nil {
		db.Close()
		return err
	}

	p.attach(db)
	p.logger.Info("PostgreSQL database connected")
	return nil
}

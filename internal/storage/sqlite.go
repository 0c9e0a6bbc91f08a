// File: internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// SQLiteStorage implements Storage interface using SQLite
type SQLiteStorage struct {
	sqlStore
	config *StorageConfig
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		sqlStore: sqlStore{
			name:       "SQLite",
			migrations: GetSQLiteMigrations(),
			logger:     utils.GetLogger(),
		},
		config: config,
	}
}

// Connect opens the database file and applies migrations
func (s *SQLiteStorage) Connect(ctx context.Context) error {
	if s.connected() {
		return nil
	}

	path := s.config.ConnectionString
	inMemory := path == ":memory:" || strings.Contains(path, "mode=memory")

	if !inMemory {
		dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to create database directory", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to open SQLite database", err)
	}

	// A single connection keeps in-memory databases from being per-connection
	// and serializes writers.
	db.SetMaxOpenConns(1)

	if !inMemory {
		db.SetConnMaxIdleTime(s.config.MaxIdleTime)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to enable WAL mode", err)
		}
	}

	if err := s.migrate(ctx, db); err != nil {
		db.Close()
		return err
	}

	s.attach(db)
	s.logger.WithField("path", path).Info("SQLite database connected")
	return nil
}

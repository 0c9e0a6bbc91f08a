package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// sqlStore holds the queries shared by the SQLite and PostgreSQL backends.
// Queries are written with ? placeholders and rebound per dialect.
type sqlStore struct {
	mu         sync.RWMutex
	db         *sql.DB
	name       string
	numbered   bool
	migrations []*Migration
	logger     *logrus.Logger
}

func (s *sqlStore) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeStoreNotReady, "Storage not connected")
	}
	return s.db, nil
}

func (s *sqlStore) connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

func (s *sqlStore) attach(db *sql.DB) {
	s.mu.Lock()
	previous := s.db
	s.db = db
	s.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
}

// rebind rewrites ? placeholders to $1, $2... for numbered dialects
func (s *sqlStore) rebind(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// migrate runs every migration against db
func (s *sqlStore) migrate(ctx context.Context, db *sql.DB) error {
	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying migration")

		if _, err := db.ExecContext(ctx, migration.SQL); err != nil {
			return utils.WrapAppError(utils.ErrCodeStoreError,
				fmt.Sprintf("Migration %s failed", migration.Version), err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *sqlStore) Close(ctx context.Context) error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()

	if db == nil {
		return nil
	}
	s.logger.Infof("%s database connection closed", s.name)
	return db.Close()
}

// Ping checks database connectivity
func (s *sqlStore) Ping(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to ping "+s.name, err)
	}
	return nil
}

// InsertReading stores reading under a generated id
func (s *sqlStore) InsertReading(ctx context.Context, reading models.Reading) (string, error) {
	db, err := s.handle()
	if err != nil {
		return "", err
	}

	id := utils.GenerateID()
	query := s.rebind(`INSERT INTO leituras (id, presenca, acesso, uid_tag, "timestamp") VALUES (?, ?, ?, ?, ?)`)
	if _, err := db.ExecContext(ctx, query, id, reading.Presence, reading.Access, reading.UIDTag, reading.Timestamp); err != nil {
		return "", utils.WrapAppError(utils.ErrCodeStoreError, "Failed to insert reading", err)
	}
	return id, nil
}

// ListReadings returns up to limit readings, newest timestamp first
func (s *sqlStore) ListReadings(ctx context.Context, limit int) ([]models.Document, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	query := s.rebind(`SELECT presenca, acesso, uid_tag, "timestamp" FROM leituras ORDER BY "timestamp" DESC, seq DESC LIMIT ?`)
	rows, err := db.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeStoreError, "Failed to query readings", err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.Presence, &r.Access, &r.UIDTag, &r.Timestamp); err != nil {
			return nil, utils.WrapAppError(utils.ErrCodeStoreError, "Failed to scan reading", err)
		}
		docs = append(docs, r.ToDocument())
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeStoreError, "Failed to iterate readings", err)
	}
	return docs, nil
}

// InsertLog inserts entry into logs_api
func (s *sqlStore) InsertLog(ctx context.Context, entry models.LogEntry) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	var payload interface{}
	if entry.Payload != nil {
		raw, err := json.Marshal(entry.Payload)
		if err != nil {
			return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to encode API log payload", err)
		}
		payload = string(raw)
	}

	query := s.rebind(`
		INSERT INTO logs_api
		(id, api_endpoint, method, access_time, leitura_id, client_ip, payload, status, response_time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = db.ExecContext(ctx, query,
		utils.GenerateID(),
		entry.Endpoint,
		entry.Method,
		entry.AccessTime,
		nullString(entry.ReadingID),
		nullString(entry.ClientIP),
		payload,
		entry.Status,
		nullInt64(entry.ResponseTimeMs),
	)
	if err != nil {
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to insert API log", err)
	}
	return nil
}

// WriteLog inserts entry into logs_api. Failures are logged and swallowed.
func (s *sqlStore) WriteLog(ctx context.Context, entry models.LogEntry) {
	logWriteFailure(s.logger, entry, s.InsertLog(ctx, entry))
}

// ListLogs returns up to limit log entries, newest access time first
func (s *sqlStore) ListLogs(ctx context.Context, limit int) ([]models.Document, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	query := s.rebind(`
		SELECT api_endpoint, method, access_time, leitura_id, client_ip, payload, status, response_time_ms
		FROM logs_api ORDER BY access_time DESC, seq DESC LIMIT ?`)
	rows, err := db.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeStoreError, "Failed to query API logs", err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		var (
			entry        models.LogEntry
			readingID    sql.NullString
			clientIP     sql.NullString
			payload      sql.NullString
			responseTime sql.NullInt64
		)
		if err := rows.Scan(&entry.Endpoint, &entry.Method, &entry.AccessTime,
			&readingID, &clientIP, &payload, &entry.Status, &responseTime); err != nil {
			return nil, utils.WrapAppError(utils.ErrCodeStoreError, "Failed to scan API log", err)
		}

		if readingID.Valid {
			entry.ReadingID = &readingID.String
		}
		if clientIP.Valid {
			entry.ClientIP = &clientIP.String
		}
		if responseTime.Valid {
			entry.ResponseTimeMs = &responseTime.Int64
		}
		if payload.Valid {
			var p models.LogPayload
			if err := json.Unmarshal([]byte(payload.String), &p); err != nil {
				return nil, utils.WrapAppError(utils.ErrCodeStoreError, "Failed to decode API log payload", err)
			}
			entry.Payload = &p
		}
		docs = append(docs, entry.ToDocument())
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeStoreError, "Failed to iterate API logs", err)
	}
	return docs, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// MemoryStorage keeps readings and logs in process memory. It backs tests and
// the "memory" storage type.
type MemoryStorage struct {
	mu        sync.RWMutex
	connected bool
	readings  []memoryRecord
	logs      []memoryRecord
	// FailConnect, when set, makes Connect fail this many times first.
	FailConnect int
}

type memoryRecord struct {
	seq       int
	timestamp string
	doc       models.Document
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Connect marks the store usable
func (m *MemoryStorage) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailConnect > 0 {
		m.FailConnect--
		return utils.NewAppError(utils.ErrCodeStoreError, "Memory storage refused connection")
	}
	m.connected = true
	return nil
}

// Close marks the store unusable. Stored data is kept.
func (m *MemoryStorage) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Ping reports whether Connect has succeeded
func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return utils.NewAppError(utils.ErrCodeStoreNotReady, "Storage not connected")
	}
	return nil
}

// InsertReading stores reading and returns a generated id
func (m *MemoryStorage) InsertReading(ctx context.Context, reading models.Reading) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return "", utils.NewAppError(utils.ErrCodeStoreNotReady, "Storage not connected")
	}

	m.readings = append(m.readings, memoryRecord{
		seq:       len(m.readings),
		timestamp: reading.Timestamp,
		doc:       reading.ToDocument(),
	})
	return utils.GenerateID(), nil
}

// ListReadings returns up to limit readings, newest timestamp first
func (m *MemoryStorage) ListReadings(ctx context.Context, limit int) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, utils.NewAppError(utils.ErrCodeStoreNotReady, "Storage not connected")
	}
	return newestFirst(m.readings, normalizeLimit(limit)), nil
}

// InsertLog appends entry
func (m *MemoryStorage) InsertLog(ctx context.Context, entry models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return utils.NewAppError(utils.ErrCodeStoreNotReady, "Storage not connected")
	}
	m.logs = append(m.logs, memoryRecord{
		seq:       len(m.logs),
		timestamp: entry.AccessTime,
		doc:       entry.ToDocument(),
	})
	return nil
}

// WriteLog appends entry. It is dropped with a warning when the store is not
// connected.
func (m *MemoryStorage) WriteLog(ctx context.Context, entry models.LogEntry) {
	logWriteFailure(utils.GetLogger(), entry, m.InsertLog(ctx, entry))
}

// ListLogs returns up to limit log entries, newest access time first
func (m *MemoryStorage) ListLogs(ctx context.Context, limit int) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, utils.NewAppError(utils.ErrCodeStoreNotReady, "Storage not connected")
	}
	return newestFirst(m.logs, normalizeLimit(limit)), nil
}

// newestFirst orders by timestamp descending. Equal timestamps keep the most
// recently inserted record first.
func newestFirst(records []memoryRecord, limit int) []models.Document {
	sorted := make([]memoryRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].timestamp != sorted[j].timestamp {
			return sorted[i].timestamp > sorted[j].timestamp
		}
		return sorted[i].seq > sorted[j].seq
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	docs := make([]models.Document, 0, len(sorted))
	for _, r := range sorted {
		doc := make(models.Document, len(r.doc))
		for k, v := range r.doc {
			doc[k] = v
		}
		docs = append(docs, doc)
	}
	return docs
}

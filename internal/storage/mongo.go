package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// MongoStorage implements Storage on a MongoDB database
type MongoStorage struct {
	config *StorageConfig
	logger *logrus.Logger

	mu       sync.RWMutex
	client   *mongo.Client
	readings *mongo.Collection
	logs     *mongo.Collection
}

// NewMongoStorage creates a MongoDB storage instance. Nothing is dialed until
// Connect.
func NewMongoStorage(config *StorageConfig) *MongoStorage {
	return &MongoStorage{
		config: config,
		logger: utils.GetLogger(),
	}
}

// Connect dials the server, verifies it with a ping and ensures the indexes
// exist. A failed attempt leaves the store unconnected; calling it on a
// connected store is a no-op.
func (s *MongoStorage) Connect(ctx context.Context) error {
	if s.connected() {
		return nil
	}

	timeout := s.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	opts := options.Client().
		ApplyURI(s.config.ConnectionString).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	if s.config.MaxConnections > 0 {
		opts.SetMaxPoolSize(uint64(s.config.MaxConnections))
	}
	if s.config.MaxIdleTime > 0 {
		opts.SetMaxConnIdleTime(s.config.MaxIdleTime)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to create MongoDB client", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to ping MongoDB", err)
	}

	db := client.Database(s.config.Database)
	readings := db.Collection(CollectionReadings)
	logs := db.Collection(CollectionLogs)

	if err := ensureMongoIndexes(pingCtx, readings, logs); err != nil {
		_ = client.Disconnect(context.Background())
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to create MongoDB indexes", err)
	}

	s.mu.Lock()
	if s.client != nil {
		// A concurrent Connect won the race.
		s.mu.Unlock()
		_ = client.Disconnect(context.Background())
		return nil
	}
	s.client = client
	s.readings = readings
	s.logs = logs
	s.mu.Unlock()

	s.logger.WithField("database", s.config.Database).Info("MongoDB connected")
	return nil
}

func ensureMongoIndexes(ctx context.Context, readings, logs *mongo.Collection) error {
	if _, err := readings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid_tag", Value: 1}},
		Options: options.Index().SetName("uid_ts"),
	}); err != nil {
		return fmt.Errorf("leituras uid_tag index: %w", err)
	}
	if _, err := readings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: 1}},
	}); err != nil {
		return fmt.Errorf("leituras timestamp index: %w", err)
	}
	if _, err := logs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "access_time", Value: 1}},
	}); err != nil {
		return fmt.Errorf("logs_api access_time index: %w", err)
	}
	return nil
}

// Close disconnects the client
func (s *MongoStorage) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client, s.readings, s.logs = nil, nil, nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	s.logger.Info("MongoDB connection closed")
	return client.Disconnect(ctx)
}

// Ping checks connectivity with the primary
func (s *MongoStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	if client == nil {
		return utils.NewAppError(utils.ErrCodeStoreNotReady, "Storage not connected")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to ping MongoDB", err)
	}
	return nil
}

func (s *MongoStorage) connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

func (s *MongoStorage) collections() (*mongo.Collection, *mongo.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, nil, utils.NewAppError(utils.ErrCodeStoreNotReady, "Storage not connected")
	}
	return s.readings, s.logs, nil
}

// InsertReading stores reading and returns the hex form of its ObjectID
func (s *MongoStorage) InsertReading(ctx context.Context, reading models.Reading) (string, error) {
	readings, _, err := s.collections()
	if err != nil {
		return "", err
	}

	res, err := readings.InsertOne(ctx, reading)
	if err != nil {
		return "", utils.WrapAppError(utils.ErrCodeStoreError, "Failed to insert reading", err)
	}

	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

// ListReadings returns up to limit readings sorted by timestamp descending
func (s *MongoStorage) ListReadings(ctx context.Context, limit int) ([]models.Document, error) {
	readings, _, err := s.collections()
	if err != nil {
		return nil, err
	}
	return findNewest(ctx, readings, "timestamp", normalizeLimit(limit))
}

// InsertLog inserts entry into logs_api
func (s *MongoStorage) InsertLog(ctx context.Context, entry models.LogEntry) error {
	_, logs, err := s.collections()
	if err != nil {
		return err
	}

	if _, err := logs.InsertOne(ctx, entry); err != nil {
		return utils.WrapAppError(utils.ErrCodeStoreError, "Failed to insert API log", err)
	}
	return nil
}

// WriteLog inserts entry into logs_api. Failures are logged and swallowed.
func (s *MongoStorage) WriteLog(ctx context.Context, entry models.LogEntry) {
	logWriteFailure(s.logger, entry, s.InsertLog(ctx, entry))
}

// ListLogs returns up to limit log entries sorted by access time descending
func (s *MongoStorage) ListLogs(ctx context.Context, limit int) ([]models.Document, error) {
	_, logs, err := s.collections()
	if err != nil {
		return nil, err
	}
	return findNewest(ctx, logs, "access_time", normalizeLimit(limit))
}

func findNewest(ctx context.Context, coll *mongo.Collection, sortField string, limit int) ([]models.Document, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.D{{Key: "_id", Value: 0}})

	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeStoreError, "Failed to query "+coll.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := make([]models.Document, 0, limit)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeStoreError, "Failed to decode "+coll.Name(), err)
	}
	return docs, nil
}

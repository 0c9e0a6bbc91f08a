package processor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// MsgInvalidBody is returned to callers whose body is absent or not a JSON
// object.
const MsgInvalidBody = "JSON inválido"

// ReadingStore is the part of the storage layer the processor writes to
type ReadingStore interface {
	InsertReading(ctx context.Context, reading models.Reading) (string, error)
}

// ReadingProcessor runs a decoded payload through validation, sanitization
// and persistence. It is shared by the HTTP API and the MQTT monitor.
type ReadingProcessor struct {
	store       ReadingStore
	validator   *ReadingValidator
	transformer *ReadingTransformer
	logger      *logrus.Logger

	mu    sync.Mutex
	stats ProcessorStats
}

// ProcessorStats counts ingestion outcomes since start
type ProcessorStats struct {
	Accepted      int64      `json:"accepted"`
	Rejected      int64      `json:"rejected"`
	Failed        int64      `json:"failed"`
	LastIngestAt  *time.Time `json:"last_ingest_at,omitempty"`
	LastErrorCode string     `json:"last_error_code,omitempty"`
}

// NewReadingProcessor creates a processor writing to store. A nil clock uses
// time.Now.
func NewReadingProcessor(store ReadingStore, now func() time.Time) *ReadingProcessor {
	return &ReadingProcessor{
		store:       store,
		validator:   NewReadingValidator(nil),
		transformer: NewReadingTransformer(now),
		logger:      utils.GetLogger(),
	}
}

// Ingest validates, sanitizes and stores body, returning the id the store
// assigned. Validation failures carry MISSING_FIELD or INVALID_UID codes and
// store failures STORE_ERROR or STORE_NOT_READY; none are retried.
func (p *ReadingProcessor) Ingest(ctx context.Context, body map[string]interface{}) (string, error) {
	if len(body) == 0 {
		err := utils.NewAppError(utils.ErrCodeInvalidBody, MsgInvalidBody)
		p.record(err)
		return "", err
	}

	if err := p.validator.Validate(body); err != nil {
		p.record(err)
		return "", err
	}

	reading := p.transformer.Sanitize(body)

	id, err := p.store.InsertReading(ctx, reading)
	if err != nil {
		p.logger.WithError(err).WithField("uid_tag", reading.UIDTag).Error("Failed to insert reading")
		p.record(err)
		return "", err
	}

	p.logger.WithFields(logrus.Fields{
		"id":       id,
		"uid_tag":  reading.UIDTag,
		"presenca": reading.Presence,
		"acesso":   reading.Access,
	}).Debug("Reading stored")
	p.record(nil)

	return id, nil
}

// GetStats returns a snapshot of the ingestion counters
func (p *ReadingProcessor) GetStats() ProcessorStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *ReadingProcessor) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.stats.LastIngestAt = &now
	switch {
	case err == nil:
		p.stats.Accepted++
	case utils.IsClientError(err):
		p.stats.Rejected++
		p.stats.LastErrorCode = utils.CodeOf(err)
	default:
		p.stats.Failed++
		p.stats.LastErrorCode = utils.CodeOf(err)
	}
}

// DecodeBody reads a single JSON object from r. Numbers are kept as
// json.Number so their literal text survives sanitization. An empty body,
// malformed JSON, a non-object value or trailing data yields INVALID_BODY.
func DecodeBody(r io.Reader) (map[string]interface{}, error) {
	if r == nil {
		return nil, utils.NewAppError(utils.ErrCodeInvalidBody, MsgInvalidBody, "empty body")
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeInvalidBody, MsgInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, utils.NewAppError(utils.ErrCodeInvalidBody, MsgInvalidBody, "trailing data after JSON object")
	}
	if len(body) == 0 {
		return nil, utils.NewAppError(utils.ErrCodeInvalidBody, MsgInvalidBody, "empty object")
	}

	return body, nil
}

// RedactPayload keeps only the trimmed uid_tag of body for audit logging. A
// nil body yields a nil payload.
func RedactPayload(body map[string]interface{}) *models.LogPayload {
	if body == nil {
		return nil
	}
	payload := &models.LogPayload{}
	if v, ok := body[FieldUIDTag]; ok && v != nil {
		uid := strings.TrimSpace(stringForm(v))
		payload.UIDTag = &uid
	}
	return payload
}

package processor

import (
	"strings"
	"time"

	"github.com/smartdevs17/iot-leituras-api/internal/models"
)

// ReadingTransformer normalizes validated payloads into readings
type ReadingTransformer struct {
	now func() time.Time
}

// NewReadingTransformer creates a transformer. A nil clock uses time.Now.
func NewReadingTransformer(now func() time.Time) *ReadingTransformer {
	if now == nil {
		now = time.Now
	}
	return &ReadingTransformer{now: now}
}

// Sanitize coerces presenca and acesso to booleans, trims uid_tag and fills a
// missing timestamp with the current local time. It never fails.
func (t *ReadingTransformer) Sanitize(body map[string]interface{}) models.Reading {
	reading := models.Reading{
		Presence: parsePresence(body[FieldPresence]),
		Access:   parseAccess(body[FieldAccess]),
		UIDTag:   strings.TrimSpace(stringForm(body[FieldUIDTag])),
	}

	if ts, ok := body[FieldTimestamp]; ok {
		reading.Timestamp = stringForm(ts)
	} else {
		reading.Timestamp = models.FormatTimestamp(t.now())
	}

	return reading
}

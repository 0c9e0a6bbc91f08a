package models

// LogPayload is the redacted request body kept in an API log entry. Only the
// UID tag is ever recorded.
type LogPayload struct {
	UIDTag *string `json:"uid_tag" bson:"uid_tag"`
}

// LogEntry is the audit record of a single API call
type LogEntry struct {
	Endpoint       string      `json:"api_endpoint" bson:"api_endpoint"`
	Method         string      `json:"method" bson:"method"`
	AccessTime     string      `json:"access_time" bson:"access_time"`
	ReadingID      *string     `json:"leitura_id" bson:"leitura_id"`
	ClientIP       *string     `json:"client_ip" bson:"client_ip"`
	Payload        *LogPayload `json:"payload" bson:"payload"`
	Status         int         `json:"status" bson:"status"`
	ResponseTimeMs *int64      `json:"response_time_ms" bson:"response_time_ms"`
}

// ToDocument flattens the entry into the shape list operations return.
func (e LogEntry) ToDocument() Document {
	var payload interface{}
	if e.Payload != nil {
		payload = map[string]interface{}{"uid_tag": stringOrNil(e.Payload.UIDTag)}
	}
	var responseTime interface{}
	if e.ResponseTimeMs != nil {
		responseTime = *e.ResponseTimeMs
	}

	return Document{
		"api_endpoint":     e.Endpoint,
		"method":           e.Method,
		"access_time":      e.AccessTime,
		"leitura_id":       stringOrNil(e.ReadingID),
		"client_ip":        stringOrNil(e.ClientIP),
		"payload":          payload,
		"status":           e.Status,
		"response_time_ms": responseTime,
	}
}

func stringOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

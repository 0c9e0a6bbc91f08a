package models

import "time"

// TimestampLayout is the ISO-8601, second precision, zone-less layout used for
// reading timestamps and log access times.
const TimestampLayout = "2006-01-02T15:04:05"

// FormatTimestamp renders t in TimestampLayout using the server's local zone.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// Reading represents one sensor event posted by a device
type Reading struct {
	Presence  bool   `json:"presenca" bson:"presenca"`
	Access    bool   `json:"acesso" bson:"acesso"`
	UIDTag    string `json:"uid_tag" bson:"uid_tag"`
	Timestamp string `json:"timestamp" bson:"timestamp"`
}

// ToDocument flattens the reading into the shape list operations return.
func (r Reading) ToDocument() Document {
	return Document{
		"presenca":  r.Presence,
		"acesso":    r.Access,
		"uid_tag":   r.UIDTag,
		"timestamp": r.Timestamp,
	}
}

// Document is a stored record as returned by list operations. The store
// assigned id is never included.
type Document map[string]interface{}

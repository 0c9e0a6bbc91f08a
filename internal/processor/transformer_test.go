package processor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.Local)
}

func TestSanitize_Presence(t *testing.T) {
	tr := NewReadingTransformer(fixedClock)

	cases := []struct {
		in   interface{}
		want bool
	}{
		{"1", true},
		{" 2 ", true},
		{"-1", true},
		{"0", false},
		{"abc", false},
		{"1.0", false},
		{"", false},
		{nil, false},
		{json.Number("1"), true},
		{json.Number("0"), false},
		{json.Number("1.5"), false},
		{true, false},
		{false, false},
	}

	for _, tc := range cases {
		r := tr.Sanitize(map[string]interface{}{"presenca": tc.in, "acesso": "false", "uid_tag": "AB12CD34"})
		assert.Equal(t, tc.want, r.Presence, "presenca %#v", tc.in)
	}
}

func TestSanitize_Access(t *testing.T) {
	tr := NewReadingTransformer(fixedClock)

	cases := []struct {
		in   interface{}
		want bool
	}{
		{"true", true},
		{"TRUE", true},
		{"True", true},
		{true, true},
		{false, false},
		{"yes", false},
		{"1", false},
		{json.Number("1"), false},
		{" true", false},
		{nil, false},
	}

	for _, tc := range cases {
		r := tr.Sanitize(map[string]interface{}{"presenca": "1", "acesso": tc.in, "uid_tag": "AB12CD34"})
		assert.Equal(t, tc.want, r.Access, "acesso %#v", tc.in)
	}

	absent := tr.Sanitize(map[string]interface{}{"presenca": "1", "uid_tag": "AB12CD34"})
	assert.False(t, absent.Access)
}

func TestSanitize_UIDAndTimestamp(t *testing.T) {
	tr := NewReadingTransformer(fixedClock)

	r := tr.Sanitize(map[string]interface{}{"presenca": "1", "acesso": "true", "uid_tag": "  AB12 34CD \n"})
	assert.Equal(t, "AB12 34CD", r.UIDTag)
	assert.Equal(t, "2025-03-14T09:26:53", r.Timestamp)

	withTS := tr.Sanitize(map[string]interface{}{
		"presenca":  "0",
		"acesso":    "false",
		"uid_tag":   "AB12CD34",
		"timestamp": "2024-01-01T00:00:00.123+02:00",
	})
	assert.Equal(t, "2024-01-01T00:00:00.123+02:00", withTS.Timestamp)

	// Present but null stays present: it is not replaced by the clock.
	nullTS := tr.Sanitize(map[string]interface{}{"presenca": "1", "acesso": "true", "uid_tag": "AB12CD34", "timestamp": nil})
	assert.Equal(t, "", nullTS.Timestamp)

	numericTS := tr.Sanitize(map[string]interface{}{"presenca": "1", "acesso": "true", "uid_tag": "AB12CD34", "timestamp": json.Number("1700000000")})
	assert.Equal(t, "1700000000", numericTS.Timestamp)
}

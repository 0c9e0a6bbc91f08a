package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

type fakeStore struct {
	readings []models.Reading
	err      error
}

func (f *fakeStore) InsertReading(_ context.Context, r models.Reading) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.readings = append(f.readings, r)
	return "id-" + r.UIDTag, nil
}

func TestIngest_StoresSanitizedReading(t *testing.T) {
	store := &fakeStore{}
	p := NewReadingProcessor(store, fixedClock)

	body, err := DecodeBody(strings.NewReader(`{"presenca":"1","acesso":"true","uid_tag":"AB12 34CD"}`))
	require.NoError(t, err)

	id, err := p.Ingest(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "id-AB12 34CD", id)

	require.Len(t, store.readings, 1)
	assert.Equal(t, models.Reading{
		Presence:  true,
		Access:    true,
		UIDTag:    "AB12 34CD",
		Timestamp: "2025-03-14T09:26:53",
	}, store.readings[0])

	assert.Equal(t, int64(1), p.GetStats().Accepted)
}

func TestIngest_ValidationFailureDoesNotReachStore(t *testing.T) {
	store := &fakeStore{}
	p := NewReadingProcessor(store, fixedClock)

	_, err := p.Ingest(context.Background(), map[string]interface{}{"presenca": "1", "acesso": "true"})
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeMissingField))
	assert.Empty(t, store.readings)

	stats := p.GetStats()
	assert.Equal(t, int64(1), stats.Rejected)
	assert.Equal(t, utils.ErrCodeMissingField, stats.LastErrorCode)
}

func TestIngest_StoreErrorPropagates(t *testing.T) {
	storeErr := utils.WrapAppError(utils.ErrCodeStoreError, "insert reading", errors.New("socket closed"))
	p := NewReadingProcessor(&fakeStore{err: storeErr}, fixedClock)

	_, err := p.Ingest(context.Background(), map[string]interface{}{"presenca": "1", "acesso": "true", "uid_tag": "AB12CD34"})
	require.ErrorIs(t, err, storeErr)
	assert.Equal(t, int64(1), p.GetStats().Failed)
}

func TestIngest_EmptyBody(t *testing.T) {
	p := NewReadingProcessor(&fakeStore{}, fixedClock)

	_, err := p.Ingest(context.Background(), nil)
	assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidBody))
}

func TestDecodeBody(t *testing.T) {
	invalid := []string{
		``,
		`not json`,
		`null`,
		`[]`,
		`[{"presenca":"1"}]`,
		`"text"`,
		`{}`,
		`{"presenca":"1"} trailing`,
		`{"presenca":"1"}{"acesso":"true"}`,
	}
	for _, in := range invalid {
		_, err := DecodeBody(strings.NewReader(in))
		assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidBody), "body %q", in)
	}

	body, err := DecodeBody(strings.NewReader(`{"presenca": 1, "uid_tag": "AB12CD34"}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, "1", stringForm(body["presenca"]))

	_, err = DecodeBody(nil)
	assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidBody))
}

func TestRedactPayload(t *testing.T) {
	assert.Nil(t, RedactPayload(nil))

	p := RedactPayload(map[string]interface{}{"uid_tag": " AB12CD34 ", "presenca": "1", "secret": "x"})
	require.NotNil(t, p)
	require.NotNil(t, p.UIDTag)
	assert.Equal(t, "AB12CD34", *p.UIDTag)

	missing := RedactPayload(map[string]interface{}{"presenca": "1"})
	require.NotNil(t, missing)
	assert.Nil(t, missing.UIDTag)
}

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy(true))
	assert.True(t, Truthy("0"))
	assert.True(t, Truthy(int32(1)))
	assert.True(t, Truthy(int64(-3)))
	assert.True(t, Truthy(1.5))
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(int32(0)))
	assert.False(t, Truthy(0.0))
}

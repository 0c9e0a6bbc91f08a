package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

type sleepRecorder struct {
	calls []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.calls = append(r.calls, d)
}

func TestInitialize_GivesUpAfterRetries(t *testing.T) {
	store := NewMemoryStorage()
	store.FailConnect = 10
	rec := &sleepRecorder{}

	attempts := 0
	err := Initialize(context.Background(), store, RetryPolicy{
		Retries:   5,
		Delay:     2 * time.Second,
		Sleep:     rec.sleep,
		OnAttempt: func(int, error) { attempts++ },
	})

	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeStoreUnavailable))
	assert.Equal(t, 5, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second}, rec.calls)
	assert.Error(t, store.Ping(context.Background()))
}

func TestInitialize_SucceedsOnThirdAttempt(t *testing.T) {
	store := NewMemoryStorage()
	store.FailConnect = 2
	rec := &sleepRecorder{}

	err := Initialize(context.Background(), store, RetryPolicy{Retries: 5, Delay: time.Second, Sleep: rec.sleep})

	require.NoError(t, err)
	assert.Len(t, rec.calls, 2)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestInitialize_StopsOnCancelledContext(t *testing.T) {
	store := NewMemoryStorage()
	store.FailConnect = 10
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Initialize(ctx, store, RetryPolicy{
		Retries: 5,
		Sleep:   func(time.Duration) { cancel() },
		OnAttempt: func(int, error) {
			attempts++
		},
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 5, p.Retries)
	assert.Equal(t, 2*time.Second, p.Delay)
	assert.NotNil(t, p.Sleep)
}

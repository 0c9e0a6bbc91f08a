package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/iot-leituras-api/internal/metrics"
	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/internal/processor"
	"github.com/smartdevs17/iot-leituras-api/internal/storage"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type panickingLogWriter struct{}

func (panickingLogWriter) WriteLog(ctx context.Context, entry models.LogEntry) {
	panic("log sink gone")
}

func newTestMonitor(t *testing.T, mm *metrics.Manager) (*EventMonitor, *storage.MemoryStorage) {
	t.Helper()
	utils.InitLogger("error", "text", "discard", "")

	store := storage.NewMemoryStorage()
	require.NoError(t, store.Connect(context.Background()))

	clock := func() time.Time { return testNow }
	em := NewEventMonitor(processor.NewReadingProcessor(store, clock), store, &MonitorConfig{
		Broker: "tcp://127.0.0.1:1",
		Topic:  "leituras/+",
	}, mm)
	em.now = clock
	return em, store
}

func TestHandleMessage_StoresReading(t *testing.T) {
	reg := prometheus.NewRegistry()
	mm := metrics.NewManagerWithRegistry(reg, reg)
	em, store := newTestMonitor(t, mm)

	err := em.handleMessage("leituras/porta-1", []byte(`{"presenca": "1", "acesso": "TRUE", "uid_tag": "DE AD BE EF"}`))
	require.NoError(t, err)

	readings, err := store.ListReadings(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, true, readings[0]["presenca"])
	assert.Equal(t, true, readings[0]["acesso"])
	assert.Equal(t, "DE AD BE EF", readings[0]["uid_tag"])

	logs, err := store.ListLogs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "leituras/porta-1", logs[0]["api_endpoint"])
	assert.Equal(t, MethodMQTT, logs[0]["method"])
	assert.Equal(t, 201, logs[0]["status"])
	assert.Nil(t, logs[0]["client_ip"])
	assert.NotNil(t, logs[0]["leitura_id"])

	stats := em.GetStats()
	assert.EqualValues(t, 1, stats.MessagesReceived)
	assert.EqualValues(t, 1, stats.ReadingsAccepted)
	assert.Equal(t, 1.0, testutil.ToFloat64(
		mm.GetPrometheusMetrics().ReadingsIngestedTotal.WithLabelValues("mqtt", "accepted")))
}

func TestHandleMessage_RejectsInvalidPayloads(t *testing.T) {
	em, store := newTestMonitor(t, nil)

	err := em.handleMessage("leituras/porta-1", []byte(`not json`))
	assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidBody))

	err = em.handleMessage("leituras/porta-1", []byte(`{"presenca": 1, "acesso": 1, "uid_tag": "zz"}`))
	assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidUID))

	readings, err := store.ListReadings(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, readings)

	logs, err := store.ListLogs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, 400, entry["status"])
		assert.Nil(t, entry["leitura_id"])
	}

	stats := em.GetStats()
	assert.EqualValues(t, 2, stats.ReadingsRejected)
	assert.Nil(t, stats.LastError)
}

func TestOnMessage_RecoversFromPanic(t *testing.T) {
	em, _ := newTestMonitor(t, nil)
	em.logs = panickingLogWriter{}

	assert.NotPanics(t, func() {
		em.onMessage(nil, fakeMessage{
			topic:   "leituras/porta-2",
			payload: []byte(`{"presenca": 1, "acesso": 1, "uid_tag": "ABCDEF12"}`),
		})
	})

	stats := em.GetStats()
	require.NotNil(t, stats.LastError)
	assert.Contains(t, *stats.LastError, "log sink gone")
}

func TestStart_UnreachableBroker(t *testing.T) {
	em, _ := newTestMonitor(t, nil)
	em.config.ConnectTimeout = 2 * time.Second

	err := em.Start(context.Background())
	require.Error(t, err)
	assert.False(t, em.IsRunning())

	health := em.GetHealth()
	assert.False(t, health.Healthy)
	assert.Contains(t, health.Issues, "monitor not running")
	assert.NoError(t, em.Stop())
}

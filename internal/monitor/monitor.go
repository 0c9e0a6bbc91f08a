// File: internal/monitor/monitor.go
package monitor

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/iot-leituras-api/internal/metrics"
	"github.com/smartdevs17/iot-leituras-api/internal/models"
	"github.com/smartdevs17/iot-leituras-api/internal/processor"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// MethodMQTT is the method recorded in the API log for broker deliveries
const MethodMQTT = "MQTT"

// Monitor defines the reading monitor interface
type Monitor interface {
	// Lifecycle management
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool

	// Statistics and monitoring
	GetStats() *MonitorStats
	GetHealth() *HealthStatus
}

// LogWriter records one API log entry per delivered message
type LogWriter interface {
	WriteLog(ctx context.Context, entry models.LogEntry)
}

// EventMonitor subscribes to an MQTT topic and ingests every message as a
// reading, exactly as POST /leituras would.
type EventMonitor struct {
	// Dependencies
	processor      *processor.ReadingProcessor
	logs           LogWriter
	metricsManager *metrics.Manager
	logger         *logrus.Logger

	// Configuration
	config *MonitorConfig

	// State management
	mu        sync.RWMutex
	running   bool
	connected bool
	client    pahomqtt.Client
	now       func() time.Time

	// Statistics
	stats *MonitorStats
}

// MonitorConfig holds monitor configuration
type MonitorConfig struct {
	Broker         string        `json:"broker"`
	ClientID       string        `json:"client_id"`
	Topic          string        `json:"topic"`
	QoS            byte          `json:"qos"`
	Username       string        `json:"username"`
	Password       string        `json:"-"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	IngestTimeout  time.Duration `json:"ingest_timeout"`
}

// MonitorStats provides monitoring statistics
type MonitorStats struct {
	StartTime        time.Time  `json:"start_time"`
	IsRunning        bool       `json:"is_running"`
	MessagesReceived uint64     `json:"messages_received"`
	ReadingsAccepted uint64     `json:"readings_accepted"`
	ReadingsRejected uint64     `json:"readings_rejected"`
	ReadingsFailed   uint64     `json:"readings_failed"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
	LastError        *string    `json:"last_error,omitempty"`
	LastErrorTime    *time.Time `json:"last_error_time,omitempty"`
}

// HealthStatus provides health information
type HealthStatus struct {
	Healthy           bool     `json:"healthy"`
	ConnectionHealthy bool     `json:"connection_healthy"`
	Issues            []string `json:"issues,omitempty"`
}

// NewEventMonitor creates a new MQTT reading monitor. metricsManager may be
// nil.
func NewEventMonitor(
	proc *processor.ReadingProcessor,
	logs LogWriter,
	config *MonitorConfig,
	metricsManager *metrics.Manager,
) *EventMonitor {
	return &EventMonitor{
		processor:      proc,
		logs:           logs,
		metricsManager: metricsManager,
		config:         config,
		logger:         utils.GetLogger(),
		now:            time.Now,
		stats:          &MonitorStats{},
	}
}

// Start connects to the broker and subscribes to the configured topic
func (em *EventMonitor) Start(ctx context.Context) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if em.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Monitor already running")
	}

	em.logger.WithFields(logrus.Fields{
		"broker": em.config.Broker,
		"topic":  em.config.Topic,
	}).Info("Starting MQTT reading monitor")

	timeout := em.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := pahomqtt.NewClient(em.clientOptions(timeout))
	token := client.Connect()
	if !waitToken(ctx, token, timeout) {
		client.Disconnect(0)
		return utils.NewAppError(utils.ErrCodeInternal, "MQTT connect timed out", em.config.Broker)
	}
	if err := token.Error(); err != nil {
		return utils.WrapAppError(utils.ErrCodeInternal, "MQTT connect failed", err)
	}

	em.client = client
	em.connected = true
	em.running = true
	em.stats.StartTime = em.now()
	em.stats.IsRunning = true

	em.logger.Info("MQTT reading monitor started")
	return nil
}

func (em *EventMonitor) clientOptions(timeout time.Duration) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(em.config.Broker)
	opts.SetClientID(em.config.ClientID)
	if em.config.Username != "" {
		opts.SetUsername(em.config.Username)
		opts.SetPassword(em.config.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(timeout)
	opts.SetKeepAlive(30 * time.Second)

	// Subscriptions do not survive a clean session, so subscribe on every
	// (re)connect.
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		em.setConnected(true)
		token := c.Subscribe(em.config.Topic, em.config.QoS, em.onMessage)
		if !token.WaitTimeout(timeout) || token.Error() != nil {
			em.logger.WithError(token.Error()).WithField("topic", em.config.Topic).Error("MQTT subscribe failed")
			em.recordError(fmt.Errorf("subscribe %s: %v", em.config.Topic, token.Error()))
			return
		}
		em.logger.WithField("topic", em.config.Topic).Info("Subscribed to readings topic")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		em.setConnected(false)
		em.logger.WithError(err).Warn("MQTT connection lost")
		em.recordError(err)
	})

	return opts
}

func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Stop unsubscribes and disconnects from the broker
func (em *EventMonitor) Stop() error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if !em.running {
		return nil
	}

	em.logger.Info("Stopping MQTT reading monitor")

	if em.client != nil {
		em.client.Unsubscribe(em.config.Topic).WaitTimeout(time.Second)
		em.client.Disconnect(250)
	}
	em.running = false
	em.connected = false
	em.stats.IsRunning = false

	em.logger.Info("MQTT reading monitor stopped")
	return nil
}

// IsRunning returns whether the monitor is running
func (em *EventMonitor) IsRunning() bool {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.running
}

func (em *EventMonitor) setConnected(connected bool) {
	em.mu.Lock()
	em.connected = connected
	em.mu.Unlock()

	if em.metricsManager != nil {
		em.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("mqtt", connected)
	}
}

// onMessage is the paho callback. A panic while handling one message must
// not take down the client's delivery goroutine.
func (em *EventMonitor) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			em.logger.WithFields(logrus.Fields{
				"topic": msg.Topic(),
				"panic": r,
			}).Error("MQTT handler panic recovered")
			em.recordError(fmt.Errorf("panic: %v", r))
		}
	}()

	if err := em.handleMessage(msg.Topic(), msg.Payload()); err != nil {
		em.logger.WithError(err).WithField("topic", msg.Topic()).Warn("MQTT reading not stored")
	}
}

// handleMessage ingests one payload and writes its log entry. The returned
// error is informational; the message is never redelivered.
func (em *EventMonitor) handleMessage(topic string, payload []byte) error {
	start := em.now()

	ctx := context.Background()
	if em.config.IngestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, em.config.IngestTimeout)
		defer cancel()
	}

	body, err := processor.DecodeBody(bytes.NewReader(payload))

	var id string
	if err == nil {
		id, err = em.processor.Ingest(ctx, body)
	}

	status := http.StatusCreated
	if err != nil {
		status = utils.HTTPStatus(err)
	}

	elapsed := em.now().Sub(start).Milliseconds()
	entry := models.LogEntry{
		Endpoint:       topic,
		Method:         MethodMQTT,
		AccessTime:     models.FormatTimestamp(start),
		Payload:        processor.RedactPayload(body),
		Status:         status,
		ResponseTimeMs: &elapsed,
	}
	if err == nil {
		entry.ReadingID = &id
	}
	em.logs.WriteLog(ctx, entry)

	em.recordMessage(start, err)
	return err
}

func (em *EventMonitor) recordMessage(at time.Time, err error) {
	outcome := "accepted"

	em.mu.Lock()
	em.stats.MessagesReceived++
	em.stats.LastMessageAt = &at
	switch {
	case err == nil:
		em.stats.ReadingsAccepted++
	case utils.IsClientError(err):
		outcome = "rejected"
		em.stats.ReadingsRejected++
	default:
		outcome = "failed"
		em.stats.ReadingsFailed++
	}
	em.mu.Unlock()

	if err != nil && !utils.IsClientError(err) {
		em.recordError(err)
	}
	if em.metricsManager != nil {
		em.metricsManager.GetPrometheusMetrics().RecordReadingIngested("mqtt", outcome)
	}
}

func (em *EventMonitor) recordError(err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	now := em.now()

	em.mu.Lock()
	defer em.mu.Unlock()
	em.stats.LastError = &msg
	em.stats.LastErrorTime = &now
}

// GetStats returns a snapshot of the monitor statistics
func (em *EventMonitor) GetStats() *MonitorStats {
	em.mu.RLock()
	defer em.mu.RUnlock()

	stats := *em.stats
	return &stats
}

// GetHealth reports whether the monitor is running and connected
func (em *EventMonitor) GetHealth() *HealthStatus {
	em.mu.RLock()
	defer em.mu.RUnlock()

	health := &HealthStatus{
		Healthy:           em.running && em.connected,
		ConnectionHealthy: em.connected,
	}
	if !em.running {
		health.Issues = append(health.Issues, "monitor not running")
	}
	if em.running && !em.connected {
		health.Issues = append(health.Issues, "broker connection lost")
	}
	return health
}

package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/musclemate/internal/workflow"
)

// bufferCapacity bounds messages held while the broker is unreachable.
const bufferCapacity = 1000

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed in order on reconnect.
type RealPublisher struct {
	client  paho.Client
	runID   string
	timeout time.Duration
	logger  *slog.Logger

	mu            sync.Mutex
	buf           *ringBuffer
	everConnected bool
}

// NewRealPublisher starts connecting to broker in the background and returns
// immediately. The broker's last-will marks the run as disconnected.
func NewRealPublisher(broker, runID string, timeout time.Duration, logger *slog.Logger) (*RealPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &RealPublisher{
		runID:   runID,
		timeout: timeout,
		logger:  logger,
		buf:     newRingBuffer(bufferCapacity, logger),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     EventShutdown,
		Reason:    "MQTT_DISCONNECT",
	}, runID)
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID(runID)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", "error", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p, nil
}

func clientID(runID string) string {
	if len(runID) > 8 {
		runID = runID[:8]
	}
	return "musclemate-" + runID
}

func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	pending := p.buf.drainAll()
	reconnect := p.everConnected
	p.everConnected = true
	p.mu.Unlock()

	p.logger.Info("mqtt connected", "replay", len(pending))
	for _, m := range pending {
		if err := p.send(m); err != nil {
			p.logger.Warn("mqtt replay failed", "topic", m.topic, "error", err)
		}
	}

	if reconnect {
		if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: EventReconnected}); err != nil {
			p.logger.Warn("mqtt reconnect event failed", "error", err)
		}
	}
}

// Publish sends a controller event to the MQTT broker.
func (p *RealPublisher) Publish(event workflow.Event) error {
	payload, err := FormatPayload(event, p.runID)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event, p.runID)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}
	return p.send(m)
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		p.logger.Warn("mqtt closing with unsent messages", "count", n)
	}
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}

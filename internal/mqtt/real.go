package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/sigtrack/internal/logic"
)

const publishTimeout = 5 * time.Second

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down wait in an outbox and are replayed in order before
// anything newer goes out.
type RealPublisher struct {
	client paho.Client
	prefix string
	gate   *gate

	mu        sync.Mutex
	connected bool // a connection has been made at least once
}

// NewClientID returns a client identifier unique to this process.
func NewClientID() string {
	return "sigtrack-" + uuid.NewString()
}

// NewRealPublisher creates a publisher for the given broker and topic prefix.
// The connection is established in the background; an empty clientID gets a
// generated one.
func NewRealPublisher(broker, prefix, clientID string, bufferSize int) *RealPublisher {
	if clientID == "" {
		clientID = NewClientID()
	}
	p := &RealPublisher{
		prefix: prefix,
		gate:   newGate(bufferSize),
	}

	will, _ := FormatSystemPayload(WillEvent(time.Now()))
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(SystemTopic(prefix), will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.gate.shut()
			slog.Warn("mqtt: connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// WillEvent is the message the broker publishes if the daemon vanishes.
func WillEvent(at time.Time) SystemEvent {
	return SystemEvent{
		Timestamp: at,
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
		Retained:  true,
	}
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	n := p.gate.replay(func(msg message) {
		c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	})
	slog.Info("mqtt: connected", "replayed", n)

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err := p.send(message{topic: SystemTopic(p.prefix), payload: payload, qos: 1}); err != nil {
			slog.Warn("mqtt: reconnect notice failed", "err", err)
		}
	}
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	pending, _ := p.gate.counts()
	return pending
}

// Dropped returns how many messages were discarded because the outbox was full.
func (p *RealPublisher) Dropped() int {
	_, dropped := p.gate.counts()
	return dropped
}

// Publish sends a tracker event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(message{topic: EventsTopic(p.prefix), payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.send(message{topic: SystemTopic(p.prefix), payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg message) error {
	token, sent := p.gate.submit(msg, p.client.IsConnectionOpen, func(m message) paho.Token {
		return p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	})
	if !sent {
		return nil
	}
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

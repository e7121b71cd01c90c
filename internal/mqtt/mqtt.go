// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/sigtrack/internal/logic"
)

// TimeFormat is used for every timestamp in published payloads.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// EventsTopic returns the topic tracker events are published on.
func EventsTopic(prefix string) string { return prefix + "/events" }

// SystemTopic returns the topic lifecycle events are published on.
func SystemTopic(prefix string) string { return prefix + "/system" }

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a tracker event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports the broker link and the offline outbox.
type ConnectionStatus interface {
	IsConnected() bool
	// Buffered is the number of messages waiting for a connection.
	Buffered() int
	// Dropped counts messages discarded because the outbox was full.
	Dropped() int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RELOAD"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Event EventPayload `json:"event"`
}

// EventPayload contains the tracker event details.
type EventPayload struct {
	Tracker   string       `json:"tracker"`
	Kind      string       `json:"kind"`
	Type      string       `json:"type"`
	Timestamp string       `json:"timestamp"`
	Value     *float64     `json:"value"`
	Peak      *PeakPayload `json:"peak,omitempty"`
	Values    []*float64   `json:"values,omitempty"`
}

// PeakPayload carries the extremes of a PEAK_TO_PEAK event.
type PeakPayload struct {
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	MinTime string   `json:"min_time"`
	MaxTime string   `json:"max_time"`
}

// number maps non-finite values to JSON null.
func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FormatPayload creates the JSON payload for a tracker event.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := EventPayload{
		Tracker:   event.Tracker,
		Kind:      string(event.Kind),
		Type:      string(event.Type),
		Timestamp: event.Timestamp.UTC().Format(TimeFormat),
		Value:     number(event.Value),
	}
	if event.Peak != nil {
		p.Peak = &PeakPayload{
			Min:     number(event.Peak.Min),
			Max:     number(event.Peak.Max),
			MinTime: event.Peak.MinTime.UTC().Format(TimeFormat),
			MaxTime: event.Peak.MaxTime.UTC().Format(TimeFormat),
		}
	}
	if event.Values != nil {
		p.Values = make([]*float64, len(event.Values))
		for i, v := range event.Values {
			p.Values[i] = number(v)
		}
	}
	return json.Marshal(Payload{Event: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

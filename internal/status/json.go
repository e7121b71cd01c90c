package status

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/sweeney/sigtrack/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Source        SourceJSON     `json:"source"`
	Ready         bool           `json:"ready"`
	Frames        int            `json:"frames"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        map[string]int `json:"event_counts"`
	Trackers      []TrackerJSON  `json:"trackers"`
	Config        ConfigJSON     `json:"config"`
}

// SourceJSON describes the sample source and its latest reading.
type SourceJSON struct {
	Type          string   `json:"type"`
	Description   string   `json:"description,omitempty"`
	Active        bool     `json:"active"`
	LastValue     *float64 `json:"last_value"`
	LastValueTime string   `json:"last_value_time,omitempty"`
	FrameSize     int      `json:"frame_size"`
	IntervalMs    int64    `json:"interval_ms"`
	Subscribers   int      `json:"subscribers"`
	Observers     int      `json:"observers"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
	Pending   int    `json:"outbox_pending"`
	Dropped   int    `json:"dropped"`
}

// TrackerJSON is the JSON representation of one tracker.
type TrackerJSON struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Phase  string   `json:"phase"`
	Last   *float64 `json:"last"`
	Events int      `json:"events"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Unit        string `json:"unit"`
	PollMs      int64  `json:"poll_ms"`
	FrameSize   int    `json:"frame_size"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	HTTPAddr    string `json:"http_addr"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NewTrackerJSON converts a tracker state for encoding.
func NewTrackerJSON(ts logic.TrackerState) TrackerJSON {
	return TrackerJSON{
		Name:   ts.Name,
		Kind:   string(ts.Kind),
		Phase:  ts.Phase,
		Last:   finite(ts.Last),
		Events: ts.Events,
	}
}

func buildInner(snap Snapshot) StatusInner {
	src := SourceJSON{
		Type:        snap.Config.SourceType,
		Description: snap.Description,
		Active:      snap.Active,
		FrameSize:   snap.SamplesPerFrame,
		IntervalMs:  snap.SamplingInterval.Milliseconds(),
		Subscribers: snap.Subscribers,
		Observers:   snap.Observers,
	}
	if src.Description == "" {
		src.Description = snap.Config.Source
	}
	if snap.HasValue {
		src.LastValue = finite(snap.LastValue)
		src.LastValueTime = snap.LastValueTime.UTC().Format(time.RFC3339)
	}

	counts := make(map[string]int, len(snap.Counts))
	for k, v := range snap.Counts {
		counts[string(k)] = v
	}

	trackers := make([]TrackerJSON, 0, len(snap.Trackers))
	for _, ts := range snap.Trackers {
		trackers = append(trackers, NewTrackerJSON(ts))
	}

	return StatusInner{
		Source:        src,
		Ready:         snap.Ready,
		Frames:        snap.Frames,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Topic:     snap.Config.Topic,
			Pending:   snap.MQTTPending,
			Dropped:   snap.MQTTDropped,
		},
		Counts:   counts,
		Trackers: trackers,
		Config: ConfigJSON{
			Unit:        snap.Config.Unit,
			PollMs:      snap.Config.PollMs,
			FrameSize:   snap.Config.FrameSize,
			HeartbeatMs: snap.Config.HeartbeatMs,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

// SortedCounts returns the event types in snap.Counts in name order.
func SortedCounts(snap Snapshot) []string {
	keys := make([]string, 0, len(snap.Counts))
	for k := range snap.Counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// Package logic turns sample frames into tracker events.
// It has no I/O: time comes from the frames and from injected time.Time
// parameters, and results are returned as values.
package logic

import (
	"errors"
	"time"
)

// ErrUnknownKind is returned for a tracker kind that has no constructor.
var ErrUnknownKind = errors.New("unknown tracker kind")

// Kind names a tracker constructor.
type Kind string

const (
	KindChange          Kind = "change"
	KindChangeForced    Kind = "change_forced"
	KindPeakToPeak      Kind = "peak_to_peak"
	KindAverage         Kind = "average"
	KindStdDev          Kind = "stddev"
	KindMeanAbsDev      Kind = "mad"
	KindBuffered        Kind = "buffered"
	KindBufferedAverage Kind = "buffered_average"
	KindRange           Kind = "range"
	KindThreshold       Kind = "threshold"
	KindMax             Kind = "max"
	KindMin             Kind = "min"
)

// kindAliases maps the historical strategy labels onto their kinds.
var kindAliases = map[Kind]Kind{
	"rmse": KindStdDev,
	"sd":   KindMeanAbsDev,
}

// Canonical resolves aliases.
func (k Kind) Canonical() Kind {
	if c, ok := kindAliases[k]; ok {
		return c
	}
	return k
}

// Spec configures one tracker. Windows and intervals are in the pipeline's
// time unit; which fields apply depends on Kind.
type Spec struct {
	Name          string  `yaml:"name" json:"name"`
	Kind          Kind    `yaml:"kind" json:"kind"`
	Window        float64 `yaml:"window" json:"window,omitempty"`
	ForceInterval float64 `yaml:"force_interval" json:"force_interval,omitempty"`
	Capacity      int     `yaml:"capacity" json:"capacity,omitempty"`
	Initial       float64 `yaml:"initial" json:"initial,omitempty"`
	Min           float64 `yaml:"min" json:"min,omitempty"`
	Max           float64 `yaml:"max" json:"max,omitempty"`
	EnterWindow   float64 `yaml:"enter_window" json:"enter_window,omitempty"`
	LeaveWindow   float64 `yaml:"leave_window" json:"leave_window,omitempty"`
	RiseWindow    float64 `yaml:"rise_window" json:"rise_window,omitempty"`
	FallWindow    float64 `yaml:"fall_window" json:"fall_window,omitempty"`
	Threshold     float64 `yaml:"threshold" json:"threshold,omitempty"`
	Delta         float64 `yaml:"delta" json:"delta,omitempty"`
}

// EventType identifies what a tracker reported.
type EventType string

const (
	EventChange     EventType = "CHANGE"
	EventPeakToPeak EventType = "PEAK_TO_PEAK"
	EventAggregate  EventType = "AGGREGATE"
	EventBatch      EventType = "BATCH"
	EventRangeEnter EventType = "RANGE_ENTER"
	EventRangeLeave EventType = "RANGE_LEAVE"
	EventRise       EventType = "RISE"
	EventFall       EventType = "FALL"
	EventExtremum   EventType = "EXTREMUM"
)

// Event is one tracker report, ready to be published.
type Event struct {
	Tracker   string
	Kind      Kind
	Type      EventType
	Timestamp time.Time
	Value     float64
	// Peak is set for PEAK_TO_PEAK events.
	Peak *Peak
	// Values is set for BATCH events.
	Values []float64
}

// Peak carries the extremes behind a peak-to-peak report.
type Peak struct {
	Min     float64
	Max     float64
	MinTime time.Time
	MaxTime time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts map[EventType]int

// Clone returns an independent copy.
func (c EventCounts) Clone() EventCounts {
	out := make(EventCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Total sums every type.
func (c EventCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// TrackerState is a point-in-time view of one tracker.
type TrackerState struct {
	Name  string
	Kind  Kind
	Phase string
	// Last is the tracker's last reported (or initial) value.
	Last   float64
	Events int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// Package status provides a thread-safe status tracker for the sigtrack daemon.
// It is read by the HTTP handlers and by the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sigtrack/internal/logic"
	"github.com/sweeney/sigtrack/internal/stream"
)

// Config contains daemon configuration for display.
type Config struct {
	SourceType  string
	Source      string
	Unit        string
	PollMs      int64
	FrameSize   int
	HeartbeatMs int64
	Broker      string
	Topic       string
	HTTPAddr    string
}

// Source is the live stream the daemon feeds. *stream.Stream implements it.
type Source interface {
	Description() string
	Active() bool
	LastValue() (stream.Reading, bool)
	SamplesPerFrame() int
	SamplingInterval() time.Duration
	Subscribers() int
	AddLastValueObserver() int
	RemoveLastValueObserver() int
	LastValueObservers() int
}

// Link is the publisher's view of the broker. mqtt.ConnectionStatus
// implements it.
type Link interface {
	IsConnected() bool
	Buffered() int
	Dropped() int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	// Read from the Source.
	Description      string
	Active           bool
	HasValue         bool
	LastValue        float64
	LastValueTime    time.Time
	SamplesPerFrame  int
	SamplingInterval time.Duration
	Subscribers      int
	Observers        int

	Ready     bool
	Frames    int
	Trackers  []logic.TrackerState
	Counts    logic.EventCounts
	StartTime time.Time
	Now       time.Time

	// Read from the Link.
	MQTTConnected bool
	MQTTPending   int
	MQTTDropped   int

	Config Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. Source and link
// state is not copied in; it is read when a snapshot is taken.
type Tracker struct {
	mu        sync.RWMutex
	snap      Snapshot
	src       Source
	link      Link
	observers int
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the pipeline state. Called from runLoop after every frame.
// The slice and map are owned by the tracker afterwards.
func (t *Tracker) Update(states []logic.TrackerState, ready bool, frames int, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Trackers = states
	t.snap.Ready = ready
	t.snap.Frames = frames
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetSource switches to the stream built by a (re)load. Last-value observers
// registered through Observe move with it.
func (t *Tracker) SetSource(src Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.src == src {
		return
	}
	for i := 0; i < t.observers; i++ {
		if t.src != nil {
			t.src.RemoveLastValueObserver()
		}
		if src != nil {
			src.AddLastValueObserver()
		}
	}
	t.src = src
}

// SetLink sets where MQTT connectivity and outbox depth are read from.
func (t *Tracker) SetLink(link Link) {
	t.mu.Lock()
	t.link = link
	t.mu.Unlock()
}

// Observe registers interest in the source's last value, for as long as a
// view is displaying it. The returned function releases it.
func (t *Tracker) Observe() (release func()) {
	t.mu.Lock()
	t.observers++
	if t.src != nil {
		t.src.AddLastValueObserver()
	}
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.observers--
			if t.src != nil {
				t.src.RemoveLastValueObserver()
			}
			t.mu.Unlock()
		})
	}
}

// SetConfig replaces the displayed configuration after a reload.
func (t *Tracker) SetConfig(cfg Config) {
	t.mu.Lock()
	t.snap.Config = cfg
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	src, link := t.src, t.link
	t.mu.RUnlock()

	if src != nil {
		s.Description = src.Description()
		s.Active = src.Active()
		if r, ok := src.LastValue(); ok {
			s.HasValue = true
			s.LastValue = r.Value
			s.LastValueTime = r.Time
		}
		s.SamplesPerFrame = src.SamplesPerFrame()
		s.SamplingInterval = src.SamplingInterval()
		s.Subscribers = src.Subscribers()
		s.Observers = src.LastValueObservers()
	}
	if link != nil {
		s.MQTTConnected = link.IsConnected()
		s.MQTTPending = link.Buffered()
		s.MQTTDropped = link.Dropped()
	}
	s.Now = time.Now()
	return s
}

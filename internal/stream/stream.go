// Package stream groups polled readings into fixed-size frames and fans them
// out to subscribers.
package stream

import (
	"sync"
	"time"

	"github.com/sweeney/sigtrack/pkg/tracker"
)

// Frame is a run of evenly spaced readings. It implements
// tracker.Batch[float64]; times are expressed in the frame's unit.
type Frame struct {
	Values   []float64
	Start    time.Time
	Interval time.Duration
	Unit     tracker.Unit
}

func (f Frame) Len() int { return len(f.Values) }

func (f Frame) Value(i int) float64 { return f.Values[i] }

func (f Frame) Time(i int) float64 {
	return f.Unit.FromTime(f.Start.Add(time.Duration(i) * f.Interval))
}

// FrameFunc receives every emitted frame.
type FrameFunc func(Frame)

// Reading is a single value with the time it was taken.
type Reading struct {
	Value float64
	Time  time.Time
}

// Stream collects readings into frames. It is safe for concurrent use;
// subscribers are called without the lock held, on the goroutine that
// completed the frame.
type Stream struct {
	description string
	size        int
	interval    time.Duration
	unit        tracker.Unit

	mu          sync.Mutex
	subscribers map[int]FrameFunc
	nextID      int
	watchers    int
	active      bool
	onActive    []func(bool)
	pending     []float64
	start       time.Time
	last        Reading
	hasLast     bool
}

// New returns a stream that emits a frame every samplesPerFrame readings.
// interval is the nominal spacing used to timestamp readings within a frame.
func New(description string, samplesPerFrame int, interval time.Duration, unit tracker.Unit) *Stream {
	if samplesPerFrame < 1 {
		samplesPerFrame = 1
	}
	return &Stream{
		description: description,
		size:        samplesPerFrame,
		interval:    interval,
		unit:        unit,
		subscribers: make(map[int]FrameFunc),
		pending:     make([]float64, 0, samplesPerFrame),
	}
}

// Description returns the human-readable name of the data.
func (s *Stream) Description() string { return s.description }

// SamplesPerFrame returns the frame size.
func (s *Stream) SamplesPerFrame() int { return s.size }

// SamplingInterval returns the nominal spacing between readings.
func (s *Stream) SamplingInterval() time.Duration { return s.interval }

// Subscribe registers fn for every future frame. The returned function
// removes it.
func (s *Stream) Subscribe(fn FrameFunc) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of frame subscribers.
func (s *Stream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// AddLastValueObserver records interest in LastValue and returns the new count.
func (s *Stream) AddLastValueObserver() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers++
	return s.watchers
}

// RemoveLastValueObserver drops one observer and returns the new count.
// The count never goes below zero.
func (s *Stream) RemoveLastValueObserver() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchers > 0 {
		s.watchers--
	}
	return s.watchers
}

// LastValueObservers returns the number of registered last-value observers.
func (s *Stream) LastValueObservers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchers
}

// LastValue returns the most recent reading. ok is false before the first.
func (s *Stream) LastValue() (r Reading, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// Active reports whether the source is currently producing readings.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// OnActiveChanged registers fn to be called whenever Active flips.
func (s *Stream) OnActiveChanged(fn func(active bool)) {
	s.mu.Lock()
	s.onActive = append(s.onActive, fn)
	s.mu.Unlock()
}

// SetActive updates the active flag and notifies listeners on a change.
// Going inactive discards a partially filled frame.
func (s *Stream) SetActive(active bool) {
	s.mu.Lock()
	if s.active == active {
		s.mu.Unlock()
		return
	}
	s.active = active
	if !active {
		s.pending = s.pending[:0]
	}
	listeners := append([]func(bool){}, s.onActive...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(active)
	}
}

// Push adds one reading. When the frame fills it is emitted to subscribers.
func (s *Stream) Push(v float64, at time.Time) {
	s.mu.Lock()
	s.last = Reading{Value: v, Time: at}
	s.hasLast = true
	if len(s.pending) == 0 {
		s.start = at
	}
	s.pending = append(s.pending, v)
	if len(s.pending) < s.size {
		s.mu.Unlock()
		return
	}
	f := Frame{
		Values:   append([]float64(nil), s.pending...),
		Start:    s.start,
		Interval: s.interval,
		Unit:     s.unit,
	}
	s.pending = s.pending[:0]
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(f)
	}
}

// snapshotSubscribers returns subscribers in registration order. Caller holds mu.
func (s *Stream) snapshotSubscribers() []FrameFunc {
	out := make([]FrameFunc, 0, len(s.subscribers))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subscribers[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

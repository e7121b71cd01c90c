package tracker

import "math"

// ExtremumTracker picks the winning sample of each fixed-duration window.
//
// A window opens at the first sample seen after the previous one closed. It
// closes on the first sample whose distance from the opening time is strictly
// greater than the duration; that sample still competes in the closing window.
// The report carries the winner's own time, not the closing time.
type ExtremumTracker[V Number] struct {
	basis
	duration float64
	beats    func(winner, candidate V) bool
	initial  V

	winner     V
	winnerTime float64
	started    float64

	last     V
	lastTime float64
	onResult ResultFunc[V]
}

// NewExtremumTracker returns a tracker where candidate replaces the current
// winner whenever beats(winner, candidate) is true.
func NewExtremumTracker[V Number](duration float64, initial V, beats func(winner, candidate V) bool) *ExtremumTracker[V] {
	e := &ExtremumTracker[V]{
		duration: duration,
		beats:    beats,
		initial:  initial,
	}
	e.Reset()
	return e
}

// NewMaxTracker reports the largest sample of each window.
func NewMaxTracker[V Number](duration float64, initial V) *ExtremumTracker[V] {
	return NewExtremumTracker(duration, initial, func(w, c V) bool { return w < c })
}

// NewMinTracker reports the smallest sample of each window.
func NewMinTracker[V Number](duration float64, initial V) *ExtremumTracker[V] {
	return NewExtremumTracker(duration, initial, func(w, c V) bool { return w > c })
}

// OnResult registers the report callback, replacing any previous one.
func (e *ExtremumTracker[V]) OnResult(fn ResultFunc[V]) { e.onResult = fn }

// Duration returns the window length.
func (e *ExtremumTracker[V]) Duration() float64 { return e.duration }

// SetDuration changes the window length and discards the open window.
func (e *ExtremumTracker[V]) SetDuration(d float64) {
	e.duration = d
	e.open()
}

// LastValue returns the last reported winner (or the initial value).
func (e *ExtremumTracker[V]) LastValue() V { return e.last }

// LastTime returns the time of the last reported winner; zero before one.
func (e *ExtremumTracker[V]) LastTime() float64 { return e.lastTime }

// Reset restores the initial value and discards the open window.
func (e *ExtremumTracker[V]) Reset() {
	e.last = e.initial
	e.lastTime = 0
	e.open()
}

// Phase reports PhaseAccumulating while a window is open.
func (e *ExtremumTracker[V]) Phase() Phase {
	if math.IsNaN(e.started) {
		return PhaseIdle
	}
	return PhaseAccumulating
}

// open clears the window; the next sample starts a new one.
func (e *ExtremumTracker[V]) open() {
	e.started = math.NaN()
	e.winnerTime = math.NaN()
	e.winner = 0
}

// Process feeds a batch through the tracker.
func (e *ExtremumTracker[V]) Process(b Batch[V]) {
	for i, n := 0, b.Len(); i < n; i++ {
		v, t := b.Value(i), b.Time(i)
		if math.IsNaN(e.started) {
			e.started = t
			e.winner, e.winnerTime = v, t
		} else if e.beats(e.winner, v) {
			e.winner, e.winnerTime = v, t
		}
		if math.Abs(t-e.started) <= e.duration {
			continue
		}
		e.last, e.lastTime = e.winner, e.winnerTime
		e.open()
		if e.onResult != nil {
			e.onResult(e.last, e.lastTime)
		}
	}
}

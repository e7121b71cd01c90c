package tracker

// Range is an open interval: a value is inside when Min < v < Max.
type Range[V Number] struct {
	Min V
	Max V
}

// Contains reports whether v lies strictly inside the range.
func (r Range[V]) Contains(v V) bool {
	return r.Min < v && v < r.Max
}

// CrossingFunc receives the value and time of the sample that started a
// committed range crossing.
type CrossingFunc[V Number] func(value V, t float64)

// RangeTracker tracks whether a signal is inside a range, debouncing each
// direction with its own dwell window.
//
// A crossing becomes pending on the first sample on the other side and
// commits when the signal has stayed there for longer than the direction's
// window; a sample back on the committed side cancels it. A committed
// crossing reports the sample that started it, not the one that completed it.
// The tracker starts out of range.
type RangeTracker[V Number] struct {
	basis
	rng     Range[V]
	inRange bool
	enter   dwell[V]
	leave   dwell[V]
	onEnter CrossingFunc[V]
	onLeave CrossingFunc[V]
}

// NewRangeTracker returns a tracker for r with the given dwell windows.
func NewRangeTracker[V Number](r Range[V], inRangeWindow, outOfRangeWindow float64) *RangeTracker[V] {
	return &RangeTracker[V]{
		rng:   r,
		enter: dwell[V]{window: inRangeWindow},
		leave: dwell[V]{window: outOfRangeWindow},
	}
}

// OnEnter registers the callback for committed entries into the range.
func (r *RangeTracker[V]) OnEnter(fn CrossingFunc[V]) { r.onEnter = fn }

// OnLeave registers the callback for committed exits from the range.
func (r *RangeTracker[V]) OnLeave(fn CrossingFunc[V]) { r.onLeave = fn }

// Range returns the tracked interval.
func (r *RangeTracker[V]) Range() Range[V] { return r.rng }

// SetRange replaces the interval. The committed state is kept and pending
// crossings are cancelled.
func (r *RangeTracker[V]) SetRange(rng Range[V]) {
	r.rng = rng
	r.enter.cancel()
	r.leave.cancel()
}

// InRange reports the committed state.
func (r *RangeTracker[V]) InRange() bool { return r.inRange }

// OutOfRange is !InRange.
func (r *RangeTracker[V]) OutOfRange() bool { return !r.inRange }

// InRangeWindow returns the dwell window for entering the range.
func (r *RangeTracker[V]) InRangeWindow() float64 { return r.enter.window }

// SetInRangeWindow changes the entry dwell window and cancels a pending entry.
func (r *RangeTracker[V]) SetInRangeWindow(w float64) {
	r.enter.window = w
	r.enter.cancel()
}

// OutOfRangeWindow returns the dwell window for leaving the range.
func (r *RangeTracker[V]) OutOfRangeWindow() float64 { return r.leave.window }

// SetOutOfRangeWindow changes the exit dwell window and cancels a pending exit.
func (r *RangeTracker[V]) SetOutOfRangeWindow(w float64) {
	r.leave.window = w
	r.leave.cancel()
}

// InRangeDuration is the time since the last entry candidate was captured,
// as of the last in-range sample.
func (r *RangeTracker[V]) InRangeDuration() float64 { return r.enter.elapsed }

// OutOfRangeDuration is the time since the last exit candidate was captured,
// as of the last out-of-range sample.
func (r *RangeTracker[V]) OutOfRangeDuration() float64 { return r.leave.elapsed }

// Phase reports PhasePending while a crossing waits out its window.
func (r *RangeTracker[V]) Phase() Phase {
	if r.enter.armed || r.leave.armed {
		return PhasePending
	}
	return PhaseIdle
}

// Process feeds a batch through the tracker.
func (r *RangeTracker[V]) Process(b Batch[V]) {
	for i, n := 0, b.Len(); i < n; i++ {
		v, t := b.Value(i), b.Time(i)
		if r.rng.Contains(v) {
			r.leave.cancel()
			r.step(&r.enter, true, v, t, r.onEnter)
		} else {
			r.enter.cancel()
			r.step(&r.leave, false, v, t, r.onLeave)
		}
	}
}

// step advances the dwell for the side the sample is on.
func (r *RangeTracker[V]) step(d *dwell[V], side bool, v V, t float64, fn CrossingFunc[V]) {
	var commit bool
	if !d.armed && r.inRange != side {
		commit = d.begin(v, t)
	} else {
		commit = d.advance(t)
	}
	if !commit {
		return
	}
	r.inRange = side
	if fn != nil {
		fn(d.value, d.start)
	}
}

package tracker

import "math"

// TransitionFunc receives a committed predicate transition and the time of
// the sample that committed it.
type TransitionFunc func(dir Direction, t float64)

// PredicateTracker debounces a boolean predicate evaluated per sample.
//
// It follows the same pending/commit/cancel rules as RangeTracker, with the
// predicate in place of range membership: a change of the predicate starts a
// pending transition, the transition commits once the predicate has held for
// longer than the direction's window, and a sample agreeing with the committed
// value cancels it. Unlike RangeTracker the report carries the commit time.
type PredicateTracker struct {
	basis
	initial    bool
	value      bool
	dir        Direction
	changeTime float64
	checkTime  float64
	rise       dwell[uint8]
	fall       dwell[uint8]
	onChange   TransitionFunc
}

// NewPredicateTracker returns a tracker whose committed value starts at initial.
// falseTrueWindow debounces rising transitions, trueFalseWindow falling ones.
func NewPredicateTracker(falseTrueWindow, trueFalseWindow float64, initial bool) *PredicateTracker {
	p := &PredicateTracker{}
	p.Set(falseTrueWindow, trueFalseWindow, initial)
	return p
}

// Set reconfigures both windows and the initial value, then resets.
func (p *PredicateTracker) Set(falseTrueWindow, trueFalseWindow float64, initial bool) {
	p.rise.window = falseTrueWindow
	p.fall.window = trueFalseWindow
	p.initial = initial
	p.Reset()
}

// Reset returns the tracker to its initial value and drops pending transitions.
func (p *PredicateTracker) Reset() {
	p.value = p.initial
	p.dir = Unchanged
	p.changeTime = math.Inf(-1)
	p.checkTime = math.Inf(-1)
	p.rise = dwell[uint8]{window: p.rise.window, start: math.Inf(-1)}
	p.fall = dwell[uint8]{window: p.fall.window, start: math.Inf(-1)}
}

// OnTransition registers the report callback, replacing any previous one.
func (p *PredicateTracker) OnTransition(fn TransitionFunc) { p.onChange = fn }

// Value returns the committed predicate value.
func (p *PredicateTracker) Value() bool { return p.value }

// LastDirection returns the direction of the last committed transition.
func (p *PredicateTracker) LastDirection() Direction { return p.dir }

// LastChangeTime returns when the last transition committed (-Inf if never).
func (p *PredicateTracker) LastChangeTime() float64 { return p.changeTime }

// LastCheckTime returns the time of the last evaluated sample (-Inf if none).
func (p *PredicateTracker) LastCheckTime() float64 { return p.checkTime }

// FalseTrueWindow returns the dwell window for rising transitions.
func (p *PredicateTracker) FalseTrueWindow() float64 { return p.rise.window }

// SetFalseTrueWindow changes the rising dwell window and resets the tracker.
func (p *PredicateTracker) SetFalseTrueWindow(w float64) {
	p.rise.window = w
	p.Reset()
}

// TrueFalseWindow returns the dwell window for falling transitions.
func (p *PredicateTracker) TrueFalseWindow() float64 { return p.fall.window }

// SetTrueFalseWindow changes the falling dwell window and resets the tracker.
func (p *PredicateTracker) SetTrueFalseWindow(w float64) {
	p.fall.window = w
	p.Reset()
}

// Phase reports PhasePending while a transition waits out its window.
func (p *PredicateTracker) Phase() Phase {
	if p.rise.armed || p.fall.armed {
		return PhasePending
	}
	return PhaseIdle
}

// Process evaluates test for indexes [0, n) with times from timeAt.
func (p *PredicateTracker) Process(n int, test func(i int) bool, timeAt func(i int) float64) {
	for i := 0; i < n; i++ {
		v, t := test(i), timeAt(i)
		p.checkTime = t
		if v == p.value {
			p.rise.cancel()
			p.fall.cancel()
			continue
		}
		d, dir := &p.rise, FalseTrue
		if p.value {
			d, dir = &p.fall, TrueFalse
		}
		var commit bool
		if d.armed {
			commit = d.advance(t)
		} else {
			commit = d.begin(0, t)
		}
		if commit {
			p.value = v
			p.dir = dir
			p.changeTime = t
			if p.onChange != nil {
				p.onChange(dir, t)
			}
		}
	}
}

// ThresholdTracker debounces "sample > threshold + delta" with a
// PredicateTracker. The threshold is its own series, sampled at the same
// indexes as the signal.
type ThresholdTracker[V Number] struct {
	*PredicateTracker
	delta V
}

// NewThresholdTracker returns a threshold tracker.
func NewThresholdTracker[V Number](falseTrueWindow, trueFalseWindow float64, initial bool, delta V) *ThresholdTracker[V] {
	return &ThresholdTracker[V]{
		PredicateTracker: NewPredicateTracker(falseTrueWindow, trueFalseWindow, initial),
		delta:            delta,
	}
}

// ThresholdDelta returns the offset added to the threshold.
func (t *ThresholdTracker[V]) ThresholdDelta() V { return t.delta }

// SetThresholdDelta changes the offset and resets the tracker.
func (t *ThresholdTracker[V]) SetThresholdDelta(delta V) {
	t.delta = delta
	t.PredicateTracker.Reset()
}

// Set reconfigures windows, initial value and delta, then resets.
func (t *ThresholdTracker[V]) Set(falseTrueWindow, trueFalseWindow float64, initial bool, delta V) {
	t.delta = delta
	t.PredicateTracker.Set(falseTrueWindow, trueFalseWindow, initial)
}

// Process evaluates the batch against threshold(i) + delta.
func (t *ThresholdTracker[V]) Process(b Batch[V], threshold func(i int) V) {
	t.PredicateTracker.Process(b.Len(), func(i int) bool {
		return b.Value(i) > threshold(i)+t.delta
	}, b.Time)
}

// ProcessConstant evaluates the batch against a fixed threshold.
func (t *ThresholdTracker[V]) ProcessConstant(b Batch[V], threshold V) {
	t.Process(b, func(int) V { return threshold })
}

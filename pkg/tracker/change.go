package tracker

import "math"

// ChangeFunc receives a reported value and the time it was observed.
type ChangeFunc[V Number] func(value V, t float64)

// forceTimer fires at most once per interval, measured from its own last fire.
type forceTimer struct {
	interval float64
	last     float64
}

func (f *forceTimer) due(t float64) bool {
	if math.Abs(t-f.last) >= f.interval {
		f.last = t
		return true
	}
	return false
}

// ChangeTracker reports every sample whose value differs from the last
// reported value.
//
// When built with NewForceUpdatedChangeTracker it also reports an unchanged
// value once the force interval has elapsed since the force timer last fired.
// Value changes do not restart the force timer; the two triggers keep
// separate clocks.
type ChangeTracker[V Number] struct {
	basis
	last     V
	lastTime float64
	force    *forceTimer
	onChange ChangeFunc[V]
}

// NewChangeTracker returns a tracker whose last value starts at initial.
// Samples equal to initial are not reported until some other value is seen.
func NewChangeTracker[V Number](initial V) *ChangeTracker[V] {
	return &ChangeTracker[V]{last: initial}
}

// NewForceUpdatedChangeTracker returns a change tracker that also reports
// unchanged values every forceInterval.
func NewForceUpdatedChangeTracker[V Number](initial V, forceInterval float64) *ChangeTracker[V] {
	return &ChangeTracker[V]{
		last:  initial,
		force: &forceTimer{interval: forceInterval},
	}
}

// OnChange registers the report callback, replacing any previous one.
func (c *ChangeTracker[V]) OnChange(fn ChangeFunc[V]) { c.onChange = fn }

// LastValue returns the last reported value (or the initial value).
func (c *ChangeTracker[V]) LastValue() V { return c.last }

// LastTime returns the time of the last report; zero before the first one.
func (c *ChangeTracker[V]) LastTime() float64 { return c.lastTime }

// ForceInterval returns the force-update interval, or 0 if there is none.
func (c *ChangeTracker[V]) ForceInterval() float64 {
	if c.force == nil {
		return 0
	}
	return c.force.interval
}

// Phase is always PhaseIdle: a change tracker holds nothing between reports.
func (c *ChangeTracker[V]) Phase() Phase { return PhaseIdle }

// Process feeds a batch through the tracker.
func (c *ChangeTracker[V]) Process(b Batch[V]) {
	for i, n := 0, b.Len(); i < n; i++ {
		v, t := b.Value(i), b.Time(i)
		// The force timer is only consulted when the value is unchanged.
		if c.last != v || (c.force != nil && c.force.due(t)) {
			c.last = v
			c.lastTime = t
			if c.onChange != nil {
				c.onChange(v, t)
			}
		}
	}
}

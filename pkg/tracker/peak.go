package tracker

import "math"

// PeakFunc receives a peak-to-peak report.
type PeakFunc[V Number] func(peakToPeak, min, max V, minTime, maxTime float64)

// extent is a running min/max with the times each was first reached.
type extent[V Number] struct {
	set              bool
	min, max         V
	minTime, maxTime float64
}

func (e *extent[V]) track(v V, t float64) {
	if !e.set {
		e.set = true
		e.min, e.max = v, v
		e.minTime, e.maxTime = t, t
		return
	}
	if v > e.max {
		e.max = v
		e.maxTime = t
	}
	if v < e.min {
		e.min = v
		e.minTime = t
	}
}

func (e *extent[V]) reset() {
	*e = extent[V]{minTime: math.NaN(), maxTime: math.NaN()}
}

// PeakToPeakTracker reports the peak-to-peak amplitude of a signal at the end
// of each window.
//
// The running min/max is updated on every sample. When a window closes and
// either extreme differs from the last reported one, the new extent is
// reported and the running extent carries on into the next window. When
// neither changed, nothing is reported and the running extent restarts from
// the closing sample, so a flat signal is reported once.
type PeakToPeakTracker[V Number] struct {
	basis
	window      float64
	windowStart float64
	running     extent[V]
	reported    extent[V]
	onReport    PeakFunc[V]
}

// NewPeakToPeakTracker returns a tracker that evaluates every window time units.
// The first window is anchored at time zero.
func NewPeakToPeakTracker[V Number](window float64) *PeakToPeakTracker[V] {
	p := &PeakToPeakTracker[V]{window: window}
	p.running.reset()
	p.reported.reset()
	return p
}

// OnReport registers the report callback, replacing any previous one.
func (p *PeakToPeakTracker[V]) OnReport(fn PeakFunc[V]) { p.onReport = fn }

// Window returns the evaluation window.
func (p *PeakToPeakTracker[V]) Window() float64 { return p.window }

// SetWindow changes the evaluation window and discards the running extent.
func (p *PeakToPeakTracker[V]) SetWindow(window float64) {
	p.window = window
	p.running.reset()
}

// LastPeakToPeak returns max-min of the last report, or zero before one.
func (p *PeakToPeakTracker[V]) LastPeakToPeak() V {
	return p.reported.max - p.reported.min
}

// LastMin returns the minimum of the last report.
func (p *PeakToPeakTracker[V]) LastMin() V { return p.reported.min }

// LastMax returns the maximum of the last report.
func (p *PeakToPeakTracker[V]) LastMax() V { return p.reported.max }

// LastMinTime returns when the last reported minimum was reached (NaN before a report).
func (p *PeakToPeakTracker[V]) LastMinTime() float64 { return p.reported.minTime }

// LastMaxTime returns when the last reported maximum was reached (NaN before a report).
func (p *PeakToPeakTracker[V]) LastMaxTime() float64 { return p.reported.maxTime }

// Phase reports PhaseAccumulating while a running extent is held.
func (p *PeakToPeakTracker[V]) Phase() Phase {
	if p.running.set {
		return PhaseAccumulating
	}
	return PhaseIdle
}

// Process feeds a batch through the tracker.
func (p *PeakToPeakTracker[V]) Process(b Batch[V]) {
	for i, n := 0, b.Len(); i < n; i++ {
		if p.update(b.Value(i), b.Time(i)) && p.onReport != nil {
			r := p.reported
			p.onReport(r.max-r.min, r.min, r.max, r.minTime, r.maxTime)
		}
	}
}

func (p *PeakToPeakTracker[V]) update(v V, t float64) bool {
	p.running.track(v, t)
	if t-p.windowStart < p.window {
		return false
	}
	p.windowStart = t
	if p.publish() {
		return true
	}
	p.running.reset()
	p.running.track(v, t)
	return false
}

// publish copies any changed extreme of the running extent into the reported
// one and says whether anything changed.
func (p *PeakToPeakTracker[V]) publish() bool {
	if p.reported.set && p.reported.max == p.running.max && p.reported.min == p.running.min {
		return false
	}
	if !p.reported.set || p.reported.max != p.running.max {
		p.reported.max = p.running.max
		p.reported.maxTime = p.running.maxTime
	}
	if !p.reported.set || p.reported.min != p.running.min {
		p.reported.min = p.running.min
		p.reported.minTime = p.running.minTime
	}
	p.reported.set = true
	return true
}

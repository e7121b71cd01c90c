package tracker

// dwell times a candidate transition. It captures the value and time at which
// the candidate was first seen and commits once the candidate has persisted
// for strictly longer than window. A window of zero or less commits at once.
type dwell[V Number] struct {
	window  float64
	armed   bool
	value   V
	start   float64
	elapsed float64
}

// begin captures a new candidate and reports whether it commits immediately.
func (d *dwell[V]) begin(v V, t float64) bool {
	d.value = v
	d.start = t
	d.elapsed = 0
	if d.window > 0 {
		d.armed = true
		return false
	}
	d.armed = false
	return true
}

// advance updates the elapsed time and reports whether an armed candidate commits.
func (d *dwell[V]) advance(t float64) bool {
	d.elapsed = t - d.start
	if d.armed && d.elapsed > d.window {
		d.armed = false
		return true
	}
	return false
}

func (d *dwell[V]) cancel() { d.armed = false }

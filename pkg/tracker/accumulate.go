package tracker

import "math"

// Accumulator is the strategy an AccumulateProcessor aggregates with.
type Accumulator[V Number] interface {
	Accumulate(v V)
	Result() V
	Reset()
	// Len returns how many values are held.
	Len() int
}

// ResultFunc receives an aggregate and the time of the sample that closed its window.
type ResultFunc[V Number] func(value V, t float64)

// AccumulateProcessor feeds every sample to an Accumulator and reports its
// result once the configured duration has elapsed since the previous report.
//
// A window whose result is computed with nothing accumulated is undefined
// (division by zero); choose a duration of at least one sampling interval.
type AccumulateProcessor[V Number] struct {
	basis
	acc      Accumulator[V]
	duration float64
	last     V
	lastTime float64
	stopped  bool
	onResult ResultFunc[V]
}

// NewAccumulateProcessor wraps acc. The first window is measured from time zero.
func NewAccumulateProcessor[V Number](acc Accumulator[V], duration float64, initial V) *AccumulateProcessor[V] {
	acc.Reset()
	return &AccumulateProcessor[V]{
		acc:      acc,
		duration: duration,
		last:     initial,
	}
}

// NewAverager returns a processor reporting the mean of each window.
func NewAverager[V Number](duration float64, initial V) *AccumulateProcessor[V] {
	return NewAccumulateProcessor[V](&Average[V]{}, duration, initial)
}

// NewStdDevProcessor returns a processor reporting the population standard
// deviation of each window. Configurations label it "rmse".
func NewStdDevProcessor[V Number](duration float64, initial V) *AccumulateProcessor[V] {
	return NewAccumulateProcessor[V](&StdDev[V]{}, duration, initial)
}

// NewMeanAbsDevProcessor returns a processor reporting the mean absolute
// deviation of each window. Configurations label it "sd".
func NewMeanAbsDevProcessor[V Number](duration float64, initial V) *AccumulateProcessor[V] {
	return NewAccumulateProcessor[V](&MeanAbsDev[V]{}, duration, initial)
}

// OnResult registers the report callback, replacing any previous one.
func (p *AccumulateProcessor[V]) OnResult(fn ResultFunc[V]) { p.onResult = fn }

// Duration returns the reporting window.
func (p *AccumulateProcessor[V]) Duration() float64 { return p.duration }

// SetDuration changes the reporting window and clears the accumulator.
func (p *AccumulateProcessor[V]) SetDuration(d float64) {
	p.duration = d
	p.acc.Reset()
}

// LastValue returns the last reported aggregate (or the initial value).
func (p *AccumulateProcessor[V]) LastValue() V { return p.last }

// LastTime returns the time of the last report; zero before the first one.
func (p *AccumulateProcessor[V]) LastTime() float64 { return p.lastTime }

// Accumulator returns the strategy in use.
func (p *AccumulateProcessor[V]) Accumulator() Accumulator[V] { return p.acc }

// Phase reports PhaseAccumulating while the current window holds values.
func (p *AccumulateProcessor[V]) Phase() Phase {
	if p.acc.Len() > 0 {
		return PhaseAccumulating
	}
	return PhaseIdle
}

// Stop makes Process return right after the report that is being delivered.
// It is meant to be called from the result callback; the flag is cleared when
// the next Process call starts.
func (p *AccumulateProcessor[V]) Stop() { p.stopped = true }

// Process feeds a batch through the processor.
func (p *AccumulateProcessor[V]) Process(b Batch[V]) {
	p.stopped = false
	for i, n := 0, b.Len(); i < n; i++ {
		p.acc.Accumulate(b.Value(i))
		if !p.update(b.Time(i)) {
			continue
		}
		if p.onResult != nil {
			p.onResult(p.last, p.lastTime)
		}
		if p.stopped {
			return
		}
	}
}

func (p *AccumulateProcessor[V]) update(t float64) bool {
	if math.Abs(t-p.lastTime) < p.duration {
		return false
	}
	p.last = p.acc.Result()
	p.lastTime = t
	p.acc.Reset()
	return true
}

// Average accumulates a running sum and count.
type Average[V Number] struct {
	sum   V
	count int
}

func (a *Average[V]) Accumulate(v V) {
	a.sum += v
	a.count++
}

// Result returns sum/count.
func (a *Average[V]) Result() V { return a.sum / V(a.count) }

func (a *Average[V]) Reset() {
	a.sum = 0
	a.count = 0
}

func (a *Average[V]) Len() int { return a.count }

// window keeps every value of the current window plus their sum.
type window[V Number] struct {
	sum    V
	values []V
}

func (w *window[V]) Accumulate(v V) {
	w.sum += v
	w.values = append(w.values, v)
}

func (w *window[V]) Reset() {
	w.sum = 0
	w.values = w.values[:0]
}

func (w *window[V]) Len() int { return len(w.values) }

func (w *window[V]) mean() V { return w.sum / V(len(w.values)) }

// StdDev computes sqrt(mean((x - mean)^2)) over the window: the population
// standard deviation, no Bessel correction. It is the strategy historically
// named "RMSE"; it is not a root-mean-square error against any reference.
type StdDev[V Number] struct {
	window[V]
}

func (s *StdDev[V]) Result() V {
	mean := s.mean()
	var sq V
	for _, v := range s.values {
		d := v - mean
		sq += d * d
	}
	return V(math.Sqrt(float64(sq / V(len(s.values)))))
}

// MeanAbsDev computes mean(|x - mean|) over the window. It is the strategy
// historically named "SD"; it is not a standard deviation.
type MeanAbsDev[V Number] struct {
	window[V]
}

func (m *MeanAbsDev[V]) Result() V {
	mean := m.mean()
	var total V
	for _, v := range m.values {
		d := v - mean
		if d < 0 {
			d = -d
		}
		total += d
	}
	return total / V(len(m.values))
}

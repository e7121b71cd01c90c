package tracker

// BatchFunc receives a full buffer and the time of its first element.
// The slice is a copy owned by the callee.
type BatchFunc[V Number] func(values []V, firstTime float64)

// buffer collects values up to a fixed capacity.
type buffer[V Number] struct {
	values    []V
	capacity  int
	firstTime float64
}

func newBuffer[V Number](capacity int) buffer[V] {
	b := buffer[V]{capacity: capacity}
	if capacity > 0 {
		b.values = make([]V, 0, capacity)
	}
	return b
}

// push appends v. Once capacity is reached it returns a copy of the contents
// and leaves the buffer empty. A buffer without capacity holds nothing.
func (b *buffer[V]) push(v V, t float64) ([]V, bool) {
	if b.capacity <= 0 {
		return nil, false
	}
	b.values = append(b.values, v)
	if len(b.values) == 1 {
		b.firstTime = t
	}
	if len(b.values) != b.capacity {
		return nil, false
	}
	out := b.snapshot()
	b.values = b.values[:0]
	return out, true
}

func (b *buffer[V]) reset() {
	b.values = b.values[:0]
	b.firstTime = 0
}

func (b *buffer[V]) setCapacity(n int) {
	b.capacity = n
	b.reset()
}

// snapshot returns a copy of the values held so far.
func (b *buffer[V]) snapshot() []V {
	out := make([]V, len(b.values))
	copy(out, b.values)
	return out
}

// BufferedForwarder collects raw samples and reports them in fixed-size batches.
type BufferedForwarder[V Number] struct {
	basis
	buf      buffer[V]
	last     V
	lastTime float64
	onBatch  BatchFunc[V]
}

// NewBufferedForwarder returns a forwarder that reports every capacity samples.
// A capacity of zero or less never reports and buffers nothing; LastValue
// still follows the input.
func NewBufferedForwarder[V Number](capacity int, initial V) *BufferedForwarder[V] {
	return &BufferedForwarder[V]{
		buf:  newBuffer[V](capacity),
		last: initial,
	}
}

// OnBatch registers the report callback, replacing any previous one.
func (f *BufferedForwarder[V]) OnBatch(fn BatchFunc[V]) { f.onBatch = fn }

// Capacity returns the batch size.
func (f *BufferedForwarder[V]) Capacity() int { return f.buf.capacity }

// SetCapacity changes the batch size and drops buffered samples.
func (f *BufferedForwarder[V]) SetCapacity(n int) { f.buf.setCapacity(n) }

// Reset drops buffered samples.
func (f *BufferedForwarder[V]) Reset() { f.buf.reset() }

// Buffered returns a copy of the samples waiting for the batch to fill.
func (f *BufferedForwarder[V]) Buffered() []V { return f.buf.snapshot() }

// FirstTime returns the time of the first buffered sample.
func (f *BufferedForwarder[V]) FirstTime() float64 { return f.buf.firstTime }

// LastValue returns the most recent sample value (or the initial value).
func (f *BufferedForwarder[V]) LastValue() V { return f.last }

// LastTime returns the time of the most recent sample.
func (f *BufferedForwarder[V]) LastTime() float64 { return f.lastTime }

// Phase reports PhaseAccumulating while samples are buffered.
func (f *BufferedForwarder[V]) Phase() Phase {
	if len(f.buf.values) > 0 {
		return PhaseAccumulating
	}
	return PhaseIdle
}

// Process feeds a batch through the forwarder.
func (f *BufferedForwarder[V]) Process(b Batch[V]) {
	for i, n := 0, b.Len(); i < n; i++ {
		f.last, f.lastTime = b.Value(i), b.Time(i)
		if out, full := f.buf.push(f.last, f.lastTime); full && f.onBatch != nil {
			f.onBatch(out, f.buf.firstTime)
		}
	}
}

// BufferedAverager averages samples over a time window, like NewAverager, and
// reports the averages in fixed-size batches.
type BufferedAverager[V Number] struct {
	basis
	avg     *AccumulateProcessor[V]
	buf     buffer[V]
	onBatch BatchFunc[V]
}

// NewBufferedAverager returns a batcher of duration-long averages. As with
// NewBufferedForwarder, a capacity of zero or less buffers nothing.
func NewBufferedAverager[V Number](duration float64, capacity int, initial V) *BufferedAverager[V] {
	a := &BufferedAverager[V]{
		avg: NewAverager[V](duration, initial),
		buf: newBuffer[V](capacity),
	}
	a.avg.OnResult(a.collect)
	return a
}

func (a *BufferedAverager[V]) collect(v V, t float64) {
	if out, full := a.buf.push(v, t); full && a.onBatch != nil {
		a.onBatch(out, a.buf.firstTime)
	}
}

// OnBatch registers the report callback, replacing any previous one.
func (a *BufferedAverager[V]) OnBatch(fn BatchFunc[V]) { a.onBatch = fn }

// Averager exposes the embedded averaging processor, e.g. for LastValue.
func (a *BufferedAverager[V]) Averager() *AccumulateProcessor[V] { return a.avg }

// Capacity returns the batch size.
func (a *BufferedAverager[V]) Capacity() int { return a.buf.capacity }

// SetCapacity changes the batch size, dropping buffered averages and the
// partially accumulated window.
func (a *BufferedAverager[V]) SetCapacity(n int) {
	a.buf.setCapacity(n)
	a.avg.acc.Reset()
}

// Reset drops buffered averages and the partially accumulated window.
func (a *BufferedAverager[V]) Reset() {
	a.buf.reset()
	a.avg.acc.Reset()
}

// FirstTime returns the time of the first buffered average.
func (a *BufferedAverager[V]) FirstTime() float64 { return a.buf.firstTime }

// Phase reports PhaseAccumulating while a window or batch is partially filled.
func (a *BufferedAverager[V]) Phase() Phase {
	if len(a.buf.values) > 0 || a.avg.acc.Len() > 0 {
		return PhaseAccumulating
	}
	return PhaseIdle
}

// Process feeds a batch through the averager.
func (a *BufferedAverager[V]) Process(b Batch[V]) {
	a.avg.Process(b)
}

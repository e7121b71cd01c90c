package logic

import "github.com/sweeney/sigtrack/pkg/tracker"

// processor is what most trackers have in common.
type processor interface {
	Process(tracker.Batch[float64])
	Phase() tracker.Phase
	SetUnit(tracker.Unit)
}

func (n *node) use(pr processor, unit tracker.Unit, last func() float64) {
	pr.SetUnit(unit)
	n.process = pr.Process
	n.phase = pr.Phase
	n.last = last
}

// build constructs the tracker for a validated spec and routes its
// callbacks into the pipeline.
func (p *Pipeline) build(s Spec) *node {
	n := &node{spec: s}
	report := func(typ EventType) tracker.ResultFunc[float64] {
		return func(v, t float64) {
			p.emit(n, Event{Type: typ, Timestamp: p.at(t), Value: v})
		}
	}

	switch s.Kind {
	case KindChange, KindChangeForced:
		c := tracker.NewChangeTracker(s.Initial)
		if s.Kind == KindChangeForced {
			c = tracker.NewForceUpdatedChangeTracker(s.Initial, s.ForceInterval)
		}
		c.OnChange(tracker.ChangeFunc[float64](report(EventChange)))
		n.use(c, p.unit, c.LastValue)

	case KindPeakToPeak:
		pp := tracker.NewPeakToPeakTracker[float64](s.Window)
		pp.OnReport(func(p2p, min, max, minTime, maxTime float64) {
			p.emit(n, Event{
				Type:      EventPeakToPeak,
				Timestamp: p.at(later(minTime, maxTime)),
				Value:     p2p,
				Peak: &Peak{
					Min:     min,
					Max:     max,
					MinTime: p.at(minTime),
					MaxTime: p.at(maxTime),
				},
			})
		})
		n.use(pp, p.unit, pp.LastPeakToPeak)

	case KindAverage, KindStdDev, KindMeanAbsDev:
		var a *tracker.AccumulateProcessor[float64]
		switch s.Kind {
		case KindStdDev:
			a = tracker.NewStdDevProcessor(s.Window, s.Initial)
		case KindMeanAbsDev:
			a = tracker.NewMeanAbsDevProcessor(s.Window, s.Initial)
		default:
			a = tracker.NewAverager(s.Window, s.Initial)
		}
		a.OnResult(report(EventAggregate))
		n.use(a, p.unit, a.LastValue)

	case KindBuffered:
		f := tracker.NewBufferedForwarder(s.Capacity, s.Initial)
		f.OnBatch(p.batch(n))
		n.use(f, p.unit, f.LastValue)

	case KindBufferedAverage:
		a := tracker.NewBufferedAverager(s.Window, s.Capacity, s.Initial)
		a.OnBatch(p.batch(n))
		n.use(a, p.unit, a.Averager().LastValue)

	case KindRange:
		r := tracker.NewRangeTracker(tracker.Range[float64]{Min: s.Min, Max: s.Max}, s.EnterWindow, s.LeaveWindow)
		r.OnEnter(tracker.CrossingFunc[float64](report(EventRangeEnter)))
		r.OnLeave(tracker.CrossingFunc[float64](report(EventRangeLeave)))
		n.use(r, p.unit, func() float64 { return boolValue(r.InRange()) })

	case KindThreshold:
		th := tracker.NewThresholdTracker(s.RiseWindow, s.FallWindow, s.Initial > 0, s.Delta)
		th.SetUnit(p.unit)
		th.OnTransition(func(dir tracker.Direction, t float64) {
			typ := EventRise
			if dir == tracker.TrueFalse {
				typ = EventFall
			}
			p.emit(n, Event{Type: typ, Timestamp: p.at(t), Value: boolValue(th.Value())})
		})
		n.process = func(b tracker.Batch[float64]) { th.ProcessConstant(b, s.Threshold) }
		n.phase = th.Phase
		n.last = func() float64 { return boolValue(th.Value()) }

	case KindMax, KindMin:
		e := tracker.NewMaxTracker(s.Window, s.Initial)
		if s.Kind == KindMin {
			e = tracker.NewMinTracker(s.Window, s.Initial)
		}
		e.OnResult(report(EventExtremum))
		n.use(e, p.unit, e.LastValue)
	}
	return n
}

func (p *Pipeline) batch(n *node) tracker.BatchFunc[float64] {
	return func(values []float64, first float64) {
		p.emit(n, Event{
			Type:      EventBatch,
			Timestamp: p.at(first),
			Value:     values[len(values)-1],
			Values:    values,
		})
	}
}

package logic

import (
	"fmt"
	"math"
	"time"

	"github.com/sweeney/sigtrack/pkg/tracker"
)

// node is one configured tracker behind function values, since the
// trackers do not share a single Process signature.
type node struct {
	spec    Spec
	process func(tracker.Batch[float64])
	phase   func() tracker.Phase
	last    func() float64
	events  int
}

// Pipeline feeds every frame to each configured tracker, in configuration
// order, and collects their reports as Events.
type Pipeline struct {
	unit          tracker.Unit
	nodes         []*node
	pending       []Event
	counts        EventCounts
	frames        int
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewPipeline builds one tracker per spec. Tracker timestamps and windows are
// read in unit; startTime anchors uptime and the heartbeat schedule.
func NewPipeline(specs []Spec, unit tracker.Unit, startTime time.Time) (*Pipeline, error) {
	p := &Pipeline{
		unit:          unit,
		counts:        EventCounts{},
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("tracker %q: %w", s.Name, err)
		}
		s.Kind = s.Kind.Canonical()
		p.nodes = append(p.nodes, p.build(s))
	}
	return p, nil
}

// Inherit carries event counts, start time and heartbeat schedule over from
// a pipeline being replaced. Tracker state is not carried.
func (p *Pipeline) Inherit(prev *Pipeline) {
	if prev == nil {
		return
	}
	p.counts = prev.counts.Clone()
	p.startTime = prev.startTime
	p.lastHeartbeat = prev.lastHeartbeat
}

// Process runs one frame through every tracker and returns the reports it
// produced, in the order they fired.
func (p *Pipeline) Process(b tracker.Batch[float64]) []Event {
	p.frames++
	for _, n := range p.nodes {
		n.process(b)
	}
	events := p.pending
	p.pending = nil
	return events
}

func (p *Pipeline) emit(n *node, e Event) {
	e.Tracker = n.spec.Name
	e.Kind = n.spec.Kind
	n.events++
	p.counts[e.Type]++
	p.pending = append(p.pending, e)
}

func (p *Pipeline) at(t float64) time.Time {
	return p.unit.ToTime(t)
}

// Unit returns the time basis of the trackers.
func (p *Pipeline) Unit() tracker.Unit { return p.unit }

// Ready reports whether at least one frame has been processed.
func (p *Pipeline) Ready() bool { return p.frames > 0 }

// Frames returns the number of frames processed.
func (p *Pipeline) Frames() int { return p.frames }

// Counts returns a copy of the per-type event counts.
func (p *Pipeline) Counts() EventCounts { return p.counts.Clone() }

// States returns the current view of every tracker, in configuration order.
func (p *Pipeline) States() []TrackerState {
	out := make([]TrackerState, len(p.nodes))
	for i, n := range p.nodes {
		out[i] = TrackerState{
			Name:   n.spec.Name,
			Kind:   n.spec.Kind,
			Phase:  n.phase().String(),
			Last:   n.last(),
			Events: n.events,
		}
	}
	return out
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil before the first frame, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (p *Pipeline) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 || !p.Ready() {
		return nil
	}
	if now.Sub(p.lastHeartbeat) < interval {
		return nil
	}
	p.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(p.startTime),
		Counts:    p.counts.Clone(),
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func later(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return math.Max(a, b)
}

// Package tracker contains streaming signal-conditioning trackers.
//
// A tracker consumes batches of time-stamped samples and reports derived
// events (changes, windowed aggregates, range and predicate crossings,
// extrema) through a callback registered on the tracker. Processing is
// synchronous: callbacks run on the caller's goroutine before Process returns.
//
// Trackers are not safe for concurrent use. Times are plain float64 values in
// the tracker's time basis (see Unit); within one batch they must not decrease.
package tracker

import (
	"golang.org/x/exp/constraints"
)

// Number is the set of sample value types a tracker accepts.
type Number interface {
	constraints.Integer | constraints.Float
}

// Batch is an index-addressed run of samples.
type Batch[V Number] interface {
	Len() int
	Value(i int) V
	Time(i int) float64
}

// Sample is one observation.
type Sample[V Number] struct {
	Value V
	Time  float64
}

// Samples adapts a slice of samples to Batch.
type Samples[V Number] []Sample[V]

func (s Samples[V]) Len() int           { return len(s) }
func (s Samples[V]) Value(i int) V      { return s[i].Value }
func (s Samples[V]) Time(i int) float64 { return s[i].Time }

// Funcs adapts accessor functions to Batch.
type Funcs[V Number] struct {
	N       int
	ValueAt func(i int) V
	TimeAt  func(i int) float64
}

func (f Funcs[V]) Len() int           { return f.N }
func (f Funcs[V]) Value(i int) V      { return f.ValueAt(i) }
func (f Funcs[V]) Time(i int) float64 { return f.TimeAt(i) }

// Phase is the position of a tracker in its reporting state machine.
type Phase int

const (
	// PhaseIdle means nothing is held between reports.
	PhaseIdle Phase = iota
	// PhaseAccumulating means samples are held for the current window.
	PhaseAccumulating
	// PhasePending means a candidate transition is waiting out its dwell window.
	PhasePending
)

var phaseNames = [...]string{
	PhaseIdle:         "idle",
	PhaseAccumulating: "accumulating",
	PhasePending:      "pending",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Direction is the sense of a committed predicate transition.
type Direction int

const (
	Unchanged Direction = iota
	FalseTrue
	TrueFalse
)

var directionNames = [...]string{
	Unchanged: "unchanged",
	FalseTrue: "false_true",
	TrueFalse: "true_false",
}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return "unknown"
	}
	return directionNames[d]
}

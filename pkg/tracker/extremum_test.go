package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxTrackerReportsWinnerWithItsOwnTime(t *testing.T) {
	e := NewMaxTracker(10, 0.0)
	var got []report[float64]
	e.OnResult(collect(&got))

	e.Process(series([]float64{0, 3, 12}, []float64{5, 9, 1}))

	assert.Equal(t, []report[float64]{{9, 3}}, got)
	assert.Equal(t, 9.0, e.LastValue())
	assert.Equal(t, 3.0, e.LastTime())
	assert.Equal(t, PhaseIdle, e.Phase())
}

func TestMinTracker(t *testing.T) {
	e := NewMinTracker(10, 0)
	var got []report[int]
	e.OnResult(collect(&got))

	e.Process(series([]float64{0, 4, 11}, []int{5, 2, 8}))

	assert.Equal(t, []report[int]{{2, 4}}, got)
}

func TestExtremumClosingSampleCompetes(t *testing.T) {
	e := NewMaxTracker(10, 0.0)
	var got []report[float64]
	e.OnResult(collect(&got))

	e.Process(series([]float64{0, 11}, []float64{1, 7}))

	assert.Equal(t, []report[float64]{{7, 11}}, got)
}

func TestExtremumWindowBoundaryIsExclusive(t *testing.T) {
	e := NewMaxTracker(10, 0.0)
	var got []report[float64]
	e.OnResult(collect(&got))

	e.Process(series([]float64{0, 10}, []float64{1, 2}))
	assert.Empty(t, got)
	assert.Equal(t, PhaseAccumulating, e.Phase())

	e.Process(series([]float64{10.5}, []float64{0}))
	assert.Equal(t, []report[float64]{{2, 10}}, got)
}

func TestExtremumNextWindowStartsAfterReport(t *testing.T) {
	e := NewMaxTracker(10, 0.0)
	var got []report[float64]
	e.OnResult(collect(&got))

	e.Process(series(
		[]float64{0, 12, 13, 20, 24},
		[]float64{1, 2, 3, 4, 0},
	))

	// The second window opens at t=13 and closes at t=24.
	assert.Equal(t, []report[float64]{{2, 12}, {4, 20}}, got)
}

func TestExtremumReset(t *testing.T) {
	e := NewMaxTracker(10, -1.0)
	e.Process(series([]float64{0, 11}, []float64{3, 4}))
	e.Process(series([]float64{12}, []float64{3}))

	e.Reset()

	assert.Equal(t, -1.0, e.LastValue())
	assert.Zero(t, e.LastTime())
	assert.Equal(t, PhaseIdle, e.Phase())

	e.SetDuration(5)
	assert.Equal(t, 5.0, e.Duration())
}

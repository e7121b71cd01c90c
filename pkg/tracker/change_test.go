package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeTrackerNoChange(t *testing.T) {
	c := NewChangeTracker(4.0)
	var got []report[float64]
	c.OnChange(collect(&got))

	c.Process(series([]float64{0, 1, 2, 3}, []float64{4, 4, 4, 4}))

	assert.Empty(t, got)
	assert.Equal(t, 4.0, c.LastValue())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestChangeTrackerReportsChanges(t *testing.T) {
	c := NewChangeTracker(1)
	var got []report[int]
	c.OnChange(collect(&got))

	c.Process(series([]float64{0, 1, 2, 3, 4}, []int{1, 1, 2, 2, 3}))

	require.Len(t, got, 2)
	assert.Equal(t, report[int]{2, 2}, got[0])
	assert.Equal(t, report[int]{3, 4}, got[1])
	assert.Equal(t, 3, c.LastValue())
	assert.Equal(t, 4.0, c.LastTime())
}

func TestChangeTrackerAcrossBatches(t *testing.T) {
	c := NewChangeTracker(0.0)
	var got []report[float64]
	c.OnChange(collect(&got))

	c.Process(series([]float64{0, 1}, []float64{1, 1}))
	c.Process(series([]float64{2, 3}, []float64{1, 2}))

	assert.Equal(t, []report[float64]{{1, 0}, {2, 3}}, got)
}

func TestChangeTrackerNilCallback(t *testing.T) {
	c := NewChangeTracker(0.0)
	c.Process(series([]float64{5}, []float64{9}))

	assert.Equal(t, 9.0, c.LastValue())
	assert.Equal(t, 5.0, c.LastTime())
}

func TestForceUpdatedChangeTracker(t *testing.T) {
	c := NewForceUpdatedChangeTracker(0.0, 10)
	var got []report[float64]
	c.OnChange(collect(&got))
	assert.Equal(t, 10.0, c.ForceInterval())

	c.Process(series(
		[]float64{0, 5, 10, 15, 20, 22, 30},
		[]float64{5, 5, 5, 5, 5, 6, 6},
	))

	// The change at t=22 does not restart the force timer (last forced at
	// t=20), so the next forced report comes at t=30.
	want := []report[float64]{
		{5, 0},
		{5, 10},
		{5, 20},
		{6, 22},
		{6, 30},
	}
	assert.Equal(t, want, got)
}

func TestForceUpdatedTimerNotResetByChange(t *testing.T) {
	c := NewForceUpdatedChangeTracker(0, 10)
	var got []report[int]
	c.OnChange(collect(&got))

	// Values change at t=3 and t=8; the force timer still runs from zero.
	c.Process(series([]float64{3, 8, 10}, []int{1, 2, 2}))

	assert.Equal(t, []report[int]{{1, 3}, {2, 8}, {2, 10}}, got)
}

func TestChangeTrackerWithoutForceInterval(t *testing.T) {
	c := NewChangeTracker(0)
	assert.Zero(t, c.ForceInterval())
}

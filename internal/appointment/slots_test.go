package appointment

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var workday = Window{Start: NewClock(8, 0), End: NewClock(18, 0), Step: 30 * time.Minute}

func TestGenerateSlots_TilesWindow(t *testing.T) {
	slots := slices.Collect(GenerateSlots(workday, nil))
	require.Len(t, slots, 20)

	assert.Equal(t, workday.Start, slots[0].Start)
	assert.Equal(t, workday.End, slots[len(slots)-1].End)
	for i, s := range slots {
		assert.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
		assert.True(t, s.Available)
		if i > 0 {
			assert.Equal(t, slots[i-1].End, s.Start, "slot %d leaves a gap", i)
		}
	}
}

func TestGenerateSlots_Availability(t *testing.T) {
	day := []Appointment{
		booked(NewClock(9, 0), NewClock(9, 30), StatusScheduled),
		booked(NewClock(10, 15), NewClock(10, 45), StatusCompleted),
		booked(NewClock(11, 0), NewClock(11, 30), StatusCanceled),
		booked(NewClock(12, 0), NewClock(12, 30), StatusNoShow),
	}

	slots := slices.Collect(GenerateSlots(workday, day))

	for _, s := range slots {
		iv := Interval{s.Start, s.End}
		want := true
		for _, a := range day {
			if a.Status.OccupiesSlot() && a.Interval().Overlaps(iv) {
				want = false
			}
		}
		assert.Equal(t, want, s.Available, "slot %s", iv)
	}

	byStart := map[Clock]bool{}
	for _, s := range slots {
		byStart[s.Start] = s.Available
	}
	assert.True(t, byStart[NewClock(8, 30)])
	assert.False(t, byStart[NewClock(9, 0)])
	assert.True(t, byStart[NewClock(9, 30)])
	assert.False(t, byStart[NewClock(10, 0)])
	assert.False(t, byStart[NewClock(10, 30)])
	assert.True(t, byStart[NewClock(11, 0)])
	assert.True(t, byStart[NewClock(12, 0)])
}

func TestGenerateSlots_OnlyWholeSlots(t *testing.T) {
	w := Window{Start: NewClock(8, 0), End: NewClock(9, 10), Step: 30 * time.Minute}

	slots := slices.Collect(GenerateSlots(w, nil))
	require.Len(t, slots, 2)
	assert.Equal(t, NewClock(9, 0), slots[1].End)
}

func TestGenerateSlots_StopsEarly(t *testing.T) {
	n := 0
	for range GenerateSlots(workday, nil) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestGenerateSlots_Restartable(t *testing.T) {
	seq := GenerateSlots(workday, nil)
	assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
}

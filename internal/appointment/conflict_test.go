package appointment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func booked(start, end Clock, status Status) Appointment {
	return Appointment{ID: uuid.New(), StartTime: start, EndTime: end, Status: status, Active: true}
}

func TestInterval_Overlaps(t *testing.T) {
	base := Interval{Start: NewClock(9, 0), End: NewClock(9, 30)}

	tests := []struct {
		name string
		iv   Interval
		want bool
	}{
		{"partial overlap", Interval{NewClock(9, 15), NewClock(9, 45)}, true},
		{"contains", Interval{NewClock(8, 0), NewClock(10, 0)}, true},
		{"inside", Interval{NewClock(9, 10), NewClock(9, 20)}, true},
		{"identical", base, true},
		{"adjacent after", Interval{NewClock(9, 30), NewClock(10, 0)}, false},
		{"adjacent before", Interval{NewClock(8, 30), NewClock(9, 0)}, false},
		{"disjoint", Interval{NewClock(11, 0), NewClock(11, 30)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.iv))
			assert.Equal(t, tt.want, tt.iv.Overlaps(base))
		})
	}
}

func TestFindConflict(t *testing.T) {
	existing := booked(NewClock(9, 0), NewClock(9, 30), StatusScheduled)
	day := []Appointment{existing}

	other, ok := FindConflict(day, Interval{NewClock(9, 15), NewClock(9, 45)}, uuid.Nil)
	require.True(t, ok)
	assert.Equal(t, existing.ID, other.ID)

	_, ok = FindConflict(day, Interval{NewClock(9, 30), NewClock(10, 0)}, uuid.Nil)
	assert.False(t, ok)

	_, ok = FindConflict(day, Interval{NewClock(9, 0), NewClock(9, 30)}, existing.ID)
	assert.False(t, ok, "excluded appointment never conflicts with itself")
}

func TestFindConflict_IgnoresNonBlocking(t *testing.T) {
	iv := Interval{NewClock(10, 0), NewClock(10, 30)}

	for _, st := range []Status{StatusReady, StatusCompleted, StatusCanceled, StatusNoShow} {
		_, ok := FindConflict([]Appointment{booked(iv.Start, iv.End, st)}, iv, uuid.Nil)
		assert.False(t, ok, st)
	}
	for _, st := range []Status{StatusScheduled, StatusInVitals, StatusInProgress} {
		_, ok := FindConflict([]Appointment{booked(iv.Start, iv.End, st)}, iv, uuid.Nil)
		assert.True(t, ok, st)
	}

	deleted := booked(iv.Start, iv.End, StatusScheduled)
	deleted.Active = false
	_, ok := FindConflict([]Appointment{deleted}, iv, uuid.Nil)
	assert.False(t, ok)
}

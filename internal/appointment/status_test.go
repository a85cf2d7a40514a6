package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-core/internal/apperr"
)

func TestCanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusScheduled:  {StatusInVitals, StatusCanceled, StatusNoShow},
		StatusInVitals:   {StatusInProgress},
		StatusInProgress: {StatusReady},
		StatusReady:      {StatusCompleted},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusClassification(t *testing.T) {
	assert.True(t, StatusScheduled.Blocking())
	assert.True(t, StatusInVitals.Blocking())
	assert.True(t, StatusInProgress.Blocking())
	assert.False(t, StatusReady.Blocking())
	assert.False(t, StatusCanceled.Blocking())

	assert.True(t, StatusReady.OccupiesSlot())
	assert.True(t, StatusCompleted.OccupiesSlot())
	assert.False(t, StatusCanceled.OccupiesSlot())
	assert.False(t, StatusNoShow.OccupiesSlot())

	for _, s := range []Status{StatusCompleted, StatusCanceled, StatusNoShow} {
		assert.True(t, s.Terminal(), s)
	}
	assert.False(t, StatusReady.Terminal())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("IN_VITALS")
	require.NoError(t, err)
	assert.Equal(t, StatusInVitals, s)

	_, err = ParseStatus("pending")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAdvance_StampsMilestones(t *testing.T) {
	a := &Appointment{ID: uuid.New(), Status: StatusScheduled}
	at := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	require.NoError(t, a.Advance(StatusInVitals, at))
	require.NotNil(t, a.VitalsTakenAt)
	assert.Equal(t, at, *a.VitalsTakenAt)

	require.NoError(t, a.Advance(StatusInProgress, at.Add(10*time.Minute)))
	require.NotNil(t, a.ConsultationStartedAt)

	require.NoError(t, a.Advance(StatusReady, at.Add(40*time.Minute)))
	require.NotNil(t, a.ConsultationEndedAt)
	assert.Equal(t, at.Add(40*time.Minute), a.UpdatedAt)

	require.NoError(t, a.Advance(StatusCompleted, at.Add(45*time.Minute)))
	assert.Equal(t, StatusCompleted, a.Status)
}

func TestAdvance_OutOfOrder(t *testing.T) {
	a := &Appointment{ID: uuid.New(), Status: StatusInVitals}

	err := a.Advance(StatusReady, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Contains(t, err.Error(), "requires IN_PROGRESS")
	assert.Equal(t, StatusInVitals, a.Status)
	assert.Nil(t, a.ConsultationEndedAt)
}

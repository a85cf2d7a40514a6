package appointment_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-core/internal/apperr"
	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/audit"
)

func checkedIn(t *testing.T, f *fixture) (*appointment.Appointment, *appointment.VitalSigns) {
	t.Helper()
	a := f.book(t, clock(9, 0), clock(9, 30))

	weight, height, pulse := 80.0, 175.0, 68
	_, v, err := f.svc.CheckIn(context.Background(), f.actor, a.ID, &appointment.VitalsInput{
		WeightKg:     &weight,
		HeightCm:     &height,
		HeartRateBpm: &pulse,
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	return a, v
}

func TestUpdateVitals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, before := checkedIn(t, f)

	nurse := uuid.New()
	updated, err := f.svc.UpdateVitals(ctx, nurse, a.ID, appointment.VitalsPatch{
		WeightKg:     appointment.Some(79.5),
		HeightCm:     appointment.Null[float64](),
		SystolicMmHg: appointment.Some(118),
	})
	require.NoError(t, err)

	assert.Equal(t, before.ID, updated.ID)
	assert.Equal(t, 79.5, *updated.WeightKg)
	assert.Nil(t, updated.HeightCm, "explicit null clears")
	assert.Equal(t, 118, *updated.SystolicMmHg)
	assert.Equal(t, 68, *updated.HeartRateBpm, "absent fields are kept")

	entries := f.store.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionVitalSignsUpdated, last.Action)
	assert.Equal(t, nurse, last.ActorID)

	var old, cur map[string]any
	require.NoError(t, json.Unmarshal(last.OldValue, &old))
	require.NoError(t, json.Unmarshal(last.NewValue, &cur))
	assert.Equal(t, 175.0, old["height_cm"])
	assert.Nil(t, cur["height_cm"])
}

func TestUpdateVitals_ClearEverything(t *testing.T) {
	f := newFixture(t)
	a, _ := checkedIn(t, f)

	updated, err := f.svc.UpdateVitals(context.Background(), f.actor, a.ID, appointment.VitalsPatch{
		WeightKg:     appointment.Null[float64](),
		HeightCm:     appointment.Null[float64](),
		HeartRateBpm: appointment.Null[int](),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.WeightKg)
	assert.Nil(t, updated.HeightCm)
	assert.Nil(t, updated.HeartRateBpm)
}

func TestUpdateVitals_RejectsImpossibleValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := checkedIn(t, f)

	tests := []struct {
		name  string
		patch appointment.VitalsPatch
	}{
		{"negative weight", appointment.VitalsPatch{WeightKg: appointment.Some(-3.0)}},
		{"zero pulse", appointment.VitalsPatch{HeartRateBpm: appointment.Some(0)}},
		{"oxygen above 100", appointment.VitalsPatch{OxygenSaturation: appointment.Some(300.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateVitals(ctx, f.actor, a.ID, tt.patch)
			assert.ErrorIs(t, err, appointment.ErrInvalidInput)
		})
	}

	v, err := f.svc.GetVitals(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, *v.WeightKg)
	assert.Equal(t, 68, *v.HeartRateBpm)
	assert.Nil(t, v.OxygenSaturation)
}

func TestCheckIn_RejectsImpossibleVitals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, clock(9, 0), clock(9, 30))

	oxygen := 101.0
	_, _, err := f.svc.CheckIn(ctx, f.actor, a.ID, &appointment.VitalsInput{OxygenSaturation: &oxygen})
	require.ErrorIs(t, err, appointment.ErrInvalidInput)

	got, err := f.svc.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, got.Status)
}

func TestUpdateVitals_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateVitals(ctx, f.actor, uuid.New(), appointment.VitalsPatch{})
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)

	a := f.book(t, clock(9, 0), clock(9, 30))
	_, err = f.svc.UpdateVitals(ctx, f.actor, a.ID, appointment.VitalsPatch{WeightKg: appointment.Some(70.0)})
	assert.ErrorIs(t, err, appointment.ErrVitalSignsNotFound)
}

func TestUpdateVitals_RefusedOnceClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := checkedIn(t, f)

	_, err := f.svc.StartConsultation(ctx, f.actor, a.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateVitals(ctx, f.actor, a.ID, appointment.VitalsPatch{WeightKg: appointment.Some(81.0)})
	require.NoError(t, err, "still open while in progress")

	_, err = f.svc.MarkReady(ctx, f.actor, a.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteAppointment(ctx, f.actor, a.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateVitals(ctx, f.actor, a.ID, appointment.VitalsPatch{WeightKg: appointment.Some(82.0)})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	v, err := f.svc.GetVitals(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 81.0, *v.WeightKg)
}

func TestVitalsPatch_JSON(t *testing.T) {
	var p appointment.VitalsPatch
	require.NoError(t, json.Unmarshal([]byte(`{"weight_kg": 70.2, "height_cm": null}`), &p))

	assert.True(t, p.WeightKg.Set)
	assert.Equal(t, 70.2, *p.WeightKg.Value)
	assert.True(t, p.HeightCm.Set)
	assert.Nil(t, p.HeightCm.Value)
	assert.False(t, p.TemperatureC.Set)
}

package clinical_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-core/internal/apperr"
	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/audit"
	"github.com/hackgods/clinic-appointment-core/internal/clinical"
	"github.com/hackgods/clinic-appointment-core/internal/config"
	"github.com/hackgods/clinic-appointment-core/internal/inventory"
	"github.com/hackgods/clinic-appointment-core/internal/memstore"
)

var now = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memstore.Store
	appts   *appointment.Service
	svc     *clinical.Service
	dentist uuid.UUID
	amox    inventory.Medication
	ibu     inventory.Medication
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	cfg := config.Default()
	clock := func() time.Time { return now }

	f := &fixture{
		store:   store,
		appts:   appointment.NewService(store, store, store, store, cfg, zerolog.Nop(), appointment.WithNow(clock)),
		svc:     clinical.NewService(store, store, store, store, store, cfg, zerolog.Nop(), clinical.WithNow(clock)),
		dentist: uuid.New(),
		amox:    inventory.Medication{ID: uuid.New(), Name: "Amoxicillin 500mg", Unit: "capsule", Stock: 20},
		ibu:     inventory.Medication{ID: uuid.New(), Name: "Ibuprofen 400mg", Unit: "tablet", Stock: 5},
	}
	store.AddMedication(f.amox)
	store.AddMedication(f.ibu)
	return f
}

// inProgress books an appointment and walks it to IN_PROGRESS.
func (f *fixture) inProgress(t *testing.T, start appointment.Clock) *appointment.Appointment {
	t.Helper()
	ctx := context.Background()

	patient := uuid.New()
	practitioner := uuid.New()
	f.store.AddPatient(appointment.Patient{ID: patient, Name: "Luis Mena"})
	f.store.AddPractitioner(appointment.Practitioner{ID: practitioner, Name: "Dr. Sol"})

	notes := "toothache"
	a, err := f.appts.CreateAppointment(ctx, f.dentist, appointment.CreateInput{
		PatientID:       patient,
		PractitionerID:  practitioner,
		Date:            now.AddDate(0, 0, 1),
		StartTime:       start,
		DurationMinutes: 30,
		Notes:           &notes,
	})
	require.NoError(t, err)
	_, _, err = f.appts.CheckIn(ctx, f.dentist, a.ID, nil)
	require.NoError(t, err)
	a, err = f.appts.StartConsultation(ctx, f.dentist, a.ID)
	require.NoError(t, err)
	return a
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	m, err := f.store.GetMedicationByID(context.Background(), id)
	require.NoError(t, err)
	return m.Stock
}

func TestComplete_HistoryOnly(t *testing.T) {
	f := newFixture(t)
	a := f.inProgress(t, appointment.NewClock(9, 0))

	diagnosis := "caries on 14"
	b, err := f.svc.Complete(context.Background(), f.dentist, a.ID, clinical.CompletionInput{
		History: clinical.HistoryInput{Diagnosis: &diagnosis},
	})
	require.NoError(t, err)

	assert.Equal(t, clinical.HygieneFair, b.History.HygieneLevel)
	assert.Equal(t, clinical.GumHealthy, b.History.GumCondition)
	assert.False(t, b.History.Bleeding || b.History.Sensitivity || b.History.Bruxism || b.History.Halitosis)
	assert.Equal(t, f.dentist, b.History.ClinicianID)
	assert.Nil(t, b.Odontogram)
	assert.Nil(t, b.Prescription)

	assert.Equal(t, appointment.StatusReady, b.Appointment.Status)
	require.NotNil(t, b.Appointment.ConsultationEndedAt)
	require.NotNil(t, b.Appointment.Notes)
	assert.Equal(t, "toothache\n"+clinical.CompletionNote, *b.Appointment.Notes)
}

func TestComplete_FullBundle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.inProgress(t, appointment.NewClock(9, 0))

	days := 7
	b, err := f.svc.Complete(ctx, f.dentist, a.ID, clinical.CompletionInput{
		History: clinical.HistoryInput{
			HygieneLevel: clinical.HygienePoor,
			GumCondition: clinical.GumGingivitis,
			Bleeding:     true,
		},
		Odontogram: &clinical.OdontogramInput{
			Teeth: []clinical.ToothInput{
				{ToothNumber: 14, Condition: clinical.ToothCaries},
				{ToothNumber: 15},
			},
		},
		Prescription: &clinical.PrescriptionInput{
			Items: []clinical.ItemInput{
				{MedicationID: f.amox.ID, Quantity: 14, DurationDays: &days},
				{MedicationID: f.ibu.ID, Quantity: 3},
			},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, b.Odontogram)
	require.Len(t, b.Odontogram.Teeth, 2)
	assert.Equal(t, clinical.ToothCaries, b.Odontogram.Teeth[0].Condition)
	assert.Equal(t, clinical.ToothHealthy, b.Odontogram.Teeth[1].Condition)

	require.NotNil(t, b.Prescription)
	assert.Equal(t, "RX-2025-0001", b.Prescription.Number)
	require.Len(t, b.Prescription.Items, 2)
	assert.Equal(t, 1, b.Prescription.Items[0].Position)
	assert.Equal(t, 2, b.Prescription.Items[1].Position)

	assert.Equal(t, 6, f.stock(t, f.amox.ID))
	assert.Equal(t, 2, f.stock(t, f.ibu.ID))

	entries := f.store.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionConsultationComplete, last.Action)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(last.NewValue, &payload))
	assert.Equal(t, b.History.ID.String(), payload["clinical_history_id"])
	assert.Equal(t, b.Prescription.ID.String(), payload["prescription_id"])

	stored, err := f.svc.GetBundle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, b.History.ID, stored.History.ID)
	assert.Equal(t, b.Prescription.Number, stored.Prescription.Number)
	assert.Equal(t, appointment.StatusReady, stored.Appointment.Status)
}

func TestComplete_NumbersAreSequentialPerYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rx := func() *clinical.PrescriptionInput {
		return &clinical.PrescriptionInput{Items: []clinical.ItemInput{{MedicationID: f.amox.ID, Quantity: 1}}}
	}

	var numbers []string
	for i := range 3 {
		a := f.inProgress(t, appointment.NewClock(9+i, 0))
		b, err := f.svc.Complete(ctx, f.dentist, a.ID, clinical.CompletionInput{Prescription: rx()})
		require.NoError(t, err)
		numbers = append(numbers, b.Prescription.Number)
	}
	assert.Equal(t, []string{"RX-2025-0001", "RX-2025-0002", "RX-2025-0003"}, numbers)
}

func TestComplete_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.inProgress(t, appointment.NewClock(9, 0))
	auditBefore := len(f.store.AuditEntries())

	_, err := f.svc.Complete(ctx, f.dentist, a.ID, clinical.CompletionInput{
		Odontogram: &clinical.OdontogramInput{Teeth: []clinical.ToothInput{{ToothNumber: 3}}},
		Prescription: &clinical.PrescriptionInput{
			Items: []clinical.ItemInput{
				{MedicationID: f.amox.ID, Quantity: 2},
				{MedicationID: f.ibu.ID, Quantity: 6},
			},
		},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.Contains(t, err.Error(), f.ibu.Name)
	assert.Contains(t, err.Error(), "requested 6, available 5")

	assert.Equal(t, 20, f.stock(t, f.amox.ID))
	assert.Equal(t, 5, f.stock(t, f.ibu.ID))

	_, err = f.svc.GetBundle(ctx, a.ID)
	assert.ErrorIs(t, err, clinical.ErrHistoryNotFound)

	got, err := f.appts.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusInProgress, got.Status)
	assert.Len(t, f.store.AuditEntries(), auditBefore)
}

func TestComplete_RepeatedMedicationIsSummed(t *testing.T) {
	f := newFixture(t)
	a := f.inProgress(t, appointment.NewClock(9, 0))

	_, err := f.svc.Complete(context.Background(), f.dentist, a.ID, clinical.CompletionInput{
		Prescription: &clinical.PrescriptionInput{
			Items: []clinical.ItemInput{
				{MedicationID: f.ibu.ID, Quantity: 3},
				{MedicationID: f.ibu.ID, Quantity: 3},
			},
		},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, 5, f.stock(t, f.ibu.ID))
}

func TestComplete_UnknownMedication(t *testing.T) {
	f := newFixture(t)
	a := f.inProgress(t, appointment.NewClock(9, 0))

	_, err := f.svc.Complete(context.Background(), f.dentist, a.ID, clinical.CompletionInput{
		Prescription: &clinical.PrescriptionInput{
			Items: []clinical.ItemInput{{MedicationID: uuid.New(), Quantity: 1}},
		},
	})
	assert.ErrorIs(t, err, inventory.ErrMedicationNotFound)
}

func TestComplete_RequiresInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.inProgress(t, appointment.NewClock(9, 0))
	_, err := f.svc.Complete(ctx, f.dentist, a.ID, clinical.CompletionInput{})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, f.dentist, a.ID, clinical.CompletionInput{})
	require.ErrorIs(t, err, clinical.ErrNotInProgress)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.Contains(t, err.Error(), "READY")

	_, err = f.svc.Complete(ctx, f.dentist, uuid.New(), clinical.CompletionInput{})
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

func TestComplete_InvalidChart(t *testing.T) {
	f := newFixture(t)
	a := f.inProgress(t, appointment.NewClock(9, 0))

	teeth := func(numbers ...int) *clinical.OdontogramInput {
		o := &clinical.OdontogramInput{}
		for _, n := range numbers {
			o.Teeth = append(o.Teeth, clinical.ToothInput{ToothNumber: n})
		}
		return o
	}
	tooMany := make([]int, 33)
	for i := range tooMany {
		tooMany[i] = i%32 + 1
	}

	tests := map[string]clinical.CompletionInput{
		"empty chart":     {Odontogram: teeth()},
		"tooth 0":         {Odontogram: teeth(0)},
		"tooth 33":        {Odontogram: teeth(33)},
		"duplicate tooth": {Odontogram: teeth(8, 8)},
		"too many teeth":  {Odontogram: teeth(tooMany...)},
		"bad condition": {Odontogram: &clinical.OdontogramInput{
			Teeth: []clinical.ToothInput{{ToothNumber: 1, Condition: "WOBBLY"}},
		}},
		"bad hygiene":   {History: clinical.HistoryInput{HygieneLevel: "SPARKLING"}},
		"no items":      {Prescription: &clinical.PrescriptionInput{}},
		"zero quantity": {Prescription: &clinical.PrescriptionInput{Items: []clinical.ItemInput{{MedicationID: f.amox.ID}}}},
		"missing med":   {Prescription: &clinical.PrescriptionInput{Items: []clinical.ItemInput{{Quantity: 1}}}},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Complete(context.Background(), f.dentist, a.ID, in)
			require.ErrorIs(t, err, clinical.ErrInvalidCompletion)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
		})
	}

	got, err := f.appts.GetAppointment(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusInProgress, got.Status)
}

func TestGetBundle_NotCompleted(t *testing.T) {
	f := newFixture(t)
	a := f.inProgress(t, appointment.NewClock(9, 0))

	_, err := f.svc.GetBundle(context.Background(), a.ID)
	assert.ErrorIs(t, err, clinical.ErrHistoryNotFound)

	_, err = f.svc.GetBundle(context.Background(), uuid.New())
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

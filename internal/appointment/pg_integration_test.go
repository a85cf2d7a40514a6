package appointment_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/audit"
	"github.com/hackgods/clinic-appointment-core/internal/config"
	"github.com/hackgods/clinic-appointment-core/internal/db"
	"github.com/hackgods/clinic-appointment-core/internal/memstore"
)

// pgFixture runs the service against a real database. Set POSTGRES_TEST_DSN
// to enable it.
func pgFixture(t *testing.T) (*appointment.Service, *pgxpool.Pool, uuid.UUID, uuid.UUID) {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.ConnectPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = db.NewMigrator(pool).Up(ctx)
	require.NoError(t, err)

	patient, practitioner := uuid.New(), uuid.New()
	_, err = pool.Exec(ctx, `INSERT INTO patients (id, name) VALUES ($1, 'PG Patient')`, patient)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO practitioners (id, name) VALUES ($1, 'PG Practitioner')`, practitioner)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM vital_signs WHERE patient_id = $1`, patient)
		_, _ = pool.Exec(ctx, `DELETE FROM appointments WHERE practitioner_id = $1`, practitioner)
		_, _ = pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, patient)
		_, _ = pool.Exec(ctx, `DELETE FROM practitioners WHERE id = $1`, practitioner)
	})

	svc := appointment.NewService(
		appointment.NewPgRepository(pool),
		memstore.New(),
		db.NewPgTransactor(pool),
		audit.NewPgRecorder(pool),
		config.Default(),
		zerolog.Nop(),
		appointment.WithNow(func() time.Time { return now }),
	)
	return svc, pool, patient, practitioner
}

func TestPostgres_BookingLifecycle(t *testing.T) {
	svc, pool, patient, practitioner := pgFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	book := func(start, end appointment.Clock) (*appointment.Appointment, error) {
		return svc.CreateAppointment(ctx, actor, appointment.CreateInput{
			PatientID:      patient,
			PractitionerID: practitioner,
			Date:           tomorrow,
			StartTime:      start,
			EndTime:        end,
		})
	}

	a, err := book(clock(9, 0), clock(9, 30))
	require.NoError(t, err)

	got, err := svc.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, clock(9, 0), got.StartTime)
	assert.Equal(t, clock(9, 30), got.EndTime)
	assert.True(t, got.Date.Equal(tomorrow))

	_, err = book(clock(9, 15), clock(9, 45))
	assert.ErrorIs(t, err, appointment.ErrScheduleConflict)

	weight := 70.0
	moved, vitals, err := svc.CheckIn(ctx, actor, a.ID, &appointment.VitalsInput{WeightKg: &weight})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusInVitals, moved.Status)
	require.NotNil(t, vitals)

	updated, err := svc.UpdateVitals(ctx, actor, a.ID, appointment.VitalsPatch{WeightKg: appointment.Null[float64]()})
	require.NoError(t, err)
	assert.Nil(t, updated.WeightKg)

	page, err := svc.ListAppointments(ctx, appointment.Filter{PractitionerID: &practitioner})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	var actions int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM audit_logs WHERE entity_id = $1`, a.ID).Scan(&actions))
	assert.GreaterOrEqual(t, actions, 2)
}

func TestPostgres_ConcurrentBookingsOneWins(t *testing.T) {
	svc, _, patient, practitioner := pgFixture(t)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateAppointment(context.Background(), uuid.New(), appointment.CreateInput{
				PatientID:      patient,
				PractitionerID: practitioner,
				Date:           tomorrow,
				StartTime:      clock(14, 0),
				EndTime:        clock(14, 30),
			})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			if !errors.Is(err, appointment.ErrScheduleConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

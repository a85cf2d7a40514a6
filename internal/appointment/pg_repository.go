package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-appointment-core/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, patient_id, practitioner_id, appointment_date, start_time, end_time,
	duration_minutes, status, notes, created_by, created_at, updated_at,
	vitals_taken_at, consultation_started_at, consultation_ended_at, active`

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner

	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, end pgtype.Time
	var status string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PractitionerID,
		&a.Date,
		&start,
		&end,
		&a.DurationMinutes,
		&status,
		&a.Notes,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.VitalsTakenAt,
		&a.ConsultationStartedAt,
		&a.ConsultationEndedAt,
		&a.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = DateOf(a.Date)
	a.StartTime = clockFromPg(start)
	a.EndTime = clockFromPg(end)
	a.Status = Status(status)
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanVitalSigns(row pgx.Row) (*VitalSigns, error) {
	var v VitalSigns

	err := row.Scan(
		&v.ID,
		&v.AppointmentID,
		&v.PatientID,
		&v.RecordedBy,
		&v.WeightKg,
		&v.HeightCm,
		&v.TemperatureC,
		&v.SystolicMmHg,
		&v.DiastolicMmHg,
		&v.HeartRateBpm,
		&v.RespiratoryRate,
		&v.OxygenSaturation,
		&v.Notes,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVitalSignsNotFound
		}
		return nil, err
	}
	return &v, nil
}

func clockToPg(c Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * int64(time.Minute/time.Microsecond), Valid: true}
}

func clockFromPg(t pgtype.Time) Clock {
	return Clock(t.Microseconds / int64(time.Minute/time.Microsecond))
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM practitioners
		WHERE id = $1
	`, id)
	return scanPractitioner(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND active
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND active
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f Filter) ([]Appointment, int, error) {
	where := []string{"active"}
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.PractitionerID != nil {
		add("practitioner_id = $%d", *f.PractitionerID)
	}
	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.DateFrom != nil {
		add("appointment_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("appointment_date <= $%d", *f.DateTo)
	}
	clause := strings.Join(where, " AND ")

	q := db.Conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM appointments WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE %s
		ORDER BY appointment_date, start_time, id
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	items, err := scanAppointments(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan appointments: %w", err)
	}
	return items, total, nil
}

func (r *PgRepository) ListPractitionerDay(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND appointment_date = $2
		  AND active
		ORDER BY start_time
	`, practitionerID, date)
	if err != nil {
		return nil, fmt.Errorf("list practitioner day: %w", err)
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListScheduledBefore(ctx context.Context, date time.Time, limit int) ([]Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'SCHEDULED'
		  AND appointment_date < $1
		  AND active
		ORDER BY appointment_date, start_time
		LIMIT $2
	`, date, limit)
	if err != nil {
		return nil, fmt.Errorf("list scheduled before %s: %w", date.Format(time.DateOnly), err)
	}
	return scanAppointments(rows)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, practitioner_id, appointment_date, start_time, end_time,
			duration_minutes, status, notes, created_by, created_at, updated_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, TRUE)
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.PractitionerID, a.Date, clockToPg(a.StartTime), clockToPg(a.EndTime),
		a.DurationMinutes, string(a.Status), a.Notes, a.CreatedBy, a.CreatedAt,
	)

	created, err := scanAppointment(row)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	*a = *created
	return nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    practitioner_id = $3,
		    appointment_date = $4,
		    start_time = $5,
		    end_time = $6,
		    duration_minutes = $7,
		    notes = $8,
		    updated_at = $9
		WHERE id = $1
		  AND status = 'SCHEDULED'
		  AND active
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.PractitionerID, a.Date, clockToPg(a.StartTime), clockToPg(a.EndTime),
		a.DurationMinutes, a.Notes, a.UpdatedAt,
	)

	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return ErrStatusChanged
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	*a = *updated
	return nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, a *Appointment, from Status) error {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    notes = $3,
		    vitals_taken_at = $4,
		    consultation_started_at = $5,
		    consultation_ended_at = $6,
		    updated_at = $7
		WHERE id = $1
		  AND status = $8
		  AND active
		RETURNING `+appointmentColumns,
		a.ID, string(a.Status), a.Notes, a.VitalsTakenAt, a.ConsultationStartedAt,
		a.ConsultationEndedAt, a.UpdatedAt, string(from),
	)

	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return ErrStatusChanged
		}
		return fmt.Errorf("update appointment status: %w", err)
	}
	*a = *updated
	return nil
}

func (r *PgRepository) SoftDeleteAppointment(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointments
		SET active = FALSE,
		    updated_at = $2
		WHERE id = $1 AND active
	`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

const vitalSignsColumns = `id, appointment_id, patient_id, recorded_by, weight_kg, height_cm, temperature_c,
	systolic_mmhg, diastolic_mmhg, heart_rate_bpm, respiratory_rate, oxygen_saturation, notes,
	created_at, updated_at`

func (r *PgRepository) CreateVitalSigns(ctx context.Context, v *VitalSigns) error {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO vital_signs (`+vitalSignsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING `+vitalSignsColumns,
		v.ID, v.AppointmentID, v.PatientID, v.RecordedBy, v.WeightKg, v.HeightCm, v.TemperatureC,
		v.SystolicMmHg, v.DiastolicMmHg, v.HeartRateBpm, v.RespiratoryRate, v.OxygenSaturation, v.Notes,
		v.CreatedAt,
	)

	created, err := scanVitalSigns(row)
	if err != nil {
		return fmt.Errorf("insert vital signs: %w", err)
	}
	*v = *created
	return nil
}

func (r *PgRepository) GetVitalSignsByAppointment(ctx context.Context, appointmentID uuid.UUID) (*VitalSigns, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+vitalSignsColumns+`
		FROM vital_signs
		WHERE appointment_id = $1
	`, appointmentID)
	return scanVitalSigns(row)
}

func (r *PgRepository) UpdateVitalSigns(ctx context.Context, v *VitalSigns) error {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE vital_signs
		SET weight_kg = $2,
		    height_cm = $3,
		    temperature_c = $4,
		    systolic_mmhg = $5,
		    diastolic_mmhg = $6,
		    heart_rate_bpm = $7,
		    respiratory_rate = $8,
		    oxygen_saturation = $9,
		    notes = $10,
		    updated_at = $11
		WHERE id = $1
		RETURNING `+vitalSignsColumns,
		v.ID, v.WeightKg, v.HeightCm, v.TemperatureC, v.SystolicMmHg, v.DiastolicMmHg,
		v.HeartRateBpm, v.RespiratoryRate, v.OxygenSaturation, v.Notes, v.UpdatedAt,
	)

	updated, err := scanVitalSigns(row)
	if err != nil {
		if errors.Is(err, ErrVitalSignsNotFound) {
			return err
		}
		return fmt.Errorf("update vital signs: %w", err)
	}
	*v = *updated
	return nil
}

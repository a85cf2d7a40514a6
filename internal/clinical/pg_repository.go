package clinical

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-appointment-core/internal/db"
)

// prescriptionLockSpace namespaces the per-year advisory lock key.
const prescriptionLockSpace int64 = 0x5258 << 32

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) CreateClinicalHistory(ctx context.Context, h *ClinicalHistory) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO clinical_histories (id, appointment_id, patient_id, clinician_id, chief_complaint, diagnosis,
			hygiene_level, gum_condition, bleeding, sensitivity, bruxism, halitosis,
			treatment_plan, next_visit_date, recommendations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, h.ID, h.AppointmentID, h.PatientID, h.ClinicianID, h.ChiefComplaint, h.Diagnosis,
		string(h.HygieneLevel), string(h.GumCondition), h.Bleeding, h.Sensitivity, h.Bruxism, h.Halitosis,
		h.TreatmentPlan, h.NextVisitDate, h.Recommendations, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert clinical history: %w", err)
	}
	return nil
}

func (r *PgRepository) CreateOdontogram(ctx context.Context, o *Odontogram) error {
	q := db.Conn(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO odontograms (id, clinical_history_id, appointment_id, patient_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, o.ID, o.ClinicalHistoryID, o.AppointmentID, o.PatientID, o.Notes, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert odontogram: %w", err)
	}

	for _, t := range o.Teeth {
		_, err := q.Exec(ctx, `
			INSERT INTO odontogram_teeth (id, odontogram_id, tooth_number, condition, notes)
			VALUES ($1, $2, $3, $4, $5)
		`, t.ID, o.ID, t.ToothNumber, string(t.Condition), t.Notes)
		if err != nil {
			return fmt.Errorf("insert tooth %d: %w", t.ToothNumber, err)
		}
	}
	return nil
}

func (r *PgRepository) CreatePrescription(ctx context.Context, p *Prescription) error {
	q := db.Conn(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO prescriptions (id, number, appointment_id, clinical_history_id, patient_id, prescriber_id,
			instructions, notes, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Number, p.AppointmentID, p.ClinicalHistoryID, p.PatientID, p.PrescriberID,
		p.Instructions, p.Notes, p.IssuedAt)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}

	for _, it := range p.Items {
		_, err := q.Exec(ctx, `
			INSERT INTO prescription_items (id, prescription_id, position, medication_id, quantity,
				dosage, frequency, duration_days, instructions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, it.ID, p.ID, it.Position, it.MedicationID, it.Quantity,
			it.Dosage, it.Frequency, it.DurationDays, it.Instructions)
		if err != nil {
			return fmt.Errorf("insert prescription item %d: %w", it.Position, err)
		}
	}
	return nil
}

func (r *PgRepository) LastPrescriptionNumber(ctx context.Context, year int) (string, error) {
	q := db.Conn(ctx, r.pool)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, prescriptionLockSpace|int64(year)); err != nil {
		return "", fmt.Errorf("lock prescription year %d: %w", year, err)
	}

	var number string
	err := q.QueryRow(ctx, `
		SELECT number
		FROM prescriptions
		WHERE number LIKE $1
		ORDER BY length(number) DESC, number DESC
		LIMIT 1
	`, prescriptionPrefix(year)+"%").Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select last prescription number: %w", err)
	}
	return number, nil
}

func (r *PgRepository) GetClinicalHistoryByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ClinicalHistory, error) {
	var h ClinicalHistory
	var hygiene, gum string

	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, appointment_id, patient_id, clinician_id, chief_complaint, diagnosis,
			hygiene_level, gum_condition, bleeding, sensitivity, bruxism, halitosis,
			treatment_plan, next_visit_date, recommendations, created_at
		FROM clinical_histories
		WHERE appointment_id = $1
	`, appointmentID).Scan(
		&h.ID, &h.AppointmentID, &h.PatientID, &h.ClinicianID, &h.ChiefComplaint, &h.Diagnosis,
		&hygiene, &gum, &h.Bleeding, &h.Sensitivity, &h.Bruxism, &h.Halitosis,
		&h.TreatmentPlan, &h.NextVisitDate, &h.Recommendations, &h.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}

	h.HygieneLevel = HygieneLevel(hygiene)
	h.GumCondition = GumCondition(gum)
	return &h, nil
}

func (r *PgRepository) GetOdontogramByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Odontogram, error) {
	q := db.Conn(ctx, r.pool)

	var o Odontogram
	err := q.QueryRow(ctx, `
		SELECT id, clinical_history_id, appointment_id, patient_id, notes, created_at
		FROM odontograms
		WHERE appointment_id = $1
	`, appointmentID).Scan(&o.ID, &o.ClinicalHistoryID, &o.AppointmentID, &o.PatientID, &o.Notes, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOdontogramNotFound
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, tooth_number, condition, notes
		FROM odontogram_teeth
		WHERE odontogram_id = $1
		ORDER BY tooth_number
	`, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list teeth: %w", err)
	}
	defer rows.Close()

	o.Teeth = []ToothEntry{}
	for rows.Next() {
		var t ToothEntry
		var cond string
		if err := rows.Scan(&t.ID, &t.ToothNumber, &cond, &t.Notes); err != nil {
			return nil, err
		}
		t.Condition = ToothCondition(cond)
		o.Teeth = append(o.Teeth, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) GetPrescriptionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error) {
	q := db.Conn(ctx, r.pool)

	var p Prescription
	err := q.QueryRow(ctx, `
		SELECT id, number, appointment_id, clinical_history_id, patient_id, prescriber_id,
			instructions, notes, issued_at
		FROM prescriptions
		WHERE appointment_id = $1
	`, appointmentID).Scan(&p.ID, &p.Number, &p.AppointmentID, &p.ClinicalHistoryID, &p.PatientID,
		&p.PrescriberID, &p.Instructions, &p.Notes, &p.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, position, medication_id, quantity, dosage, frequency, duration_days, instructions
		FROM prescription_items
		WHERE prescription_id = $1
		ORDER BY position
	`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list prescription items: %w", err)
	}
	defer rows.Close()

	p.Items = []PrescriptionItem{}
	for rows.Next() {
		var it PrescriptionItem
		if err := rows.Scan(&it.ID, &it.Position, &it.MedicationID, &it.Quantity,
			&it.Dosage, &it.Frequency, &it.DurationDays, &it.Instructions); err != nil {
			return nil, err
		}
		p.Items = append(p.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

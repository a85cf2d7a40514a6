package clinical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/audit"
	"github.com/hackgods/clinic-appointment-core/internal/config"
	"github.com/hackgods/clinic-appointment-core/internal/db"
	"github.com/hackgods/clinic-appointment-core/internal/inventory"
)

// CompletionNote is appended to the appointment notes when a consultation
// is completed.
const CompletionNote = "Dental consultation completed"

type HistoryInput struct {
	ChiefComplaint  *string
	Diagnosis       *string
	HygieneLevel    HygieneLevel // default FAIR
	GumCondition    GumCondition // default HEALTHY
	Bleeding        bool
	Sensitivity     bool
	Bruxism         bool
	Halitosis       bool
	TreatmentPlan   *string
	NextVisitDate   *time.Time
	Recommendations *string
}

type ToothInput struct {
	ToothNumber int
	Condition   ToothCondition // default HEALTHY
	Notes       *string
}

type OdontogramInput struct {
	Notes *string
	Teeth []ToothInput
}

type ItemInput struct {
	MedicationID uuid.UUID
	Quantity     int
	Dosage       *string
	Frequency    *string
	DurationDays *int
	Instructions *string
}

type PrescriptionInput struct {
	Instructions *string
	Notes        *string
	Items        []ItemInput
}

type CompletionInput struct {
	History      HistoryInput
	Odontogram   *OdontogramInput
	Prescription *PrescriptionInput
}

type Service struct {
	appts AppointmentStore
	repo  Repository
	stock inventory.Repository
	tx    db.Transactor
	audit audit.Recorder
	loc   *time.Location
	log   zerolog.Logger
	now   func() time.Time
}

type Option func(*Service)

func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(appts AppointmentStore, repo Repository, stock inventory.Repository, tx db.Transactor, auditor audit.Recorder, cfg config.Config, log zerolog.Logger, opts ...Option) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		appts: appts,
		repo:  repo,
		stock: stock,
		tx:    tx,
		audit: auditor,
		loc:   loc,
		log:   log.With().Str("component", "clinical").Logger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Complete closes an IN_PROGRESS consultation. The clinical history, the
// optional chart and prescription, the stock draw-down and the move to
// READY commit together or not at all.
func (s *Service) Complete(ctx context.Context, actor, appointmentID uuid.UUID, in CompletionInput) (*Bundle, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var bundle *Bundle

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return lookupError(err, appointmentID)
		}
		if a.Status != appointment.StatusInProgress {
			return fmt.Errorf("%w: appointment %s is %s, completion requires IN_PROGRESS", ErrNotInProgress, a.ID, a.Status)
		}

		now := s.now()
		b := &Bundle{}

		if b.History, err = s.createHistory(ctx, actor, a, in.History, now); err != nil {
			return err
		}
		if in.Odontogram != nil {
			if b.Odontogram, err = s.createOdontogram(ctx, a, b.History, *in.Odontogram, now); err != nil {
				return err
			}
		}
		if in.Prescription != nil {
			if b.Prescription, err = s.createPrescription(ctx, actor, a, b.History, *in.Prescription, now); err != nil {
				return err
			}
		}

		from := a.Status
		if err := a.Advance(appointment.StatusReady, now); err != nil {
			return err
		}
		a.Notes = appointment.AppendNote(a.Notes, CompletionNote)
		if err := s.appts.UpdateAppointmentStatus(ctx, a, from); err != nil {
			if errors.Is(err, appointment.ErrStatusChanged) {
				return fmt.Errorf("%w: appointment %s changed during completion", ErrNotInProgress, a.ID)
			}
			return fmt.Errorf("update appointment status: %w", err)
		}
		b.Appointment = a

		if err := s.recordCompletion(ctx, actor, from, b); err != nil {
			return err
		}

		bundle = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := s.log.Info().
		Str("appointment_id", appointmentID.String()).
		Str("clinical_history_id", bundle.History.ID.String())
	if bundle.Prescription != nil {
		ev = ev.Str("prescription", bundle.Prescription.Number)
	}
	ev.Msg("consultation completed")

	return bundle, nil
}

// GetBundle returns what the consultation of an appointment produced.
func (s *Service) GetBundle(ctx context.Context, appointmentID uuid.UUID) (*Bundle, error) {
	a, err := s.appts.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, lookupError(err, appointmentID)
	}

	b := &Bundle{Appointment: a}

	if b.History, err = s.repo.GetClinicalHistoryByAppointment(ctx, appointmentID); err != nil {
		if errors.Is(err, ErrHistoryNotFound) {
			return nil, fmt.Errorf("%w: appointment %s", ErrHistoryNotFound, appointmentID)
		}
		return nil, fmt.Errorf("load clinical history: %w", err)
	}
	if b.Odontogram, err = s.repo.GetOdontogramByAppointment(ctx, appointmentID); err != nil {
		if !errors.Is(err, ErrOdontogramNotFound) {
			return nil, fmt.Errorf("load odontogram: %w", err)
		}
		b.Odontogram = nil
	}
	if b.Prescription, err = s.repo.GetPrescriptionByAppointment(ctx, appointmentID); err != nil {
		if !errors.Is(err, ErrPrescriptionNotFound) {
			return nil, fmt.Errorf("load prescription: %w", err)
		}
		b.Prescription = nil
	}
	return b, nil
}

func (s *Service) createHistory(ctx context.Context, actor uuid.UUID, a *appointment.Appointment, in HistoryInput, now time.Time) (*ClinicalHistory, error) {
	h := &ClinicalHistory{
		ID:              uuid.New(),
		AppointmentID:   a.ID,
		PatientID:       a.PatientID,
		ClinicianID:     actor,
		ChiefComplaint:  in.ChiefComplaint,
		Diagnosis:       in.Diagnosis,
		HygieneLevel:    in.HygieneLevel,
		GumCondition:    in.GumCondition,
		Bleeding:        in.Bleeding,
		Sensitivity:     in.Sensitivity,
		Bruxism:         in.Bruxism,
		Halitosis:       in.Halitosis,
		TreatmentPlan:   in.TreatmentPlan,
		Recommendations: in.Recommendations,
		CreatedAt:       now,
	}
	if h.HygieneLevel == "" {
		h.HygieneLevel = HygieneFair
	}
	if h.GumCondition == "" {
		h.GumCondition = GumHealthy
	}
	if in.NextVisitDate != nil {
		d := appointment.DateOf(*in.NextVisitDate)
		h.NextVisitDate = &d
	}

	if err := s.repo.CreateClinicalHistory(ctx, h); err != nil {
		return nil, fmt.Errorf("create clinical history: %w", err)
	}
	return h, nil
}

func (s *Service) createOdontogram(ctx context.Context, a *appointment.Appointment, h *ClinicalHistory, in OdontogramInput, now time.Time) (*Odontogram, error) {
	o := &Odontogram{
		ID:                uuid.New(),
		ClinicalHistoryID: h.ID,
		AppointmentID:     a.ID,
		PatientID:         a.PatientID,
		Notes:             in.Notes,
		Teeth:             make([]ToothEntry, 0, len(in.Teeth)),
		CreatedAt:         now,
	}
	for _, t := range in.Teeth {
		cond := t.Condition
		if cond == "" {
			cond = ToothHealthy
		}
		o.Teeth = append(o.Teeth, ToothEntry{
			ID:          uuid.New(),
			ToothNumber: t.ToothNumber,
			Condition:   cond,
			Notes:       t.Notes,
		})
	}

	if err := s.repo.CreateOdontogram(ctx, o); err != nil {
		return nil, fmt.Errorf("create odontogram: %w", err)
	}
	return o, nil
}

func (s *Service) createPrescription(ctx context.Context, actor uuid.UUID, a *appointment.Appointment, h *ClinicalHistory, in PrescriptionInput, now time.Time) (*Prescription, error) {
	lines := make([]inventory.Demand, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, inventory.Demand{MedicationID: it.MedicationID, Quantity: it.Quantity})
	}
	demand, err := inventory.Aggregate(lines)
	if err != nil {
		return nil, err
	}
	if _, err := inventory.Reserve(ctx, s.stock, demand); err != nil {
		return nil, err
	}

	year := now.In(s.loc).Year()
	last, err := s.repo.LastPrescriptionNumber(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load last prescription number: %w", err)
	}
	number, err := NextPrescriptionNumber(last, year)
	if err != nil {
		return nil, err
	}

	p := &Prescription{
		ID:                uuid.New(),
		Number:            number,
		AppointmentID:     a.ID,
		ClinicalHistoryID: h.ID,
		PatientID:         a.PatientID,
		PrescriberID:      actor,
		Instructions:      in.Instructions,
		Notes:             in.Notes,
		Items:             make([]PrescriptionItem, 0, len(in.Items)),
		IssuedAt:          now,
	}
	for i, it := range in.Items {
		p.Items = append(p.Items, PrescriptionItem{
			ID:           uuid.New(),
			Position:     i + 1,
			MedicationID: it.MedicationID,
			Quantity:     it.Quantity,
			Dosage:       it.Dosage,
			Frequency:    it.Frequency,
			DurationDays: it.DurationDays,
			Instructions: it.Instructions,
		})
	}

	if err := s.repo.CreatePrescription(ctx, p); err != nil {
		return nil, fmt.Errorf("create prescription %s: %w", number, err)
	}
	return p, nil
}

func (s *Service) recordCompletion(ctx context.Context, actor uuid.UUID, from appointment.Status, b *Bundle) error {
	newValue := map[string]any{
		"status":              b.Appointment.Status,
		"clinical_history_id": b.History.ID,
	}
	if b.Odontogram != nil {
		newValue["odontogram_id"] = b.Odontogram.ID
	}
	if b.Prescription != nil {
		newValue["prescription_id"] = b.Prescription.ID
		newValue["prescription_number"] = b.Prescription.Number
	}

	e, err := audit.NewEntry(actor, audit.ActionConsultationComplete, "appointment", b.Appointment.ID,
		map[string]any{"status": from}, newValue)
	if err != nil {
		return err
	}
	if err := s.audit.Record(ctx, e); err != nil {
		return fmt.Errorf("record %s: %w", audit.ActionConsultationComplete, err)
	}
	return nil
}

func (in CompletionInput) validate() error {
	h := in.History
	if h.HygieneLevel != "" && !h.HygieneLevel.Valid() {
		return fmt.Errorf("%w: unknown hygiene level %q", ErrInvalidCompletion, h.HygieneLevel)
	}
	if h.GumCondition != "" && !h.GumCondition.Valid() {
		return fmt.Errorf("%w: unknown gum condition %q", ErrInvalidCompletion, h.GumCondition)
	}

	if o := in.Odontogram; o != nil {
		if len(o.Teeth) < MinTooth || len(o.Teeth) > MaxTooth {
			return fmt.Errorf("%w: odontogram needs between %d and %d teeth, got %d",
				ErrInvalidCompletion, MinTooth, MaxTooth, len(o.Teeth))
		}
		seen := make(map[int]bool, len(o.Teeth))
		for _, t := range o.Teeth {
			if t.ToothNumber < MinTooth || t.ToothNumber > MaxTooth {
				return fmt.Errorf("%w: tooth number %d is outside %d-%d", ErrInvalidCompletion, t.ToothNumber, MinTooth, MaxTooth)
			}
			if seen[t.ToothNumber] {
				return fmt.Errorf("%w: tooth %d appears more than once", ErrInvalidCompletion, t.ToothNumber)
			}
			seen[t.ToothNumber] = true
			if t.Condition != "" && !t.Condition.Valid() {
				return fmt.Errorf("%w: unknown condition %q for tooth %d", ErrInvalidCompletion, t.Condition, t.ToothNumber)
			}
		}
	}

	if p := in.Prescription; p != nil {
		if len(p.Items) == 0 {
			return fmt.Errorf("%w: prescription has no items", ErrInvalidCompletion)
		}
		for i, it := range p.Items {
			if it.MedicationID == uuid.Nil {
				return fmt.Errorf("%w: item %d has no medication", ErrInvalidCompletion, i+1)
			}
			if it.Quantity <= 0 {
				return fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidCompletion, i+1)
			}
			if it.DurationDays != nil && *it.DurationDays <= 0 {
				return fmt.Errorf("%w: item %d duration must be positive", ErrInvalidCompletion, i+1)
			}
		}
	}
	return nil
}

func lookupError(err error, id uuid.UUID) error {
	if errors.Is(err, appointment.ErrAppointmentNotFound) {
		return fmt.Errorf("%w: %s", appointment.ErrAppointmentNotFound, id)
	}
	return fmt.Errorf("load appointment %s: %w", id, err)
}

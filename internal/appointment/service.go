package appointment

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-core/internal/audit"
	"github.com/hackgods/clinic-appointment-core/internal/config"
	"github.com/hackgods/clinic-appointment-core/internal/db"
	redisclient "github.com/hackgods/clinic-appointment-core/internal/redis"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	entityAppointment = "appointment"
	entityVitalSigns  = "vital_signs"
)

// Store is everything the service persists through.
type Store interface {
	Repository
	VitalSignsRepository
}

type Service struct {
	repo   Store
	locker redisclient.Locker
	tx     db.Transactor
	audit  audit.Recorder
	cfg    config.Config
	log    zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithNow replaces the wall clock, mostly for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Store, locker redisclient.Locker, tx db.Transactor, auditor audit.Recorder, cfg config.Config, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		locker: locker,
		tx:     tx,
		audit:  auditor,
		cfg:    cfg,
		log:    log.With().Str("component", "appointment").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	Date           time.Time
	StartTime      Clock
	// EndTime may be left zero when DurationMinutes is given.
	EndTime         Clock
	DurationMinutes int
	Notes           *string
}

// EditInput carries the fields to change; nil means keep.
type EditInput struct {
	PatientID       *uuid.UUID
	PractitionerID  *uuid.UUID
	Date            *time.Time
	StartTime       *Clock
	EndTime         *Clock
	DurationMinutes *int
	Notes           *string
}

func (in EditInput) reschedules() bool {
	return in.PractitionerID != nil || in.Date != nil || in.StartTime != nil ||
		in.EndTime != nil || in.DurationMinutes != nil
}

// CreateAppointment books a SCHEDULED appointment. The conflict check and
// the insert run in one transaction while the practitioner's day is locked,
// so concurrent bookings for the same day cannot both pass the check.
func (s *Service) CreateAppointment(ctx context.Context, actor uuid.UUID, in CreateInput) (*Appointment, error) {
	date := DateOf(in.Date)

	end, duration, err := normalizeSchedule(in.StartTime, in.EndTime, in.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if date.Before(s.today()) {
		return nil, fmt.Errorf("%w: date %s is in the past", ErrInvalidInput, date.Format(time.DateOnly))
	}

	var created *Appointment

	err = s.withDayLock(ctx, in.PractitionerID, date, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.ensurePatient(ctx, in.PatientID); err != nil {
				return err
			}
			if err := s.ensurePractitioner(ctx, in.PractitionerID); err != nil {
				return err
			}

			iv := Interval{Start: in.StartTime, End: end}
			if err := s.checkConflict(ctx, in.PractitionerID, date, iv, uuid.Nil); err != nil {
				return err
			}

			now := s.now()
			a := &Appointment{
				ID:              uuid.New(),
				PatientID:       in.PatientID,
				PractitionerID:  in.PractitionerID,
				Date:            date,
				StartTime:       in.StartTime,
				EndTime:         end,
				DurationMinutes: duration,
				Status:          StatusScheduled,
				Notes:           in.Notes,
				CreatedBy:       actor,
				CreatedAt:       now,
				UpdatedAt:       now,
				Active:          true,
			}
			if err := s.repo.CreateAppointment(ctx, a); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
			if err := s.record(ctx, actor, audit.ActionAppointmentCreated, entityAppointment, a.ID, nil, a); err != nil {
				return err
			}

			created = a
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("practitioner_id", created.PractitionerID.String()).
		Str("date", created.Date.Format(time.DateOnly)).
		Stringer("interval", created.Interval()).
		Msg("appointment created")

	return created, nil
}

// EditAppointment changes a SCHEDULED appointment. Moving it re-runs the
// conflict check against the target day, ignoring the appointment itself.
func (s *Service) EditAppointment(ctx context.Context, actor, id uuid.UUID, in EditInput) (*Appointment, error) {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, id)
	}
	if current.Status != StatusScheduled {
		return nil, notEditable(current)
	}

	target, err := s.applyEdit(*current, in)
	if err != nil {
		return nil, err
	}

	var updated *Appointment

	err = s.withDayLock(ctx, target.PractitionerID, target.Date, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			locked, err := s.repo.GetAppointmentForUpdate(ctx, id)
			if err != nil {
				return wrapNotFound(err, id)
			}
			if locked.Status != StatusScheduled {
				return notEditable(locked)
			}

			next, err := s.applyEdit(*locked, in)
			if err != nil {
				return err
			}
			if next.PractitionerID != target.PractitionerID || !next.Date.Equal(target.Date) {
				return fmt.Errorf("%w: appointment %s moved while editing", ErrScheduleBusy, id)
			}

			if next.PatientID != locked.PatientID {
				if err := s.ensurePatient(ctx, next.PatientID); err != nil {
					return err
				}
			}
			if next.PractitionerID != locked.PractitionerID {
				if err := s.ensurePractitioner(ctx, next.PractitionerID); err != nil {
					return err
				}
			}
			if in.reschedules() {
				if err := s.checkConflict(ctx, next.PractitionerID, next.Date, next.Interval(), id); err != nil {
					return err
				}
			}

			next.UpdatedAt = s.now()
			if err := s.repo.UpdateAppointment(ctx, &next); err != nil {
				if errors.Is(err, ErrStatusChanged) {
					return s.staleEdit(ctx, id)
				}
				return fmt.Errorf("update appointment: %w", err)
			}
			if err := s.record(ctx, actor, audit.ActionAppointmentUpdated, entityAppointment, id, locked, &next); err != nil {
				return err
			}

			updated = &next
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyEdit merges in over a and validates the result.
func (s *Service) applyEdit(a Appointment, in EditInput) (Appointment, error) {
	if in.PatientID != nil {
		a.PatientID = *in.PatientID
	}
	if in.PractitionerID != nil {
		a.PractitionerID = *in.PractitionerID
	}
	if in.Date != nil {
		date := DateOf(*in.Date)
		if date.Before(s.today()) {
			return Appointment{}, fmt.Errorf("%w: date %s is in the past", ErrInvalidInput, date.Format(time.DateOnly))
		}
		a.Date = date
	}
	if in.Notes != nil {
		a.Notes = in.Notes
	}

	length := a.EndTime.Sub(a.StartTime)
	if in.StartTime != nil {
		a.StartTime = *in.StartTime
	}

	duration := 0
	switch {
	case in.EndTime != nil:
		a.EndTime = *in.EndTime
		if in.DurationMinutes != nil {
			duration = *in.DurationMinutes
		}
	case in.DurationMinutes != nil:
		duration = *in.DurationMinutes
		a.EndTime = 0
	case in.StartTime != nil:
		// shift, keeping the original length
		a.EndTime = a.StartTime.Add(length)
	default:
		duration = a.DurationMinutes
	}

	end, duration, err := normalizeSchedule(a.StartTime, a.EndTime, duration)
	if err != nil {
		return Appointment{}, err
	}
	a.EndTime = end
	a.DurationMinutes = duration
	return a, nil
}

func (s *Service) staleEdit(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return wrapNotFound(err, id)
	}
	return notEditable(current)
}

// DeleteAppointment soft deletes an appointment that never reached the
// chair: SCHEDULED, CANCELED or NO_SHOW.
func (s *Service) DeleteAppointment(ctx context.Context, actor, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return wrapNotFound(err, id)
		}

		switch a.Status {
		case StatusScheduled, StatusCanceled, StatusNoShow:
		default:
			return fmt.Errorf("%w: appointment %s is %s, only SCHEDULED, CANCELED or NO_SHOW appointments can be deleted",
				ErrNotEditable, id, a.Status)
		}

		now := s.now()
		if err := s.repo.SoftDeleteAppointment(ctx, id, now); err != nil {
			return wrapNotFound(err, id)
		}

		deleted := *a
		deleted.Active = false
		deleted.UpdatedAt = now
		return s.record(ctx, actor, audit.ActionAppointmentDeleted, entityAppointment, id, a, &deleted)
	})
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, id)
	}
	return a, nil
}

// GetAppointmentDetail retrieves a fully hydrated appointment by ID.
func (s *Service) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	a, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: *a}

	if detail.Patient, err = s.repo.GetPatientByID(ctx, a.PatientID); err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if detail.Practitioner, err = s.repo.GetPractitionerByID(ctx, a.PractitionerID); err != nil && !errors.Is(err, ErrPractitionerNotFound) {
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	if detail.VitalSigns, err = s.repo.GetVitalSignsByAppointment(ctx, a.ID); err != nil && !errors.Is(err, ErrVitalSignsNotFound) {
		return nil, fmt.Errorf("load vital signs: %w", err)
	}
	return detail, nil
}

func (s *Service) ListAppointments(ctx context.Context, f Filter) (*Page, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return nil, fmt.Errorf("%w: date_to is before date_from", ErrInvalidInput)
	}

	items, total, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if items == nil {
		items = []Appointment{}
	}
	return &Page{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// AvailableSlots lists the practitioner's working day cut into slots.
func (s *Service) AvailableSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time) (iter.Seq[Slot], error) {
	date = DateOf(date)
	if date.Before(s.today()) {
		return nil, fmt.Errorf("%w: date %s is in the past", ErrInvalidInput, date.Format(time.DateOnly))
	}
	if err := s.ensurePractitioner(ctx, practitionerID); err != nil {
		return nil, err
	}

	day, err := s.repo.ListPractitionerDay(ctx, practitionerID, date)
	if err != nil {
		return nil, fmt.Errorf("load practitioner day: %w", err)
	}
	return GenerateSlots(s.window(), day), nil
}

// SweepNoShows marks SCHEDULED appointments from past days as NO_SHOW. It
// returns how many were marked.
func (s *Service) SweepNoShows(ctx context.Context, batch int) (int, error) {
	stale, err := s.repo.ListScheduledBefore(ctx, s.today(), batch)
	if err != nil {
		return 0, fmt.Errorf("find stale scheduled appointments: %w", err)
	}

	marked := 0
	for _, a := range stale {
		if _, err := s.MarkNoShow(ctx, audit.SystemActor, a.ID); err != nil {
			if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			s.log.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("failed to mark no-show")
			continue
		}
		marked++
	}
	return marked, nil
}

func (s *Service) checkConflict(ctx context.Context, practitionerID uuid.UUID, date time.Time, iv Interval, exclude uuid.UUID) error {
	day, err := s.repo.ListPractitionerDay(ctx, practitionerID, date)
	if err != nil {
		return fmt.Errorf("load practitioner day: %w", err)
	}
	if other, ok := FindConflict(day, iv, exclude); ok {
		return fmt.Errorf("%w: %s overlaps appointment %s (%s) on %s",
			ErrScheduleConflict, iv, other.ID, other.Interval(), date.Format(time.DateOnly))
	}
	return nil
}

func (s *Service) withDayLock(ctx context.Context, practitionerID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	err := s.locker.WithLock(ctx, redisclient.PractitionerDayKey(practitionerID, date), fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		s.log.Warn().
			Str("practitioner_id", practitionerID.String()).
			Str("date", date.Format(time.DateOnly)).
			Msg("booking lock busy")
		return fmt.Errorf("%w: practitioner %s on %s", ErrScheduleBusy, practitionerID, date.Format(time.DateOnly))
	}
	return err
}

func (s *Service) ensurePatient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetPatientByID(ctx, id); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return fmt.Errorf("%w: %s", ErrPatientNotFound, id)
		}
		return fmt.Errorf("load patient: %w", err)
	}
	return nil
}

func (s *Service) ensurePractitioner(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetPractitionerByID(ctx, id); err != nil {
		if errors.Is(err, ErrPractitionerNotFound) {
			return fmt.Errorf("%w: %s", ErrPractitionerNotFound, id)
		}
		return fmt.Errorf("load practitioner: %w", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor uuid.UUID, action, entity string, id uuid.UUID, oldValue, newValue any) error {
	e, err := audit.NewEntry(actor, action, entity, id, oldValue, newValue)
	if err != nil {
		return err
	}
	if err := s.audit.Record(ctx, e); err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	return nil
}

func (s *Service) today() time.Time {
	loc := s.cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(s.now().In(loc))
}

func (s *Service) window() Window {
	return Window{
		Start: ClockFromDuration(s.cfg.WorkdayStart),
		End:   ClockFromDuration(s.cfg.WorkdayEnd),
		Step:  s.cfg.SlotDuration,
	}
}

// normalizeSchedule derives whichever of end or duration is missing and
// checks the interval. When both are given they must agree.
func normalizeSchedule(start, end Clock, duration int) (Clock, int, error) {
	if duration < 0 {
		return 0, 0, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if end == 0 && duration > 0 {
		end = start.Add(time.Duration(duration) * time.Minute)
	}
	if !start.Valid() || !end.Valid() {
		return 0, 0, fmt.Errorf("%w: times must fall within the day", ErrInvalidInput)
	}
	if start >= end {
		return 0, 0, fmt.Errorf("%w: start time %s must be before end time %s", ErrInvalidInput, start, end)
	}
	length := int(end.Sub(start) / time.Minute)
	if duration == 0 {
		return end, length, nil
	}
	if duration != length {
		return 0, 0, fmt.Errorf("%w: duration_minutes %d does not match %s-%s", ErrInvalidInput, duration, start, end)
	}
	return end, duration, nil
}

func notEditable(a *Appointment) error {
	return fmt.Errorf("%w: appointment %s is %s, edits require SCHEDULED", ErrNotEditable, a.ID, a.Status)
}

func wrapNotFound(err error, id uuid.UUID) error {
	if errors.Is(err, ErrAppointmentNotFound) {
		return fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}
	return fmt.Errorf("load appointment %s: %w", id, err)
}

// AppendNote adds note on a new line after any existing notes.
func AppendNote(existing *string, note string) *string {
	if note == "" {
		return existing
	}
	if existing == nil || *existing == "" {
		return &note
	}
	joined := *existing + "\n" + note
	return &joined
}

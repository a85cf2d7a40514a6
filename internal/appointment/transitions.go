package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/audit"
)

// transition runs one guarded move of the state machine. after runs in the
// same transaction once the new status is written.
func (s *Service) transition(ctx context.Context, actor, id uuid.UUID, to Status, note *string, after func(ctx context.Context, a *Appointment) error) (*Appointment, error) {
	var result *Appointment

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return wrapNotFound(err, id)
		}

		from := a.Status
		if err := a.Advance(to, s.now()); err != nil {
			return err
		}
		if note != nil {
			a.Notes = AppendNote(a.Notes, *note)
		}

		if err := s.repo.UpdateAppointmentStatus(ctx, a, from); err != nil {
			if errors.Is(err, ErrStatusChanged) {
				return s.staleTransition(ctx, id, to)
			}
			return err
		}

		if after != nil {
			if err := after(ctx, a); err != nil {
				return err
			}
		}

		if err := s.record(ctx, actor, audit.ActionAppointmentStatus, entityAppointment, id,
			map[string]any{"status": from}, map[string]any{"status": a.Status}); err != nil {
			return err
		}

		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("appointment_id", id.String()).
		Str("status", string(result.Status)).
		Msg("appointment status changed")

	return result, nil
}

// staleTransition explains a conditional update that matched no row: some
// other request moved the appointment first.
func (s *Service) staleTransition(ctx context.Context, id uuid.UUID, to Status) error {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return wrapNotFound(err, id)
	}
	return transitionError(current, to)
}

func (s *Service) CancelAppointment(ctx context.Context, actor, id uuid.UUID, notes *string) (*Appointment, error) {
	return s.transition(ctx, actor, id, StatusCanceled, notes, nil)
}

// CheckIn moves the patient to vitals. The VitalSigns record is created only
// when at least one measurement is supplied.
func (s *Service) CheckIn(ctx context.Context, actor, id uuid.UUID, in *VitalsInput) (*Appointment, *VitalSigns, error) {
	var recorded *VitalSigns

	a, err := s.transition(ctx, actor, id, StatusInVitals, nil, func(ctx context.Context, a *Appointment) error {
		if in == nil || !in.HasMeasurements() {
			return nil
		}
		v, err := s.recordVitals(ctx, actor, a, *in)
		if err != nil {
			return err
		}
		recorded = v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return a, recorded, nil
}

func (s *Service) StartConsultation(ctx context.Context, actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, StatusInProgress, nil, nil)
}

func (s *Service) MarkReady(ctx context.Context, actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, StatusReady, nil, nil)
}

func (s *Service) CompleteAppointment(ctx context.Context, actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, StatusCompleted, nil, nil)
}

func (s *Service) MarkNoShow(ctx context.Context, actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, StatusNoShow, nil, nil)
}

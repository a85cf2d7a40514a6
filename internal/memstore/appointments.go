package memstore

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
)

func (s *Store) GetPatientByID(_ context.Context, id uuid.UUID) (*appointment.Patient, error) {
	var (
		p  appointment.Patient
		ok bool
	)
	s.read(func(d *state) { p, ok = d.patients[id] })
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	return &p, nil
}

func (s *Store) GetPractitionerByID(_ context.Context, id uuid.UUID) (*appointment.Practitioner, error) {
	var (
		p  appointment.Practitioner
		ok bool
	)
	s.read(func(d *state) { p, ok = d.practitioners[id] })
	if !ok {
		return nil, appointment.ErrPractitionerNotFound
	}
	return &p, nil
}

func (s *Store) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var (
		a  appointment.Appointment
		ok bool
	)
	s.read(func(d *state) { a, ok = d.appointments[id] })
	if !ok || !a.Active {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

// GetAppointmentForUpdate needs no row lock: transactions already run one
// at a time.
func (s *Store) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.GetAppointmentByID(ctx, id)
}

func (s *Store) ListAppointments(_ context.Context, f appointment.Filter) ([]appointment.Appointment, int, error) {
	var matched []appointment.Appointment
	s.read(func(d *state) {
		for _, a := range d.appointments {
			if matches(a, f) {
				matched = append(matched, a)
			}
		}
	})

	slices.SortFunc(matched, compareSchedule)

	total := len(matched)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return matched[start:end], total, nil
}

func matches(a appointment.Appointment, f appointment.Filter) bool {
	switch {
	case !a.Active:
		return false
	case f.PatientID != nil && a.PatientID != *f.PatientID:
		return false
	case f.PractitionerID != nil && a.PractitionerID != *f.PractitionerID:
		return false
	case f.Status != nil && a.Status != *f.Status:
		return false
	case f.DateFrom != nil && a.Date.Before(*f.DateFrom):
		return false
	case f.DateTo != nil && a.Date.After(*f.DateTo):
		return false
	}
	return true
}

func compareSchedule(a, b appointment.Appointment) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.StartTime, b.StartTime); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

func (s *Store) ListPractitionerDay(_ context.Context, practitionerID uuid.UUID, date time.Time) ([]appointment.Appointment, error) {
	var day []appointment.Appointment
	s.read(func(d *state) {
		for _, a := range d.appointments {
			if a.Active && a.PractitionerID == practitionerID && a.Date.Equal(date) {
				day = append(day, a)
			}
		}
	})
	slices.SortFunc(day, compareSchedule)
	return day, nil
}

func (s *Store) ListScheduledBefore(_ context.Context, date time.Time, limit int) ([]appointment.Appointment, error) {
	var stale []appointment.Appointment
	s.read(func(d *state) {
		for _, a := range d.appointments {
			if a.Active && a.Status == appointment.StatusScheduled && a.Date.Before(date) {
				stale = append(stale, a)
			}
		}
	})
	slices.SortFunc(stale, compareSchedule)
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *appointment.Appointment) error {
	return s.write(ctx, func(d *state) error {
		d.appointments[a.ID] = *a
		return nil
	})
}

func (s *Store) UpdateAppointment(ctx context.Context, a *appointment.Appointment) error {
	return s.write(ctx, func(d *state) error {
		cur, ok := d.appointments[a.ID]
		if !ok || !cur.Active || cur.Status != appointment.StatusScheduled {
			return appointment.ErrStatusChanged
		}
		cur.PatientID = a.PatientID
		cur.PractitionerID = a.PractitionerID
		cur.Date = a.Date
		cur.StartTime = a.StartTime
		cur.EndTime = a.EndTime
		cur.DurationMinutes = a.DurationMinutes
		cur.Notes = a.Notes
		cur.UpdatedAt = a.UpdatedAt
		d.appointments[a.ID] = cur
		*a = cur
		return nil
	})
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, a *appointment.Appointment, from appointment.Status) error {
	return s.write(ctx, func(d *state) error {
		cur, ok := d.appointments[a.ID]
		if !ok || !cur.Active || cur.Status != from {
			return appointment.ErrStatusChanged
		}
		cur.Status = a.Status
		cur.Notes = a.Notes
		cur.VitalsTakenAt = a.VitalsTakenAt
		cur.ConsultationStartedAt = a.ConsultationStartedAt
		cur.ConsultationEndedAt = a.ConsultationEndedAt
		cur.UpdatedAt = a.UpdatedAt
		d.appointments[a.ID] = cur
		*a = cur
		return nil
	})
}

func (s *Store) SoftDeleteAppointment(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.write(ctx, func(d *state) error {
		cur, ok := d.appointments[id]
		if !ok || !cur.Active {
			return appointment.ErrAppointmentNotFound
		}
		cur.Active = false
		cur.UpdatedAt = at
		d.appointments[id] = cur
		return nil
	})
}

func (s *Store) CreateVitalSigns(ctx context.Context, v *appointment.VitalSigns) error {
	return s.write(ctx, func(d *state) error {
		d.vitals[v.AppointmentID] = *v
		return nil
	})
}

func (s *Store) GetVitalSignsByAppointment(_ context.Context, appointmentID uuid.UUID) (*appointment.VitalSigns, error) {
	var (
		v  appointment.VitalSigns
		ok bool
	)
	s.read(func(d *state) { v, ok = d.vitals[appointmentID] })
	if !ok {
		return nil, appointment.ErrVitalSignsNotFound
	}
	return &v, nil
}

func (s *Store) UpdateVitalSigns(ctx context.Context, v *appointment.VitalSigns) error {
	return s.write(ctx, func(d *state) error {
		cur, ok := d.vitals[v.AppointmentID]
		if !ok || cur.ID != v.ID {
			return appointment.ErrVitalSignsNotFound
		}
		d.vitals[v.AppointmentID] = *v
		return nil
	})
}

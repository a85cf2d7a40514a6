package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/apperr"
)

var (
	ErrPatientNotFound      = apperr.New(apperr.KindNotFound, "patient not found")
	ErrPractitionerNotFound = apperr.New(apperr.KindNotFound, "practitioner not found")
	ErrAppointmentNotFound  = apperr.New(apperr.KindNotFound, "appointment not found")
	ErrVitalSignsNotFound   = apperr.New(apperr.KindNotFound, "vital signs not found")

	ErrInvalidInput      = apperr.New(apperr.KindValidation, "invalid appointment")
	ErrScheduleConflict  = apperr.New(apperr.KindConflict, "schedule conflict")
	ErrScheduleBusy      = apperr.New(apperr.KindConflict, "schedule is being booked, please retry")
	ErrInvalidTransition = apperr.New(apperr.KindForbidden, "invalid status transition")
	ErrNotEditable       = apperr.New(apperr.KindForbidden, "appointment cannot be modified")

	// ErrStatusChanged is returned by conditional updates whose expected
	// status no longer matches the stored row.
	ErrStatusChanged = errors.New("appointment status changed")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)

	// Reads skip soft-deleted rows.
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f Filter) ([]Appointment, int, error)

	// For conflict checks and slot listing
	ListPractitionerDay(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Appointment, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	// UpdateAppointment writes editable fields while the row is still SCHEDULED.
	UpdateAppointment(ctx context.Context, a *Appointment) error
	// UpdateAppointmentStatus writes status, milestones and notes if the row is still in from.
	UpdateAppointmentStatus(ctx context.Context, a *Appointment, from Status) error
	SoftDeleteAppointment(ctx context.Context, id uuid.UUID, at time.Time) error

	// Sweeper
	ListScheduledBefore(ctx context.Context, date time.Time, limit int) ([]Appointment, error)
}

type VitalSignsRepository interface {
	CreateVitalSigns(ctx context.Context, v *VitalSigns) error
	GetVitalSignsByAppointment(ctx context.Context, appointmentID uuid.UUID) (*VitalSigns, error)
	UpdateVitalSigns(ctx context.Context, v *VitalSigns) error
}

package clinical

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/apperr"
	"github.com/hackgods/clinic-appointment-core/internal/appointment"
)

var (
	ErrHistoryNotFound      = apperr.New(apperr.KindNotFound, "clinical history not found")
	ErrOdontogramNotFound   = apperr.New(apperr.KindNotFound, "odontogram not found")
	ErrPrescriptionNotFound = apperr.New(apperr.KindNotFound, "prescription not found")

	ErrNotInProgress     = apperr.New(apperr.KindBadRequest, "consultation is not in progress")
	ErrInvalidCompletion = apperr.New(apperr.KindValidation, "invalid consultation record")
)

type Repository interface {
	CreateClinicalHistory(ctx context.Context, h *ClinicalHistory) error
	// CreateOdontogram stores the chart and its teeth.
	CreateOdontogram(ctx context.Context, o *Odontogram) error
	// CreatePrescription stores the prescription and its items.
	CreatePrescription(ctx context.Context, p *Prescription) error

	// LastPrescriptionNumber returns the highest number issued in year, or
	// "" if none. It serializes callers for that year until the
	// surrounding transaction ends.
	LastPrescriptionNumber(ctx context.Context, year int) (string, error)

	GetClinicalHistoryByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ClinicalHistory, error)
	GetOdontogramByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Odontogram, error)
	GetPrescriptionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error)
}

// AppointmentStore is the slice of the appointment repository the
// orchestrator writes through.
type AppointmentStore interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, a *appointment.Appointment, from appointment.Status) error
}
